package main // Entry point package

import (
    "context"
    "log"
    "os"
    "time"

    "github.com/joho/godotenv"    // loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/quimitrack/chem-registry/internal/abuse"
    "github.com/quimitrack/chem-registry/internal/config"
    "github.com/quimitrack/chem-registry/internal/database"
    "github.com/quimitrack/chem-registry/internal/handler"
    "github.com/quimitrack/chem-registry/internal/logging"
    appmw "github.com/quimitrack/chem-registry/internal/middleware"
    "github.com/quimitrack/chem-registry/internal/queue"
    "github.com/quimitrack/chem-registry/internal/ratelimit"
    "github.com/quimitrack/chem-registry/internal/repository"
    "github.com/quimitrack/chem-registry/internal/router"
    "github.com/quimitrack/chem-registry/internal/storage"
)

func main() {
    _ = godotenv.Load() // .env is optional; real deployments set the environment directly

    // Every log line passes the redaction patterns before reaching stderr.
    log.SetOutput(logging.NewWriter(os.Stderr))

    cfg := config.Load()
    rlCfg := config.LoadRateLimitConfig()
    abuseCfg := config.LoadAbuseConfig()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    users := repository.NewUserRepo(db)
    products := repository.NewProductRepo(db)
    documents := repository.NewDocumentRepo(db)

    // Object storage is optional: with no bucket configured the upload
    // endpoints answer 500 and everything else keeps working.
    var store handler.ObjectStore
    if cfg.S3Bucket != "" {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        s3c, err := storage.New(ctx, storage.Config{
            Region:       cfg.AWSRegion,
            Bucket:       cfg.S3Bucket,
            AccessKey:    cfg.AWSAccessKey,
            SecretKey:    cfg.AWSSecretKey,
            Endpoint:     cfg.S3Endpoint,
            UsePathStyle: cfg.S3UsePathStyle,
        })
        cancel()
        if err != nil {
            log.Printf("object storage unavailable: %v", err)
        } else {
            store = s3c
        }
    }

    // One optional Redis client backs both the shared limiter counters and
    // the response cache; without it the limiter counts in-process and the
    // cache disables itself.
    rdb := config.NewRedisClient()
    var rlStore ratelimit.Store = ratelimit.NewMemoryStore()
    if rdb != nil {
        rlStore = ratelimit.NewRedisStore(rdb)
        log.Printf("ratelimit: using redis counters")
    }
    limiter := ratelimit.New(rlStore, rlCfg.Prefix,
        ratelimit.Rule{Name: "default", Limit: rlCfg.DefaultLimit, Window: rlCfg.DefaultWindow},
        ratelimit.DefaultRules())
    cache := appmw.NewResponseCache(config.LoadCacheConfig(), rdb)

    filter := abuse.New(abuseCfg)

    // Background consumer that appends approval events to logs/approvals.log.
    go func() {
        if err := queue.StartStatusConsumer(); err != nil {
            log.Printf("status-consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true

    router.Register(e, router.Deps{
        JWTSecret: cfg.JWTSecret,
        Abuse:     appmw.NewAbuseFilter(abuseCfg, filter),
        RateLimit: appmw.NewRateLimit(rlCfg, limiter, cfg.JWTSecret),
        Cache:     cache,
        Auth:      handler.NewAuthHandler(cfg, users),
        Users:     handler.NewUserHandler(cfg, users),
        Products:  handler.NewProductHandler(products),
        Documents: handler.NewDocumentHandler(store, documents, products, cfg.MaxUploadBytes),
        Health:    handler.NewHealthHandler(db, store),
    })

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
