package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/quimitrack/chem-registry/internal/config"
)

// ResponseCache is a short-TTL Redis cache for the catalog read endpoints.
// It runs after JWTAuth, so every key carries the acting role and subject:
// an ANALYST's scoped listing is never served to a VIEWER.  Keys also embed
// a generation counter that every successful mutation bumps, so stale
// entries stop matching immediately and die by TTL.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

// NewResponseCache builds the cache.  rdb may be nil; both middlewares then
// pass every request through untouched.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
    return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) disabled() bool {
    return rc == nil || !rc.cfg.Enabled || rc.rdb == nil
}

func (rc *ResponseCache) genKey() string { return rc.cfg.Prefix + ":gen" }

func (rc *ResponseCache) key(ctx context.Context, c echo.Context) string {
    gen, err := rc.rdb.Get(ctx, rc.genKey()).Result()
    if err != nil {
        gen = "0"
    }
    r := c.Request()
    sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
    role, _ := c.Get("role").(string)
    uid, _ := c.Get("user_id").(uint64)
    return fmt.Sprintf("%s:%s:%s:%d:%x", rc.cfg.Prefix, gen, role, uid, sum)
}

// cacheBody buffers what the handler writes while forwarding it to the
// client.  Buffering stops once the limit is reached; an oversized body is
// simply not cached.
type cacheBody struct {
    http.ResponseWriter
    buf   bytes.Buffer
    limit int
}

func (w *cacheBody) Write(b []byte) (int, error) {
    if w.buf.Len() < w.limit {
        w.buf.Write(b)
    }
    return w.ResponseWriter.Write(b)
}

// Middleware serves GET responses from Redis when a fresh entry exists and
// stores successful JSON bodies otherwise.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if rc.disabled() || c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := rc.key(ctx, c)

            if body, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
                c.Response().Header().Set("X-Cache", "HIT")
                return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
            }

            w := &cacheBody{ResponseWriter: c.Response().Writer, limit: rc.cfg.MaxBodyBytes}
            c.Response().Writer = w
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if c.Response().Status == http.StatusOK && w.buf.Len() <= rc.cfg.MaxBodyBytes {
                // Best effort: a failed write only costs the next read a miss.
                rc.rdb.SetEx(context.Background(), key, w.buf.Bytes(), rc.cfg.TTL)
            }
            return nil
        }
    }
}

// Invalidate bumps the generation counter after a successful mutation so the
// next catalog read misses.  Applied to every write route touching cached
// data.
func (rc *ResponseCache) Invalidate() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := next(c); err != nil {
                return err
            }
            if rc.disabled() {
                return nil
            }
            if s := c.Response().Status; s >= 200 && s < 300 {
                rc.rdb.Incr(context.Background(), rc.genKey())
            }
            return nil
        }
    }
}
