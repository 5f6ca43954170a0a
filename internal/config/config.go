package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations,
// costs and byte limits.  Object-storage settings are optional; when the
// bucket is empty the upload endpoints report storage as unavailable.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    BcryptCost     int    // bcrypt cost for password hashing
    AWSRegion      string // object storage region
    S3Bucket       string // object storage bucket (empty disables uploads)
    AWSAccessKey   string // static access key (empty uses the default chain)
    AWSSecretKey   string // static secret key
    S3Endpoint     string // custom endpoint for S3-compatible stores (MinIO)
    S3UsePathStyle bool   // path-style addressing for custom endpoints
    MaxUploadBytes int64  // maximum accepted upload size in bytes
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),      // environment (dev/test/prod)
        Port:           must("APP_PORT"),     // port to bind the HTTP server
        DBUser:         must("DB_USER"),      // database user
        DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:         must("DB_HOST"),      // database host
        DBPort:         must("DB_PORT"),      // database port
        DBName:         must("DB_NAME"),      // database name
        JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for access tokens in minutes
        BcryptCost:     mustInt("BCRYPT_COST"),          // bcrypt cost factor
        AWSRegion:      envStr("AWS_REGION", "us-east-1"),
        S3Bucket:       os.Getenv("S3_BUCKET_NAME"),
        AWSAccessKey:   os.Getenv("AWS_ACCESS_KEY_ID"),
        AWSSecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
        S3Endpoint:     os.Getenv("S3_ENDPOINT"),
        S3UsePathStyle: envBool("S3_USE_PATH_STYLE", false),
        MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
