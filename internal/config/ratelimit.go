package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig controls the fixed-window request limiter.  DefaultLimit
// and DefaultWindow apply to every route that has no dedicated rule; the
// per-route limits for credential issuance, uploads and destructive
// operations are declared where the routes are registered.
type RateLimitConfig struct {
    Enabled       bool
    DefaultLimit  int
    DefaultWindow time.Duration
    Prefix        string
    Debug         bool
}

func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:       envBool("RATE_LIMIT_ENABLED", true),
        DefaultLimit:  envInt("RATE_LIMIT_DEFAULT_LIMIT", 100),
        DefaultWindow: envDur("RATE_LIMIT_DEFAULT_WINDOW", time.Hour),
        Prefix:        envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:         envBool("RATE_LIMIT_DEBUG", false),
    }
    if cfg.DefaultLimit < 1 {
        cfg.DefaultLimit = 1
    }
    if cfg.DefaultWindow <= 0 {
        cfg.DefaultWindow = time.Hour
    }
    return cfg
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch os.Getenv(k) {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
