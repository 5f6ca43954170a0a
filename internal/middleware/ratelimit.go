package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/quimitrack/chem-registry/internal/config"
    "github.com/quimitrack/chem-registry/internal/ratelimit"
    "github.com/quimitrack/chem-registry/internal/utils"
)

// NewRateLimit returns a middleware that runs one fixed-window admission
// check per request.  It executes before JWTAuth, so the subject identity
// used for key composition is taken from the bearer token only after the
// token verifies against the signing secret: an unverifiable token counts
// as anonymous and shares the plain per-address counter.  Anything else
// would let one address mint a fresh counter per forged subject.
// A counter-store failure lets the request through: degraded limiting beats
// a full outage.
func NewRateLimit(cfg config.RateLimitConfig, limiter *ratelimit.Limiter, jwtSecret string) echo.MiddlewareFunc {
    if !cfg.Enabled || limiter == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()

            ip := c.RealIP()
            if ip == "" { ip = "unknown" }
            subject := ""
            if auth := req.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
                raw := strings.TrimPrefix(auth, "Bearer ")
                if uid, _, err := utils.ParseAccessToken(jwtSecret, raw); err == nil {
                    subject = strconv.FormatUint(uid, 10)
                }
            }

            rule := limiter.Match(req.Method, req.URL.Path)
            dec, err := limiter.Allow(req.Context(), rule, ip, subject)
            if err != nil {
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] store error for rule=%s ip=%s: %v", rule.Name, ip, err)
                }
                return next(c)
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

            if !dec.Allowed {
                secs := int(math.Ceil(dec.RetryAfter.Seconds()))
                if secs < 1 { secs = 1 }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    c.Logger().Infof("[ratelimit] block rule=%s ip=%s retry=%ds", rule.Name, ip, secs)
                }
                return c.JSON(http.StatusTooManyRequests, map[string]any{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}
