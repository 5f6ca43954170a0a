package middleware

import (
    "bytes"
    "io"
    "math"
    "mime"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/quimitrack/chem-registry/internal/abuse"
    "github.com/quimitrack/chem-registry/internal/config"
)

// bodyPeekBytes caps how much of the request body the filter inspects.  The
// inspected prefix is stitched back so handlers still read the full payload.
const bodyPeekBytes = 8 << 10

// inspectableBody reports whether a request body should be scanned for
// injection signatures.  Multipart and binary payloads are exempt: every
// multipart part opens with --<boundary>, which would trip the SQL comment
// signature on each legitimate file upload.  The query string is scanned
// regardless of content type.
func inspectableBody(contentType string) bool {
    if contentType == "" {
        return true
    }
    mt, _, err := mime.ParseMediaType(contentType)
    if err != nil {
        return true
    }
    if strings.HasPrefix(mt, "multipart/") {
        return false
    }
    switch mt {
    case "application/octet-stream", "application/pdf":
        return false
    }
    return true
}

// NewAbuseFilter returns a pre-routing middleware that consults the abuse
// filter for every request.  A suspicious request is rejected with 400 and a
// blocked address with 429 plus a Retry-After hint; neither response reveals
// which heuristic fired.
func NewAbuseFilter(cfg config.AbuseConfig, filter *abuse.Filter) echo.MiddlewareFunc {
    if !cfg.Enabled || filter == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()

            ip := c.RealIP()
            if ip == "" { ip = "unknown" }

            var peeked []byte
            if req.Body != nil && req.Body != http.NoBody && inspectableBody(req.Header.Get("Content-Type")) {
                peeked, _ = io.ReadAll(io.LimitReader(req.Body, bodyPeekBytes))
                req.Body = struct {
                    io.Reader
                    io.Closer
                }{io.MultiReader(bytes.NewReader(peeked), req.Body), req.Body}
            }

            v := filter.Check(ip, req.Method, req.URL.Path, req.Header.Get("User-Agent"), req.URL.RawQuery, peeked)
            switch {
            case v.Blocked:
                secs := int(math.Ceil(v.RetryAfter.Seconds()))
                if secs < 1 { secs = 1 }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "temporarily blocked"})
            case v.Suspicious:
                return c.JSON(http.StatusBadRequest, map[string]string{"error": "request rejected"})
            }
            return next(c)
        }
    }
}
