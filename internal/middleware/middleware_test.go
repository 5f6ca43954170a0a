package middleware

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quimitrack/chem-registry/internal/abuse"
	"github.com/quimitrack/chem-registry/internal/auth"
	"github.com/quimitrack/chem-registry/internal/config"
	"github.com/quimitrack/chem-registry/internal/ratelimit"
	"github.com/quimitrack/chem-registry/internal/utils"
)

const testSecret = "unit-test-secret"

func doRequest(h echo.HandlerFunc, mws []echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestJWTAuth(t *testing.T) {
	mw := JWTAuth(testSecret)

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		rec := doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := utils.NewAccessToken("other-secret", 1, auth.RoleAdmin, 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rec := doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token sets identity", func(t *testing.T) {
		tok, err := utils.NewAccessToken(testSecret, 42, auth.RoleAnalyst, 5)
		require.NoError(t, err)

		handler := func(c echo.Context) error {
			assert.Equal(t, uint64(42), c.Get("user_id"))
			assert.Equal(t, auth.RoleAnalyst, c.Get("role"))
			return c.NoContent(http.StatusOK)
		}
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rec := doRequest(handler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireOperation(t *testing.T) {
	mw := RequireOperation(auth.OpProductCreate)

	cases := []struct {
		role string
		want int
	}{
		{auth.RoleAdmin, http.StatusOK},
		{auth.RoleAnalyst, http.StatusOK},
		{auth.RoleViewer, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		setRole := func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if tc.role != "" {
					c.Set("role", tc.role)
				}
				return next(c)
			}
		}
		req := httptest.NewRequest(http.MethodPost, "/products", nil)
		rec := doRequest(okHandler, []echo.MiddlewareFunc{setRole, mw}, req)
		assert.Equal(t, tc.want, rec.Code, "role %q", tc.role)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Prefix: "rl-test"}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), cfg.Prefix,
		ratelimit.Rule{Name: "default", Limit: 100, Window: time.Hour},
		[]ratelimit.Rule{{Name: "login", Prefix: "/login", Limit: 2, Window: time.Minute}})
	mw := NewRateLimit(cfg, limiter, testSecret)

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.RemoteAddr = "10.0.0.9:1234"
		return r
	}

	rec := doRequest(okHandler, []echo.MiddlewareFunc{mw}, req())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = doRequest(okHandler, []echo.MiddlewareFunc{mw}, req())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(okHandler, []echo.MiddlewareFunc{mw}, req())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different address gets its own counter.
	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "10.0.0.10:1234"
	rec = doRequest(okHandler, []echo.MiddlewareFunc{mw}, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitIgnoresForgedSubjects(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Prefix: "rl-test"}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), cfg.Prefix,
		ratelimit.Rule{Name: "default", Limit: 100, Window: time.Hour},
		[]ratelimit.Rule{{Name: "login", Prefix: "/login", Limit: 2, Window: time.Minute}})
	mw := NewRateLimit(cfg, limiter, testSecret)

	// Tokens signed with the wrong secret all share the plain address
	// counter: rotating forged subjects must not mint fresh windows.
	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		tok, err := utils.NewAccessToken("attacker-secret", uint64(100+i), auth.RoleAdmin, 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.66:4444"
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rec = doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A verified token composes its subject into the key and gets the
	// per-user counter from the same address.
	tok, err := utils.NewAccessToken(testSecret, 7, auth.RoleAnalyst, 5)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.66:4444"
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	mw := NewRateLimit(config.RateLimitConfig{Enabled: false}, nil, testSecret)
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func abuseTestConfig() config.AbuseConfig {
	return config.AbuseConfig{
		Enabled:         true,
		MaxStrikes:      3,
		BlockDuration:   15 * time.Minute,
		BurstLimit:      30,
		BurstWindow:     time.Minute,
		MinUserAgentLen: 10,
	}
}

func TestAbuseFilterMiddleware(t *testing.T) {
	cfg := abuseTestConfig()

	t.Run("short user agent rejected", func(t *testing.T) {
		mw := NewAbuseFilter(cfg, abuse.New(cfg))
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("User-Agent", "curl")
		rec := doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("injection in query rejected", func(t *testing.T) {
		mw := NewAbuseFilter(cfg, abuse.New(cfg))
		req := httptest.NewRequest(http.MethodGet, "/products/search?q=1%20UNION%20SELECT%20password_hash%20FROM%20users", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 test client")
		rec := doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("body is inspected and restored", func(t *testing.T) {
		mw := NewAbuseFilter(cfg, abuse.New(cfg))
		body := `{"nome_do_produto":"Acetona"}`
		var seen string
		handler := func(c echo.Context) error {
			b, err := io.ReadAll(c.Request().Body)
			require.NoError(t, err)
			seen = string(b)
			return c.NoContent(http.StatusOK)
		}
		req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
		req.Header.Set("User-Agent", "Mozilla/5.0 test client")
		rec := doRequest(handler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, seen)
	})

	t.Run("multipart upload body is not signature scanned", func(t *testing.T) {
		mw := NewAbuseFilter(cfg, abuse.New(cfg))

		// Every multipart part opens with --<boundary>; the body scan must
		// not mistake that for a SQL comment.
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile("file", "ficha-acetona.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4\nconteudo -- /* binario */\n"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		var filename string
		handler := func(c echo.Context) error {
			fh, err := c.FormFile("file")
			require.NoError(t, err)
			filename = fh.Filename
			return c.NoContent(http.StatusOK)
		}
		req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
		req.Header.Set("User-Agent", "Mozilla/5.0 test client")
		rec := doRequest(handler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ficha-acetona.pdf", filename)
	})

	t.Run("query scan still applies to multipart requests", func(t *testing.T) {
		mw := NewAbuseFilter(cfg, abuse.New(cfg))
		req := httptest.NewRequest(http.MethodPost, "/upload?id=1%20UNION%20SELECT%20password_hash%20FROM%20users", nil)
		req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=xyz")
		req.Header.Set("User-Agent", "Mozilla/5.0 test client")
		rec := doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("strikes escalate to timed block", func(t *testing.T) {
		mw := NewAbuseFilter(cfg, abuse.New(cfg))
		var rec *httptest.ResponseRecorder
		for i := 0; i < cfg.MaxStrikes; i++ {
			req := httptest.NewRequest(http.MethodGet, "/products", nil)
			req.Header.Set("User-Agent", "curl")
			req.RemoteAddr = "10.1.1.1:9999"
			rec = doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))

		// Legitimate-looking traffic from the blocked address stays rejected.
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 test client")
		req.RemoteAddr = "10.1.1.1:9999"
		rec = doRequest(okHandler, []echo.MiddlewareFunc{mw}, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}
