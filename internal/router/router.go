package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/quimitrack/chem-registry/internal/auth"
    "github.com/quimitrack/chem-registry/internal/handler"
    "github.com/quimitrack/chem-registry/internal/middleware"
)

// Deps bundles everything the routes need.  All dependencies are passed in
// explicitly; nothing here reads process-wide state.
type Deps struct {
    JWTSecret string
    Abuse     echo.MiddlewareFunc
    RateLimit echo.MiddlewareFunc
    Cache     *middleware.ResponseCache // nil disables response caching
    Auth      *handler.AuthHandler
    Users     *handler.UserHandler
    Products  *handler.ProductHandler
    Documents *handler.DocumentHandler
    Health    *handler.HealthHandler
}

// Register wires the middleware pipeline and every route.  Order matters:
// the abuse filter runs before routing, the rate limiter before
// authentication, and the operation guard after it.  Routes without the
// guard are exactly the three public ones.
func Register(e *echo.Echo, d Deps) {
    e.Pre(d.Abuse)
    e.Use(d.RateLimit)

    // Public endpoints: registration, login and the health check.
    e.POST("/register", d.Auth.Register)
    e.POST("/login", d.Auth.Login)
    e.GET("/healthz", d.Health.Check)

    jwt := middleware.JWTAuth(d.JWTSecret)
    guard := func(op auth.Operation) []echo.MiddlewareFunc {
        return []echo.MiddlewareFunc{jwt, middleware.RequireOperation(op)}
    }
    // Catalog reads are cached per role and subject; every catalog mutation
    // invalidates the cache.  Both middlewares are no-ops without Redis.
    cached := func(op auth.Operation) []echo.MiddlewareFunc {
        return append(guard(op), d.Cache.Middleware())
    }
    mutates := d.Cache.Invalidate()

    // Account management (ADMIN).
    e.GET("/users", d.Users.List, guard(auth.OpUserList)...)
    e.GET("/users/:id", d.Users.Get, guard(auth.OpUserGet)...)
    e.PUT("/users/:id", d.Users.Update, guard(auth.OpUserUpdate)...)
    e.DELETE("/users/:id", d.Users.Delete, guard(auth.OpUserDelete)...)

    // Product catalog.  /products/search must be registered before the
    // /products/:id parameter route would otherwise swallow it; echo routes
    // static segments first, but keeping the order explicit costs nothing.
    e.POST("/products", d.Products.Create, append(guard(auth.OpProductCreate), mutates)...)
    e.GET("/products", d.Products.List, cached(auth.OpProductList)...)
    e.GET("/products/search", d.Products.Search, cached(auth.OpProductSearch)...)
    e.GET("/products/:id", d.Products.Get, cached(auth.OpProductGet)...)
    e.PUT("/products/:id", d.Products.Update, append(guard(auth.OpProductUpdate), mutates)...)
    e.DELETE("/products/:id", d.Products.Delete, append(guard(auth.OpProductDelete), mutates)...)

    // PDF attachments.
    e.POST("/upload", d.Documents.Upload, append(guard(auth.OpDocumentUpload), mutates)...)
    e.GET("/pdfs", d.Documents.List, cached(auth.OpDocumentList)...)
    e.DELETE("/pdfs/:id", d.Documents.Delete, append(guard(auth.OpDocumentDelete), mutates)...)
}
