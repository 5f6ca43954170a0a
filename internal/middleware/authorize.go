package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/quimitrack/chem-registry/internal/auth"
)

// RequireOperation returns a middleware that enforces the role policy for a
// single named operation.  The decision comes from the static policy table in
// the auth package, so adding a route never silently widens access: a route
// without this middleware (or with an unknown operation) denies everyone but
// the open registration/login endpoints, which are registered without it.
// It assumes JWTAuth already stored the "role" claim in the context.
func RequireOperation(op auth.Operation) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // Retrieve the role from context.  It should have been stored by
            // JWTAuth as a string.  If not present or of the wrong type,
            // treat it as missing and deny.
            role, ok := c.Get("role").(string)
            if !ok || !auth.Allowed(role, op) {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
