package handler // handler defines http handlers

import (
    "encoding/json"
    "errors"
    "io"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
)

// dbTimeout bounds every database call made from a request handler.
const dbTimeout = 5 * time.Second

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// getRole extracts the role claim stored by the JWT middleware.
func getRole(c echo.Context) string {
    if s, ok := c.Get("role").(string); ok {
        return s
    }
    return ""
}

// bindStrict decodes the request body into v and rejects unknown keys.
// Update payloads must name only allow-listed fields; a stray key is a
// validation error, not something to silently drop.
func bindStrict(c echo.Context, v any) error {
    dec := json.NewDecoder(c.Request().Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(v); err != nil {
        return err
    }
    // Trailing garbage after the JSON document is also a malformed body.
    if err := dec.Decode(&struct{}{}); err != io.EOF {
        return errors.New("unexpected data after json body")
    }
    return nil
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}
