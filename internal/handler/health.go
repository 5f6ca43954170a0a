package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// HealthHandler reports service liveness for load balancers and monitoring.
// The database decides the status code; object storage is reported in the
// body but never fails the check, since the API works without uploads.
type HealthHandler struct {
    DB    *sql.DB
    Store ObjectStore
}

func NewHealthHandler(db *sql.DB, store ObjectStore) *HealthHandler {
    return &HealthHandler{DB: db, Store: store}
}

func (h *HealthHandler) Check(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    dbOK := h.DB != nil && h.DB.PingContext(ctx) == nil

    storageState := "unconfigured"
    if h.Store != nil {
        if h.Store.HeadBucket(ctx) {
            storageState = "ok"
        } else {
            storageState = "unreachable"
        }
    }

    dbState := "unreachable"
    if dbOK {
        dbState = "ok"
    }

    body := echo.Map{
        "db":             dbState,
        "object_storage": storageState,
    }
    if !dbOK {
        return c.JSON(http.StatusServiceUnavailable, body)
    }
    return c.JSON(http.StatusOK, body)
}
