package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/quimitrack/chem-registry/internal/auth"
    "github.com/quimitrack/chem-registry/internal/config"
    "github.com/quimitrack/chem-registry/internal/repository"
)

// UserHandler exposes the ADMIN-only account management endpoints.  The
// route guard already rejected every other role before these run.
type UserHandler struct {
    Cfg   config.Config
    Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
    return &UserHandler{Cfg: cfg, Users: u}
}

// userUpdateReq is the explicit allow-list of mutable account fields.
// bindStrict rejects any other key with 400.
type userUpdateReq struct {
    Username *string `json:"username"`
    Email    *string `json:"email"`
    Role     *string `json:"role"`
    Password *string `json:"password"`
    IsActive *bool   `json:"is_active"` // deactivated accounts cannot log in
}

// List returns every account.
func (h *UserHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    users, err := h.Users.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
    }
    return c.JSON(http.StatusOK, users)
}

// Get returns one account by id.
func (h *UserHandler) Get(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    u, err := h.Users.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get user failed"})
    }
    return c.JSON(http.StatusOK, u)
}

// Update applies a partial account update.
func (h *UserHandler) Update(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req userUpdateReq
    if err := bindStrict(c, &req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    patch := repository.UserPatch{Username: req.Username, Email: req.Email, Password: req.Password, IsActive: req.IsActive}
    if req.Role != nil {
        role := auth.NormalizeRole(*req.Role)
        if !auth.ValidRole(role) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
        }
        patch.Role = &role
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    if err := h.Users.Update(ctx, id, patch, h.Cfg.BcryptCost); err != nil {
        switch {
        case errors.Is(err, repository.ErrNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        case errors.Is(err, repository.ErrUsernameExists):
            return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
        case errors.Is(err, repository.ErrEmailExists):
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
    }

    u, err := h.Users.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
    }
    return c.JSON(http.StatusOK, u)
}

// Delete removes an account.  Products the account created keep a dangling
// created_by reference; reads degrade that to a null creator.
func (h *UserHandler) Delete(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    ok, err := h.Users.Delete(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
    }
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": id})
}
