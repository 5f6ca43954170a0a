// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow handlers to distinguish
// failure scenarios: ErrNotFound maps to 404, the uniqueness sentinels map
// to 409, and anything else is an internal error that must not leak detail
// to the response body.
package repository

import (
    "errors"
    "strings"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when an insert or update collides with an
// existing username.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned when an insert or update collides with an
// existing email address.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned for uniqueness violations that cannot be
// attributed to a specific column.
var ErrConflict = errors.New("conflict")

// mapDuplicate converts a MySQL duplicate-key error (1062) into the
// matching sentinel by inspecting which unique index was violated.  Any
// other error is passed through unchanged.
func mapDuplicate(err error) error {
    if err == nil {
        return nil
    }
    msg := strings.ToLower(err.Error())
    if !strings.Contains(msg, "1062") {
        return err
    }
    switch {
    case strings.Contains(msg, "username"):
        return ErrUsernameExists
    case strings.Contains(msg, "email"):
        return ErrEmailExists
    default:
        return ErrConflict
    }
}
