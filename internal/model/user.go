package model

import "time"

// User represents an account record as stored in the `users` table.  The
// password hash is never serialized; handlers return the exported fields
// only.  Role holds one of the values defined in the auth package.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password (never sent to clients).
//  Role         – role name (ADMIN, ANALYST or VIEWER).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    `json:"id"`
    Username     string    `json:"username"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    Role         string    `json:"role"`
    IsActive     bool      `json:"is_active"`
    CreatedAt    time.Time `json:"created_at"`
    UpdatedAt    time.Time `json:"updated_at"`
}
