package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quimitrack/chem-registry/internal/model"
	"github.com/quimitrack/chem-registry/internal/utils"
)

// UserRepo encapsulates all database access for accounts.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, username, email, password_hash, role, is_active, created_at, updated_at"

// UserPatch is the explicit allow-list of mutable account fields.  Only
// non-nil fields are written; unknown payload keys never reach this struct.
type UserPatch struct {
	Username *string
	Email    *string
	Role     *string
	Password *string // hashed before the UPDATE
	IsActive *bool
}

// Create inserts a new account and returns its ID.  The password is hashed
// here so plaintext never crosses the repository boundary.  Username and
// email collisions surface as the uniqueness sentinels.
func (r *UserRepo) Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role) VALUES (?,?,?,?)",
		username, email, hash, role)
	if err != nil {
		return 0, mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getWhere(ctx, "id=?", id)
}

// GetByUsername fetches an account by its unique username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getWhere(ctx, "username=?", strings.TrimSpace(username))
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getWhere(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) getWhere(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns all accounts ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Update applies an allow-listed patch to one account in a single atomic
// statement.  It returns ErrNotFound when the account does not exist and
// the uniqueness sentinels on collisions.
func (r *UserRepo) Update(ctx context.Context, id uint64, patch UserPatch, bcryptCost int) error {
	var sets []string
	var args []any
	if patch.Username != nil {
		sets = append(sets, "username=?")
		args = append(args, strings.TrimSpace(*patch.Username))
	}
	if patch.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*patch.Email)))
	}
	if patch.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *patch.Role)
	}
	if patch.Password != nil {
		hash, err := utils.HashPassword(*patch.Password, bcryptCost)
		if err != nil {
			return err
		}
		sets = append(sets, "password_hash=?")
		args = append(args, hash)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *patch.IsActive)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return mapDuplicate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either missing or a no-op write; confirm existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an account.  Returns false when no row matched.
func (r *UserRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// VerifyCredentials loads an account by username and checks the password.
// A missing account, a wrong password and a deactivated account all return
// ErrNotFound so callers cannot distinguish which part failed.
func (r *UserRepo) VerifyCredentials(ctx context.Context, username, password string) (*model.User, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrNotFound
	}
	if !u.IsActive {
		return nil, ErrNotFound
	}
	return u, nil
}
