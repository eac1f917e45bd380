package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/health-wallet/internal/apperror"
	"github.com/sakif/health-wallet/internal/model"
	"github.com/sakif/health-wallet/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the SQLite-backed user repository.
type UserDB struct {
	db *DB
}

// Create inserts a new user. The generated ID and CreatedAt are written back
// into the struct. A username collision maps to apperror.ErrConflict so the
// service can decide how to surface it.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()

	_, err := u.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", fmt.Sprintf("username %q already exists", user.Username))
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.get(ctx, `SELECT id, username, password_hash, created_at
		 FROM users WHERE id = ?`, id)
}

// GetByUsername retrieves a user by their unique username.
// Returns apperror.ErrNotFound if no user exists with that username.
func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return u.get(ctx, `SELECT id, username, password_hash, created_at
		 FROM users WHERE username = ?`, username)
}

func (u *UserDB) get(ctx context.Context, query, key string) (*model.User, error) {
	var usr model.User

	err := u.db.conn.QueryRowContext(ctx, query, key).Scan(
		&usr.ID,
		&usr.Username,
		&usr.PasswordHash,
		&usr.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}

	return &usr, nil
}
