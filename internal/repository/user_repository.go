package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/model"
)

// ErrUserNotFound is returned when no user has the requested username.
var ErrUserNotFound = fmt.Errorf("user %w", apperrors.ErrNotFound)

// ErrUsernameTaken is returned by Create when the username already exists.
var ErrUsernameTaken = fmt.Errorf("username %w", apperrors.ErrDuplicateUser)

// UserRepo reads and writes the `userr` table. It needs the full
// connection, not just a Querier, because Create runs in a transaction.
type UserRepo struct {
	db *database.Conn
}

func NewUserRepo(db *database.Conn) *UserRepo { return &UserRepo{db: db} }

// GetByUsername fetches a user by its primary key.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var (
		u   model.User
		dob sql.NullTime
	)
	const q = "SELECT username, password, email, dob FROM userr WHERE username = ?"
	if err := r.db.QueryRowContext(ctx, q, username).Scan(&u.Username, &u.PasswordHash, &u.Email, &dob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, queryErr("get user", err)
	}
	if dob.Valid {
		u.DOB = &dob.Time
	}
	return u, nil
}

// Create inserts the user with a NULL dob. The existence check and the
// insert share one transaction, and a unique violation from a concurrent
// registration is reported as ErrUsernameTaken too.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	return r.db.WithTx(ctx, func(q database.Querier) error {
		var n int
		const qExists = "SELECT COUNT(*) FROM userr WHERE username = ?"
		if err := q.QueryRowContext(ctx, qExists, u.Username).Scan(&n); err != nil {
			return queryErr("check username", err)
		}
		if n > 0 {
			return ErrUsernameTaken
		}

		const qInsert = "INSERT INTO userr (username, password, email, dob) VALUES (?, ?, ?, NULL)"
		if _, err := q.ExecContext(ctx, qInsert, u.Username, u.PasswordHash, u.Email); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return queryErr("insert user", err)
		}
		return nil
	})
}
