package repository

import (
	"context"

	"github.com/helenjin/databases-proj-group27/internal/database"
)

// GuestbookRepo writes to the auxiliary `test` table.
type GuestbookRepo struct {
	db database.Querier
}

func NewGuestbookRepo(db database.Querier) *GuestbookRepo {
	return &GuestbookRepo{db: db}
}

// Add inserts one name.
func (r *GuestbookRepo) Add(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, "INSERT INTO test (name) VALUES (?)", name); err != nil {
		return queryErr("add guestbook entry", err)
	}
	return nil
}
