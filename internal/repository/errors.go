// Package repository contains data access logic separated from HTTP handlers.
// Every repository runs on the request's leased connection (a
// database.Querier) and binds all caller input as parameters. Failures are
// wrapped with the sentinels from apperrors so handlers can classify them
// without knowing SQL.
package repository

import (
	"context"
	"fmt"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
	"github.com/helenjin/databases-proj-group27/internal/database"
)

// ErrDirectorNotFound is returned when no director has the requested name.
var ErrDirectorNotFound = fmt.Errorf("director %w", apperrors.ErrNotFound)

// ErrActorNotFound is returned when no actor has the requested name.
var ErrActorNotFound = fmt.Errorf("actor %w", apperrors.ErrNotFound)

// queryErr tags a driver error with the operation and apperrors.ErrQuery.
func queryErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrQuery, err)
}

// queryStrings runs a single-column query and collects the values. An empty
// result is an empty, non-nil slice.
func queryStrings(ctx context.Context, q database.Querier, op, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryErr(op, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, queryErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(op, err)
	}
	return out, nil
}
