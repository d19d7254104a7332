package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
)

// Querier is the statement surface shared by a leased connection and a
// transaction. Queries use '?' placeholders.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn is one pooled connection owned by a single request.
type Conn struct {
	raw     *sql.Conn
	dialect Dialect
}

func NewConn(raw *sql.Conn, dialect Dialect) *Conn {
	return &Conn{raw: raw, dialect: dialect}
}

func (c *Conn) Dialect() Dialect { return c.dialect }

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.raw.ExecContext(ctx, c.dialect.Rebind(query), args...)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.raw.QueryContext(ctx, c.dialect.Rebind(query), args...)
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.raw.QueryRowContext(ctx, c.dialect.Rebind(query), args...)
}

// WithTx runs fn inside a transaction on this connection. fn's error rolls
// the transaction back and is returned unchanged.
func (c *Conn) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := c.raw.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", apperrors.ErrQuery, err)
	}
	if err := fn(&txQuerier{tx: tx, dialect: c.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", apperrors.ErrQuery, err)
	}
	return nil
}

func (c *Conn) close() error { return c.raw.Close() }

type txQuerier struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *txQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *txQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *txQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}
