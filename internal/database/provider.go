package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
	"github.com/helenjin/databases-proj-group27/internal/logging"
)

// Provider hands out one pooled connection per request. Acquisition is
// bounded by a timeout and guarded by a circuit breaker, so an unreachable
// database fails requests fast instead of piling them up.
type Provider struct {
	db             *sql.DB
	dialect        Dialect
	acquireTimeout time.Duration
	breaker        *gobreaker.CircuitBreaker[*sql.Conn]
	logger         *zap.Logger
}

func NewProvider(db *sql.DB, dialect Dialect, acquireTimeout time.Duration, logger *zap.Logger) *Provider {
	p := &Provider{
		db:             db,
		dialect:        dialect,
		acquireTimeout: acquireTimeout,
		logger:         logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[*sql.Conn](gobreaker.Settings{
		Name:        "db-acquire",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a client hanging up is not the database's fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return p
}

func (p *Provider) Dialect() Dialect { return p.dialect }

// Acquire leases a dedicated connection. The caller must close it through
// the returned Lease (or Conn.close) exactly once. All failures wrap
// apperrors.ErrConnection.
func (p *Provider) Acquire(ctx context.Context) (*Conn, error) {
	raw, err := p.breaker.Execute(func() (*sql.Conn, error) {
		actx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
		return p.db.Conn(actx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrConnection, err)
	}
	return NewConn(raw, p.dialect), nil
}

// Lease acquires a connection for the lifetime of one request. A failed
// acquisition is logged and recorded on the lease rather than returned, so
// the request can continue and fail cleanly where a connection is needed.
func (p *Provider) Lease(ctx context.Context) *Lease {
	conn, err := p.Acquire(ctx)
	if err != nil {
		p.logger.Error("acquire database connection", zap.String("error", logging.SanitizeError(err)))
		return &Lease{err: err}
	}
	return &Lease{conn: conn, logger: p.logger}
}

// Lease is the request-scoped handle to a leased connection, or to the
// error that prevented leasing one.
type Lease struct {
	conn   *Conn
	err    error
	logger *zap.Logger
	once   sync.Once
}

// FailedLease returns a lease that carries err. Used where no provider is
// available.
func FailedLease(err error) *Lease { return &Lease{err: err} }

// Conn returns the leased connection or the acquisition error.
func (l *Lease) Conn() (*Conn, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: no connection leased for request", apperrors.ErrConnection)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.conn, nil
}

// Release returns the connection to the pool. Safe to call more than once.
func (l *Lease) Release() {
	if l == nil || l.conn == nil {
		return
	}
	l.once.Do(func() {
		if err := l.conn.close(); err != nil && l.logger != nil {
			l.logger.Warn("release database connection", zap.Error(err))
		}
	})
}

type leaseKey struct{}

// WithLease stores the lease in ctx.
func WithLease(ctx context.Context, l *Lease) context.Context {
	return context.WithValue(ctx, leaseKey{}, l)
}

// LeaseFrom returns the lease stored in ctx, or nil.
func LeaseFrom(ctx context.Context) *Lease {
	l, _ := ctx.Value(leaseKey{}).(*Lease)
	return l
}

// ConnFrom returns the request's connection. Without a lease, or when
// leasing failed, the error wraps apperrors.ErrConnection.
func ConnFrom(ctx context.Context) (*Conn, error) {
	return LeaseFrom(ctx).Conn()
}
