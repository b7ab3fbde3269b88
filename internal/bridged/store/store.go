package store

import (
	"context"
	"errors"
	"time"

	"github.com/rockfridrich/villa-sub000/internal/bridged/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Sessions interface {
	// CreateSession inserts a new session audit record (id is app-provided ULID).
	CreateSession(ctx context.Context, rec domain.SessionRecord) error

	// GetSessionByID returns a session record by id.
	GetSessionByID(ctx context.Context, id string) (domain.SessionRecord, error)

	// UpdateSessionState mutates the state column and bumps updated_at.
	UpdateSessionState(ctx context.Context, id, state string) error

	// RecordOutcome marks the session terminal. Only the first call for a
	// session takes effect; later calls are no-ops.
	RecordOutcome(ctx context.Context, id string, outcome domain.Outcome, errorCode, address, nickname string) error

	// ListRecent returns the newest session records, most recent first.
	ListRecent(ctx context.Context, limit int) ([]domain.SessionRecord, error)

	// DeleteResolvedBefore removes resolved sessions older than cutoff.
	// Housekeeping, keeps the audit table bounded.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
