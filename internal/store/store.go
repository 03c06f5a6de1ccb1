// Package store persists extraction results behind a driver-agnostic
// interface with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/mietwerk/leasescan/internal/model"
)

// ErrNotFound is returned when the requested result does not exist.
var ErrNotFound = eris.New("store: result not found")

// Filter specifies criteria for listing extraction results.
type Filter struct {
	Status   model.Status      `json:"status,omitempty"`
	Tier     model.QualityTier `json:"tier,omitempty"`
	City     string            `json:"city,omitempty"`
	MinScore float64           `json:"min_score,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for extraction results.
type Store interface {
	SaveResult(ctx context.Context, r *model.ExtractionResult) error
	GetResult(ctx context.Context, id string) (*model.ExtractionResult, error)
	ListResults(ctx context.Context, filter Filter) ([]model.ExtractionResult, error)
	DeleteResult(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Pool is the subset of pgxpool.Pool used by PostgresStore, so tests can
// substitute a mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}
