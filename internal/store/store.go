// Package store persists the treatment and trial corpus behind a small
// interface with PostgreSQL, SQLite, and in-memory implementations.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/trialscout/trialscout/internal/config"
	"github.com/trialscout/trialscout/internal/model"
)

// Store defines the persistence interface for the matching corpus.
type Store interface {
	// Treatments
	ListTreatments(ctx context.Context) ([]model.Treatment, error)
	UpsertTreatment(ctx context.Context, treatment *model.Treatment) error

	// Trials
	ListTrials(ctx context.Context) ([]model.Trial, error)
	GetTrial(ctx context.Context, nctID string) (*model.Trial, error)
	UpsertTrial(ctx context.Context, trial *model.Trial) error

	// Structured eligibility backfill
	ListTrialsMissingEligibility(ctx context.Context, version string, limit int) ([]model.Trial, error)
	UpdateTrialEligibility(ctx context.Context, nctID string, elig *model.StructuredEligibility, version string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Pool is the subset of pgxpool.Pool the Postgres store uses. Tests inject
// a pgxmock pool through the same interface.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Open constructs a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
