package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/trialscout/trialscout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"list_treatments": `SELECT data FROM treatments ORDER BY generic_name`,
	"list_trials":     `SELECT data, eligibility, eligibility_version, eligibility_at FROM trials ORDER BY nct_id`,
	"get_trial":       `SELECT data, eligibility, eligibility_version, eligibility_at FROM trials WHERE nct_id = $1`,
	"update_trial_eligibility": `UPDATE trials SET eligibility = $1, eligibility_version = $2, eligibility_at = $3 WHERE nct_id = $4`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS treatments (
	id           BIGSERIAL PRIMARY KEY,
	generic_name TEXT NOT NULL UNIQUE,
	data         JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trials (
	id                  BIGSERIAL PRIMARY KEY,
	nct_id              TEXT NOT NULL UNIQUE,
	status              TEXT NOT NULL DEFAULT '',
	relevance           TEXT NOT NULL DEFAULT '',
	data                JSONB NOT NULL,
	eligibility         JSONB,
	eligibility_version TEXT,
	eligibility_at      TIMESTAMPTZ,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_trials_status ON trials(status);
CREATE INDEX IF NOT EXISTS idx_trials_relevance ON trials(relevance);
CREATE INDEX IF NOT EXISTS idx_trials_eligibility_version ON trials(eligibility_version);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListTreatments(ctx context.Context) ([]model.Treatment, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM treatments ORDER BY generic_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list treatments")
	}
	defer rows.Close()

	var treatments []model.Treatment
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan treatment")
		}
		t, err := decodeTreatment(data)
		if err != nil {
			return nil, err
		}
		treatments = append(treatments, *t)
	}
	return treatments, eris.Wrap(rows.Err(), "postgres: list treatments iterate")
}

func (s *PostgresStore) UpsertTreatment(ctx context.Context, treatment *model.Treatment) error {
	data, err := json.Marshal(treatment)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal treatment %s", treatment.GenericName)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO treatments (generic_name, data, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (generic_name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		treatment.GenericName, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert treatment %s", treatment.GenericName)
}

func (s *PostgresStore) ListTrials(ctx context.Context) ([]model.Trial, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data, eligibility, eligibility_version, eligibility_at FROM trials ORDER BY nct_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list trials")
	}
	defer rows.Close()

	return collectTrials(rows)
}

func (s *PostgresStore) GetTrial(ctx context.Context, nctID string) (*model.Trial, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT data, eligibility, eligibility_version, eligibility_at FROM trials WHERE nct_id = $1`,
		nctID,
	)

	trial, err := scanTrial(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get trial %s", nctID)
	}
	return trial, nil
}

func (s *PostgresStore) UpsertTrial(ctx context.Context, trial *model.Trial) error {
	data, err := encodeTrial(trial)
	if err != nil {
		return err
	}

	var elig []byte
	if trial.Eligibility != nil {
		if elig, err = json.Marshal(trial.Eligibility); err != nil {
			return eris.Wrapf(err, "postgres: marshal eligibility %s", trial.NCTID)
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO trials (nct_id, status, relevance, data, eligibility, eligibility_version, eligibility_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		 ON CONFLICT (nct_id) DO UPDATE SET
			status = EXCLUDED.status,
			relevance = EXCLUDED.relevance,
			data = EXCLUDED.data,
			eligibility = COALESCE(EXCLUDED.eligibility, trials.eligibility),
			eligibility_version = COALESCE(EXCLUDED.eligibility_version, trials.eligibility_version),
			eligibility_at = COALESCE(EXCLUDED.eligibility_at, trials.eligibility_at),
			updated_at = EXCLUDED.updated_at`,
		trial.NCTID, trial.Status, trial.Relevance, data, elig, trial.EligibilityVersion, trial.EligibilityAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert trial %s", trial.NCTID)
}

func (s *PostgresStore) ListTrialsMissingEligibility(ctx context.Context, version string, limit int) ([]model.Trial, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT data, eligibility, eligibility_version, eligibility_at FROM trials
		 WHERE coalesce(data->>'eligibility_criteria', '') <> ''
		   AND (eligibility IS NULL OR eligibility_version IS DISTINCT FROM $1)
		 ORDER BY nct_id LIMIT $2`,
		version, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list trials missing eligibility")
	}
	defer rows.Close()

	return collectTrials(rows)
}

func (s *PostgresStore) UpdateTrialEligibility(ctx context.Context, nctID string, elig *model.StructuredEligibility, version string) error {
	data, err := json.Marshal(elig)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal eligibility %s", nctID)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE trials SET eligibility = $1, eligibility_version = $2, eligibility_at = $3 WHERE nct_id = $4`,
		data, version, time.Now().UTC(), nctID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update eligibility %s", nctID)
	}
	return checkTagAffected(tag, "trial", nctID)
}

func collectTrials(rows pgx.Rows) ([]model.Trial, error) {
	var trials []model.Trial
	for rows.Next() {
		trial, err := scanTrial(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan trial")
		}
		trials = append(trials, *trial)
	}
	return trials, eris.Wrap(rows.Err(), "postgres: iterate trials")
}

func scanTrial(row pgx.Row) (*model.Trial, error) {
	var (
		data        []byte
		elig        []byte
		version     *string
		extractedAt *time.Time
	)
	if err := row.Scan(&data, &elig, &version, &extractedAt); err != nil {
		return nil, err
	}
	return decodeTrial(data, elig, version, extractedAt)
}

func checkTagAffected(tag pgconn.CommandTag, kind, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: %s %s not found", kind, id)
	}
	return nil
}
