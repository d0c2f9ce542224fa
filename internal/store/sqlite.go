package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/trialscout/trialscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the default
// driver for local development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS treatments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	generic_name TEXT NOT NULL UNIQUE,
	data         TEXT NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS trials (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	nct_id              TEXT NOT NULL UNIQUE,
	status              TEXT NOT NULL DEFAULT '',
	relevance           TEXT NOT NULL DEFAULT '',
	data                TEXT NOT NULL,
	eligibility         TEXT,
	eligibility_version TEXT,
	eligibility_at      DATETIME,
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_trials_status ON trials(status);
CREATE INDEX IF NOT EXISTS idx_trials_relevance ON trials(relevance);
CREATE INDEX IF NOT EXISTS idx_trials_eligibility_version ON trials(eligibility_version);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListTreatments(ctx context.Context) ([]model.Treatment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM treatments ORDER BY generic_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list treatments")
	}
	defer rows.Close()

	var treatments []model.Treatment
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan treatment")
		}
		t, err := decodeTreatment(data)
		if err != nil {
			return nil, err
		}
		treatments = append(treatments, *t)
	}
	return treatments, eris.Wrap(rows.Err(), "sqlite: list treatments iterate")
}

func (s *SQLiteStore) UpsertTreatment(ctx context.Context, treatment *model.Treatment) error {
	data, err := json.Marshal(treatment)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal treatment %s", treatment.GenericName)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO treatments (generic_name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (generic_name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		treatment.GenericName, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert treatment %s", treatment.GenericName)
}

func (s *SQLiteStore) ListTrials(ctx context.Context) ([]model.Trial, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data, eligibility, eligibility_version, eligibility_at FROM trials ORDER BY nct_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list trials")
	}
	defer rows.Close()

	return collectSQLiteTrials(rows)
}

func (s *SQLiteStore) GetTrial(ctx context.Context, nctID string) (*model.Trial, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data, eligibility, eligibility_version, eligibility_at FROM trials WHERE nct_id = ?`,
		nctID,
	)

	trial, err := scanSQLiteTrial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get trial %s", nctID)
	}
	return trial, nil
}

func (s *SQLiteStore) UpsertTrial(ctx context.Context, trial *model.Trial) error {
	data, err := encodeTrial(trial)
	if err != nil {
		return err
	}

	var elig any
	if trial.Eligibility != nil {
		raw, err := json.Marshal(trial.Eligibility)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal eligibility %s", trial.NCTID)
		}
		elig = string(raw)
	}
	var version any
	if trial.EligibilityVersion != "" {
		version = trial.EligibilityVersion
	}
	var extractedAt any
	if trial.EligibilityAt != nil {
		extractedAt = *trial.EligibilityAt
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trials (nct_id, status, relevance, data, eligibility, eligibility_version, eligibility_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (nct_id) DO UPDATE SET
			status = excluded.status,
			relevance = excluded.relevance,
			data = excluded.data,
			eligibility = coalesce(excluded.eligibility, trials.eligibility),
			eligibility_version = coalesce(excluded.eligibility_version, trials.eligibility_version),
			eligibility_at = coalesce(excluded.eligibility_at, trials.eligibility_at),
			updated_at = excluded.updated_at`,
		trial.NCTID, trial.Status, trial.Relevance, string(data), elig, version, extractedAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert trial %s", trial.NCTID)
}

func (s *SQLiteStore) ListTrialsMissingEligibility(ctx context.Context, version string, limit int) ([]model.Trial, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data, eligibility, eligibility_version, eligibility_at FROM trials
		 WHERE coalesce(json_extract(data, '$.eligibility_criteria'), '') <> ''
		   AND (eligibility IS NULL OR eligibility_version IS NOT ?)
		 ORDER BY nct_id LIMIT ?`,
		version, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list trials missing eligibility")
	}
	defer rows.Close()

	return collectSQLiteTrials(rows)
}

func (s *SQLiteStore) UpdateTrialEligibility(ctx context.Context, nctID string, elig *model.StructuredEligibility, version string) error {
	data, err := json.Marshal(elig)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal eligibility %s", nctID)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE trials SET eligibility = ?, eligibility_version = ?, eligibility_at = ? WHERE nct_id = ?`,
		string(data), version, time.Now().UTC(), nctID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update eligibility %s", nctID)
	}
	return checkRowsAffected(res, "trial", nctID)
}

type sqliteRow interface {
	Scan(dest ...any) error
}

func collectSQLiteTrials(rows *sql.Rows) ([]model.Trial, error) {
	var trials []model.Trial
	for rows.Next() {
		trial, err := scanSQLiteTrial(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan trial")
		}
		trials = append(trials, *trial)
	}
	return trials, eris.Wrap(rows.Err(), "sqlite: iterate trials")
}

func scanSQLiteTrial(row sqliteRow) (*model.Trial, error) {
	var (
		data        []byte
		elig        sql.NullString
		version     sql.NullString
		extractedAt sql.NullTime
	)
	if err := row.Scan(&data, &elig, &version, &extractedAt); err != nil {
		return nil, err
	}

	var eligBytes []byte
	if elig.Valid {
		eligBytes = []byte(elig.String)
	}
	var versionPtr *string
	if version.Valid {
		versionPtr = &version.String
	}
	var atPtr *time.Time
	if extractedAt.Valid {
		atPtr = &extractedAt.Time
	}
	return decodeTrial(data, eligBytes, versionPtr, atPtr)
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}
