package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/buildtrends/internal/census"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, creating parent
// directories as needed, and configures WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "sqlite: create cache dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS acs_cache (
	vintage    INTEGER PRIMARY KEY,
	rows       TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	vintage       INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	block_groups  INTEGER NOT NULL DEFAULT 0,
	mismatches    INTEGER NOT NULL DEFAULT 0,
	artifact_path TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	started_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_vintage ON runs(vintage);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCachedACS(ctx context.Context, vintage int) ([]census.Row, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT rows FROM acs_cache WHERE vintage = ?`, vintage,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: get acs cache %d", vintage)
	}

	var rows []census.Row
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: decode acs cache %d", vintage)
	}
	return rows, true, nil
}

func (s *SQLiteStore) SetCachedACS(ctx context.Context, vintage int, rows []census.Row) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode acs rows")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO acs_cache (vintage, rows, row_count, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (vintage) DO UPDATE SET
			rows = excluded.rows,
			row_count = excluded.row_count,
			fetched_at = excluded.fetched_at`,
		vintage, string(payload), len(rows), time.Now().UTC())
	return eris.Wrapf(err, "sqlite: set acs cache %d", vintage)
}

func (s *SQLiteStore) ClearACSCache(ctx context.Context, vintage int) (int, error) {
	var (
		res sql.Result
		err error
	)
	if vintage == 0 {
		res, err = s.db.ExecContext(ctx, `DELETE FROM acs_cache`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM acs_cache WHERE vintage = ?`, vintage)
	}
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear acs cache")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) CacheStatus(ctx context.Context) ([]CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vintage, row_count, fetched_at FROM acs_cache ORDER BY vintage`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: cache status")
	}
	defer rows.Close() //nolint:errcheck

	var entries []CacheEntry
	for rows.Next() {
		var e CacheEntry
		if err := rows.Scan(&e.Vintage, &e.Rows, &e.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cache entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate cache entries")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, vintage int) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Vintage:   vintage,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, vintage, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Vintage, run.Status, run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result RunResult) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, block_groups = ?, mismatches = ?,
			artifact_path = ?, finished_at = ?
		WHERE id = ?`,
		RunStatusCompleted, result.BlockGroups, result.Mismatches,
		result.ArtifactPath, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		RunStatusFailed, message, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vintage, status, block_groups, mismatches, artifact_path, error,
			started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Vintage, &r.Status, &r.BlockGroups,
			&r.Mismatches, &r.ArtifactPath, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
