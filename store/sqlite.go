package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/invaders/neural"
	"github.com/pthm-cable/invaders/telemetry"
)

// SQLiteStore archives runs in a single SQLite file. Rows are JSON payloads
// keyed by run and generation so the schema survives metric column changes.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, profile, observation, seed, generations, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile = excluded.profile,
			observation = excluded.observation,
			seed = excluded.seed,
			generations = excluded.generations,
			started_at = excluded.started_at
	`, run.ID, run.Profile, run.Observation, run.Seed, run.Generations, run.StartedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	run := Run{ID: id}
	var started string
	err = db.QueryRowContext(ctx, `
		SELECT profile, observation, seed, generations, started_at FROM runs WHERE id = ?
	`, id).Scan(&run.Profile, &run.Observation, &run.Seed, &run.Generations, &started)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}

	run.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, false, fmt.Errorf("parse start time of run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, runID string, row telemetry.GenerationMetricsRow) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := encode(row)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			payload = excluded.payload
	`, runID, row.Generation, payload)
	return err
}

func (s *SQLiteStore) GetGenerations(ctx context.Context, runID string) ([]telemetry.GenerationMetricsRow, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM generations WHERE run_id = ? ORDER BY generation
	`, runID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var out []telemetry.GenerationMetricsRow
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, false, err
		}
		var row telemetry.GenerationMetricsRow
		if err := decode(payload, &row); err != nil {
			return nil, false, fmt.Errorf("decode generation of run %s: %w", runID, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, len(out) > 0, nil
}

func (s *SQLiteStore) SaveGenome(ctx context.Context, runID string, rec *neural.GenomeRecord) error {
	return s.savePayload(ctx, "genomes", runID, rec)
}

func (s *SQLiteStore) GetGenome(ctx context.Context, runID string) (*neural.GenomeRecord, bool, error) {
	var rec neural.GenomeRecord
	ok, err := s.loadPayload(ctx, "genomes", runID, &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &rec, true, nil
}

func (s *SQLiteStore) SaveBenchmark(ctx context.Context, runID string, bench telemetry.BenchmarkMetrics) error {
	return s.savePayload(ctx, "benchmarks", runID, bench)
}

func (s *SQLiteStore) GetBenchmark(ctx context.Context, runID string) (telemetry.BenchmarkMetrics, bool, error) {
	var bench telemetry.BenchmarkMetrics
	ok, err := s.loadPayload(ctx, "benchmarks", runID, &bench)
	return bench, ok, err
}

// savePayload upserts a per-run JSON payload. table is always a package constant.
func (s *SQLiteStore) savePayload(ctx context.Context, table, runID string, v any) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := encode(v)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO `+table+` (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	return err
}

func (s *SQLiteStore) loadPayload(ctx context.Context, table, runID string, v any) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM `+table+` WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	if err := decode(payload, v); err != nil {
		return false, fmt.Errorf("decode %s of run %s: %w", table, runID, err)
	}
	return true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			observation TEXT NOT NULL,
			seed INTEGER NOT NULL,
			generations INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS genomes (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS benchmarks (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
