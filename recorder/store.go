// Package recorder captures diagnostic streams into SQLite so runs can be
// compared after the fact. Each capture is a run with its own UUID; every
// Pred/True line becomes a sample row.
package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sbl8/tinysine/diag"
)

// Run describes one capture.
type Run struct {
	ID      uuid.UUID
	Source  string
	Started time.Time
	Fatal   string
}

// Summary aggregates the samples of a run.
type Summary struct {
	Run         Run
	Count       int64
	MaxAbsError float64
	RMSE        float64
}

// Store is a SQLite-backed sample store. Safe for concurrent use.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Init opens the database and creates the schema.
func (s *Store) Init(ctx context.Context) error {
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

// StartRun registers a new run and returns it.
func (s *Store) StartRun(ctx context.Context, source string) (Run, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, err
	}

	run := Run{ID: uuid.New(), Source: source, Started: time.Now().UTC()}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, source, started_at, fatal)
		VALUES (?, ?, ?, '')
	`, run.ID.String(), run.Source, run.Started.Format(time.RFC3339Nano))
	if err != nil {
		return Run{}, fmt.Errorf("start run: %w", err)
	}
	return run, nil
}

// Record stores sample seq of a run.
func (s *Store) Record(ctx context.Context, runID uuid.UUID, seq int64, sample diag.Sample) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO samples (run_id, seq, pred, truth, abs_error)
		VALUES (?, ?, ?, ?, ?)
	`, runID.String(), seq, sample.Pred, sample.True, sample.Error())
	return err
}

// RecordFatal marks a run as ended by a fatal report.
func (s *Store) RecordFatal(ctx context.Context, runID uuid.UUID, cause string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `UPDATE runs SET fatal = ? WHERE id = ?`, cause, runID.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	var (
		run     Run
		id      string
		started string
	)
	err = db.QueryRowContext(ctx, `SELECT id, source, started_at, fatal FROM runs WHERE id = ?`, runID.String()).
		Scan(&id, &run.Source, &started, &run.Fatal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, false, fmt.Errorf("decode run id %q: %w", id, err)
	}
	if run.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, false, fmt.Errorf("decode start time of run %s: %w", id, err)
	}
	return run, true, nil
}

// Runs lists run IDs in the order they were started.
func (s *Store) Runs(ctx context.Context) ([]uuid.UUID, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("decode run id %q: %w", id, err)
		}
		ids = append(ids, parsed)
	}
	return ids, rows.Err()
}

// Summary computes the sample count and error statistics of a run.
func (s *Store) Summary(ctx context.Context, runID uuid.UUID) (Summary, error) {
	run, ok, err := s.GetRun(ctx, runID)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		return Summary{}, fmt.Errorf("run %s not found", runID)
	}
	db, err := s.getDB()
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Run: run}
	var sumSq float64
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(abs_error), 0), COALESCE(SUM(abs_error * abs_error), 0)
		FROM samples WHERE run_id = ?
	`, runID.String()).Scan(&sum.Count, &sum.MaxAbsError, &sumSq)
	if err != nil {
		return Summary{}, err
	}
	if sum.Count > 0 {
		sum.RMSE = math.Sqrt(sumSq / float64(sum.Count))
	}
	return sum, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			fatal TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			pred REAL NOT NULL,
			truth REAL NOT NULL,
			abs_error REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}
