// Package store persists correction runs and their attempts to sqlite
// so past runs can be listed and replayed.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/planwright/planwright/internal/engine"
	"github.com/planwright/planwright/internal/plan"
)

type RunStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// RunRecord is a persisted run as listed back to callers.
type RunRecord struct {
	ID           int64              `json:"id"`
	Requirements *plan.Requirements `json:"requirements"`
	Passed       bool               `json:"passed"`
	Iterations   int                `json:"iterations"`
	BestScore    *int               `json:"best_score,omitempty"`
	BestLayout   *plan.Layout       `json:"best_layout,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

func NewRunStore(dbPath string) (*RunStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	store := &RunStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *RunStore) initSchema() error {
	schema := GetSchema()

	lines := strings.Split(schema, "\n")
	var cleanLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") && trimmed != "" {
			cleanLines = append(cleanLines, line)
		}
	}
	cleanSchema := strings.Join(cleanLines, "\n")

	if _, err := s.db.Exec(cleanSchema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, GetSchemaVersion())
	return nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a finished run with all of its attempts. The run row
// and attempt rows are written in one transaction.
func (s *RunStore) SaveRun(req *plan.Requirements, res *engine.RunResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshal requirements: %w", err)
	}

	var bestScore sql.NullInt64
	var bestLayout sql.NullString
	if res.Best != nil && res.Best.Result != nil {
		bestScore = sql.NullInt64{Int64: int64(res.Best.Result.Score), Valid: true}
		if res.Best.Layout != nil {
			data, err := json.Marshal(res.Best.Layout)
			if err != nil {
				return 0, fmt.Errorf("marshal best layout: %w", err)
			}
			bestLayout = sql.NullString{String: string(data), Valid: true}
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO runs (requirements, passed, iterations, best_score, best_layout, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(reqJSON), boolInt(res.Passed), res.Iterations, bestScore, bestLayout, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get run id: %w", err)
	}

	for _, a := range res.Attempts {
		if err := insertAttempt(tx, runID, &a); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

func insertAttempt(tx *sql.Tx, runID int64, a *engine.Attempt) error {
	var score sql.NullInt64
	var passed int
	var layout, feedback sql.NullString

	if a.Result != nil {
		score = sql.NullInt64{Int64: int64(a.Result.Score), Valid: true}
		passed = boolInt(a.Result.Passed)
		feedback = sql.NullString{String: a.Result.Feedback, Valid: true}
	}
	if a.Layout != nil {
		data, err := json.Marshal(a.Layout)
		if err != nil {
			return fmt.Errorf("marshal attempt layout: %w", err)
		}
		layout = sql.NullString{String: string(data), Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO attempts (run_id, iteration, score, passed, layout, feedback, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, a.Iteration, score, passed, layout, feedback, nullString(a.Err))
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// GetRun loads one run by id. Returns (nil, nil) when the id is unknown.
func (s *RunStore) GetRun(id int64) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, requirements, passed, iterations, best_score, best_layout, created_at
		FROM runs WHERE id = ?
	`, id)

	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, requirements, passed, iterations, best_score, best_layout, created_at
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	rec := &RunRecord{}
	var reqJSON string
	var passed int
	var bestScore sql.NullInt64
	var bestLayout sql.NullString

	if err := row.Scan(&rec.ID, &reqJSON, &passed, &rec.Iterations, &bestScore, &bestLayout, &rec.CreatedAt); err != nil {
		return nil, err
	}

	rec.Passed = passed != 0
	rec.Requirements = &plan.Requirements{}
	if err := json.Unmarshal([]byte(reqJSON), rec.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements for run %d: %w", rec.ID, err)
	}
	if bestScore.Valid {
		v := int(bestScore.Int64)
		rec.BestScore = &v
	}
	if bestLayout.Valid {
		layout, err := plan.DecodeLayout([]byte(bestLayout.String))
		if err != nil {
			return nil, fmt.Errorf("decode layout for run %d: %w", rec.ID, err)
		}
		rec.BestLayout = layout
	}
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
