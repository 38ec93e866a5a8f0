package shelf

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/routinecopy/internal/importer"
)

// ErrRunNotFound is returned for an unknown import run.
var ErrRunNotFound = errors.New("import run not found")

// Run summarizes one recorded import.
type Run struct {
	RunID      uuid.UUID `json:"run_id"`
	Title      string    `json:"title"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Applied    int       `json:"applied"`
	NotFound   int       `json:"not_found"`
	Partial    int       `json:"partial"`
	Retries    int       `json:"retries"`
}

// RecordRun stores an import report.
func (s *Shelf) RecordRun(ctx context.Context, rep *importer.Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	applied, notFound, partial := rep.Counts()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_runs (run_id, title, started_at, finished_at, applied, not_found, partial, retries, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID.String(), rep.Title,
		rep.StartedAt.UTC().Format(timeLayout), rep.FinishedAt.UTC().Format(timeLayout),
		applied, notFound, partial, rep.Retries, string(body),
	)
	if err != nil {
		return fmt.Errorf("recording import run %s: %w", rep.RunID, err)
	}
	return nil
}

// Runs returns the most recent imports, newest first.
func (s *Shelf) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, title, started_at, finished_at, applied, not_found, partial, retries
		 FROM import_runs
		 ORDER BY started_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var id, started, finished string
		if err := rows.Scan(&id, &r.Title, &started, &finished, &r.Applied, &r.NotFound, &r.Partial, &r.Retries); err != nil {
			return nil, fmt.Errorf("scanning import run: %w", err)
		}
		if r.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing run id: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Report returns the full stored report of one import.
func (s *Shelf) Report(ctx context.Context, runID uuid.UUID) (*importer.Report, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM import_runs WHERE run_id = ?`, runID.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading import run %s: %w", runID, err)
	}
	var rep importer.Report
	if err := json.Unmarshal([]byte(body), &rep); err != nil {
		return nil, fmt.Errorf("decoding import run %s: %w", runID, err)
	}
	return &rep, nil
}
