// Package engine exposes the two caller-facing operations, extract and
// import, over a leased driver session. Operations are serialized: only one
// of them drives the target at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/routinecopy/internal/driver"
	"github.com/claude/routinecopy/internal/extractor"
	"github.com/claude/routinecopy/internal/importer"
	"github.com/claude/routinecopy/internal/models"
	"github.com/claude/routinecopy/internal/notify"
)

// RunRecorder stores finished import reports on behalf of the caller.
type RunRecorder interface {
	RecordRun(ctx context.Context, rep *importer.Report) error
}

// Options configures an Engine. Zero values are replaced with defaults,
// except Runs: a nil recorder records nothing.
type Options struct {
	Timings driver.Timings
	Notify  notify.Service
	Runs    RunRecorder
}

// Engine runs extracts and imports against the target.
type Engine struct {
	lease   *driver.Lease
	timings driver.Timings
	log     *slog.Logger
	notify  notify.Service
	runs    RunRecorder

	mu sync.Mutex
}

// New creates an Engine that attaches to the target through lease.
func New(lease *driver.Lease, opts Options, log *slog.Logger) *Engine {
	if opts.Timings == (driver.Timings{}) {
		opts.Timings = driver.DefaultTimings()
	}
	if opts.Notify == nil {
		opts.Notify = notify.Noop()
	}
	return &Engine{
		lease:   lease,
		timings: opts.Timings,
		log:     log,
		notify:  opts.Notify,
		runs:    opts.Runs,
	}
}

// Extract reads the routine shown by the target and returns its portable text.
func (e *Engine) Extract(ctx context.Context) (string, error) {
	r, err := e.ExtractRoutine(ctx)
	if err != nil {
		return "", err
	}
	data, err := models.EncodeRoutine(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExtractRoutine reads the routine shown by the target.
func (e *Engine) ExtractRoutine(ctx context.Context) (*models.Routine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var r *models.Routine
	err := e.withSession(ctx, func(s driver.Session) error {
		var err error
		r, err = extractor.New(s, e.log).Routine(ctx)
		return err
	})
	if err != nil {
		e.notifyError(ctx, err, "extract")
		return nil, fmt.Errorf("extracting routine: %w", err)
	}
	e.log.Info("routine extracted", "title", r.Title, "exercises", len(r.Exercises))
	if err := e.notify.NotifyExtracted(ctx, r.Title, len(r.Exercises)); err != nil {
		e.log.Warn("notification failed", "error", err)
	}
	return r, nil
}

// Library lists the target's exercise library.
func (e *Engine) Library(ctx context.Context) ([]models.LibraryEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var entries []models.LibraryEntry
	err := e.withSession(ctx, func(s driver.Session) error {
		var err error
		entries, err = extractor.New(s, e.log).Library(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing library: %w", err)
	}
	return entries, nil
}

// Import decodes text and replays it into the target. Malformed text is the
// only error that stops an import, and it is reported before anything is
// attached or mutated.
func (e *Engine) Import(ctx context.Context, text string) (*importer.Report, error) {
	r, err := models.DecodeRoutine([]byte(text))
	if err != nil {
		e.notifyError(ctx, err, "import")
		return nil, err
	}
	return e.ImportRoutine(ctx, r)
}

// ImportRoutine replays an already decoded routine.
func (e *Engine) ImportRoutine(ctx context.Context, r *models.Routine) (*importer.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.lease.Acquire(ctx)
	if err != nil {
		e.notifyError(ctx, err, "import")
		return nil, err
	}
	rep := importer.New(s, e.timings, e.log).Import(ctx, r)

	// The import itself cannot be cancelled, so neither can its bookkeeping.
	ctx = context.WithoutCancel(ctx)
	if e.runs != nil {
		if err := e.runs.RecordRun(ctx, rep); err != nil {
			e.log.Warn("recording import run failed", "run_id", rep.RunID, "error", err)
		}
	}
	if err := e.notify.NotifyImportCompleted(ctx, rep); err != nil {
		e.log.Warn("notification failed", "error", err)
	}
	return rep, nil
}

// Close releases the driver session.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lease.Release()
}

// withSession runs fn on the leased session. A failure other than a missing
// element renews the session once and retries.
func (e *Engine) withSession(ctx context.Context, fn func(driver.Session) error) error {
	s, err := e.lease.Acquire(ctx)
	if err != nil {
		return err
	}
	err = fn(s)
	if err == nil || errors.Is(err, driver.ErrNotFound) || ctx.Err() != nil {
		return err
	}

	e.log.Warn("driver session failed, reattaching", "error", err)
	s, rerr := e.lease.Renew(ctx)
	if rerr != nil {
		return errors.Join(err, rerr)
	}
	return fn(s)
}

func (e *Engine) notifyError(ctx context.Context, err error, label string) {
	if nerr := e.notify.NotifyError(context.WithoutCancel(ctx), err, label); nerr != nil {
		e.log.Warn("notification failed", "error", nerr)
	}
}
