// Package shelf keeps named routine records and import reports in a local
// SQLite database.
package shelf

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/claude/routinecopy/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned for a name with no saved routine.
var ErrNotFound = errors.New("routine not on shelf")

// Entry describes a saved routine without its body.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Exercises int       `json:"exercises"`
	SavedAt   time.Time `json:"saved_at"`
}

// Shelf wraps the SQLite database.
type Shelf struct {
	db *sql.DB
}

// Open opens (or creates) the shelf at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Shelf, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating shelf dir %s: %w", dir, err)
		}
	}
	if err := RunMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening shelf: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging shelf: %w", err)
	}
	return &Shelf{db: db}, nil
}

// RunMigrations applies all pending embedded migrations to the database at path.
func RunMigrations(path string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Shelf) Close() error {
	return s.db.Close()
}

// Save stores r under name, replacing any routine saved under the same name.
// A replaced routine keeps its id.
func (s *Shelf) Save(ctx context.Context, name string, r *models.Routine) (Entry, error) {
	if name == "" {
		return Entry{}, fmt.Errorf("saving routine: name is required")
	}
	body, err := models.EncodeRoutine(r)
	if err != nil {
		return Entry{}, err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO routines (id, name, title, exercises, body, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		 title = excluded.title, exercises = excluded.exercises,
		 body = excluded.body, saved_at = excluded.saved_at`,
		uuid.NewString(), name, r.Title, len(r.Exercises), string(body), now.Format(timeLayout),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("saving routine %q: %w", name, err)
	}
	e, _, err := s.get(ctx, name)
	return e, err
}

// List returns every saved routine, most recently saved first.
func (s *Shelf) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, title, exercises, saved_at FROM routines ORDER BY saved_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("listing routines: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var id, saved string
		if err := rows.Scan(&id, &e.Name, &e.Title, &e.Exercises, &saved); err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		if e.ID, e.SavedAt, err = parseRow(id, saved); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the routine saved under name.
func (s *Shelf) Get(ctx context.Context, name string) (*models.Routine, Entry, error) {
	e, body, err := s.get(ctx, name)
	if err != nil {
		return nil, Entry{}, err
	}
	r, err := models.DecodeRoutine([]byte(body))
	if err != nil {
		return nil, Entry{}, fmt.Errorf("decoding routine %q: %w", name, err)
	}
	return r, e, nil
}

func (s *Shelf) get(ctx context.Context, name string) (Entry, string, error) {
	var e Entry
	var id, saved, body string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, title, exercises, saved_at, body FROM routines WHERE name = ?`, name,
	).Scan(&id, &e.Name, &e.Title, &e.Exercises, &saved, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, "", fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Entry{}, "", fmt.Errorf("loading routine %q: %w", name, err)
	}
	if e.ID, e.SavedAt, err = parseRow(id, saved); err != nil {
		return Entry{}, "", err
	}
	return e, body, nil
}

// Delete removes the routine saved under name.
func (s *Shelf) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM routines WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting routine %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting routine %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return nil
}

func parseRow(id, saved string) (uuid.UUID, time.Time, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("parsing routine id: %w", err)
	}
	t, err := time.Parse(timeLayout, saved)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("parsing saved_at: %w", err)
	}
	return u, t, nil
}
