package mcp

import (
	"context"
	"fmt"

	"github.com/claude/routinecopy/internal/engine"
	"github.com/claude/routinecopy/internal/importer"
	"github.com/claude/routinecopy/internal/models"
	"github.com/claude/routinecopy/internal/shelf"
)

// Backend abstracts where operations run. Local (an engine attached to a
// browser on this machine) and HTTPClient (a remote routinecopy server)
// both satisfy it.
type Backend interface {
	Extract(ctx context.Context) (string, error)
	Import(ctx context.Context, text string) (*importer.Report, error)
	Library(ctx context.Context) ([]models.LibraryEntry, error)
	ListShelf(ctx context.Context) ([]shelf.Entry, error)
	GetShelf(ctx context.Context, name string) (string, shelf.Entry, error)
	SaveShelf(ctx context.Context, name, text string) (shelf.Entry, error)
	ImportShelf(ctx context.Context, name string) (*importer.Report, error)
	Runs(ctx context.Context, limit int) ([]shelf.Run, error)
}

// Local runs operations in-process.
type Local struct {
	Engine *engine.Engine
	Shelf  *shelf.Shelf
}

// Compile-time checks: both backends satisfy Backend.
var (
	_ Backend = (*Local)(nil)
	_ Backend = (*HTTPClient)(nil)
)

func (l *Local) Extract(ctx context.Context) (string, error) {
	return l.Engine.Extract(ctx)
}

func (l *Local) Import(ctx context.Context, text string) (*importer.Report, error) {
	return l.Engine.Import(ctx, text)
}

func (l *Local) Library(ctx context.Context) ([]models.LibraryEntry, error) {
	return l.Engine.Library(ctx)
}

func (l *Local) ListShelf(ctx context.Context) ([]shelf.Entry, error) {
	return l.Shelf.List(ctx)
}

func (l *Local) GetShelf(ctx context.Context, name string) (string, shelf.Entry, error) {
	r, entry, err := l.Shelf.Get(ctx, name)
	if err != nil {
		return "", shelf.Entry{}, err
	}
	text, err := models.EncodeRoutine(r)
	if err != nil {
		return "", shelf.Entry{}, err
	}
	return string(text), entry, nil
}

func (l *Local) SaveShelf(ctx context.Context, name, text string) (shelf.Entry, error) {
	r, err := models.DecodeRoutine([]byte(text))
	if err != nil {
		return shelf.Entry{}, err
	}
	return l.Shelf.Save(ctx, name, r)
}

func (l *Local) ImportShelf(ctx context.Context, name string) (*importer.Report, error) {
	r, _, err := l.Shelf.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", name, err)
	}
	return l.Engine.ImportRoutine(ctx, r)
}

func (l *Local) Runs(ctx context.Context, limit int) ([]shelf.Run, error) {
	return l.Shelf.Runs(ctx, limit)
}
