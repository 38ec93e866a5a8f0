// Package transport moves serialized routine records between the engine and
// the user: the system clipboard, files, standard streams, and the shelf.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/claude/routinecopy/internal/models"
	"github.com/claude/routinecopy/internal/shelf"
)

// Endpoint is somewhere a routine record can be read from or written to.
type Endpoint interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	String() string
}

// Shelf is the part of the shelf an endpoint needs.
type Shelf interface {
	Save(ctx context.Context, name string, r *models.Routine) (shelf.Entry, error)
	Get(ctx context.Context, name string) (*models.Routine, shelf.Entry, error)
}

// ErrNoShelf is returned for a shelf: target when no shelf is open.
var ErrNoShelf = errors.New("no shelf configured")

// Parse resolves a target string:
//
//	clipboard      the system clipboard
//	-              standard input or output
//	shelf:<name>   a routine saved on the shelf
//	file:<path>    a file; a bare path means the same
func Parse(target string, sh Shelf) (Endpoint, error) {
	switch {
	case target == "" || target == "clipboard":
		return Clipboard{}, nil
	case target == "-":
		return Stdio{In: os.Stdin, Out: os.Stdout}, nil
	case strings.HasPrefix(target, "shelf:"):
		name := strings.TrimPrefix(target, "shelf:")
		if name == "" {
			return nil, fmt.Errorf("shelf target needs a name")
		}
		if sh == nil {
			return nil, ErrNoShelf
		}
		return ShelfEntry{Shelf: sh, Name: name}, nil
	default:
		return File{Path: strings.TrimPrefix(target, "file:")}, nil
	}
}

// Clipboard is the system clipboard.
type Clipboard struct{}

var (
	clipboardRead  = clipboard.ReadAll
	clipboardWrite = clipboard.WriteAll
)

func (Clipboard) Read(context.Context) ([]byte, error) {
	s, err := clipboardRead()
	if err != nil {
		return nil, fmt.Errorf("reading clipboard: %w", err)
	}
	return []byte(s), nil
}

func (Clipboard) Write(_ context.Context, data []byte) error {
	if err := clipboardWrite(string(data)); err != nil {
		return fmt.Errorf("writing clipboard: %w", err)
	}
	return nil
}

func (Clipboard) String() string { return "clipboard" }

// File is a routine record on disk.
type File struct {
	Path string
}

func (f File) Read(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	return data, nil
}

func (f File) Write(_ context.Context, data []byte) error {
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", f.Path, err)
	}
	return nil
}

func (f File) String() string { return f.Path }

// Stdio reads from In and writes to Out.
type Stdio struct {
	In  io.Reader
	Out io.Writer
}

func (s Stdio) Read(context.Context) ([]byte, error) {
	data, err := io.ReadAll(s.In)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}

func (s Stdio) Write(_ context.Context, data []byte) error {
	if _, err := fmt.Fprintf(s.Out, "%s\n", bytes.TrimRight(data, "\n")); err != nil {
		return fmt.Errorf("writing stdout: %w", err)
	}
	return nil
}

func (Stdio) String() string { return "-" }

// ShelfEntry is a named routine on the shelf. Writes must hold a valid record.
type ShelfEntry struct {
	Shelf Shelf
	Name  string
}

func (e ShelfEntry) Read(ctx context.Context) ([]byte, error) {
	r, _, err := e.Shelf.Get(ctx, e.Name)
	if err != nil {
		return nil, err
	}
	return models.EncodeRoutine(r)
}

func (e ShelfEntry) Write(ctx context.Context, data []byte) error {
	r, err := models.DecodeRoutine(data)
	if err != nil {
		return err
	}
	_, err = e.Shelf.Save(ctx, e.Name, r)
	return err
}

func (e ShelfEntry) String() string { return "shelf:" + e.Name }
