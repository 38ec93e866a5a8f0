package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/routinecopy/internal/importer"
	"github.com/claude/routinecopy/internal/models"
	"github.com/claude/routinecopy/internal/shelf"
)

const armDay = `{"title":"Arms","exercises":[{"name":"Curl","note":"","rest":"45s","sets":[],"supersetId":null}]}`

// fakeBackend records calls and returns canned results.
type fakeBackend struct {
	saved     map[string]string
	imported  []string
	failWith  error
	runsLimit int
}

func newFake() *fakeBackend {
	return &fakeBackend{saved: map[string]string{}}
}

func (f *fakeBackend) Extract(context.Context) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	return armDay, nil
}

func (f *fakeBackend) Import(_ context.Context, text string) (*importer.Report, error) {
	r, err := models.DecodeRoutine([]byte(text))
	if err != nil {
		return nil, err
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.imported = append(f.imported, r.Title)
	rep := &importer.Report{RunID: uuid.New(), Title: r.Title, Links: []importer.LinkResult{}, Problems: []importer.Problem{}}
	for _, ex := range r.Exercises {
		rep.Exercises = append(rep.Exercises, importer.ExerciseReport{Name: ex.Name, Outcome: importer.OutcomeApplied, Placed: true})
	}
	return rep, nil
}

func (f *fakeBackend) Library(context.Context) ([]models.LibraryEntry, error) {
	return []models.LibraryEntry{{Name: "Curl", Muscle: "Biceps"}}, nil
}

func (f *fakeBackend) ListShelf(context.Context) ([]shelf.Entry, error) {
	var out []shelf.Entry
	for name := range f.saved {
		out = append(out, shelf.Entry{Name: name})
	}
	return out, nil
}

func (f *fakeBackend) GetShelf(_ context.Context, name string) (string, shelf.Entry, error) {
	text, ok := f.saved[name]
	if !ok {
		return "", shelf.Entry{}, fmt.Errorf("%q: %w", name, shelf.ErrNotFound)
	}
	return text, shelf.Entry{Name: name}, nil
}

func (f *fakeBackend) SaveShelf(_ context.Context, name, text string) (shelf.Entry, error) {
	if _, err := models.DecodeRoutine([]byte(text)); err != nil {
		return shelf.Entry{}, err
	}
	f.saved[name] = text
	return shelf.Entry{Name: name}, nil
}

func (f *fakeBackend) ImportShelf(ctx context.Context, name string) (*importer.Report, error) {
	text, _, err := f.GetShelf(ctx, name)
	if err != nil {
		return nil, err
	}
	return f.Import(ctx, text)
}

func (f *fakeBackend) Runs(_ context.Context, limit int) ([]shelf.Run, error) {
	f.runsLimit = limit
	return []shelf.Run{}, nil
}

func newHandlers(b Backend) *handlers {
	return &handlers{b: b, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestExtractRoutineSaves verifies extract returns the portable text and
// stores it when save_as is given.
func TestExtractRoutineSaves(t *testing.T) {
	b := newFake()
	h := newHandlers(b)

	res, err := h.extractRoutine(context.Background(), callReq(map[string]any{"save_as": "arms"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != armDay {
		t.Errorf("text = %s", got)
	}
	if b.saved["arms"] != armDay {
		t.Error("routine not saved")
	}
}

func TestExtractRoutineFailure(t *testing.T) {
	b := newFake()
	b.failWith = errors.New("no browser")
	res, err := newHandlers(b).extractRoutine(context.Background(), callReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "no browser") {
		t.Errorf("want tool error mentioning the cause, got %+v", res)
	}
}

func TestImportRoutine(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{"missing argument", nil, "routine parameter is required"},
		{"malformed", map[string]any{"routine": `{"title":"x"}`}, "malformed routine"},
		{"valid", map[string]any{"routine": armDay}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFake()
			res, err := newHandlers(b).importRoutine(context.Background(), callReq(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			text := resultText(t, res)
			if tt.wantErr != "" {
				if !res.IsError || !strings.Contains(text, tt.wantErr) {
					t.Errorf("got %q, want error containing %q", text, tt.wantErr)
				}
				if len(b.imported) != 0 {
					t.Error("backend import ran")
				}
				return
			}
			if res.IsError {
				t.Fatalf("tool error: %s", text)
			}
			if !strings.Contains(text, `"outcome":"placed-and-detailed"`) {
				t.Errorf("report = %s", text)
			}
		})
	}
}

// TestShelfTools verifies save, get and import of a saved routine.
func TestShelfTools(t *testing.T) {
	b := newFake()
	h := newHandlers(b)
	ctx := context.Background()

	res, _ := h.saveRoutine(ctx, callReq(map[string]any{"name": "arms", "routine": armDay}))
	if res.IsError {
		t.Fatalf("save: %s", resultText(t, res))
	}
	res, _ = h.getSaved(ctx, callReq(map[string]any{"name": "arms"}))
	if got := resultText(t, res); got != armDay {
		t.Errorf("get = %s", got)
	}
	res, _ = h.getSaved(ctx, callReq(map[string]any{"name": "legs"}))
	if !res.IsError {
		t.Error("expected error for unknown name")
	}
	res, _ = h.importSaved(ctx, callReq(map[string]any{"name": "arms"}))
	if res.IsError {
		t.Fatalf("import saved: %s", resultText(t, res))
	}
	if len(b.imported) != 1 || b.imported[0] != "Arms" {
		t.Errorf("imported = %v", b.imported)
	}
}

func TestListImportRunsLimit(t *testing.T) {
	b := newFake()
	h := newHandlers(b)
	h.listImportRuns(context.Background(), callReq(nil))
	if b.runsLimit != 20 {
		t.Errorf("default limit = %d, want 20", b.runsLimit)
	}
	h.listImportRuns(context.Background(), callReq(map[string]any{"limit": float64(5)}))
	if b.runsLimit != 5 {
		t.Errorf("limit = %d, want 5", b.runsLimit)
	}
}

func TestShelfResource(t *testing.T) {
	b := newFake()
	b.saved["arms"] = armDay
	var req mcp.ReadResourceRequest
	req.Params.URI = "routinecopy://shelf"

	contents, err := newHandlers(b).shelfResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents is %T", contents[0])
	}
	if tc.URI != "routinecopy://shelf" || !strings.Contains(tc.Text, `"name":"arms"`) {
		t.Errorf("contents = %+v", tc)
	}
}

func TestNewRegistersTools(t *testing.T) {
	s := New(newFake(), "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if s == nil {
		t.Fatal("nil server")
	}
}
