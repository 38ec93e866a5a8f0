package shelf

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/claude/routinecopy/internal/importer"
	"github.com/claude/routinecopy/internal/models"
)

func openTemp(t *testing.T) *Shelf {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "shelf.db"))
	if err != nil {
		t.Fatalf("opening shelf: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func legDay() *models.Routine {
	one := 1
	return &models.Routine{
		Title: "Leg Day",
		Exercises: []models.Exercise{
			{Name: "Back Squat", Rest: "180", Sets: []models.SetEntry{{Set: "1", Weight: "100", Reps: "5"}}},
			{Name: "Leg Curl", SupersetID: &one, Sets: []models.SetEntry{}},
			{Name: "Leg Extension", SupersetID: &one, Sets: []models.SetEntry{}},
		},
	}
}

// TestSaveGet verifies a saved routine comes back unchanged.
func TestSaveGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	saved, err := s.Save(ctx, "legs", legDay())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Name != "legs" || saved.Title != "Leg Day" || saved.Exercises != 3 || saved.ID == uuid.Nil {
		t.Errorf("entry = %+v", saved)
	}

	got, e, err := s.Get(ctx, "legs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(legDay(), got); diff != "" {
		t.Errorf("routine (-want +got):\n%s", diff)
	}
	if e.ID != saved.ID {
		t.Errorf("id = %s, want %s", e.ID, saved.ID)
	}
}

// TestSaveReplaces verifies saving under an existing name replaces the body
// and keeps the id.
func TestSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	first, err := s.Save(ctx, "legs", legDay())
	if err != nil {
		t.Fatal(err)
	}
	short := &models.Routine{Title: "Short", Exercises: []models.Exercise{{Name: "Lunge", Sets: []models.SetEntry{}}}}
	second, err := s.Save(ctx, "legs", short)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("id changed from %s to %s", first.ID, second.ID)
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Title != "Short" || entries[0].Exercises != 1 {
		t.Errorf("entries = %+v", entries)
	}
}

// TestListAndDelete verifies listing and that deleting an unknown name
// reports ErrNotFound.
func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	for _, name := range []string{"a", "b"} {
		if _, err := s.Save(ctx, name, legDay()); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("listed %d entries, want 2", len(entries))
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
	if _, _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
}

// TestSaveRequiresName verifies an empty name is rejected.
func TestSaveRequiresName(t *testing.T) {
	if _, err := openTemp(t).Save(context.Background(), "", legDay()); err == nil {
		t.Fatal("expected error for empty name")
	}
}

// TestReopenKeepsData verifies migrations are idempotent across opens.
func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shelf.db")
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, "legs", legDay()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()
	if _, _, err := s.Get(ctx, "legs"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

// TestRecordRun verifies import reports are stored and summarized.
func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rep := &importer.Report{
		RunID:      uuid.New(),
		Title:      "Leg Day",
		StartedAt:  start,
		FinishedAt: start.Add(42 * time.Second),
		Exercises: []importer.ExerciseReport{
			{Name: "Back Squat", Outcome: importer.OutcomeApplied, Placed: true},
			{Name: "Sissy Squat", Outcome: importer.OutcomeNotFound},
		},
		Links:    []importer.LinkResult{{Follower: "Leg Extension", Anchor: "Leg Curl", State: importer.LinkLinked, Reached: importer.LinkPickerOpen}},
		Problems: []importer.Problem{{Phase: importer.PhasePlacement, Kind: importer.ProblemNotFound, Exercise: "Sissy Squat", Detail: "not in library"}},
		Retries:  2,
	}
	if err := s.RecordRun(ctx, rep); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := s.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	want := []Run{{
		RunID: rep.RunID, Title: "Leg Day", StartedAt: start, FinishedAt: start.Add(42 * time.Second),
		Applied: 1, NotFound: 1, Retries: 2,
	}}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Errorf("runs (-want +got):\n%s", diff)
	}

	back, err := s.Report(ctx, rep.RunID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if diff := cmp.Diff(rep, back); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}

	if _, err := s.Report(ctx, uuid.New()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("unknown run err = %v, want ErrRunNotFound", err)
	}
}
