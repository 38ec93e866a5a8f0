package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/routinecopy/internal/driver"
	"github.com/claude/routinecopy/internal/driver/sim"
	"github.com/claude/routinecopy/internal/importer"
	"github.com/claude/routinecopy/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const pushDay = `{"title":"Push Day","exercises":[` +
	`{"name":"Bench Press","note":"","rest":"90s","sets":[{"set":"1","weight":"60","reps":"8"}],"supersetId":null},` +
	`{"name":"Incline Press","note":"","rest":"60s","sets":[{"set":"1","weight":"40","reps":"10"}],"supersetId":1},` +
	`{"name":"Flyes","note":"","rest":"60s","sets":[{"set":"1","weight":"15","reps":"12"}],"supersetId":1}]}`

func pushLibrary() sim.Fixture {
	return sim.Fixture{Library: []sim.LibraryEntry{
		{Name: "Flyes", Muscle: "Chest"},
		{Name: "Bench Press", Muscle: "Chest"},
		{Name: "Incline Press", Muscle: "Chest"},
	}}
}

// opener hands out a fixed sequence of sessions and counts attaches.
type opener struct {
	sessions []driver.Session
	opened   int
}

func (o *opener) open(context.Context) (driver.Session, error) {
	if o.opened >= len(o.sessions) {
		return nil, errors.New("no browser")
	}
	s := o.sessions[o.opened]
	o.opened++
	return s, nil
}

func newEngine(sessions ...driver.Session) (*Engine, *opener) {
	o := &opener{sessions: sessions}
	return New(driver.NewLease(o.open), Options{}, quietLogger()), o
}

// TestImportPushDayScenario verifies placement order, the single link, and
// that details reach all three exercises.
func TestImportPushDayScenario(t *testing.T) {
	app := sim.New(pushLibrary())
	eng, _ := newEngine(app)

	rep, err := eng.Import(context.Background(), pushDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var placements, links []string
	for _, m := range app.Mutations() {
		switch {
		case m.Op == "click" && strings.HasPrefix(m.Target, "library:"):
			placements = append(placements, strings.TrimPrefix(m.Target, "library:"))
		case m.Op == "click" && strings.HasPrefix(m.Target, "options:"):
			links = append(links, strings.TrimPrefix(m.Target, "options:"))
		}
	}
	if diff := cmp.Diff([]string{"Bench Press", "Incline Press", "Flyes"}, placements); diff != "" {
		t.Errorf("placements (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Flyes"}, links); diff != "" {
		t.Errorf("linked followers (-want +got):\n%s", diff)
	}
	if len(rep.Links) != 1 || rep.Links[0].Anchor != "Incline Press" || rep.Links[0].State != importer.LinkLinked {
		t.Errorf("links = %+v", rep.Links)
	}

	for _, c := range app.Cards() {
		if c.Rest == "" || c.Sets[0].Inputs[1] == "" {
			t.Errorf("%s details not applied: %+v", c.Name, c)
		}
	}

	text, err := eng.Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want, _ := models.DecodeRoutine([]byte(pushDay))
	got, err := models.DecodeRoutine([]byte(text))
	if err != nil {
		t.Fatalf("decoding extract: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

// TestImportMalformed verifies malformed text fails once, before the target
// is attached, so no mutation can happen.
func TestImportMalformed(t *testing.T) {
	for _, text := range []string{"", "not json", `{"title":"x"}`, `{"exercises":{}}`, `[]`} {
		app := sim.New(pushLibrary())
		eng, o := newEngine(app)

		rep, err := eng.Import(context.Background(), text)
		if !errors.Is(err, models.ErrMalformed) {
			t.Errorf("Import(%q) err = %v, want ErrMalformed", text, err)
		}
		if rep != nil {
			t.Errorf("Import(%q) returned a report", text)
		}
		if o.opened != 0 || len(app.Mutations()) != 0 {
			t.Errorf("Import(%q): %d attaches, %d mutations; want none", text, o.opened, len(app.Mutations()))
		}
	}
}

func TestImportEmptyPrompt(t *testing.T) {
	eng, _ := newEngine(sim.New(pushLibrary()))
	_, err := eng.Import(context.Background(), "  ")
	if err == nil || !strings.Contains(err.Error(), "paste routine JSON first") {
		t.Errorf("err = %v, want paste prompt", err)
	}
}

// TestExtractText verifies the exact portable text of an extract.
func TestExtractText(t *testing.T) {
	app := sim.New(sim.Fixture{
		Title: "Arms",
		Cards: []sim.Card{{Name: "Curl", Rest: "45s", Sets: []sim.SetRow{{Label: "1", Inputs: []string{"12", "10"}}}}},
	})
	eng, _ := newEngine(app)

	got, err := eng.Extract(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := `{
  "title": "Arms",
  "exercises": [
    {
      "name": "Curl",
      "note": "",
      "rest": "45s",
      "sets": [
        {
          "set": "1",
          "weight": "12",
          "reps": "10"
        }
      ],
      "supersetId": null
    }
  ]
}`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extract (-want +got):\n%s", diff)
	}
}

// brokenSession fails every lookup, like a tab that navigated away.
type brokenSession struct {
	driver.Driver
	closed bool
}

func (b *brokenSession) FindAll(context.Context, driver.Element, driver.Descriptor) ([]driver.Element, error) {
	return nil, errors.New("target closed")
}

func (b *brokenSession) Find(context.Context, driver.Element, driver.Descriptor) (driver.Element, error) {
	return "", errors.New("target closed")
}

func (b *brokenSession) Close() error {
	b.closed = true
	return nil
}

// TestExtractReattaches verifies a failed session is released and replaced
// once.
func TestExtractReattaches(t *testing.T) {
	broken := &brokenSession{}
	app := sim.New(sim.Fixture{Title: "Arms"})
	eng, o := newEngine(broken, app)

	if _, err := eng.Extract(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.opened != 2 || !broken.closed {
		t.Errorf("opened = %d, broken closed = %v; want 2 and true", o.opened, broken.closed)
	}
}

func TestLibrary(t *testing.T) {
	eng, _ := newEngine(sim.New(pushLibrary()))
	got, err := eng.Library(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[1] != (models.LibraryEntry{Name: "Bench Press", Muscle: "Chest"}) {
		t.Errorf("library = %+v", got)
	}
}

type recorder struct {
	runs []*importer.Report
}

func (r *recorder) RecordRun(_ context.Context, rep *importer.Report) error {
	r.runs = append(r.runs, rep)
	return nil
}

// TestImportRecordsRun verifies finished imports reach the run recorder.
func TestImportRecordsRun(t *testing.T) {
	rec := &recorder{}
	o := &opener{sessions: []driver.Session{sim.New(pushLibrary())}}
	eng := New(driver.NewLease(o.open), Options{Runs: rec}, quietLogger())

	rep, err := eng.Import(context.Background(), pushDay)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.runs) != 1 || rec.runs[0].RunID != rep.RunID {
		t.Errorf("recorded %d runs", len(rec.runs))
	}
}

func TestImportAttachFailure(t *testing.T) {
	eng, _ := newEngine()
	if _, err := eng.Import(context.Background(), pushDay); err == nil {
		t.Fatal("expected error without a browser")
	}
}
