package importer

import (
	"context"
	"testing"

	"github.com/claude/routinecopy/internal/driver"
	"github.com/claude/routinecopy/internal/driver/sim"
)

func newLinker(app *sim.App) *Linker {
	t := driver.DefaultTimings()
	return NewLinker(app, NewMatcher(app, t), t, quietLogger())
}

func threeCards() sim.Fixture {
	return sim.Fixture{Cards: []sim.Card{{Name: "Press"}, {Name: "Row"}, {Name: "Curl"}}}
}

// TestLinkMovesFollowerIntoGroup verifies a successful link groups both cards
// and closes the picker.
func TestLinkMovesFollowerIntoGroup(t *testing.T) {
	app := sim.New(threeCards())

	res := newLinker(app).Link(context.Background(), "Curl", "Press")

	if res.State != LinkLinked {
		t.Fatalf("state = %s (%s), want linked", res.State, res.Reason)
	}
	if app.PickerOpen() {
		t.Error("picker left open")
	}
	cards := app.Cards()
	if cards[0].Name != "Press" || cards[1].Name != "Curl" {
		t.Errorf("order = %s, %s; want Press, Curl", cards[0].Name, cards[1].Name)
	}
	if cards[0].Group == 0 || cards[0].Group != cards[1].Group {
		t.Errorf("groups = %d, %d; want equal and non-zero", cards[0].Group, cards[1].Group)
	}
}

// TestLinkAnchorMissingDismissesPicker verifies the picker is always closed
// once opened, even when the anchor is not offered.
func TestLinkAnchorMissingDismissesPicker(t *testing.T) {
	app := sim.New(threeCards())

	res := newLinker(app).Link(context.Background(), "Row", "Ghost")

	if res.State != LinkCancelled || res.Reached != LinkPickerOpen {
		t.Errorf("result = %+v, want cancelled at picker-open", res)
	}
	if res.Kind != ProblemNotFound {
		t.Errorf("kind = %s, want %s", res.Kind, ProblemNotFound)
	}
	if app.PickerOpen() {
		t.Error("picker left open")
	}
	if got := clicks(app, "picker:"); len(got) != 1 || got[0] != "picker:dismiss" {
		t.Errorf("picker clicks = %v, want only the dismissal", got)
	}
	for _, c := range app.Cards() {
		if c.Group != 0 {
			t.Errorf("%s joined group %d", c.Name, c.Group)
		}
	}
}

// TestLinkFollowerMissing verifies nothing is clicked when the follower is
// not in the routine.
func TestLinkFollowerMissing(t *testing.T) {
	app := sim.New(threeCards())

	res := newLinker(app).Link(context.Background(), "Ghost", "Press")

	if res.State != LinkCancelled || res.Reached != LinkIdle || res.Kind != ProblemNotFound {
		t.Errorf("result = %+v, want not-found cancel at idle", res)
	}
	if n := len(app.Mutations()); n != 0 {
		t.Errorf("issued %d mutations, want 0", n)
	}
}

// TestLinkNoMenuEntry verifies a missing menu entry cancels at menu-open
// without opening the picker.
func TestLinkNoMenuEntry(t *testing.T) {
	app := sim.New(threeCards())
	app.HideSupersetMenuEntry()

	res := newLinker(app).Link(context.Background(), "Row", "Press")

	if res.State != LinkCancelled || res.Reached != LinkMenuOpen {
		t.Errorf("result = %+v, want cancelled at menu-open", res)
	}
	if !app.MenuOpen() || app.PickerOpen() {
		t.Errorf("menu open = %v, picker open = %v; want menu only", app.MenuOpen(), app.PickerOpen())
	}
}

// TestLinkStateText verifies states render by name in reports.
func TestLinkStateText(t *testing.T) {
	b, err := LinkPickerOpen.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "picker-open" {
		t.Errorf("got %q, want picker-open", b)
	}
	if got := LinkState(42).String(); got != "LinkState(42)" {
		t.Errorf("got %q", got)
	}
}
