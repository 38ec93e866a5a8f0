package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/routinecopy/internal/driver"
)

// LinkState is a state of the superset linking flow.
type LinkState int

const (
	LinkIdle LinkState = iota
	LinkMenuOpen
	LinkPickerOpen
	LinkLinked
	LinkCancelled
)

var linkStateNames = map[LinkState]string{
	LinkIdle:       "idle",
	LinkMenuOpen:   "menu-open",
	LinkPickerOpen: "picker-open",
	LinkLinked:     "linked",
	LinkCancelled:  "cancelled",
}

func (s LinkState) String() string {
	if name, ok := linkStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("LinkState(%d)", int(s))
}

// MarshalText renders the state name in reports.
func (s LinkState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *LinkState) UnmarshalText(b []byte) error {
	for state, name := range linkStateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown link state %q", b)
}

// LinkResult records one attempt to add a follower to an anchor's superset.
// Reached is the last state entered before the flow ended.
type LinkResult struct {
	Follower string      `json:"follower"`
	Anchor   string      `json:"anchor"`
	State    LinkState   `json:"state"`
	Reached  LinkState   `json:"reached"`
	Reason   string      `json:"reason,omitempty"`
	Kind     ProblemKind `json:"-"`
}

// Linker drives the target's options menu and superset picker.
type Linker struct {
	drv     driver.Driver
	match   *Matcher
	timings driver.Timings
	log     *slog.Logger
}

// NewLinker creates a Linker.
func NewLinker(drv driver.Driver, match *Matcher, t driver.Timings, log *slog.Logger) *Linker {
	return &Linker{drv: drv, match: match, timings: t, log: log}
}

// Link adds follower to anchor's superset:
//
//	idle -> menu-open -> picker-open -> linked | cancelled
//
// A missing menu entry cancels with the menu left open, which is harmless.
// Once the picker is open it is always dismissed before Link returns, whether
// or not the anchor was found, so that no modal blocks later steps.
func (l *Linker) Link(ctx context.Context, follower, anchor string) LinkResult {
	res := LinkResult{Follower: follower, Anchor: anchor, State: LinkIdle}
	cancel := func(kind ProblemKind, format string, args ...any) LinkResult {
		res.Reached = res.State
		res.State = LinkCancelled
		res.Kind = kind
		res.Reason = fmt.Sprintf(format, args...)
		l.log.Warn("superset link cancelled",
			"follower", follower, "anchor", anchor, "reached", res.Reached, "reason", res.Reason)
		return res
	}

	// idle -> menu-open
	card, err := l.match.Card(ctx, follower)
	if err != nil {
		return cancel(kindOf(err), "follower not in routine: %v", err)
	}
	opts, found, err := driver.Lookup(ctx, l.drv, card, driver.ExerciseOptions)
	if err != nil {
		return cancel(ProblemDriver, "finding options: %v", err)
	}
	if !found {
		return cancel(ProblemShapeMismatch, "follower has no options affordance")
	}
	if err := l.drv.Click(ctx, opts); err != nil {
		return cancel(ProblemDriver, "opening options: %v", err)
	}
	if err := l.drv.WaitSettle(ctx, l.timings.Menu); err != nil {
		return cancel(ProblemDriver, "waiting for menu: %v", err)
	}
	res.State = LinkMenuOpen

	// menu-open -> picker-open
	item, found, err := driver.Lookup(ctx, l.drv, driver.Document, driver.MenuAddToSuperset)
	if err != nil {
		return cancel(ProblemDriver, "finding menu entry: %v", err)
	}
	if !found {
		return cancel(ProblemNotFound, "menu has no add-to-superset entry")
	}
	if err := l.drv.Click(ctx, item); err != nil {
		return cancel(ProblemDriver, "choosing add-to-superset: %v", err)
	}
	if err := l.drv.WaitSettle(ctx, l.timings.Picker); err != nil {
		return cancel(ProblemDriver, "waiting for picker: %v", err)
	}
	picker, found, err := driver.Lookup(ctx, l.drv, driver.Document, driver.SupersetPicker)
	if err != nil {
		return cancel(ProblemDriver, "finding picker: %v", err)
	}
	if !found {
		return cancel(ProblemShapeMismatch, "superset picker did not open")
	}
	res.State = LinkPickerOpen

	// picker-open -> linked | cancelled; dismissal is unconditional.
	defer l.dismiss(ctx, picker, follower)

	row, found, err := l.match.Probe(ctx, picker, driver.PickerRow, driver.PickerRowLabel, anchor)
	if err != nil {
		return cancel(ProblemDriver, "searching picker: %v", err)
	}
	if !found {
		return cancel(ProblemNotFound, "anchor %q not offered by picker", anchor)
	}
	if err := l.drv.Click(ctx, row); err != nil {
		return cancel(ProblemDriver, "choosing anchor: %v", err)
	}
	if err := l.drv.WaitSettle(ctx, l.timings.PickerRow); err != nil {
		return cancel(ProblemDriver, "waiting after choosing anchor: %v", err)
	}

	res.Reached = LinkPickerOpen
	res.State = LinkLinked
	l.log.Debug("superset linked", "follower", follower, "anchor", anchor)
	return res
}

func (l *Linker) dismiss(ctx context.Context, picker driver.Element, follower string) {
	btn, found, err := driver.Lookup(ctx, l.drv, picker, driver.PickerDismiss)
	if err != nil || !found {
		l.log.Warn("superset picker left open: no dismiss control", "follower", follower, "error", err)
		return
	}
	if err := l.drv.Click(ctx, btn); err != nil {
		l.log.Warn("dismissing superset picker failed", "follower", follower, "error", err)
		return
	}
	if err := l.drv.WaitSettle(ctx, l.timings.Menu); err != nil {
		l.log.Warn("waiting after dismissing superset picker", "follower", follower, "error", err)
	}
}

func kindOf(err error) ProblemKind {
	if errors.Is(err, driver.ErrNotFound) {
		return ProblemNotFound
	}
	return ProblemDriver
}
