package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/routinecopy/internal/driver"
)

// Matcher finds live elements by their displayed name: exact, trimmed and
// case-sensitive. When two elements share a name the first in document order
// wins.
type Matcher struct {
	drv     driver.Driver
	timings driver.Timings
}

// NewMatcher creates a Matcher.
func NewMatcher(drv driver.Driver, t driver.Timings) *Matcher {
	return &Matcher{drv: drv, timings: t}
}

// Card locates a placed exercise, waiting for it to render.
func (m *Matcher) Card(ctx context.Context, name string) (driver.Element, error) {
	return m.Locate(ctx, driver.Document, driver.ExerciseCard, driver.ExerciseName, name)
}

// LibraryRow locates an exercise in the library, waiting for it to render.
func (m *Matcher) LibraryRow(ctx context.Context, name string) (driver.Element, error) {
	return m.Locate(ctx, driver.Document, driver.LibraryRow, driver.LibraryName, name)
}

// Locate polls Probe until an item matches or the locate timeout runs out,
// settling between polls. It returns driver.ErrNotFound on timeout.
func (m *Matcher) Locate(ctx context.Context, scope driver.Element, items, label driver.Descriptor, name string) (driver.Element, error) {
	polls := 1
	if m.timings.LocateInterval > 0 {
		polls += int(m.timings.LocateTimeout / m.timings.LocateInterval)
	}
	for i := 1; ; i++ {
		el, found, err := m.Probe(ctx, scope, items, label, name)
		if err != nil {
			return "", err
		}
		if found {
			return el, nil
		}
		if i >= polls {
			return "", fmt.Errorf("%s %q: %w", items, name, driver.ErrNotFound)
		}
		if err := m.drv.WaitSettle(ctx, m.timings.LocateInterval); err != nil {
			return "", err
		}
	}
}

// Probe looks once for the first item within scope whose label reads name.
func (m *Matcher) Probe(ctx context.Context, scope driver.Element, items, label driver.Descriptor, name string) (driver.Element, bool, error) {
	var first driver.Element
	found := false
	err := m.scan(ctx, scope, items, label, name, func(item driver.Element) bool {
		first, found = item, true
		return false
	})
	return first, found, err
}

// PlacedCount reports how many placed exercises read name, without waiting.
func (m *Matcher) PlacedCount(ctx context.Context, name string) (int, error) {
	n := 0
	err := m.scan(ctx, driver.Document, driver.ExerciseCard, driver.ExerciseName, name, func(driver.Element) bool {
		n++
		return true
	})
	return n, err
}

// scan calls fn for each item within scope whose label reads name, in
// document order, until fn returns false.
func (m *Matcher) scan(ctx context.Context, scope driver.Element, items, label driver.Descriptor, name string, fn func(driver.Element) bool) error {
	want := strings.TrimSpace(name)
	all, err := m.drv.FindAll(ctx, scope, items)
	if err != nil {
		return err
	}
	for _, item := range all {
		text, found, err := driver.ReadText(ctx, m.drv, item, label)
		if err != nil {
			// The item can disappear between FindAll and Read while the
			// target re-renders; skip it.
			if errors.Is(err, driver.ErrNotFound) {
				continue
			}
			return err
		}
		if found && text == want && !fn(item) {
			return nil
		}
	}
	return nil
}
