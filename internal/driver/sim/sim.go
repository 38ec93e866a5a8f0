// Package sim is an in-memory routine builder that behaves like the real one
// where it matters to the sync engine: every mutation lands asynchronously and
// only becomes visible after the next WaitSettle, writes can be dropped, and
// linking goes through an options menu and a superset picker modal.
//
// WaitSettle never sleeps. It applies queued updates and advances a virtual
// clock, which makes engine tests deterministic.
package sim

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/routinecopy/internal/driver"
)

// SetRow is one set row of an exercise card.
type SetRow struct {
	Label  string   `yaml:"label"`
	Inputs []string `yaml:"inputs"`
}

// Card is an exercise placed in the routine. Cards sharing a non-zero Group
// are one superset.
type Card struct {
	Name      string   `yaml:"name"`
	Note      string   `yaml:"note"`
	NoteShown bool     `yaml:"note_shown"`
	Rest      string   `yaml:"rest"`
	Group     int      `yaml:"group"`
	Sets      []SetRow `yaml:"sets"`

	id int
}

// LibraryEntry is one row of the exercise library.
type LibraryEntry struct {
	Name   string `yaml:"name"`
	Muscle string `yaml:"muscle"`
}

// Fixture is the initial state of a simulated builder.
type Fixture struct {
	Title   string         `yaml:"title"`
	Library []LibraryEntry `yaml:"library"`
	Cards   []Card         `yaml:"exercises"`

	// InputsPerRow is the number of inputs on rows created by placement or
	// "add set": 2 for weight+reps, 1 for reps only. Defaults to 2.
	InputsPerRow int `yaml:"inputs_per_row"`
}

// LoadFixture reads a YAML fixture.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sim fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sim fixture: %w", err)
	}
	return &f, nil
}

// Mutation is one write or click issued against the app.
type Mutation struct {
	Op     string // "click" or "set"
	Target string
	Value  string
}

// App is a simulated routine builder. It satisfies driver.Session.
type App struct {
	mu sync.Mutex

	title        string
	library      []LibraryEntry
	cards        []*Card
	nextID       int
	inputsPerRow int

	menuFor     int
	pickerFor   int
	noMenuEntry bool
	hideTitle   bool

	pending []func()
	drops   map[string]int
	log     []Mutation
	clock   time.Duration
}

var _ driver.Session = (*App)(nil)

// New builds an app from a fixture.
func New(f Fixture) *App {
	a := &App{
		title:        f.Title,
		library:      append([]LibraryEntry(nil), f.Library...),
		inputsPerRow: f.InputsPerRow,
		drops:        map[string]int{},
	}
	if a.inputsPerRow <= 0 {
		a.inputsPerRow = 2
	}
	for _, c := range f.Cards {
		c.Sets = append([]SetRow(nil), c.Sets...)
		a.nextID++
		c.id = a.nextID
		a.cards = append(a.cards, &c)
	}
	return a
}

// DropWrites makes the next n writes to a field silently disappear. Keys are
// "title", "note:<exercise>", "rest:<exercise>" and
// "set:<exercise>:<row>:<input>" with zero-based row and input.
func (a *App) DropWrites(key string, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.drops[key] += n
}

// HideSupersetMenuEntry removes "add to superset" from options menus.
func (a *App) HideSupersetMenuEntry() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.noMenuEntry = true
}

// HideTitle removes the routine title field.
func (a *App) HideTitle() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hideTitle = true
}

// Title returns the current routine title.
func (a *App) Title() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.title
}

// Cards returns a snapshot of the placed exercises in display order.
func (a *App) Cards() []Card {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Card, len(a.cards))
	for i, c := range a.cards {
		out[i] = *c
		out[i].Sets = make([]SetRow, len(c.Sets))
		for j, r := range c.Sets {
			out[i].Sets[j] = SetRow{Label: r.Label, Inputs: append([]string(nil), r.Inputs...)}
		}
	}
	return out
}

// Mutations returns every write and click issued so far.
func (a *App) Mutations() []Mutation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Mutation(nil), a.log...)
}

// MenuOpen reports whether an options menu is open.
func (a *App) MenuOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.menuFor != 0
}

// PickerOpen reports whether the superset picker is open.
func (a *App) PickerOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pickerFor != 0
}

// Elapsed is the total virtual time spent in WaitSettle.
func (a *App) Elapsed() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clock
}

// Close implements driver.Session.
func (a *App) Close() error { return nil }

// WaitSettle applies every queued update and advances the virtual clock.
func (a *App) WaitSettle(ctx context.Context, d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	pending := a.pending
	a.pending = nil
	a.clock += d
	for _, fn := range pending {
		fn()
	}
	return ctx.Err()
}

// handle layout: kind:id[:sub...]. Cards are addressed by a stable id so that
// handles survive reordering; library rows by index.
func handle(parts ...any) driver.Element {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return driver.Element(strings.Join(s, ":"))
}

func (a *App) cardByID(id int) (*Card, int) {
	for i, c := range a.cards {
		if c.id == id {
			return c, i
		}
	}
	return nil, -1
}

type ref struct {
	kind string
	id   int
	rest []string
}

func parse(el driver.Element) ref {
	parts := strings.Split(string(el), ":")
	r := ref{kind: parts[0]}
	if len(parts) > 1 {
		r.id, _ = strconv.Atoi(parts[1])
		r.rest = parts[2:]
	}
	return r
}

func (r ref) sub(i int) string {
	if i < len(r.rest) {
		return r.rest[i]
	}
	return ""
}

func (r ref) subInt(i int) int {
	n, _ := strconv.Atoi(r.sub(i))
	return n
}

// Find implements driver.Driver.
func (a *App) Find(ctx context.Context, scope driver.Element, d driver.Descriptor) (driver.Element, error) {
	all, err := a.FindAll(ctx, scope, d)
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "", fmt.Errorf("%s: %w", d, driver.ErrNotFound)
	}
	return all[0], nil
}

// FindAll implements driver.Driver.
func (a *App) FindAll(ctx context.Context, scope driver.Element, d driver.Descriptor) ([]driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	r := parse(scope)
	var card *Card
	if r.kind == "card" {
		card, _ = a.cardByID(r.id)
		if card == nil {
			return nil, nil
		}
	}

	switch d {
	case driver.RoutineTitle:
		if scope == driver.Document && !a.hideTitle {
			return []driver.Element{"title"}, nil
		}
	case driver.LibraryRow:
		if scope == driver.Document {
			out := make([]driver.Element, len(a.library))
			for i := range a.library {
				out[i] = handle("lib", i)
			}
			return out, nil
		}
	case driver.LibraryName, driver.LibraryMuscle:
		if r.kind == "lib" && len(r.rest) == 0 {
			field := "name"
			if d == driver.LibraryMuscle {
				field = "muscle"
			}
			return []driver.Element{handle("lib", r.id, field)}, nil
		}
	case driver.ExerciseCard:
		if scope == driver.Document {
			out := make([]driver.Element, len(a.cards))
			for i, c := range a.cards {
				out[i] = handle("card", c.id)
			}
			return out, nil
		}
	case driver.ExerciseName, driver.ExerciseRest, driver.ExerciseRestInput,
		driver.ExerciseOptions, driver.ExerciseAddSet:
		if card != nil && len(r.rest) == 0 {
			return []driver.Element{handle("card", card.id, cardField(d))}, nil
		}
	case driver.ExerciseNote:
		if card != nil && len(r.rest) == 0 && card.NoteShown {
			return []driver.Element{handle("card", card.id, "note")}, nil
		}
	case driver.ExerciseNoteToggle:
		if card != nil && len(r.rest) == 0 && !card.NoteShown {
			return []driver.Element{handle("card", card.id, "note_toggle")}, nil
		}
	case driver.ExerciseSuperset:
		if card != nil && len(r.rest) == 0 && card.Group != 0 {
			return []driver.Element{handle("card", card.id, "superset")}, nil
		}
	case driver.SetRow:
		if card != nil && len(r.rest) == 0 {
			out := make([]driver.Element, len(card.Sets))
			for i := range card.Sets {
				out[i] = handle("card", card.id, "set", i)
			}
			return out, nil
		}
	case driver.SetLabel, driver.SetInput:
		if card == nil || r.sub(0) != "set" || len(r.rest) != 2 {
			return nil, nil
		}
		row := r.subInt(1)
		if row >= len(card.Sets) {
			return nil, nil
		}
		if d == driver.SetLabel {
			if card.Sets[row].Label == "" {
				return nil, nil
			}
			return []driver.Element{handle("card", card.id, "set", row, "label")}, nil
		}
		out := make([]driver.Element, len(card.Sets[row].Inputs))
		for i := range card.Sets[row].Inputs {
			out[i] = handle("card", card.id, "set", row, "in", i)
		}
		return out, nil
	case driver.MenuAddToSuperset:
		if scope == driver.Document && a.menuFor != 0 && !a.noMenuEntry {
			return []driver.Element{"menu:0:superset"}, nil
		}
	case driver.SupersetPicker:
		if scope == driver.Document && a.pickerFor != 0 {
			return []driver.Element{"picker"}, nil
		}
	case driver.PickerRow:
		if scope == "picker" && a.pickerFor != 0 {
			var out []driver.Element
			for _, c := range a.cards {
				if c.id != a.pickerFor {
					out = append(out, handle("pick", c.id))
				}
			}
			return out, nil
		}
	case driver.PickerRowLabel:
		if r.kind == "pick" && len(r.rest) == 0 && a.pickerFor != 0 {
			return []driver.Element{handle("pick", r.id, "label")}, nil
		}
	case driver.PickerDismiss:
		if scope == "picker" && a.pickerFor != 0 {
			return []driver.Element{"picker:0:dismiss"}, nil
		}
	}
	return nil, nil
}

func cardField(d driver.Descriptor) string {
	switch d {
	case driver.ExerciseName:
		return "name"
	case driver.ExerciseRest:
		return "rest"
	case driver.ExerciseRestInput:
		return "rest_input"
	case driver.ExerciseOptions:
		return "options"
	case driver.ExerciseAddSet:
		return "add_set"
	}
	return ""
}

// Read implements driver.Driver.
func (a *App) Read(ctx context.Context, el driver.Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	r := parse(el)
	switch r.kind {
	case "title":
		return a.title, nil
	case "lib":
		if r.id >= len(a.library) {
			break
		}
		if r.sub(0) == "muscle" {
			return a.library[r.id].Muscle, nil
		}
		return a.library[r.id].Name, nil
	case "pick":
		if c, _ := a.cardByID(r.id); c != nil {
			return c.Name, nil
		}
	case "card":
		c, _ := a.cardByID(r.id)
		if c == nil {
			break
		}
		switch r.sub(0) {
		case "name":
			return c.Name, nil
		case "note":
			return c.Note, nil
		case "rest", "rest_input":
			return c.Rest, nil
		case "add_set":
			return "Add set", nil
		case "set":
			row := r.subInt(1)
			if row >= len(c.Sets) {
				break
			}
			if r.sub(2) == "label" {
				return c.Sets[row].Label, nil
			}
			in := r.subInt(3)
			if in < len(c.Sets[row].Inputs) {
				return c.Sets[row].Inputs[in], nil
			}
		default:
			return "", nil
		}
	default:
		return "", nil
	}
	return "", fmt.Errorf("sim: stale element %q", el)
}

// SetValue implements driver.Driver. The write lands on the next WaitSettle
// unless a DropWrites rule swallows it.
func (a *App) SetValue(ctx context.Context, el driver.Element, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	r := parse(el)
	var key string
	var apply func()
	switch {
	case r.kind == "title":
		key = "title"
		apply = func() { a.title = value }
	case r.kind == "card":
		c, _ := a.cardByID(r.id)
		if c == nil {
			return fmt.Errorf("sim: stale element %q", el)
		}
		switch r.sub(0) {
		case "note":
			key = "note:" + c.Name
			apply = func() { c.Note = value }
		case "rest_input":
			key = "rest:" + c.Name
			apply = func() { c.Rest = value }
		case "set":
			row, in := r.subInt(1), r.subInt(3)
			if r.sub(2) != "in" || row >= len(c.Sets) || in >= len(c.Sets[row].Inputs) {
				return fmt.Errorf("sim: %q is not an input", el)
			}
			key = fmt.Sprintf("set:%s:%d:%d", c.Name, row, in)
			apply = func() { c.Sets[row].Inputs[in] = value }
		}
	}
	if apply == nil {
		return fmt.Errorf("sim: %q is not an input", el)
	}

	a.log = append(a.log, Mutation{Op: "set", Target: key, Value: value})
	if a.drops[key] > 0 {
		a.drops[key]--
		return nil
	}
	a.pending = append(a.pending, apply)
	return nil
}

// Click implements driver.Driver.
func (a *App) Click(ctx context.Context, el driver.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	r := parse(el)
	target := string(el)
	var apply func()
	switch r.kind {
	case "lib":
		if r.id >= len(a.library) {
			return fmt.Errorf("sim: stale element %q", el)
		}
		entry := a.library[r.id]
		target = "library:" + entry.Name
		apply = func() { a.place(entry.Name) }
	case "card":
		c, _ := a.cardByID(r.id)
		if c == nil {
			return fmt.Errorf("sim: stale element %q", el)
		}
		target = r.sub(0) + ":" + c.Name
		switch r.sub(0) {
		case "note_toggle":
			apply = func() { c.NoteShown = true }
		case "add_set":
			apply = func() { c.Sets = append(c.Sets, a.newRow(len(c.Sets)+1)) }
		case "options":
			id := c.id
			apply = func() { a.menuFor = id }
		}
	case "menu":
		target = "menu:add_to_superset"
		follower := a.menuFor
		apply = func() {
			a.menuFor = 0
			a.pickerFor = follower
		}
	case "pick":
		c, _ := a.cardByID(r.id)
		if c == nil || a.pickerFor == 0 {
			return fmt.Errorf("sim: stale element %q", el)
		}
		follower, anchor := a.pickerFor, c.id
		target = "picker:" + c.Name
		apply = func() { a.link(follower, anchor) }
	case "picker":
		if r.sub(0) != "dismiss" {
			break
		}
		target = "picker:dismiss"
		apply = func() { a.pickerFor = 0 }
	}

	a.log = append(a.log, Mutation{Op: "click", Target: target})
	if apply != nil {
		a.pending = append(a.pending, apply)
	}
	return nil
}

func (a *App) newRow(n int) SetRow {
	return SetRow{Label: strconv.Itoa(n), Inputs: make([]string, a.inputsPerRow)}
}

func (a *App) place(name string) {
	a.nextID++
	a.cards = append(a.cards, &Card{Name: name, id: a.nextID, Sets: []SetRow{a.newRow(1)}})
}

// link puts the follower into the anchor's superset and moves it to the end
// of that group, keeping groups contiguous like the real builder does.
func (a *App) link(followerID, anchorID int) {
	follower, fi := a.cardByID(followerID)
	anchor, _ := a.cardByID(anchorID)
	if follower == nil || anchor == nil {
		return
	}
	if anchor.Group == 0 {
		top := 0
		for _, c := range a.cards {
			top = max(top, c.Group)
		}
		anchor.Group = top + 1
	}
	follower.Group = anchor.Group

	a.cards = append(a.cards[:fi], a.cards[fi+1:]...)
	last := -1
	for i, c := range a.cards {
		if c.Group == anchor.Group {
			last = i
		}
	}
	a.cards = append(a.cards[:last+1], append([]*Card{follower}, a.cards[last+1:]...)...)
}
