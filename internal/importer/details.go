package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/routinecopy/internal/driver"
	"github.com/claude/routinecopy/internal/models"
)

// locator re-resolves an element for every attempt, since the target may
// replace nodes while it re-renders.
type locator func(ctx context.Context) (driver.Element, error)

// fieldWrite describes one value to write through ApplyWithVerify.
type fieldWrite struct {
	field  string
	value  string
	target locator // element to write
	check  locator // element to read back; defaults to target
}

// writeField writes one value with verification and records any problem.
// It returns false when the field did not end up holding the value.
func (imp *Importer) writeField(ctx context.Context, run *run, exercise string, fw fieldWrite) bool {
	check := fw.check
	if check == nil {
		check = fw.target
	}
	want := strings.TrimSpace(fw.value)

	res := ApplyWithVerify(ctx, imp.drv, imp.timings.Verify, imp.maxAttempts,
		func(ctx context.Context) error {
			el, err := fw.target(ctx)
			if err != nil {
				return err
			}
			return imp.drv.SetValue(ctx, el, fw.value)
		},
		func(ctx context.Context) (bool, error) {
			el, err := check(ctx)
			if err != nil {
				return false, err
			}
			got, err := imp.drv.Read(ctx, el)
			if err != nil {
				return false, err
			}
			return strings.TrimSpace(got) == want, nil
		},
	)

	if res.Attempts > 1 {
		run.report.Retries += res.Attempts - 1
	}
	if res.Verified {
		return true
	}

	phase := PhaseDetails
	if exercise == "" {
		phase = PhaseTitle
	}
	p := Problem{Phase: phase, Kind: ProblemMismatch, Exercise: exercise, Field: fw.field}
	if res.Err != nil {
		p.Kind = kindOf(res.Err)
		p.Detail = fmt.Sprintf("after %d attempts: %v", res.Attempts, res.Err)
	} else {
		p.Detail = fmt.Sprintf("value still differs after %d attempts", res.Attempts)
	}
	run.problem(p)
	imp.log.Warn("field not applied", "exercise", exercise, "field", fw.field, "attempts", res.Attempts, "error", res.Err)
	return false
}

// applyDetails writes note, rest and sets of one placed exercise.
func (imp *Importer) applyDetails(ctx context.Context, run *run, ex models.Exercise) {
	card := func(ctx context.Context) (driver.Element, error) {
		return imp.match.Card(ctx, ex.Name)
	}
	if _, err := card(ctx); err != nil {
		run.problem(Problem{Phase: PhaseDetails, Kind: kindOf(err), Exercise: ex.Name,
			Detail: fmt.Sprintf("exercise not found in routine: %v", err)})
		return
	}

	imp.applyNote(ctx, run, ex, card)
	imp.applyRest(ctx, run, ex, card)
	imp.applySets(ctx, run, ex, card)
}

// applyNote writes the note. A card without a note field gets its note
// toggle clicked first; an empty note never reveals the field.
func (imp *Importer) applyNote(ctx context.Context, run *run, ex models.Exercise, card locator) {
	scope, err := card(ctx)
	if err != nil {
		return
	}
	_, found, err := driver.Lookup(ctx, imp.drv, scope, driver.ExerciseNote)
	if err != nil {
		run.problem(Problem{Phase: PhaseDetails, Kind: ProblemDriver, Exercise: ex.Name, Field: "note", Detail: err.Error()})
		return
	}
	if !found {
		if ex.Note == "" {
			return
		}
		toggle, ok, err := driver.Lookup(ctx, imp.drv, scope, driver.ExerciseNoteToggle)
		if err == nil && ok {
			err = imp.drv.Click(ctx, toggle)
			if err == nil {
				err = imp.drv.WaitSettle(ctx, imp.timings.NoteToggle)
			}
		}
		if err != nil {
			run.problem(Problem{Phase: PhaseDetails, Kind: ProblemDriver, Exercise: ex.Name, Field: "note", Detail: err.Error()})
			return
		}
		if scope, err = card(ctx); err == nil {
			_, found, err = driver.Lookup(ctx, imp.drv, scope, driver.ExerciseNote)
		}
		if err != nil || !found {
			run.problem(Problem{Phase: PhaseDetails, Kind: ProblemShapeMismatch, Exercise: ex.Name, Field: "note",
				Detail: "no note field"})
			return
		}
	}

	imp.writeField(ctx, run, ex.Name, fieldWrite{
		field:  "note",
		value:  ex.Note.String(),
		target: imp.in(card, driver.ExerciseNote),
	})
}

// applyRest writes the rest value through the rest input and reads it back
// from the rest display.
func (imp *Importer) applyRest(ctx context.Context, run *run, ex models.Exercise, card locator) {
	if ex.Rest == "" {
		return
	}
	scope, err := card(ctx)
	if err != nil {
		return
	}
	_, found, err := driver.Lookup(ctx, imp.drv, scope, driver.ExerciseRestInput)
	if err == nil && !found {
		err = fmt.Errorf("no rest input: %w", driver.ErrNotFound)
	}
	if err != nil {
		run.problem(Problem{Phase: PhaseDetails, Kind: shapeKind(err), Exercise: ex.Name, Field: "rest", Detail: err.Error()})
		return
	}

	check := imp.in(card, driver.ExerciseRest)
	if _, found, _ := driver.Lookup(ctx, imp.drv, scope, driver.ExerciseRest); !found {
		check = nil
	}
	imp.writeField(ctx, run, ex.Name, fieldWrite{
		field:  "rest",
		value:  ex.Rest.String(),
		target: imp.in(card, driver.ExerciseRestInput),
		check:  check,
	})
}

// applySets grows the card to as many set rows as the record has, then
// writes each row: a single input takes reps, two inputs take weight and reps.
func (imp *Importer) applySets(ctx context.Context, run *run, ex models.Exercise, card locator) {
	if len(ex.Sets) == 0 {
		return
	}
	rows, err := imp.growRows(ctx, card, len(ex.Sets))
	if err != nil {
		run.problem(Problem{Phase: PhaseDetails, Kind: ProblemDriver, Exercise: ex.Name, Field: "sets", Detail: err.Error()})
		return
	}
	if rows < len(ex.Sets) {
		run.problem(Problem{Phase: PhaseDetails, Kind: ProblemShapeMismatch, Exercise: ex.Name, Field: "sets",
			Detail: fmt.Sprintf("only %d of %d set rows available", rows, len(ex.Sets))})
	}

	for i := 0; i < min(rows, len(ex.Sets)); i++ {
		set := ex.Sets[i]
		row := imp.nth(card, driver.SetRow, i)
		scope, err := row(ctx)
		if err != nil {
			run.problem(Problem{Phase: PhaseDetails, Kind: kindOf(err), Exercise: ex.Name, Field: setField(i, ""), Detail: err.Error()})
			continue
		}
		inputs, err := imp.drv.FindAll(ctx, scope, driver.SetInput)
		if err != nil {
			run.problem(Problem{Phase: PhaseDetails, Kind: ProblemDriver, Exercise: ex.Name, Field: setField(i, ""), Detail: err.Error()})
			continue
		}
		switch {
		case len(inputs) == 0:
			run.problem(Problem{Phase: PhaseDetails, Kind: ProblemShapeMismatch, Exercise: ex.Name, Field: setField(i, ""),
				Detail: "set row has no inputs"})
		case len(inputs) == 1:
			imp.writeField(ctx, run, ex.Name, fieldWrite{field: setField(i, "reps"), value: set.Reps.String(), target: imp.nth(row, driver.SetInput, 0)})
		default:
			imp.writeField(ctx, run, ex.Name, fieldWrite{field: setField(i, "weight"), value: set.Weight.String(), target: imp.nth(row, driver.SetInput, 0)})
			imp.writeField(ctx, run, ex.Name, fieldWrite{field: setField(i, "reps"), value: set.Reps.String(), target: imp.nth(row, driver.SetInput, 1)})
		}
	}
}

// growRows clicks "add set" until the card has want rows. It stops early when
// there is no add-set control or two clicks in a row add nothing.
func (imp *Importer) growRows(ctx context.Context, card locator, want int) (int, error) {
	scope, err := card(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := imp.drv.FindAll(ctx, scope, driver.SetRow)
	if err != nil {
		return 0, err
	}
	have, stalls := len(rows), 0
	for have < want && stalls < 2 {
		add, found, err := driver.Lookup(ctx, imp.drv, scope, driver.ExerciseAddSet)
		if err != nil {
			return have, err
		}
		if !found {
			break
		}
		if err := imp.drv.Click(ctx, add); err != nil {
			return have, err
		}
		if err := imp.drv.WaitSettle(ctx, imp.timings.AddSet); err != nil {
			return have, err
		}
		if scope, err = card(ctx); err != nil {
			return have, err
		}
		rows, err := imp.drv.FindAll(ctx, scope, driver.SetRow)
		if err != nil {
			return have, err
		}
		if len(rows) > have {
			stalls = 0
		} else {
			stalls++
		}
		have = len(rows)
	}
	return have, nil
}

// in resolves d inside the element parent resolves to.
func (imp *Importer) in(parent locator, d driver.Descriptor) locator {
	return func(ctx context.Context) (driver.Element, error) {
		scope, err := parent(ctx)
		if err != nil {
			return "", err
		}
		return imp.drv.Find(ctx, scope, d)
	}
}

// nth resolves the i-th match of d inside the element parent resolves to.
func (imp *Importer) nth(parent locator, d driver.Descriptor, i int) locator {
	return func(ctx context.Context) (driver.Element, error) {
		scope, err := parent(ctx)
		if err != nil {
			return "", err
		}
		all, err := imp.drv.FindAll(ctx, scope, d)
		if err != nil {
			return "", err
		}
		if i >= len(all) {
			return "", fmt.Errorf("%s #%d: %w", d, i+1, driver.ErrNotFound)
		}
		return all[i], nil
	}
}

func setField(i int, name string) string {
	if name == "" {
		return fmt.Sprintf("set %d", i+1)
	}
	return fmt.Sprintf("set %d %s", i+1, name)
}

func shapeKind(err error) ProblemKind {
	if kindOf(err) == ProblemNotFound {
		return ProblemShapeMismatch
	}
	return ProblemDriver
}
