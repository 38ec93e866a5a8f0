package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/claude/routinecopy/internal/driver"
	"github.com/claude/routinecopy/internal/models"
)

// Extractor reads the routine currently shown by the target. It never mutates.
type Extractor struct {
	drv driver.Driver
	log *slog.Logger
}

// New creates an Extractor.
func New(drv driver.Driver, log *slog.Logger) *Extractor {
	return &Extractor{drv: drv, log: log}
}

// Routine reads the title and every exercise region in display order.
//
// Superset membership is only visible as a per-region marker, so group ids
// are rebuilt from contiguous runs of marked regions.
func (x *Extractor) Routine(ctx context.Context) (*models.Routine, error) {
	title, _, err := driver.ReadText(ctx, x.drv, driver.Document, driver.RoutineTitle)
	if err != nil {
		return nil, fmt.Errorf("reading title: %w", err)
	}

	cards, err := x.drv.FindAll(ctx, driver.Document, driver.ExerciseCard)
	if err != nil {
		return nil, fmt.Errorf("listing exercises: %w", err)
	}

	flags := make([]bool, len(cards))
	for i, card := range cards {
		_, flags[i], err = driver.Lookup(ctx, x.drv, card, driver.ExerciseSuperset)
		if err != nil {
			return nil, fmt.Errorf("checking superset marker of exercise %d: %w", i+1, err)
		}
	}
	ids := models.AssignSupersets(flags)

	r := &models.Routine{Title: title, Exercises: make([]models.Exercise, 0, len(cards))}
	for i, card := range cards {
		ex, err := x.exercise(ctx, card)
		if err != nil {
			return nil, fmt.Errorf("reading exercise %d: %w", i+1, err)
		}
		if ex.Name == "" {
			x.log.Warn("skipping exercise without a name", "position", i+1)
			continue
		}
		ex.SupersetID = ids[i]
		r.Exercises = append(r.Exercises, ex)
	}

	x.log.Debug("extracted routine", "title", r.Title, "exercises", len(r.Exercises))
	return r, nil
}

func (x *Extractor) exercise(ctx context.Context, card driver.Element) (models.Exercise, error) {
	var ex models.Exercise
	name, _, err := driver.ReadText(ctx, x.drv, card, driver.ExerciseName)
	if err != nil {
		return ex, err
	}
	note, _, err := driver.ReadText(ctx, x.drv, card, driver.ExerciseNote)
	if err != nil {
		return ex, err
	}
	rest, _, err := driver.ReadText(ctx, x.drv, card, driver.ExerciseRest)
	if err != nil {
		return ex, err
	}
	ex.Name, ex.Note, ex.Rest = name, models.Text(note), models.Text(rest)

	rows, err := x.drv.FindAll(ctx, card, driver.SetRow)
	if err != nil {
		return ex, fmt.Errorf("listing sets: %w", err)
	}
	ex.Sets = make([]models.SetEntry, 0, len(rows))
	for i, row := range rows {
		set, err := x.set(ctx, row, i)
		if err != nil {
			return ex, fmt.Errorf("set %d: %w", i+1, err)
		}
		ex.Sets = append(ex.Sets, set)
	}
	return ex, nil
}

// set reads one set row. Rows with two inputs are weight and reps, rows with
// one input are reps only.
func (x *Extractor) set(ctx context.Context, row driver.Element, pos int) (models.SetEntry, error) {
	var set models.SetEntry
	label, found, err := driver.ReadText(ctx, x.drv, row, driver.SetLabel)
	if err != nil {
		return set, err
	}
	if !found || label == "" {
		label = strconv.Itoa(pos + 1)
	}
	set.Set = models.Text(label)

	inputs, err := x.drv.FindAll(ctx, row, driver.SetInput)
	if err != nil {
		return set, err
	}
	switch {
	case len(inputs) > 1:
		w, err := x.drv.Read(ctx, inputs[0])
		if err != nil {
			return set, err
		}
		r, err := x.drv.Read(ctx, inputs[1])
		if err != nil {
			return set, err
		}
		set.Weight, set.Reps = models.Text(w), models.Text(r)
	case len(inputs) == 1:
		r, err := x.drv.Read(ctx, inputs[0])
		if err != nil {
			return set, err
		}
		set.Reps = models.Text(r)
	}
	return set, nil
}

// Library lists the exercise library. Rows without a name are skipped.
func (x *Extractor) Library(ctx context.Context) ([]models.LibraryEntry, error) {
	rows, err := x.drv.FindAll(ctx, driver.Document, driver.LibraryRow)
	if err != nil {
		return nil, fmt.Errorf("listing library: %w", err)
	}
	entries := make([]models.LibraryEntry, 0, len(rows))
	for _, row := range rows {
		name, _, err := driver.ReadText(ctx, x.drv, row, driver.LibraryName)
		if err != nil {
			return nil, fmt.Errorf("reading library row: %w", err)
		}
		if name == "" {
			continue
		}
		muscle, _, err := driver.ReadText(ctx, x.drv, row, driver.LibraryMuscle)
		if err != nil {
			return nil, fmt.Errorf("reading library row %q: %w", name, err)
		}
		entries = append(entries, models.LibraryEntry{Name: name, Muscle: muscle})
	}
	return entries, nil
}
