// Package importer replays a portable routine record into a live routine
// builder in three phases: placement, superset linking, then details.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/routinecopy/internal/driver"
	"github.com/claude/routinecopy/internal/models"
)

// Importer replays routine records through a driver.
type Importer struct {
	drv         driver.Driver
	log         *slog.Logger
	timings     driver.Timings
	maxAttempts int
	match       *Matcher
	linker      *Linker
}

// New creates an Importer.
func New(drv driver.Driver, t driver.Timings, log *slog.Logger) *Importer {
	match := NewMatcher(drv, t)
	return &Importer{
		drv:         drv,
		log:         log,
		timings:     t,
		maxAttempts: DefaultMaxAttempts,
		match:       match,
		linker:      NewLinker(drv, match, t, log),
	}
}

// run is the mutable state of one Import call.
type run struct {
	report *Report
	index  map[string]int // exercise name -> first position in report.Exercises
}

func (r *run) problem(p Problem) {
	r.report.add(p)
	if i, ok := r.index[p.Exercise]; ok {
		r.report.Exercises[i].Problems++
	}
}

// Import replays rt and returns what happened. Failures are absorbed into the
// report; the only way Import stops early is the driver failing hard.
// Cancelling ctx does not interrupt a started import, since a half-placed
// routine cannot be cleaned up by the caller.
func (imp *Importer) Import(ctx context.Context, rt *models.Routine) *Report {
	ctx = context.WithoutCancel(ctx)

	r := &run{
		report: &Report{
			RunID:     uuid.New(),
			Title:     rt.Title,
			StartedAt: time.Now().UTC(),
			Links:     []LinkResult{},
			Problems:  []Problem{},
		},
		index: make(map[string]int, len(rt.Exercises)),
	}
	for i, ex := range rt.Exercises {
		if _, dup := r.index[ex.Name]; !dup {
			r.index[ex.Name] = i
		}
		r.report.Exercises = append(r.report.Exercises, ExerciseReport{Name: ex.Name})
	}

	log := imp.log.With("run_id", r.report.RunID)
	log.Info("import started", "title", rt.Title, "exercises", len(rt.Exercises))

	if rt.Title != "" {
		imp.applyTitle(ctx, r, rt.Title)
	}

	// Phase 1: placement, in record order.
	seen := make(map[string]int, len(rt.Exercises))
	for i, ex := range rt.Exercises {
		seen[ex.Name]++
		r.report.Exercises[i].Placed = imp.place(ctx, r, ex.Name, seen[ex.Name])
	}

	// Phase 2: superset linking. The first member of each group anchors it.
	for _, g := range rt.Groups() {
		if len(g.Members) < 2 {
			continue
		}
		anchor := g.Members[0]
		if !imp.placedName(r, anchor) {
			r.problem(Problem{Phase: PhaseLinking, Kind: ProblemNotFound, Exercise: anchor,
				Detail: fmt.Sprintf("superset %d anchor was not placed", g.ID)})
			for _, follower := range g.Members[1:] {
				if imp.placedName(r, follower) {
					r.problem(Problem{Phase: PhaseLinking, Kind: ProblemNotFound, Exercise: follower,
						Detail: fmt.Sprintf("superset anchor %q was not placed", anchor)})
				}
			}
			continue
		}
		for _, follower := range g.Members[1:] {
			if !imp.placedName(r, follower) {
				continue
			}
			res := imp.linker.Link(ctx, follower, anchor)
			r.report.Links = append(r.report.Links, res)
			if res.State == LinkCancelled {
				r.problem(Problem{Phase: PhaseLinking, Kind: res.Kind, Exercise: follower,
					Detail: fmt.Sprintf("linking to %q: %s", anchor, res.Reason)})
			}
		}
	}

	// Phase 3: details for every placed exercise.
	for i, ex := range rt.Exercises {
		if !r.report.Exercises[i].Placed {
			continue
		}
		before := len(r.report.Problems)
		imp.applyDetails(ctx, r, ex)
		if len(r.report.Problems) > before {
			log.Debug("details partially applied", "exercise", ex.Name, "problems", len(r.report.Problems)-before)
		}
	}

	for i := range r.report.Exercises {
		ex := &r.report.Exercises[i]
		switch {
		case !ex.Placed:
			ex.Outcome = OutcomeNotFound
		case len(r.report.ProblemsFor(ex.Name)) > 0:
			ex.Outcome = OutcomePartial
		default:
			ex.Outcome = OutcomeApplied
		}
	}

	r.report.FinishedAt = time.Now().UTC()
	applied, notFound, partial := r.report.Counts()
	log.Info("import finished",
		"applied", applied,
		"not_found", notFound,
		"partial", partial,
		"links", len(r.report.Links),
		"retries", r.report.Retries,
		"duration", r.report.FinishedAt.Sub(r.report.StartedAt),
	)
	return r.report
}

func (imp *Importer) placedName(r *run, name string) bool {
	i, ok := r.index[name]
	return ok && r.report.Exercises[i].Placed
}

// applyTitle writes the routine title when the builder exposes a title field.
func (imp *Importer) applyTitle(ctx context.Context, r *run, title string) {
	_, found, err := driver.Lookup(ctx, imp.drv, driver.Document, driver.RoutineTitle)
	if err != nil || !found {
		kind := ProblemShapeMismatch
		detail := "routine has no title field"
		if err != nil {
			kind, detail = ProblemDriver, err.Error()
		}
		r.problem(Problem{Phase: PhaseTitle, Kind: kind, Field: "title", Detail: detail})
		return
	}
	imp.writeField(ctx, r, "", fieldWrite{
		field: "title",
		value: title,
		target: func(ctx context.Context) (driver.Element, error) {
			return imp.drv.Find(ctx, driver.Document, driver.RoutineTitle)
		},
	})
}

// place adds the nth occurrence of an exercise from the library. It is left
// alone when the routine already holds n exercises of that name, so replaying
// the same record twice does not duplicate it.
func (imp *Importer) place(ctx context.Context, r *run, name string, n int) bool {
	have, err := imp.match.PlacedCount(ctx, name)
	if err != nil {
		r.problem(Problem{Phase: PhasePlacement, Kind: ProblemDriver, Exercise: name, Detail: err.Error()})
		return false
	}
	if have >= n {
		imp.log.Debug("exercise already placed", "exercise", name, "occurrence", n)
		return true
	}

	row, err := imp.match.LibraryRow(ctx, name)
	if err != nil {
		r.problem(Problem{Phase: PhasePlacement, Kind: kindOf(err), Exercise: name,
			Detail: fmt.Sprintf("not in library: %v", err)})
		imp.log.Warn("exercise not found in library", "exercise", name)
		return false
	}
	if err := imp.drv.Click(ctx, row); err != nil {
		r.problem(Problem{Phase: PhasePlacement, Kind: ProblemDriver, Exercise: name, Detail: err.Error()})
		return false
	}
	if err := imp.drv.WaitSettle(ctx, imp.timings.Placement); err != nil {
		r.problem(Problem{Phase: PhasePlacement, Kind: ProblemDriver, Exercise: name, Detail: err.Error()})
		return false
	}
	return true
}
