package importer

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the per-exercise result of an import.
type Outcome string

const (
	OutcomeApplied  Outcome = "placed-and-detailed"
	OutcomeNotFound Outcome = "not-found-in-source"
	OutcomePartial  Outcome = "detail-partially-applied"
)

// ProblemKind classifies a non-fatal failure.
type ProblemKind string

const (
	ProblemNotFound      ProblemKind = "not-found"
	ProblemMismatch      ProblemKind = "verification-mismatch"
	ProblemShapeMismatch ProblemKind = "shape-mismatch"
	ProblemDriver        ProblemKind = "driver-error"
)

// Phase names the import step a problem was recorded in.
type Phase string

const (
	PhaseTitle     Phase = "title"
	PhasePlacement Phase = "placement"
	PhaseLinking   Phase = "linking"
	PhaseDetails   Phase = "details"
)

// Problem is one absorbed failure. Exercise is empty for routine-level fields.
type Problem struct {
	Phase    Phase       `json:"phase"`
	Kind     ProblemKind `json:"kind"`
	Exercise string      `json:"exercise,omitempty"`
	Field    string      `json:"field,omitempty"`
	Detail   string      `json:"detail"`
}

// ExerciseReport is the outcome for one exercise of the record.
type ExerciseReport struct {
	Name     string  `json:"name"`
	Outcome  Outcome `json:"outcome"`
	Placed   bool    `json:"placed"`
	Problems int     `json:"problems"`
}

// Report aggregates everything an import did and failed to do.
type Report struct {
	RunID      uuid.UUID        `json:"run_id"`
	Title      string           `json:"title"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Exercises  []ExerciseReport `json:"exercises"`
	Links      []LinkResult     `json:"links"`
	Problems   []Problem        `json:"problems"`
	Retries    int              `json:"retries"`
}

// Counts tallies exercise outcomes.
func (r *Report) Counts() (applied, notFound, partial int) {
	for _, ex := range r.Exercises {
		switch ex.Outcome {
		case OutcomeApplied:
			applied++
		case OutcomeNotFound:
			notFound++
		case OutcomePartial:
			partial++
		}
	}
	return applied, notFound, partial
}

// ProblemsFor returns the problems recorded against one exercise.
func (r *Report) ProblemsFor(name string) []Problem {
	var out []Problem
	for _, p := range r.Problems {
		if p.Exercise == name {
			out = append(out, p)
		}
	}
	return out
}

func (r *Report) add(p Problem) {
	r.Problems = append(r.Problems, p)
}
