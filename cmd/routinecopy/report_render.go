package main

import (
	"fmt"
	"strings"

	"github.com/claude/routinecopy/internal/importer"
)

// renderReport formats an import report for the terminal.
func renderReport(rep *importer.Report) string {
	var b strings.Builder
	applied, notFound, partial := rep.Counts()
	fmt.Fprintf(&b, "Imported %q: %d applied, %d not found, %d partial, %d retries (run %s)\n",
		rep.Title, applied, notFound, partial, rep.Retries, rep.RunID)

	rows := make([][]string, 0, len(rep.Exercises))
	for _, ex := range rep.Exercises {
		rows = append(rows, []string{ex.Name, string(ex.Outcome), fmt.Sprint(ex.Problems)})
	}
	b.WriteString(renderTable([]string{"Exercise", "Outcome", "Problems"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
	b.WriteString("\n")

	if len(rep.Links) > 0 {
		rows = rows[:0]
		for _, l := range rep.Links {
			rows = append(rows, []string{l.Follower, l.Anchor, l.State.String(), l.Reason})
		}
		b.WriteString(renderTable([]string{"Follower", "Anchor", "Link", "Reason"}, rows, nil))
		b.WriteString("\n")
	}

	if len(rep.Problems) > 0 {
		rows = rows[:0]
		for _, p := range rep.Problems {
			rows = append(rows, []string{string(p.Phase), string(p.Kind), p.Exercise, p.Field, p.Detail})
		}
		b.WriteString(renderTable([]string{"Phase", "Kind", "Exercise", "Field", "Detail"}, rows, nil))
		b.WriteString("\n")
	}
	return b.String()
}
