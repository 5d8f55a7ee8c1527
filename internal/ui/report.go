package ui

import (
	"fmt"
	"strings"
	"time"
)

// StatusRow is one line of `march status` output.
type StatusRow struct {
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// RenderStatus formats the migration list with applied markers.
func RenderStatus(rows []StatusRow) string {
	if len(rows) == 0 {
		return Dim("no migrations")
	}
	var b strings.Builder
	for _, row := range rows {
		if row.Applied {
			b.WriteString(Done(row.Name))
			if !row.AppliedAt.IsZero() {
				b.WriteString(Dim("  " + row.AppliedAt.Format("2006-01-02 15:04:05")))
			}
		} else {
			b.WriteString(Dim("• ") + row.Name + Dim("  (pending)"))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderRunSummary formats what a run applied or reverted.
func RenderRunSummary(verb string, names []string) string {
	if len(names) == 0 {
		return Dim("nothing to do")
	}
	var b strings.Builder
	for _, name := range names {
		b.WriteString(Done(fmt.Sprintf("%s %s\n", verb, name)))
	}
	b.WriteString(Success(fmt.Sprintf("%d migration(s) %s", len(names), verb)))
	return b.String()
}

// RenderWarnings formats lint findings, one per line.
func RenderWarnings(messages []string) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(Warning("warning: ") + m + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
