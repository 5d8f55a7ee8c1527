// Package chain models the linear migration history: an ordered sequence
// of records with contiguous sequence numbers starting at 1.
package chain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/merr"
)

// Record is one migration: its position in the chain, a human label, and
// the operations it performs.
type Record struct {
	Seq        int
	Label      string
	Operations []ast.Operation
}

// Name returns the canonical migration name, e.g. "0003_add_email".
func (r Record) Name() string {
	return fmt.Sprintf("%04d_%s", r.Seq, r.Label)
}

// Chain is a validated, ordered migration history.
type Chain struct {
	records []Record
}

// New validates and orders the records into a chain. Sequence numbers
// must start at 1 and be contiguous with no duplicates.
func New(records []Record) (*Chain, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	for i, r := range sorted {
		want := i + 1
		switch {
		case r.Seq == want:
		case i > 0 && r.Seq == sorted[i-1].Seq:
			return nil, merr.Newf(merr.ErrInconsistentHistory, "duplicate sequence number %d", r.Seq).
				WithMigration(r.Name())
		default:
			return nil, merr.Newf(merr.ErrInconsistentHistory, "gap in migration history: expected sequence %d, found %d", want, r.Seq).
				WithMigration(r.Name()).
				WithHelp("migration files must be numbered contiguously starting at 0001")
		}
	}
	return &Chain{records: sorted}, nil
}

// Records returns the records in order. The slice is shared; callers
// must not mutate it.
func (c *Chain) Records() []Record {
	return c.records
}

// Len returns the number of records.
func (c *Chain) Len() int {
	return len(c.records)
}

// Head returns the highest sequence number, or 0 for an empty chain.
func (c *Chain) Head() int {
	return len(c.records)
}

// Record returns the record at the given sequence number.
func (c *Chain) Record(seq int) (Record, bool) {
	if seq < 1 || seq > len(c.records) {
		return Record{}, false
	}
	return c.records[seq-1], true
}

// Between returns the records with from < seq <= to, in ascending order.
func (c *Chain) Between(from, to int) []Record {
	if from >= to {
		return nil
	}
	out := make([]Record, 0, to-from)
	for _, r := range c.records {
		if r.Seq > from && r.Seq <= to {
			out = append(out, r)
		}
	}
	return out
}

// Resolve maps a target string to a sequence number. Accepted forms:
// "" or "latest" (the head), "zero" (before the first migration), a
// number, or a unique label prefix.
func (c *Chain) Resolve(target string) (int, error) {
	switch target {
	case "", "latest":
		return c.Head(), nil
	case "zero":
		return 0, nil
	}

	if n, err := strconv.Atoi(target); err == nil {
		if n < 0 || n > c.Head() {
			return 0, merr.Newf(merr.ErrUnknownTarget, "no migration with sequence number %d", n).
				With("target", target).
				With("head", c.Head())
		}
		return n, nil
	}

	var matches []Record
	for _, r := range c.records {
		if strings.HasPrefix(r.Label, target) || strings.HasPrefix(r.Name(), target) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		labels := make([]string, len(c.records))
		for i, r := range c.records {
			labels[i] = r.Label
		}
		return 0, merr.Newf(merr.ErrUnknownTarget, "no migration matches %q", target).
			WithHelp(merr.SuggestSimilar(target, labels))
	case 1:
		return matches[0].Seq, nil
	default:
		names := make([]string, len(matches))
		for i, r := range matches {
			names[i] = r.Name()
		}
		return 0, merr.Newf(merr.ErrAmbiguousTarget, "target %q matches %d migrations", target, len(matches)).
			With("matches", strings.Join(names, ", ")).
			WithHelp("use the sequence number or a longer prefix")
	}
}

// Append adds a record at the head. expectedHead is the head the caller
// observed when it planned the record; a mismatch means the chain
// advanced underneath the caller.
func (c *Chain) Append(rec Record, expectedHead int) error {
	if c.Head() != expectedHead {
		return merr.Newf(merr.ErrConcurrentChain, "migration history advanced: expected head %d, found %d", expectedHead, c.Head()).
			WithHelp("reload the migration history and regenerate")
	}
	if rec.Seq != c.Head()+1 {
		return merr.Newf(merr.ErrConcurrentChain, "record sequence %d does not follow head %d", rec.Seq, c.Head())
	}
	c.records = append(c.records, rec)
	return nil
}

// ValidateLabel checks that a label is usable in a migration name.
func ValidateLabel(label string) error {
	if label == "" {
		return merr.New(merr.ErrMigrationInvalid, "migration label is empty")
	}
	if label == "latest" || label == "zero" {
		return merr.Newf(merr.ErrMigrationInvalid, "label %q is a reserved target name", label)
	}
	if _, err := strconv.Atoi(label); err == nil {
		return merr.Newf(merr.ErrMigrationInvalid, "label %q would be ambiguous with a sequence number", label)
	}
	return ast.ValidateIdentifier(label)
}
