package engine

import (
	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/merr"
)

// Direction of a migration run.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
)

func (d Direction) String() string {
	if d == DirectionDown {
		return "down"
	}
	return "up"
}

// Step is one migration to execute, with the operations already oriented
// for the plan's direction.
type Step struct {
	Record     chain.Record
	Operations []ast.Operation
}

// Plan is an ordered list of steps from the current position to the
// target.
type Plan struct {
	Direction Direction
	Current   int
	Target    int
	Steps     []Step
}

// IsEmpty reports whether there is nothing to do.
func (p *Plan) IsEmpty() bool {
	return len(p.Steps) == 0
}

// BuildPlan computes the steps between the current position and the
// target. Forward plans cover (current, target] ascending; backward
// plans cover (target, current] descending with each migration's
// operations inverted. Inversion failures surface before anything runs.
func BuildPlan(ch *chain.Chain, current, target int) (*Plan, error) {
	p := &Plan{Current: current, Target: target}

	switch {
	case target == current:
		return p, nil

	case target > current:
		for _, rec := range ch.Between(current, target) {
			p.Steps = append(p.Steps, Step{Record: rec, Operations: rec.Operations})
		}
		return p, nil

	default:
		p.Direction = DirectionDown
		records := ch.Between(target, current)
		for i := len(records) - 1; i >= 0; i-- {
			rec := records[i]
			inverted, err := InvertAll(rec.Operations)
			if err != nil {
				return nil, merr.Wrapf(err, merr.ErrIrreversible,
					"cannot roll back %s", rec.Name()).WithMigration(rec.Name())
			}
			p.Steps = append(p.Steps, Step{Record: rec, Operations: inverted})
		}
		return p, nil
	}
}

// appliedPrefix checks the applied-prefix invariant and returns the
// current chain position: the applied set must be exactly the first k
// records of the chain.
func appliedPrefix(ch *chain.Chain, applied []string) (int, error) {
	appliedSet := make(map[string]bool, len(applied))
	for _, name := range applied {
		appliedSet[name] = true
	}

	known := make(map[string]bool, ch.Len())
	current := 0
	inPrefix := true
	for _, rec := range ch.Records() {
		known[rec.Name()] = true
		if appliedSet[rec.Name()] {
			if !inPrefix {
				return 0, merr.Newf(merr.ErrInconsistentHistory,
					"migration %s is applied but an earlier migration is not", rec.Name()).
					WithMigration(rec.Name()).
					WithHelp("the database history has a hole; resolve it manually before migrating")
			}
			current = rec.Seq
		} else {
			inPrefix = false
		}
	}

	for _, name := range applied {
		if !known[name] {
			return 0, merr.Newf(merr.ErrInconsistentHistory,
				"database records migration %q which is not in the migration directory", name).
				WithMigration(name).
				WithHelp("restore the missing migration file or clean up the recorder table")
		}
	}
	return current, nil
}
