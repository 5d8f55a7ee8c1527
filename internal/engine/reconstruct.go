package engine

import (
	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/engine/state"
	"github.com/marchdb/march/internal/merr"
)

// Reconstruct replays migration records from the empty schema and returns
// the schema they imply. A record that fails to apply means the recorded
// history no longer composes, which is reported as inconsistent history
// naming the offending migration.
func Reconstruct(records []chain.Record) (*state.Schema, error) {
	s := state.NewSchema()
	for _, rec := range records {
		for i, op := range rec.Operations {
			if err := state.Apply(s, op); err != nil {
				return nil, merr.Wrapf(err, merr.ErrInconsistentHistory,
					"migration history does not replay: operation %d of %s failed", i, rec.Name()).
					WithMigration(rec.Name())
			}
		}
	}
	return s, nil
}

// Pending computes the operations that would bring the schema implied by
// the full chain up to the desired snapshot. Read-only: no database
// access, no chain mutation.
func Pending(ch *chain.Chain, desired *state.Schema, hints *RenameHints) ([]ast.Operation, error) {
	historical, err := Reconstruct(ch.Records())
	if err != nil {
		return nil, err
	}
	return Diff(historical, desired, hints)
}
