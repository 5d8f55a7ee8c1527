package engine

import (
	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/merr"
)

// Invert returns the operation that undoes op. Destructive operations
// are invertible because they carry the definition they removed; when
// that definition is missing, or a RunData has no reverse script, the
// operation is irreversible.
func Invert(op ast.Operation) (ast.Operation, error) {
	switch o := op.(type) {
	case *ast.CreateModel:
		return &ast.DeleteModel{Name: o.Name, State: o.State().Clone()}, nil

	case *ast.DeleteModel:
		if o.State == nil {
			return nil, irreversible(op, "the deleted model definition was not recorded")
		}
		st := o.State.Clone()
		return &ast.CreateModel{
			Name:        st.Name,
			Fields:      st.Fields,
			Indexes:     st.Indexes,
			Constraints: st.Constraints,
		}, nil

	case *ast.RenameModel:
		return &ast.RenameModel{OldName: o.NewName, NewName: o.OldName}, nil

	case *ast.AddField:
		return &ast.RemoveField{
			ModelRef: o.ModelRef,
			Name:     o.Field.Name,
			Field:    o.Field.Clone(),
		}, nil

	case *ast.RemoveField:
		if o.Field == nil {
			return nil, irreversible(op, "the removed field definition was not recorded")
		}
		return &ast.AddField{ModelRef: o.ModelRef, Field: o.Field.Clone()}, nil

	case *ast.AlterField:
		return &ast.AlterField{
			ModelRef: o.ModelRef,
			Old:      o.New.Clone(),
			New:      o.Old.Clone(),
		}, nil

	case *ast.RenameField:
		return &ast.RenameField{
			ModelRef: o.ModelRef,
			OldName:  o.NewName,
			NewName:  o.OldName,
		}, nil

	case *ast.AddIndex:
		return &ast.RemoveIndex{
			ModelRef: o.ModelRef,
			Name:     o.Index.ResolvedName(o.ModelName),
			Index:    o.Index.Clone(),
		}, nil

	case *ast.RemoveIndex:
		if o.Index == nil {
			return nil, irreversible(op, "the removed index definition was not recorded")
		}
		return &ast.AddIndex{ModelRef: o.ModelRef, Index: o.Index.Clone()}, nil

	case *ast.AddConstraint:
		return &ast.RemoveConstraint{
			ModelRef:   o.ModelRef,
			Name:       o.Constraint.Name,
			Constraint: o.Constraint.Clone(),
		}, nil

	case *ast.RemoveConstraint:
		if o.Constraint == nil {
			return nil, irreversible(op, "the removed constraint definition was not recorded")
		}
		return &ast.AddConstraint{ModelRef: o.ModelRef, Constraint: o.Constraint.Clone()}, nil

	case *ast.RunData:
		if !o.Reversible() {
			return nil, irreversible(op, "the data migration has no reverse SQL")
		}
		return &ast.RunData{Forward: o.Reverse, Reverse: o.Forward}, nil

	default:
		return nil, merr.Newf(merr.ErrInternal, "unhandled operation type %q", op.Type())
	}
}

// InvertAll inverts a migration's operations for rollback: each operation
// is inverted and the order is reversed.
func InvertAll(ops []ast.Operation) ([]ast.Operation, error) {
	out := make([]ast.Operation, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		inv, err := Invert(ops[i])
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

func irreversible(op ast.Operation, reason string) error {
	return merr.Newf(merr.ErrIrreversible, "cannot reverse %s", ast.Describe(op)).
		With("reason", reason)
}
