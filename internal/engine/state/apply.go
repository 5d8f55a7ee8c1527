package state

import (
	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/merr"
)

// Apply mutates the schema with one operation. The operation is validated
// first, then its preconditions are checked against the current schema.
// Definitions are cloned on the way in so later mutation of the operation
// cannot corrupt the schema.
func Apply(s *Schema, op ast.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	switch o := op.(type) {
	case *ast.CreateModel:
		if s.HasTable(o.Name) {
			return merr.Newf(merr.ErrInvalidOperation, "model %q already exists", o.Name).
				WithModel(o.Name)
		}
		s.Tables[o.Name] = o.State().Clone()

	case *ast.DeleteModel:
		if _, err := lookupTable(s, o.Name); err != nil {
			return err
		}
		delete(s.Tables, o.Name)

	case *ast.RenameModel:
		t, err := lookupTable(s, o.OldName)
		if err != nil {
			return err
		}
		if s.HasTable(o.NewName) {
			return merr.Newf(merr.ErrInvalidOperation, "cannot rename model %q: %q already exists", o.OldName, o.NewName).
				WithModel(o.OldName)
		}
		delete(s.Tables, o.OldName)
		t.Name = o.NewName
		s.Tables[o.NewName] = t

	case *ast.AddField:
		t, err := lookupTable(s, o.ModelName)
		if err != nil {
			return err
		}
		if t.HasField(o.Field.Name) {
			return merr.Newf(merr.ErrInvalidOperation, "field %q already exists", o.Field.Name).
				WithModel(o.ModelName).WithField(o.Field.Name)
		}
		t.Fields = append(t.Fields, o.Field.Clone())

	case *ast.RemoveField:
		t, err := lookupTable(s, o.ModelName)
		if err != nil {
			return err
		}
		if _, err := lookupField(t, o.Name); err != nil {
			return err
		}
		fields := t.Fields[:0]
		for _, f := range t.Fields {
			if f.Name != o.Name {
				fields = append(fields, f)
			}
		}
		t.Fields = fields

	case *ast.AlterField:
		t, err := lookupTable(s, o.ModelName)
		if err != nil {
			return err
		}
		f, err := lookupField(t, o.New.Name)
		if err != nil {
			return err
		}
		*f = *o.New.Clone()

	case *ast.RenameField:
		t, err := lookupTable(s, o.ModelName)
		if err != nil {
			return err
		}
		f, err := lookupField(t, o.OldName)
		if err != nil {
			return err
		}
		if t.HasField(o.NewName) {
			return merr.Newf(merr.ErrInvalidOperation, "cannot rename field %q: %q already exists", o.OldName, o.NewName).
				WithModel(o.ModelName).WithField(o.OldName)
		}
		f.Name = o.NewName

	case *ast.AddIndex:
		t, err := lookupTable(s, o.ModelName)
		if err != nil {
			return err
		}
		name := o.Index.ResolvedName(t.Name)
		if t.Index(name) != nil {
			return merr.Newf(merr.ErrInvalidOperation, "index %q already exists", name).
				WithModel(o.ModelName)
		}
		for _, f := range o.Index.Fields {
			if !t.HasField(f) {
				return fieldNotFoundErr(t, f)
			}
		}
		t.Indexes = append(t.Indexes, o.Index.Clone())

	case *ast.RemoveIndex:
		t, err := lookupTable(s, o.ModelName)
		if err != nil {
			return err
		}
		found := false
		indexes := t.Indexes[:0]
		for _, ix := range t.Indexes {
			if ix.ResolvedName(t.Name) == o.Name {
				found = true
				continue
			}
			indexes = append(indexes, ix)
		}
		if !found {
			names := make([]string, len(t.Indexes))
			for i, ix := range t.Indexes {
				names[i] = ix.ResolvedName(t.Name)
			}
			return merr.Newf(merr.ErrInvalidOperation, "index %q does not exist", o.Name).
				WithModel(o.ModelName).
				WithHelp(merr.SuggestSimilar(o.Name, names))
		}
		t.Indexes = indexes

	case *ast.AddConstraint:
		t, err := lookupTable(s, o.ModelName)
		if err != nil {
			return err
		}
		if t.Constraint(o.Constraint.Name) != nil {
			return merr.Newf(merr.ErrInvalidOperation, "constraint %q already exists", o.Constraint.Name).
				WithModel(o.ModelName)
		}
		for _, f := range o.Constraint.Fields {
			if !t.HasField(f) {
				return fieldNotFoundErr(t, f)
			}
		}
		t.Constraints = append(t.Constraints, o.Constraint.Clone())

	case *ast.RemoveConstraint:
		t, err := lookupTable(s, o.ModelName)
		if err != nil {
			return err
		}
		found := false
		constraints := t.Constraints[:0]
		for _, c := range t.Constraints {
			if c.Name == o.Name {
				found = true
				continue
			}
			constraints = append(constraints, c)
		}
		if !found {
			names := make([]string, len(t.Constraints))
			for i, c := range t.Constraints {
				names[i] = c.Name
			}
			return merr.Newf(merr.ErrInvalidOperation, "constraint %q does not exist", o.Name).
				WithModel(o.ModelName).
				WithHelp(merr.SuggestSimilar(o.Name, names))
		}
		t.Constraints = constraints

	case *ast.RunData:
		// Data migrations do not change the schema shape.

	default:
		return merr.Newf(merr.ErrInternal, "unhandled operation type %q", op.Type())
	}
	return nil
}

// ApplyAll clones the base schema and applies the operations in order.
// The base is never mutated.
func ApplyAll(base *Schema, ops []ast.Operation) (*Schema, error) {
	s := base.Clone()
	for i, op := range ops {
		if err := Apply(s, op); err != nil {
			return nil, merr.Wrapf(err, merr.ErrInvalidOperation, "operation %d (%s) cannot be applied", i, ast.Describe(op))
		}
	}
	return s, nil
}

func lookupTable(s *Schema, name string) (*ast.TableState, error) {
	if t := s.Table(name); t != nil {
		return t, nil
	}
	return nil, merr.Newf(merr.ErrInvalidOperation, "model %q does not exist", name).
		WithModel(name).
		WithHelp(merr.SuggestSimilar(name, s.TableNames()))
}

func lookupField(t *ast.TableState, name string) (*ast.FieldState, error) {
	if f := t.Field(name); f != nil {
		return f, nil
	}
	return nil, fieldNotFoundErr(t, name)
}

func fieldNotFoundErr(t *ast.TableState, name string) error {
	return merr.Newf(merr.ErrInvalidOperation, "field %q does not exist on model %q", name, t.Name).
		WithModel(t.Name).WithField(name).
		WithHelp(merr.SuggestSimilar(name, t.FieldNames()))
}
