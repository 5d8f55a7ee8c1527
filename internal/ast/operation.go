package ast

import (
	"github.com/marchdb/march/internal/merr"
)

// OpType identifies an operation variant.
type OpType string

const (
	OpCreateModel      OpType = "create_model"
	OpDeleteModel      OpType = "delete_model"
	OpRenameModel      OpType = "rename_model"
	OpAddField         OpType = "add_field"
	OpRemoveField      OpType = "remove_field"
	OpAlterField       OpType = "alter_field"
	OpRenameField      OpType = "rename_field"
	OpAddIndex         OpType = "add_index"
	OpRemoveIndex      OpType = "remove_index"
	OpAddConstraint    OpType = "add_constraint"
	OpRemoveConstraint OpType = "remove_constraint"
	OpRunData          OpType = "run_data"
)

// Operation is one step of a migration. The set of implementations is
// closed: the engine, the dialects, and the file codec all switch over it.
type Operation interface {
	// Type identifies the variant.
	Type() OpType
	// Model names the table the operation touches, or "" for RunData.
	Model() string
	// Validate checks the operation's own fields. Preconditions against
	// the current schema are checked by state.Apply.
	Validate() error
}

// ModelRef provides the Model method for operations scoped to one table.
type ModelRef struct {
	ModelName string
}

// Model returns the table the operation targets.
func (m ModelRef) Model() string { return m.ModelName }

func (m ModelRef) validateModel() error {
	if m.ModelName == "" {
		return merr.New(merr.ErrInvalidOperation, "operation has no model name")
	}
	return ValidateIdentifier(m.ModelName)
}

// CreateModel creates a table with its fields, indexes, and constraints.
type CreateModel struct {
	Name        string
	Fields      []*FieldState
	Indexes     []*IndexState
	Constraints []*ConstraintState
}

func (op *CreateModel) Type() OpType  { return OpCreateModel }
func (op *CreateModel) Model() string { return op.Name }

func (op *CreateModel) Validate() error {
	return op.State().Validate()
}

// State assembles the table definition the operation creates.
func (op *CreateModel) State() *TableState {
	return &TableState{
		Name:        op.Name,
		Fields:      op.Fields,
		Indexes:     op.Indexes,
		Constraints: op.Constraints,
	}
}

// DeleteModel drops a table. It carries the definition at deletion time
// so the operation stays invertible.
type DeleteModel struct {
	Name  string
	State *TableState
}

func (op *DeleteModel) Type() OpType  { return OpDeleteModel }
func (op *DeleteModel) Model() string { return op.Name }

func (op *DeleteModel) Validate() error {
	return ValidateIdentifier(op.Name)
}

// RenameModel renames a table.
type RenameModel struct {
	OldName string
	NewName string
}

func (op *RenameModel) Type() OpType  { return OpRenameModel }
func (op *RenameModel) Model() string { return op.OldName }

func (op *RenameModel) Validate() error {
	if err := ValidateIdentifier(op.OldName); err != nil {
		return err
	}
	if err := ValidateIdentifier(op.NewName); err != nil {
		return err
	}
	if op.OldName == op.NewName {
		return merr.Newf(merr.ErrInvalidOperation, "rename of model %q to itself", op.OldName)
	}
	return nil
}

// AddField adds a column to an existing table.
type AddField struct {
	ModelRef
	Field *FieldState
}

func (op *AddField) Type() OpType { return OpAddField }

func (op *AddField) Validate() error {
	if err := op.validateModel(); err != nil {
		return err
	}
	if op.Field == nil {
		return merr.New(merr.ErrInvalidOperation, "add_field has no field definition").
			WithModel(op.ModelName)
	}
	return op.Field.Validate()
}

// RemoveField drops a column. It carries the prior definition so the
// operation stays invertible.
type RemoveField struct {
	ModelRef
	Name  string
	Field *FieldState
}

func (op *RemoveField) Type() OpType { return OpRemoveField }

func (op *RemoveField) Validate() error {
	if err := op.validateModel(); err != nil {
		return err
	}
	return ValidateIdentifier(op.Name)
}

// AlterField changes a column definition in place. Old and New share the
// same name; pure renames are expressed as RenameField.
type AlterField struct {
	ModelRef
	Old *FieldState
	New *FieldState
}

func (op *AlterField) Type() OpType { return OpAlterField }

func (op *AlterField) Validate() error {
	if err := op.validateModel(); err != nil {
		return err
	}
	if op.Old == nil || op.New == nil {
		return merr.New(merr.ErrInvalidOperation, "alter_field needs both the old and new definition").
			WithModel(op.ModelName)
	}
	if op.Old.Name != op.New.Name {
		return merr.New(merr.ErrInvalidOperation, "alter_field cannot rename, use rename_field").
			WithModel(op.ModelName).WithField(op.Old.Name)
	}
	if op.Old.SameShape(op.New) {
		return merr.New(merr.ErrInvalidOperation, "alter_field changes nothing").
			WithModel(op.ModelName).WithField(op.Old.Name)
	}
	if err := op.Old.Validate(); err != nil {
		return err
	}
	return op.New.Validate()
}

// RenameField renames a column without changing its definition.
type RenameField struct {
	ModelRef
	OldName string
	NewName string
}

func (op *RenameField) Type() OpType { return OpRenameField }

func (op *RenameField) Validate() error {
	if err := op.validateModel(); err != nil {
		return err
	}
	if err := ValidateIdentifier(op.OldName); err != nil {
		return err
	}
	if err := ValidateIdentifier(op.NewName); err != nil {
		return err
	}
	if op.OldName == op.NewName {
		return merr.Newf(merr.ErrInvalidOperation, "rename of field %q to itself", op.OldName).
			WithModel(op.ModelName)
	}
	return nil
}

// AddIndex creates a secondary index.
type AddIndex struct {
	ModelRef
	Index *IndexState
}

func (op *AddIndex) Type() OpType { return OpAddIndex }

func (op *AddIndex) Validate() error {
	if err := op.validateModel(); err != nil {
		return err
	}
	if op.Index == nil {
		return merr.New(merr.ErrInvalidOperation, "add_index has no index definition").
			WithModel(op.ModelName)
	}
	return op.Index.Validate()
}

// RemoveIndex drops an index, carrying the prior definition.
type RemoveIndex struct {
	ModelRef
	Name  string
	Index *IndexState
}

func (op *RemoveIndex) Type() OpType { return OpRemoveIndex }

func (op *RemoveIndex) Validate() error {
	if err := op.validateModel(); err != nil {
		return err
	}
	return ValidateIdentifier(op.Name)
}

// AddConstraint adds a table constraint.
type AddConstraint struct {
	ModelRef
	Constraint *ConstraintState
}

func (op *AddConstraint) Type() OpType { return OpAddConstraint }

func (op *AddConstraint) Validate() error {
	if err := op.validateModel(); err != nil {
		return err
	}
	if op.Constraint == nil {
		return merr.New(merr.ErrInvalidOperation, "add_constraint has no constraint definition").
			WithModel(op.ModelName)
	}
	return op.Constraint.Validate()
}

// RemoveConstraint drops a table constraint, carrying the prior definition.
type RemoveConstraint struct {
	ModelRef
	Name       string
	Constraint *ConstraintState
}

func (op *RemoveConstraint) Type() OpType { return OpRemoveConstraint }

func (op *RemoveConstraint) Validate() error {
	if err := op.validateModel(); err != nil {
		return err
	}
	return ValidateIdentifier(op.Name)
}

// RunData executes raw SQL. Reverse is optional; without it the
// operation cannot be rolled back.
type RunData struct {
	Forward string
	Reverse string
}

func (op *RunData) Type() OpType  { return OpRunData }
func (op *RunData) Model() string { return "" }

func (op *RunData) Validate() error {
	if op.Forward == "" {
		return merr.New(merr.ErrInvalidOperation, "run_data has no forward SQL")
	}
	return nil
}

// Reversible reports whether the operation carries a reverse script.
func (op *RunData) Reversible() bool {
	return op.Reverse != ""
}

// Describe renders a one-line human summary of an operation, used by
// status output and generated migration headers.
func Describe(op Operation) string {
	switch o := op.(type) {
	case *CreateModel:
		return "create model " + o.Name
	case *DeleteModel:
		return "delete model " + o.Name
	case *RenameModel:
		return "rename model " + o.OldName + " to " + o.NewName
	case *AddField:
		return "add field " + o.ModelName + "." + o.Field.Name
	case *RemoveField:
		return "remove field " + o.ModelName + "." + o.Name
	case *AlterField:
		return "alter field " + o.ModelName + "." + o.Old.Name
	case *RenameField:
		return "rename field " + o.ModelName + "." + o.OldName + " to " + o.NewName
	case *AddIndex:
		return "add index " + o.Index.ResolvedName(o.ModelName) + " on " + o.ModelName
	case *RemoveIndex:
		return "remove index " + o.Name + " on " + o.ModelName
	case *AddConstraint:
		return "add constraint " + o.Constraint.Name + " on " + o.ModelName
	case *RemoveConstraint:
		return "remove constraint " + o.Name + " on " + o.ModelName
	case *RunData:
		return "run data migration"
	default:
		return string(op.Type())
	}
}
