// Package migfile persists migration records as YAML files, one file per
// record, named "0001_label.yaml".
package migfile

import (
	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/merr"
)

type fileMigration struct {
	Seq        int             `yaml:"seq"`
	Label      string          `yaml:"label"`
	Operations []fileOperation `yaml:"operations"`
}

// fileOperation is a tagged union: exactly one member is set, and its
// YAML key names the operation.
type fileOperation struct {
	CreateModel      *fileTable            `yaml:"create_model,omitempty"`
	DeleteModel      *fileDeleteModel      `yaml:"delete_model,omitempty"`
	RenameModel      *fileRenameModel      `yaml:"rename_model,omitempty"`
	AddField         *fileAddField         `yaml:"add_field,omitempty"`
	RemoveField      *fileRemoveField      `yaml:"remove_field,omitempty"`
	AlterField       *fileAlterField       `yaml:"alter_field,omitempty"`
	RenameField      *fileRenameField      `yaml:"rename_field,omitempty"`
	AddIndex         *fileAddIndex         `yaml:"add_index,omitempty"`
	RemoveIndex      *fileRemoveIndex      `yaml:"remove_index,omitempty"`
	AddConstraint    *fileAddConstraint    `yaml:"add_constraint,omitempty"`
	RemoveConstraint *fileRemoveConstraint `yaml:"remove_constraint,omitempty"`
	RunData          *fileRunData          `yaml:"run_data,omitempty"`
}

type fileTable struct {
	Name        string           `yaml:"name"`
	Fields      []fileField      `yaml:"fields"`
	Indexes     []fileIndex      `yaml:"indexes,omitempty"`
	Constraints []fileConstraint `yaml:"constraints,omitempty"`
}

type fileField struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Nullable   bool           `yaml:"nullable,omitempty"`
	Unique     bool           `yaml:"unique,omitempty"`
	PrimaryKey bool           `yaml:"primary_key,omitempty"`
	MaxLength  int            `yaml:"max_length,omitempty"`
	Precision  int            `yaml:"precision,omitempty"`
	Scale      int            `yaml:"scale,omitempty"`
	Default    *fileDefault   `yaml:"default,omitempty"`
	References *fileReference `yaml:"references,omitempty"`
}

type fileDefault struct {
	Value any    `yaml:"value,omitempty"`
	Expr  string `yaml:"expr,omitempty"`
}

type fileReference struct {
	Model    string `yaml:"model"`
	Field    string `yaml:"field,omitempty"`
	OnDelete string `yaml:"on_delete,omitempty"`
}

type fileIndex struct {
	Name   string   `yaml:"name,omitempty"`
	Fields []string `yaml:"fields"`
	Unique bool     `yaml:"unique,omitempty"`
}

// fileConstraint uses either the check or the unique key to carry the
// constraint kind.
type fileConstraint struct {
	Name   string   `yaml:"name"`
	Check  string   `yaml:"check,omitempty"`
	Unique []string `yaml:"unique,omitempty"`
}

type fileDeleteModel struct {
	Name string     `yaml:"name"`
	Was  *fileTable `yaml:"was,omitempty"`
}

type fileRenameModel struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type fileAddField struct {
	Model string    `yaml:"model"`
	Field fileField `yaml:"field"`
}

type fileRemoveField struct {
	Model string     `yaml:"model"`
	Name  string     `yaml:"name"`
	Was   *fileField `yaml:"was,omitempty"`
}

type fileAlterField struct {
	Model string    `yaml:"model"`
	From  fileField `yaml:"from"`
	To    fileField `yaml:"to"`
}

type fileRenameField struct {
	Model string `yaml:"model"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

type fileAddIndex struct {
	Model string    `yaml:"model"`
	Index fileIndex `yaml:"index"`
}

type fileRemoveIndex struct {
	Model string     `yaml:"model"`
	Name  string     `yaml:"name"`
	Was   *fileIndex `yaml:"was,omitempty"`
}

type fileAddConstraint struct {
	Model      string         `yaml:"model"`
	Constraint fileConstraint `yaml:"constraint"`
}

type fileRemoveConstraint struct {
	Model string          `yaml:"model"`
	Name  string          `yaml:"name"`
	Was   *fileConstraint `yaml:"was,omitempty"`
}

type fileRunData struct {
	Forward string `yaml:"forward"`
	Reverse string `yaml:"reverse,omitempty"`
}

func fieldToFile(f *ast.FieldState) fileField {
	out := fileField{
		Name:       f.Name,
		Type:       string(f.Type),
		Nullable:   f.Nullable,
		Unique:     f.Unique,
		PrimaryKey: f.PrimaryKey,
		MaxLength:  f.MaxLength,
		Precision:  f.Precision,
		Scale:      f.Scale,
	}
	if f.Default != nil {
		out.Default = &fileDefault{Value: f.Default.Literal, Expr: f.Default.Expr}
	}
	if f.Reference != nil {
		out.References = &fileReference{
			Model:    f.Reference.Model,
			Field:    f.Reference.Field,
			OnDelete: f.Reference.OnDelete,
		}
	}
	return out
}

func fieldFromFile(f fileField) *ast.FieldState {
	out := &ast.FieldState{
		Name:       f.Name,
		Type:       ast.FieldType(f.Type),
		Nullable:   f.Nullable,
		Unique:     f.Unique,
		PrimaryKey: f.PrimaryKey,
		MaxLength:  f.MaxLength,
		Precision:  f.Precision,
		Scale:      f.Scale,
	}
	if f.Default != nil {
		out.Default = &ast.DefaultValue{Literal: f.Default.Value, Expr: f.Default.Expr}
	}
	if f.References != nil {
		out.Reference = &ast.Reference{
			Model:    f.References.Model,
			Field:    f.References.Field,
			OnDelete: f.References.OnDelete,
		}
	}
	return out
}

func indexToFile(ix *ast.IndexState) fileIndex {
	return fileIndex{Name: ix.Name, Fields: ix.Fields, Unique: ix.Unique}
}

func indexFromFile(ix fileIndex) *ast.IndexState {
	return &ast.IndexState{Name: ix.Name, Fields: ix.Fields, Unique: ix.Unique}
}

func constraintToFile(c *ast.ConstraintState) fileConstraint {
	out := fileConstraint{Name: c.Name}
	if c.Kind == ast.CheckConstraint {
		out.Check = c.Expression
	} else {
		out.Unique = c.Fields
	}
	return out
}

func constraintFromFile(c fileConstraint) *ast.ConstraintState {
	if c.Check != "" {
		return &ast.ConstraintState{Name: c.Name, Kind: ast.CheckConstraint, Expression: c.Check}
	}
	return &ast.ConstraintState{Name: c.Name, Kind: ast.UniqueConstraint, Fields: c.Unique}
}

func tableToFile(t *ast.TableState) *fileTable {
	out := &fileTable{Name: t.Name}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, fieldToFile(f))
	}
	for _, ix := range t.Indexes {
		out.Indexes = append(out.Indexes, indexToFile(ix))
	}
	for _, c := range t.Constraints {
		out.Constraints = append(out.Constraints, constraintToFile(c))
	}
	return out
}

func tableFromFile(t *fileTable) *ast.TableState {
	out := &ast.TableState{Name: t.Name}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, fieldFromFile(f))
	}
	for _, ix := range t.Indexes {
		out.Indexes = append(out.Indexes, indexFromFile(ix))
	}
	for _, c := range t.Constraints {
		out.Constraints = append(out.Constraints, constraintFromFile(c))
	}
	return out
}

func opToFile(op ast.Operation) (fileOperation, error) {
	switch o := op.(type) {
	case *ast.CreateModel:
		return fileOperation{CreateModel: tableToFile(o.State())}, nil
	case *ast.DeleteModel:
		f := &fileDeleteModel{Name: o.Name}
		if o.State != nil {
			f.Was = tableToFile(o.State)
		}
		return fileOperation{DeleteModel: f}, nil
	case *ast.RenameModel:
		return fileOperation{RenameModel: &fileRenameModel{From: o.OldName, To: o.NewName}}, nil
	case *ast.AddField:
		return fileOperation{AddField: &fileAddField{Model: o.ModelName, Field: fieldToFile(o.Field)}}, nil
	case *ast.RemoveField:
		f := &fileRemoveField{Model: o.ModelName, Name: o.Name}
		if o.Field != nil {
			was := fieldToFile(o.Field)
			f.Was = &was
		}
		return fileOperation{RemoveField: f}, nil
	case *ast.AlterField:
		return fileOperation{AlterField: &fileAlterField{
			Model: o.ModelName, From: fieldToFile(o.Old), To: fieldToFile(o.New),
		}}, nil
	case *ast.RenameField:
		return fileOperation{RenameField: &fileRenameField{Model: o.ModelName, From: o.OldName, To: o.NewName}}, nil
	case *ast.AddIndex:
		return fileOperation{AddIndex: &fileAddIndex{Model: o.ModelName, Index: indexToFile(o.Index)}}, nil
	case *ast.RemoveIndex:
		f := &fileRemoveIndex{Model: o.ModelName, Name: o.Name}
		if o.Index != nil {
			was := indexToFile(o.Index)
			f.Was = &was
		}
		return fileOperation{RemoveIndex: f}, nil
	case *ast.AddConstraint:
		return fileOperation{AddConstraint: &fileAddConstraint{
			Model: o.ModelName, Constraint: constraintToFile(o.Constraint),
		}}, nil
	case *ast.RemoveConstraint:
		f := &fileRemoveConstraint{Model: o.ModelName, Name: o.Name}
		if o.Constraint != nil {
			was := constraintToFile(o.Constraint)
			f.Was = &was
		}
		return fileOperation{RemoveConstraint: f}, nil
	case *ast.RunData:
		return fileOperation{RunData: &fileRunData{Forward: o.Forward, Reverse: o.Reverse}}, nil
	default:
		return fileOperation{}, merr.Newf(merr.ErrInternal, "unhandled operation type %q", op.Type())
	}
}

func opFromFile(f fileOperation) (ast.Operation, error) {
	switch {
	case f.CreateModel != nil:
		t := tableFromFile(f.CreateModel)
		return &ast.CreateModel{
			Name: t.Name, Fields: t.Fields, Indexes: t.Indexes, Constraints: t.Constraints,
		}, nil
	case f.DeleteModel != nil:
		op := &ast.DeleteModel{Name: f.DeleteModel.Name}
		if f.DeleteModel.Was != nil {
			op.State = tableFromFile(f.DeleteModel.Was)
		}
		return op, nil
	case f.RenameModel != nil:
		return &ast.RenameModel{OldName: f.RenameModel.From, NewName: f.RenameModel.To}, nil
	case f.AddField != nil:
		return &ast.AddField{
			ModelRef: ast.ModelRef{ModelName: f.AddField.Model},
			Field:    fieldFromFile(f.AddField.Field),
		}, nil
	case f.RemoveField != nil:
		op := &ast.RemoveField{
			ModelRef: ast.ModelRef{ModelName: f.RemoveField.Model},
			Name:     f.RemoveField.Name,
		}
		if f.RemoveField.Was != nil {
			op.Field = fieldFromFile(*f.RemoveField.Was)
		}
		return op, nil
	case f.AlterField != nil:
		return &ast.AlterField{
			ModelRef: ast.ModelRef{ModelName: f.AlterField.Model},
			Old:      fieldFromFile(f.AlterField.From),
			New:      fieldFromFile(f.AlterField.To),
		}, nil
	case f.RenameField != nil:
		return &ast.RenameField{
			ModelRef: ast.ModelRef{ModelName: f.RenameField.Model},
			OldName:  f.RenameField.From,
			NewName:  f.RenameField.To,
		}, nil
	case f.AddIndex != nil:
		return &ast.AddIndex{
			ModelRef: ast.ModelRef{ModelName: f.AddIndex.Model},
			Index:    indexFromFile(f.AddIndex.Index),
		}, nil
	case f.RemoveIndex != nil:
		op := &ast.RemoveIndex{
			ModelRef: ast.ModelRef{ModelName: f.RemoveIndex.Model},
			Name:     f.RemoveIndex.Name,
		}
		if f.RemoveIndex.Was != nil {
			op.Index = indexFromFile(*f.RemoveIndex.Was)
		}
		return op, nil
	case f.AddConstraint != nil:
		return &ast.AddConstraint{
			ModelRef:   ast.ModelRef{ModelName: f.AddConstraint.Model},
			Constraint: constraintFromFile(f.AddConstraint.Constraint),
		}, nil
	case f.RemoveConstraint != nil:
		op := &ast.RemoveConstraint{
			ModelRef: ast.ModelRef{ModelName: f.RemoveConstraint.Model},
			Name:     f.RemoveConstraint.Name,
		}
		if f.RemoveConstraint.Was != nil {
			op.Constraint = constraintFromFile(*f.RemoveConstraint.Was)
		}
		return op, nil
	case f.RunData != nil:
		return &ast.RunData{Forward: f.RunData.Forward, Reverse: f.RunData.Reverse}, nil
	default:
		return nil, merr.New(merr.ErrMigrationInvalid, "operation entry names no known operation")
	}
}
