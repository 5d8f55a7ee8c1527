package engine

import (
	"fmt"

	"github.com/marchdb/march/internal/ast"
)

// WarningKind classifies lint findings on a generated operation list.
type WarningKind string

const (
	// WarnRequiresDefault flags a non-nullable field added without a
	// default: existing rows cannot satisfy it on most backends.
	WarnRequiresDefault WarningKind = "requires_default"
	// WarnDestructive flags operations that discard data.
	WarnDestructive WarningKind = "destructive"
	// WarnIrreversible flags operations that cannot be rolled back.
	WarnIrreversible WarningKind = "irreversible"
	// WarnForwardReference flags a created table whose foreign key
	// points at a table created later in the same list. Creates are
	// only ordered this way when a nullable reference cycle leaves no
	// valid order; backends that resolve references at creation time
	// reject the inline REFERENCES clause.
	WarnForwardReference WarningKind = "forward_reference"
)

// Warning is one lint finding. Warnings never block generation.
type Warning struct {
	Kind      WarningKind
	Operation ast.Operation
	Message   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Lint inspects a generated operation list for changes that need
// attention before they run against real data.
func Lint(ops []ast.Operation) []Warning {
	var warnings []Warning
	createPos := map[string]int{}
	for i, op := range ops {
		if c, ok := op.(*ast.CreateModel); ok {
			createPos[c.Name] = i
		}
	}
	for i, op := range ops {
		switch o := op.(type) {
		case *ast.CreateModel:
			for _, f := range o.Fields {
				if f.Type != ast.TypeForeignKey || f.Reference == nil {
					continue
				}
				if later, ok := createPos[f.Reference.Model]; ok && later > i {
					warnings = append(warnings, Warning{
						Kind:      WarnForwardReference,
						Operation: op,
						Message: fmt.Sprintf("%s.%s references %s before it is created; on backends that validate references at creation, create the foreign key manually after both tables exist",
							o.Name, f.Name, f.Reference.Model),
					})
				}
			}
		case *ast.AddField:
			if !o.Field.Nullable && !o.Field.PrimaryKey && !o.Field.HasDefault() {
				warnings = append(warnings, Warning{
					Kind:      WarnRequiresDefault,
					Operation: op,
					Message: fmt.Sprintf("field %s.%s is not nullable and has no default; adding it fails on non-empty tables",
						o.ModelName, o.Field.Name),
				})
			}
		case *ast.DeleteModel:
			warnings = append(warnings, Warning{
				Kind:      WarnDestructive,
				Operation: op,
				Message:   fmt.Sprintf("model %s and all its rows will be dropped", o.Name),
			})
		case *ast.RemoveField:
			warnings = append(warnings, Warning{
				Kind:      WarnDestructive,
				Operation: op,
				Message:   fmt.Sprintf("field %s.%s and its data will be dropped", o.ModelName, o.Name),
			})
		case *ast.RunData:
			if !o.Reversible() {
				warnings = append(warnings, Warning{
					Kind:      WarnIrreversible,
					Operation: op,
					Message:   "data migration has no reverse SQL and blocks rollback past this point",
				})
			}
		}
	}
	return warnings
}
