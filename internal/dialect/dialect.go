// Package dialect renders migration operations to backend-specific SQL.
package dialect

import (
	"sort"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/merr"
)

// Dialect renders each operation variant to one or more SQL statements.
type Dialect interface {
	Name() string
	QuoteIdent(name string) string
	// Placeholder returns the parameter marker for a 1-based position.
	Placeholder(index int) string
	SupportsTransactionalDDL() bool

	CreateModelSQL(op *ast.CreateModel) ([]string, error)
	DeleteModelSQL(op *ast.DeleteModel) (string, error)
	RenameModelSQL(op *ast.RenameModel) (string, error)
	AddFieldSQL(op *ast.AddField) (string, error)
	RemoveFieldSQL(op *ast.RemoveField) (string, error)
	AlterFieldSQL(op *ast.AlterField) ([]string, error)
	RenameFieldSQL(op *ast.RenameField) (string, error)
	AddIndexSQL(op *ast.AddIndex) (string, error)
	RemoveIndexSQL(op *ast.RemoveIndex) (string, error)
	AddConstraintSQL(op *ast.AddConstraint) (string, error)
	RemoveConstraintSQL(op *ast.RemoveConstraint) (string, error)
}

var dialects = map[string]func() Dialect{
	"postgres": func() Dialect { return &Postgres{} },
	"sqlite":   func() Dialect { return &SQLite{} },
}

// Get returns the named dialect.
func Get(name string) (Dialect, error) {
	factory, ok := dialects[name]
	if !ok {
		return nil, merr.Newf(merr.ErrBackend, "unsupported dialect %q", name).
			WithHelp(merr.SuggestSimilar(name, Names()))
	}
	return factory(), nil
}

// Names returns the supported dialect names, sorted.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OperationSQL validates an operation and renders it with the given
// dialect. RunData scripts are split into individual statements.
func OperationSQL(d Dialect, op ast.Operation) ([]string, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	switch o := op.(type) {
	case *ast.CreateModel:
		return d.CreateModelSQL(o)
	case *ast.DeleteModel:
		return one(d.DeleteModelSQL(o))
	case *ast.RenameModel:
		return one(d.RenameModelSQL(o))
	case *ast.AddField:
		return one(d.AddFieldSQL(o))
	case *ast.RemoveField:
		return one(d.RemoveFieldSQL(o))
	case *ast.AlterField:
		return d.AlterFieldSQL(o)
	case *ast.RenameField:
		return one(d.RenameFieldSQL(o))
	case *ast.AddIndex:
		return one(d.AddIndexSQL(o))
	case *ast.RemoveIndex:
		return one(d.RemoveIndexSQL(o))
	case *ast.AddConstraint:
		return one(d.AddConstraintSQL(o))
	case *ast.RemoveConstraint:
		return one(d.RemoveConstraintSQL(o))
	case *ast.RunData:
		return SplitStatements(o.Forward), nil
	default:
		return nil, merr.Newf(merr.ErrInternal, "unhandled operation type %q", op.Type())
	}
}

func one(sql string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{sql}, nil
}
