package dialect

import (
	"fmt"
	"regexp"

	"github.com/marchdb/march/internal/ast"
)

// SQLite renders operations as SQLite DDL. Several ALTER TABLE forms do
// not exist on SQLite and are reported as backend errors rather than
// silently approximated.
type SQLite struct{}

func (s *SQLite) Name() string                   { return "sqlite" }
func (s *SQLite) QuoteIdent(name string) string  { return quoteIdent(name) }
func (s *SQLite) Placeholder(int) string         { return "?" }
func (s *SQLite) SupportsTransactionalDDL() bool { return true }

func (s *SQLite) columnType(f *ast.FieldState) string {
	switch f.Type {
	case ast.TypeString, ast.TypeText:
		return "TEXT"
	case ast.TypeInteger, ast.TypeBigInt, ast.TypeForeignKey:
		return "INTEGER"
	case ast.TypeFloat, ast.TypeDecimal:
		return "REAL"
	case ast.TypeBoolean:
		return "INTEGER"
	case ast.TypeDate, ast.TypeDateTime, ast.TypeUUID, ast.TypeJSON:
		return "TEXT"
	case ast.TypeBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}

var nowExprRe = regexp.MustCompile(`(?i)\bNOW\(\)`)

func (s *SQLite) defaultSQL(def *ast.DefaultValue) string {
	return buildDefaultSQL(def, booleanLiterals{True: "1", False: "0"}, func(expr string) string {
		return nowExprRe.ReplaceAllString(expr, "CURRENT_TIMESTAMP")
	})
}

func (s *SQLite) CreateModelSQL(op *ast.CreateModel) ([]string, error) {
	return buildCreateModelSQL(s, op), nil
}

func (s *SQLite) DeleteModelSQL(op *ast.DeleteModel) (string, error) {
	return buildDeleteModelSQL(s, op), nil
}

func (s *SQLite) RenameModelSQL(op *ast.RenameModel) (string, error) {
	return buildRenameModelSQL(s, op), nil
}

func (s *SQLite) AddFieldSQL(op *ast.AddField) (string, error) {
	// SQLite refuses a NOT NULL column without default on a non-empty
	// table at execution time; the lint pass flags it earlier.
	return buildAddFieldSQL(s, op), nil
}

func (s *SQLite) RemoveFieldSQL(op *ast.RemoveField) (string, error) {
	return buildRemoveFieldSQL(s, op), nil
}

func (s *SQLite) AlterFieldSQL(op *ast.AlterField) ([]string, error) {
	return nil, unsupported(s, "altering a column in place", op).
		WithHelp("recreate the table: add the new column, copy the data, drop the old one")
}

func (s *SQLite) RenameFieldSQL(op *ast.RenameField) (string, error) {
	return buildRenameFieldSQL(s, op), nil
}

func (s *SQLite) AddIndexSQL(op *ast.AddIndex) (string, error) {
	return buildCreateIndexSQL(s, op.ModelName, op.Index), nil
}

func (s *SQLite) RemoveIndexSQL(op *ast.RemoveIndex) (string, error) {
	return buildRemoveIndexSQL(s, op), nil
}

func (s *SQLite) AddConstraintSQL(op *ast.AddConstraint) (string, error) {
	if op.Constraint.Kind == ast.UniqueConstraint {
		// A unique constraint is expressible as a unique index.
		ix := &ast.IndexState{Name: op.Constraint.Name, Fields: op.Constraint.Fields, Unique: true}
		return buildCreateIndexSQL(s, op.ModelName, ix), nil
	}
	return "", unsupported(s, "adding a check constraint to an existing table", op)
}

func (s *SQLite) RemoveConstraintSQL(op *ast.RemoveConstraint) (string, error) {
	if op.Constraint != nil && op.Constraint.Kind == ast.UniqueConstraint {
		return fmt.Sprintf("DROP INDEX %s", s.QuoteIdent(op.Name)), nil
	}
	return "", unsupported(s, "dropping a check constraint", op)
}
