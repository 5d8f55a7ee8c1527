package dialect

import (
	"fmt"

	"github.com/marchdb/march/internal/ast"
)

// Postgres renders operations as PostgreSQL DDL.
type Postgres struct{}

func (p *Postgres) Name() string                   { return "postgres" }
func (p *Postgres) QuoteIdent(name string) string  { return quoteIdent(name) }
func (p *Postgres) Placeholder(index int) string   { return fmt.Sprintf("$%d", index) }
func (p *Postgres) SupportsTransactionalDDL() bool { return true }

func (p *Postgres) columnType(f *ast.FieldState) string {
	switch f.Type {
	case ast.TypeString:
		if f.MaxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", f.MaxLength)
		}
		return "TEXT"
	case ast.TypeText:
		return "TEXT"
	case ast.TypeInteger:
		if f.PrimaryKey {
			return "INTEGER GENERATED BY DEFAULT AS IDENTITY"
		}
		return "INTEGER"
	case ast.TypeBigInt:
		if f.PrimaryKey {
			return "BIGINT GENERATED BY DEFAULT AS IDENTITY"
		}
		return "BIGINT"
	case ast.TypeFloat:
		return "DOUBLE PRECISION"
	case ast.TypeDecimal:
		if f.Precision > 0 {
			return fmt.Sprintf("NUMERIC(%d, %d)", f.Precision, f.Scale)
		}
		return "NUMERIC"
	case ast.TypeBoolean:
		return "BOOLEAN"
	case ast.TypeDate:
		return "DATE"
	case ast.TypeDateTime:
		return "TIMESTAMPTZ"
	case ast.TypeUUID:
		return "UUID"
	case ast.TypeJSON:
		return "JSONB"
	case ast.TypeBinary:
		return "BYTEA"
	case ast.TypeForeignKey:
		return "BIGINT"
	default:
		return "TEXT"
	}
}

func (p *Postgres) defaultSQL(def *ast.DefaultValue) string {
	return buildDefaultSQL(def, booleanLiterals{True: "TRUE", False: "FALSE"}, nil)
}

func (p *Postgres) CreateModelSQL(op *ast.CreateModel) ([]string, error) {
	return buildCreateModelSQL(p, op), nil
}

func (p *Postgres) DeleteModelSQL(op *ast.DeleteModel) (string, error) {
	return buildDeleteModelSQL(p, op), nil
}

func (p *Postgres) RenameModelSQL(op *ast.RenameModel) (string, error) {
	return buildRenameModelSQL(p, op), nil
}

func (p *Postgres) AddFieldSQL(op *ast.AddField) (string, error) {
	return buildAddFieldSQL(p, op), nil
}

func (p *Postgres) RemoveFieldSQL(op *ast.RemoveField) (string, error) {
	return buildRemoveFieldSQL(p, op), nil
}

// AlterFieldSQL renders one ALTER TABLE statement per changed aspect:
// type, nullability, default, and single-column uniqueness.
func (p *Postgres) AlterFieldSQL(op *ast.AlterField) ([]string, error) {
	if op.Old.PrimaryKey != op.New.PrimaryKey {
		return nil, unsupported(p, "changing a field's primary key status", op)
	}

	table := p.QuoteIdent(op.ModelName)
	column := p.QuoteIdent(op.New.Name)
	var stmts []string

	if p.columnType(op.Old) != p.columnType(op.New) {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
			table, column, p.columnType(op.New), column, p.columnType(op.New)))
	}
	if op.Old.Nullable != op.New.Nullable {
		if op.New.Nullable {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, column))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, column))
		}
	}
	if !op.Old.Default.Equal(op.New.Default) {
		if op.New.HasDefault() {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s",
				table, column, p.defaultSQL(op.New.Default)))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", table, column))
		}
	}
	if op.Old.Unique != op.New.Unique {
		constraint := p.QuoteIdent(ast.DefaultIndexName(op.ModelName, []string{op.New.Name}, true))
		if op.New.Unique {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
				table, constraint, column))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, constraint))
		}
	}
	return stmts, nil
}

func (p *Postgres) RenameFieldSQL(op *ast.RenameField) (string, error) {
	return buildRenameFieldSQL(p, op), nil
}

func (p *Postgres) AddIndexSQL(op *ast.AddIndex) (string, error) {
	return buildCreateIndexSQL(p, op.ModelName, op.Index), nil
}

func (p *Postgres) RemoveIndexSQL(op *ast.RemoveIndex) (string, error) {
	return buildRemoveIndexSQL(p, op), nil
}

func (p *Postgres) AddConstraintSQL(op *ast.AddConstraint) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD %s",
		p.QuoteIdent(op.ModelName), buildConstraintClause(p, op.Constraint)), nil
}

func (p *Postgres) RemoveConstraintSQL(op *ast.RemoveConstraint) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
		p.QuoteIdent(op.ModelName), p.QuoteIdent(op.Name)), nil
}
