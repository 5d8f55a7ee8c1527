package dialect

import (
	"fmt"
	"strings"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/merr"
)

// quoteIdent double-quotes an identifier, escaping embedded quotes.
// Both supported backends use the SQL standard form.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func writeQuotedList(b *strings.Builder, d Dialect, names []string) {
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.QuoteIdent(name))
	}
}

// booleanLiterals parameterizes how a dialect spells boolean defaults.
type booleanLiterals struct {
	True  string
	False string
}

// buildDefaultSQL renders a default value. Expressions pass through
// after the dialect's rewrite hook; literals are rendered by Go type.
func buildDefaultSQL(def *ast.DefaultValue, bools booleanLiterals, rewriteExpr func(string) string) string {
	if def.IsExpr() {
		if rewriteExpr != nil {
			return rewriteExpr(def.Expr)
		}
		return def.Expr
	}
	switch v := def.Literal.(type) {
	case bool:
		if v {
			return bools.True
		}
		return bools.False
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case nil:
		return "NULL"
	default:
		return fmt.Sprint(v)
	}
}

// columnTyper maps a field to the dialect's native column type,
// including any identity clause for primary keys.
type columnTyper interface {
	Dialect
	columnType(f *ast.FieldState) string
	defaultSQL(def *ast.DefaultValue) string
}

// buildColumnDef renders one column definition for CREATE TABLE and
// ADD COLUMN.
func buildColumnDef(d columnTyper, f *ast.FieldState) string {
	parts := []string{d.QuoteIdent(f.Name), d.columnType(f)}
	if f.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else {
		if !f.Nullable {
			parts = append(parts, "NOT NULL")
		}
		if f.Unique {
			parts = append(parts, "UNIQUE")
		}
	}
	if f.HasDefault() {
		parts = append(parts, "DEFAULT "+d.defaultSQL(f.Default))
	}
	if f.Type == ast.TypeForeignKey && f.Reference != nil {
		parts = append(parts, fmt.Sprintf("REFERENCES %s (%s) ON DELETE %s",
			d.QuoteIdent(f.Reference.Model),
			d.QuoteIdent(f.Reference.TargetField()),
			f.Reference.Action()))
	}
	return strings.Join(parts, " ")
}

func buildConstraintClause(d Dialect, c *ast.ConstraintState) string {
	var b strings.Builder
	b.WriteString("CONSTRAINT ")
	b.WriteString(d.QuoteIdent(c.Name))
	switch c.Kind {
	case ast.CheckConstraint:
		b.WriteString(" CHECK (")
		b.WriteString(c.Expression)
		b.WriteString(")")
	case ast.UniqueConstraint:
		b.WriteString(" UNIQUE (")
		writeQuotedList(&b, d, c.Fields)
		b.WriteString(")")
	}
	return b.String()
}

// buildCreateModelSQL renders CREATE TABLE plus one CREATE INDEX per
// secondary index.
func buildCreateModelSQL(d columnTyper, op *ast.CreateModel) []string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.QuoteIdent(op.Name))
	b.WriteString(" (\n")
	for i, f := range op.Fields {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(buildColumnDef(d, f))
	}
	for _, c := range op.Constraints {
		b.WriteString(",\n  ")
		b.WriteString(buildConstraintClause(d, c))
	}
	b.WriteString("\n)")

	stmts := []string{b.String()}
	for _, ix := range op.Indexes {
		stmts = append(stmts, buildCreateIndexSQL(d, op.Name, ix))
	}
	return stmts
}

func buildCreateIndexSQL(d Dialect, model string, ix *ast.IndexState) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	b.WriteString(d.QuoteIdent(ix.ResolvedName(model)))
	b.WriteString(" ON ")
	b.WriteString(d.QuoteIdent(model))
	b.WriteString(" (")
	writeQuotedList(&b, d, ix.Fields)
	b.WriteString(")")
	return b.String()
}

func buildAddFieldSQL(d columnTyper, op *ast.AddField) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		d.QuoteIdent(op.ModelName), buildColumnDef(d, op.Field))
}

func buildRemoveFieldSQL(d Dialect, op *ast.RemoveField) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		d.QuoteIdent(op.ModelName), d.QuoteIdent(op.Name))
}

func buildRenameFieldSQL(d Dialect, op *ast.RenameField) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		d.QuoteIdent(op.ModelName), d.QuoteIdent(op.OldName), d.QuoteIdent(op.NewName))
}

func buildRenameModelSQL(d Dialect, op *ast.RenameModel) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s",
		d.QuoteIdent(op.OldName), d.QuoteIdent(op.NewName))
}

func buildDeleteModelSQL(d Dialect, op *ast.DeleteModel) string {
	return "DROP TABLE " + d.QuoteIdent(op.Name)
}

func buildRemoveIndexSQL(d Dialect, op *ast.RemoveIndex) string {
	return "DROP INDEX " + d.QuoteIdent(op.Name)
}

func unsupported(d Dialect, what string, op ast.Operation) *merr.Error {
	return merr.Newf(merr.ErrBackend, "%s does not support %s", d.Name(), what).
		WithModel(op.Model()).
		With("operation", string(op.Type()))
}

// SplitStatements splits a SQL script on semicolons, respecting single
// quoted strings ('' escapes) and postgres dollar-quoted blocks.
func SplitStatements(script string) []string {
	var stmts []string
	var b strings.Builder
	inQuote := false
	dollarTag := ""

	for i := 0; i < len(script); i++ {
		ch := script[i]

		if dollarTag != "" {
			b.WriteByte(ch)
			if ch == '$' && strings.HasSuffix(b.String(), dollarTag) {
				dollarTag = ""
			}
			continue
		}
		if inQuote {
			b.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(script) && script[i+1] == '\'' {
					b.WriteByte(script[i+1])
					i++
				} else {
					inQuote = false
				}
			}
			continue
		}

		switch ch {
		case '\'':
			inQuote = true
			b.WriteByte(ch)
		case '$':
			if tag, ok := scanDollarTag(script[i:]); ok {
				dollarTag = tag
				b.WriteString(tag)
				i += len(tag) - 1
			} else {
				b.WriteByte(ch)
			}
		case ';':
			if s := strings.TrimSpace(b.String()); s != "" {
				stmts = append(stmts, s)
			}
			b.Reset()
		default:
			b.WriteByte(ch)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

// scanDollarTag recognizes a $tag$ opener at the start of s.
func scanDollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	for i := 1; i < len(s); i++ {
		ch := s[i]
		if ch == '$' {
			return s[:i+1], true
		}
		if !(ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
			return "", false
		}
	}
	return "", false
}
