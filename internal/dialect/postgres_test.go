package dialect

import (
	"strings"
	"testing"

	"github.com/marchdb/march/internal/ast"
)

func TestPostgresCreateModelSQL(t *testing.T) {
	p := &Postgres{}
	op := &ast.CreateModel{
		Name: "users",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "email", Type: ast.TypeString, MaxLength: 255, Unique: true},
			{Name: "active", Type: ast.TypeBoolean, Default: &ast.DefaultValue{Literal: true}},
			{Name: "created_at", Type: ast.TypeDateTime, Default: &ast.DefaultValue{Expr: "NOW()"}},
		},
		Indexes: []*ast.IndexState{{Fields: []string{"email"}}},
	}
	stmts, err := p.CreateModelSQL(op)
	if err != nil {
		t.Fatalf("CreateModelSQL: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(stmts))
	}
	ddl := stmts[0]
	for _, want := range []string{
		`CREATE TABLE "users"`,
		`"id" BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY`,
		`"email" VARCHAR(255) NOT NULL UNIQUE`,
		`"active" BOOLEAN NOT NULL DEFAULT TRUE`,
		`"created_at" TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("missing %q in:\n%s", want, ddl)
		}
	}
	if want := `CREATE INDEX "idx_users_email" ON "users" ("email")`; stmts[1] != want {
		t.Errorf("index statement = %q, want %q", stmts[1], want)
	}
}

func TestPostgresCreateModelInlineReference(t *testing.T) {
	// The REFERENCES clause is rendered inline even when the target
	// table does not exist yet, as in the first create of a nullable
	// reference cycle. Generation surfaces that case as a warning
	// instead of reordering the SQL.
	p := &Postgres{}
	op := &ast.CreateModel{
		Name: "b",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "a_id", Type: ast.TypeForeignKey, Nullable: true, Reference: &ast.Reference{Model: "a"}},
		},
	}
	stmts, err := p.CreateModelSQL(op)
	if err != nil {
		t.Fatalf("CreateModelSQL: %v", err)
	}
	if !strings.Contains(stmts[0], `"a_id" BIGINT REFERENCES "a" ("id")`) {
		t.Errorf("missing inline reference in:\n%s", stmts[0])
	}
}

func TestPostgresForeignKeyColumn(t *testing.T) {
	p := &Postgres{}
	op := &ast.AddField{
		ModelRef: ast.ModelRef{ModelName: "posts"},
		Field: &ast.FieldState{
			Name: "author_id", Type: ast.TypeForeignKey, Nullable: true,
			Reference: &ast.Reference{Model: "users", OnDelete: ast.OnDeleteSetNull},
		},
	}
	got, err := p.AddFieldSQL(op)
	if err != nil {
		t.Fatalf("AddFieldSQL: %v", err)
	}
	want := `ALTER TABLE "posts" ADD COLUMN "author_id" BIGINT REFERENCES "users" ("id") ON DELETE SET NULL`
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestPostgresAlterFieldSQL(t *testing.T) {
	p := &Postgres{}
	op := &ast.AlterField{
		ModelRef: ast.ModelRef{ModelName: "users"},
		Old:      &ast.FieldState{Name: "email", Type: ast.TypeString, MaxLength: 100, Nullable: true},
		New: &ast.FieldState{
			Name: "email", Type: ast.TypeString, MaxLength: 255,
			Default: &ast.DefaultValue{Literal: "unknown"},
		},
	}
	stmts, err := p.AlterFieldSQL(op)
	if err != nil {
		t.Fatalf("AlterFieldSQL: %v", err)
	}
	want := []string{
		`ALTER TABLE "users" ALTER COLUMN "email" TYPE VARCHAR(255) USING "email"::VARCHAR(255)`,
		`ALTER TABLE "users" ALTER COLUMN "email" SET NOT NULL`,
		`ALTER TABLE "users" ALTER COLUMN "email" SET DEFAULT 'unknown'`,
	}
	if len(stmts) != len(want) {
		t.Fatalf("got %d statements %v, want %d", len(stmts), stmts, len(want))
	}
	for i := range want {
		if stmts[i] != want[i] {
			t.Errorf("statement %d = %q, want %q", i, stmts[i], want[i])
		}
	}
}

func TestPostgresConstraints(t *testing.T) {
	p := &Postgres{}
	add := &ast.AddConstraint{
		ModelRef: ast.ModelRef{ModelName: "users"},
		Constraint: &ast.ConstraintState{
			Name: "email_not_blank", Kind: ast.CheckConstraint, Expression: "email <> ''",
		},
	}
	got, err := p.AddConstraintSQL(add)
	if err != nil {
		t.Fatalf("AddConstraintSQL: %v", err)
	}
	want := `ALTER TABLE "users" ADD CONSTRAINT "email_not_blank" CHECK (email <> '')`
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}

	rm := &ast.RemoveConstraint{ModelRef: ast.ModelRef{ModelName: "users"}, Name: "email_not_blank"}
	got, err = p.RemoveConstraintSQL(rm)
	if err != nil {
		t.Fatalf("RemoveConstraintSQL: %v", err)
	}
	if want := `ALTER TABLE "users" DROP CONSTRAINT "email_not_blank"`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPostgresPlaceholder(t *testing.T) {
	p := &Postgres{}
	if got := p.Placeholder(2); got != "$2" {
		t.Errorf("Placeholder(2) = %q, want $2", got)
	}
}

func TestQuoteIdentEscapes(t *testing.T) {
	if got := quoteIdent(`wei"rd`); got != `"wei""rd"` {
		t.Errorf("quoteIdent = %q", got)
	}
}
