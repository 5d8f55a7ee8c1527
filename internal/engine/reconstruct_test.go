package engine

import (
	"testing"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/engine/state"
	"github.com/marchdb/march/internal/merr"
)

func TestReconstruct(t *testing.T) {
	records := []chain.Record{
		{Seq: 1, Label: "initial", Operations: []ast.Operation{
			&ast.CreateModel{Name: "users", Fields: []*ast.FieldState{
				{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			}},
		}},
		{Seq: 2, Label: "add_email", Operations: []ast.Operation{
			&ast.AddField{ModelRef: ast.ModelRef{ModelName: "users"},
				Field: &ast.FieldState{Name: "email", Type: ast.TypeString, Nullable: true}},
		}},
	}
	s, err := Reconstruct(records)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if !s.Table("users").HasField("email") {
		t.Error("replayed schema missing the added field")
	}
}

func TestReconstructReportsBrokenHistory(t *testing.T) {
	records := []chain.Record{
		{Seq: 1, Label: "orphan", Operations: []ast.Operation{
			&ast.AddField{ModelRef: ast.ModelRef{ModelName: "ghosts"},
				Field: &ast.FieldState{Name: "x", Type: ast.TypeText, Nullable: true}},
		}},
	}
	_, err := Reconstruct(records)
	if !merr.Is(err, merr.ErrInconsistentHistory) {
		t.Fatalf("got %v, want inconsistent history", err)
	}
}

func TestPendingComposesReplayAndDiff(t *testing.T) {
	ch, err := chain.New([]chain.Record{
		{Seq: 1, Label: "initial", Operations: []ast.Operation{
			&ast.CreateModel{Name: "users", Fields: []*ast.FieldState{
				{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("chain.New: %v", err)
	}

	desired := state.NewSchema()
	desired.Tables["users"] = &ast.TableState{
		Name: "users",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "email", Type: ast.TypeString, Nullable: true},
		},
	}

	ops, err := Pending(ch, desired, nil)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(ops) != 1 || ops[0].Type() != ast.OpAddField {
		t.Errorf("pending ops = %v, want one add_field", ops)
	}

	// A desired state equal to the replayed history has nothing pending.
	desired.Tables["users"].Fields = desired.Tables["users"].Fields[:1]
	ops, err = Pending(ch, desired, nil)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("pending ops = %v, want none", ops)
	}
}
