package engine

import (
	"testing"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/merr"
)

func fourStepChain(t *testing.T) *chain.Chain {
	t.Helper()
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
		{Seq: 3, Label: "add_bio", Operations: []ast.Operation{
			&ast.AddField{ModelRef: ast.ModelRef{ModelName: "users"},
				Field: &ast.FieldState{Name: "bio", Type: ast.TypeText, Nullable: true}},
		}},
		{Seq: 4, Label: "backfill", Operations: []ast.Operation{
			&ast.RunData{Forward: "UPDATE users SET bio = ''"},
		}},
	}
	ch, err := chain.New(records)
	if err != nil {
		t.Fatalf("chain.New: %v", err)
	}
	return ch
}

func TestBuildPlanForward(t *testing.T) {
	ch := fourStepChain(t)
	plan, err := BuildPlan(ch, 1, 3)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.Direction != DirectionUp {
		t.Errorf("direction = %s, want up", plan.Direction)
	}
	if len(plan.Steps) != 2 || plan.Steps[0].Record.Seq != 2 || plan.Steps[1].Record.Seq != 3 {
		t.Errorf("unexpected steps: %+v", plan.Steps)
	}
}

func TestBuildPlanBackward(t *testing.T) {
	ch := fourStepChain(t)
	plan, err := BuildPlan(ch, 3, 2)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.Direction != DirectionDown {
		t.Errorf("direction = %s, want down", plan.Direction)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Record.Seq != 3 {
		t.Fatalf("unexpected steps: %+v", plan.Steps)
	}
	if plan.Steps[0].Operations[0].Type() != ast.OpRemoveField {
		t.Errorf("backward step not inverted: %s", plan.Steps[0].Operations[0].Type())
	}
}

func TestBuildPlanNoop(t *testing.T) {
	ch := fourStepChain(t)
	plan, err := BuildPlan(ch, 2, 2)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if !plan.IsEmpty() {
		t.Errorf("plan should be empty, got %d steps", len(plan.Steps))
	}
}

func TestBuildPlanIrreversibleRollback(t *testing.T) {
	ch := fourStepChain(t)
	// Rolling back past migration 4 fails: its RunData has no reverse.
	_, err := BuildPlan(ch, 4, 3)
	if !merr.Is(err, merr.ErrIrreversible) {
		t.Errorf("got %v, want irreversible", err)
	}
}

func TestAppliedPrefix(t *testing.T) {
	ch := fourStepChain(t)

	tests := []struct {
		name    string
		applied []string
		want    int
		wantErr string
	}{
		{"nothing applied", nil, 0, ""},
		{"full prefix", []string{"0001_initial", "0002_add_email"}, 2, ""},
		{"everything applied", []string{"0001_initial", "0002_add_email", "0003_add_bio", "0004_backfill"}, 4, ""},
		{"hole in history", []string{"0001_initial", "0003_add_bio"}, 0, merr.ErrInconsistentHistory},
		{"unknown migration recorded", []string{"0001_initial", "0002_renamed_away"}, 0, merr.ErrInconsistentHistory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := appliedPrefix(ch, tt.applied)
			if tt.wantErr != "" {
				if !merr.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want code %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("appliedPrefix: %v", err)
			}
			if got != tt.want {
				t.Errorf("appliedPrefix = %d, want %d", got, tt.want)
			}
		})
	}
}
