package registry

import (
	"testing"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/merr"
)

func userModel() *ast.TableState {
	return &ast.TableState{
		Name: "users",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
		},
	}
}

func TestRegisterAndSnapshot(t *testing.T) {
	r := NewModelRegistry()
	if err := r.Register(userModel()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	s, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !s.HasTable("users") {
		t.Fatal("snapshot missing registered model")
	}

	// The snapshot is detached from the registry.
	s.Tables["users"].Name = "mutated"
	again, _ := r.Snapshot()
	if !again.HasTable("users") || again.Tables["users"].Name != "users" {
		t.Error("snapshot mutation leaked into the registry")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewModelRegistry()
	if err := r.Register(userModel()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(userModel()); !merr.Is(err, merr.ErrInvalidOperation) {
		t.Errorf("duplicate register: got %v", err)
	}
}

func TestRegisterValidates(t *testing.T) {
	r := NewModelRegistry()
	err := r.Register(&ast.TableState{Name: "empty"})
	if !merr.Is(err, merr.ErrInvalidOperation) {
		t.Errorf("invalid model: got %v", err)
	}
	if r.Len() != 0 {
		t.Error("invalid model was registered anyway")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewModelRegistry()
	if err := r.Register(userModel()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got := r.Get("users")
	got.Fields[0].Name = "mutated"
	if r.Get("users").Fields[0].Name != "id" {
		t.Error("Get returned shared state")
	}
	if r.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}
