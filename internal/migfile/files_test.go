package migfile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/merr"
)

func sampleRecord() chain.Record {
	return chain.Record{
		Seq:   1,
		Label: "initial",
		Operations: []ast.Operation{
			&ast.CreateModel{
				Name: "users",
				Fields: []*ast.FieldState{
					{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
					{Name: "email", Type: ast.TypeString, MaxLength: 255, Unique: true},
					{Name: "active", Type: ast.TypeBoolean, Default: &ast.DefaultValue{Literal: true}},
					{Name: "org_id", Type: ast.TypeForeignKey, Nullable: true,
						Reference: &ast.Reference{Model: "orgs", OnDelete: ast.OnDeleteSetNull}},
				},
				Indexes:     []*ast.IndexState{{Fields: []string{"email"}, Unique: true}},
				Constraints: []*ast.ConstraintState{{Name: "email_not_blank", Kind: ast.CheckConstraint, Expression: "email <> ''"}},
			},
			&ast.RunData{Forward: "UPDATE users SET active = 1", Reverse: "UPDATE users SET active = 0"},
		},
	}
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := sampleRecord()

	path, err := Write(dir, rec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "0001_initial.yaml" {
		t.Errorf("file name = %q", filepath.Base(path))
	}

	ch, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ch.Head() != 1 {
		t.Fatalf("Head() = %d, want 1", ch.Head())
	}
	got := ch.Records()[0]
	if got.Label != "initial" || len(got.Operations) != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !reflect.DeepEqual(got.Operations, rec.Operations) {
		t.Errorf("operations did not round trip:\ngot  %#v\nwant %#v", got.Operations, rec.Operations)
	}
}

func TestLoadMissingDirIsEmptyChain(t *testing.T) {
	ch, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ch.Head() != 0 {
		t.Errorf("Head() = %d, want 0", ch.Head())
	}
}

func TestLoadRejectsSeqMismatch(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "0002_initial.yaml"),
		[]byte("seq: 1\nlabel: initial\noperations: []\n"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(dir); !merr.Is(err, merr.ErrMigrationInvalid) {
		t.Errorf("got %v, want migration invalid", err)
	}
}

func TestLoadRejectsGap(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir, chain.Record{Seq: 1, Label: "a"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Write(dir, chain.Record{Seq: 3, Label: "c"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Load(dir); !merr.Is(err, merr.ErrInconsistentHistory) {
		t.Errorf("got %v, want inconsistent history", err)
	}
}

func TestLoadIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir, chain.Record{Seq: 1, Label: "a"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("x: 1"), 0o644)

	ch, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ch.Head() != 1 {
		t.Errorf("Head() = %d, want 1", ch.Head())
	}
}

func TestWriteNext(t *testing.T) {
	dir := t.TempDir()

	rec, path, err := WriteNext(dir, "initial", sampleRecord().Operations, 0)
	if err != nil {
		t.Fatalf("WriteNext: %v", err)
	}
	if rec.Seq != 1 || filepath.Base(path) != "0001_initial.yaml" {
		t.Errorf("rec = %+v, path = %q", rec, path)
	}

	rec, _, err = WriteNext(dir, "add_posts", nil, 1)
	if err != nil {
		t.Fatalf("WriteNext second: %v", err)
	}
	if rec.Seq != 2 {
		t.Errorf("second seq = %d, want 2", rec.Seq)
	}
}

func TestWriteNextDetectsConcurrentAppend(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := WriteNext(dir, "initial", nil, 0); err != nil {
		t.Fatalf("WriteNext: %v", err)
	}

	// A second generator computed against the empty directory.
	_, _, err := WriteNext(dir, "stale", nil, 0)
	if !merr.Is(err, merr.ErrConcurrentChain) {
		t.Errorf("got %v, want concurrent chain error", err)
	}
}

func TestWriteNextRejectsBadLabel(t *testing.T) {
	for _, label := range []string{"", "latest", "12", "Bad Label"} {
		if _, _, err := WriteNext(t.TempDir(), label, nil, 0); err == nil {
			t.Errorf("label %q accepted", label)
		}
	}
}
