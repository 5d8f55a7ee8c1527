package engine

import (
	"reflect"
	"testing"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/engine/state"
	"github.com/marchdb/march/internal/merr"
)

func schemaOf(t *testing.T, tables ...*ast.TableState) *state.Schema {
	t.Helper()
	s := state.NewSchema()
	for _, table := range tables {
		s.Tables[table.Name] = table.Clone()
	}
	return s
}

func users() *ast.TableState {
	return &ast.TableState{
		Name: "users",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "email", Type: ast.TypeString, MaxLength: 255, Unique: true},
		},
	}
}

func TestDiffIdenticalSchemasIsEmpty(t *testing.T) {
	old := schemaOf(t, users())
	new := schemaOf(t, users())

	ops, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("Diff of identical schemas = %d ops, want 0", len(ops))
	}
}

func TestDiffAddNullableField(t *testing.T) {
	old := schemaOf(t, users())
	changed := users()
	changed.Fields = append(changed.Fields, &ast.FieldState{
		Name: "bio", Type: ast.TypeText, Nullable: true,
	})
	new := schemaOf(t, changed)

	ops, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d ops %v, want 1", len(ops), ops)
	}
	add, ok := ops[0].(*ast.AddField)
	if !ok {
		t.Fatalf("got %T, want *ast.AddField", ops[0])
	}
	if add.ModelName != "users" || add.Field.Name != "bio" || !add.Field.Nullable {
		t.Errorf("unexpected op: %+v", add)
	}
}

func TestDiffDetectsFieldRename(t *testing.T) {
	old := schemaOf(t, users())
	changed := users()
	changed.Fields[1].Name = "email_address"
	new := schemaOf(t, changed)

	ops, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d ops %v, want 1 rename", len(ops), ops)
	}
	rename, ok := ops[0].(*ast.RenameField)
	if !ok {
		t.Fatalf("got %T, want *ast.RenameField", ops[0])
	}
	if rename.OldName != "email" || rename.NewName != "email_address" {
		t.Errorf("unexpected rename: %+v", rename)
	}
}

func TestDiffRenameWithShapeChange(t *testing.T) {
	old := schemaOf(t, users())
	changed := users()
	changed.Fields[1].Name = "email_address"
	changed.Fields[1].Nullable = true
	new := schemaOf(t, changed)

	ops, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops %v, want rename + alter", len(ops), ops)
	}
	if _, ok := ops[0].(*ast.RenameField); !ok {
		t.Errorf("ops[0] = %T, want rename", ops[0])
	}
	alter, ok := ops[1].(*ast.AlterField)
	if !ok {
		t.Fatalf("ops[1] = %T, want alter", ops[1])
	}
	if alter.Old.Name != "email_address" || !alter.New.Nullable {
		t.Errorf("unexpected alter: old=%+v new=%+v", alter.Old, alter.New)
	}
}

func TestDiffHintForcesRename(t *testing.T) {
	// A rename the detector would reject: different shape, unrelated name.
	old := schemaOf(t, &ast.TableState{
		Name:   "users",
		Fields: []*ast.FieldState{{Name: "zz", Type: ast.TypeInteger}},
	})
	new := schemaOf(t, &ast.TableState{
		Name:   "users",
		Fields: []*ast.FieldState{{Name: "login_count", Type: ast.TypeBigInt}},
	})

	hints := &RenameHints{Fields: map[string]string{"users.zz": "login_count"}}
	ops, err := Diff(old, new, hints)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops %v, want rename + alter", len(ops), ops)
	}
	if _, ok := ops[0].(*ast.RenameField); !ok {
		t.Errorf("ops[0] = %T, want rename", ops[0])
	}
}

func TestDiffDetectsModelRename(t *testing.T) {
	old := schemaOf(t, users())
	renamed := users()
	renamed.Name = "accounts"
	new := schemaOf(t, renamed)

	ops, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d ops %v, want 1", len(ops), ops)
	}
	rename, ok := ops[0].(*ast.RenameModel)
	if !ok {
		t.Fatalf("got %T, want *ast.RenameModel", ops[0])
	}
	if rename.OldName != "users" || rename.NewName != "accounts" {
		t.Errorf("unexpected rename: %+v", rename)
	}
}

func TestDiffModelRenameLeadsTheList(t *testing.T) {
	// Later operations must target the post-rename name, so the rename
	// has to come first for the list to replay.
	old := schemaOf(t, users())
	renamed := users()
	renamed.Name = "accounts"
	renamed.Fields = append(renamed.Fields, &ast.FieldState{
		Name: "bio", Type: ast.TypeText, Nullable: true,
	})
	new := schemaOf(t, renamed)

	ops, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops %v, want rename + add", len(ops), ops)
	}
	if _, ok := ops[0].(*ast.RenameModel); !ok {
		t.Fatalf("ops[0] = %T, want *ast.RenameModel", ops[0])
	}
	add, ok := ops[1].(*ast.AddField)
	if !ok {
		t.Fatalf("ops[1] = %T, want *ast.AddField", ops[1])
	}
	if add.ModelName != "accounts" {
		t.Errorf("add targets %q, want the new name", add.ModelName)
	}
}

func TestDiffCreateOrderFollowsForeignKeys(t *testing.T) {
	posts := &ast.TableState{
		Name: "posts",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "author_id", Type: ast.TypeForeignKey, Reference: &ast.Reference{Model: "users"}},
		},
	}
	// Alphabetically posts would come first; the FK forces users first.
	new := schemaOf(t, posts, users())

	ops, err := Diff(state.NewSchema(), new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(ops))
	}
	if ops[0].Model() != "users" || ops[1].Model() != "posts" {
		t.Errorf("create order = [%s, %s], want [users, posts]", ops[0].Model(), ops[1].Model())
	}
}

func TestDiffCyclicNonNullableForeignKeys(t *testing.T) {
	a := &ast.TableState{
		Name: "a",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "b_id", Type: ast.TypeForeignKey, Reference: &ast.Reference{Model: "b"}},
		},
	}
	b := &ast.TableState{
		Name: "b",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "a_id", Type: ast.TypeForeignKey, Reference: &ast.Reference{Model: "a"}},
		},
	}
	_, err := Diff(state.NewSchema(), schemaOf(t, a, b), nil)
	if !merr.Is(err, merr.ErrCyclicDependency) {
		t.Errorf("got %v, want cyclic dependency", err)
	}

	// Making one side nullable breaks the cycle.
	b.Fields[1].Nullable = true
	ops, err := Diff(state.NewSchema(), schemaOf(t, a, b), nil)
	if err != nil {
		t.Fatalf("Diff with nullable edge: %v", err)
	}
	if len(ops) != 2 || ops[0].Model() != "b" || ops[1].Model() != "a" {
		t.Errorf("unexpected order: %v", ops)
	}
}

func TestDiffDeleteOrderReversesForeignKeys(t *testing.T) {
	posts := &ast.TableState{
		Name: "posts",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "author_id", Type: ast.TypeForeignKey, Reference: &ast.Reference{Model: "users"}},
		},
	}
	old := schemaOf(t, posts, users())

	ops, err := Diff(old, state.NewSchema(), nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(ops))
	}
	if ops[0].Model() != "posts" || ops[1].Model() != "users" {
		t.Errorf("delete order = [%s, %s], want [posts, users]", ops[0].Model(), ops[1].Model())
	}
	del := ops[1].(*ast.DeleteModel)
	if del.State == nil || !del.State.HasField("email") {
		t.Error("delete should carry the dropped definition")
	}
}

func TestDiffRoundTrip(t *testing.T) {
	old := schemaOf(t, users())

	changed := users()
	changed.Fields[1].Name = "email_address"
	changed.Fields = append(changed.Fields, &ast.FieldState{Name: "bio", Type: ast.TypeText, Nullable: true})
	changed.Indexes = []*ast.IndexState{{Fields: []string{"bio"}}}
	posts := &ast.TableState{
		Name: "posts",
		Fields: []*ast.FieldState{
			{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
			{Name: "author_id", Type: ast.TypeForeignKey, Reference: &ast.Reference{Model: "users"}},
		},
	}
	new := schemaOf(t, changed, posts)

	ops, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	applied, err := state.ApplyAll(old, ops)
	if err != nil {
		t.Fatalf("ApplyAll(Diff): %v", err)
	}
	if !applied.Equal(new) {
		t.Errorf("applying the diff did not reproduce the target schema\ngot tables %v", applied.TableNames())
	}

	// Inverting in reverse returns to the starting schema.
	inverted, err := InvertAll(ops)
	if err != nil {
		t.Fatalf("InvertAll: %v", err)
	}
	back, err := state.ApplyAll(applied, inverted)
	if err != nil {
		t.Fatalf("ApplyAll(inverted): %v", err)
	}
	if !back.Equal(old) {
		t.Errorf("inverting the diff did not return to the original schema\ngot tables %v", back.TableNames())
	}
}

func TestDiffRedefinedIndexAndConstraintApply(t *testing.T) {
	base := func() *ast.TableState {
		return &ast.TableState{
			Name: "users",
			Fields: []*ast.FieldState{
				{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true},
				{Name: "a", Type: ast.TypeInteger},
				{Name: "b", Type: ast.TypeInteger},
				{Name: "age", Type: ast.TypeInteger},
			},
		}
	}
	oldT := base()
	oldT.Indexes = []*ast.IndexState{{Name: "idx_custom", Fields: []string{"a"}}}
	oldT.Constraints = []*ast.ConstraintState{
		{Name: "age_positive", Kind: ast.CheckConstraint, Expression: "age > 0"},
	}
	newT := base()
	newT.Indexes = []*ast.IndexState{{Name: "idx_custom", Fields: []string{"b"}}}
	newT.Constraints = []*ast.ConstraintState{
		{Name: "age_positive", Kind: ast.CheckConstraint, Expression: "age >= 18"},
	}
	old := schemaOf(t, oldT)
	new := schemaOf(t, newT)

	ops, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(ops) != 4 {
		t.Fatalf("got %d ops %v, want remove+add per redefined object", len(ops), ops)
	}

	// The remove must precede the add that reuses its name.
	order := map[string]int{}
	for i, op := range ops {
		order[ast.Describe(op)] = i
	}
	for _, pair := range [][2]ast.Operation{
		{&ast.RemoveIndex{ModelRef: ast.ModelRef{ModelName: "users"}, Name: "idx_custom"},
			&ast.AddIndex{ModelRef: ast.ModelRef{ModelName: "users"}, Index: newT.Indexes[0]}},
		{&ast.RemoveConstraint{ModelRef: ast.ModelRef{ModelName: "users"}, Name: "age_positive"},
			&ast.AddConstraint{ModelRef: ast.ModelRef{ModelName: "users"}, Constraint: newT.Constraints[0]}},
	} {
		remove, add := ast.Describe(pair[0]), ast.Describe(pair[1])
		ri, ok := order[remove]
		if !ok {
			t.Fatalf("missing %q in %v", remove, ops)
		}
		ai, ok := order[add]
		if !ok {
			t.Fatalf("missing %q in %v", add, ops)
		}
		if ri > ai {
			t.Errorf("%q at %d comes after %q at %d", remove, ri, add, ai)
		}
	}

	applied, err := state.ApplyAll(old, ops)
	if err != nil {
		t.Fatalf("ApplyAll(Diff): %v", err)
	}
	if !applied.Equal(new) {
		t.Error("applying the diff did not reproduce the target schema")
	}
}

func TestDiffIsDeterministic(t *testing.T) {
	old := schemaOf(t, users())
	changed := users()
	changed.Fields = append(changed.Fields,
		&ast.FieldState{Name: "a", Type: ast.TypeText, Nullable: true},
		&ast.FieldState{Name: "b", Type: ast.TypeText, Nullable: true},
	)
	new := schemaOf(t, changed, &ast.TableState{
		Name:   "tags",
		Fields: []*ast.FieldState{{Name: "id", Type: ast.TypeBigInt, PrimaryKey: true}},
	})

	first, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	second, err := Diff(old, new, nil)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two identical diffs produced different output")
	}
}
