package ast

import (
	"testing"

	"github.com/marchdb/march/internal/merr"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"users", true},
		{"_private", true},
		{"user_accounts2", true},
		{"", false},
		{"Users", false},
		{"2users", false},
		{"user-accounts", false},
		{"user accounts", false},
	}
	for _, tt := range tests {
		err := ValidateIdentifier(tt.name)
		if tt.valid && err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", tt.name, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ValidateIdentifier(%q) = nil, want error", tt.name)
		}
	}
}

func TestFieldStateValidate(t *testing.T) {
	tests := []struct {
		name  string
		field *FieldState
		valid bool
	}{
		{
			"plain string",
			&FieldState{Name: "email", Type: TypeString, MaxLength: 255},
			true,
		},
		{
			"foreign key",
			&FieldState{Name: "author_id", Type: TypeForeignKey, Reference: &Reference{Model: "users"}},
			true,
		},
		{
			"unknown type",
			&FieldState{Name: "x", Type: "varchar"},
			false,
		},
		{
			"fk without reference",
			&FieldState{Name: "author_id", Type: TypeForeignKey},
			false,
		},
		{
			"reference on non-fk",
			&FieldState{Name: "x", Type: TypeInteger, Reference: &Reference{Model: "users"}},
			false,
		},
		{
			"max_length on integer",
			&FieldState{Name: "n", Type: TypeInteger, MaxLength: 10},
			false,
		},
		{
			"nullable primary key",
			&FieldState{Name: "id", Type: TypeBigInt, PrimaryKey: true, Nullable: true},
			false,
		},
		{
			"default with literal and expr",
			&FieldState{Name: "x", Type: TypeInteger, Default: &DefaultValue{Literal: 1, Expr: "1"}},
			false,
		},
		{
			"bad on_delete",
			&FieldState{Name: "author_id", Type: TypeForeignKey, Reference: &Reference{Model: "users", OnDelete: "EXPLODE"}},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestFieldStateSameShape(t *testing.T) {
	a := &FieldState{Name: "email", Type: TypeString, MaxLength: 255, Unique: true}
	b := &FieldState{Name: "email_address", Type: TypeString, MaxLength: 255, Unique: true}
	if !a.SameShape(b) {
		t.Error("fields differing only in name should have the same shape")
	}
	if a.Equal(b) {
		t.Error("fields with different names are not equal")
	}

	c := b.Clone()
	c.Nullable = true
	if a.SameShape(c) {
		t.Error("nullability change should break shape equality")
	}
}

func TestTableStateCloneIsDeep(t *testing.T) {
	orig := &TableState{
		Name: "users",
		Fields: []*FieldState{
			{Name: "id", Type: TypeBigInt, PrimaryKey: true},
			{Name: "email", Type: TypeString, MaxLength: 255, Default: &DefaultValue{Literal: "x"}},
		},
		Indexes: []*IndexState{{Fields: []string{"email"}, Unique: true}},
	}
	clone := orig.Clone()
	clone.Fields[1].MaxLength = 64
	clone.Fields[1].Default.Literal = "y"
	clone.Indexes[0].Fields[0] = "name"

	if orig.Fields[1].MaxLength != 255 {
		t.Error("clone shares field values with the original")
	}
	if orig.Fields[1].Default.Literal != "x" {
		t.Error("clone shares default values with the original")
	}
	if orig.Indexes[0].Fields[0] != "email" {
		t.Error("clone shares index fields with the original")
	}
}

func TestTableStateValidate(t *testing.T) {
	tests := []struct {
		name  string
		table *TableState
		valid bool
	}{
		{
			"valid",
			&TableState{Name: "users", Fields: []*FieldState{
				{Name: "id", Type: TypeBigInt, PrimaryKey: true},
				{Name: "email", Type: TypeString, MaxLength: 255},
			}},
			true,
		},
		{
			"no fields",
			&TableState{Name: "users"},
			false,
		},
		{
			"duplicate fields",
			&TableState{Name: "users", Fields: []*FieldState{
				{Name: "email", Type: TypeString},
				{Name: "email", Type: TypeText},
			}},
			false,
		},
		{
			"two primary keys",
			&TableState{Name: "users", Fields: []*FieldState{
				{Name: "id", Type: TypeBigInt, PrimaryKey: true},
				{Name: "uuid", Type: TypeUUID, PrimaryKey: true},
			}},
			false,
		},
		{
			"index on unknown field",
			&TableState{
				Name:    "users",
				Fields:  []*FieldState{{Name: "email", Type: TypeString}},
				Indexes: []*IndexState{{Fields: []string{"emial"}}},
			},
			false,
		},
		{
			"constraint on unknown field",
			&TableState{
				Name:   "users",
				Fields: []*FieldState{{Name: "email", Type: TypeString}},
				Constraints: []*ConstraintState{
					{Name: "uniq_pair", Kind: UniqueConstraint, Fields: []string{"name"}},
				},
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !merr.Is(err, merr.ErrInvalidOperation) {
					t.Errorf("want code %s, got %v", merr.ErrInvalidOperation, err)
				}
			}
		})
	}
}

func TestTableStateDependencies(t *testing.T) {
	table := &TableState{
		Name: "posts",
		Fields: []*FieldState{
			{Name: "id", Type: TypeBigInt, PrimaryKey: true},
			{Name: "author_id", Type: TypeForeignKey, Reference: &Reference{Model: "users"}},
			{Name: "editor_id", Type: TypeForeignKey, Reference: &Reference{Model: "users"}},
			{Name: "blog_id", Type: TypeForeignKey, Reference: &Reference{Model: "blogs"}},
			{Name: "parent_id", Type: TypeForeignKey, Reference: &Reference{Model: "posts"}},
		},
	}
	deps := table.Dependencies()
	want := []string{"blogs", "users"}
	if len(deps) != len(want) {
		t.Fatalf("Dependencies() = %v, want %v", deps, want)
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Errorf("Dependencies()[%d] = %q, want %q", i, deps[i], want[i])
		}
	}
}

func TestDefaultIndexName(t *testing.T) {
	if got := DefaultIndexName("users", []string{"email"}, false); got != "idx_users_email" {
		t.Errorf("got %q", got)
	}
	if got := DefaultIndexName("users", []string{"org", "email"}, true); got != "uniq_users_org_email" {
		t.Errorf("got %q", got)
	}
}
