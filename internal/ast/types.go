// Package ast defines the schema state types and the migration operation
// vocabulary. Values here are plain data: validation lives on each type,
// applying operations to a schema lives in internal/engine/state, and
// rendering to SQL lives in internal/dialect.
package ast

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/marchdb/march/internal/merr"
)

// FieldType is the portable column type vocabulary. Dialects map each
// type to a native SQL type.
type FieldType string

const (
	TypeString     FieldType = "string"
	TypeText       FieldType = "text"
	TypeInteger    FieldType = "integer"
	TypeBigInt     FieldType = "bigint"
	TypeFloat      FieldType = "float"
	TypeDecimal    FieldType = "decimal"
	TypeBoolean    FieldType = "boolean"
	TypeDate       FieldType = "date"
	TypeDateTime   FieldType = "datetime"
	TypeUUID       FieldType = "uuid"
	TypeJSON       FieldType = "json"
	TypeBinary     FieldType = "binary"
	TypeForeignKey FieldType = "fk"
)

var fieldTypes = map[FieldType]bool{
	TypeString: true, TypeText: true, TypeInteger: true, TypeBigInt: true,
	TypeFloat: true, TypeDecimal: true, TypeBoolean: true, TypeDate: true,
	TypeDateTime: true, TypeUUID: true, TypeJSON: true, TypeBinary: true,
	TypeForeignKey: true,
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	return fieldTypes[t]
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateIdentifier checks that name is a legal lowercase SQL identifier.
func ValidateIdentifier(name string) error {
	if name == "" {
		return merr.New(merr.ErrInvalidOperation, "identifier is empty")
	}
	if !identRe.MatchString(name) {
		return merr.Newf(merr.ErrInvalidOperation, "invalid identifier %q", name).
			WithHelp("identifiers must be lowercase letters, digits and underscores, starting with a letter or underscore")
	}
	return nil
}

// DefaultValue is a column default: either a Go literal rendered by the
// dialect, or a raw server-side expression. Exactly one side is set.
type DefaultValue struct {
	Literal any
	Expr    string
}

// IsExpr reports whether the default is a server-side expression.
func (d *DefaultValue) IsExpr() bool {
	return d != nil && d.Expr != ""
}

// Equal compares two defaults structurally. Both nil is equal.
func (d *DefaultValue) Equal(o *DefaultValue) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Expr == o.Expr && reflect.DeepEqual(d.Literal, o.Literal)
}

// Clone returns a copy of the default.
func (d *DefaultValue) Clone() *DefaultValue {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Valid actions for Reference.OnDelete.
const (
	OnDeleteCascade  = "CASCADE"
	OnDeleteSetNull  = "SET NULL"
	OnDeleteRestrict = "RESTRICT"
	OnDeleteNoAction = "NO ACTION"
)

// Reference is the target of a foreign-key field.
type Reference struct {
	Model    string
	Field    string // defaults to "id"
	OnDelete string // defaults to CASCADE
}

// TargetField returns the referenced field name, defaulting to "id".
func (r *Reference) TargetField() string {
	if r.Field == "" {
		return "id"
	}
	return r.Field
}

// Action returns the ON DELETE action, defaulting to CASCADE.
func (r *Reference) Action() string {
	if r.OnDelete == "" {
		return OnDeleteCascade
	}
	return r.OnDelete
}

// Clone returns a copy of the reference.
func (r *Reference) Clone() *Reference {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func (r *Reference) validate() error {
	if r.Model == "" {
		return merr.New(merr.ErrInvalidOperation, "foreign key reference has no target model")
	}
	if err := ValidateIdentifier(r.Model); err != nil {
		return err
	}
	switch r.Action() {
	case OnDeleteCascade, OnDeleteSetNull, OnDeleteRestrict, OnDeleteNoAction:
	default:
		return merr.Newf(merr.ErrInvalidOperation, "invalid on_delete action %q", r.OnDelete).
			WithModel(r.Model)
	}
	return nil
}

// FieldState is the full definition of one column.
type FieldState struct {
	Name       string
	Type       FieldType
	Nullable   bool
	Unique     bool
	PrimaryKey bool
	MaxLength  int // string types
	Precision  int // decimal types
	Scale      int // decimal types
	Default    *DefaultValue
	Reference  *Reference // set when Type is fk
}

// Clone returns a deep copy of the field.
func (f *FieldState) Clone() *FieldState {
	if f == nil {
		return nil
	}
	c := *f
	c.Default = f.Default.Clone()
	c.Reference = f.Reference.Clone()
	return &c
}

// Equal compares two fields structurally, name included.
func (f *FieldState) Equal(o *FieldState) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.Name == o.Name && f.SameShape(o)
}

// SameShape compares everything except the name. Used by rename detection.
func (f *FieldState) SameShape(o *FieldState) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.Type != o.Type || f.Nullable != o.Nullable || f.Unique != o.Unique ||
		f.PrimaryKey != o.PrimaryKey || f.MaxLength != o.MaxLength ||
		f.Precision != o.Precision || f.Scale != o.Scale {
		return false
	}
	if !f.Default.Equal(o.Default) {
		return false
	}
	if (f.Reference == nil) != (o.Reference == nil) {
		return false
	}
	if f.Reference != nil && *f.Reference != *o.Reference {
		return false
	}
	return true
}

// HasDefault reports whether the field carries any default.
func (f *FieldState) HasDefault() bool {
	return f.Default != nil && (f.Default.Literal != nil || f.Default.Expr != "")
}

// Validate checks the field definition for internal consistency.
func (f *FieldState) Validate() error {
	if err := ValidateIdentifier(f.Name); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return merr.Newf(merr.ErrInvalidOperation, "unknown field type %q", f.Type).
			WithField(f.Name)
	}
	if f.Type == TypeForeignKey {
		if f.Reference == nil {
			return merr.New(merr.ErrInvalidOperation, "foreign key field has no reference").
				WithField(f.Name)
		}
		if err := f.Reference.validate(); err != nil {
			return err
		}
	} else if f.Reference != nil {
		return merr.Newf(merr.ErrInvalidOperation, "field of type %q cannot carry a reference", f.Type).
			WithField(f.Name)
	}
	if f.MaxLength < 0 {
		return merr.New(merr.ErrInvalidOperation, "max_length cannot be negative").
			WithField(f.Name)
	}
	if f.MaxLength > 0 && f.Type != TypeString {
		return merr.Newf(merr.ErrInvalidOperation, "max_length is only valid for string fields, not %q", f.Type).
			WithField(f.Name)
	}
	if (f.Precision != 0 || f.Scale != 0) && f.Type != TypeDecimal {
		return merr.Newf(merr.ErrInvalidOperation, "precision/scale are only valid for decimal fields, not %q", f.Type).
			WithField(f.Name)
	}
	if f.PrimaryKey && f.Nullable {
		return merr.New(merr.ErrInvalidOperation, "primary key field cannot be nullable").
			WithField(f.Name)
	}
	if f.Default != nil && f.Default.Literal != nil && f.Default.Expr != "" {
		return merr.New(merr.ErrInvalidOperation, "default cannot set both a literal and an expression").
			WithField(f.Name)
	}
	return nil
}

// IndexState is one secondary index.
type IndexState struct {
	Name   string
	Fields []string
	Unique bool
}

// DefaultIndexName builds the conventional name for an index on model.
// Unique indexes use the uniq_ prefix, plain ones idx_.
func DefaultIndexName(model string, fields []string, unique bool) string {
	prefix := "idx"
	if unique {
		prefix = "uniq"
	}
	return prefix + "_" + model + "_" + strings.Join(fields, "_")
}

// ResolvedName returns the explicit name or the conventional default.
func (i *IndexState) ResolvedName(model string) string {
	if i.Name != "" {
		return i.Name
	}
	return DefaultIndexName(model, i.Fields, i.Unique)
}

// Clone returns a deep copy of the index.
func (i *IndexState) Clone() *IndexState {
	if i == nil {
		return nil
	}
	c := *i
	c.Fields = slices.Clone(i.Fields)
	return &c
}

// Equal compares two indexes structurally.
func (i *IndexState) Equal(o *IndexState) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.Name == o.Name && i.Unique == o.Unique && slices.Equal(i.Fields, o.Fields)
}

// Validate checks the index definition.
func (i *IndexState) Validate() error {
	if len(i.Fields) == 0 {
		return merr.New(merr.ErrInvalidOperation, "index covers no fields").
			With("index", i.Name)
	}
	if i.Name != "" {
		if err := ValidateIdentifier(i.Name); err != nil {
			return err
		}
	}
	for _, f := range i.Fields {
		if err := ValidateIdentifier(f); err != nil {
			return err
		}
	}
	return nil
}

// ConstraintKind distinguishes table constraint variants.
type ConstraintKind string

const (
	CheckConstraint  ConstraintKind = "check"
	UniqueConstraint ConstraintKind = "unique"
)

// ConstraintState is one named table constraint: a check expression or a
// multi-field unique constraint.
type ConstraintState struct {
	Name       string
	Kind       ConstraintKind
	Expression string   // check constraints
	Fields     []string // unique constraints
}

// Clone returns a deep copy of the constraint.
func (c *ConstraintState) Clone() *ConstraintState {
	if c == nil {
		return nil
	}
	cc := *c
	cc.Fields = slices.Clone(c.Fields)
	return &cc
}

// Equal compares two constraints structurally.
func (c *ConstraintState) Equal(o *ConstraintState) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Name == o.Name && c.Kind == o.Kind &&
		c.Expression == o.Expression && slices.Equal(c.Fields, o.Fields)
}

// Validate checks the constraint definition.
func (c *ConstraintState) Validate() error {
	if err := ValidateIdentifier(c.Name); err != nil {
		return err
	}
	switch c.Kind {
	case CheckConstraint:
		if c.Expression == "" {
			return merr.New(merr.ErrInvalidOperation, "check constraint has no expression").
				With("constraint", c.Name)
		}
	case UniqueConstraint:
		if len(c.Fields) == 0 {
			return merr.New(merr.ErrInvalidOperation, "unique constraint covers no fields").
				With("constraint", c.Name)
		}
		for _, f := range c.Fields {
			if err := ValidateIdentifier(f); err != nil {
				return err
			}
		}
	default:
		return merr.Newf(merr.ErrInvalidOperation, "unknown constraint kind %q", c.Kind).
			With("constraint", c.Name)
	}
	return nil
}

// TableState is the full definition of one model's table.
type TableState struct {
	Name        string
	Fields      []*FieldState
	Indexes     []*IndexState
	Constraints []*ConstraintState
}

// Field returns the named field, or nil.
func (t *TableState) Field(name string) *FieldState {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasField reports whether the named field exists.
func (t *TableState) HasField(name string) bool {
	return t.Field(name) != nil
}

// FieldNames returns the field names in declaration order.
func (t *TableState) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Index returns the index with the given resolved name, or nil.
func (t *TableState) Index(name string) *IndexState {
	for _, ix := range t.Indexes {
		if ix.ResolvedName(t.Name) == name {
			return ix
		}
	}
	return nil
}

// Constraint returns the named constraint, or nil.
func (t *TableState) Constraint(name string) *ConstraintState {
	for _, c := range t.Constraints {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the primary key field, or nil.
func (t *TableState) PrimaryKey() *FieldState {
	for _, f := range t.Fields {
		if f.PrimaryKey {
			return f
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *TableState) Clone() *TableState {
	if t == nil {
		return nil
	}
	c := &TableState{Name: t.Name}
	for _, f := range t.Fields {
		c.Fields = append(c.Fields, f.Clone())
	}
	for _, ix := range t.Indexes {
		c.Indexes = append(c.Indexes, ix.Clone())
	}
	for _, con := range t.Constraints {
		c.Constraints = append(c.Constraints, con.Clone())
	}
	return c
}

// Equal compares two tables structurally. Declaration order does not
// matter: a field added mid-list and a field appended produce the same
// schema.
func (t *TableState) Equal(o *TableState) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Name != o.Name || len(t.Fields) != len(o.Fields) ||
		len(t.Indexes) != len(o.Indexes) || len(t.Constraints) != len(o.Constraints) {
		return false
	}
	for _, f := range t.Fields {
		if !f.Equal(o.Field(f.Name)) {
			return false
		}
	}
	for _, ix := range t.Indexes {
		if !ix.Equal(o.Index(ix.ResolvedName(o.Name))) {
			return false
		}
	}
	for _, c := range t.Constraints {
		if !c.Equal(o.Constraint(c.Name)) {
			return false
		}
	}
	return true
}

// Dependencies returns the distinct models this table references through
// foreign keys, excluding self-references, sorted.
func (t *TableState) Dependencies() []string {
	seen := map[string]bool{}
	for _, f := range t.Fields {
		if f.Type == TypeForeignKey && f.Reference != nil && f.Reference.Model != t.Name {
			seen[f.Reference.Model] = true
		}
	}
	deps := make([]string, 0, len(seen))
	for m := range seen {
		deps = append(deps, m)
	}
	sort.Strings(deps)
	return deps
}

// Validate checks the table definition: valid name, at least one field,
// no duplicate field, index, or constraint names.
func (t *TableState) Validate() error {
	if err := ValidateIdentifier(t.Name); err != nil {
		return err
	}
	if len(t.Fields) == 0 {
		return merr.New(merr.ErrInvalidOperation, "model has no fields").
			WithModel(t.Name)
	}
	seen := map[string]bool{}
	pks := 0
	for _, f := range t.Fields {
		if err := f.Validate(); err != nil {
			return merr.Wrapf(err, merr.ErrInvalidOperation, "invalid field in model %q", t.Name)
		}
		if seen[f.Name] {
			return merr.Newf(merr.ErrInvalidOperation, "duplicate field %q", f.Name).
				WithModel(t.Name)
		}
		seen[f.Name] = true
		if f.PrimaryKey {
			pks++
		}
	}
	if pks > 1 {
		return merr.New(merr.ErrInvalidOperation, "model has more than one primary key field").
			WithModel(t.Name)
	}
	seenIx := map[string]bool{}
	for _, ix := range t.Indexes {
		if err := ix.Validate(); err != nil {
			return merr.Wrapf(err, merr.ErrInvalidOperation, "invalid index in model %q", t.Name)
		}
		name := ix.ResolvedName(t.Name)
		if seenIx[name] {
			return merr.Newf(merr.ErrInvalidOperation, "duplicate index %q", name).
				WithModel(t.Name)
		}
		seenIx[name] = true
		for _, f := range ix.Fields {
			if !seen[f] {
				return merr.Newf(merr.ErrInvalidOperation, "index %q covers unknown field %q", name, f).
					WithModel(t.Name).
					WithHelp(merr.SuggestSimilar(f, t.FieldNames()))
			}
		}
	}
	seenCon := map[string]bool{}
	for _, c := range t.Constraints {
		if err := c.Validate(); err != nil {
			return merr.Wrapf(err, merr.ErrInvalidOperation, "invalid constraint in model %q", t.Name)
		}
		if seenCon[c.Name] {
			return merr.Newf(merr.ErrInvalidOperation, "duplicate constraint %q", c.Name).
				WithModel(t.Name)
		}
		seenCon[c.Name] = true
		for _, f := range c.Fields {
			if !seen[f] {
				return merr.Newf(merr.ErrInvalidOperation, "constraint %q covers unknown field %q", c.Name, f).
					WithModel(t.Name).
					WithHelp(merr.SuggestSimilar(f, t.FieldNames()))
			}
		}
	}
	return nil
}

// String implements fmt.Stringer for debugging output.
func (t *TableState) String() string {
	return fmt.Sprintf("model %s (%d fields, %d indexes, %d constraints)",
		t.Name, len(t.Fields), len(t.Indexes), len(t.Constraints))
}
