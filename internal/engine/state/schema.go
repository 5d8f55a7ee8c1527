// Package state models a database schema as an immutable-by-convention
// snapshot and provides the forward application of migration operations.
package state

import (
	"sort"

	"github.com/marchdb/march/internal/ast"
)

// Schema is a snapshot of the schema: table name to definition.
type Schema struct {
	Tables map[string]*ast.TableState
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{Tables: make(map[string]*ast.TableState)}
}

// Clone returns a deep copy.
func (s *Schema) Clone() *Schema {
	c := NewSchema()
	for name, t := range s.Tables {
		c.Tables[name] = t.Clone()
	}
	return c
}

// Table returns the named table, or nil.
func (s *Schema) Table(name string) *ast.TableState {
	return s.Tables[name]
}

// HasTable reports whether the named table exists.
func (s *Schema) HasTable(name string) bool {
	_, ok := s.Tables[name]
	return ok
}

// TableNames returns all table names, sorted.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal compares two schemas structurally.
func (s *Schema) Equal(o *Schema) bool {
	if len(s.Tables) != len(o.Tables) {
		return false
	}
	for name, t := range s.Tables {
		ot, ok := o.Tables[name]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	return true
}
