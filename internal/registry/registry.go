// Package registry holds the declared model definitions that migrations
// are generated against.
package registry

import (
	"sort"
	"sync"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/engine/state"
	"github.com/marchdb/march/internal/merr"
)

// Provider supplies the desired schema snapshot. Implementations must be
// side-effect free: the generation flow may call Snapshot repeatedly.
type Provider interface {
	Snapshot() (*state.Schema, error)
}

// ModelRegistry is a thread-safe in-memory Provider that applications
// populate with their model definitions.
type ModelRegistry struct {
	mu     sync.RWMutex
	tables map[string]*ast.TableState
}

// NewModelRegistry returns an empty registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{tables: make(map[string]*ast.TableState)}
}

// Register validates and adds model definitions. Registering a name
// twice is an error.
func (r *ModelRegistry) Register(models ...*ast.TableState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, exists := r.tables[m.Name]; exists {
			return merr.Newf(merr.ErrInvalidOperation, "model %q is already registered", m.Name).
				WithModel(m.Name)
		}
		r.tables[m.Name] = m.Clone()
	}
	return nil
}

// Get returns a copy of the named model, or nil.
func (r *ModelRegistry) Get(name string) *ast.TableState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables[name].Clone()
}

// Names returns the registered model names, sorted.
func (r *ModelRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered models.
func (r *ModelRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// Snapshot implements Provider. The returned schema is detached: mutating
// it does not affect the registry.
func (r *ModelRegistry) Snapshot() (*state.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := state.NewSchema()
	for name, t := range r.tables {
		s.Tables[name] = t.Clone()
	}
	return s, nil
}
