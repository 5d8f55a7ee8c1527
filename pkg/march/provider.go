package march

import (
	"github.com/marchdb/march/internal/engine/state"
	"github.com/marchdb/march/internal/migfile"
)

// SchemaFileProvider supplies the desired schema from a declarative YAML
// file, re-read on every snapshot. It is the provider the CLI uses.
type SchemaFileProvider struct {
	Path string
}

// Snapshot implements registry.Provider.
func (p SchemaFileProvider) Snapshot() (*state.Schema, error) {
	return migfile.LoadSchema(p.Path)
}
