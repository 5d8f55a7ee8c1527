package migfile

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marchdb/march/internal/engine/state"
	"github.com/marchdb/march/internal/merr"
)

type schemaFile struct {
	Models []fileTable `yaml:"models"`
}

// LoadSchema reads a declarative schema file: the desired models that
// migrations are generated against, in the same YAML vocabulary the
// migration files use.
func LoadSchema(path string) (*state.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merr.Wrapf(err, merr.ErrMigrationNotFound, "cannot read schema file %q", path).
			WithHelp("create the schema file or point schema_file at it in march.yaml")
	}

	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, merr.Wrapf(err, merr.ErrMigrationInvalid, "cannot parse schema file %q", path)
	}

	s := state.NewSchema()
	for i := range sf.Models {
		t := tableFromFile(&sf.Models[i])
		if err := t.Validate(); err != nil {
			return nil, merr.Wrapf(err, merr.ErrMigrationInvalid, "invalid model in %q", path)
		}
		if s.HasTable(t.Name) {
			return nil, merr.Newf(merr.ErrMigrationInvalid, "model %q declared twice in %q", t.Name, path).
				WithModel(t.Name)
		}
		s.Tables[t.Name] = t
	}
	return s, nil
}
