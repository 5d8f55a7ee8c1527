package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marchdb/march/internal/merr"
	"github.com/marchdb/march/pkg/march"
)

// fileConfig is the march.yaml layout. ${VAR} references in values are
// expanded from the environment.
type fileConfig struct {
	DatabaseURL   string `yaml:"database_url"`
	MigrationsDir string `yaml:"migrations_dir"`
	SchemaFile    string `yaml:"schema_file"`
	Dialect       string `yaml:"dialect"`
}

const defaultConfigFile = "march.yaml"

// loadConfig layers the settings: flags over environment variables over
// the config file over defaults.
func loadConfig(cmd *cobra.Command) (fileConfig, error) {
	cfg := fileConfig{
		MigrationsDir: "migrations",
		SchemaFile:    "schema.yaml",
	}

	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if path == "" {
		path = defaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, merr.Wrapf(err, merr.ErrMigrationInvalid, "cannot parse config file %q", path)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; flags or env must carry the URL.
	default:
		return cfg, merr.Wrapf(err, merr.ErrMigrationInvalid, "cannot read config file %q", path)
	}

	cfg.DatabaseURL = expandEnv(cfg.DatabaseURL)
	cfg.MigrationsDir = expandEnv(cfg.MigrationsDir)
	cfg.SchemaFile = expandEnv(cfg.SchemaFile)

	if v := os.Getenv("MARCH_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MARCH_MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
	}
	if v := os.Getenv("MARCH_SCHEMA_FILE"); v != "" {
		cfg.SchemaFile = v
	}

	if v, _ := cmd.Flags().GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	return cfg, nil
}

func expandEnv(s string) string {
	return os.Expand(s, os.Getenv)
}

// newClient builds the library client from the resolved configuration.
func newClient(cmd *cobra.Command) (*march.Client, fileConfig, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	client, err := march.New(
		march.WithDatabaseURL(cfg.DatabaseURL),
		march.WithMigrationsDir(cfg.MigrationsDir),
		march.WithDialect(cfg.Dialect),
		march.WithProvider(march.SchemaFileProvider{Path: cfg.SchemaFile}),
	)
	if err != nil {
		return nil, cfg, err
	}
	return client, cfg, nil
}
