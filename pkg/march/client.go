// Package march is the embedding surface of the migration engine: it
// wires the database connection, the dialect, the migration directory,
// and the model registry behind one client.
package march

import (
	"context"
	"database/sql"
	"time"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/dialect"
	"github.com/marchdb/march/internal/engine"
	"github.com/marchdb/march/internal/merr"
	"github.com/marchdb/march/internal/migfile"
	"github.com/marchdb/march/internal/registry"
)

// Client is a configured migration engine bound to one database.
type Client struct {
	cfg      Config
	db       *sql.DB
	dialect  dialect.Dialect
	runner   *engine.Runner
	registry *registry.ModelRegistry
}

// New builds a client. The database URL is required; the dialect is
// detected from it unless set explicitly.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DatabaseURL == "" {
		return nil, merr.New(merr.ErrConnection, "no database URL configured").
			WithHelp("pass WithDatabaseURL or set database_url in march.yaml")
	}

	name := cfg.Dialect
	if name == "" {
		detected, err := DetectDialect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		name = detected
	}
	d, err := dialect.Get(name)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(cfg.DatabaseURL, name)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, merr.Wrap(err, merr.ErrConnection, "cannot reach the database").
			With("url", Redact(cfg.DatabaseURL))
	}

	reg := registry.NewModelRegistry()
	if cfg.Provider == nil {
		cfg.Provider = reg
	}
	return &Client{
		cfg:      cfg,
		db:       db,
		dialect:  d,
		runner:   engine.NewRunner(db, d),
		registry: reg,
	}, nil
}

// Close releases the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// DB exposes the underlying connection pool.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Dialect returns the active dialect name.
func (c *Client) Dialect() string {
	return c.dialect.Name()
}

// Register declares models on the client's built-in registry.
func (c *Client) Register(models ...*ast.TableState) error {
	return c.registry.Register(models...)
}

// Chain loads the migration directory.
func (c *Client) Chain() (*chain.Chain, error) {
	return migfile.Load(c.cfg.MigrationsDir)
}

// Migrate applies migrations forward to the target ("latest", "zero", a
// sequence number, or a label prefix).
func (c *Client) Migrate(ctx context.Context, target string) (*engine.Result, error) {
	return c.run(ctx, target, engine.ModeExecute)
}

// Rollback is Migrate toward an earlier target; the plan direction is
// derived from the database's position, so the call shape is identical.
func (c *Client) Rollback(ctx context.Context, target string) (*engine.Result, error) {
	return c.run(ctx, target, engine.ModeExecute)
}

// SQL renders the statements a migration to target would run, without
// executing anything or touching the recorder.
func (c *Client) SQL(ctx context.Context, target string) ([]string, error) {
	res, err := c.run(ctx, target, engine.ModeSQLPreview)
	if err != nil {
		return nil, err
	}
	return res.Statements, nil
}

// Fake moves the recorder to the target without executing statements,
// for adopting databases whose schema already matches.
func (c *Client) Fake(ctx context.Context, target string) (*engine.Result, error) {
	return c.run(ctx, target, engine.ModeFake)
}

func (c *Client) run(ctx context.Context, target string, mode engine.Mode) (*engine.Result, error) {
	ch, err := c.Chain()
	if err != nil {
		return nil, err
	}
	return c.runner.Run(ctx, ch, target, mode)
}

// MigrationStatus is one chain entry with its recorder state.
type MigrationStatus struct {
	Name      string
	Seq       int
	Applied   bool
	AppliedAt time.Time
}

// Status lists every migration in the chain with whether and when it was
// applied.
func (c *Client) Status(ctx context.Context) ([]MigrationStatus, error) {
	ch, err := c.Chain()
	if err != nil {
		return nil, err
	}
	// A database the engine has never touched has no recorder table;
	// that reads as nothing applied. Any other failure surfaces.
	applied, err := c.runner.Recorder().AppliedIfExists(ctx)
	if err != nil {
		return nil, err
	}
	appliedAt := make(map[string]time.Time, len(applied))
	for _, m := range applied {
		appliedAt[m.Name] = m.AppliedAt
	}

	out := make([]MigrationStatus, 0, ch.Len())
	for _, rec := range ch.Records() {
		at, ok := appliedAt[rec.Name()]
		out = append(out, MigrationStatus{
			Name:      rec.Name(),
			Seq:       rec.Seq,
			Applied:   ok,
			AppliedAt: at,
		})
	}
	return out, nil
}

// Pending returns the operations that a new migration would contain:
// the diff between the chain's replayed schema and the provider's
// snapshot.
func (c *Client) Pending(hints *engine.RenameHints) ([]ast.Operation, error) {
	ch, err := c.Chain()
	if err != nil {
		return nil, err
	}
	desired, err := c.cfg.Provider.Snapshot()
	if err != nil {
		return nil, err
	}
	return engine.Pending(ch, desired, hints)
}
