package march

import (
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/engine"
	"github.com/marchdb/march/internal/migfile"
)

// Generated reports the outcome of MakeMigration.
type Generated struct {
	Record   chain.Record
	Path     string
	Warnings []engine.Warning
}

// MakeMigration diffs the replayed chain against the provider's snapshot
// and writes the result as the next migration file. Returns nil when the
// schema is already up to date. The directory head observed during the
// diff guards the write, so two concurrent generators cannot both claim
// the same sequence number.
func (c *Client) MakeMigration(label string, hints *engine.RenameHints) (*Generated, error) {
	ch, err := c.Chain()
	if err != nil {
		return nil, err
	}
	head := ch.Head()

	desired, err := c.cfg.Provider.Snapshot()
	if err != nil {
		return nil, err
	}
	ops, err := engine.Pending(ch, desired, hints)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}

	rec, path, err := migfile.WriteNext(c.cfg.MigrationsDir, label, ops, head)
	if err != nil {
		return nil, err
	}
	return &Generated{Record: rec, Path: path, Warnings: engine.Lint(ops)}, nil
}
