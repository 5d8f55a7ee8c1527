package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/dialect"
	"github.com/marchdb/march/internal/merr"
)

// Mode selects what a run actually does.
type Mode int

const (
	// ModeExecute runs the statements and updates the recorder.
	ModeExecute Mode = iota
	// ModeSQLPreview renders the statements without touching the
	// database or the recorder.
	ModeSQLPreview
	// ModeFake updates the recorder without running any statement.
	ModeFake
)

func (m Mode) String() string {
	switch m {
	case ModeSQLPreview:
		return "sql-preview"
	case ModeFake:
		return "fake"
	default:
		return "execute"
	}
}

// Phase is the runner's position in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlanning
	PhaseExecuting
	PhaseCommitted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePlanning:
		return "planning"
	case PhaseExecuting:
		return "executing"
	case PhaseCommitted:
		return "committed"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Failure identifies where a run stopped.
type Failure struct {
	Migration string
	OpIndex   int
	Err       error
}

// Result reports what a run did. Statements is populated in preview
// mode; Applied and Reverted name the migrations that completed, in
// execution order.
type Result struct {
	Direction  Direction
	Mode       Mode
	Applied    []string
	Reverted   []string
	Statements []string
	Failure    *Failure
}

// Runner executes migration plans against one database.
type Runner struct {
	db       *sql.DB
	dialect  dialect.Dialect
	recorder *Recorder
	phase    Phase
}

// NewRunner returns a runner bound to a database and dialect.
func NewRunner(db *sql.DB, d dialect.Dialect) *Runner {
	return &Runner{
		db:       db,
		dialect:  d,
		recorder: NewRecorder(db, d),
		phase:    PhaseIdle,
	}
}

// Recorder exposes the runner's recorder for status queries.
func (r *Runner) Recorder() *Recorder {
	return r.recorder
}

// Phase returns the runner's current lifecycle position.
func (r *Runner) Phase() Phase {
	return r.phase
}

// Run resolves the target, plans the steps from the database's current
// position, and executes them in the requested mode. Each migration runs
// in its own transaction with its recorder update, so a failure rolls
// back the failing migration completely and leaves every earlier one
// committed.
func (r *Runner) Run(ctx context.Context, ch *chain.Chain, target string, mode Mode) (*Result, error) {
	r.phase = PhasePlanning

	targetSeq, err := ch.Resolve(target)
	if err != nil {
		r.phase = PhaseFailed
		return nil, err
	}

	var applied []AppliedMigration
	if mode == ModeSQLPreview {
		// Preview must not create the recorder table.
		if applied, err = r.recorder.AppliedIfExists(ctx); err != nil {
			r.phase = PhaseFailed
			return nil, err
		}
	} else {
		if err := r.recorder.EnsureTable(ctx); err != nil {
			r.phase = PhaseFailed
			return nil, err
		}
		if applied, err = r.recorder.Applied(ctx); err != nil {
			r.phase = PhaseFailed
			return nil, err
		}
	}

	names := make([]string, len(applied))
	for i, m := range applied {
		names[i] = m.Name
	}
	current, err := appliedPrefix(ch, names)
	if err != nil {
		r.phase = PhaseFailed
		return nil, err
	}

	plan, err := BuildPlan(ch, current, targetSeq)
	if err != nil {
		r.phase = PhaseFailed
		return nil, err
	}

	result := &Result{Direction: plan.Direction, Mode: mode}
	if plan.IsEmpty() {
		r.phase = PhaseCommitted
		return result, nil
	}

	if mode == ModeSQLPreview {
		if err := r.renderPreview(plan, result); err != nil {
			r.phase = PhaseFailed
			return nil, err
		}
		r.phase = PhaseCommitted
		return result, nil
	}

	r.phase = PhaseExecuting
	for _, step := range plan.Steps {
		if err := r.runStep(ctx, plan.Direction, step, mode); err != nil {
			r.phase = PhaseFailed
			result.Failure = failureOf(step.Record.Name(), err)
			return result, err
		}
		if plan.Direction == DirectionUp {
			result.Applied = append(result.Applied, step.Record.Name())
		} else {
			result.Reverted = append(result.Reverted, step.Record.Name())
		}
	}
	r.phase = PhaseCommitted
	return result, nil
}

func (r *Runner) renderPreview(plan *Plan, result *Result) error {
	for _, step := range plan.Steps {
		result.Statements = append(result.Statements,
			fmt.Sprintf("-- %s %s", plan.Direction, step.Record.Name()))
		for _, op := range step.Operations {
			stmts, err := dialect.OperationSQL(r.dialect, op)
			if err != nil {
				return merr.Wrapf(err, merr.ErrBackend, "cannot render %s", ast.Describe(op)).
					WithMigration(step.Record.Name())
			}
			result.Statements = append(result.Statements, stmts...)
		}
	}
	return nil
}

// runStep executes one migration and its recorder update in a single
// transaction.
func (r *Runner) runStep(ctx context.Context, dir Direction, step Step, mode Mode) error {
	start := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return merr.Wrap(err, merr.ErrTransaction, "cannot begin a transaction").
			WithMigration(step.Record.Name())
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if mode == ModeExecute {
		for i, op := range step.Operations {
			stmts, err := dialect.OperationSQL(r.dialect, op)
			if err != nil {
				return &stepError{opIndex: i, err: merr.Wrapf(err, merr.ErrBackend,
					"cannot render %s", ast.Describe(op)).WithMigration(step.Record.Name())}
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return &stepError{opIndex: i, err: merr.Wrapf(err, merr.ErrBackend,
						"%s failed", ast.Describe(op)).
						WithMigration(step.Record.Name()).
						WithSQL(stmt)}
				}
			}
		}
	}

	if dir == DirectionUp {
		err = r.recorder.MarkApplied(ctx, tx, step.Record.Name(), time.Since(start))
	} else {
		err = r.recorder.MarkUnapplied(ctx, tx, step.Record.Name())
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return merr.Wrap(err, merr.ErrTransaction, "cannot commit the migration transaction").
			WithMigration(step.Record.Name())
	}
	committed = true
	return nil
}

// stepError carries the index of the operation that failed within a
// migration.
type stepError struct {
	opIndex int
	err     error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func failureOf(migration string, err error) *Failure {
	f := &Failure{Migration: migration, OpIndex: -1, Err: err}
	if se, ok := err.(*stepError); ok {
		f.OpIndex = se.opIndex
		f.Err = se.err
	}
	return f
}
