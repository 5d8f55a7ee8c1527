package migfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/chain"
	"github.com/marchdb/march/internal/merr"
)

var filenameRe = regexp.MustCompile(`^(\d{4})_([a-z_][a-z0-9_]*)\.yaml$`)

// Filename returns the file name for a record, e.g. "0002_add_email.yaml".
func Filename(rec chain.Record) string {
	return rec.Name() + ".yaml"
}

// Load reads every migration file in dir into a validated chain. A
// missing directory is an empty chain. File contents must agree with the
// file name on sequence number and label.
func Load(dir string) (*chain.Chain, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return chain.New(nil)
	}
	if err != nil {
		return nil, merr.Wrapf(err, merr.ErrMigrationNotFound, "cannot read migrations directory %q", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !filenameRe.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	records := make([]chain.Record, 0, len(names))
	for _, name := range names {
		rec, err := loadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return chain.New(records)
}

func loadFile(path string) (chain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chain.Record{}, merr.Wrapf(err, merr.ErrMigrationNotFound, "cannot read %q", path)
	}

	var fm fileMigration
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return chain.Record{}, merr.Wrapf(err, merr.ErrMigrationInvalid, "cannot parse %q", path)
	}

	base := filepath.Base(path)
	m := filenameRe.FindStringSubmatch(base)
	seq, _ := strconv.Atoi(m[1])
	if fm.Seq != seq {
		return chain.Record{}, merr.Newf(merr.ErrMigrationInvalid,
			"file %q declares sequence %d, expected %d from its name", base, fm.Seq, seq)
	}
	if fm.Label != m[2] {
		return chain.Record{}, merr.Newf(merr.ErrMigrationInvalid,
			"file %q declares label %q, expected %q from its name", base, fm.Label, m[2])
	}

	rec := chain.Record{Seq: fm.Seq, Label: fm.Label}
	for i, fop := range fm.Operations {
		op, err := opFromFile(fop)
		if err != nil {
			return chain.Record{}, merr.Wrapf(err, merr.ErrMigrationInvalid,
				"operation %d of %q is invalid", i, base)
		}
		if err := op.Validate(); err != nil {
			return chain.Record{}, merr.Wrapf(err, merr.ErrMigrationInvalid,
				"operation %d of %q is invalid", i, base)
		}
		rec.Operations = append(rec.Operations, op)
	}
	return rec, nil
}

// Write persists one record to dir, creating the directory as needed,
// and returns the file path. The file opens with a comment summarizing
// its operations.
func Write(dir string, rec chain.Record) (string, error) {
	fm := fileMigration{Seq: rec.Seq, Label: rec.Label}
	for _, op := range rec.Operations {
		fop, err := opToFile(op)
		if err != nil {
			return "", err
		}
		fm.Operations = append(fm.Operations, fop)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", rec.Name())
	for _, op := range rec.Operations {
		fmt.Fprintf(&buf, "# - %s\n", ast.Describe(op))
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&fm); err != nil {
		return "", merr.Wrapf(err, merr.ErrMigrationInvalid, "cannot encode %s", rec.Name())
	}
	if err := enc.Close(); err != nil {
		return "", merr.Wrapf(err, merr.ErrMigrationInvalid, "cannot encode %s", rec.Name())
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", merr.Wrapf(err, merr.ErrMigrationInvalid, "cannot create migrations directory %q", dir)
	}
	path := filepath.Join(dir, Filename(rec))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", merr.Wrapf(err, merr.ErrMigrationInvalid, "cannot write %q", path)
	}
	return path, nil
}

// WriteNext appends a new migration after the current head. expectedHead
// is the head the caller observed when it computed the operations; the
// directory is re-read before writing, and a mismatch aborts the write.
func WriteNext(dir, label string, ops []ast.Operation, expectedHead int) (chain.Record, string, error) {
	if err := chain.ValidateLabel(label); err != nil {
		return chain.Record{}, "", err
	}

	ch, err := Load(dir)
	if err != nil {
		return chain.Record{}, "", err
	}

	rec := chain.Record{Seq: ch.Head() + 1, Label: label, Operations: ops}
	if err := ch.Append(rec, expectedHead); err != nil {
		return chain.Record{}, "", err
	}

	path, err := Write(dir, rec)
	if err != nil {
		return chain.Record{}, "", err
	}
	return rec, path, nil
}
