package engine

import (
	"sort"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/engine/state"
)

// Diff computes the ordered operation list that transforms the old schema
// into the new one. Renames are detected structurally; hints force
// pairings the detector would miss. The output is deterministic: equal
// inputs produce an identical list, ordered so that applying it to the
// old schema always succeeds.
func Diff(old, new *state.Schema, hints *RenameHints) ([]ast.Operation, error) {
	dropped := map[string]*ast.TableState{}
	created := map[string]*ast.TableState{}
	type tablePair struct{ old, new *ast.TableState }
	var pairs []tablePair

	for _, name := range old.TableNames() {
		if nt := new.Table(name); nt != nil {
			pairs = append(pairs, tablePair{old.Table(name), nt})
		} else {
			dropped[name] = old.Table(name)
		}
	}
	for _, name := range new.TableNames() {
		if !old.HasTable(name) {
			created[name] = new.Table(name)
		}
	}

	// Pair model renames: hinted first, then detected among the rest.
	var renames []ModelRename
	for _, oldName := range sortedKeys(dropped) {
		if newName, ok := hints.modelRename(oldName); ok {
			if _, exists := created[newName]; exists {
				renames = append(renames, ModelRename{OldName: oldName, NewName: newName, Score: 1})
			}
		}
	}
	for _, r := range renames {
		delete(dropped, r.OldName)
		delete(created, r.NewName)
	}
	detected := DetectModelRenames(sortedTables(dropped), sortedTables(created))
	for _, r := range detected {
		renames = append(renames, r)
		delete(dropped, r.OldName)
		delete(created, r.NewName)
	}
	sort.Slice(renames, func(i, j int) bool { return renames[i].OldName < renames[j].OldName })

	// Model renames lead the list so every later operation in the same
	// migration targets the new name and the list replays cleanly.
	var ops []ast.Operation
	for _, r := range renames {
		ops = append(ops, &ast.RenameModel{OldName: r.OldName, NewName: r.NewName})
		renamed := old.Table(r.OldName).Clone()
		renamed.Name = r.NewName
		pairs = append(pairs, tablePair{renamed, new.Table(r.NewName)})
	}

	createOrder, err := sortCreates(sortedTables(created))
	if err != nil {
		return nil, err
	}
	for _, t := range createOrder {
		c := t.Clone()
		ops = append(ops, &ast.CreateModel{
			Name:        c.Name,
			Fields:      c.Fields,
			Indexes:     c.Indexes,
			Constraints: c.Constraints,
		})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].new.Name < pairs[j].new.Name })
	var diffs []tableDiff
	for _, p := range pairs {
		diffs = append(diffs, diffTable(p.old, p.new, hints))
	}

	// Additive field and index changes, grouped by kind across tables.
	for _, d := range diffs {
		ops = append(ops, d.renameFields...)
	}
	for _, d := range diffs {
		ops = append(ops, d.addFields...)
	}
	for _, d := range diffs {
		ops = append(ops, d.alterFields...)
	}
	for _, d := range diffs {
		ops = append(ops, d.addIndexes...)
	}
	for _, d := range diffs {
		ops = append(ops, d.addConstraints...)
	}

	// A same-name redefinition keeps its remove directly before its add:
	// ordering the add with the other additions would collide with the
	// old object, which still holds the name.
	for _, d := range diffs {
		ops = append(ops, d.replaceIndexes...)
	}
	for _, d := range diffs {
		ops = append(ops, d.replaceConstraints...)
	}

	// Destructive changes after all additions.
	for _, d := range diffs {
		ops = append(ops, d.removeConstraints...)
	}
	for _, d := range diffs {
		ops = append(ops, d.removeIndexes...)
	}
	for _, d := range diffs {
		ops = append(ops, d.removeFields...)
	}

	for _, t := range dropOrder(sortedTables(dropped)) {
		ops = append(ops, &ast.DeleteModel{Name: t.Name, State: t.Clone()})
	}
	return ops, nil
}

type tableDiff struct {
	renameFields       []ast.Operation
	addFields          []ast.Operation
	alterFields        []ast.Operation
	addIndexes         []ast.Operation
	addConstraints     []ast.Operation
	replaceIndexes     []ast.Operation
	replaceConstraints []ast.Operation
	removeConstraints  []ast.Operation
	removeIndexes      []ast.Operation
	removeFields       []ast.Operation
}

func diffTable(oldT, newT *ast.TableState, hints *RenameHints) tableDiff {
	var d tableDiff
	ref := ast.ModelRef{ModelName: newT.Name}

	var removed, added []*ast.FieldState
	for _, f := range oldT.Fields {
		if !newT.HasField(f.Name) {
			removed = append(removed, f)
		}
	}
	for _, f := range newT.Fields {
		if !oldT.HasField(f.Name) {
			added = append(added, f)
		}
	}

	// Pair field renames: hinted first, then detected among the rest.
	type fieldPair struct{ old, new *ast.FieldState }
	var pairsByOld []fieldPair
	taken := map[string]bool{}
	for _, f := range removed {
		if newName, ok := hints.fieldRename(newT.Name, f.Name); ok {
			for _, nf := range added {
				if nf.Name == newName && !taken[newName] {
					pairsByOld = append(pairsByOld, fieldPair{f, nf})
					taken[newName] = true
				}
			}
		}
	}
	remaining := func(fields []*ast.FieldState, paired func(fieldPair) string) []*ast.FieldState {
		var out []*ast.FieldState
		for _, f := range fields {
			used := false
			for _, p := range pairsByOld {
				if paired(p) == f.Name {
					used = true
					break
				}
			}
			if !used {
				out = append(out, f)
			}
		}
		return out
	}
	freeRemoved := remaining(removed, func(p fieldPair) string { return p.old.Name })
	freeAdded := remaining(added, func(p fieldPair) string { return p.new.Name })
	for _, r := range DetectFieldRenames(newT.Name, freeRemoved, freeAdded) {
		pairsByOld = append(pairsByOld, fieldPair{oldT.Field(r.OldName), newT.Field(r.NewName)})
	}
	sort.Slice(pairsByOld, func(i, j int) bool { return pairsByOld[i].old.Name < pairsByOld[j].old.Name })

	renamedOld := map[string]bool{}
	renamedNew := map[string]bool{}
	for _, p := range pairsByOld {
		renamedOld[p.old.Name] = true
		renamedNew[p.new.Name] = true
		d.renameFields = append(d.renameFields, &ast.RenameField{
			ModelRef: ref, OldName: p.old.Name, NewName: p.new.Name,
		})
		carried := p.old.Clone()
		carried.Name = p.new.Name
		if !carried.SameShape(p.new) {
			d.alterFields = append(d.alterFields, &ast.AlterField{
				ModelRef: ref, Old: carried, New: p.new.Clone(),
			})
		}
	}

	for _, f := range newT.Fields {
		if oldF := oldT.Field(f.Name); oldF != nil && !oldF.SameShape(f) {
			d.alterFields = append(d.alterFields, &ast.AlterField{
				ModelRef: ref, Old: oldF.Clone(), New: f.Clone(),
			})
		}
	}
	for _, f := range added {
		if !renamedNew[f.Name] {
			d.addFields = append(d.addFields, &ast.AddField{ModelRef: ref, Field: f.Clone()})
		}
	}
	for _, f := range removed {
		if !renamedOld[f.Name] {
			d.removeFields = append(d.removeFields, &ast.RemoveField{
				ModelRef: ref, Name: f.Name, Field: f.Clone(),
			})
		}
	}

	// Indexes match by resolved name. A changed definition is a drop
	// and recreate, emitted as an adjacent pair.
	for _, ix := range newT.Indexes {
		name := ix.ResolvedName(newT.Name)
		oldIx := oldT.Index(name)
		if oldIx != nil && oldIx.Equal(ix) {
			continue
		}
		if oldIx != nil {
			d.replaceIndexes = append(d.replaceIndexes,
				&ast.RemoveIndex{ModelRef: ref, Name: name, Index: oldIx.Clone()},
				&ast.AddIndex{ModelRef: ref, Index: ix.Clone()},
			)
			continue
		}
		d.addIndexes = append(d.addIndexes, &ast.AddIndex{ModelRef: ref, Index: ix.Clone()})
	}
	for _, ix := range oldT.Indexes {
		name := ix.ResolvedName(oldT.Name)
		if newT.Index(name) == nil {
			d.removeIndexes = append(d.removeIndexes, &ast.RemoveIndex{
				ModelRef: ref, Name: name, Index: ix.Clone(),
			})
		}
	}

	for _, c := range newT.Constraints {
		oldC := oldT.Constraint(c.Name)
		if oldC != nil && oldC.Equal(c) {
			continue
		}
		if oldC != nil {
			d.replaceConstraints = append(d.replaceConstraints,
				&ast.RemoveConstraint{ModelRef: ref, Name: c.Name, Constraint: oldC.Clone()},
				&ast.AddConstraint{ModelRef: ref, Constraint: c.Clone()},
			)
			continue
		}
		d.addConstraints = append(d.addConstraints, &ast.AddConstraint{ModelRef: ref, Constraint: c.Clone()})
	}
	for _, c := range oldT.Constraints {
		if newT.Constraint(c.Name) == nil {
			d.removeConstraints = append(d.removeConstraints, &ast.RemoveConstraint{
				ModelRef: ref, Name: c.Name, Constraint: c.Clone(),
			})
		}
	}
	return d
}

// createNode adapts a table for topological sorting over FK references.
// When nullableEdges is false, nullable foreign keys do not count as
// dependencies: they can be satisfied after creation.
type createNode struct {
	table         *ast.TableState
	nullableEdges bool
}

func (n createNode) ID() string { return n.table.Name }

func (n createNode) Dependencies() []string {
	seen := map[string]bool{}
	var deps []string
	for _, f := range n.table.Fields {
		if f.Type != ast.TypeForeignKey || f.Reference == nil {
			continue
		}
		target := f.Reference.Model
		if target == n.table.Name || seen[target] {
			continue
		}
		if f.Nullable && !n.nullableEdges {
			continue
		}
		seen[target] = true
		deps = append(deps, target)
	}
	sort.Strings(deps)
	return deps
}

// sortCreates orders new tables so referenced tables come first. A cycle
// through nullable foreign keys is tolerated by ignoring those edges; a
// cycle of non-nullable references is an error.
func sortCreates(tables []*ast.TableState) ([]*ast.TableState, error) {
	nodes := make([]createNode, len(tables))
	for i, t := range tables {
		nodes[i] = createNode{table: t, nullableEdges: true}
	}
	sorted, err := topoSort(nodes)
	if err != nil {
		for i := range nodes {
			nodes[i].nullableEdges = false
		}
		sorted, err = topoSort(nodes)
		if err != nil {
			return nil, err
		}
	}
	out := make([]*ast.TableState, len(sorted))
	for i, n := range sorted {
		out[i] = n.table
	}
	return out, nil
}

// dropOrder returns tables in reverse dependency order so dependents are
// dropped before the tables they reference. A cycle falls back to name
// order.
func dropOrder(tables []*ast.TableState) []*ast.TableState {
	nodes := make([]createNode, len(tables))
	for i, t := range tables {
		nodes[i] = createNode{table: t, nullableEdges: true}
	}
	sorted, err := topoSort(nodes)
	if err != nil {
		return tables
	}
	out := make([]*ast.TableState, len(sorted))
	for i, n := range sorted {
		out[len(sorted)-1-i] = n.table
	}
	return out
}

func sortedKeys(m map[string]*ast.TableState) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedTables(m map[string]*ast.TableState) []*ast.TableState {
	out := make([]*ast.TableState, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}
