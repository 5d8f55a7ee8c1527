package engine

import (
	"sort"

	"github.com/marchdb/march/internal/ast"
)

// renameThreshold is the minimum confidence for a detected rename to be
// applied automatically. Below it the pair is reported as a plain
// drop + create.
const renameThreshold = 0.5

// RenameHints lets the caller force rename pairings the detector would
// miss or score too low. Model keys are old names; field keys are
// "model.oldfield" with the model's name after any model rename.
type RenameHints struct {
	Models map[string]string
	Fields map[string]string
}

func (h *RenameHints) modelRename(old string) (string, bool) {
	if h == nil {
		return "", false
	}
	newName, ok := h.Models[old]
	return newName, ok
}

func (h *RenameHints) fieldRename(model, old string) (string, bool) {
	if h == nil {
		return "", false
	}
	newName, ok := h.Fields[model+"."+old]
	return newName, ok
}

// ModelRename is a detected table rename candidate.
type ModelRename struct {
	OldName string
	NewName string
	Score   float64
}

// FieldRename is a detected column rename candidate.
type FieldRename struct {
	Model   string
	OldName string
	NewName string
	Score   float64
}

// DetectModelRenames scores every dropped/created table pair and returns
// the best greedy assignment above the confidence threshold, ordered by
// old name.
func DetectModelRenames(dropped, created []*ast.TableState) []ModelRename {
	var candidates []ModelRename
	for _, old := range dropped {
		for _, next := range created {
			score := scoreModelRename(old, next)
			if score >= renameThreshold {
				candidates = append(candidates, ModelRename{OldName: old.Name, NewName: next.Name, Score: score})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].OldName != candidates[j].OldName {
			return candidates[i].OldName < candidates[j].OldName
		}
		return candidates[i].NewName < candidates[j].NewName
	})

	usedOld := map[string]bool{}
	usedNew := map[string]bool{}
	var out []ModelRename
	for _, c := range candidates {
		if usedOld[c.OldName] || usedNew[c.NewName] {
			continue
		}
		usedOld[c.OldName] = true
		usedNew[c.NewName] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OldName < out[j].OldName })
	return out
}

// scoreModelRename weighs field overlap (0.6) and name similarity (0.4).
func scoreModelRename(old, next *ast.TableState) float64 {
	matched := 0
	for _, f := range old.Fields {
		if nf := next.Field(f.Name); nf != nil && f.SameShape(nf) {
			matched++
		}
	}
	total := max(len(old.Fields), len(next.Fields))
	fieldScore := 0.0
	if total > 0 {
		fieldScore = float64(matched) / float64(total)
	}
	return 0.6*fieldScore + 0.4*jaroWinkler(old.Name, next.Name)
}

// DetectFieldRenames scores every removed/added field pair within one
// table and returns the best greedy assignment above the threshold.
func DetectFieldRenames(model string, removed, added []*ast.FieldState) []FieldRename {
	var candidates []FieldRename
	for oldPos, old := range removed {
		for newPos, next := range added {
			score := scoreFieldRename(old, oldPos, next, newPos)
			if score >= renameThreshold {
				candidates = append(candidates, FieldRename{
					Model: model, OldName: old.Name, NewName: next.Name, Score: score,
				})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].OldName != candidates[j].OldName {
			return candidates[i].OldName < candidates[j].OldName
		}
		return candidates[i].NewName < candidates[j].NewName
	})

	usedOld := map[string]bool{}
	usedNew := map[string]bool{}
	var out []FieldRename
	for _, c := range candidates {
		if usedOld[c.OldName] || usedNew[c.NewName] {
			continue
		}
		usedOld[c.OldName] = true
		usedNew[c.NewName] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OldName < out[j].OldName })
	return out
}

// scoreFieldRename weighs definition match (0.5), name similarity (0.3),
// and position (0.2). A removed and added field with identical shape is
// already at the threshold regardless of name.
func scoreFieldRename(old *ast.FieldState, oldPos int, next *ast.FieldState, newPos int) float64 {
	score := 0.0
	if old.SameShape(next) {
		score += 0.5
	} else if old.Type == next.Type {
		score += 0.25
	}
	score += 0.3 * jaroWinkler(old.Name, next.Name)
	if oldPos == newPos {
		score += 0.2
	}
	return score
}

// jaroWinkler computes string similarity in [0, 1] with the common-prefix
// boost (up to 4 characters, scaling factor 0.1).
func jaroWinkler(a, b string) float64 {
	j := jaro(a, b)
	if j == 0 {
		return 0
	}
	prefix := 0
	for i := 0; i < len(a) && i < len(b) && i < 4; i++ {
		if a[i] != b[i] {
			break
		}
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}

func jaro(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	maxDist := max(la, lb)/2 - 1
	if maxDist < 0 {
		maxDist = 0
	}
	matchA := make([]bool, la)
	matchB := make([]bool, lb)

	matches := 0
	for i := 0; i < la; i++ {
		lo := max(0, i-maxDist)
		hi := min(lb-1, i+maxDist)
		for j := lo; j <= hi; j++ {
			if matchB[j] || a[i] != b[j] {
				continue
			}
			matchA[i] = true
			matchB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchA[i] {
			continue
		}
		for !matchB[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}
