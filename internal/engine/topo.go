// Package engine computes schema diffs and plans and executes migrations.
package engine

import (
	"sort"
	"strings"

	"github.com/marchdb/march/internal/merr"
)

// dependencyNode is anything that can participate in a topological sort.
type dependencyNode interface {
	ID() string
	Dependencies() []string
}

// topoSort orders nodes so that every node comes after its dependencies.
// Ties break alphabetically by ID so the output is deterministic.
// Dependencies on IDs outside the node set are ignored.
func topoSort[T dependencyNode](nodes []T) ([]T, error) {
	byID := make(map[string]T, len(nodes))
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string)

	for _, n := range nodes {
		byID[n.ID()] = n
		indegree[n.ID()] = 0
	}
	for _, n := range nodes {
		for _, dep := range n.Dependencies() {
			if _, ok := byID[dep]; !ok {
				continue
			}
			indegree[n.ID()]++
			dependents[dep] = append(dependents[dep], n.ID())
		}
	}

	var queue []string
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	out := make([]T, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, byID[id])

		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				// Insertion sort keeps the queue ordered and the output stable.
				i := sort.SearchStrings(queue, dep)
				queue = append(queue, "")
				copy(queue[i+1:], queue[i:])
				queue[i] = dep
			}
		}
	}

	if len(out) != len(nodes) {
		var stuck []string
		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, merr.New(merr.ErrCyclicDependency, "circular dependency between models").
			With("models", strings.Join(stuck, ", ")).
			WithHelp("make one side of the cycle nullable or move it to a later migration")
	}
	return out, nil
}
