// SPDX-License-Identifier: MPL-2.0

// Package dag provides the directed acyclic graph over loaded environment
// modules. The session uses it to order cascading unloads (dependents are
// dismounted before their dependencies) and to report dependency cycles.
package dag

import (
	"fmt"
	"sort"
	"strings"
)

type (
	// CycleError indicates that the module graph contains a dependency
	// cycle, preventing a mount or dismount ordering.
	CycleError struct {
		// Modules contains the modules participating in the cycle (enough
		// of them to identify the problem, not necessarily all).
		Modules []string
	}

	// Graph is a directed graph of module dependencies. An edge from A to B
	// records that A must be mounted before B, i.e. B depends on A.
	Graph struct {
		dependents map[string][]string
		nodes      map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("module dependency cycle: %s", strings.Join(e.Modules, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		dependents: make(map[string][]string),
		nodes:      make(map[string]bool),
	}
}

// AddModule registers a module with no recorded dependencies yet.
func (g *Graph) AddModule(name string) {
	g.nodes[name] = true
}

// AddDependency records that dependent requires dependency, so the
// dependency must be mounted first. Both modules are registered implicitly.
func (g *Graph) AddDependency(dependent, dependency string) {
	g.AddModule(dependent)
	g.AddModule(dependency)
	g.dependents[dependency] = append(g.dependents[dependency], dependent)
}

// MountOrder returns an order in which every module appears after all of
// its dependencies, using Kahn's algorithm. Modules at the same depth are
// emitted in lexicographic order so the result is deterministic regardless
// of registration order. Returns CycleError when no such order exists.
func (g *Graph) MountOrder() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for node := range g.nodes {
		inDegree[node] = 0
	}
	for _, deps := range g.dependents {
		for _, dep := range deps {
			inDegree[dep]++
		}
	}

	var ready []string
	for node := range g.nodes {
		if inDegree[node] == 0 {
			ready = append(ready, node)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)

		unlocked := make([]string, 0, len(g.dependents[node]))
		for _, dep := range g.dependents[node] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}

	if len(order) != len(g.nodes) {
		var cycle []string
		for node := range g.nodes {
			if inDegree[node] > 0 {
				cycle = append(cycle, node)
			}
		}
		sort.Strings(cycle)
		return nil, &CycleError{Modules: cycle}
	}

	return order, nil
}

// DismountOrder returns the reverse of MountOrder: every module appears
// before all of its dependencies, which is the safe order for cascading
// unloads.
func (g *Graph) DismountOrder() ([]string, error) {
	order, err := g.MountOrder()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// Dependents returns the transitive closure of modules that depend on the
// given module, i.e. everything that must be dismounted before it.
func (g *Graph) Dependents(name string) []string {
	seen := map[string]bool{name: true}
	queue := []string{name}
	var out []string

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, dep := range g.dependents[node] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			queue = append(queue, dep)
		}
	}

	sort.Strings(out)
	return out
}
