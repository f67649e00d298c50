package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/stackform/stackform/internal/core/compose"
)

// =============================================================================
// Graph Types
// =============================================================================

var (
	// ErrUnknownDependency indicates a depends_on entry naming a service
	// that does not exist in the model.
	ErrUnknownDependency = errors.New("depends_on references unknown service")

	// ErrDependencyCycle is returned by callers that refuse to proceed
	// on a cyclic graph. Build itself treats cycles as warnings.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)

// Graph is the service dependency graph, adjacency in both directions.
// Edges point from a service to the services it depends on.
type Graph struct {
	// Nodes in stable (sorted) order.
	Nodes []string

	// Edges maps a service to its dependencies, sorted.
	Edges map[string][]string

	// Reverse maps a service to its dependents, sorted. The network
	// policy builder uses this to decide which peers may connect.
	Reverse map[string][]string

	// Order is the startup ordering hint: dependencies before dependents.
	// Services inside a cycle keep their stable order and are appended
	// after all acyclic services.
	Order []string

	// Cycles lists each detected dependency cycle as its member services
	// in stable order. Non-empty cycles are warnings, not failures.
	Cycles [][]string
}

// HasCycles reports whether any dependency cycle was detected.
func (g *Graph) HasCycles() bool {
	return len(g.Cycles) > 0
}

// Dependents returns the services that depend on the given service.
func (g *Graph) Dependents(id string) []string {
	return g.Reverse[id]
}

// Dependencies returns the services the given service depends on.
func (g *Graph) Dependencies(id string) []string {
	return g.Edges[id]
}

// =============================================================================
// Graph Construction
// =============================================================================

// Build constructs the dependency graph for the model. This is a pure
// function - no I/O, no side effects.
//
// A depends_on entry naming a service absent from the model is a fatal
// error: generating manifests with a dangling reference would produce
// an undeployable set.
func Build(model *compose.Model) (*Graph, error) {
	g := &Graph{
		Edges:   make(map[string][]string, len(model.Services)),
		Reverse: make(map[string][]string, len(model.Services)),
	}

	known := make(map[string]bool, len(model.Services))
	for _, svc := range model.Services {
		known[svc.ID] = true
	}

	for _, svc := range model.Services {
		g.Nodes = append(g.Nodes, svc.ID)
		for _, dep := range svc.DependsOn {
			if !known[dep] {
				return nil, fmt.Errorf("service %q depends on %q: %w", svc.ID, dep, ErrUnknownDependency)
			}
			g.Edges[svc.ID] = append(g.Edges[svc.ID], dep)
			g.Reverse[dep] = append(g.Reverse[dep], svc.ID)
		}
	}
	sort.Strings(g.Nodes)
	for id := range g.Edges {
		sort.Strings(g.Edges[id])
	}
	for id := range g.Reverse {
		sort.Strings(g.Reverse[id])
	}

	g.Order = topologicalOrder(g)
	g.Cycles = findCycles(g)

	return g, nil
}

// topologicalOrder sorts services by their dependencies using Kahn's
// algorithm. Dependencies come before their dependents. Ties are broken
// by service id so the result is deterministic. Services caught in a
// cycle never reach in-degree zero and are appended at the end in
// stable order.
func topologicalOrder(g *Graph) []string {
	inDegree := make(map[string]int, len(g.Nodes))
	for _, id := range g.Nodes {
		inDegree[id] = len(g.Edges[id])
	}

	var queue []string
	for _, id := range g.Nodes {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var order []string
	for len(queue) > 0 {
		sort.Strings(queue)
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, dependent := range g.Reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	// Anything left is part of a cycle. Append in stable order so the
	// pipeline can still emit manifests for every service.
	if len(order) < len(g.Nodes) {
		placed := make(map[string]bool, len(order))
		for _, id := range order {
			placed[id] = true
		}
		for _, id := range g.Nodes {
			if !placed[id] {
				order = append(order, id)
			}
		}
	}

	return order
}

// findCycles detects dependency cycles with an iterative DFS over the
// dependency edges. Each cycle is reported once, members in stable order.
func findCycles(g *Graph) [][]string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(g.Nodes))

	var cycles [][]string
	seen := make(map[string]bool)

	var stack []string
	var visit func(id string)
	visit = func(id string) {
		state[id] = inStack
		stack = append(stack, id)

		for _, dep := range g.Edges[id] {
			switch state[dep] {
			case unvisited:
				visit(dep)
			case inStack:
				// Found a back edge: the cycle is the stack suffix
				// starting at dep.
				start := len(stack) - 1
				for start >= 0 && stack[start] != dep {
					start--
				}
				members := append([]string(nil), stack[start:]...)
				sort.Strings(members)
				key := fmt.Sprint(members)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, members)
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
	}

	for _, id := range g.Nodes {
		if state[id] == unvisited {
			visit(id)
		}
	}

	return cycles
}
