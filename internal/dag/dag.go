// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed graph operations for topological sorting and
// cycle detection. It is used by the module graph builder to report require
// cycles and to compute a dependency-first load order when one exists.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes that form the cycle (not necessarily all of them,
		// but enough to identify the problem).
		Cycle []string
	}

	// Graph is a directed graph keyed by string nodes.
	// An edge from A to B means A must be ordered before B by TopologicalSort.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors in insertion order.
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// index maps a node to its position in nodes.
		index map[string]int
	}

	// tarjan holds the bookkeeping of one strongly-connected-components pass.
	tarjan struct {
		g       *Graph
		counter int
		index   map[string]int
		low     map[string]int
		onStack map[string]bool
		stack   []string
		sccs    [][]string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		index:     make(map[string]int),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to.
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Successors returns the outgoing neighbors of node in insertion order,
// duplicates included.
func (g *Graph) Successors(node string) []string {
	return slices.Clone(g.adjacency[node])
}

// TopologicalSort returns a valid execution order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	// Compute in-degrees.
	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	// Seed the queue with nodes that have no incoming edges, in insertion order.
	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		// Prefer an actual closed path over the raw leftover set.
		if cycles := g.Cycles(); len(cycles) > 0 {
			return nil, &CycleError{Cycle: cycles[0]}
		}
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}

// Cycles returns one closed path per cycle-bearing strongly connected
// component, found with Tarjan's algorithm. Each path starts and ends at the
// component's earliest-inserted node, e.g. [A B C A]; a self-loop is [A A].
// Components are ordered by that start node's insertion order, so the result
// is deterministic.
func (g *Graph) Cycles() [][]string {
	t := &tarjan{
		g:       g,
		index:   make(map[string]int, len(g.nodes)),
		low:     make(map[string]int, len(g.nodes)),
		onStack: make(map[string]bool, len(g.nodes)),
	}
	for _, node := range g.nodes {
		if _, seen := t.index[node]; !seen {
			t.strongConnect(node)
		}
	}

	var cycles [][]string
	for _, scc := range t.sccs {
		if len(scc) == 1 && !slices.Contains(g.adjacency[scc[0]], scc[0]) {
			continue
		}
		cycles = append(cycles, g.closedPath(scc))
	}
	slices.SortFunc(cycles, func(a, b []string) int {
		return g.index[a[0]] - g.index[b[0]]
	})
	return cycles
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.low[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.adjacency[v] {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			t.low[v] = min(t.low[v], t.low[w])
		} else if t.onStack[w] {
			t.low[v] = min(t.low[v], t.index[w])
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	var scc []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}

// closedPath finds the shortest cycle through the earliest-inserted member of
// scc using a breadth-first search restricted to the component.
func (g *Graph) closedPath(scc []string) []string {
	members := make(map[string]bool, len(scc))
	start := scc[0]
	for _, n := range scc {
		members[n] = true
		if g.index[n] < g.index[start] {
			start = n
		}
	}

	parent := map[string]string{}
	queue := []string{start}
	visited := map[string]bool{start: true}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[node] {
			if !members[next] {
				continue
			}
			if next == start {
				path := []string{start}
				for n := node; n != start; n = parent[n] {
					path = append(path, n)
				}
				path = append(path, start)
				// path is start, back-walk..., start; flip the interior.
				slices.Reverse(path[1 : len(path)-1])
				return path
			}
			if !visited[next] {
				visited[next] = true
				parent[next] = node
				queue = append(queue, next)
			}
		}
	}
	return []string{start, start}
}
