// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_SingleNode(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A"}) {
		t.Errorf("expected [A], got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// A -> B -> C
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"A", "B", "C"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	// A -> B, A -> C, B -> D, C -> D
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A must be first, D must be last
	if order[0] != "A" {
		t.Errorf("expected A first, got %v", order)
	}
	if order[len(order)-1] != "D" {
		t.Errorf("expected D last, got %v", order)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes, got %d: %v", len(order), order)
	}
}

func TestTopologicalSort_SimpleCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Cycle) < 2 {
		t.Errorf("expected at least 2 nodes in cycle, got %v", cycleErr.Cycle)
	}
}

func TestTopologicalSort_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "A")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
}

func TestTopologicalSort_ComplexCycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	if len(cycleErr.Cycle) < 3 {
		t.Errorf("expected at least 3 nodes in cycle, got %v", cycleErr.Cycle)
	}
}

func TestTopologicalSort_DisconnectedComponents(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddNode("C")
	g.AddNode("D")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Errorf("expected 4 nodes, got %d: %v", len(order), order)
	}
	// A must come before B
	aIdx := slices.Index(order, "A")
	bIdx := slices.Index(order, "B")
	if aIdx >= bIdx {
		t.Errorf("A (idx %d) must come before B (idx %d) in %v", aIdx, bIdx, order)
	}
}

func TestTopologicalSort_DuplicateEdges(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "B") // duplicate

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Duplicates just increase in-degree; Kahn's handles it.
	if !slices.Equal(order, []string{"A", "B"}) {
		t.Errorf("expected [A, B], got %v", order)
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"A", "B", "C"}}
	expected := "dependency cycle detected: A -> B -> C"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestCycles_Acyclic(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("main", "a")
	g.AddEdge("main", "b")
	g.AddEdge("a", "d")
	g.AddEdge("b", "d")

	if cycles := g.Cycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestCycles_ClosedPaths(t *testing.T) {
	t.Parallel()
	g := New()
	// main -> a -> b -> c -> a, plus a self-loop on d and a separate x <-> y.
	g.AddEdge("main", "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")
	g.AddEdge("main", "d")
	g.AddEdge("d", "d")
	g.AddEdge("y", "x")
	g.AddEdge("x", "y")

	cycles := g.Cycles()
	want := [][]string{
		{"a", "b", "c", "a"},
		{"d", "d"},
		{"y", "x", "y"},
	}
	if len(cycles) != len(want) {
		t.Fatalf("expected %d cycles, got %v", len(want), cycles)
	}
	for i := range want {
		if !slices.Equal(cycles[i], want[i]) {
			t.Errorf("cycle %d: expected %v, got %v", i, want[i], cycles[i])
		}
	}
}

func TestCycles_ShortestPathThroughComponent(t *testing.T) {
	t.Parallel()
	g := New()
	// a -> b -> c -> d -> a and a shortcut c -> a.
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "d")
	g.AddEdge("d", "a")
	g.AddEdge("c", "a")

	cycles := g.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("expected one component, got %v", cycles)
	}
	if want := []string{"a", "b", "c", "a"}; !slices.Equal(cycles[0], want) {
		t.Errorf("expected %v, got %v", want, cycles[0])
	}
}

func TestCycles_Deterministic(t *testing.T) {
	t.Parallel()
	build := func() *Graph {
		g := New()
		for _, e := range [][2]string{{"m", "p"}, {"p", "q"}, {"q", "m"}, {"m", "r"}, {"r", "r"}} {
			g.AddEdge(e[0], e[1])
		}
		return g
	}
	first := build().Cycles()
	for range 10 {
		again := build().Cycles()
		if len(again) != len(first) {
			t.Fatalf("cycle count changed: %v vs %v", first, again)
		}
		for i := range first {
			if !slices.Equal(first[i], again[i]) {
				t.Fatalf("cycles differ between runs: %v vs %v", first, again)
			}
		}
	}
}

func TestTopologicalSort_CycleErrorIsClosedPath(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if want := "dependency cycle detected: A -> B -> A"; err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestNodesAndSuccessors(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("main", "b")
	g.AddEdge("main", "a")
	g.AddEdge("main", "b")

	if want := []string{"main", "b", "a"}; !slices.Equal(g.Nodes(), want) {
		t.Errorf("expected nodes %v, got %v", want, g.Nodes())
	}
	if want := []string{"b", "a", "b"}; !slices.Equal(g.Successors("main"), want) {
		t.Errorf("expected successors %v, got %v", want, g.Successors("main"))
	}
}
