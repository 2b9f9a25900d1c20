package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestComputeOrder_SimpleChain(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "A"},
		{Name: "B", Dependencies: []string{"A"}},
		{Name: "C", Dependencies: []string{"A", "B"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	order, err := graph.ComputeOrder()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"A", "B", "C"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d components, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected order %v, got %v", want, order)
			break
		}
	}
}

func TestComputeOrder_DependenciesPrecedeDependents(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "metrics"},
		{Name: "store", Dependencies: []string{"metrics"}},
		{Name: "cache", Dependencies: []string{"store"}},
		{Name: "resolver", Dependencies: []string{"cache", "metrics"}},
		{Name: "diag", Dependencies: []string{"metrics", "resolver"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	order, err := graph.ComputeOrder()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(order) != graph.Len() {
		t.Fatalf("Expected a permutation of %d components, got %d", graph.Len(), len(order))
	}

	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}

	for _, d := range graph.Descriptors() {
		for _, dep := range d.Dependencies {
			if position[dep] >= position[d.Name] {
				t.Errorf("Dependency %s should precede %s in %v", dep, d.Name, order)
			}
		}
	}
}

func TestComputeOrder_DeclarationOrderTieBreak(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "gamma"},
		{Name: "alpha"},
		{Name: "beta"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	order, err := graph.ComputeOrder()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"gamma", "alpha", "beta"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected declaration order %v, got %v", want, order)
		}
	}
}

func TestComputeOrder_CycleDetected(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "A", Dependencies: []string{"C"}},
		{Name: "B", Dependencies: []string{"A"}},
		{Name: "C", Dependencies: []string{"B"}},
	})
	if err != nil {
		t.Fatalf("Expected no error building graph, got: %v", err)
	}

	order, err := graph.ComputeOrder()
	if err == nil {
		t.Fatalf("Expected cycle error, got order %v", order)
	}
	if !IsCycleDetected(err) {
		t.Errorf("Expected CycleDetected error, got: %v", err)
	}

	var lifecycleErr *LifecycleError
	if !errors.As(err, &lifecycleErr) {
		t.Fatalf("Expected *LifecycleError, got %T", err)
	}
	if len(lifecycleErr.Cycle) < 3 {
		t.Errorf("Expected cycle path in error, got: %v", lifecycleErr.Cycle)
	}
}

func TestComputeOrder_SelfDependencyIsCycle(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "A", Dependencies: []string{"A"}},
	})
	if err != nil {
		t.Fatalf("Expected no error building graph, got: %v", err)
	}

	if _, err := graph.ComputeOrder(); !IsCycleDetected(err) {
		t.Errorf("Expected CycleDetected for self-dependency, got: %v", err)
	}
}

func TestNewDependencyGraph_DuplicateName(t *testing.T) {
	_, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "A"},
		{Name: "A"},
	})
	if err == nil {
		t.Fatal("Expected error for duplicate component name")
	}
}

func TestNewDependencyGraph_UndeclaredDependency(t *testing.T) {
	_, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "A", Dependencies: []string{"missing"}},
	})
	if err == nil {
		t.Fatal("Expected error for dependency on undeclared component")
	}
}

func TestToDOT(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "A"},
		{Name: "B", Dependencies: []string{"A"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	dot := graph.ToDOT(nil)
	if !strings.Contains(dot, `"A" -> "B"`) {
		t.Errorf("Expected edge A -> B in DOT output:\n%s", dot)
	}
	if !strings.Contains(dot, "digraph Components") {
		t.Errorf("Expected digraph header in DOT output:\n%s", dot)
	}
}
