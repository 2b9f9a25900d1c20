package engine

import (
	"fmt"
	"strings"
)

// DependencyGraph is the static mapping of component names to their
// declared dependencies. It is built once at orchestrator construction and
// never mutated at runtime.
type DependencyGraph struct {
	// descriptors preserves declaration order, the tie-break order for
	// mutually independent components.
	descriptors []ComponentDescriptor

	// byName indexes descriptors for dependency validation.
	byName map[string]*ComponentDescriptor
}

// visitState is the traversal state of a node during topological sort.
type visitState int

const (
	stateUnvisited visitState = iota
	stateInProgress
	stateDone
)

// NewDependencyGraph builds a graph from component descriptors. It rejects
// duplicate names and dependencies on undeclared components; cycle
// detection happens in ComputeOrder.
func NewDependencyGraph(descriptors []ComponentDescriptor) (*DependencyGraph, error) {
	g := &DependencyGraph{
		descriptors: make([]ComponentDescriptor, 0, len(descriptors)),
		byName:      make(map[string]*ComponentDescriptor, len(descriptors)),
	}

	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("component descriptor has empty name")
		}
		if _, exists := g.byName[d.Name]; exists {
			return nil, fmt.Errorf("duplicate component name: %s", d.Name)
		}
		g.descriptors = append(g.descriptors, d)
		g.byName[d.Name] = &g.descriptors[len(g.descriptors)-1]
	}

	for _, d := range g.descriptors {
		for _, dep := range d.Dependencies {
			if _, exists := g.byName[dep]; !exists {
				return nil, fmt.Errorf("component %s depends on undeclared component %s", d.Name, dep)
			}
		}
	}

	return g, nil
}

// Len returns the number of declared components.
func (g *DependencyGraph) Len() int {
	return len(g.descriptors)
}

// Descriptors returns the declared components in declaration order.
func (g *DependencyGraph) Descriptors() []ComponentDescriptor {
	out := make([]ComponentDescriptor, len(g.descriptors))
	copy(out, g.descriptors)
	return out
}

// Dependencies returns the declared dependencies of a component, or nil if
// the component is not declared.
func (g *DependencyGraph) Dependencies(name string) []string {
	d, ok := g.byName[name]
	if !ok {
		return nil
	}
	out := make([]string, len(d.Dependencies))
	copy(out, d.Dependencies)
	return out
}

// ComputeOrder returns a deterministic topological order in which every
// dependency precedes its dependents. Traversal visits components in
// declaration order and recurses into each unvisited dependency before
// appending the component itself. Re-entering a node that is still on the
// active recursion path raises a CycleDetected error instead of silently
// truncating the order.
func (g *DependencyGraph) ComputeOrder() ([]string, error) {
	states := make(map[string]visitState, len(g.descriptors))
	order := make([]string, 0, len(g.descriptors))
	path := make([]string, 0, len(g.descriptors))

	var visit func(name string) error
	visit = func(name string) error {
		switch states[name] {
		case stateDone:
			return nil
		case stateInProgress:
			// The node is on the active recursion path: cycle.
			cycleStart := 0
			for i, n := range path {
				if n == name {
					cycleStart = i
					break
				}
			}
			cycle := append(append([]string{}, path[cycleStart:]...), name)
			return NewCycleDetectedError(cycle)
		}

		states[name] = stateInProgress
		path = append(path, name)

		for _, dep := range g.byName[name].Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		states[name] = stateDone
		order = append(order, name)
		return nil
	}

	for _, d := range g.descriptors {
		if err := visit(d.Name); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// ToDOT generates a DOT representation of the dependency graph for
// visualization with Graphviz tools. Optional statistics colorize nodes by
// their current lifecycle status.
func (g *DependencyGraph) ToDOT(stats *LifecycleStatistics) string {
	var sb strings.Builder

	sb.WriteString("digraph Components {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=\"filled,rounded\"];\n\n")

	for _, d := range g.descriptors {
		color := "white"
		if stats != nil {
			if health, ok := stats.Components[d.Name]; ok {
				color = statusColor(health.Status)
			}
		}
		sb.WriteString(fmt.Sprintf("  %q [fillcolor=%q];\n", d.Name, color))
	}
	sb.WriteString("\n")

	for _, d := range g.descriptors {
		for _, dep := range d.Dependencies {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep, d.Name))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// statusColor returns a fill color for visualizing component status.
func statusColor(status ComponentStatus) string {
	switch status {
	case StatusInitialized:
		return "lightgreen"
	case StatusFailed:
		return "lightcoral"
	case StatusInitializing, StatusShuttingDown:
		return "lightblue"
	case StatusShutdown:
		return "lightgray"
	default:
		return "white"
	}
}

// formatCycle formats a cycle path for error messages.
func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(cycle, " -> ")
}
