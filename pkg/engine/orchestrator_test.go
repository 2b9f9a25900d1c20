package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeComponent is a controllable lifecycle-aware component.
type fakeComponent struct {
	name         string
	initErr      error
	initDelay    time.Duration
	shutdownErr  error
	initCalls    int
	shutdownCall int
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Init(ctx context.Context) error {
	f.initCalls++
	if f.initDelay > 0 {
		time.Sleep(f.initDelay)
	}
	return f.initErr
}

func (f *fakeComponent) Shutdown(ctx context.Context) error {
	f.shutdownCall++
	return f.shutdownErr
}

// passiveComponent exposes no lifecycle hooks.
type passiveComponent struct {
	name string
}

func (p *passiveComponent) Name() string { return p.name }

func chainGraph(t *testing.T) *DependencyGraph {
	t.Helper()
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "A"},
		{Name: "B", Dependencies: []string{"A"}},
		{Name: "C", Dependencies: []string{"A", "B"}},
	})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	return graph
}

func TestInitialize_AllSucceed(t *testing.T) {
	graph := chainGraph(t)
	a := &fakeComponent{name: "A"}
	b := &fakeComponent{name: "B"}
	c := &fakeComponent{name: "C"}

	orch, err := NewOrchestrator(graph, []Component{a, b, c}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stats, err := orch.Initialize(context.Background(), InitializeOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"A", "B", "C"}
	for i := range want {
		if stats.InitializeOrder[i] != want[i] {
			t.Fatalf("Expected initialize order %v, got %v", want, stats.InitializeOrder)
		}
	}
	if stats.Summary.Initialized != 3 || stats.Summary.Failed != 0 {
		t.Errorf("Expected 3 initialized, 0 failed, got %+v", stats.Summary)
	}
	if a.initCalls != 1 || b.initCalls != 1 || c.initCalls != 1 {
		t.Errorf("Expected each init hook invoked once")
	}
}

func TestInitialize_PassiveComponentZeroDuration(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{{Name: "idle"}})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	orch, err := NewOrchestrator(graph, []Component{&passiveComponent{name: "idle"}}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stats, err := orch.Initialize(context.Background(), InitializeOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	health := stats.Components["idle"]
	if health.Status != StatusInitialized {
		t.Errorf("Expected passive component initialized, got %s", health.Status)
	}
	if health.Duration != 0 {
		t.Errorf("Expected zero duration for passive component, got %s", health.Duration)
	}
	if health.Error != "" {
		t.Errorf("Expected no error for passive component, got %q", health.Error)
	}
}

func TestInitialize_CriticalFailureAborts(t *testing.T) {
	graph := chainGraph(t)
	a := &fakeComponent{name: "A", initErr: errors.New("boom")}
	b := &fakeComponent{name: "B"}
	c := &fakeComponent{name: "C"}

	orch, err := NewOrchestrator(graph, []Component{a, b, c}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, err = orch.Initialize(context.Background(), InitializeOptions{
		GracefulDegradation: false,
		CriticalComponents:  []string{"A"},
	})
	if err == nil {
		t.Fatal("Expected initialize to abort on critical failure")
	}
	if !strings.Contains(err.Error(), "A") {
		t.Errorf("Expected error to carry component name, got: %v", err)
	}

	stats := orch.Statistics()
	if stats.Summary.Failed < 1 {
		t.Errorf("Expected at least 1 failed component, got %d", stats.Summary.Failed)
	}
	if b.initCalls != 0 || c.initCalls != 0 {
		t.Errorf("Expected pass aborted before B and C")
	}
}

func TestInitialize_GracefulDegradationContinues(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "A"},
		{Name: "B", Dependencies: []string{"A"}},
		{Name: "D"},
	})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	a := &fakeComponent{name: "A", initErr: errors.New("boom")}
	b := &fakeComponent{name: "B"}
	d := &fakeComponent{name: "D"}

	orch, err := NewOrchestrator(graph, []Component{a, b, d}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stats, err := orch.Initialize(context.Background(), InitializeOptions{
		GracefulDegradation: true,
		CriticalComponents:  []string{"A"},
	})
	if err != nil {
		t.Fatalf("Expected graceful pass to complete, got: %v", err)
	}

	if stats.Components["A"].Status != StatusFailed {
		t.Errorf("Expected A failed, got %s", stats.Components["A"].Status)
	}
	// D does not depend on A and must still come up.
	if stats.Components["D"].Status != StatusInitialized {
		t.Errorf("Expected D initialized, got %s", stats.Components["D"].Status)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("Expected 1 entry in error log, got %d", len(stats.Errors))
	}
}

func TestInitialize_MissingComponentRecordedFailed(t *testing.T) {
	graph := chainGraph(t)
	// B has no registered implementation.
	a := &fakeComponent{name: "A"}
	c := &fakeComponent{name: "C"}

	orch, err := NewOrchestrator(graph, []Component{a, c}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stats, err := orch.Initialize(context.Background(), InitializeOptions{GracefulDegradation: true})
	if err != nil {
		t.Fatalf("Expected graceful pass to complete, got: %v", err)
	}

	if stats.Components["B"].Status != StatusFailed {
		t.Errorf("Expected missing component failed, got %s", stats.Components["B"].Status)
	}
	if !strings.Contains(stats.Components["B"].Error, "not registered") {
		t.Errorf("Expected not-registered error, got %q", stats.Components["B"].Error)
	}
}

func TestInitialize_MissingCriticalComponentAborts(t *testing.T) {
	graph := chainGraph(t)
	a := &fakeComponent{name: "A"}
	c := &fakeComponent{name: "C"}

	orch, err := NewOrchestrator(graph, []Component{a, c}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, err = orch.Initialize(context.Background(), InitializeOptions{
		CriticalComponents: []string{"B"},
	})
	if !IsComponentNotFound(err) {
		t.Fatalf("Expected ComponentNotFound abort, got: %v", err)
	}
	if c.initCalls != 0 {
		t.Errorf("Expected pass aborted before C")
	}
}

func TestInitialize_Timeout(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{{Name: "slow"}})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	slow := &fakeComponent{name: "slow", initDelay: 500 * time.Millisecond}
	orch, err := NewOrchestrator(graph, []Component{slow}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	start := time.Now()
	_, err = orch.Initialize(context.Background(), InitializeOptions{
		Timeout:            50 * time.Millisecond,
		CriticalComponents: []string{"slow"},
	})
	elapsed := time.Since(start)

	if !IsComponentTimeout(err) {
		t.Fatalf("Expected ComponentTimeout, got: %v", err)
	}
	if elapsed >= 400*time.Millisecond {
		t.Errorf("Expected timeout to fire near the budget, took %s", elapsed)
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	graph := chainGraph(t)
	a := &fakeComponent{name: "A"}
	b := &fakeComponent{name: "B"}
	c := &fakeComponent{name: "C"}

	orch, err := NewOrchestrator(graph, []Component{a, b, c}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	first, err := orch.Initialize(context.Background(), InitializeOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := orch.Initialize(context.Background(), InitializeOptions{})
	if err != nil {
		t.Fatalf("Expected re-invoke to be a no-op, got: %v", err)
	}

	if a.initCalls != 1 {
		t.Errorf("Expected init hook invoked once, got %d", a.initCalls)
	}
	if second.RunID != first.RunID {
		t.Errorf("Expected identical statistics on re-invoke")
	}
}

func TestShutdown_ReverseOrder(t *testing.T) {
	graph := chainGraph(t)
	a := &fakeComponent{name: "A"}
	b := &fakeComponent{name: "B"}
	c := &fakeComponent{name: "C"}

	orch, err := NewOrchestrator(graph, []Component{a, b, c}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := orch.Initialize(context.Background(), InitializeOptions{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	stats, err := orch.Shutdown(context.Background(), ShutdownOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"C", "B", "A"}
	if len(stats.ShutdownOrder) != len(want) {
		t.Fatalf("Expected shutdown order %v, got %v", want, stats.ShutdownOrder)
	}
	for i := range want {
		if stats.ShutdownOrder[i] != want[i] {
			t.Fatalf("Expected shutdown order %v, got %v", want, stats.ShutdownOrder)
		}
	}
	if stats.Components["A"].Status != StatusShutdown {
		t.Errorf("Expected A shut down, got %s", stats.Components["A"].Status)
	}
}

func TestShutdown_AbortsWithoutForce(t *testing.T) {
	graph := chainGraph(t)
	a := &fakeComponent{name: "A"}
	b := &fakeComponent{name: "B", shutdownErr: errors.New("stuck")}
	c := &fakeComponent{name: "C"}

	orch, err := NewOrchestrator(graph, []Component{a, b, c}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := orch.Initialize(context.Background(), InitializeOptions{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	_, err = orch.Shutdown(context.Background(), ShutdownOptions{Force: false})
	if err == nil {
		t.Fatal("Expected shutdown to abort on failure")
	}
	// A comes after B in reverse order and must be left un-shut-down.
	if a.shutdownCall != 0 {
		t.Errorf("Expected A untouched after abort, got %d calls", a.shutdownCall)
	}
}

func TestShutdown_ForceContinues(t *testing.T) {
	graph := chainGraph(t)
	a := &fakeComponent{name: "A"}
	b := &fakeComponent{name: "B", shutdownErr: errors.New("stuck")}
	c := &fakeComponent{name: "C"}

	orch, err := NewOrchestrator(graph, []Component{a, b, c}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := orch.Initialize(context.Background(), InitializeOptions{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	stats, err := orch.Shutdown(context.Background(), ShutdownOptions{Force: true})
	if err != nil {
		t.Fatalf("Expected forced shutdown to complete, got: %v", err)
	}

	if a.shutdownCall != 1 {
		t.Errorf("Expected forced shutdown to reach A")
	}
	if stats.Components["B"].Status != StatusFailed {
		t.Errorf("Expected B failed, got %s", stats.Components["B"].Status)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("Expected shutdown failure in error log, got %d entries", len(stats.Errors))
	}
}

func TestHealthQueries(t *testing.T) {
	graph, err := NewDependencyGraph([]ComponentDescriptor{
		{Name: "good"},
		{Name: "bad"},
	})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	good := &fakeComponent{name: "good"}
	bad := &fakeComponent{name: "bad", initErr: errors.New("boom")}

	orch, err := NewOrchestrator(graph, []Component{good, bad}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := orch.Initialize(context.Background(), InitializeOptions{GracefulDegradation: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if !orch.IsComponentHealthy("good") {
		t.Error("Expected good to be healthy")
	}
	if orch.IsComponentHealthy("bad") {
		t.Error("Expected bad to be unhealthy")
	}
	if !orch.IsSystemHealthy([]string{"good"}) {
		t.Error("Expected system healthy for [good]")
	}
	if orch.IsSystemHealthy([]string{"good", "bad"}) {
		t.Error("Expected system unhealthy for [good bad]")
	}

	report := Report(orch.Statistics())
	if !strings.Contains(report, "good") || !strings.Contains(report, "failed") {
		t.Errorf("Expected report to mention components and failures:\n%s", report)
	}
}
