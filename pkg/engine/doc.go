// Package engine implements the dependency-ordered lifecycle orchestrator
// for pixelgate subsystems.
//
// The engine consumes a static dependency graph (component name -> declared
// dependencies) supplied once at construction, computes a deterministic
// initialization order via topological sort, and drives each component's
// optional Init/Shutdown hook sequentially with per-component timeouts and
// a configurable failure policy (graceful degradation vs. fail-fast on
// critical components).
//
// # Workflow
//
//	graph, err := engine.NewDependencyGraph([]engine.ComponentDescriptor{
//	    {Name: "telemetry"},
//	    {Name: "store", Dependencies: []string{"telemetry"}},
//	    {Name: "cache", Dependencies: []string{"telemetry", "store"}},
//	})
//	orch, err := engine.NewOrchestrator(graph, components, recorder, logger)
//	stats, err := orch.Initialize(ctx, engine.InitializeOptions{
//	    GracefulDegradation: true,
//	    Timeout:             30 * time.Second,
//	    CriticalComponents:  []string{"store"},
//	})
//	defer orch.Shutdown(ctx, engine.ShutdownOptions{Force: true})
//
// Shutdown always runs in the exact reverse of the computed initialization
// order. All timings, status transitions and failures are accumulated in a
// LifecycleStatistics record owned by the orchestrator and exposed for
// diagnostics.
package engine
