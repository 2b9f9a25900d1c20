package engine

import (
	"context"
	"time"
)

// Lifecycle phases recorded in statistics and error logs.
const (
	PhaseInit     = "init"
	PhaseShutdown = "shutdown"
)

// Component is a named subsystem managed by the orchestrator. Components
// that need startup or teardown work additionally implement Initializer
// and/or Shutdowner; a component implementing neither is passive and is
// treated as a trivial success during both passes.
type Component interface {
	// Name returns the component's registry name. It must match a
	// descriptor in the dependency graph.
	Name() string
}

// Initializer is the optional startup capability of a Component.
type Initializer interface {
	Component
	Init(ctx context.Context) error
}

// Shutdowner is the optional teardown capability of a Component.
type Shutdowner interface {
	Component
	Shutdown(ctx context.Context) error
}

// ComponentDescriptor declares a component and its dependencies in the
// static dependency graph. Descriptors are constructed once and never
// mutated; declaration order is the tie-break order for mutually
// independent components.
type ComponentDescriptor struct {
	// Name is the unique component name.
	Name string `json:"name" yaml:"name"`

	// Dependencies lists the names of components that must initialize
	// before this one.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// ComponentStatus represents the lifecycle state of a single component.
// A component moves strictly monotonically through the sequence within a
// single lifecycle pass.
type ComponentStatus string

const (
	// StatusUnknown indicates the component has not been touched yet.
	StatusUnknown ComponentStatus = "unknown"

	// StatusInitializing indicates the Init hook is running.
	StatusInitializing ComponentStatus = "initializing"

	// StatusInitialized indicates the component started successfully.
	StatusInitialized ComponentStatus = "initialized"

	// StatusFailed indicates initialization or shutdown failed.
	StatusFailed ComponentStatus = "failed"

	// StatusShuttingDown indicates the Shutdown hook is running.
	StatusShuttingDown ComponentStatus = "shutting_down"

	// StatusShutdown indicates the component shut down cleanly.
	StatusShutdown ComponentStatus = "shutdown"
)

// ComponentHealth tracks timing and outcome for one component. It is
// mutated only by the orchestrator's sequential control flow.
type ComponentHealth struct {
	// Name is the component name.
	Name string `json:"name"`

	// Status is the current lifecycle status.
	Status ComponentStatus `json:"status"`

	// StartedAt is when the most recent lifecycle hook began.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// EndedAt is when the most recent lifecycle hook finished.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// Duration is how long the most recent lifecycle hook took. A passive
	// component (no hook) records a zero duration.
	Duration time.Duration `json:"duration"`

	// Error is the failure message, if the component failed.
	Error string `json:"error,omitempty"`

	// Message is an optional human-readable note (e.g. "no init hook").
	Message string `json:"message,omitempty"`

	// Dependencies echoes the component's declared dependencies.
	Dependencies []string `json:"dependencies,omitempty"`
}

// LifecycleFailure is one entry in the ordered error log of a pass.
type LifecycleFailure struct {
	// Component is the failing component name.
	Component string `json:"component"`

	// Phase is the lifecycle phase in which the failure occurred.
	Phase string `json:"phase"`

	// Error is the failure message.
	Error string `json:"error"`
}

// LifecycleSummary aggregates component counts for a pass.
type LifecycleSummary struct {
	// Total is the number of components in the graph.
	Total int `json:"total"`

	// Initialized is the number of successfully initialized components.
	Initialized int `json:"initialized"`

	// Failed is the number of components that failed either phase.
	Failed int `json:"failed"`

	// Shutdown is the number of cleanly shut down components.
	Shutdown int `json:"shutdown"`
}

// LifecycleStatistics is the aggregate diagnostic record for one
// orchestrator instance. It is owned exclusively by the orchestrator and
// lives as long as it does; callers receive defensive copies.
type LifecycleStatistics struct {
	// RunID uniquely identifies this orchestrator's lifecycle pass.
	RunID string `json:"run_id"`

	// StartedAt is when the initialize pass began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the initialize pass finished, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// InitDuration is the total wall time of the initialize pass.
	InitDuration time.Duration `json:"init_duration"`

	// ShutdownDuration is the total wall time of the shutdown pass.
	ShutdownDuration time.Duration `json:"shutdown_duration"`

	// Components maps component name to its health record.
	Components map[string]*ComponentHealth `json:"components"`

	// InitializeOrder lists components in the order they were
	// successfully initialized. Append-only.
	InitializeOrder []string `json:"initialize_order"`

	// ShutdownOrder lists components in the order they were shut down.
	// Append-only.
	ShutdownOrder []string `json:"shutdown_order"`

	// Summary holds aggregate component counts.
	Summary LifecycleSummary `json:"summary"`

	// Errors is the ordered log of failures across both phases.
	Errors []LifecycleFailure `json:"errors,omitempty"`
}

// InitializeOptions controls a single initialize pass.
type InitializeOptions struct {
	// GracefulDegradation tolerates and records non-critical failures
	// instead of aborting the pass.
	GracefulDegradation bool

	// Timeout is the per-component budget for the Init hook. Zero means
	// no budget is enforced.
	Timeout time.Duration

	// CriticalComponents names components whose failure aborts the whole
	// pass when GracefulDegradation is false.
	CriticalComponents []string
}

// ShutdownOptions controls a shutdown pass.
type ShutdownOptions struct {
	// Force continues through remaining components after a shutdown
	// failure instead of aborting.
	Force bool

	// Timeout is the per-component budget for the Shutdown hook. Zero
	// means no budget is enforced.
	Timeout time.Duration
}
