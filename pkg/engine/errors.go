package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies lifecycle errors for programmatic handling.
type ErrorKind string

const (
	// KindComponentNotFound indicates a component named in the dependency
	// graph has no registered implementation.
	KindComponentNotFound ErrorKind = "component_not_found"

	// KindComponentInitFailed indicates a component's Init hook returned
	// an error.
	KindComponentInitFailed ErrorKind = "component_init_failed"

	// KindComponentShutdownFailed indicates a component's Shutdown hook
	// returned an error.
	KindComponentShutdownFailed ErrorKind = "component_shutdown_failed"

	// KindComponentTimeout indicates a lifecycle hook exceeded its budget.
	KindComponentTimeout ErrorKind = "component_timeout"

	// KindCycleDetected indicates the dependency graph contains a cycle.
	KindCycleDetected ErrorKind = "cycle_detected"
)

// LifecycleError is a classified error raised by the orchestrator. It
// carries the originating component and lifecycle phase so callers can
// diagnose a failed pass without inspecting logs.
type LifecycleError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Component is the component that caused the error, if applicable.
	Component string `json:"component,omitempty"`

	// Phase is the lifecycle phase (init, shutdown) in which the error
	// occurred.
	Phase string `json:"phase,omitempty"`

	// Cycle is the dependency cycle path for KindCycleDetected errors.
	Cycle []string `json:"cycle,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	if e.Component != "" && e.Err != nil {
		return fmt.Sprintf("[%s] %s (component=%s, phase=%s): %v", e.Kind, e.Message, e.Component, e.Phase, e.Err)
	}
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s (component=%s, phase=%s)", e.Kind, e.Message, e.Component, e.Phase)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *LifecycleError) Is(target error) bool {
	t, ok := target.(*LifecycleError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithComponent attaches component context to the error.
func (e *LifecycleError) WithComponent(name string) *LifecycleError {
	e.Component = name
	return e
}

// WithPhase attaches the lifecycle phase to the error.
func (e *LifecycleError) WithPhase(phase string) *LifecycleError {
	e.Phase = phase
	return e
}

// NewComponentNotFoundError reports a component declared in the graph but
// absent from the registry.
func NewComponentNotFoundError(name string) *LifecycleError {
	return &LifecycleError{
		Kind:      KindComponentNotFound,
		Message:   "component is not registered",
		Component: name,
		Phase:     PhaseInit,
	}
}

// NewComponentInitFailedError wraps a failed Init hook.
func NewComponentInitFailedError(name string, err error) *LifecycleError {
	return &LifecycleError{
		Kind:      KindComponentInitFailed,
		Message:   "component initialization failed",
		Component: name,
		Phase:     PhaseInit,
		Err:       err,
	}
}

// NewComponentShutdownFailedError wraps a failed Shutdown hook.
func NewComponentShutdownFailedError(name string, err error) *LifecycleError {
	return &LifecycleError{
		Kind:      KindComponentShutdownFailed,
		Message:   "component shutdown failed",
		Component: name,
		Phase:     PhaseShutdown,
		Err:       err,
	}
}

// NewComponentTimeoutError reports a lifecycle hook that exceeded its budget.
func NewComponentTimeoutError(name, phase string, budget string) *LifecycleError {
	return &LifecycleError{
		Kind:      KindComponentTimeout,
		Message:   fmt.Sprintf("lifecycle hook exceeded %s budget", budget),
		Component: name,
		Phase:     phase,
	}
}

// NewCycleDetectedError reports a dependency cycle. The cycle slice lists
// the components on the cycle path, first node repeated last.
func NewCycleDetectedError(cycle []string) *LifecycleError {
	return &LifecycleError{
		Kind:    KindCycleDetected,
		Message: fmt.Sprintf("dependency cycle detected: %s", formatCycle(cycle)),
		Cycle:   cycle,
	}
}

// IsComponentNotFound returns true if the error is a missing-component error.
func IsComponentNotFound(err error) bool {
	return kindOf(err) == KindComponentNotFound
}

// IsComponentTimeout returns true if the error is a lifecycle timeout.
func IsComponentTimeout(err error) bool {
	return kindOf(err) == KindComponentTimeout
}

// IsCycleDetected returns true if the error reports a dependency cycle.
func IsCycleDetected(err error) bool {
	return kindOf(err) == KindCycleDetected
}

func kindOf(err error) ErrorKind {
	var e *LifecycleError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
