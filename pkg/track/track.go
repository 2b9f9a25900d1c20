// Package track defines the shared health/statistics tracking contract
// used by both the lifecycle orchestrator and the multi-source resolver.
//
// Records are plain diagnostic facts carrying no transport-specific shape;
// concrete recorders (structured logging, Prometheus metrics, SQLite
// persistence) live alongside the subsystems that own those backends.
package track

import (
	"context"
	"time"
)

// ComponentPhase identifies the lifecycle phase of a component record.
type ComponentPhase string

const (
	// PhaseInit marks a record from the initialize pass.
	PhaseInit ComponentPhase = "init"

	// PhaseShutdown marks a record from the shutdown pass.
	PhaseShutdown ComponentPhase = "shutdown"
)

// ComponentRecord captures the outcome of one component lifecycle hook.
type ComponentRecord struct {
	// RunID identifies the lifecycle pass this record belongs to.
	RunID string `json:"run_id"`

	// Component is the component name.
	Component string `json:"component"`

	// Phase is the lifecycle phase.
	Phase ComponentPhase `json:"phase"`

	// Status is the component's resulting lifecycle status.
	Status string `json:"status"`

	// Duration is how long the hook took. Zero for passive components.
	Duration time.Duration `json:"duration"`

	// Error is the failure message, if any.
	Error string `json:"error,omitempty"`

	// Timestamp is when the hook finished.
	Timestamp time.Time `json:"timestamp"`
}

// ResolutionPath tags which resolver path served a resolution.
type ResolutionPath string

const (
	// PathSingle marks a resolution served by a lone eligible source.
	PathSingle ResolutionPath = "single"

	// PathRaced marks a resolution raced across multiple sources.
	PathRaced ResolutionPath = "raced"

	// PathNone marks a resolution that found no eligible source.
	PathNone ResolutionPath = "none"
)

// Resolution outcomes.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
	OutcomeAllFailed = "all_failed"
)

// ResolutionRecord captures timing and outcome of one resolver call.
type ResolutionRecord struct {
	// ID uniquely identifies the resolution attempt.
	ID string `json:"id"`

	// Key is the resource key that was resolved.
	Key string `json:"key"`

	// Path tags whether resolution took the single-source or racing path.
	Path ResolutionPath `json:"path"`

	// Source is the source that served the result; empty if none did.
	Source string `json:"source,omitempty"`

	// Attempted lists every source that was tried, in priority order.
	Attempted []string `json:"attempted"`

	// Outcome is the terminal outcome of the resolution.
	Outcome string `json:"outcome"`

	// Duration is the total wall time of the resolution.
	Duration time.Duration `json:"duration"`

	// Error is the terminal error message, if resolution failed.
	Error string `json:"error,omitempty"`

	// Timestamp is when the resolution finished.
	Timestamp time.Time `json:"timestamp"`
}

// Recorder receives diagnostic records from the orchestrator and resolver.
// Implementations must not block the caller for long; recording failures
// are never surfaced to the operation that produced the record.
type Recorder interface {
	RecordComponent(ctx context.Context, rec ComponentRecord)
	RecordResolution(ctx context.Context, rec ResolutionRecord)
}

// MultiRecorder fans records out to several recorders in order.
type MultiRecorder []Recorder

// RecordComponent implements Recorder.
func (m MultiRecorder) RecordComponent(ctx context.Context, rec ComponentRecord) {
	for _, r := range m {
		r.RecordComponent(ctx, rec)
	}
}

// RecordResolution implements Recorder.
func (m MultiRecorder) RecordResolution(ctx context.Context, rec ResolutionRecord) {
	for _, r := range m {
		r.RecordResolution(ctx, rec)
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordComponent(context.Context, ComponentRecord)   {}
func (nopRecorder) RecordResolution(context.Context, ResolutionRecord) {}

// Nop returns a recorder that discards every record.
func Nop() Recorder {
	return nopRecorder{}
}
