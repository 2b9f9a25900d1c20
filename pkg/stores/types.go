package stores

import (
	"time"
)

// LifecycleRun is a persisted summary of one orchestrator pass.
type LifecycleRun struct {
	// ID is the run identifier assigned by the orchestrator.
	ID string `json:"id"`

	// StartedAt is when initialization began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run finished; nil while in flight.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// InitDuration is the total wall time of the initialize pass.
	InitDuration time.Duration `json:"init_duration"`

	// ShutdownDuration is the total wall time of the shutdown pass.
	ShutdownDuration time.Duration `json:"shutdown_duration"`

	// Total, Initialized, Failed and Shutdown are component counts.
	Total       int `json:"total"`
	Initialized int `json:"initialized"`
	Failed      int `json:"failed"`
	Shutdown    int `json:"shutdown"`

	// CreatedAt is when the row was written.
	CreatedAt time.Time `json:"created_at"`
}

// ComponentRow is a persisted component lifecycle record.
type ComponentRow struct {
	ID        int64         `json:"id"`
	RunID     string        `json:"run_id"`
	Component string        `json:"component"`
	Phase     string        `json:"phase"`
	Status    string        `json:"status"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// ResolutionRow is a persisted resolution record.
type ResolutionRow struct {
	ID        string        `json:"id"`
	Key       string        `json:"key"`
	Path      string        `json:"path"`
	Source    string        `json:"source,omitempty"`
	Attempted []string      `json:"attempted"`
	Outcome   string        `json:"outcome"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
