package telemetry

import (
	"context"

	"github.com/pixelgate/pixelgate/pkg/track"
)

// Recorder emits lifecycle and resolution records as structured log lines
// and Prometheus observations. It implements track.Recorder.
type Recorder struct {
	log     *Logger
	metrics *Metrics
}

// NewRecorder creates a recorder backed by the given telemetry instance.
func NewRecorder(t *Telemetry) *Recorder {
	return &Recorder{
		log:     t.Logger.NewComponentLogger("track"),
		metrics: t.Metrics,
	}
}

// RecordComponent implements track.Recorder.
func (r *Recorder) RecordComponent(ctx context.Context, rec track.ComponentRecord) {
	r.metrics.ObserveComponentPhase(rec.Component, string(rec.Phase), rec.Status, rec.Duration)

	log := r.log.WithRunID(rec.RunID).
		WithField("component_name", rec.Component).
		WithField("phase", string(rec.Phase)).
		WithField("status", rec.Status).
		WithField("duration_ms", rec.Duration.Milliseconds())
	if rec.Error != "" {
		log.WithField("error", rec.Error).Warn("component lifecycle hook failed")
		return
	}
	log.Debug("component lifecycle hook completed")
}

// RecordResolution implements track.Recorder.
func (r *Recorder) RecordResolution(ctx context.Context, rec track.ResolutionRecord) {
	r.metrics.ObserveResolution(string(rec.Path), rec.Outcome, rec.Source, len(rec.Attempted), rec.Duration)

	log := r.log.WithKey(rec.Key).
		WithField("resolution_id", rec.ID).
		WithField("path", string(rec.Path)).
		WithField("outcome", rec.Outcome).
		WithField("attempted", len(rec.Attempted)).
		WithField("duration_ms", rec.Duration.Milliseconds())
	if rec.Source != "" {
		log = log.WithSource(rec.Source)
	}
	if rec.Error != "" {
		log.WithField("error", rec.Error).Warn("resolution failed")
		return
	}
	log.Debug("resolution completed")
}
