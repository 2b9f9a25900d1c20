package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixelgate/pixelgate/pkg/telemetry"
	"github.com/pixelgate/pixelgate/pkg/track"
)

// registered is a component with its lifecycle capabilities resolved once
// at construction. A nil hook means the capability is absent and the
// corresponding phase is a trivial success.
type registered struct {
	component Component
	init      func(ctx context.Context) error
	shutdown  func(ctx context.Context) error
}

// Orchestrator drives dependency-ordered initialization and shutdown of
// registered components, accumulating timings and failures in a
// LifecycleStatistics record. Lifecycle passes are strictly sequential:
// no two component hooks ever run concurrently.
type Orchestrator struct {
	graph      *DependencyGraph
	registered map[string]*registered
	recorder   track.Recorder
	log        *telemetry.Logger

	// mu guards stats and the pass flags. Hooks run outside the lock so
	// health queries stay responsive during a pass.
	mu           sync.RWMutex
	stats        *LifecycleStatistics
	order        []string
	initStarted  bool
	shutdownBusy bool
}

// NewOrchestrator builds an orchestrator over the given graph and
// component implementations. Lifecycle capabilities (Initializer,
// Shutdowner) are resolved here, once, rather than introspected during the
// pass. A component whose name is not declared in the graph is a
// configuration error; a declared name with no implementation is legal and
// is reported as failed during Initialize.
func NewOrchestrator(
	graph *DependencyGraph,
	components []Component,
	recorder track.Recorder,
	log *telemetry.Logger,
) (*Orchestrator, error) {
	if graph == nil {
		return nil, fmt.Errorf("dependency graph is nil")
	}
	if recorder == nil {
		recorder = track.Nop()
	}
	if log == nil {
		log = telemetry.NopLogger()
	}

	reg := make(map[string]*registered, len(components))
	for _, c := range components {
		name := c.Name()
		if _, exists := reg[name]; exists {
			return nil, fmt.Errorf("duplicate component registration: %s", name)
		}
		if _, declared := graph.byName[name]; !declared {
			return nil, fmt.Errorf("component %s is not declared in the dependency graph", name)
		}

		ent := &registered{component: c}
		if ini, ok := c.(Initializer); ok {
			ent.init = ini.Init
		}
		if sh, ok := c.(Shutdowner); ok {
			ent.shutdown = sh.Shutdown
		}
		reg[name] = ent
	}

	stats := &LifecycleStatistics{
		RunID:           uuid.New().String(),
		Components:      make(map[string]*ComponentHealth, graph.Len()),
		InitializeOrder: make([]string, 0, graph.Len()),
		ShutdownOrder:   make([]string, 0, graph.Len()),
		Summary:         LifecycleSummary{Total: graph.Len()},
	}
	for _, d := range graph.Descriptors() {
		stats.Components[d.Name] = &ComponentHealth{
			Name:         d.Name,
			Status:       StatusUnknown,
			Dependencies: d.Dependencies,
		}
	}

	return &Orchestrator{
		graph:      graph,
		registered: reg,
		recorder:   recorder,
		log:        log.NewComponentLogger("orchestrator"),
		stats:      stats,
	}, nil
}

// Initialize drives every component's Init hook in dependency order.
// Non-critical failures are recorded and, under graceful degradation,
// swallowed; a critical component failing without graceful degradation
// aborts the pass and surfaces the originating error. Re-invoking after a
// pass has started is an idempotent no-op that returns the existing
// statistics.
func (o *Orchestrator) Initialize(ctx context.Context, opts InitializeOptions) (*LifecycleStatistics, error) {
	o.mu.Lock()
	if o.initStarted {
		o.mu.Unlock()
		o.log.WithRunID(o.stats.RunID).Warn("initialize already ran; returning existing statistics")
		return o.Statistics(), nil
	}
	o.initStarted = true

	order, err := o.graph.ComputeOrder()
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.order = order

	start := time.Now()
	o.stats.StartedAt = start
	o.mu.Unlock()

	critical := make(map[string]bool, len(opts.CriticalComponents))
	for _, name := range opts.CriticalComponents {
		critical[name] = true
	}

	log := o.log.WithRunID(o.stats.RunID)
	log.Infof("initializing %d components", len(order))

	for _, name := range order {
		ent, ok := o.registered[name]
		if !ok {
			err := NewComponentNotFoundError(name)
			o.markFailed(ctx, name, PhaseInit, err, time.Time{}, time.Time{})
			if critical[name] && !opts.GracefulDegradation {
				o.finishInit(start)
				return o.Statistics(), err
			}
			log.WithField("component", name).Warn("component not registered; continuing")
			continue
		}

		if ent.init == nil {
			o.markPassive(ctx, name, PhaseInit)
			continue
		}

		hookStart := time.Now()
		o.setStatus(name, StatusInitializing, &hookStart, nil)

		hookErr, timedOut := runHook(ctx, opts.Timeout, ent.init)
		hookEnd := time.Now()

		if timedOut {
			hookErr = NewComponentTimeoutError(name, PhaseInit, opts.Timeout.String())
		} else if hookErr != nil {
			hookErr = NewComponentInitFailedError(name, hookErr)
		}

		if hookErr != nil {
			o.markFailed(ctx, name, PhaseInit, hookErr, hookStart, hookEnd)
			if critical[name] && !opts.GracefulDegradation {
				o.finishInit(start)
				return o.Statistics(), hookErr
			}
			log.WithField("component", name).WithError(hookErr).Warn("component failed; continuing degraded")
			continue
		}

		o.markInitialized(ctx, name, hookStart, hookEnd)
		log.WithField("component", name).Debugf("initialized in %s", hookEnd.Sub(hookStart))
	}

	o.finishInit(start)

	stats := o.Statistics()
	log.Infof("initialize pass complete: %d/%d initialized, %d failed",
		stats.Summary.Initialized, stats.Summary.Total, stats.Summary.Failed)
	return stats, nil
}

// Shutdown drives every initialized component's Shutdown hook in the exact
// reverse of the computed initialization order. Without Force the pass
// aborts on the first failure, leaving remaining components untouched;
// with Force every failure is recorded and shutdown proceeds to
// completion. Re-invoking while a shutdown is in progress is a no-op
// returning current statistics.
func (o *Orchestrator) Shutdown(ctx context.Context, opts ShutdownOptions) (*LifecycleStatistics, error) {
	o.mu.Lock()
	if o.shutdownBusy {
		o.mu.Unlock()
		o.log.Warn("shutdown already in progress; returning current statistics")
		return o.Statistics(), nil
	}
	if len(o.order) == 0 {
		o.mu.Unlock()
		o.log.Warn("shutdown requested before any initialize pass; nothing to do")
		return o.Statistics(), nil
	}
	o.shutdownBusy = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.shutdownBusy = false
		o.mu.Unlock()
	}()

	log := o.log.WithRunID(o.stats.RunID)
	passStart := time.Now()

	for i := len(o.order) - 1; i >= 0; i-- {
		name := o.order[i]
		if o.statusOf(name) != StatusInitialized {
			continue
		}

		ent := o.registered[name]
		if ent.shutdown == nil {
			o.markPassive(ctx, name, PhaseShutdown)
			continue
		}

		hookStart := time.Now()
		o.setStatus(name, StatusShuttingDown, &hookStart, nil)

		hookErr, timedOut := runHook(ctx, opts.Timeout, ent.shutdown)
		hookEnd := time.Now()

		if timedOut {
			hookErr = NewComponentTimeoutError(name, PhaseShutdown, opts.Timeout.String())
		} else if hookErr != nil {
			hookErr = NewComponentShutdownFailedError(name, hookErr)
		}

		if hookErr != nil {
			o.markFailed(ctx, name, PhaseShutdown, hookErr, hookStart, hookEnd)
			if !opts.Force {
				o.finishShutdown(passStart)
				return o.Statistics(), hookErr
			}
			log.WithField("component", name).WithError(hookErr).Warn("shutdown failed; forcing remaining components")
			continue
		}

		o.markShutdown(ctx, name, hookStart, hookEnd)
		log.WithField("component", name).Debugf("shut down in %s", hookEnd.Sub(hookStart))
	}

	o.finishShutdown(passStart)

	stats := o.Statistics()
	log.Infof("shutdown pass complete: %d/%d shut down", stats.Summary.Shutdown, stats.Summary.Total)
	return stats, nil
}

// IsComponentHealthy reports whether a component is currently initialized.
func (o *Orchestrator) IsComponentHealthy(name string) bool {
	return o.statusOf(name) == StatusInitialized
}

// IsSystemHealthy reports whether every named component is healthy. An
// empty list is vacuously healthy.
func (o *Orchestrator) IsSystemHealthy(names []string) bool {
	for _, name := range names {
		if !o.IsComponentHealthy(name) {
			return false
		}
	}
	return true
}

// Statistics returns a defensive copy of the accumulated statistics.
func (o *Orchestrator) Statistics() *LifecycleStatistics {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stats.clone()
}

// Graph returns the orchestrator's dependency graph.
func (o *Orchestrator) Graph() *DependencyGraph {
	return o.graph
}

// runHook races a lifecycle hook against a timeout budget. A zero budget
// disables the timer. On a timer win the hook is abandoned, not cancelled:
// the goroutine is left to finish into its buffered channel. The timer is
// stopped on every exit path.
func runHook(ctx context.Context, timeout time.Duration, fn func(context.Context) error) (err error, timedOut bool) {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	if timeout <= 0 {
		select {
		case err := <-done:
			return err, false
		case <-ctx.Done():
			return ctx.Err(), false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err, false
	case <-timer.C:
		return nil, true
	case <-ctx.Done():
		return ctx.Err(), false
	}
}

// --- statistics mutation (always under o.mu) ---

func (o *Orchestrator) statusOf(name string) ComponentStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	health, ok := o.stats.Components[name]
	if !ok {
		return StatusUnknown
	}
	return health.Status
}

func (o *Orchestrator) setStatus(name string, status ComponentStatus, started, ended *time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	health := o.stats.Components[name]
	health.Status = status
	if started != nil {
		health.StartedAt = started
	}
	if ended != nil {
		health.EndedAt = ended
	}
}

// markPassive records a component with no hook for the given phase as a
// trivial success with zero duration.
func (o *Orchestrator) markPassive(ctx context.Context, name, phase string) {
	now := time.Now()

	o.mu.Lock()
	health := o.stats.Components[name]
	health.StartedAt = &now
	health.EndedAt = &now
	health.Duration = 0
	if phase == PhaseInit {
		health.Status = StatusInitialized
		health.Message = "no init hook"
		o.stats.InitializeOrder = append(o.stats.InitializeOrder, name)
		o.stats.Summary.Initialized++
	} else {
		health.Status = StatusShutdown
		health.Message = "no shutdown hook"
		o.stats.ShutdownOrder = append(o.stats.ShutdownOrder, name)
		o.stats.Summary.Shutdown++
	}
	o.mu.Unlock()

	o.emit(ctx, name, phase)
}

func (o *Orchestrator) markInitialized(ctx context.Context, name string, start, end time.Time) {
	o.mu.Lock()
	health := o.stats.Components[name]
	health.Status = StatusInitialized
	health.StartedAt = &start
	health.EndedAt = &end
	health.Duration = end.Sub(start)
	health.Error = ""
	o.stats.InitializeOrder = append(o.stats.InitializeOrder, name)
	o.stats.Summary.Initialized++
	o.mu.Unlock()

	o.emit(ctx, name, PhaseInit)
}

func (o *Orchestrator) markShutdown(ctx context.Context, name string, start, end time.Time) {
	o.mu.Lock()
	health := o.stats.Components[name]
	health.Status = StatusShutdown
	health.StartedAt = &start
	health.EndedAt = &end
	health.Duration = end.Sub(start)
	o.stats.ShutdownOrder = append(o.stats.ShutdownOrder, name)
	o.stats.Summary.Shutdown++
	o.mu.Unlock()

	o.emit(ctx, name, PhaseShutdown)
}

func (o *Orchestrator) markFailed(ctx context.Context, name, phase string, failure error, start, end time.Time) {
	o.mu.Lock()
	health := o.stats.Components[name]
	health.Status = StatusFailed
	health.Error = failure.Error()
	if !start.IsZero() {
		health.StartedAt = &start
	}
	if !end.IsZero() {
		health.EndedAt = &end
		health.Duration = end.Sub(start)
	}
	o.stats.Summary.Failed++
	o.stats.Errors = append(o.stats.Errors, LifecycleFailure{
		Component: name,
		Phase:     phase,
		Error:     failure.Error(),
	})
	o.mu.Unlock()

	o.emit(ctx, name, phase)
}

func (o *Orchestrator) finishInit(passStart time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	o.stats.CompletedAt = &now
	o.stats.InitDuration = now.Sub(passStart)
}

func (o *Orchestrator) finishShutdown(passStart time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.ShutdownDuration += time.Since(passStart)
}

// emit forwards the component's current health to the recorder.
func (o *Orchestrator) emit(ctx context.Context, name, phase string) {
	o.mu.RLock()
	health := o.stats.Components[name]
	rec := track.ComponentRecord{
		RunID:     o.stats.RunID,
		Component: name,
		Phase:     track.ComponentPhase(phase),
		Status:    string(health.Status),
		Duration:  health.Duration,
		Error:     health.Error,
		Timestamp: time.Now(),
	}
	o.mu.RUnlock()

	o.recorder.RecordComponent(ctx, rec)
}

// clone deep-copies the statistics for safe external consumption.
func (s *LifecycleStatistics) clone() *LifecycleStatistics {
	out := &LifecycleStatistics{
		RunID:            s.RunID,
		StartedAt:        s.StartedAt,
		InitDuration:     s.InitDuration,
		ShutdownDuration: s.ShutdownDuration,
		Components:       make(map[string]*ComponentHealth, len(s.Components)),
		InitializeOrder:  append([]string{}, s.InitializeOrder...),
		ShutdownOrder:    append([]string{}, s.ShutdownOrder...),
		Summary:          s.Summary,
		Errors:           append([]LifecycleFailure{}, s.Errors...),
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	for name, h := range s.Components {
		hc := *h
		out.Components[name] = &hc
	}
	return out
}
