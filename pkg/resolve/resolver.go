package resolve

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pixelgate/pixelgate/pkg/telemetry"
	"github.com/pixelgate/pixelgate/pkg/track"
)

// Resolver races fetch attempts across eligible sources and returns the
// first success. It holds no cross-call mutable state; every call operates
// on fresh per-attempt outcome records.
type Resolver struct {
	sources  []Source
	timeout  time.Duration
	recorder track.Recorder
	log      *telemetry.Logger
}

// New builds a resolver over a priority-ordered source set. Slice order is
// priority order; earlier sources only matter for tie-free paths since
// racing is unordered by design.
func New(sources []Source, opts Options, recorder track.Recorder, log *telemetry.Logger) *Resolver {
	if recorder == nil {
		recorder = track.Nop()
	}
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &Resolver{
		sources:  sources,
		timeout:  opts.PerSourceTimeout,
		recorder: recorder,
		log:      log.NewComponentLogger("resolver"),
	}
}

// Resolve acquires the resource for key from the first source that
// produces a result. It returns either a usable Result (the caller closes
// its Body) or a single kinded terminal error; individual source failures
// are only ever surfaced folded into an all-sources-failed aggregate.
func (r *Resolver) Resolve(ctx context.Context, key string) (*Result, error) {
	start := time.Now()
	id := uuid.New().String()
	log := r.log.WithField("resolution_id", id).WithField("key", key)

	eligible := make([]Source, 0, len(r.sources))
	for _, src := range r.sources {
		if src.Eligible() {
			eligible = append(eligible, src)
		}
	}

	if len(eligible) == 0 {
		err := NewAllSourcesFailedError(key, nil, nil)
		log.Warn("no eligible sources")
		r.emit(ctx, id, key, track.PathNone, track.OutcomeAllFailed, "", nil, time.Since(start), err)
		return nil, err
	}

	if len(eligible) == 1 {
		return r.resolveSingle(ctx, log, id, key, eligible[0], start)
	}
	return r.resolveRaced(ctx, log, id, key, eligible, start)
}

// resolveSingle awaits the lone eligible source directly, propagating its
// guarded outcome.
func (r *Resolver) resolveSingle(
	ctx context.Context,
	log *telemetry.Logger,
	id, key string,
	src Source,
	start time.Time,
) (*Result, error) {
	attempted := []string{src.ID()}
	outcome := r.attempt(ctx, src, key)

	switch outcome.State {
	case StateFound:
		log.WithField("source", src.ID()).Debugf("resolved in %s", time.Since(start))
		r.emit(ctx, id, key, track.PathSingle, track.OutcomeFound, src.ID(), attempted, time.Since(start), nil)
		return outcome.Result, nil

	case StateNotFound:
		err := NewSourceNotFoundError(src.ID(), key)
		r.emit(ctx, id, key, track.PathSingle, track.OutcomeNotFound, "", attempted, time.Since(start), err)
		return nil, err

	case StateTimedOut:
		r.emit(ctx, id, key, track.PathSingle, track.OutcomeTimeout, "", attempted, time.Since(start), outcome.Err)
		return nil, outcome.Err

	default:
		err := NewSourceError(src.ID(), key, outcome.Err)
		r.emit(ctx, id, key, track.PathSingle, track.OutcomeError, "", attempted, time.Since(start), err)
		return nil, err
	}
}

// resolveRaced launches all per-source guarded attempts concurrently and
// takes the first attempt that settles with a non-nil result. Later
// successes are ignored, not cancelled; their payload handles are reaped
// as they land.
func (r *Resolver) resolveRaced(
	ctx context.Context,
	log *telemetry.Logger,
	id, key string,
	eligible []Source,
	start time.Time,
) (*Result, error) {
	attempted := make([]string, len(eligible))
	outcomes := make(chan FetchOutcome, len(eligible))

	for i, src := range eligible {
		attempted[i] = src.ID()
		go func(s Source) {
			outcomes <- r.attempt(ctx, s, key)
		}(src)
	}

	failures := make(map[string]string, len(eligible))
	for settled := 0; settled < len(eligible); settled++ {
		outcome := <-outcomes

		if outcome.State == StateFound {
			// Abandon the rest of the race; close any late winners.
			go reap(outcomes, len(eligible)-settled-1)

			log.WithField("source", outcome.SourceID).Debugf("won race in %s", time.Since(start))
			r.emit(ctx, id, key, track.PathRaced, track.OutcomeFound, outcome.SourceID, attempted, time.Since(start), nil)
			return outcome.Result, nil
		}

		failures[outcome.SourceID] = outcome.reason()
	}

	err := NewAllSourcesFailedError(key, attempted, failures)
	log.WithError(err).Warn("every source settled without a result")
	r.emit(ctx, id, key, track.PathRaced, track.OutcomeAllFailed, "", attempted, time.Since(start), err)
	return nil, err
}

// attempt runs one guarded fetch. The fetch is raced against a timer bound
// to the per-source budget; a timer win abandons the fetch (it is not
// forcibly cancelled) and the timer itself is stopped on every exit path.
func (r *Resolver) attempt(ctx context.Context, src Source, key string) FetchOutcome {
	type reply struct {
		result *Result
		err    error
	}

	done := make(chan reply, 1)
	go func() {
		result, err := src.Fetch(ctx, key)
		done <- reply{result, err}
	}()

	if r.timeout > 0 {
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()

		select {
		case rep := <-done:
			return settle(src.ID(), rep.result, rep.err)
		case <-timer.C:
			// Abandoned fetch may still land a result; release its handle.
			go func() {
				rep := <-done
				_ = rep.result.Close()
			}()
			return FetchOutcome{
				SourceID: src.ID(),
				State:    StateTimedOut,
				Err:      NewSourceTimeoutError(src.ID(), key, r.timeout.String()),
			}
		}
	}

	rep := <-done
	return settle(src.ID(), rep.result, rep.err)
}

// settle maps a fetch reply onto the attempt's terminal state.
func settle(sourceID string, result *Result, err error) FetchOutcome {
	switch {
	case err != nil:
		return FetchOutcome{SourceID: sourceID, State: StateErrored, Err: err}
	case result == nil:
		return FetchOutcome{SourceID: sourceID, State: StateNotFound}
	default:
		if result.SourceID == "" {
			result.SourceID = sourceID
		}
		return FetchOutcome{SourceID: sourceID, State: StateFound, Result: result}
	}
}

// reap consumes the remaining outcomes of an abandoned race and closes any
// late successes so payload handles are not leaked.
func reap(outcomes <-chan FetchOutcome, n int) {
	for i := 0; i < n; i++ {
		outcome := <-outcomes
		_ = outcome.Result.Close()
	}
}

// emit forwards the resolution record to the shared tracker.
func (r *Resolver) emit(
	ctx context.Context,
	id, key string,
	path track.ResolutionPath,
	outcome, source string,
	attempted []string,
	duration time.Duration,
	err error,
) {
	rec := track.ResolutionRecord{
		ID:        id,
		Key:       key,
		Path:      path,
		Source:    source,
		Attempted: attempted,
		Outcome:   outcome,
		Duration:  duration,
		Timestamp: time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	r.recorder.RecordResolution(ctx, rec)
}
