// Package resolve implements resilient multi-source resource acquisition
// for pixelgate.
//
// A Resolver holds a static, priority-ordered set of Source adapters. At
// request time it filters the set by eligibility, then either awaits the
// lone eligible source directly or races all eligible sources
// concurrently under per-source timeout budgets. The first source to
// produce a non-nil result wins; later successes are ignored, not
// cancelled. Only when every attempt settles without a result does the
// resolver surface a single aggregated failure naming every attempted
// source and its reason.
package resolve

import (
	"context"
	"io"
	"time"
)

// Source is an adapter for one alternative resource source. Descriptors
// are immutable; eligibility may consult mutable configuration captured at
// construction. Fetch returning (nil, nil) means "not present at this
// source"; a non-nil error is a hard failure.
type Source interface {
	// ID returns the stable source identifier used in diagnostics and
	// aggregated failures.
	ID() string

	// Eligible reports whether the source can currently serve fetches
	// (e.g. its binding or URL is configured).
	Eligible() bool

	// Fetch retrieves the resource for key. The resolver may abandon a
	// fetch that outlives its timeout budget; implementations should
	// honor ctx at their own suspension points.
	Fetch(ctx context.Context, key string) (*Result, error)
}

// Result is the canonical resolver output: the winning source, a payload
// handle and content metadata.
type Result struct {
	// SourceID is the source that served the payload.
	SourceID string

	// Body is the payload handle. The caller owns it and must close it.
	Body io.ReadCloser

	// Size is the payload size in bytes, or -1 if unknown.
	Size int64

	// ContentType is the payload media type, if known.
	ContentType string

	// ETag is the source's entity tag, if any.
	ETag string
}

// Close releases the payload handle. Safe on a nil result.
func (r *Result) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// AttemptState is the terminal state of one per-source fetch attempt. An
// attempt reaches exactly one terminal state.
type AttemptState string

const (
	// StateFound means the source produced a non-nil result.
	StateFound AttemptState = "found"

	// StateNotFound means the source settled cleanly without a result.
	StateNotFound AttemptState = "not_found"

	// StateTimedOut means the attempt's timer won the race; the
	// underlying fetch was abandoned.
	StateTimedOut AttemptState = "timed_out"

	// StateErrored means the fetch returned a hard failure.
	StateErrored AttemptState = "errored"
)

// FetchOutcome is the ephemeral record of one attempt, discarded after
// aggregation.
type FetchOutcome struct {
	// SourceID identifies the attempted source.
	SourceID string

	// State is the attempt's terminal state.
	State AttemptState

	// Result is the fetched result for StateFound, nil otherwise.
	Result *Result

	// Err is the failure for StateTimedOut and StateErrored.
	Err error
}

// Options configures a Resolver.
type Options struct {
	// PerSourceTimeout is the independent budget applied to each source
	// attempt. Zero disables the guard timer.
	PerSourceTimeout time.Duration
}

// reason renders an outcome's failure reason for the aggregated error.
func (o FetchOutcome) reason() string {
	switch o.State {
	case StateNotFound:
		return "resource not present at this source"
	case StateTimedOut, StateErrored:
		if o.Err != nil {
			return o.Err.Error()
		}
		return string(o.State)
	default:
		return string(o.State)
	}
}
