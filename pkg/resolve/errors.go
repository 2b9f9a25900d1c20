package resolve

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies resolver errors for programmatic handling.
type ErrorKind string

const (
	// KindSourceNotFound indicates the only eligible source settled
	// without a result.
	KindSourceNotFound ErrorKind = "source_not_found"

	// KindSourceTimeout indicates a source attempt exceeded its budget.
	KindSourceTimeout ErrorKind = "source_timeout"

	// KindAllSourcesFailed indicates every attempted source settled
	// without a usable result.
	KindAllSourcesFailed ErrorKind = "all_sources_failed"

	// KindSourceError indicates a generic hard failure from a source.
	KindSourceError ErrorKind = "source_error"
)

// ResolveError is the single terminal error shape surfaced by the
// resolver. Individual source errors are never surfaced directly; they are
// folded into the PerSource map of an all-sources-failed aggregate.
type ResolveError struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Key is the resource key being resolved.
	Key string `json:"key,omitempty"`

	// Source is the source the error is tagged with, for single-source
	// kinds.
	Source string `json:"source,omitempty"`

	// Attempted lists every attempted source, in priority order. Empty
	// when no source was eligible.
	Attempted []string `json:"attempted,omitempty"`

	// PerSource maps each attempted source to its failure reason.
	PerSource map[string]string `json:"per_source,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Kind, e.Message)
	if e.Source != "" {
		fmt.Fprintf(&sb, " (source=%s)", e.Source)
	}
	if e.Key != "" {
		fmt.Fprintf(&sb, " (key=%s)", e.Key)
	}
	if len(e.PerSource) > 0 {
		ids := make([]string, 0, len(e.PerSource))
		for id := range e.PerSource {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		parts := make([]string, 0, len(ids))
		for _, id := range ids {
			parts = append(parts, fmt.Sprintf("%s: %s", id, e.PerSource[id]))
		}
		fmt.Fprintf(&sb, ": %s", strings.Join(parts, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewSourceNotFoundError reports that the lone eligible source had no
// result for the key.
func NewSourceNotFoundError(source, key string) *ResolveError {
	return &ResolveError{
		Kind:    KindSourceNotFound,
		Message: "resource not present at source",
		Key:     key,
		Source:  source,
	}
}

// NewSourceTimeoutError reports a source attempt that exceeded its budget.
func NewSourceTimeoutError(source, key string, budget string) *ResolveError {
	return &ResolveError{
		Kind:    KindSourceTimeout,
		Message: fmt.Sprintf("fetch exceeded %s budget", budget),
		Key:     key,
		Source:  source,
	}
}

// NewSourceError wraps a hard failure from a single source.
func NewSourceError(source, key string, err error) *ResolveError {
	return &ResolveError{
		Kind:    KindSourceError,
		Message: "source fetch failed",
		Key:     key,
		Source:  source,
		Err:     err,
	}
}

// NewAllSourcesFailedError aggregates every attempted source's failure
// reason. Attempted is empty when no source was eligible.
func NewAllSourcesFailedError(key string, attempted []string, perSource map[string]string) *ResolveError {
	msg := "all eligible sources failed"
	if len(attempted) == 0 {
		msg = "no eligible sources"
	}
	return &ResolveError{
		Kind:      KindAllSourcesFailed,
		Message:   msg,
		Key:       key,
		Attempted: attempted,
		PerSource: perSource,
	}
}

// IsSourceNotFound returns true for a not-present-at-source error.
func IsSourceNotFound(err error) bool {
	return kindOf(err) == KindSourceNotFound
}

// IsSourceTimeout returns true for a per-source timeout error.
func IsSourceTimeout(err error) bool {
	return kindOf(err) == KindSourceTimeout
}

// IsAllSourcesFailed returns true for an aggregated terminal failure.
func IsAllSourcesFailed(err error) bool {
	return kindOf(err) == KindAllSourcesFailed
}

func kindOf(err error) ErrorKind {
	var e *ResolveError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
