package resolve

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource is a controllable source adapter.
type fakeSource struct {
	id       string
	eligible bool
	delay    time.Duration
	payload  string
	missing  bool
	err      error
	calls    int32
}

func (f *fakeSource) ID() string     { return f.id }
func (f *fakeSource) Eligible() bool { return f.eligible }

func (f *fakeSource) Fetch(ctx context.Context, key string) (*Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.missing {
		return nil, nil
	}
	return &Result{
		SourceID:    f.id,
		Body:        io.NopCloser(strings.NewReader(f.payload)),
		Size:        int64(len(f.payload)),
		ContentType: "application/octet-stream",
	}, nil
}

func (f *fakeSource) fetchCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func TestResolve_FastestEligibleSourceWins(t *testing.T) {
	r2 := &fakeSource{id: "r2", eligible: false, payload: "from-r2"}
	remote := &fakeSource{id: "remote", eligible: true, delay: 200 * time.Millisecond, payload: "from-remote"}
	fallback := &fakeSource{id: "fallback", eligible: true, delay: 50 * time.Millisecond, payload: "from-fallback"}

	r := New([]Source{r2, remote, fallback}, Options{}, nil, nil)

	result, err := r.Resolve(context.Background(), "img/cat.png")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer result.Close()

	if result.SourceID != "fallback" {
		t.Errorf("Expected fallback to win the race, got %s", result.SourceID)
	}

	body, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if string(body) != "from-fallback" {
		t.Errorf("Expected fallback payload, got %q", body)
	}

	if r2.fetchCount() != 0 {
		t.Errorf("Expected ineligible r2 never fetched, got %d calls", r2.fetchCount())
	}
}

func TestResolve_SingleSourceTimeout(t *testing.T) {
	slow := &fakeSource{id: "origin", eligible: true, delay: 500 * time.Millisecond, payload: "late"}

	r := New([]Source{slow}, Options{PerSourceTimeout: 100 * time.Millisecond}, nil, nil)

	start := time.Now()
	_, err := r.Resolve(context.Background(), "img/slow.png")
	elapsed := time.Since(start)

	if !IsSourceTimeout(err) {
		t.Fatalf("Expected SourceTimeout, got: %v", err)
	}
	if elapsed >= 400*time.Millisecond {
		t.Errorf("Expected timeout near 100ms, took %s", elapsed)
	}

	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("Expected *ResolveError, got %T", err)
	}
	if resolveErr.Source != "origin" {
		t.Errorf("Expected timeout tagged with source id, got %q", resolveErr.Source)
	}
}

func TestResolve_AllSourcesFail(t *testing.T) {
	timedOut := &fakeSource{id: "r2", eligible: true, delay: 300 * time.Millisecond, payload: "late"}
	errored := &fakeSource{id: "remote", eligible: true, err: errors.New("connection refused")}
	missing := &fakeSource{id: "fallback", eligible: true, missing: true}

	r := New([]Source{timedOut, errored, missing}, Options{PerSourceTimeout: 50 * time.Millisecond}, nil, nil)

	_, err := r.Resolve(context.Background(), "img/nowhere.png")
	if !IsAllSourcesFailed(err) {
		t.Fatalf("Expected AllSourcesFailed, got: %v", err)
	}

	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("Expected *ResolveError, got %T", err)
	}

	if len(resolveErr.Attempted) != 3 {
		t.Errorf("Expected 3 attempted sources, got %v", resolveErr.Attempted)
	}
	if len(resolveErr.PerSource) != 3 {
		t.Errorf("Expected exactly one reason per attempted source, got %v", resolveErr.PerSource)
	}
	for _, id := range []string{"r2", "remote", "fallback"} {
		if _, ok := resolveErr.PerSource[id]; !ok {
			t.Errorf("Expected reason for source %s in %v", id, resolveErr.PerSource)
		}
	}
	if !strings.Contains(resolveErr.PerSource["fallback"], "not present") {
		t.Errorf("Expected synthetic not-found reason, got %q", resolveErr.PerSource["fallback"])
	}
}

func TestResolve_NoEligibleSources(t *testing.T) {
	a := &fakeSource{id: "a", eligible: false}
	b := &fakeSource{id: "b", eligible: false}

	r := New([]Source{a, b}, Options{}, nil, nil)

	start := time.Now()
	_, err := r.Resolve(context.Background(), "img/any.png")
	if !IsAllSourcesFailed(err) {
		t.Fatalf("Expected immediate AllSourcesFailed, got: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("Expected no race to be attempted for empty eligible set")
	}

	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("Expected *ResolveError, got %T", err)
	}
	if len(resolveErr.Attempted) != 0 {
		t.Errorf("Expected empty attempted list, got %v", resolveErr.Attempted)
	}
	if a.fetchCount() != 0 || b.fetchCount() != 0 {
		t.Error("Expected no fetch attempts")
	}
}

func TestResolve_SingleSourceNotFound(t *testing.T) {
	only := &fakeSource{id: "origin", eligible: true, missing: true}

	r := New([]Source{only}, Options{}, nil, nil)

	_, err := r.Resolve(context.Background(), "img/ghost.png")
	if !IsSourceNotFound(err) {
		t.Fatalf("Expected SourceNotFound, got: %v", err)
	}
}

func TestResolve_SingleSourceErrorPropagates(t *testing.T) {
	cause := errors.New("tls handshake failed")
	only := &fakeSource{id: "origin", eligible: true, err: cause}

	r := New([]Source{only}, Options{}, nil, nil)

	_, err := r.Resolve(context.Background(), "img/any.png")
	if err == nil {
		t.Fatal("Expected hard failure to propagate")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected underlying cause in chain, got: %v", err)
	}
}

func TestResolve_SingleEligibleTakesDirectPath(t *testing.T) {
	only := &fakeSource{id: "origin", eligible: true, payload: "direct"}
	other := &fakeSource{id: "r2", eligible: false}

	r := New([]Source{other, only}, Options{}, nil, nil)

	result, err := r.Resolve(context.Background(), "img/one.png")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer result.Close()

	if result.SourceID != "origin" {
		t.Errorf("Expected origin result, got %s", result.SourceID)
	}
	if only.fetchCount() != 1 {
		t.Errorf("Expected exactly one fetch, got %d", only.fetchCount())
	}
}

func TestResolve_LaterSuccessIgnoredNotCancelled(t *testing.T) {
	fast := &fakeSource{id: "fast", eligible: true, delay: 20 * time.Millisecond, payload: "fast"}
	slow := &fakeSource{id: "slow", eligible: true, delay: 150 * time.Millisecond, payload: "slow"}

	r := New([]Source{slow, fast}, Options{}, nil, nil)

	result, err := r.Resolve(context.Background(), "img/race.png")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer result.Close()

	if result.SourceID != "fast" {
		t.Fatalf("Expected fast to win, got %s", result.SourceID)
	}

	// The losing attempt was abandoned, not cancelled: it still runs to
	// completion unobserved.
	time.Sleep(200 * time.Millisecond)
	if slow.fetchCount() != 1 {
		t.Errorf("Expected slow fetch to have run to completion, got %d calls", slow.fetchCount())
	}
}
