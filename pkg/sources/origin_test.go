package sources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pixelgate/pixelgate/pkg/config"
)

func TestOriginFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/app.js" {
			t.Errorf("path = %q, want /assets/app.js", r.URL.Path)
		}
		if got := r.Header.Get("X-Edge-Token"); got != "secret" {
			t.Errorf("X-Edge-Token = %q, want secret", got)
		}
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("console.log(1)"))
	}))
	defer srv.Close()

	source := NewOriginSource(srv.Client(), config.OriginSourceConfig{
		Enabled: true,
		BaseURL: srv.URL,
		Headers: map[string]string{"X-Edge-Token": "secret"},
	})

	res, err := source.Fetch(context.Background(), "assets/app.js")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if string(body) != "console.log(1)" {
		t.Errorf("body = %q", body)
	}
	if res.ContentType != "application/javascript" {
		t.Errorf("ContentType = %q", res.ContentType)
	}
	if res.SourceID != OriginSourceID {
		t.Errorf("SourceID = %q, want %q", res.SourceID, OriginSourceID)
	}
}

func TestOriginNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	source := NewOriginSource(srv.Client(), config.OriginSourceConfig{
		Enabled: true,
		BaseURL: srv.URL,
	})

	res, err := source.Fetch(context.Background(), "missing.css")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res != nil {
		t.Fatal("404 should be reported as not-present")
	}
}

func TestOriginServerErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	source := NewOriginSource(srv.Client(), config.OriginSourceConfig{
		Enabled: true,
		BaseURL: srv.URL,
	})

	if _, err := source.Fetch(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestOriginEligibilityToggle(t *testing.T) {
	source := NewOriginSource(nil, config.OriginSourceConfig{
		Enabled: true,
		BaseURL: "http://origin.internal",
	})
	if !source.Eligible() {
		t.Fatal("origin should start eligible")
	}
	source.SetEligible(false)
	if source.Eligible() {
		t.Error("origin should be ineligible after toggle")
	}
}
