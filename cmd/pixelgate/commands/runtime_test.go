package commands

import (
	"testing"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/diag"
	"github.com/pixelgate/pixelgate/pkg/engine"
	"github.com/pixelgate/pixelgate/pkg/sources"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

func TestStatsProxyBeforeBinding(t *testing.T) {
	p := &statsProxy{}

	if p.IsComponentHealthy("source-cache") {
		t.Error("unbound proxy should report components unhealthy")
	}
	if p.IsSystemHealthy([]string{"source-cache"}) {
		t.Error("unbound proxy should report the system unhealthy")
	}
	stats := p.Statistics()
	if stats == nil || stats.Components == nil {
		t.Fatal("unbound proxy should return empty statistics, not nil")
	}
}

func TestStatsProxyDelegatesAfterBinding(t *testing.T) {
	graph, err := engine.NewDependencyGraph([]engine.ComponentDescriptor{{Name: "a"}})
	if err != nil {
		t.Fatalf("NewDependencyGraph: %v", err)
	}
	orch, err := engine.NewOrchestrator(graph, nil, nil, telemetry.NopLogger())
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	p := &statsProxy{}
	p.set(orch)

	stats := p.Statistics()
	if stats.RunID == "" {
		t.Error("expected delegated statistics with a run ID")
	}
	if _, ok := stats.Components["a"]; !ok {
		t.Error("expected component a in delegated statistics")
	}
}

func TestSynthesizedManifestOrdersDiagLast(t *testing.T) {
	cfg := config.Default()
	cfg.ManifestPath = ""
	cache := sources.NewCacheSource(cfg.Sources.Cache, telemetry.NopLogger())
	diagSrv := diag.NewServer(cfg.Diag, &statsProxy{}, nil, nil, telemetry.NopLogger())

	m, err := loadOrSynthesizeManifest(cfg, []engine.Component{diagSrv, cache})
	if err != nil {
		t.Fatalf("loadOrSynthesizeManifest: %v", err)
	}

	graph, err := m.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	order, err := graph.ComputeOrder()
	if err != nil {
		t.Fatalf("ComputeOrder: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("expected 2 components, got %v", order)
	}
	if order[len(order)-1] != diag.ComponentName {
		t.Errorf("expected %s to initialize last, got order %v", diag.ComponentName, order)
	}
}

func TestSynthesizedManifestRejectsEmpty(t *testing.T) {
	cfg := config.Default()
	cfg.ManifestPath = ""
	if _, err := loadOrSynthesizeManifest(cfg, nil); err == nil {
		t.Fatal("expected error for zero enabled components")
	}
}
