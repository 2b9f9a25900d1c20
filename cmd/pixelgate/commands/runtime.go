package commands

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/diag"
	"github.com/pixelgate/pixelgate/pkg/engine"
	"github.com/pixelgate/pixelgate/pkg/resolve"
	"github.com/pixelgate/pixelgate/pkg/sources"
	"github.com/pixelgate/pixelgate/pkg/stores"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
	"github.com/pixelgate/pixelgate/pkg/track"
)

// node bundles the wired subsystems of one pixelgate process.
type node struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	manifest *config.Manifest
	orch     *engine.Orchestrator
	resolver *resolve.Resolver
	cache    *sources.CacheSource
	r2       *sources.R2Source
	origin   *sources.OriginSource
	srcs     []resolve.Source
	history  *stores.HistoryStore
	diagSrv  *diag.Server
}

// statsProxy lets the diagnostic server read orchestrator state even
// though the server is constructed before the orchestrator exists.
type statsProxy struct {
	mu   sync.RWMutex
	orch *engine.Orchestrator
}

func (p *statsProxy) set(o *engine.Orchestrator) {
	p.mu.Lock()
	p.orch = o
	p.mu.Unlock()
}

func (p *statsProxy) get() *engine.Orchestrator {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orch
}

func (p *statsProxy) Statistics() *engine.LifecycleStatistics {
	if o := p.get(); o != nil {
		return o.Statistics()
	}
	return &engine.LifecycleStatistics{Components: map[string]*engine.ComponentHealth{}}
}

func (p *statsProxy) IsComponentHealthy(name string) bool {
	if o := p.get(); o != nil {
		return o.IsComponentHealthy(name)
	}
	return false
}

func (p *statsProxy) IsSystemHealthy(names []string) bool {
	if o := p.get(); o != nil {
		return o.IsSystemHealthy(names)
	}
	return false
}

// buildNode loads configuration and wires sources, recorder,
// orchestrator and resolver. Nothing is initialized yet; the caller
// drives the lifecycle through n.orch.
func buildNode(ctx context.Context, configPath string) (*node, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry: %w", err)
	}

	n := &node{cfg: cfg, tel: tel}

	recorders := track.MultiRecorder{telemetry.NewRecorder(tel)}
	if cfg.Store.Enabled {
		history, err := stores.NewHistoryStore(stores.Config{Path: cfg.Store.Path}, tel.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build history store: %w", err)
		}
		n.history = history
		recorders = append(recorders, history)
	}
	var recorder track.Recorder = recorders

	// Sources in priority order: cache, then R2, then origin.
	var srcs []resolve.Source
	var components []engine.Component

	if cfg.Sources.Cache.Enabled {
		n.cache = sources.NewCacheSource(cfg.Sources.Cache, tel.Logger)
		srcs = append(srcs, n.cache)
		components = append(components, n.cache)
	}
	if cfg.Sources.R2.Enabled {
		client, err := sources.NewR2Client(ctx, cfg.Sources.R2)
		if err != nil {
			return nil, fmt.Errorf("failed to build R2 client: %w", err)
		}
		n.r2 = sources.NewR2Source(client, cfg.Sources.R2, tel.Logger)
		srcs = append(srcs, n.r2)
		components = append(components, n.r2)
	}
	if cfg.Sources.Origin.Enabled {
		n.origin = sources.NewOriginSource(nil, cfg.Sources.Origin)
		srcs = append(srcs, n.origin)
	}

	if n.history != nil {
		components = append(components, n.history)
	}

	proxy := &statsProxy{}
	if cfg.Diag.Enabled {
		n.diagSrv = diag.NewServer(cfg.Diag, proxy, n.history, tel.Metrics, tel.Logger)
		components = append(components, n.diagSrv)
	}

	n.srcs = srcs
	n.resolver = resolve.New(srcs, resolve.Options{
		PerSourceTimeout: cfg.Resolver.PerSourceTimeout,
	}, recorder, tel.Logger)
	n.updateEligibleGauge()

	manifest, err := loadOrSynthesizeManifest(cfg, components)
	if err != nil {
		return nil, err
	}
	n.manifest = manifest

	graph, err := manifest.Graph()
	if err != nil {
		return nil, err
	}

	orch, err := engine.NewOrchestrator(graph, components, recorder, tel.Logger)
	if err != nil {
		return nil, err
	}
	n.orch = orch
	proxy.set(orch)

	return n, nil
}

// loadOrSynthesizeManifest reads the configured manifest file, or
// derives one from the wired components when the file is absent. The
// derived graph starts all sources and the store first and the
// diagnostic server last.
func loadOrSynthesizeManifest(cfg *config.Config, components []engine.Component) (*config.Manifest, error) {
	if cfg.ManifestPath != "" {
		if _, err := os.Stat(cfg.ManifestPath); err == nil {
			return config.LoadManifest(cfg.ManifestPath)
		}
	}

	m := &config.Manifest{Critical: cfg.Lifecycle.CriticalComponents}
	var base []string
	for _, c := range components {
		if c.Name() == diag.ComponentName {
			continue
		}
		m.Components = append(m.Components, engine.ComponentDescriptor{Name: c.Name()})
		base = append(base, c.Name())
	}
	for _, c := range components {
		if c.Name() == diag.ComponentName {
			m.Components = append(m.Components, engine.ComponentDescriptor{
				Name:         c.Name(),
				Dependencies: base,
			})
		}
	}

	if len(m.Components) == 0 {
		return nil, fmt.Errorf("no components enabled; check sources, store and diag configuration")
	}
	return m, nil
}

// initOptions translates configuration into orchestrator options,
// merging critical component names from the manifest and the config.
func (n *node) initOptions() engine.InitializeOptions {
	critical := append([]string{}, n.cfg.Lifecycle.CriticalComponents...)
	for _, name := range n.manifest.Critical {
		critical = append(critical, name)
	}

	return engine.InitializeOptions{
		GracefulDegradation: n.cfg.Lifecycle.GracefulDegradation,
		Timeout:             n.cfg.Lifecycle.InitTimeout,
		CriticalComponents:  critical,
	}
}

func (n *node) shutdownOptions(force bool) engine.ShutdownOptions {
	return engine.ShutdownOptions{
		Force:   force,
		Timeout: n.cfg.Lifecycle.ShutdownTimeout,
	}
}

// resolveAsset resolves a key and funnels remote winners through the
// cache write-back path.
func (n *node) resolveAsset(ctx context.Context, key string) (*resolve.Result, error) {
	ctx, span := n.tel.Tracer.StartResolveSpan(ctx, key)
	defer span.End()

	res, err := n.resolver.Resolve(ctx, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.RecordSuccess(span)
	return sources.WriteBack(ctx, n.cache, key, res, n.tel.Logger)
}

// applySourceEligibility pushes a reloaded configuration snapshot into
// the wired sources.
func (n *node) applySourceEligibility(cfg *config.Config) {
	if n.cache != nil {
		n.cache.SetEligible(cfg.Sources.Cache.Enabled)
	}
	if n.r2 != nil {
		n.r2.SetEligible(cfg.Sources.R2.Enabled)
	}
	if n.origin != nil {
		n.origin.SetEligible(cfg.Sources.Origin.Enabled)
	}
	n.updateEligibleGauge()
}

func (n *node) updateEligibleGauge() {
	count := 0
	for _, s := range n.srcs {
		if s.Eligible() {
			count++
		}
	}
	n.tel.Metrics.SetEligibleSources(count)
}

// persistRun saves the current statistics snapshot when persistence is on.
func (n *node) persistRun(ctx context.Context) {
	if n.history == nil {
		return
	}
	if err := n.history.SaveRun(ctx, *n.orch.Statistics()); err != nil {
		n.tel.Logger.WithError(err).Warn("Failed to persist run summary")
	}
}
