package config

import (
	"time"

	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

// Default returns the built-in configuration. It describes a development
// deployment: local cache and origin enabled, R2 and persistence off,
// diagnostics on localhost.
func Default() *Config {
	return &Config{
		Telemetry: *telemetry.DefaultConfig(),
		Lifecycle: LifecycleConfig{
			InitTimeout:         30 * time.Second,
			ShutdownTimeout:     15 * time.Second,
			GracefulDegradation: true,
			ForceShutdown:       false,
		},
		Resolver: ResolverConfig{
			PerSourceTimeout: 5 * time.Second,
		},
		Sources: SourcesConfig{
			Cache: CacheSourceConfig{
				Enabled:       true,
				Path:          "./data/cache",
				TTL:           1 * time.Hour,
				WriteBack:     true,
				MaxEntryBytes: 32 << 20,
			},
			R2: R2SourceConfig{
				Enabled: false,
				Region:  "auto",
			},
			Origin: OriginSourceConfig{
				Enabled: true,
				BaseURL: "http://localhost:8080",
			},
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    "./data/pixelgate.db",
		},
		Diag: DiagConfig{
			Enabled:      true,
			Listen:       "127.0.0.1:9437",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		ManifestPath: "./manifest.yaml",
	}
}
