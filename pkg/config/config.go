package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

// Config is the static pixelgate configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PIXELGATE_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// Lifecycle configures the component orchestrator.
	Lifecycle LifecycleConfig `mapstructure:"lifecycle" yaml:"lifecycle"`

	// Resolver configures the multi-source asset resolver.
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`

	// Sources configures the asset sources the resolver races.
	Sources SourcesConfig `mapstructure:"sources" yaml:"sources"`

	// Store configures the SQLite run history store.
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Diag configures the diagnostic HTTP server.
	Diag DiagConfig `mapstructure:"diag" yaml:"diag"`

	// ManifestPath is the component dependency manifest to load.
	ManifestPath string `mapstructure:"manifest" yaml:"manifest"`
}

// LifecycleConfig controls initialization and shutdown policy.
type LifecycleConfig struct {
	// InitTimeout bounds each component's initialization hook.
	InitTimeout time.Duration `mapstructure:"init_timeout" validate:"gt=0" yaml:"init_timeout"`

	// ShutdownTimeout bounds each component's shutdown hook.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`

	// GracefulDegradation continues initialization past non-critical failures.
	GracefulDegradation bool `mapstructure:"graceful_degradation" yaml:"graceful_degradation"`

	// CriticalComponents always abort initialization when they fail.
	CriticalComponents []string `mapstructure:"critical_components" yaml:"critical_components,omitempty"`

	// ForceShutdown continues the shutdown pass past hook failures.
	ForceShutdown bool `mapstructure:"force_shutdown" yaml:"force_shutdown"`
}

// ResolverConfig controls resolution budgets.
type ResolverConfig struct {
	// PerSourceTimeout bounds each individual source fetch.
	PerSourceTimeout time.Duration `mapstructure:"per_source_timeout" validate:"gt=0" yaml:"per_source_timeout"`
}

// SourcesConfig declares the asset sources in priority order:
// cache first, then the R2 bucket, then the HTTP origin.
type SourcesConfig struct {
	Cache  CacheSourceConfig  `mapstructure:"cache" yaml:"cache"`
	R2     R2SourceConfig     `mapstructure:"r2" yaml:"r2"`
	Origin OriginSourceConfig `mapstructure:"origin" yaml:"origin"`
}

// CacheSourceConfig configures the local Badger asset cache.
type CacheSourceConfig struct {
	// Enabled controls whether the cache participates in resolution.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the Badger database directory.
	Path string `mapstructure:"path" yaml:"path"`

	// TTL is how long cached assets stay valid.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// WriteBack populates the cache from winning remote fetches.
	WriteBack bool `mapstructure:"write_back" yaml:"write_back"`

	// MaxEntryBytes caps the size of a single cached asset. Larger
	// assets are served but never written back.
	MaxEntryBytes int64 `mapstructure:"max_entry_bytes" yaml:"max_entry_bytes"`
}

// R2SourceConfig configures the Cloudflare R2 (S3-compatible) source.
type R2SourceConfig struct {
	// Enabled controls whether the R2 source participates in resolution.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bucket is the R2 bucket name.
	Bucket string `mapstructure:"bucket" validate:"required_if=Enabled true" yaml:"bucket"`

	// Endpoint is the account-scoped R2 endpoint URL.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint"`

	// Region is the bucket region; R2 uses "auto".
	Region string `mapstructure:"region" yaml:"region"`

	// AccessKeyID and SecretAccessKey are the static credentials.
	// Prefer setting these through PIXELGATE_SOURCES_R2_ACCESS_KEY_ID
	// and PIXELGATE_SOURCES_R2_SECRET_ACCESS_KEY.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// Prefix is prepended to every resolved key.
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

// OriginSourceConfig configures the HTTP origin fallback source.
type OriginSourceConfig struct {
	// Enabled controls whether the origin participates in resolution.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BaseURL is the origin root; resolved keys are appended to it.
	BaseURL string `mapstructure:"base_url" validate:"required_if=Enabled true,omitempty,url" yaml:"base_url"`

	// Headers are added to every origin request.
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
}

// StoreConfig configures run history persistence.
type StoreConfig struct {
	// Enabled controls whether lifecycle and resolution records are persisted.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `mapstructure:"path" validate:"required_if=Enabled true" yaml:"path"`
}

// DiagConfig configures the diagnostic HTTP server.
type DiagConfig struct {
	// Enabled controls whether the diagnostic server is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the address the server binds to.
	Listen string `mapstructure:"listen" validate:"required_if=Enabled true" yaml:"listen"`

	// ReadTimeout and WriteTimeout bound request handling.
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath skips the file layer and uses defaults plus
// environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks structural constraints on the configuration.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if !cfg.Sources.Cache.Enabled && !cfg.Sources.R2.Enabled && !cfg.Sources.Origin.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	return nil
}

// setupViper configures environment variable and file handling.
// Environment variables use the PIXELGATE_ prefix with underscores,
// e.g. PIXELGATE_LIFECYCLE_INIT_TIMEOUT=45s.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PIXELGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// decodeHooks converts human-readable strings into config field types.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook parses strings like "30s" or "5m" into time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch val := data.(type) {
		case string:
			return time.ParseDuration(val)
		case int:
			return time.Duration(val), nil
		case int64:
			return time.Duration(val), nil
		case float64:
			return time.Duration(val), nil
		default:
			return data, nil
		}
	}
}

// defaultConfigDir returns $XDG_CONFIG_HOME/pixelgate, falling back to
// ~/.config/pixelgate, then the current directory.
func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pixelgate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "pixelgate")
}
