package diag

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pixelgate/pixelgate/pkg/engine"
	"github.com/pixelgate/pixelgate/pkg/stores"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

// StatsProvider is the orchestrator surface the diagnostic server reads.
type StatsProvider interface {
	Statistics() *engine.LifecycleStatistics
	IsSystemHealthy(names []string) bool
	IsComponentHealthy(name string) bool
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Healthy    bool                              `json:"healthy"`
	RunID      string                            `json:"run_id"`
	Components map[string]*engine.ComponentHealth `json:"components"`
}

// newRouter assembles the diagnostic routes.
//
// Routes:
//   - GET /healthz              - overall health, 503 when degraded
//   - GET /healthz/{component}  - single component health
//   - GET /statistics           - lifecycle statistics for the current run
//   - GET /statistics/runs      - persisted run history
//   - GET /statistics/resolutions - persisted resolution history
//   - GET /metrics              - Prometheus exposition
func newRouter(provider StatsProvider, history *stores.HistoryStore, metrics *telemetry.Metrics, log *telemetry.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/", handleHealth(provider))
		r.Get("/{component}", handleComponentHealth(provider))
	})

	r.Route("/statistics", func(r chi.Router) {
		r.Get("/", handleStatistics(provider))
		r.Get("/runs", handleRuns(history))
		r.Get("/resolutions", handleResolutions(history))
	})

	if handler := metrics.Handler(); handler != nil {
		r.Method(http.MethodGet, "/metrics", handler)
	} else {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "metrics collection is disabled",
			})
		})
	}

	return r
}

func handleHealth(provider StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := provider.Statistics()

		names := make([]string, 0, len(stats.Components))
		for name := range stats.Components {
			names = append(names, name)
		}

		resp := healthResponse{
			Healthy:    provider.IsSystemHealthy(names),
			RunID:      stats.RunID,
			Components: stats.Components,
		}

		status := http.StatusOK
		if !resp.Healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func handleComponentHealth(provider StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "component")

		stats := provider.Statistics()
		health, ok := stats.Components[name]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "unknown component: " + name,
			})
			return
		}

		status := http.StatusOK
		if !provider.IsComponentHealthy(name) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	}
}

func handleStatistics(provider StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, provider.Statistics())
	}
}

func handleRuns(history *stores.HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "run history persistence is disabled",
			})
			return
		}

		limit, offset := pagination(r, 20)
		runs, err := history.ListRuns(r.Context(), limit, offset)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleResolutions(history *stores.HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "resolution history persistence is disabled",
			})
			return
		}

		limit, offset := pagination(r, 50)
		key := r.URL.Query().Get("key")
		records, err := history.ListResolutions(r.Context(), key, limit, offset)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// pagination parses ?limit= and ?offset= with a per-route default limit.
func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// requestLogger logs each request at debug level with method, path,
// status and latency.
func requestLogger(log *telemetry.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("Request handled")
		})
	}
}
