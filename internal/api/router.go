package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"github.com/streakhq/curator/internal/api/handlers"
	"github.com/streakhq/curator/pkg/logger"
	"github.com/streakhq/curator/pkg/metrics"
)

// HealthCheck reports whether one dependency answers. details, when non-nil,
// is included in the /health response.
type HealthCheck func(ctx context.Context) (details interface{}, err error)

const healthCheckTimeout = 2 * time.Second

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(curatorHandler *handlers.CuratorHandler, hub *handlers.Hub, checks map[string]HealthCheck, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler(checks)).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api/curator").Subrouter()

	// Engine control
	api.HandleFunc("/config", curatorHandler.GetConfig).Methods("GET")
	api.HandleFunc("/config", curatorHandler.UpdateConfig).Methods("PUT")
	api.HandleFunc("/toggle", curatorHandler.Toggle).Methods("POST")
	api.HandleFunc("/status", curatorHandler.GetStatus).Methods("GET")
	api.HandleFunc("/stats", curatorHandler.GetStats).Methods("GET")
	api.HandleFunc("/thresholds", curatorHandler.GetThresholds).Methods("GET")
	api.HandleFunc("/data-sources", curatorHandler.GetDataSources).Methods("GET")

	// Draft review
	api.HandleFunc("/drafts", curatorHandler.ListDrafts).Methods("GET")
	api.HandleFunc("/drafts/{id}/approve", curatorHandler.ApproveDraft).Methods("POST")
	api.HandleFunc("/drafts/{id}/reject", curatorHandler.RejectDraft).Methods("POST")

	// Market instances
	api.HandleFunc("/markets", curatorHandler.ListMarkets).Methods("GET")
	api.HandleFunc("/markets/{id}", curatorHandler.GetMarket).Methods("GET")
	api.HandleFunc("/markets/{id}/resolve", curatorHandler.ResolveMarket).Methods("POST")

	// Jobs
	api.HandleFunc("/jobs", curatorHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{name}", curatorHandler.GetJobHistory).Methods("GET")
	api.HandleFunc("/jobs/{name}/run", curatorHandler.RunJob).Methods("POST")

	// Live events
	if hub != nil {
		api.HandleFunc("/ws", hub.HandleWS).Methods("GET")
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler runs every dependency check and answers 503 when any fails
func healthCheckHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		results := make(map[string]interface{}, len(names))

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			details, err := checks[name](ctx)
			cancel()

			entry := map[string]interface{}{"healthy": err == nil}
			if details != nil {
				entry["details"] = details
			}
			if err != nil {
				entry["error"] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
			}
			results[name] = entry
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  status,
			"service": "curator",
			"checks":  results,
		})
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
