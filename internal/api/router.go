package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/temaweb/internal/api/handlers"
	"github.com/wonny/temaweb/pkg/logger"
)

// Handlers bundles the dependency-injected handler set for the router.
type Handlers struct {
	Themes   *handlers.ThemeHandler
	Insights *handlers.InsightsHandler
	Record   *handlers.RecordHandler
	Refresh  *handlers.RefreshHandler
	Files    *handlers.FileHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Theme ranking
	api.HandleFunc("/themes", h.Themes.GetThemes).Methods("GET")
	api.HandleFunc("/themes/{rank:[0-9]+}", h.Themes.GetThemeDetail).Methods("GET")

	// Momentum insights
	api.HandleFunc("/insights/summary", h.Insights.GetSummary).Methods("GET")
	api.HandleFunc("/insights/theme-history", h.Insights.GetThemeHistory).Methods("GET")

	// Record ledger
	api.HandleFunc("/record", h.Record.Download).Methods("GET")
	api.HandleFunc("/record", h.Record.Append).Methods("POST")
	api.HandleFunc("/record/json", h.Record.ListJSON).Methods("GET")
	api.HandleFunc("/record/{record_id}", h.Record.Delete).Methods("DELETE")

	// Refresh orchestration
	api.HandleFunc("/refresh", h.Refresh.Trigger).Methods("POST")
	api.HandleFunc("/status", h.Refresh.Status).Methods("GET")

	// Raw snapshot downloads
	api.HandleFunc("/file/{date}/{filename}", h.Files.Download).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "temaweb-api",
	})
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
