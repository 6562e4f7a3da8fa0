package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carpenike/repcoach/internal/middleware"
)

// RouterConfig carries the HTTP-surface options that are not runtime
// settings.
type RouterConfig struct {
	// AdminKey protects /admin. Empty disables the admin routes.
	AdminKey string
	// AllowedOrigin is sent as Access-Control-Allow-Origin on
	// /generate-program.
	AllowedOrigin string
	// RateLimiter limits /generate-program per client IP. Nil disables it.
	RateLimiter *middleware.RateLimiter
}

// NewRouter builds the service's HTTP handler.
func NewRouter(api *API, cfg RouterConfig) http.Handler {
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(api.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/health", api.Health)
	r.Get("/vocabulary", api.Vocabulary)
	r.Get("/runs", api.ListRuns)
	r.Get("/runs/{id}", api.GetRun)

	r.Route("/generate-program", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.AllowedOrigin, http.MethodPost))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Allow", "POST, OPTIONS")
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		})
		r.Post("/", api.GenerateProgram)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AdminKey))
		r.Get("/settings", api.ListSettings)
		r.Put("/settings/{key}", api.UpdateSetting)
		r.Delete("/settings/{key}", api.DeleteSetting)
		r.Post("/llm/ping", api.PingModel)
		r.Post("/notify/test", api.TestNotify)
	})

	return r
}
