package routes

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/expert-gateway/app"
	"github.com/upb/expert-gateway/handlers"
	"github.com/upb/expert-gateway/internal/observability"
	"github.com/upb/expert-gateway/utils"
)

// SetupRoutes configures the API listener. Every route sits behind the token gate;
// paths under a public prefix pass through it without a credential.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(deps.AuthMiddleware.Authenticate)

	r.Route("/users", func(r chi.Router) {
		r.Get("/me", handlers.GetCurrentUserHandler(deps))
	})

	r.Route(deps.AccessPolicy.AdminPrefix(), func(r chi.Router) {
		r.Use(deps.AdminGuard.RequireAdmin)
		r.Get("/access-logs", handlers.ListAdminAccessLogsHandler(deps))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

// SetupOpsRoutes configures the operational listener: probes and metrics
func SetupOpsRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}
	var health *handlers.HealthHandler
	if deps.AuditService != nil {
		health = handlers.NewHealthHandler(db, deps.AuditService, deps.Logger)
	} else {
		health = handlers.NewHealthHandler(db, nil, deps.Logger)
	}

	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
