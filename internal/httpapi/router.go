package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"agent_gateway/internal/auth"
	"agent_gateway/internal/config"
	"agent_gateway/internal/logging"
	"agent_gateway/internal/metrics"
	"agent_gateway/internal/middleware"
	"agent_gateway/internal/utils"
)

// NewRouter builds the HTTP handler for the dashboard and integration API.
func NewRouter(cfg *config.Config, deps *Dependencies) http.Handler {
	m := deps.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logging.NewLogger("http"), m))
	r.Use(chimw.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.Get("/health", healthHandler(deps))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	agents := NewAgentsHandler(deps.Registry, deps.Resolver)
	settings := NewSettingsHandler(deps.Registry, deps.Catalog)
	billing := NewBillingHandler(deps.Aggregator)
	conversations := NewConversationsHandler(deps.Responder)
	usage := NewUsageHandler(deps.UsageQueue)

	viewer := middleware.AdminJWTMiddleware(cfg, auth.RoleViewer)
	admin := middleware.AdminJWTMiddleware(cfg, auth.RoleAdmin)
	integration := middleware.AdminJWTMiddleware(cfg, auth.RoleIntegration)

	r.Route("/api", func(r chi.Router) {
		// Reads
		r.Group(func(r chi.Router) {
			r.Use(viewer)
			r.Get("/agents", agents.List)
			r.Get("/agents/assignments/pages", agents.ListAssignments)
			r.Get("/agents/resolve/{pageId}", agents.Resolve)
			r.Get("/agents/{id}", agents.Get)
			r.Get("/billing", billing.Report)
			r.Get("/ai-config", settings.GetAIConfig)
			r.Get("/ai-config/models", settings.ListModels)
			r.Get("/steel-rules", settings.GetSteelRules)
			r.Get("/customer-info", settings.GetCustomerInfo)
			r.Get("/training", settings.GetTraining)
			r.Get("/bot/status", settings.BotStatus)
			r.Get("/usage/queue", usage.Status)
		})

		// Writes
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/agents", agents.Create)
			r.Put("/agents/{id}", agents.Update)
			r.Delete("/agents/{id}", agents.Delete)
			r.Post("/agents/{id}/default", agents.SetDefault)
			r.Post("/agents/assignments/assign", agents.Assign)
			r.Delete("/agents/assignments/pages/{pageId}", agents.Unassign)
			r.Post("/ai-config", settings.UpdateAIConfig)
			r.Post("/steel-rules", settings.UpdateSteelRules)
			r.Post("/customer-info", settings.UpdateCustomerInfo)
			r.Post("/training", settings.UpdateTraining)
			r.Post("/bot/toggle", settings.ToggleBot)
			r.Post("/usage/dead-letters/{id}/retry", usage.Retry)
		})

		r.With(integration).Post("/conversations/reply", conversations.Reply)
	})

	return r
}

type healthChecker interface {
	Health(ctx context.Context) error
}

func healthHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if hc, ok := deps.Store.(healthChecker); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := hc.Health(ctx); err != nil {
				status["status"] = "degraded"
				status["store"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		utils.RespondWithJSON(w, code, status)
	}
}
