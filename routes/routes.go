package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/llm-gateway/app"
	"github.com/upb/llm-gateway/handlers"
	"github.com/upb/llm-gateway/middleware"
	"github.com/upb/llm-gateway/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(deps),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Owner-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Handlers take the interface; a nil *gateway.Service must stay a nil interface
	var service handlers.GatewayService
	if deps.Gateway != nil {
		service = deps.Gateway
	}

	var pinger handlers.Pinger
	if deps.DB != nil {
		pinger = deps.DB
	}
	var supported []string
	if deps.Factory != nil {
		supported = deps.Factory.SupportedProviders()
	}

	health := handlers.NewHealthHandler(pinger, supported, deps.Logger)
	chat := handlers.NewChatHandler(service, deps.Logger)
	provider := handlers.NewProviderHandler(service, deps.Logger)
	session := handlers.NewSessionHandler(service, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", chat.HandleChat)

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", provider.HandleList)
			r.Post("/{name}/validate-key", provider.HandleValidateKey)
			r.Get("/{id}/models", provider.HandleListModels)
			r.Post("/{id}/api-keys", provider.HandleStoreAPIKey)
			r.Get("/{id}/usage", provider.HandleUsage)
		})

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/messages", session.HandleGetMessages)
			r.Delete("/", session.HandleDelete)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

func allowedOrigins(deps *app.Dependencies) []string {
	if deps.Config != nil && len(deps.Config.Server.AllowedOrigins) > 0 {
		return deps.Config.Server.AllowedOrigins
	}
	return []string{"http://localhost:*"}
}
