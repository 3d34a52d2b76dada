package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/it-assistant/app"
	"github.com/upb/it-assistant/handlers"
	"github.com/upb/it-assistant/middleware"
	"github.com/upb/it-assistant/utils"
)

// defaultRequestTimeout applies when the config leaves it unset
const defaultRequestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	timeout := deps.Config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.EchoRequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.Store, deps.Knowledge, deps.Logger)
	question := handlers.NewQuestionHandler(deps.Conversations, deps.Logger)
	feedback := handlers.NewFeedbackHandler(deps.Conversations, deps.Logger)
	conversations := handlers.NewConversationHandler(deps.Conversations, deps.Logger)

	// Health check endpoints
	r.Get("/health", health.HandleHealth)
	r.Get("/health/ready", health.HandleReadiness)

	// Assistant endpoints used by the CLI
	r.Post("/question", question.HandleQuestion)
	r.Post("/feedback", feedback.HandleFeedback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/question", question.HandleQuestion)
		r.Post("/feedback", feedback.HandleFeedback)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversations.HandleList)
			r.Get("/{id}", conversations.HandleGet)
		})
		r.Get("/feedback/stats", conversations.HandleFeedbackStats)
		r.Get("/metrics", conversations.HandleMetrics)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
