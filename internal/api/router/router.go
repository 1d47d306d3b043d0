package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicai/gateway/internal/chat"
	"github.com/clinicai/gateway/internal/clinics"
	"github.com/clinicai/gateway/internal/dashboard"
	httpmiddleware "github.com/clinicai/gateway/internal/http/middleware"
	"github.com/clinicai/gateway/internal/onboarding"
	"github.com/clinicai/gateway/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *chat.Handler
	DashboardHandler   *dashboard.Handler
	ClinicsHandler     *clinics.Handler
	OnboardingHandler  *onboarding.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP rate limit for chat messages. Zero disables limiting.
	ChatRatePerSecond float64
	ChatRateBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.ChatHandler != nil {
			api.Route("/chat", func(r chi.Router) {
				if cfg.ChatRatePerSecond > 0 {
					r.With(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatRateBurst)).Post("/message", cfg.ChatHandler.HandleMessage)
				} else {
					r.Post("/message", cfg.ChatHandler.HandleMessage)
				}
				r.Get("/history", cfg.ChatHandler.HandleHistory)
			})
		}

		if cfg.DashboardHandler != nil {
			api.Route("/dashboard", func(r chi.Router) {
				r.Post("/unlock", cfg.DashboardHandler.HandleUnlock)
				r.Get("/status", cfg.DashboardHandler.HandleStatus)

				// Data endpoints require a previously unlocked session.
				r.Group(func(protected chi.Router) {
					protected.Use(cfg.DashboardHandler.RequireUnlocked)
					protected.Get("/snapshot", cfg.DashboardHandler.HandleSnapshot)
					protected.Get("/latency", cfg.DashboardHandler.HandleLatency)
				})
			})
		}

		if cfg.ClinicsHandler != nil {
			api.Route("/clinics", func(r chi.Router) {
				r.Get("/search", cfg.ClinicsHandler.HandleSearch)
				r.Get("/latest", cfg.ClinicsHandler.HandleLatest)
			})
		}

		if cfg.OnboardingHandler != nil {
			api.Route("/onboarding", func(r chi.Router) {
				r.Get("/defaults", cfg.OnboardingHandler.HandleDefaults)
				r.Post("/validate/{step}", cfg.OnboardingHandler.HandleValidateStep)
				r.Post("/submit", cfg.OnboardingHandler.HandleSubmit)
				r.Get("/clinics/{id}", cfg.OnboardingHandler.HandleGetClinic)
			})
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
