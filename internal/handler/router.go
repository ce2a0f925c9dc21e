package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/interview-registration/internal/auth"
	"github.com/Shivanand-hulikatti/interview-registration/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Registrations *RegistrationHandler
	Interviews    *InterviewHandler
	Validator     auth.TokenValidator
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// NewRouter builds the chi router with its middleware stack and routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(cfg.Logger))      // structured access log
	r.Use(CORS)
	if cfg.Metrics != nil {
		r.Use(Metrics(cfg.Metrics))
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Get("/health", HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(cfg.Validator, cfg.Logger))

		iv := cfg.Interviews
		reg := cfg.Registrations
		r.Route("/interviews", func(r chi.Router) {
			r.Get("/", iv.ListInterviews)
			r.Post("/", iv.CreateInterview)
			r.Get("/{id}", iv.GetInterview)
			r.Put("/{id}/status", iv.UpdateInterviewStatus)
			r.Get("/{id}/slots", iv.ListSlots)
			r.Post("/{id}/slots", iv.CreateSlot)
			r.Get("/{id}/registrations", reg.ListForInterview)
		})
		r.Route("/slots", func(r chi.Router) {
			r.Get("/{id}", iv.GetSlot)
			r.Put("/{id}/capacity", iv.UpdateSlotCapacity)
			r.Delete("/{id}", iv.DeleteSlot)
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", reg.List)
			r.Post("/", reg.Register)
			r.Get("/my", reg.ListMine)
			r.Get("/status/{status}", reg.ListByStatus)
			r.Get("/{id}", reg.Get)
			r.Put("/{id}/cancel", reg.Cancel)
			r.Put("/{id}/status", reg.ChangeStatus)
			r.Put("/{id}/score", reg.Score)
			r.Post("/{id}/announce", reg.Announce)
		})
	})

	return r
}
