package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/mw"
)

func init() { Register(registerIdeas) }

func registerIdeas(r chi.Router, d deps.Deps) {
	// one limiter shared by every write route
	rl := mw.RateLimitConfig{
		Burst:             d.RateBurst,
		RefillPerIPPerMin: d.RatePerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
		Now:               d.TimeNow,
	}
	if d.Metrics != nil {
		rl.OnReject = d.Metrics.RateLimited
	}
	limitWrites := mw.RateLimit(rl)

	r.Route(handlers.IdeasPath, func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))

		r.Get("/", handlers.ListIdeas(d))
		r.With(limitWrites).Post("/", handlers.CreateIdea(d))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetIdea(d))

			r.Group(func(r chi.Router) {
				r.Use(limitWrites)
				r.Put("/", handlers.UpdateIdea(d))
				r.Patch("/", handlers.UpdateIdea(d))
				r.Delete("/", handlers.DeleteIdea(d))
				r.Post("/promote", handlers.PromoteIdea(d))
				r.Post("/demote", handlers.DemoteIdea(d))
			})
		})
	})
}
