package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/handlers"
)

func init() { Register(registerReadyz) }

func registerReadyz(r chi.Router, d deps.Deps) {
	r.With(opsOnly(d)).Get("/readyz", handlers.Readyz(d))
}
