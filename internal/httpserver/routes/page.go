package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/ideabox/internal/web"
)

func init() { Register(registerPage) }

func registerPage(r chi.Router, d deps.Deps) {
	if d.Page != nil {
		r.Get(handlers.PagePath, handlers.Page(d))
	}
	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))
}
