package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// PageData feeds templates/index.html.
type PageData struct {
	IdeasHTML template.HTML // pre-rendered, already escaped markup
	Message   string        // shown in the form's message area
	Version   string
}

// Page renders the single HTML page.
type Page struct {
	tmpl *template.Template
}

func NewPage() (*Page, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Page{tmpl: tmpl}, nil
}

func (p *Page) Render(w io.Writer, data PageData) error {
	return p.tmpl.ExecuteTemplate(w, "index.html", data)
}

// Static serves the embedded static/ directory. Mount it with
// http.StripPrefix("/static/", ...).
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// fs.Sub only fails on an invalid path literal
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
