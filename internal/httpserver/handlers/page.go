package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ideabox/internal/logger"
	"github.com/MrSnakeDoc/ideabox/internal/view"
	"github.com/MrSnakeDoc/ideabox/internal/web"
)

const (
	// PagePath is where the HTML page is mounted.
	PagePath = "/"
	// PageErrorParam carries a failed form submit back to the page.
	PageErrorParam = "error"
	PageErrorBlank = "blank"
)

// Page serves the HTML document with the current ideas already drawn, so the
// list shows up before the script takes over.
func Page(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Ideas.List(r.Context())
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}

		ideasHTML, err := view.RenderHTML(list)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}

		var buf bytes.Buffer
		err = d.Page.Render(&buf, web.PageData{
			// RenderHTML escapes every text node.
			IdeasHTML: template.HTML(ideasHTML),
			Message:   pageMessage(r),
			Version:   d.Version,
		})
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if _, err := buf.WriteTo(w); err != nil {
			d.Logger.Debug("failed to write page", logger.Error(err))
		}
	}
}

func pageMessage(r *http.Request) string {
	if r.URL.Query().Get(PageErrorParam) == PageErrorBlank {
		return view.MessageBlank
	}
	return ""
}
