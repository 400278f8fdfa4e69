package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
)

// IdeasPath is the collection path of the API.
const IdeasPath = "/api/v1/ideas"

// ideaID reads {id} from the route. Anything that is not a positive integer
// can never match a stored idea, so it reports ErrNotFound.
func ideaID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func ListIdeas(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Ideas.List(r.Context())
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		if list == nil {
			list = []domain.Idea{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetIdea(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ideaID(r)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		idea, err := d.Ideas.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, idea)
	}
}

// CreateIdea ignores any supplied quality: new ideas start at swill.
// A plain form submit from the page is answered with a 303 back to it.
func CreateIdea(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fromPage := isPageSubmit(r)

		p, err := decodeIdea(w, r)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}

		var title, body string
		if p.Title != nil {
			title = *p.Title
		}
		if p.Body != nil {
			body = *p.Body
		}

		idea, err := d.Ideas.Create(r.Context(), title, body)
		if err != nil {
			if fromPage && domain.IsValidation(err) {
				http.Redirect(w, r, PagePath+"?"+PageErrorParam+"="+PageErrorBlank, http.StatusSeeOther)
				return
			}
			writeServiceError(w, r, d.Logger, err)
			return
		}
		if fromPage {
			http.Redirect(w, r, PagePath, http.StatusSeeOther)
			return
		}

		w.Header().Set("Location", IdeasPath+"/"+strconv.FormatInt(idea.ID, 10))
		writeJSON(w, http.StatusCreated, idea)
	}
}

func UpdateIdea(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ideaID(r)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		p, err := decodeIdea(w, r)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}

		idea, err := d.Ideas.Update(r.Context(), id, p.patch())
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, idea)
	}
}

func DeleteIdea(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ideaID(r)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		if err := d.Ideas.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PromoteIdea and DemoteIdea move the rating one step and return the idea.
func PromoteIdea(d deps.Deps) http.HandlerFunc {
	return transition(d, d.Ideas.Promote)
}

func DemoteIdea(d deps.Deps) http.HandlerFunc {
	return transition(d, d.Ideas.Demote)
}

func transition(d deps.Deps, step func(ctx context.Context, id int64) (domain.Idea, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ideaID(r)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		idea, err := step(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, idea)
	}
}
