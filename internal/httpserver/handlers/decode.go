package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
)

const maxBodyBytes = 1 << 20

// ideaParams are the client-writable fields. Nil means "not supplied".
type ideaParams struct {
	Title   *string `json:"title"`
	Body    *string `json:"body"`
	Quality *string `json:"quality"`
}

// ideaRequest accepts {"idea":{...}} as well as the bare field object.
type ideaRequest struct {
	Idea *ideaParams `json:"idea"`
	ideaParams
}

func (p ideaParams) patch() domain.IdeaPatch {
	patch := domain.IdeaPatch{Title: p.Title, Body: p.Body}
	if p.Quality != nil {
		q := domain.Quality(*p.Quality)
		patch.Quality = &q
	}
	return patch
}

// decodeIdea reads idea fields from a JSON body or from form fields named
// idea[title], idea[body] and idea[quality].
func decodeIdea(w http.ResponseWriter, r *http.Request) (ideaParams, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return decodeForm(r)
	default:
		return decodeJSON(r)
	}
}

// isPageSubmit reports a browser form post that expects a page back rather
// than JSON.
func isPageSubmit(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" && mediaType != "multipart/form-data" {
		return false
	}
	return !strings.Contains(r.Header.Get("Accept"), "application/json")
}

func decodeJSON(r *http.Request) (ideaParams, error) {
	var req ideaRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return ideaParams{}, nil
		}
		return ideaParams{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if req.Idea != nil {
		return *req.Idea, nil
	}
	return req.ideaParams, nil
}

func decodeForm(r *http.Request) (ideaParams, error) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return ideaParams{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	var p ideaParams
	p.Title = formValue(r, "title")
	p.Body = formValue(r, "body")
	p.Quality = formValue(r, "quality")
	return p, nil
}

func formValue(r *http.Request, field string) *string {
	for _, key := range []string{"idea[" + field + "]", field} {
		if vs, ok := r.PostForm[key]; ok && len(vs) > 0 {
			v := vs[0]
			return &v
		}
	}
	return nil
}
