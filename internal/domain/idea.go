package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no idea has the requested id.
var ErrNotFound = errors.New("idea not found")

// Idea is the single entity of the application.
//
// ID and CreatedAt are assigned by the store on creation and never change.
type Idea struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title" validate:"notblank"`
	Body      string    `json:"body" validate:"notblank"`
	Quality   Quality   `json:"quality" validate:"oneof=swill plausible genius"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewIdea builds an unsaved idea with the default rating.
func NewIdea(title, body string) Idea {
	return Idea{
		Title:   title,
		Body:    body,
		Quality: QualitySwill,
	}
}

// IdeaPatch carries the fields of a partial update. Nil means "leave as is".
type IdeaPatch struct {
	Title   *string
	Body    *string
	Quality *Quality
}

// Empty reports whether the patch changes nothing.
func (p IdeaPatch) Empty() bool {
	return p.Title == nil && p.Body == nil && p.Quality == nil
}

// Apply returns a copy of i with the patch merged in.
func (i Idea) Apply(p IdeaPatch) Idea {
	out := i
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Body != nil {
		out.Body = *p.Body
	}
	if p.Quality != nil {
		out.Quality = *p.Quality
	}
	return out
}

// Promoted returns a copy of i one rating higher.
func (i Idea) Promoted() Idea {
	i.Quality = i.Quality.Promote()
	return i
}

// Demoted returns a copy of i one rating lower.
func (i Idea) Demoted() Idea {
	i.Quality = i.Quality.Demote()
	return i
}
