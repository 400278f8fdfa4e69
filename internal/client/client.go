package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
	"github.com/MrSnakeDoc/ideabox/internal/utils"
)

const ideasPath = "/api/v1/ideas"

// NetworkError reports a request that never produced a usable answer:
// transport failures, unexpected statuses and unreadable bodies.
type NetworkError struct {
	Method string
	URL    string
	Status int // 0 when no response arrived
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d: %v", e.Method, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err carries a *NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// Client talks to the ideabox API. Every call blocks until the server
// answers or ctx ends; run it in a goroutine for asynchronous use.
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type ideaFields struct {
	Title   *string `json:"title,omitempty"`
	Body    *string `json:"body,omitempty"`
	Quality *string `json:"quality,omitempty"`
}

type ideaEnvelope struct {
	Idea ideaFields `json:"idea"`
}

// ListAll returns every idea, oldest first.
func (c *Client) ListAll(ctx context.Context) ([]domain.Idea, error) {
	var out []domain.Idea
	if err := c.do(ctx, http.MethodGet, ideasPath, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Idea{}
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (domain.Idea, error) {
	var out domain.Idea
	err := c.do(ctx, http.MethodGet, ideaPath(id), nil, http.StatusOK, &out)
	return out, err
}

// Create returns the stored idea including its server-assigned id.
func (c *Client) Create(ctx context.Context, title, body string) (domain.Idea, error) {
	var out domain.Idea
	payload := ideaEnvelope{Idea: ideaFields{Title: &title, Body: &body}}
	err := c.do(ctx, http.MethodPost, ideasPath, payload, http.StatusCreated, &out)
	return out, err
}

// Update sends only the fields set in patch.
func (c *Client) Update(ctx context.Context, id int64, patch domain.IdeaPatch) (domain.Idea, error) {
	fields := ideaFields{Title: patch.Title, Body: patch.Body}
	if patch.Quality != nil {
		q := patch.Quality.String()
		fields.Quality = &q
	}
	var out domain.Idea
	err := c.do(ctx, http.MethodPut, ideaPath(id), ideaEnvelope{Idea: fields}, http.StatusOK, &out)
	return out, err
}

func (c *Client) Remove(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, ideaPath(id), nil, http.StatusNoContent, nil)
}

// Promote and Demote use the dedicated transition endpoints.
func (c *Client) Promote(ctx context.Context, id int64) (domain.Idea, error) {
	var out domain.Idea
	err := c.do(ctx, http.MethodPost, ideaPath(id)+"/promote", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) Demote(ctx context.Context, id int64) (domain.Idea, error) {
	var out domain.Idea
	err := c.do(ctx, http.MethodPost, ideaPath(id)+"/demote", nil, http.StatusOK, &out)
	return out, err
}

func ideaPath(id int64) string {
	return ideasPath + "/" + strconv.FormatInt(id, 10)
}

// do sends one request and decodes the answer. 422 becomes a
// *domain.ValidationError, 404 becomes domain.ErrNotFound and everything else
// that is not want becomes a *NetworkError.
func (c *Client) do(ctx context.Context, method, path string, payload any, want int, out any) error {
	target := c.baseURL + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Method: method, URL: target, Err: err}
	}
	defer utils.Close(resp.Body)

	switch resp.StatusCode {
	case want:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &NetworkError{Method: method, URL: target, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil

	case http.StatusUnprocessableEntity:
		var payload struct {
			Errors map[string][]string `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return &NetworkError{Method: method, URL: target, Status: resp.StatusCode, Err: fmt.Errorf("decode errors: %w", err)}
		}
		verr := domain.NewValidationError()
		for field, reasons := range payload.Errors {
			for _, reason := range reasons {
				verr.Add(field, reason)
			}
		}
		return verr

	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)

	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &NetworkError{
			Method: method,
			URL:    target,
			Status: resp.StatusCode,
			Err:    errors.New(strings.TrimSpace(string(snippet))),
		}
	}
}
