package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/ideabox/internal/config"
	"github.com/MrSnakeDoc/ideabox/internal/domain"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/mw"
	"github.com/MrSnakeDoc/ideabox/internal/ideas"
	"github.com/MrSnakeDoc/ideabox/internal/logger"
	"github.com/MrSnakeDoc/ideabox/internal/store/memory"
	"github.com/MrSnakeDoc/ideabox/internal/web"
)

type testServer struct {
	handler http.Handler
	store   *memory.Store
	svc     *ideas.Service
}

func newTestServer(t *testing.T, tweak ...func(*config.Config, *deps.Deps)) *testServer {
	t.Helper()

	store := memory.NewStore()
	svc := ideas.NewService(store, nil, logger.Nop())
	page, err := web.NewPage()
	require.NoError(t, err)

	cfg := &config.Config{
		ListenPort:     ":0",
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"*"},
	}
	d := deps.Deps{
		Logger:     logger.Nop(),
		StartTime:  time.Now(),
		Version:    "test",
		TimeNow:    time.Now,
		RateBurst:  1000,
		RatePerMin: 1000,
		StoreKind:  "memory",
		Ideas:      svc,
		Metrics:    mw.NewMetrics("ideabox"),
		Page:       page,
	}
	for _, fn := range tweak {
		fn(cfg, &d)
	}

	return &testServer{handler: NewRouter(cfg, logger.Nop(), d), store: store, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	return s.do(t, method, path, "application/json", body)
}

func decodeIdea(t *testing.T, rec *httptest.ResponseRecorder) domain.Idea {
	t.Helper()
	var idea domain.Idea
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idea), rec.Body.String())
	return idea
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string][]string {
	t.Helper()
	var payload struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload.Errors
}

func (s *testServer) count(t *testing.T) int {
	t.Helper()
	n, err := s.svc.Count(t.Context())
	require.NoError(t, err)
	return n
}

func TestCreateIdea(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"New Idea","body":"Something"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	idea := decodeIdea(t, rec)
	assert.NotZero(t, idea.ID)
	assert.Equal(t, "New Idea", idea.Title)
	assert.Equal(t, "Something", idea.Body)
	assert.Equal(t, domain.QualitySwill, idea.Quality)
	assert.Equal(t, "/api/v1/ideas/1", rec.Header().Get("Location"))
	assert.Equal(t, 1, s.count(t))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"id", "title", "body", "quality", "created_at"} {
		assert.Contains(t, raw, key)
	}
}

func TestCreateIdeaIgnoresQuality(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"a","body":"b","quality":"genius"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.QualitySwill, decodeIdea(t, rec).Quality)
}

func TestCreateIdeaBareObject(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"title":"a","body":"b"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "a", decodeIdea(t, rec).Title)
}

func TestCreateIdeaForm(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"idea[title]": {"From a form"}, "idea[body]": {"works"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ideas", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "From a form", decodeIdea(t, rec).Title)
}

func TestCreateIdeaFromPageRedirects(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"idea[title]": {"No script"}, "idea[body]": {"plain form"}}
	rec := s.do(t, http.MethodPost, "/api/v1/ideas", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get("Location"))

	n, err := s.store.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page := s.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "No script")
	assert.NotContains(t, page.Body.String(), "cannot be blank")
}

func TestCreateIdeaFromPageBlankRedirectsWithMessage(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"idea[title]": {""}, "idea[body]": {"plain form"}}
	rec := s.do(t, http.MethodPost, "/api/v1/ideas", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	loc := rec.Header().Get("Location")
	assert.Equal(t, "/?error=blank", loc)

	page := s.do(t, http.MethodGet, loc, "", "")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), `<div class="new-idea-messages" role="alert">Title and/or body cannot be blank.</div>`)
}

func TestCreateIdeaValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string][]string
	}{
		{
			name: "blank title",
			body: `{"idea":{"title":"","body":"Something"}}`,
			want: map[string][]string{"title": {domain.ReasonBlank}},
		},
		{
			name: "whitespace body",
			body: `{"idea":{"title":"ok","body":"   "}}`,
			want: map[string][]string{"body": {domain.ReasonBlank}},
		},
		{
			name: "missing fields",
			body: `{"idea":{}}`,
			want: map[string][]string{"title": {domain.ReasonBlank}, "body": {domain.ReasonBlank}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.doJSON(t, http.MethodPost, "/api/v1/ideas", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, tt.want, decodeErrors(t, rec))
			assert.Zero(t, s.count(t), "nothing should be persisted")
		})
	}
}

func TestCreateIdeaMalformed(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, s.count(t))
}

func TestListIdeas(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodGet, "/api/v1/ideas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, title := range []string{"first", "second", "third"} {
		created := s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"`+title+`","body":"b"}}`)
		require.Equal(t, http.StatusCreated, created.Code)
	}

	rec = s.doJSON(t, http.MethodGet, "/api/v1/ideas", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []domain.Idea
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Title)
	assert.Equal(t, "third", list[2].Title)

	again := s.doJSON(t, http.MethodGet, "/api/v1/ideas", "")
	assert.Equal(t, rec.Body.String(), again.Body.String(), "ordering must be stable")
}

func TestGetIdea(t *testing.T) {
	s := newTestServer(t)
	created := decodeIdea(t, s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"a","body":"b"}}`))

	rec := s.doJSON(t, http.MethodGet, "/api/v1/ideas/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeIdea(t, rec).ID)

	for _, path := range []string{"/api/v1/ideas/2", "/api/v1/ideas/abc", "/api/v1/ideas/-1"} {
		rec := s.doJSON(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
	}
}

func TestUpdateIdea(t *testing.T) {
	s := newTestServer(t)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"a","body":"b"}}`)

	rec := s.doJSON(t, http.MethodPut, "/api/v1/ideas/1", `{"idea":{"quality":"plausible","title":"renamed"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	idea := decodeIdea(t, rec)
	assert.Equal(t, domain.QualityPlausible, idea.Quality)
	assert.Equal(t, "renamed", idea.Title)
	assert.Equal(t, "b", idea.Body)

	rec = s.doJSON(t, http.MethodPatch, "/api/v1/ideas/1", `{"idea":{"body":"patched"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "patched", decodeIdea(t, rec).Body)
}

func TestUpdateIdeaForm(t *testing.T) {
	s := newTestServer(t)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"a","body":"b"}}`)

	form := url.Values{"idea[quality]": {"genius"}}
	rec := s.do(t, http.MethodPut, "/api/v1/ideas/1", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.QualityGenius, decodeIdea(t, rec).Quality)
}

func TestUpdateIdeaInvalid(t *testing.T) {
	s := newTestServer(t)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"a","body":"b"}}`)

	rec := s.doJSON(t, http.MethodPut, "/api/v1/ideas/1", `{"idea":{"title":"changed","quality":"brilliant"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string][]string{"quality": {domain.ReasonNotInList}}, decodeErrors(t, rec))

	got := decodeIdea(t, s.doJSON(t, http.MethodGet, "/api/v1/ideas/1", ""))
	assert.Equal(t, "a", got.Title, "no partial write may survive")

	rec = s.doJSON(t, http.MethodPut, "/api/v1/ideas/1", `{"idea":{"title":""}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string][]string{"title": {domain.ReasonBlank}}, decodeErrors(t, rec))

	rec = s.doJSON(t, http.MethodPut, "/api/v1/ideas/9", `{"idea":{"title":"x"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteIdea(t *testing.T) {
	s := newTestServer(t)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"a","body":"b"}}`)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"c","body":"d"}}`)

	rec := s.doJSON(t, http.MethodDelete, "/api/v1/ideas/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 1, s.count(t))

	rec = s.doJSON(t, http.MethodDelete, "/api/v1/ideas/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, s.count(t))
}

func TestPromoteDemoteEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"a","body":"b"}}`)

	steps := []struct {
		path string
		want domain.Quality
	}{
		{"/api/v1/ideas/1/promote", domain.QualityPlausible},
		{"/api/v1/ideas/1/promote", domain.QualityGenius},
		{"/api/v1/ideas/1/promote", domain.QualityGenius},
		{"/api/v1/ideas/1/demote", domain.QualityPlausible},
		{"/api/v1/ideas/1/demote", domain.QualitySwill},
		{"/api/v1/ideas/1/demote", domain.QualitySwill},
	}
	for i, step := range steps {
		rec := s.doJSON(t, http.MethodPost, step.path, "")
		require.Equal(t, http.StatusOK, rec.Code, "step %d", i)
		assert.Equal(t, step.want, decodeIdea(t, rec).Quality, "step %d", i)
	}

	rec := s.doJSON(t, http.MethodPost, "/api/v1/ideas/42/promote", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPage(t *testing.T) {
	s := newTestServer(t)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"idea":{"title":"<script>x</script>","body":"b"}}`)

	rec := s.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Idea Box</h1>")
	assert.Contains(t, body, `class="ideas"`)
	assert.Contains(t, body, `class="new-idea"`)
	assert.Contains(t, body, `class="new-idea-title"`)
	assert.Contains(t, body, `class="new-idea-body"`)
	assert.Contains(t, body, `class="new-idea-submit"`)
	assert.Contains(t, body, `class="idea idea-1"`)
	assert.Contains(t, body, "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, body, "<script>x</script>")
}

func TestStatic(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/static/ideabox.js", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title and/or body cannot be blank.")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "test", payload["version"])
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"ready": true,
		"status": "ok",
		"components": {
			"store": {"ok": true, "mode": "memory"},
			"cache": {"ok": true, "mode": "disabled"}
		}
	}`, rec.Body.String())
}

func TestReadyzRestrictedByCIDR(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	// httptest requests come from 192.0.2.1
	rec := s.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/metrics", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", "").Code)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	s.doJSON(t, http.MethodGet, "/api/v1/ideas", "")

	rec := s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `ideabox_http_requests_total{method="GET",route="/api/v1/ideas`)
	assert.Contains(t, body, `ideabox_http_request_duration_seconds_bucket`)
	assert.Contains(t, body, `go_goroutines`)
}

func TestMetricsIdeaGauge(t *testing.T) {
	s := newTestServer(t)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"title":"a","body":"b"}`)
	s.doJSON(t, http.MethodPost, "/api/v1/ideas", `{"title":"c","body":"d"}`)

	rec := s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\nideabox_ideas 2\n")
}

func TestEnforceHostOnAPI(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, d *deps.Deps) {
		d.AllowedHosts = []string{"ideas.example.com"}
	})

	// httptest requests carry Host: example.com
	assert.Equal(t, http.StatusForbidden, s.doJSON(t, http.MethodGet, "/api/v1/ideas", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", "").Code)
}

func TestWriteRateLimit(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, d *deps.Deps) {
		d.RateBurst = 2
		d.RatePerMin = 1
	})

	body := `{"idea":{"title":"a","body":"b"}}`
	assert.Equal(t, http.StatusCreated, s.doJSON(t, http.MethodPost, "/api/v1/ideas", body).Code)
	assert.Equal(t, http.StatusCreated, s.doJSON(t, http.MethodPost, "/api/v1/ideas", body).Code)

	rec := s.doJSON(t, http.MethodPost, "/api/v1/ideas", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// reads are not limited
	assert.Equal(t, http.StatusOK, s.doJSON(t, http.MethodGet, "/api/v1/ideas", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ideas", nil)
	req.Header.Set("Origin", "http://elsewhere.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
