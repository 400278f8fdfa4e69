package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
)

// fakeRepo is an in-memory Repository with injectable failures.
type fakeRepo struct {
	mu      sync.Mutex
	ideas   []domain.Idea
	nextID  int64
	failAll error
}

func newFakeRepo(titles ...string) *fakeRepo {
	r := &fakeRepo{nextID: 1}
	for _, title := range titles {
		_, _ = r.Create(context.Background(), title, "body of "+title)
	}
	return r
}

func (r *fakeRepo) ListAll(_ context.Context) ([]domain.Idea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	return append([]domain.Idea(nil), r.ideas...), nil
}

func (r *fakeRepo) Create(_ context.Context, title, body string) (domain.Idea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return domain.Idea{}, r.failAll
	}
	idea := domain.NewIdea(title, body)
	if err := domain.Validate(idea); err != nil {
		return domain.Idea{}, err
	}
	idea.ID = r.nextID
	idea.CreatedAt = time.Now()
	r.nextID++
	r.ideas = append(r.ideas, idea)
	return idea, nil
}

func (r *fakeRepo) Update(_ context.Context, id int64, patch domain.IdeaPatch) (domain.Idea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return domain.Idea{}, r.failAll
	}
	for i, idea := range r.ideas {
		if idea.ID == id {
			r.ideas[i] = idea.Apply(patch)
			return r.ideas[i], nil
		}
	}
	return domain.Idea{}, domain.ErrNotFound
}

func (r *fakeRepo) Remove(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	for i, idea := range r.ideas {
		if idea.ID == id {
			r.ideas = append(r.ideas[:i], r.ideas[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeRepo) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAll = err
}

func titles(b *Board) []string {
	var out []string
	for _, v := range b.Ideas() {
		out = append(out, v.Props().Title)
	}
	return out
}

func TestLoadPrependsNewestFirst(t *testing.T) {
	b := NewBlankBoard(newFakeRepo("first", "second", "third"))

	require.NoError(t, b.Load(context.Background()))
	assert.Equal(t, []string{"third", "second", "first"}, titles(b))

	// reloading does not duplicate
	require.NoError(t, b.Load(context.Background()))
	assert.Len(t, b.Ideas(), 3)
}

func TestLoadFailure(t *testing.T) {
	repo := newFakeRepo("a")
	repo.fail(errors.New("offline"))
	b := NewBlankBoard(repo)

	assert.Error(t, b.Load(context.Background()))
	assert.Empty(t, b.Ideas())
}

func TestSubmit(t *testing.T) {
	repo := newFakeRepo("existing")
	b := NewBlankBoard(repo)
	ctx := context.Background()
	require.NoError(t, b.Load(ctx))

	b.SetInputs("", "")
	_, err := b.Submit(ctx)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, MessageBlank, b.Message())
	assert.Len(t, b.Ideas(), 1)

	b.SetInputs("New Idea", "Something")
	v, err := b.Submit(ctx)
	require.NoError(t, err)
	assert.Empty(t, b.Message(), "message clears on the next attempt")
	assert.Equal(t, []string{"New Idea", "existing"}, titles(b))
	assert.Same(t, v, b.Find(v.Props().ID))

	title, body := b.Inputs()
	assert.Empty(t, title)
	assert.Empty(t, body)
}

func TestSubmitNetworkFailure(t *testing.T) {
	repo := newFakeRepo()
	b := NewBlankBoard(repo)
	repo.fail(errors.New("connection refused"))

	b.SetInputs("a", "b")
	_, err := b.Submit(context.Background())
	assert.Error(t, err)
	assert.Equal(t, MessageNetwork, b.Message())

	title, _ := b.Inputs()
	assert.Equal(t, "a", title, "inputs survive a failed submit")
}

func TestPromoteDemoteReplaceInPlace(t *testing.T) {
	b := NewBlankBoard(newFakeRepo("a", "b", "c"))
	ctx := context.Background()
	require.NoError(t, b.Load(ctx))

	middle := b.Find(2)
	require.NotNil(t, middle)

	require.NoError(t, middle.Promote(ctx))
	assert.Equal(t, domain.QualityPlausible, middle.Props().Quality)
	assert.Equal(t, []string{"c", "b", "a"}, titles(b), "position is kept")

	out, err := middle.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, "Plausible")

	require.NoError(t, middle.Promote(ctx))
	require.NoError(t, middle.Promote(ctx))
	assert.Equal(t, domain.QualityGenius, middle.Props().Quality)

	require.NoError(t, middle.Demote(ctx))
	require.NoError(t, middle.Demote(ctx))
	require.NoError(t, middle.Demote(ctx))
	assert.Equal(t, domain.QualitySwill, middle.Props().Quality)

	container, err := b.ContainerHTML()
	require.NoError(t, err)
	assert.Equal(t, 3, countClass(t, container, "idea"))
}

func TestRemove(t *testing.T) {
	repo := newFakeRepo("a", "b")
	b := NewBlankBoard(repo)
	ctx := context.Background()
	require.NoError(t, b.Load(ctx))

	v := b.Find(1)
	require.NoError(t, v.Remove(ctx))
	assert.Equal(t, []string{"b"}, titles(b))
	assert.Nil(t, b.Find(1))

	assert.ErrorIs(t, v.Remove(ctx), ErrDetached)
	assert.ErrorIs(t, v.Promote(ctx), ErrDetached)
}

func TestActionFailuresSurface(t *testing.T) {
	repo := newFakeRepo("a")
	b := NewBlankBoard(repo)
	ctx := context.Background()
	require.NoError(t, b.Load(ctx))
	v := b.Find(1)

	repo.fail(errors.New("offline"))
	assert.Error(t, v.Promote(ctx))
	assert.Error(t, v.Remove(ctx))

	assert.Equal(t, domain.QualitySwill, v.Props().Quality, "nothing changes on failure")
	assert.Len(t, b.Ideas(), 1)
}

func TestConcurrentActionsLastResponseWins(t *testing.T) {
	b := NewBlankBoard(newFakeRepo("a"))
	ctx := context.Background()
	require.NoError(t, b.Load(ctx))
	v := b.Find(1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = v.Promote(ctx)
		}()
	}
	wg.Wait()

	assert.True(t, v.Props().Quality.Valid())
	assert.Len(t, b.Ideas(), 1)
}

func TestNewBoardRequiresRegions(t *testing.T) {
	doc, err := html.Parse(stringsReader(`<html><body><div class="ideas"></div></body></html>`))
	require.NoError(t, err)

	_, err = NewBoard(newFakeRepo(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".new-idea-title")
}

func TestBlankBoardHTML(t *testing.T) {
	b := NewBlankBoard(newFakeRepo("a"))
	require.NoError(t, b.Load(context.Background()))

	out, err := b.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Idea Box</h1>")
	assert.Contains(t, out, `class="new-idea"`)
	assert.Contains(t, out, `class="idea idea-1"`)
}
