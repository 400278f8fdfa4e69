package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
)

// Store keeps ideas in process memory.
// It backs development runs without a database and most tests.
type Store struct {
	mu     sync.RWMutex
	ideas  map[int64]domain.Idea // ID -> Idea
	nextID int64
}

// NewStore creates an empty memory store.
func NewStore() *Store {
	return &Store{
		ideas:  make(map[int64]domain.Idea),
		nextID: 1,
	}
}

// List returns every idea, oldest first.
func (s *Store) List(_ context.Context) ([]domain.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Idea, 0, len(s.ideas))
	for _, idea := range s.ideas {
		out = append(out, idea)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get retrieves an idea by ID.
func (s *Store) Get(_ context.Context, id int64) (domain.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idea, ok := s.ideas[id]
	if !ok {
		return domain.Idea{}, domain.ErrNotFound
	}
	return idea, nil
}

// Create assigns the next ID and stores idea.
func (s *Store) Create(_ context.Context, idea domain.Idea) (domain.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea.ID = s.nextID
	s.nextID++
	s.ideas[idea.ID] = idea
	return idea, nil
}

// Modify applies fn to the stored idea under the write lock. When fn fails
// nothing is written.
func (s *Store) Modify(_ context.Context, id int64, fn func(domain.Idea) (domain.Idea, error)) (domain.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.ideas[id]
	if !ok {
		return domain.Idea{}, domain.ErrNotFound
	}

	next, err := fn(current)
	if err != nil {
		return domain.Idea{}, err
	}

	// identity is owned by the store
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	s.ideas[id] = next
	return next, nil
}

// Delete removes an idea permanently.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ideas[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.ideas, id)
	return nil
}

// Count returns the number of stored ideas.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ideas), nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}
