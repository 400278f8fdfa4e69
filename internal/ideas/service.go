package ideas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
	"github.com/MrSnakeDoc/ideabox/internal/logger"
)

// Repository is the persistence collaborator.
type Repository interface {
	List(ctx context.Context) ([]domain.Idea, error)
	Get(ctx context.Context, id int64) (domain.Idea, error)
	Create(ctx context.Context, idea domain.Idea) (domain.Idea, error)
	// Modify applies fn atomically. If fn returns an error nothing is written.
	Modify(ctx context.Context, id int64, fn func(domain.Idea) (domain.Idea, error)) (domain.Idea, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Cache holds the full list between writes. Invalidate advances the list
// version; SetList must refuse to store when the version moved past the one
// read before the store was queried.
type Cache interface {
	GetList(ctx context.Context) ([]domain.Idea, bool, error)
	Version(ctx context.Context) (int64, error)
	SetList(ctx context.Context, ideas []domain.Idea, version int64) (bool, error)
	Invalidate(ctx context.Context) error
	Ping(ctx context.Context) error
}

const (
	listKey = "ideas:list"

	// listFlightTimeout bounds a shared list load, which outlives the
	// request that started it.
	listFlightTimeout = 10 * time.Second
)

// Service implements the idea operations on top of a Repository.
type Service struct {
	repo  Repository
	cache Cache
	log   logger.Logger
	sf    singleflight.Group

	TimeNow func() time.Time // for testing, defaults to time.Now
}

// NewService creates a Service. cache may be nil, which disables list caching.
func NewService(repo Repository, cache Cache, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		log:     log,
		TimeNow: time.Now,
	}
}

func (s *Service) now() time.Time {
	return s.TimeNow().UTC()
}

// List returns every idea, oldest first.
func (s *Service) List(ctx context.Context) ([]domain.Idea, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}

	v, err, _ := s.sf.Do(listKey, func() (interface{}, error) {
		// every waiter shares this load
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listFlightTimeout)
		defer cancel()
		return s.loadList(fctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Idea), nil
}

// loadList serves the cached list or reloads it from the store. The version is
// read before the store so a write that lands in between keeps the reload out
// of the cache.
func (s *Service) loadList(ctx context.Context) ([]domain.Idea, error) {
	list, ok, err := s.cache.GetList(ctx)
	if err != nil {
		s.log.Warn("list cache read failed, falling back to store", logger.Error(err))
	}
	if ok {
		return list, nil
	}

	version, verr := s.cache.Version(ctx)
	if verr != nil {
		s.log.Warn("list cache version read failed, skipping cache fill", logger.Error(verr))
	}

	list, err = s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		return list, nil
	}

	stored, err := s.cache.SetList(ctx, list, version)
	switch {
	case err != nil:
		s.log.Warn("list cache write failed", logger.Error(err))
	case !stored:
		s.log.Debug("list changed while loading, not cached", logger.Int64("version", version))
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Idea, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new idea. Quality always starts at swill.
func (s *Service) Create(ctx context.Context, title, body string) (domain.Idea, error) {
	idea := domain.NewIdea(title, body)
	if err := domain.Validate(idea); err != nil {
		return domain.Idea{}, err
	}

	now := s.now()
	idea.CreatedAt = now
	idea.UpdatedAt = now

	created, err := s.repo.Create(ctx, idea)
	if err != nil {
		return domain.Idea{}, fmt.Errorf("create idea: %w", err)
	}
	s.invalidate(ctx)

	s.log.Debug("idea created", logger.Int64("id", created.ID))
	return created, nil
}

// Update merges patch into the stored idea. The merged result is validated
// before anything is written.
func (s *Service) Update(ctx context.Context, id int64, patch domain.IdeaPatch) (domain.Idea, error) {
	if patch.Empty() {
		return s.repo.Get(ctx, id)
	}
	return s.modify(ctx, id, "updated", func(i domain.Idea) domain.Idea { return i.Apply(patch) })
}

// Promote raises the rating by one step, holding at genius.
func (s *Service) Promote(ctx context.Context, id int64) (domain.Idea, error) {
	return s.modify(ctx, id, "promoted", domain.Idea.Promoted)
}

// Demote lowers the rating by one step, holding at swill.
func (s *Service) Demote(ctx context.Context, id int64) (domain.Idea, error) {
	return s.modify(ctx, id, "demoted", domain.Idea.Demoted)
}

func (s *Service) modify(ctx context.Context, id int64, action string, change func(domain.Idea) domain.Idea) (domain.Idea, error) {
	updated, err := s.repo.Modify(ctx, id, func(current domain.Idea) (domain.Idea, error) {
		next := change(current)
		if err := domain.Validate(next); err != nil {
			return domain.Idea{}, err
		}
		next.UpdatedAt = s.now()
		return next, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || domain.IsValidation(err) {
			return domain.Idea{}, err
		}
		return domain.Idea{}, fmt.Errorf("modify idea %d: %w", id, err)
	}
	s.invalidate(ctx)

	s.log.Debug("idea "+action,
		logger.Int64("id", updated.ID),
		logger.String("quality", updated.Quality.String()))
	return updated, nil
}

// Delete removes an idea permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete idea %d: %w", id, err)
	}
	s.invalidate(ctx)

	s.log.Debug("idea deleted", logger.Int64("id", id))
	return nil
}

// Count returns how many ideas are stored.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// PingCache checks the list cache. enabled is false when no cache is configured.
func (s *Service) PingCache(ctx context.Context) (enabled bool, err error) {
	if s.cache == nil {
		return false, nil
	}
	return true, s.cache.Ping(ctx)
}

// invalidate is best effort: a stale entry expires with its TTL.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.sf.Forget(listKey)
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("list cache invalidation failed", logger.Error(err))
	}
}
