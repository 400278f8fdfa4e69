package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
)

const ideaColumns = `id, title, body, quality, created_at, updated_at`

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxConns    int32
	MinConns    int32
	PingTimeout time.Duration
}

// Connect opens a pgx pool and verifies it answers.
func Connect(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

// Store persists ideas in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(row rowScanner) (domain.Idea, error) {
	var (
		idea    domain.Idea
		quality int16
	)
	if err := row.Scan(&idea.ID, &idea.Title, &idea.Body, &quality, &idea.CreatedAt, &idea.UpdatedAt); err != nil {
		return domain.Idea{}, err
	}
	q, err := domain.QualityFromOrdinal(int(quality))
	if err != nil {
		return domain.Idea{}, fmt.Errorf("idea %d: %w", idea.ID, err)
	}
	idea.Quality = q
	return idea, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (s *Store) List(ctx context.Context) ([]domain.Idea, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+ideaColumns+` FROM ideas ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	list := []domain.Idea{}
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		list = append(list, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	return list, nil
}

func (s *Store) Get(ctx context.Context, id int64) (domain.Idea, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = $1`, id)
	idea, err := scanIdea(row)
	if err != nil {
		return domain.Idea{}, notFound(err)
	}
	return idea, nil
}

func (s *Store) Create(ctx context.Context, idea domain.Idea) (domain.Idea, error) {
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}
	if idea.UpdatedAt.IsZero() {
		idea.UpdatedAt = idea.CreatedAt
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO ideas (title, body, quality, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+ideaColumns,
		idea.Title, idea.Body, int16(idea.Quality.Ordinal()), idea.CreatedAt, idea.UpdatedAt,
	)
	out, err := scanIdea(row)
	if err != nil {
		return domain.Idea{}, fmt.Errorf("insert idea: %w", err)
	}
	return out, nil
}

// Modify locks the row, applies fn and writes the result in one transaction.
// If fn fails the transaction is rolled back.
func (s *Store) Modify(ctx context.Context, id int64, fn func(domain.Idea) (domain.Idea, error)) (out domain.Idea, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Idea{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := scanIdea(tx.QueryRow(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return domain.Idea{}, notFound(err)
	}

	next, err := fn(current)
	if err != nil {
		return domain.Idea{}, err
	}
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	}

	out, err = scanIdea(tx.QueryRow(ctx, `
		UPDATE ideas SET title = $2, body = $3, quality = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+ideaColumns,
		id, next.Title, next.Body, int16(next.Quality.Ordinal()), next.UpdatedAt,
	))
	if err != nil {
		return domain.Idea{}, fmt.Errorf("update idea: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Idea{}, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ideas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ideas`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ideas: %w", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
