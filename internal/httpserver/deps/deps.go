package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/mw"
	"github.com/MrSnakeDoc/ideabox/internal/logger"
	"github.com/MrSnakeDoc/ideabox/internal/web"
)

// IdeaService is the application surface the handlers drive.
type IdeaService interface {
	List(ctx context.Context) ([]domain.Idea, error)
	Get(ctx context.Context, id int64) (domain.Idea, error)
	Create(ctx context.Context, title, body string) (domain.Idea, error)
	Update(ctx context.Context, id int64, patch domain.IdeaPatch) (domain.Idea, error)
	Promote(ctx context.Context, id int64) (domain.Idea, error)
	Demote(ctx context.Context, id int64) (domain.Idea, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	PingCache(ctx context.Context) (enabled bool, err error)
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to reach the API
	AllowedCIDRS []string         // IPs allowed to access readyz/metrics endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateBurst    int              // write requests per client IP in a burst
	RatePerMin   int              // sustained write requests per client IP
	StoreKind    string           // "postgres" or "memory", reported by readyz
	Ideas        IdeaService
	Metrics      *mw.Metrics // nil disables /metrics
	Page         *web.Page
}
