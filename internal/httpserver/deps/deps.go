package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/sitedir/internal/directory"
	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/mw"
	"github.com/MrSnakeDoc/sitedir/internal/icon"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/scheduler"
)

// IconService is the icon cache as seen by handlers.
type IconService interface {
	Resolve(ctx context.Context, domain string) (icon.Icon, error)
	Refresh(ctx context.Context, domain, override string) (icon.Icon, error)
	Evict(ctx context.Context, domain string) error
	Cached(ctx context.Context, domain string) (*icon.CachedIcon, error)
}

// IconScheduler starts batch refreshes on demand and reports on them.
type IconScheduler interface {
	TriggerIconRefresh() bool
	Status() scheduler.Status
}

// Pinger is implemented by backends with a cheap liveness check (redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger             logger.Logger
	StartTime          time.Time
	Version            string
	Commit             string
	BuildDate          string
	GoVersion          string
	TimeNow            func() time.Time   // for testing, defaults to time.Now
	AllowedHosts       []string           // Host headers allowed to reach admin routes
	AllowedCIDRS       []string           // IPs allowed to reach admin and probe routes
	TrustProxy         bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	StoreBackend       string             // name of the document store backend, for /infra
	Store              docstore.Store     // document store, probed by /readyz
	StorePinger        Pinger             // optional, nil when the backend has no ping
	Icons              IconService        // icon cache
	Scheduler          IconScheduler      // nil when background jobs are disabled
	Directory          *directory.Service // directory documents
	PublicLimiter      *mw.RateLimiter    // per-IP budget shared by public routes, nil = unlimited
	PublicRequestLimit time.Duration      // per-request timeout on public routes
	AdminRequestLimit  time.Duration      // per-request timeout on admin routes
}
