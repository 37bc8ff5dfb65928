package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/deiragold/spotfeed/internal/api"
	"github.com/deiragold/spotfeed/internal/model"
)

// Config holds catalog registry configuration.
type Config struct {
	RefreshInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: 5 * time.Minute,
	}
}

// Snapshot is one immutable view of the commodity configuration. The
// zero value means "no configuration yet".
type Snapshot struct {
	Commodities   []model.CommoditySpec
	Spreads       model.Spreads
	News          []model.NewsItem
	LimitExceeded bool
	Version       int64
	FetchedAt     time.Time
}

// Empty reports whether any configuration has arrived.
func (s Snapshot) Empty() bool {
	return s.FetchedAt.IsZero()
}

// Registry fetches and holds the current Snapshot.
type Registry struct {
	cfg    Config
	rest   *api.Client
	logger *slog.Logger

	mu   sync.RWMutex
	snap Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a catalog registry backed by the admin API client.
func NewRegistry(cfg Config, rest *api.Client, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		cfg:    cfg,
		rest:   rest,
		logger: logger,
	}
}

// Start performs the initial fetch and begins background refresh. An
// initial fetch failure is tolerated: the registry starts empty and the
// refresh loop keeps trying.
func (r *Registry) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	if err := r.refresh(runCtx); err != nil {
		r.logger.Warn("initial catalog fetch failed, starting empty", "error", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.refreshLoop(runCtx)
	}()

	return nil
}

// Stop halts background refresh.
func (r *Registry) Stop(ctx context.Context) {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("catalog registry stop timed out")
	}
}

// Snapshot returns the current configuration view. The returned value and
// everything it references must be treated as read-only; the registry
// never mutates a published snapshot.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// refreshLoop periodically re-fetches configuration.
func (r *Registry) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.refresh(ctx); err != nil {
				r.logger.Error("catalog refresh failed, keeping last snapshot", "error", err)
			}
		}
	}
}

// refresh fetches everything and swaps in a new snapshot. On error the
// previous snapshot stays published (stale data retained).
func (r *Registry) refresh(ctx context.Context) error {
	start := time.Now()

	rates, err := r.rest.GetSpotRates(ctx)
	if err != nil {
		return err
	}

	allowed, err := r.rest.CheckEntitlement(ctx)
	if err != nil {
		// Entitlement check unavailable: assume allowed, keep serving.
		r.logger.Warn("entitlement check unavailable", "error", err)
		allowed = true
	}

	news, err := r.rest.GetNews(ctx)
	if err != nil {
		// News is decoration; don't fail the refresh over it.
		r.logger.Warn("news fetch failed", "error", err)
		news = nil
	}

	r.mu.Lock()
	next := Snapshot{
		Commodities:   append([]model.CommoditySpec(nil), rates.Commodities...),
		Spreads:       rates.Spreads,
		News:          news,
		LimitExceeded: !allowed,
		Version:       r.snap.Version + 1,
		FetchedAt:     time.Now(),
	}
	r.snap = next
	r.mu.Unlock()

	r.logger.Info("catalog refreshed",
		"commodities", len(next.Commodities),
		"news", len(next.News),
		"limit_exceeded", next.LimitExceeded,
		"version", next.Version,
		"duration", time.Since(start),
	)

	return nil
}
