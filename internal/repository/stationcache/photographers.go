package stationcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/infrastructure/provider"
	"github.com/stationhub/internal/loader"
	"go.uber.org/zap"
)

// PhotographerCache is the single-key refresh-ahead cache over the
// upstream photographer listing. A failed refresh keeps the previous list.
type PhotographerCache struct {
	fetcher  *provider.Client
	url      string
	interval time.Duration
	monitor  repository.Monitor
	logger   *zap.Logger

	mu        sync.Mutex
	value     map[string]domain.Photographer
	loaded    bool
	loadedAt  time.Time
	inFlight  bool
	firstLoad chan struct{}
}

var _ repository.PhotographerDirectory = (*PhotographerCache)(nil)

func NewPhotographerCache(
	fetcher *provider.Client,
	url string,
	interval time.Duration,
	monitor repository.Monitor,
	logger *zap.Logger,
) *PhotographerCache {
	return &PhotographerCache{
		fetcher:  fetcher,
		url:      url,
		interval: interval,
		monitor:  monitor,
		logger:   logger,
	}
}

// Lookup resolves a nickname. Unknown nicknames and a failed first load
// both report absent; photo attribution degrades instead of failing a
// country refresh.
func (c *PhotographerCache) Lookup(ctx context.Context, nickname string) (domain.Photographer, bool) {
	p, ok := c.Snapshot(ctx)[nickname]
	return p, ok
}

// Snapshot returns the current nickname map, loading it on first use.
// The returned map is shared and must be treated as read-only.
func (c *PhotographerCache) Snapshot(ctx context.Context) map[string]domain.Photographer {
	c.mu.Lock()

	if c.loaded {
		value := c.value
		if time.Since(c.loadedAt) > c.interval && !c.inFlight {
			c.inFlight = true
			go c.load(context.Background())
		}
		c.mu.Unlock()
		return value
	}

	if c.inFlight {
		done := c.firstLoad
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return map[string]domain.Photographer{}
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		return c.currentOrEmpty()
	}

	c.inFlight = true
	c.firstLoad = make(chan struct{})
	c.mu.Unlock()

	c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentOrEmpty()
}

// Invalidate forces the next read to refresh.
func (c *PhotographerCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedAt = time.Time{}
}

// Refresh invalidates the cached list and reloads it synchronously, so a
// forced station reload sees current attribution instead of waiting out
// the interval. A load already in flight supersedes this trigger.
func (c *PhotographerCache) Refresh(ctx context.Context) {
	c.Invalidate()

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	if !c.loaded && c.firstLoad == nil {
		c.firstLoad = make(chan struct{})
	}
	c.mu.Unlock()

	c.load(ctx)
}

func (c *PhotographerCache) currentOrEmpty() map[string]domain.Photographer {
	if c.value == nil {
		return map[string]domain.Photographer{}
	}
	return c.value
}

func (c *PhotographerCache) load(ctx context.Context) {
	photographers, err := loader.LoadPhotographers(ctx, c.fetcher, c.url)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false

	if err != nil {
		c.logger.Error("Photographer refresh failed, keeping previous data", zap.Error(err))
		c.monitor.Notify(fmt.Sprintf("photographer load failed: %v", err))
		if !c.loaded && c.firstLoad != nil {
			close(c.firstLoad)
			c.firstLoad = nil
		}
		return
	}

	c.value = photographers
	c.loadedAt = time.Now()
	if !c.loaded {
		c.loaded = true
		if c.firstLoad != nil {
			close(c.firstLoad)
			c.firstLoad = nil
		}
	}
}
