package storefront

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/sheets"
)

// Status describes the primary catalog.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	// StatusStale means the primary fetch failed and the saved snapshot is shown.
	StatusStale Status = "stale"
	StatusError Status = "error"
)

var ErrNotLoaded = errors.New("catalog has not finished its first load")

type Fetcher interface {
	FetchTable(ctx context.Context, sheet string) (*sheets.Table, error)
}

type Snapshots interface {
	Save(ctx context.Context, products []catalog.Product, key string)
	Load(ctx context.Context, key string) ([]catalog.Product, bool)
}

// Controller owns the catalog state. Fetch tasks report back to it and it is the only
// writer; readers get clones.
type Controller struct {
	fetcher        Fetcher
	snapshots      Snapshots
	sheetNames     map[catalog.Source]string
	cacheKey       string
	primaryTimeout time.Duration

	mu      sync.RWMutex
	state   *catalog.State
	status  Status
	lastErr error
	version uint64

	loaded     chan struct{}
	loadedOnce sync.Once
	group      singleflight.Group

	// life bounds every refresh run; Close cancels it.
	life context.Context
	stop context.CancelFunc
}

func NewController(fetcher Fetcher, snapshots Snapshots, cfg config.SheetConfig, cacheKey string) *Controller {
	life, stop := context.WithCancel(context.Background())
	return &Controller{
		fetcher:   fetcher,
		snapshots: snapshots,
		sheetNames: map[catalog.Source]string{
			catalog.Primary:     cfg.Primary,
			catalog.Marketplace: cfg.Marketplace,
			catalog.Promotional: cfg.Promotional,
		},
		cacheKey:       cacheKey,
		primaryTimeout: cfg.Timeout,
		state:          catalog.NewState(),
		status:         StatusLoading,
		loaded:         make(chan struct{}),
		life:           life,
		stop:           stop,
	}
}

// Close cancels any refresh still in flight. Later refreshes fail immediately.
func (c *Controller) Close() error {
	c.stop()
	return nil
}

type result struct {
	source   catalog.Source
	products []catalog.Product
	err      error
}

// Refresh fetches every source concurrently and applies each result as it arrives.
// Concurrent calls share one run. The run keeps ctx's values but not its cancellation,
// so a caller that gives up stops waiting without aborting the fetches other callers
// share. The returned error is the primary source's, or ctx's when the caller leaves first.
func (c *Controller) Refresh(ctx context.Context) error {
	ch := c.group.DoChan("refresh", func() (any, error) {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		defer context.AfterFunc(c.life, cancel)()
		return nil, c.refresh(runCtx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			slog.DebugContext(ctx, "joined in-flight refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) refresh(ctx context.Context) error {
	start := time.Now()
	results := make(chan result, len(catalog.Sources))
	for _, src := range catalog.Sources {
		go func() {
			results <- c.load(ctx, src)
		}()
	}

	var primaryErr error
	for range catalog.Sources {
		res := <-results
		if err := c.apply(ctx, res); err != nil {
			primaryErr = err
		}
	}
	c.loadedOnce.Do(func() { close(c.loaded) })

	slog.InfoContext(ctx, "catalog refreshed", "status", c.Status(), "duration", time.Since(start))
	return primaryErr
}

func (c *Controller) load(ctx context.Context, src catalog.Source) result {
	// Only the primary sheet is bounded; the others live as long as ctx.
	if src == catalog.Primary && c.primaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.primaryTimeout)
		defer cancel()
	}

	table, err := c.fetcher.FetchTable(ctx, c.sheetNames[src])
	if err != nil {
		return result{source: src, err: err}
	}
	return result{source: src, products: slices.Collect(catalog.Normalize(table.All(), src))}
}

// apply folds one task result into the state. It returns an error only for the primary source.
func (c *Controller) apply(ctx context.Context, res result) error {
	if res.err != nil {
		if res.source != catalog.Primary {
			slog.WarnContext(ctx, "failed to load source", "source", res.source.String(), "error", res.err)
			return nil
		}
		return c.fallback(ctx, res.err)
	}

	if res.source == catalog.Primary {
		c.snapshots.Save(ctx, res.products, c.cacheKey)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SetSource(res.source, res.products)
	if res.source == catalog.Primary {
		c.status = StatusReady
		c.lastErr = nil
	}
	c.version++
	slog.DebugContext(ctx, "source loaded", "source", res.source.String(), "products", len(res.products))
	return nil
}

func (c *Controller) fallback(ctx context.Context, err error) error {
	slog.ErrorContext(ctx, "failed to load primary catalog", "error", err, "timeout", errors.Is(err, sheets.ErrTimeout))

	c.mu.Lock()
	c.status = StatusError
	c.lastErr = err
	c.version++
	c.mu.Unlock()

	cached, ok := c.snapshots.Load(ctx, c.cacheKey)
	if !ok {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SetSource(catalog.Primary, cached)
	c.status = StatusStale
	c.version++
	slog.InfoContext(ctx, "serving saved catalog snapshot", "products", len(cached))
	return err
}

// Run refreshes immediately and then every interval until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.WarnContext(ctx, "initial refresh failed", "error", err)
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				slog.WarnContext(ctx, "periodic refresh failed", "error", err)
			}
		}
	}
}

// State returns a copy of the catalog safe to filter without locking.
func (c *Controller) State() *catalog.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// LastError is the most recent primary failure, or nil after a success.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Version increases every time a result is applied.
func (c *Controller) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Ready reports whether the first refresh has completed, whatever its outcome.
func (c *Controller) Ready(context.Context) error {
	select {
	case <-c.loaded:
		return nil
	default:
		return ErrNotLoaded
	}
}
