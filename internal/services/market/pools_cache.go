package market

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/metrics"
)

const (
	DefaultPoolCacheTTL     = 30 * time.Minute
	DefaultPoolFetchTimeout = time.Second
	DefaultMaxPoolsPerPair  = 3
	DefaultPoolCacheSize    = 50_000
)

// PoolFetcher reads pool state from a venue indexer.
type PoolFetcher interface {
	FetchPoolsForPair(ctx context.Context, takerToken, makerToken common.Address) ([]domain.Pool, error)
	// FetchTopPools returns nothing when the venue does not support warmup.
	FetchTopPools(ctx context.Context) ([]domain.Pool, error)
}

type PoolCacheEntry struct {
	Pools     []domain.Pool `json:"pools"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

func (e *PoolCacheEntry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

func (e *PoolCacheEntry) PoolIDs() []string {
	ids := make([]string, len(e.Pools))
	for i := range e.Pools {
		ids[i] = e.Pools[i].ID
	}
	return ids
}

type PoolsCacheOpts struct {
	TTL             time.Duration
	FetchTimeout    time.Duration
	MaxPoolsPerPair int
	Size            int
}

func (o PoolsCacheOpts) withDefaults() PoolsCacheOpts {
	if o.TTL <= 0 {
		o.TTL = DefaultPoolCacheTTL
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultPoolFetchTimeout
	}
	if o.MaxPoolsPerPair <= 0 {
		o.MaxPoolsPerPair = DefaultMaxPoolsPerPair
	}
	if o.Size <= 0 {
		o.Size = DefaultPoolCacheSize
	}
	return o
}

// PoolsCache keeps the pools of one venue per ordered token pair. Reads never
// block on the network: stale or missing pairs are refreshed in the
// background and concurrent refreshes of one pair share a single fetch.
type PoolsCache struct {
	source  domain.Source
	fetcher PoolFetcher
	opts    PoolsCacheOpts
	entries *BoundedLRUCache[string, *PoolCacheEntry]
	flights singleflight.Group
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPoolsCache(source domain.Source, fetcher PoolFetcher, opts PoolsCacheOpts) *PoolsCache {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &PoolsCache{
		source:  source,
		fetcher: fetcher,
		opts:    opts,
		entries: NewBoundedLRUCache[string, *PoolCacheEntry](opts.Size),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *PoolsCache) Source() domain.Source {
	return c.source
}

// CachedPoolIDsForPair returns the cached pool ids of a pair. With
// ignoreExpired a missing pair yields an empty list and ok is always true;
// otherwise a missing or expired pair yields ok == false.
func (c *PoolsCache) CachedPoolIDsForPair(takerToken, makerToken common.Address, ignoreExpired bool) ([]string, bool) {
	entry, found := c.entries.Get(domain.PairKey(takerToken, makerToken))
	if !found {
		if ignoreExpired {
			return []string{}, true
		}
		return nil, false
	}
	if !ignoreExpired && entry.IsExpired(c.now()) {
		return nil, false
	}
	return entry.PoolIDs(), true
}

func (c *PoolsCache) IsFresh(takerToken, makerToken common.Address) bool {
	_, ok := c.CachedPoolIDsForPair(takerToken, makerToken, false)
	return ok
}

// PoolIDsForSampling returns whatever is cached for the pair, stale or not,
// and schedules a refresh when the entry is not fresh.
func (c *PoolsCache) PoolIDsForSampling(takerToken, makerToken common.Address) []string {
	ids, _ := c.CachedPoolIDsForPair(takerToken, makerToken, true)
	if !c.IsFresh(takerToken, makerToken) {
		metrics.PoolCacheMisses.WithLabelValues(string(c.source)).Inc()
		c.refreshAsync(takerToken, makerToken)
	}
	return ids
}

func (c *PoolsCache) refreshAsync(takerToken, makerToken common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.FreshPoolsForPair(c.ctx, takerToken, makerToken)
	}()
}

// FreshPoolsForPair returns cached pools when the entry is fresh and fetches
// them otherwise. A fetch that fails or outlives the fetch timeout yields an
// empty list and leaves the cache untouched.
func (c *PoolsCache) FreshPoolsForPair(ctx context.Context, takerToken, makerToken common.Address) []domain.Pool {
	key := domain.PairKey(takerToken, makerToken)
	if entry, ok := c.entries.Get(key); ok && !entry.IsExpired(c.now()) {
		return entry.Pools
	}

	ch := c.flights.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(c.ctx, c.opts.FetchTimeout)
		defer cancel()

		pools, err := c.fetcher.FetchPoolsForPair(fetchCtx, takerToken, makerToken)
		if err != nil {
			metrics.PoolCacheRefreshes.WithLabelValues(string(c.source), "error").Inc()
			log.Debug().Err(err).Str("source", string(c.source)).Str("pair", key).Msg("[PoolsCache] pair fetch failed")
			return []domain.Pool{}, nil
		}
		pools = bestPools(pools, c.opts.MaxPoolsPerPair)
		c.store(key, pools)
		metrics.PoolCacheRefreshes.WithLabelValues(string(c.source), "ok").Inc()
		return pools, nil
	})

	select {
	case res := <-ch:
		return res.Val.([]domain.Pool)
	case <-ctx.Done():
		return []domain.Pool{}
	}
}

// LoadTopPools warms the cache with the venue's most active pools, storing
// each pool under every ordered pair it can serve.
func (c *PoolsCache) LoadTopPools(ctx context.Context) error {
	pools, err := c.fetcher.FetchTopPools(ctx)
	if err != nil {
		metrics.PoolCacheRefreshes.WithLabelValues(string(c.source), "error").Inc()
		return err
	}
	if len(pools) == 0 {
		return nil
	}

	grouped := make(map[string][]domain.Pool)
	for _, pool := range pools {
		if !pool.IsTradable() {
			continue
		}
		key := domain.PairKey(pool.TokenIn, pool.TokenOut)
		grouped[key] = append(grouped[key], pool)
	}
	for key, list := range grouped {
		c.store(key, bestPools(list, c.opts.MaxPoolsPerPair))
	}

	metrics.PoolCacheRefreshes.WithLabelValues(string(c.source), "ok").Inc()
	log.Info().
		Str("source", string(c.source)).
		Int("pools", len(pools)).
		Int("pairs", len(grouped)).
		Msg("[PoolsCache] top pools loaded")
	return nil
}

// Run refreshes the top pools immediately and then on every tick until the
// cache is closed.
func (c *PoolsCache) Run(interval time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if err := c.LoadTopPools(c.ctx); err != nil {
			log.Warn().Err(err).Str("source", string(c.source)).Msg("[PoolsCache] top pools warmup failed")
		}
		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				if err := c.LoadTopPools(c.ctx); err != nil {
					log.Warn().Err(err).Str("source", string(c.source)).Msg("[PoolsCache] top pools refresh failed")
				}
			}
		}
	}()
}

// Close stops background work and waits for in-flight fetches.
func (c *PoolsCache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

func (c *PoolsCache) Size() int {
	return c.entries.Size()
}

// Snapshot copies every cached entry, keyed by pair.
func (c *PoolsCache) Snapshot() map[string]PoolCacheEntry {
	out := make(map[string]PoolCacheEntry, c.entries.Size())
	c.entries.Range(func(key string, entry *PoolCacheEntry) bool {
		out[key] = *entry
		return true
	})
	return out
}

// Restore loads persisted entries. Expired entries are kept so that sampling
// can use them while the first refresh runs.
func (c *PoolsCache) Restore(entries map[string]PoolCacheEntry) {
	for key, entry := range entries {
		e := entry
		c.entries.Set(key, &e)
	}
	metrics.PoolCacheSize.WithLabelValues(string(c.source)).Set(float64(c.entries.Size()))
}

func (c *PoolsCache) store(key string, pools []domain.Pool) {
	c.entries.Set(key, &PoolCacheEntry{Pools: pools, ExpiresAt: c.now().Add(c.opts.TTL)})
	metrics.PoolCacheSize.WithLabelValues(string(c.source)).Set(float64(c.entries.Size()))
}

// bestPools keeps the tradable pools with the deepest output side.
func bestPools(pools []domain.Pool, max int) []domain.Pool {
	out := make([]domain.Pool, 0, len(pools))
	for _, p := range pools {
		if p.IsTradable() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BalanceOut.GreaterThan(out[j].BalanceOut)
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}
