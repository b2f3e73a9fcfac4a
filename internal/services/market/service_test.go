package market

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/itsib/hyper-dex-swap-node/internal/adapters/persistence"
	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

type memoryStore struct {
	mu      sync.Mutex
	sources map[domain.Source]map[string]persistence.StoredPoolEntry
	saves   int
	closed  bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sources: make(map[domain.Source]map[string]persistence.StoredPoolEntry)}
}

func (m *memoryStore) SaveSnapshot(source domain.Source, entries map[string]persistence.StoredPoolEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if len(entries) > 0 {
		m.sources[source] = entries
	}
	return nil
}

func (m *memoryStore) LoadSnapshot(source domain.Source) (map[string]persistence.StoredPoolEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.sources[source]
	if !ok {
		return nil, errors.New("bucket not found")
	}
	return entries, nil
}

func (m *memoryStore) Close() error {
	m.closed = true
	return nil
}

func TestServiceRestoresAndPersistsSnapshots(t *testing.T) {
	store := newMemoryStore()
	store.sources[domain.SourceBalancerV2] = map[string]persistence.StoredPoolEntry{
		domain.PairKey(weth, dai): {
			Pools: []domain.Pool{{
				ID:         "0x5c6ee304399dbdb9c8ef030ab642b10820db8f56000200000000000000000014",
				TokenIn:    weth,
				TokenOut:   dai,
				BalanceIn:  decimal.NewFromInt(1),
				BalanceOut: decimal.NewFromInt(1),
			}},
			ExpiresAt: time.Now().Add(-time.Hour),
		},
	}

	r := newTestRegistry(t)
	svc := NewService(&config.MarketConfig{PoolRefreshInterval: time.Hour}, r, store, 10*time.Millisecond)
	require.NoError(t, svc.Start())

	cache, ok := r.PoolsCache(domain.SourceBalancerV2)
	require.True(t, ok)
	ids, ok := cache.CachedPoolIDsForPair(weth, dai, true)
	require.True(t, ok)
	require.Len(t, ids, 1)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.saves >= len(r.PoolsCaches())
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Stop())
	require.True(t, store.closed)
	require.Contains(t, store.sources[domain.SourceBalancerV2], domain.PairKey(weth, dai))
}

func TestServiceWithoutStorage(t *testing.T) {
	r := newTestRegistry(t)
	svc := NewService(&config.MarketConfig{PoolRefreshInterval: time.Hour}, r, nil, 0)
	require.NoError(t, svc.Start())
	require.Same(t, r, svc.Registry())
	require.NoError(t, svc.Stop())
}
