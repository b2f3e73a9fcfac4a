package market

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/itsib/hyper-dex-swap-node/internal/adapters/persistence"
	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

const (
	MARKET_SERVICE = "market-service"

	statsInterval = 5 * time.Minute
)

// SnapshotStore persists pool cache entries per source.
type SnapshotStore interface {
	SaveSnapshot(source domain.Source, entries map[string]persistence.StoredPoolEntry) error
	LoadSnapshot(source domain.Source) (map[string]persistence.StoredPoolEntry, error)
	Close() error
}

// Service owns the venue registry and keeps its pool caches warm and
// persisted.
type Service struct {
	container.BaseDIInstance

	conf        *config.MarketConfig
	storageConf *config.StorageConfig
	registry    *Registry
	storage     SnapshotStore

	done chan struct{}
	wg   sync.WaitGroup
}

// NewService builds the service outside of the container. storage may be nil.
func NewService(conf *config.MarketConfig, registry *Registry, storage SnapshotStore, flush time.Duration) *Service {
	return &Service{
		conf:        conf,
		storageConf: &config.StorageConfig{Enabled: storage != nil, FlushInterval: flush},
		registry:    registry,
		storage:     storage,
		done:        make(chan struct{}),
	}
}

func (svc *Service) ID() string {
	return MARKET_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.conf = c.GetConfig(config.MARKET_CONFIG_KEY).(*config.MarketConfig)
	svc.storageConf = c.GetConfig(config.STORAGE_CONFIG_KEY).(*config.StorageConfig)

	registry, err := NewRegistry(svc.conf.Chain, RegistryOpts{
		PoolsCache: PoolsCacheOpts{
			TTL:          svc.conf.PoolCacheTTL,
			FetchTimeout: svc.conf.PoolFetchTimeout,
			Size:         svc.conf.PoolCacheSize,
		},
		HTTPClient: &http.Client{},
	})
	if err != nil {
		return err
	}
	svc.registry = registry

	if svc.storageConf.Enabled {
		storage, err := persistence.NewStorage(svc.storageConf.Path)
		if err != nil {
			return err
		}
		svc.storage = storage
	}
	svc.done = make(chan struct{})
	return nil
}

func (svc *Service) Start() error {
	if svc.storage != nil {
		svc.RestoreSnapshots()
	}

	for _, cache := range svc.registry.PoolsCaches() {
		cache.Run(svc.conf.PoolRefreshInterval)
	}

	svc.wg.Add(1)
	go svc.logStats()

	if svc.storage != nil && svc.storageConf.FlushInterval > 0 {
		svc.wg.Add(1)
		go svc.processPersistence()
	}
	return nil
}

func (svc *Service) Stop() error {
	close(svc.done)
	svc.wg.Wait()
	svc.registry.Close()

	if svc.storage != nil {
		log.Info().Msg("[MarketService] persisting pool caches before shutdown")
		svc.PersistSnapshots()
		if err := svc.storage.Close(); err != nil {
			log.Error().Err(err).Msg("[MarketService] failed to close storage")
		}
	}
	return nil
}

func (svc *Service) Registry() *Registry {
	return svc.registry
}

// RestoreSnapshots loads the persisted entries into every pools cache.
func (svc *Service) RestoreSnapshots() {
	for _, cache := range svc.registry.PoolsCaches() {
		stored, err := svc.storage.LoadSnapshot(cache.Source())
		if err != nil {
			log.Warn().Err(err).Str("source", string(cache.Source())).Msg("[MarketService] no pool snapshot restored")
			continue
		}
		entries := make(map[string]PoolCacheEntry, len(stored))
		for pair, e := range stored {
			entries[pair] = PoolCacheEntry{Pools: e.Pools, ExpiresAt: e.ExpiresAt}
		}
		cache.Restore(entries)
	}
}

// PersistSnapshots writes the current content of every pools cache.
func (svc *Service) PersistSnapshots() {
	for _, cache := range svc.registry.PoolsCaches() {
		snapshot := cache.Snapshot()
		entries := make(map[string]persistence.StoredPoolEntry, len(snapshot))
		for pair, e := range snapshot {
			entries[pair] = persistence.StoredPoolEntry{Pools: e.Pools, ExpiresAt: e.ExpiresAt}
		}
		if err := svc.storage.SaveSnapshot(cache.Source(), entries); err != nil {
			log.Error().Err(err).Str("source", string(cache.Source())).Msg("[MarketService] failed to persist pool cache")
		}
	}
}

func (svc *Service) processPersistence() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.storageConf.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-svc.done:
			return
		case <-ticker.C:
			svc.PersistSnapshots()
		}
	}
}

func (svc *Service) logStats() {
	defer svc.wg.Done()
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-svc.done:
			return
		case <-ticker.C:
			for _, cache := range svc.registry.PoolsCaches() {
				log.Info().
					Str("source", string(cache.Source())).
					Int("pairs", cache.Size()).
					Msg("[MarketService] pool cache stats")
			}
		}
	}
}
