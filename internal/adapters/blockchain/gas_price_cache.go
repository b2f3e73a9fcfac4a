package blockchain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/metrics"
)

const GAS_PRICE_CACHE_SERVICE = "cache-gas-price-svc"

var gwei = decimal.New(1, 9)

type GasPriceFetcher interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

type CachedGasPrice struct {
	Wei       *big.Int
	UpdatedAt time.Time
}

type GasPriceCacheService struct {
	container.BaseDIInstance

	mu       sync.RWMutex
	current  *CachedGasPrice
	fetcher  GasPriceFetcher
	ttl      time.Duration
	timeout  time.Duration
	fallback *big.Int
	now      func() time.Time
}

// NewGasPriceCache builds a cache outside of the container.
func NewGasPriceCache(fetcher GasPriceFetcher, ttl time.Duration, fallbackGwei decimal.Decimal) *GasPriceCacheService {
	return &GasPriceCacheService{
		fetcher:  fetcher,
		ttl:      ttl,
		fallback: fallbackGwei.Mul(gwei).BigInt(),
		now:      time.Now,
	}
}

func (svc *GasPriceCacheService) ID() string {
	return GAS_PRICE_CACHE_SERVICE
}

func (svc *GasPriceCacheService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.fetcher = c.Instance(CHAIN_CLIENT_SERVICE).(*ChainClientService)
	svc.ttl = rpcConfig.GasPriceTTL
	svc.timeout = rpcConfig.Timeout
	svc.fallback = rpcConfig.FallbackGasPriceGwei.Mul(gwei).BigInt()
	svc.now = time.Now
	return nil
}

func (svc *GasPriceCacheService) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), svc.fetchTimeout())
	defer cancel()
	if err := svc.refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("[GasPriceCache] failed to fetch initial gas price, will retry on first request")
	}
	return nil
}

func (svc *GasPriceCacheService) Stop() error {
	return nil
}

// GasPrice returns the cached price while it is fresh. After the TTL it asks
// the node again and on failure serves the last known price, or the fallback
// when nothing was ever fetched.
func (svc *GasPriceCacheService) GasPrice(ctx context.Context) *big.Int {
	svc.mu.RLock()
	cached := svc.current
	svc.mu.RUnlock()

	if cached != nil && svc.now().Sub(cached.UpdatedAt) < svc.ttl {
		return new(big.Int).Set(cached.Wei)
	}

	ctx, cancel := context.WithTimeout(ctx, svc.fetchTimeout())
	defer cancel()
	if err := svc.refresh(ctx); err != nil {
		if cached != nil {
			log.Debug().Err(err).Msg("[GasPriceCache] serving stale gas price")
			return new(big.Int).Set(cached.Wei)
		}
		log.Warn().Err(err).Str("fallback", svc.fallback.String()).Msg("[GasPriceCache] serving fallback gas price")
		return new(big.Int).Set(svc.fallback)
	}

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return new(big.Int).Set(svc.current.Wei)
}

func (svc *GasPriceCacheService) refresh(ctx context.Context) error {
	price, err := svc.fetcher.SuggestGasPrice(ctx)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	svc.current = &CachedGasPrice{Wei: price, UpdatedAt: svc.now()}
	svc.mu.Unlock()

	inGwei, _ := decimal.NewFromBigInt(price, 0).Div(gwei).Float64()
	metrics.GasPriceGwei.Set(inGwei)
	return nil
}

func (svc *GasPriceCacheService) fetchTimeout() time.Duration {
	if svc.timeout > 0 {
		return svc.timeout
	}
	return 5 * time.Second
}
