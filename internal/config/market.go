package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type MarketConfig struct {
	// ChainConfigPath points at a chain description JSON. Empty selects the
	// embedded mainnet description.
	ChainConfigPath string

	// PoolCacheTTL is how long a fetched pool list for a pair stays fresh.
	PoolCacheTTL time.Duration
	// PoolFetchTimeout bounds one subgraph request. A timed out fetch yields
	// no pools.
	PoolFetchTimeout time.Duration
	// PoolRefreshInterval is the period of the top pools warmup.
	PoolRefreshInterval time.Duration
	// PoolCacheSize bounds the number of pairs cached per source.
	PoolCacheSize int

	Chain *ChainConfig
}

func (c *MarketConfig) Key() string {
	return MARKET_CONFIG_KEY
}

func (c *MarketConfig) Load() error {
	c.ChainConfigPath = common.GetEnvOrDefault("CHAIN_CONFIG_PATH", "")
	c.PoolCacheTTL = time.Duration(common.GetEnvOrDefaultInt("POOL_CACHE_TTL", 1800)) * time.Second
	c.PoolFetchTimeout = time.Duration(common.GetEnvOrDefaultInt("POOL_FETCH_TIMEOUT_MS", 1000)) * time.Millisecond
	c.PoolRefreshInterval = time.Duration(common.GetEnvOrDefaultInt("POOL_REFRESH_INTERVAL", 43200)) * time.Second
	c.PoolCacheSize = common.GetEnvOrDefaultInt("POOL_CACHE_SIZE", 50_000)

	chain, err := LoadChainConfig(c.ChainConfigPath)
	if err != nil {
		return err
	}
	c.Chain = chain
	return c.Validate()
}

func (c *MarketConfig) Validate() error {
	if c.PoolCacheTTL <= 0 || c.PoolFetchTimeout <= 0 || c.PoolRefreshInterval <= 0 || c.PoolCacheSize <= 0 {
		return errors.New("invalid market config")
	}
	if c.Chain == nil {
		return errors.New("invalid market config: missing chain description")
	}
	return c.Chain.Validate()
}
