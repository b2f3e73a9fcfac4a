package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

const defaultLiquidityProviderGas = 100_000

type liquidityProviderPool struct {
	address       common.Address
	tokens        []common.Address
	gasCost       uint64
	gasCostNative uint64
}

type liquidityProviderVenue struct {
	baseVenue
	wrappedNative common.Address
	pools         []liquidityProviderPool
}

func newLiquidityProviderVenue(cfg config.VenueConfig, env venueEnv) (Venue, error) {
	v := &liquidityProviderVenue{
		baseVenue:     baseVenue{source: domain.Source(cfg.Source)},
		wrappedNative: env.chain.WrappedNative(),
	}
	for _, p := range cfg.Pools {
		v.pools = append(v.pools, liquidityProviderPool{
			address:       common.HexToAddress(p.Address),
			tokens:        config.Addresses(p.Tokens),
			gasCost:       p.GasCost,
			gasCostNative: p.GasCostNative,
		})
	}
	return v, nil
}

func (v *liquidityProviderVenue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	native := q.TakerToken == v.wrappedNative || q.MakerToken == v.wrappedNative
	var ops []*sampler.SourceOperation
	for _, pool := range v.pools {
		if tokenIndex(pool.tokens, q.TakerToken) < 0 || tokenIndex(pool.tokens, q.MakerToken) < 0 {
			continue
		}
		gas := pool.gasCost
		if native && pool.gasCostNative > 0 {
			gas = pool.gasCostNative
		}
		data := &domain.LiquidityProviderFillData{PoolAddress: pool.address, GasCost: gas}
		ops = append(ops, newOperation(v, q, data, "LiquidityProvider",
			pool.address, q.TakerToken, q.MakerToken, bigAmounts(q)))
	}
	return ops
}

func (v *liquidityProviderVenue) GasEstimate(data domain.FillData) uint64 {
	if d, ok := data.(*domain.LiquidityProviderFillData); ok && d.GasCost > 0 {
		return d.GasCost
	}
	return defaultLiquidityProviderGas
}

// mooniswapVenue queries every registry; the sampler picks the pool. The
// registries trade native ether, addressed as the zero address.
type mooniswapVenue struct {
	baseVenue
	wrappedNative common.Address
	registries    []common.Address
}

func newMooniswapVenue(cfg config.VenueConfig, env venueEnv) (Venue, error) {
	return &mooniswapVenue{
		baseVenue:     baseVenue{source: domain.Source(cfg.Source)},
		wrappedNative: env.chain.WrappedNative(),
		registries:    config.Addresses(cfg.Addresses),
	}, nil
}

func (v *mooniswapVenue) token(t common.Address) common.Address {
	if t == v.wrappedNative {
		return common.Address{}
	}
	return t
}

func (v *mooniswapVenue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	ops := make([]*sampler.SourceOperation, 0, len(v.registries))
	for _, registry := range v.registries {
		data := &domain.PoolFillData{}
		ops = append(ops, newOperation(v, q, data, "Mooniswap",
			registry, v.token(q.TakerToken), v.token(q.MakerToken), bigAmounts(q)))
	}
	return ops
}

func (v *mooniswapVenue) DecodeResult(call SampleCall, raw []byte) ([]*uint256.Int, error) {
	values, err := sampler.Unpack(call.Method, raw)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("%w: %s returned %d values", sampler.ErrDecode, call.Method, len(values))
	}
	pool, err := sampler.Convert[common.Address](values[0])
	if err != nil {
		return nil, err
	}
	if data, ok := call.FillData.(*domain.PoolFillData); ok {
		data.PoolAddress = pool
	}
	return sampler.ToAmounts(values[1])
}

func (v *mooniswapVenue) GasEstimate(domain.FillData) uint64 {
	return fixedSourceGas[domain.SourceMooniswap]
}

// balancerVenue samples the pools the venue's pools cache knows for the
// pair. It serves both Balancer and Cream.
type balancerVenue struct {
	baseVenue
	cache *PoolsCache
}

func newBalancerVenue(cfg config.VenueConfig, env venueEnv) (Venue, error) {
	source := domain.Source(cfg.Source)
	client := NewSubgraphClient(cfg.SubgraphURL, env.httpClient)
	opts := env.cacheOpts
	if cfg.MaxPoolsPerPair > 0 {
		opts.MaxPoolsPerPair = cfg.MaxPoolsPerPair
	}
	return &balancerVenue{
		baseVenue: baseVenue{source: source},
		cache:     NewPoolsCache(source, NewBalancerFetcher(client, cfg.TopPools), opts),
	}, nil
}

func (v *balancerVenue) PoolsCache() *PoolsCache {
	return v.cache
}

func (v *balancerVenue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	ids := v.cache.PoolIDsForSampling(q.TakerToken, q.MakerToken)
	ops := make([]*sampler.SourceOperation, 0, len(ids))
	for _, id := range ids {
		pool := common.HexToAddress(id)
		data := &domain.PoolFillData{PoolAddress: pool}
		ops = append(ops, newOperation(v, q, data, "Balancer", pool, q.TakerToken, q.MakerToken, bigAmounts(q)))
	}
	return ops
}

func (v *balancerVenue) GasEstimate(domain.FillData) uint64 {
	return fixedSourceGas[domain.SourceBalancer]
}

type balancerV2Venue struct {
	baseVenue
	vault common.Address
	cache *PoolsCache
}

func newBalancerV2Venue(cfg config.VenueConfig, env venueEnv) (Venue, error) {
	source := domain.Source(cfg.Source)
	client := NewSubgraphClient(cfg.SubgraphURL, env.httpClient)
	opts := env.cacheOpts
	if cfg.MaxPoolsPerPair > 0 {
		opts.MaxPoolsPerPair = cfg.MaxPoolsPerPair
	}
	v := &balancerV2Venue{
		baseVenue: baseVenue{source: source},
		cache:     NewPoolsCache(source, NewBalancerV2Fetcher(client, cfg.TopPools), opts),
	}
	if cfg.Vault != "" {
		v.vault = common.HexToAddress(cfg.Vault)
	}
	return v, nil
}

func (v *balancerV2Venue) PoolsCache() *PoolsCache {
	return v.cache
}

func (v *balancerV2Venue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	if isZero(v.vault) {
		return nil
	}
	ids := v.cache.PoolIDsForSampling(q.TakerToken, q.MakerToken)
	ops := make([]*sampler.SourceOperation, 0, len(ids))
	for _, id := range ids {
		poolID := common.HexToHash(id)
		data := &domain.BalancerV2FillData{PoolID: poolID, Vault: v.vault}
		arg := sampler.BalancerV2PoolArg{PoolId: poolID, Vault: v.vault}
		ops = append(ops, newOperation(v, q, data, "BalancerV2", arg, q.TakerToken, q.MakerToken, bigAmounts(q)))
	}
	return ops
}

func (v *balancerV2Venue) GasEstimate(domain.FillData) uint64 {
	return fixedSourceGas[domain.SourceBalancerV2]
}
