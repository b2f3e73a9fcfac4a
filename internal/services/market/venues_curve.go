package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

// curveVenue samples stable-swap pools through their quote selectors.
type curveVenue struct {
	baseVenue
	pools []domain.CurveInfo
}

func newCurveVenue(cfg config.VenueConfig, _ venueEnv) (Venue, error) {
	v := &curveVenue{baseVenue: baseVenue{source: domain.Source(cfg.Source)}}
	for _, p := range cfg.Pools {
		sell, err := parseSelector(p.SellQuoteSelector)
		if err != nil {
			return nil, fmt.Errorf("%s pool %s: %w", cfg.Source, p.Address, err)
		}
		buy, err := parseSelector(p.BuyQuoteSelector)
		if err != nil {
			return nil, fmt.Errorf("%s pool %s: %w", cfg.Source, p.Address, err)
		}
		v.pools = append(v.pools, domain.CurveInfo{
			PoolAddress:               common.HexToAddress(p.Address),
			SellQuoteFunctionSelector: sell,
			BuyQuoteFunctionSelector:  buy,
			Tokens:                    config.Addresses(p.Tokens),
			GasSchedule:               p.GasSchedule,
		})
	}
	return v, nil
}

// poolsForPair returns the pools holding both tokens.
func (v *curveVenue) poolsForPair(taker, maker common.Address) []domain.CurveFillData {
	var out []domain.CurveFillData
	for _, pool := range v.pools {
		from := tokenIndex(pool.Tokens, taker)
		to := tokenIndex(pool.Tokens, maker)
		if from < 0 || to < 0 || from == to {
			continue
		}
		out = append(out, domain.CurveFillData{Pool: pool, FromTokenIdx: from, ToTokenIdx: to})
	}
	return out
}

func (v *curveVenue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	candidates := v.poolsForPair(q.TakerToken, q.MakerToken)
	ops := make([]*sampler.SourceOperation, 0, len(candidates))
	for i := range candidates {
		data := &candidates[i]
		arg := sampler.CurvePoolArg{
			PoolAddress:               data.Pool.PoolAddress,
			SellQuoteFunctionSelector: data.Pool.SellQuoteFunctionSelector,
			BuyQuoteFunctionSelector:  data.Pool.BuyQuoteFunctionSelector,
		}
		ops = append(ops, newOperation(v, q, data, "Curve",
			arg, big.NewInt(int64(data.FromTokenIdx)), big.NewInt(int64(data.ToTokenIdx)), bigAmounts(q)))
	}
	return ops
}

func (v *curveVenue) GasEstimate(data domain.FillData) uint64 {
	if d, ok := data.(*domain.CurveFillData); ok {
		return d.Pool.GasSchedule
	}
	return 0
}

// poolListVenue serves venues quoted per configured pool with a
// (pool, takerToken, makerToken, amounts) sampler method: Shell, Component
// and mStable.
type poolListVenue struct {
	baseVenue
	method string
	gas    uint64
	pools  []poolTokens
}

type poolTokens struct {
	address common.Address
	tokens  []common.Address
	gas     uint64
}

func newPoolListVenue(method string) venueFactory {
	return func(cfg config.VenueConfig, _ venueEnv) (Venue, error) {
		source := domain.Source(cfg.Source)
		v := &poolListVenue{
			baseVenue: baseVenue{source: source},
			method:    method,
			gas:       fixedSourceGas[source],
		}
		for _, p := range cfg.Pools {
			v.pools = append(v.pools, poolTokens{
				address: common.HexToAddress(p.Address),
				tokens:  config.Addresses(p.Tokens),
				gas:     p.GasSchedule,
			})
		}
		return v, nil
	}
}

func (v *poolListVenue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	var ops []*sampler.SourceOperation
	for _, pool := range v.pools {
		if tokenIndex(pool.tokens, q.TakerToken) < 0 || tokenIndex(pool.tokens, q.MakerToken) < 0 {
			continue
		}
		data := &domain.PoolFillData{PoolAddress: pool.address}
		ops = append(ops, newOperation(v, q, data, v.method, pool.address, q.TakerToken, q.MakerToken, bigAmounts(q)))
	}
	return ops
}

func (v *poolListVenue) GasEstimate(data domain.FillData) uint64 {
	if d, ok := data.(*domain.PoolFillData); ok {
		for _, pool := range v.pools {
			if pool.address == d.PoolAddress && pool.gas > 0 {
				return pool.gas
			}
		}
	}
	return v.gas
}
