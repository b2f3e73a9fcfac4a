package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

const (
	dodoSellBaseGas  = 180_000
	dodoSellQuoteGas = 300_000
	dodoV2Gas        = 100_000

	defaultDodoV2PoolsQueried = 3
)

// decodeDodo reads (sellBase, pool, amounts) into a DodoFillData.
func decodeDodo(call SampleCall, raw []byte) ([]*uint256.Int, error) {
	values, err := sampler.Unpack(call.Method, raw)
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("%w: %s returned %d values", sampler.ErrDecode, call.Method, len(values))
	}
	sellBase, err := sampler.Convert[bool](values[0])
	if err != nil {
		return nil, err
	}
	pool, err := sampler.Convert[common.Address](values[1])
	if err != nil {
		return nil, err
	}
	if data, ok := call.FillData.(*domain.DodoFillData); ok {
		data.IsSellBase = sellBase
		data.PoolAddress = pool
	}
	return sampler.ToAmounts(values[2])
}

type dodoVenue struct {
	baseVenue
	registry common.Address
	helper   common.Address
}

func newDodoVenue(cfg config.VenueConfig, _ venueEnv) (Venue, error) {
	v := &dodoVenue{baseVenue: baseVenue{source: domain.Source(cfg.Source)}}
	if cfg.Registry != "" {
		v.registry = common.HexToAddress(cfg.Registry)
	}
	if cfg.Helper != "" {
		v.helper = common.HexToAddress(cfg.Helper)
	}
	return v, nil
}

func (v *dodoVenue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	if isZero(v.registry) || isZero(v.helper) {
		return nil
	}
	data := &domain.DodoFillData{Helper: v.helper}
	opts := sampler.DodoOptsArg{Registry: v.registry, Helper: v.helper}
	return []*sampler.SourceOperation{
		newOperation(v, q, data, "DODO", opts, q.TakerToken, q.MakerToken, bigAmounts(q)),
	}
}

func (v *dodoVenue) DecodeResult(call SampleCall, raw []byte) ([]*uint256.Int, error) {
	return decodeDodo(call, raw)
}

func (v *dodoVenue) GasEstimate(data domain.FillData) uint64 {
	if d, ok := data.(*domain.DodoFillData); ok && d.IsSellBase {
		return dodoSellBaseGas
	}
	return dodoSellQuoteGas
}

// dodoV2Venue asks every factory for its first pools of the pair, one call
// per (factory, offset).
type dodoV2Venue struct {
	baseVenue
	factories    []common.Address
	poolsQueried int
}

func newDodoV2Venue(cfg config.VenueConfig, _ venueEnv) (Venue, error) {
	n := cfg.MaxPoolsQueried
	if n <= 0 {
		n = defaultDodoV2PoolsQueried
	}
	return &dodoV2Venue{
		baseVenue:    baseVenue{source: domain.Source(cfg.Source)},
		factories:    config.Addresses(cfg.Addresses),
		poolsQueried: n,
	}, nil
}

func (v *dodoV2Venue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	ops := make([]*sampler.SourceOperation, 0, len(v.factories)*v.poolsQueried)
	for _, factory := range v.factories {
		for offset := 0; offset < v.poolsQueried; offset++ {
			data := &domain.DodoFillData{}
			ops = append(ops, newOperation(v, q, data, "DODOV2",
				factory, big.NewInt(int64(offset)), q.TakerToken, q.MakerToken, bigAmounts(q)))
		}
	}
	return ops
}

func (v *dodoV2Venue) DecodeResult(call SampleCall, raw []byte) ([]*uint256.Int, error) {
	return decodeDodo(call, raw)
}

func (v *dodoV2Venue) GasEstimate(domain.FillData) uint64 {
	return dodoV2Gas
}
