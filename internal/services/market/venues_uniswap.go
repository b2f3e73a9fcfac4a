package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

const (
	uniswapV2BaseGas = 90_000
	uniswapV2HopGas  = 60_000
	uniswapV3BaseGas = 100_000
	uniswapV3HopGas  = 32_000
	kyberDmmBaseGas  = 95_000
	kyberDmmHopGas   = 65_000
)

// uniswapV2Venue serves Uniswap V2 and its forks. A venue may override the
// chain intermediate tokens with its own list.
type uniswapV2Venue struct {
	baseVenue
	router        common.Address
	intermediates []common.Address
	ownBridges    bool
}

func newUniswapV2Venue(cfg config.VenueConfig, _ venueEnv) (Venue, error) {
	v := &uniswapV2Venue{
		baseVenue: baseVenue{source: domain.Source(cfg.Source)},
	}
	if cfg.Router != "" {
		v.router = common.HexToAddress(cfg.Router)
	}
	if len(cfg.Intermediates) > 0 {
		v.intermediates = config.Addresses(cfg.Intermediates)
		v.ownBridges = true
	}
	return v, nil
}

func (v *uniswapV2Venue) bridges(q SampleQuery) []common.Address {
	if v.ownBridges {
		return v.intermediates
	}
	return q.Intermediates
}

func (v *uniswapV2Venue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	if isZero(v.router) {
		return nil
	}
	paths := routes(q.TakerToken, q.MakerToken, v.bridges(q))
	ops := make([]*sampler.SourceOperation, 0, len(paths))
	for _, path := range paths {
		data := &domain.UniswapV2FillData{Router: v.router, TokenAddressPath: path}
		ops = append(ops, newOperation(v, q, data, "UniswapV2", v.router, path, bigAmounts(q)))
	}
	return ops
}

func (v *uniswapV2Venue) GasEstimate(data domain.FillData) uint64 {
	gas := uint64(uniswapV2BaseGas)
	if d, ok := data.(*domain.UniswapV2FillData); ok && len(d.TokenAddressPath) > 2 {
		gas += uint64(len(d.TokenAddressPath)-2) * uniswapV2HopGas
	}
	return gas
}

// uniswapV3Venue samples through the quoter, which reports the encoded path
// it used for every probe amount.
type uniswapV3Venue struct {
	baseVenue
	quoter common.Address
	router common.Address
}

func newUniswapV3Venue(cfg config.VenueConfig, _ venueEnv) (Venue, error) {
	v := &uniswapV3Venue{baseVenue: baseVenue{source: domain.Source(cfg.Source)}}
	if cfg.Quoter != "" {
		v.quoter = common.HexToAddress(cfg.Quoter)
	}
	if cfg.Router != "" {
		v.router = common.HexToAddress(cfg.Router)
	}
	return v, nil
}

func (v *uniswapV3Venue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	if isZero(v.quoter) || isZero(v.router) {
		return nil
	}
	paths := routes(q.TakerToken, q.MakerToken, q.Intermediates)
	ops := make([]*sampler.SourceOperation, 0, len(paths))
	for _, path := range paths {
		data := &domain.UniswapV3FillData{Router: v.router, Quoter: v.quoter, TokenAddressPath: path}
		ops = append(ops, newOperation(v, q, data, "UniswapV3", v.quoter, path, bigAmounts(q)))
	}
	return ops
}

func (v *uniswapV3Venue) DecodeResult(call SampleCall, raw []byte) ([]*uint256.Int, error) {
	values, err := sampler.Unpack(call.Method, raw)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("%w: %s returned %d values", sampler.ErrDecode, call.Method, len(values))
	}
	paths, err := sampler.Convert[[][]byte](values[0])
	if err != nil {
		return nil, err
	}
	amounts, err := sampler.ToAmounts(values[1])
	if err != nil {
		return nil, err
	}
	if len(paths) != len(amounts) {
		return nil, fmt.Errorf("%w: %d paths for %d amounts", sampler.ErrDecode, len(paths), len(amounts))
	}

	data, ok := call.FillData.(*domain.UniswapV3FillData)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected fill data %T", sampler.ErrDecode, call.FillData)
	}
	pathAmounts := make([]domain.UniswapV3PathAmount, len(paths))
	for i := range paths {
		input := new(uint256.Int)
		if i < len(call.Amounts) && call.Amounts[i] != nil {
			input.Set(call.Amounts[i])
		}
		pathAmounts[i] = domain.UniswapV3PathAmount{UniswapPath: paths[i], InputAmount: input}
	}
	data.PathAmounts = pathAmounts
	return amounts, nil
}

// BuildSettlementParams picks the first recorded path whose probe covers the
// fill, falling back to the largest probe.
func (v *uniswapV3Venue) BuildSettlementParams(fill *domain.CollapsedFill) domain.FillData {
	data, ok := fill.FillData.(*domain.UniswapV3FillData)
	if !ok || len(data.PathAmounts) == 0 {
		return fill.FillData
	}
	chosen := data.PathAmounts[len(data.PathAmounts)-1]
	for _, pa := range data.PathAmounts {
		if pa.InputAmount != nil && fill.Input != nil && !pa.InputAmount.Lt(fill.Input) {
			chosen = pa
			break
		}
	}
	return &domain.UniswapV3FillData{
		Router:           data.Router,
		Quoter:           data.Quoter,
		TokenAddressPath: data.TokenAddressPath,
		UniswapPath:      chosen.UniswapPath,
	}
}

func (v *uniswapV3Venue) GasEstimate(data domain.FillData) uint64 {
	gas := uint64(uniswapV3BaseGas)
	if d, ok := data.(*domain.UniswapV3FillData); ok && len(d.TokenAddressPath) > 2 {
		gas += uint64(len(d.TokenAddressPath)-2) * uniswapV3HopGas
	}
	return gas
}

// kyberDmmVenue samples the direct pair only; the sampler reports the pools
// it routed through.
type kyberDmmVenue struct {
	baseVenue
	router common.Address
}

func newKyberDmmVenue(cfg config.VenueConfig, _ venueEnv) (Venue, error) {
	v := &kyberDmmVenue{baseVenue: baseVenue{source: domain.Source(cfg.Source)}}
	if cfg.Router != "" {
		v.router = common.HexToAddress(cfg.Router)
	}
	return v, nil
}

func (v *kyberDmmVenue) BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation {
	if isZero(v.router) {
		return nil
	}
	path := []common.Address{q.TakerToken, q.MakerToken}
	data := &domain.KyberDmmFillData{Router: v.router, TokenAddressPath: path}
	return []*sampler.SourceOperation{
		newOperation(v, q, data, "KyberDmm", v.router, path, bigAmounts(q)),
	}
}

func (v *kyberDmmVenue) DecodeResult(call SampleCall, raw []byte) ([]*uint256.Int, error) {
	values, err := sampler.Unpack(call.Method, raw)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("%w: %s returned %d values", sampler.ErrDecode, call.Method, len(values))
	}
	pools, err := sampler.Convert[[]common.Address](values[0])
	if err != nil {
		return nil, err
	}
	if data, ok := call.FillData.(*domain.KyberDmmFillData); ok {
		data.PoolsPath = pools
	}
	return sampler.ToAmounts(values[1])
}

func (v *kyberDmmVenue) GasEstimate(data domain.FillData) uint64 {
	gas := uint64(kyberDmmBaseGas)
	if d, ok := data.(*domain.KyberDmmFillData); ok && len(d.PoolsPath) > 1 {
		gas += uint64(len(d.PoolsPath)-1) * kyberDmmHopGas
	}
	return gas
}
