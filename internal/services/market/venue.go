package market

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

var ErrUnknownVenueKind = errors.New("unknown venue kind")

// SampleQuery asks a venue for the operations sampling one trade direction.
// TakerToken is always the token sold and MakerToken the token bought, for
// both sides; Amounts are taker amounts on sells and maker amounts on buys.
type SampleQuery struct {
	Side          domain.Side
	TakerToken    common.Address
	MakerToken    common.Address
	Amounts       []*uint256.Int
	Intermediates []common.Address
}

// SampleCall is what a decoder knows about the call it decodes.
type SampleCall struct {
	Method   string
	FillData domain.FillData
	Amounts  []*uint256.Int
}

// Venue describes how to sample, decode and settle one liquidity source.
type Venue interface {
	Source() domain.Source
	// BuildSampleOperations returns one operation per route. A venue with no
	// route for the pair returns nothing.
	BuildSampleOperations(q SampleQuery) []*sampler.SourceOperation
	// DecodeResult extracts the output amounts of a successful call and
	// records any identities the sampler reported into call.FillData.
	DecodeResult(call SampleCall, data []byte) ([]*uint256.Int, error)
	BuildSettlementParams(fill *domain.CollapsedFill) domain.FillData
	GasEstimate(data domain.FillData) uint64
}

// venueEnv is what factories may draw on besides the venue's own section.
type venueEnv struct {
	chain      *config.ChainConfig
	cacheOpts  PoolsCacheOpts
	httpClient HTTPDoer
}

type venueFactory func(cfg config.VenueConfig, env venueEnv) (Venue, error)

var venueFactories = map[string]venueFactory{
	"uniswap_v2":         newUniswapV2Venue,
	"uniswap_v3":         newUniswapV3Venue,
	"kyber_dmm":          newKyberDmmVenue,
	"curve":              newCurveVenue,
	"shell":              newPoolListVenue("Shell"),
	"mstable":            newPoolListVenue("MStable"),
	"liquidity_provider": newLiquidityProviderVenue,
	"mooniswap":          newMooniswapVenue,
	"balancer":           newBalancerVenue,
	"balancer_v2":        newBalancerV2Venue,
	"dodo":               newDodoVenue,
	"dodo_v2":            newDodoV2Venue,
}

func newVenue(cfg config.VenueConfig, env venueEnv) (Venue, error) {
	factory, ok := venueFactories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (source %s)", ErrUnknownVenueKind, cfg.Kind, cfg.Source)
	}
	return factory(cfg, env)
}

// baseVenue carries the behaviour shared by every venue: amounts-only
// decoding and settlement with the sampled parameters.
type baseVenue struct {
	source domain.Source
}

func (v baseVenue) Source() domain.Source {
	return v.source
}

func (v baseVenue) DecodeResult(call SampleCall, data []byte) ([]*uint256.Int, error) {
	return sampler.DecodeAmounts(call.Method, data, 0)
}

func (v baseVenue) BuildSettlementParams(fill *domain.CollapsedFill) domain.FillData {
	return fill.FillData
}

// newOperation binds a sampling call to v's decoder.
func newOperation(v Venue, q SampleQuery, data domain.FillData, name string, args ...interface{}) *sampler.SourceOperation {
	method := methodName(q.Side, name)
	call := SampleCall{Method: method, FillData: data, Amounts: q.Amounts}
	decode := func(raw []byte) ([]*uint256.Int, error) {
		return v.DecodeResult(call, raw)
	}
	return sampler.NewSourceOperation(v.Source(), data, q.Amounts, decode, method, args...)
}

func methodName(side domain.Side, name string) string {
	if side == domain.SideSell {
		return "sampleSellsFrom" + name
	}
	return "sampleBuysFrom" + name
}

func bigAmounts(q SampleQuery) []*big.Int {
	return sampler.ToBigAmounts(q.Amounts)
}

// routes returns the direct path and one bridged path per intermediate.
func routes(taker, maker common.Address, intermediates []common.Address) [][]common.Address {
	paths := [][]common.Address{{taker, maker}}
	for _, t := range intermediates {
		if t == taker || t == maker {
			continue
		}
		paths = append(paths, []common.Address{taker, t, maker})
	}
	return paths
}

// tokenIndex reports the position of token in tokens, or -1.
func tokenIndex(tokens []common.Address, token common.Address) int {
	for i, t := range tokens {
		if t == token {
			return i
		}
	}
	return -1
}

func isZero(a common.Address) bool {
	return a == (common.Address{})
}

func parseSelector(hex string) ([4]byte, error) {
	var out [4]byte
	b := common.FromHex(hex)
	if len(b) != 4 {
		return out, fmt.Errorf("invalid function selector %q", hex)
	}
	copy(out[:], b)
	return out, nil
}
