package liquidity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/services/market"
	"github.com/itsib/hyper-dex-swap-node/internal/services/router"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

var ErrInvalidAmount = errors.New("liquidity: amount must be positive")

// Executor runs sampler operations in one round trip.
type Executor interface {
	Execute(ctx context.Context, ops ...sampler.Operation) error
}

type Opts struct {
	SampleCount      int
	DistributionBase decimal.Decimal
}

// Request describes one side of a trade. Tokens may be the native sentinel.
type Request struct {
	Side            domain.Side
	SellToken       common.Address
	BuyToken        common.Address
	Amount          *uint256.Int
	ExcludedSources []domain.Source
}

// Builder samples every enabled venue for a trade and assembles the
// resulting price curves.
type Builder struct {
	gateway  Executor
	registry *market.Registry
	opts     Opts
}

func NewBuilder(gateway Executor, registry *market.Registry, opts Opts) *Builder {
	if opts.SampleCount <= 0 {
		opts.SampleCount = DefaultSampleCount
	}
	if !opts.DistributionBase.IsPositive() {
		opts.DistributionBase = DefaultDistributionBase
	}
	return &Builder{gateway: gateway, registry: registry, opts: opts}
}

// Token maps the native sentinel to the wrapped native token.
func (b *Builder) Token(t common.Address) common.Address {
	chain := b.registry.Chain()
	if t == chain.Native() {
		return chain.WrappedNative()
	}
	return t
}

func (b *Builder) Build(ctx context.Context, req Request) (*domain.MarketSideLiquidity, error) {
	if req.Amount == nil || req.Amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	sell, buy := b.Token(req.SellToken), b.Token(req.BuyToken)
	sources := b.registry.EnabledSources(req.ExcludedSources)
	feeSources := intersect(b.registry.FeeSources(), sources)

	inputToken, outputToken := sell, buy
	if req.Side == domain.SideBuy {
		inputToken, outputToken = buy, sell
	}

	decimals := sampler.TokenDecimals(buy, sell)
	outputRate := b.medianRate(feeSources, outputToken)
	inputRate := b.medianRate(feeSources, inputToken)

	dexOps := b.registry.SampleOperations(sources, market.SampleQuery{
		Side:          req.Side,
		TakerToken:    sell,
		MakerToken:    buy,
		Amounts:       SampleAmounts(req.Amount, b.opts.SampleCount, b.opts.DistributionBase),
		Intermediates: b.registry.IntermediateTokens(sell, buy),
	})

	var twoHops []*sampler.TwoHopOperation
	if req.Side == domain.SideSell && !excludes(req.ExcludedSources, domain.SourceMultiHop) {
		twoHops = b.twoHopOperations(sources, sell, buy, req.Amount)
	}

	err := b.gateway.Execute(ctx,
		decimals,
		outputRate,
		inputRate,
		sampler.NewBatch(operations(dexOps)...),
		sampler.NewBatch(operations(twoHops)...),
	)
	if err != nil {
		return nil, fmt.Errorf("sample liquidity: %w", err)
	}

	liq := &domain.MarketSideLiquidity{
		Side:                  req.Side,
		InputAmount:           req.Amount.Clone(),
		InputToken:            inputToken,
		OutputToken:           outputToken,
		OutputAmountPerNative: outputRate.Rate(),
		InputAmountPerNative:  inputRate.Rate(),
	}
	for _, op := range dexOps {
		if samples := op.Samples(); len(samples) > 0 {
			liq.Quotes.DexQuotes = append(liq.Quotes.DexQuotes, samples)
		}
	}
	for _, op := range twoHops {
		if s := op.Sample(); s != nil {
			liq.Quotes.TwoHopQuotes = append(liq.Quotes.TwoHopQuotes, *s)
		}
	}

	d := decimals.Result()
	buyDecimals, sellDecimals := d[0], d[1]
	liq.InputTokenDecimals, liq.OutputTokenDecimals = sellDecimals, buyDecimals
	if req.Side == domain.SideBuy {
		liq.InputTokenDecimals, liq.OutputTokenDecimals = buyDecimals, sellDecimals
	}

	log.Debug().
		Str("side", req.Side.String()).
		Int("operations", len(dexOps)).
		Int("curves", len(liq.Quotes.DexQuotes)).
		Int("twoHop", len(liq.Quotes.TwoHopQuotes)).
		Msg("[LiquidityBuilder] sampled")
	return liq, nil
}

// twoHopOperations pairs every venue route into each intermediate token with
// every route out of it, sampling the full amount once per intermediate.
func (b *Builder) twoHopOperations(sources []domain.Source, sell, buy common.Address, amount *uint256.Int) []*sampler.TwoHopOperation {
	zero := []*uint256.Int{new(uint256.Int)}
	intermediates := b.registry.IntermediateTokens(sell, buy)
	ops := make([]*sampler.TwoHopOperation, 0, len(intermediates))
	for _, t := range intermediates {
		first := b.registry.SampleOperations(sources, market.SampleQuery{
			Side: domain.SideSell, TakerToken: sell, MakerToken: t, Amounts: zero,
		})
		second := b.registry.SampleOperations(sources, market.SampleQuery{
			Side: domain.SideSell, TakerToken: t, MakerToken: buy, Amounts: zero,
		})
		if len(first) == 0 || len(second) == 0 {
			continue
		}
		ops = append(ops, sampler.NewTwoHopOperation(domain.SideSell, t, first, second, amount))
	}
	return ops
}

// medianRate prices token against one unit of FEE_NATIVE_AMOUNT of the
// wrapped native token across the fee sources.
func (b *Builder) medianRate(sources []domain.Source, token common.Address) *medianRateOperation {
	chain := b.registry.Chain()
	probe := uint256.MustFromBig(chain.FeeNative())
	op := &medianRateOperation{
		native: token == chain.WrappedNative(),
		probe:  router.ToDecimal(probe),
	}
	if !op.native {
		op.ops = b.registry.SampleOperations(sources, market.SampleQuery{
			Side:       domain.SideSell,
			TakerToken: chain.WrappedNative(),
			MakerToken: token,
			Amounts:    []*uint256.Int{probe},
		})
	}
	op.Batch = sampler.NewBatch(operations(op.ops)...)
	return op
}

type medianRateOperation struct {
	*sampler.Batch
	ops    []*sampler.SourceOperation
	probe  decimal.Decimal
	native bool
}

// Rate is the median positive output per unit of native probe, 1 for the
// wrapped native token and 0 when no venue answered.
func (m *medianRateOperation) Rate() decimal.Decimal {
	if m.native {
		return decimal.NewFromInt(1)
	}
	var outputs []*uint256.Int
	for _, op := range m.ops {
		for _, s := range op.Samples() {
			if s.Output != nil && !s.Output.IsZero() {
				outputs = append(outputs, s.Output)
			}
		}
	}
	if len(outputs) == 0 || !m.probe.IsPositive() {
		return decimal.Zero
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Lt(outputs[j]) })
	median := outputs[len(outputs)/2]
	return router.ToDecimal(median).DivRound(m.probe, divisionPrecision)
}

func operations[T sampler.Operation](ops []T) []sampler.Operation {
	out := make([]sampler.Operation, len(ops))
	for i, op := range ops {
		out[i] = op
	}
	return out
}

func intersect(a, b []domain.Source) []domain.Source {
	out := make([]domain.Source, 0, len(a))
	for _, s := range a {
		for _, t := range b {
			if s == t {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func excludes(list []domain.Source, source domain.Source) bool {
	for _, s := range list {
		if s == source {
			return true
		}
	}
	return false
}
