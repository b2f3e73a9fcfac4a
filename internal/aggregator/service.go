package aggregator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/itsib/hyper-dex-swap-node/internal/adapters/blockchain"
	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/metrics"
	"github.com/itsib/hyper-dex-swap-node/internal/services"
	"github.com/itsib/hyper-dex-swap-node/internal/services/liquidity"
	"github.com/itsib/hyper-dex-swap-node/internal/services/market"
	"github.com/itsib/hyper-dex-swap-node/internal/services/router"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

const AGGREGATOR_SERVICE = "aggregator-service"

var (
	ErrInvalidQuoteRequest = errors.New("invalid quote request")
	ErrUnknownSource       = errors.New("unknown liquidity source")

	// Error aliases
	ErrInsufficientLiquidity = router.ErrNoOptimalPath
	ErrSamplerCall           = sampler.ErrSamplerCall
)

// GasPricer serves the current network gas price in wei.
type GasPricer interface {
	GasPrice(ctx context.Context) *big.Int
}

type Opts struct {
	SampleCount      int
	DistributionBase decimal.Decimal
	RunLimit         int
	DefaultSlippage  decimal.Decimal
}

// Service runs the quote pipeline: sampling, optimization and reporting.
type Service struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	samplerConf *config.SamplerConfig
	chainClient *blockchain.ChainClientService
	marketSvc   *market.Service

	opts      Opts
	registry  *market.Registry
	gasPrice  GasPricer
	builder   *liquidity.Builder
	optimizer *router.Optimizer
}

// New builds a ready service outside of the container.
func New(registry *market.Registry, executor liquidity.Executor, gasPrice GasPricer, opts Opts) *Service {
	svc := &Service{}
	svc.logger = services.NewServiceLogger(svc)
	svc.init(registry, executor, gasPrice, opts)
	return svc
}

func (svc *Service) ID() string {
	return AGGREGATOR_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	svc.samplerConf = c.GetConfig(config.SAMPLER_CONFIG_KEY).(*config.SamplerConfig)
	svc.chainClient = c.Instance(blockchain.CHAIN_CLIENT_SERVICE).(*blockchain.ChainClientService)
	svc.gasPrice = c.Instance(blockchain.GAS_PRICE_CACHE_SERVICE).(*blockchain.GasPriceCacheService)
	svc.marketSvc = c.Instance(market.MARKET_SERVICE).(*market.Service)
	return nil
}

func (svc *Service) Start() error {
	gateway := sampler.NewGateway(svc.chainClient.SamplerCaller(), sampler.GatewayOpts{
		Address:  svc.samplerConf.Address,
		GasLimit: svc.samplerConf.GasLimit,
	})
	svc.init(svc.marketSvc.Registry(), gateway, svc.gasPrice, Opts{
		SampleCount:      svc.samplerConf.SampleCount,
		DistributionBase: svc.samplerConf.DistributionBase,
		RunLimit:         svc.samplerConf.RunLimit,
		DefaultSlippage:  svc.samplerConf.DefaultSlippage,
	})
	svc.logger.Info().
		Str("sampler", svc.samplerConf.Address.Hex()).
		Int("sources", len(svc.registry.Sources())).
		Msg("[AggregatorService] ready")
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

func (svc *Service) init(registry *market.Registry, executor liquidity.Executor, gasPrice GasPricer, opts Opts) {
	svc.opts = opts
	svc.registry = registry
	svc.gasPrice = gasPrice
	svc.builder = liquidity.NewBuilder(executor, registry, liquidity.Opts{
		SampleCount:      opts.SampleCount,
		DistributionBase: opts.DistributionBase,
	})
	svc.optimizer = router.NewOptimizer(registry, registry, router.OptimizerOpts{RunLimit: opts.RunLimit})
}

func (svc *Service) Registry() *market.Registry {
	return svc.registry
}

func (svc *Service) DefaultSlippage() decimal.Decimal {
	return svc.opts.DefaultSlippage
}

// GetQuote runs the pipeline and renders the response.
func (svc *Service) GetQuote(ctx context.Context, req *domain.QuoteRequest) (*domain.QuoteResponse, error) {
	quote, err := svc.GetSwapQuote(ctx, req)
	if err != nil {
		return nil, err
	}
	return svc.render(quote), nil
}

// GetSwapQuote validates req and produces the best plan for it.
func (svc *Service) GetSwapQuote(ctx context.Context, req *domain.QuoteRequest) (*domain.SwapQuote, error) {
	requestID := uuid.NewString()
	start := time.Now()
	side := req.Side()

	quote, err := svc.quote(ctx, req)
	status := "ok"
	switch {
	case errors.Is(err, ErrInvalidQuoteRequest):
		status = "invalid"
	case errors.Is(err, ErrInsufficientLiquidity):
		status = "no_liquidity"
	case err != nil:
		status = "error"
	}
	metrics.QuoteRequests.WithLabelValues(side.String(), status).Inc()
	metrics.QuoteDuration.WithLabelValues(side.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		svc.logger.Debug().
			Err(err).
			Str("requestId", requestID).
			Str("side", side.String()).
			Str("sellToken", req.SellToken.Hex()).
			Str("buyToken", req.BuyToken.Hex()).
			Msg("[AggregatorService] quote failed")
		return nil, err
	}

	svc.logger.Info().
		Str("requestId", requestID).
		Str("side", side.String()).
		Str("sellToken", req.SellToken.Hex()).
		Str("buyToken", req.BuyToken.Hex()).
		Int("orders", len(quote.Orders)).
		Bool("twoHop", quote.IsTwoHop).
		Dur("took", time.Since(start)).
		Msg("[AggregatorService] quote served")
	return quote, nil
}

func (svc *Service) quote(ctx context.Context, req *domain.QuoteRequest) (*domain.SwapQuote, error) {
	if err := svc.validate(req); err != nil {
		return nil, err
	}
	side, amount := req.Side(), req.Amount()
	gasPrice := svc.currentGasPrice(ctx)

	if wrap := svc.wrapKind(req.SellToken, req.BuyToken); wrap != domain.WrapNone {
		return svc.wrapQuote(req, wrap, gasPrice), nil
	}

	excluded, err := svc.excludedSources(req)
	if err != nil {
		return nil, err
	}

	liq, err := svc.builder.Build(ctx, liquidity.Request{
		Side:            side,
		SellToken:       req.SellToken,
		BuyToken:        req.BuyToken,
		Amount:          amount,
		ExcludedSources: excluded,
	})
	if err != nil {
		return nil, err
	}
	metrics.FillChains.Observe(float64(len(liq.Quotes.DexQuotes)))

	// Native rates are per wei of value; the gas penalty needs them per unit
	// of gas.
	priced := *liq
	gasPriceDec := router.ToDecimal(gasPrice)
	priced.OutputAmountPerNative = liq.OutputAmountPerNative.Mul(gasPriceDec)
	priced.InputAmountPerNative = liq.InputAmountPerNative.Mul(gasPriceDec)

	optimizeStart := time.Now()
	result, err := svc.optimizer.Optimize(&priced)
	metrics.OptimizerDuration.Observe(time.Since(optimizeStart).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.OptimizerMergeSteps.Observe(float64(result.MergeSteps))

	var report *router.QuoteReport
	if result.IsTwoHop {
		metrics.TwoHopQuotesSelected.Inc()
		report, err = router.CalculateTwoHopQuoteReport(side, result.Orders, req.SlippagePercentage, svc.registry)
		if err != nil {
			return nil, err
		}
	} else {
		report = router.CalculateQuoteReport(side, result.Orders, amount, req.SlippagePercentage, svc.registry)
	}

	overhead := svc.registry.ExchangeOverhead(result.SourceFlags)
	report.BestCase.Gas += overhead
	report.WorstCase.Gas += overhead

	quote := &domain.SwapQuote{
		Side:               side,
		SellToken:          req.SellToken,
		BuyToken:           req.BuyToken,
		Orders:             result.Orders,
		BestCaseQuoteInfo:  report.BestCase,
		WorstCaseQuoteInfo: report.WorstCase,
		SourceBreakdown:    report.SourceBreakdown,
		SourceFlags:        result.SourceFlags,
		IsTwoHop:           result.IsTwoHop,
		GasPrice:           gasPrice,
	}
	if side == domain.SideSell {
		quote.SellTokenDecimals, quote.BuyTokenDecimals = liq.InputTokenDecimals, liq.OutputTokenDecimals
		quote.TakerAmountPerNative, quote.MakerAmountPerNative = liq.InputAmountPerNative, liq.OutputAmountPerNative
	} else {
		quote.SellTokenDecimals, quote.BuyTokenDecimals = liq.OutputTokenDecimals, liq.InputTokenDecimals
		quote.TakerAmountPerNative, quote.MakerAmountPerNative = liq.OutputAmountPerNative, liq.InputAmountPerNative
	}
	if result.UnoptimizedPath != nil {
		quote.UnoptimizedOrders = result.UnoptimizedPath.Orders
	}
	quote.PriceImpact = router.EstimatePriceImpact(side, liq.Quotes.DexQuotes, report.BestCase.MakerAmount, report.BestCase.TotalTakerAmount)
	return quote, nil
}

func (svc *Service) validate(req *domain.QuoteRequest) error {
	zero := common.Address{}
	if req.SellToken == zero || req.BuyToken == zero {
		return fmt.Errorf("%w: sellToken and buyToken are required", ErrInvalidQuoteRequest)
	}
	if (req.SellAmount == nil) == (req.BuyAmount == nil) {
		return fmt.Errorf("%w: exactly one of sellAmount and buyAmount is required", ErrInvalidQuoteRequest)
	}
	if req.Amount().IsZero() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidQuoteRequest)
	}
	if req.SlippagePercentage.IsNegative() || req.SlippagePercentage.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: slippagePercentage must be within [0, 1]", ErrInvalidQuoteRequest)
	}
	if req.SellToken == req.BuyToken {
		return fmt.Errorf("%w: sellToken and buyToken must differ", ErrInvalidQuoteRequest)
	}
	if svc.wrapKind(req.SellToken, req.BuyToken) == domain.WrapNone &&
		svc.builder.Token(req.SellToken) == svc.builder.Token(req.BuyToken) {
		return fmt.Errorf("%w: sellToken and buyToken must differ", ErrInvalidQuoteRequest)
	}
	return nil
}

func (svc *Service) wrapKind(sell, buy common.Address) domain.WrapKind {
	chain := svc.registry.Chain()
	native, wrapped := chain.Native(), chain.WrappedNative()
	switch {
	case sell == native && buy == wrapped:
		return domain.WrapDeposit
	case sell == wrapped && buy == native:
		return domain.WrapWithdraw
	default:
		return domain.WrapNone
	}
}

// wrapQuote converts one to one with no routing gas.
func (svc *Service) wrapQuote(req *domain.QuoteRequest, wrap domain.WrapKind, gasPrice *uint256.Int) *domain.SwapQuote {
	amount := req.Amount()
	info := domain.QuoteInfo{
		MakerAmount:      amount.Clone(),
		TakerAmount:      amount.Clone(),
		TotalTakerAmount: amount.Clone(),
	}
	return &domain.SwapQuote{
		Side:                 req.Side(),
		Wrap:                 wrap,
		SellToken:            req.SellToken,
		BuyToken:             req.BuyToken,
		BestCaseQuoteInfo:    info,
		WorstCaseQuoteInfo:   info,
		SourceBreakdown:      domain.SourceBreakdown{Proportions: map[domain.Source]decimal.Decimal{}},
		SellTokenDecimals:    18,
		BuyTokenDecimals:     18,
		MakerAmountPerNative: decimal.NewFromInt(1),
		TakerAmountPerNative: decimal.NewFromInt(1),
		GasPrice:             gasPrice,
	}
}

// excludedSources merges the chain defaults with the request. A non-empty
// include list excludes every other registered source.
func (svc *Service) excludedSources(req *domain.QuoteRequest) ([]domain.Source, error) {
	known := make(map[string]domain.Source)
	for _, s := range append(svc.registry.Sources(), domain.SourceMultiHop) {
		known[strings.ToLower(string(s))] = s
	}
	resolve := func(list []domain.Source) ([]domain.Source, error) {
		out := make([]domain.Source, 0, len(list))
		for _, s := range list {
			source, ok := known[strings.ToLower(string(s))]
			if !ok {
				return nil, fmt.Errorf("%w: %w %q", ErrInvalidQuoteRequest, ErrUnknownSource, s)
			}
			out = append(out, source)
		}
		return out, nil
	}

	excluded, err := resolve(req.ExcludedSources)
	if err != nil {
		return nil, err
	}
	included, err := resolve(req.IncludedSources)
	if err != nil {
		return nil, err
	}
	if len(included) > 0 && len(excluded) > 0 {
		return nil, fmt.Errorf("%w: includedSources and excludedSources are mutually exclusive", ErrInvalidQuoteRequest)
	}

	excluded = append(excluded, svc.registry.DefaultExcludedSources()...)
	if len(included) > 0 {
		keep := make(map[domain.Source]struct{}, len(included))
		for _, s := range included {
			keep[s] = struct{}{}
		}
		for _, s := range known {
			if _, ok := keep[s]; !ok {
				excluded = append(excluded, s)
			}
		}
	}
	return excluded, nil
}

func (svc *Service) currentGasPrice(ctx context.Context) *uint256.Int {
	if svc.gasPrice == nil {
		return new(uint256.Int)
	}
	wei := svc.gasPrice.GasPrice(ctx)
	if wei == nil || wei.Sign() <= 0 {
		return new(uint256.Int)
	}
	price, overflow := uint256.FromBig(wei)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return price
}

// SourceInfo describes one registered source.
type SourceInfo struct {
	Name string `json:"name"`
	Flag string `json:"flag"`
}

func (svc *Service) Sources() []SourceInfo {
	sources := append(svc.registry.Sources(), domain.SourceMultiHop)
	out := make([]SourceInfo, len(sources))
	for i, s := range sources {
		out[i] = SourceInfo{Name: string(s), Flag: fmt.Sprintf("%d", uint64(svc.registry.Flag(s)))}
	}
	return out
}

// CachedPools returns the pool ids a pools cache holds for a pair, expired
// entries included.
func (svc *Service) CachedPools(source domain.Source, sell, buy common.Address) ([]string, error) {
	for _, c := range svc.registry.PoolsCaches() {
		if strings.EqualFold(string(c.Source()), string(source)) {
			ids, _ := c.CachedPoolIDsForPair(svc.builder.Token(sell), svc.builder.Token(buy), true)
			return ids, nil
		}
	}
	return nil, fmt.Errorf("%w: %q has no pools cache", ErrUnknownSource, source)
}

// ResolveToken accepts a hex address or a symbol of the chain token table.
func (svc *Service) ResolveToken(ref string) (common.Address, error) {
	token, err := svc.registry.Chain().Token(ref)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidQuoteRequest, err)
	}
	return token, nil
}
