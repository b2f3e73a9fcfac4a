package http

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/aggregator"
	appcommon "github.com/itsib/hyper-dex-swap-node/internal/common"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/http/httputil"
)

// QuoteService is the part of the aggregator the handlers use.
type QuoteService interface {
	GetQuote(ctx context.Context, req *domain.QuoteRequest) (*domain.QuoteResponse, error)
	DefaultSlippage() decimal.Decimal
	ResolveToken(ref string) (common.Address, error)
	Sources() []aggregator.SourceInfo
	CachedPools(source domain.Source, sell, buy common.Address) ([]string, error)
}

type QuoteHandler struct {
	aggregatorSvc QuoteService
}

func NewQuoteHandler(aggregatorSvc QuoteService) *QuoteHandler {
	return &QuoteHandler{aggregatorSvc: aggregatorSvc}
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/quote", h.getQuote)
	pub.GET("/sources", h.getSources)
}

func (h *QuoteHandler) Root() string {
	return "/swap"
}

// QuoteQuery represents the parameters for requesting a swap quote
type QuoteQuery struct {
	// Token sold, as a hex address or a symbol known to the node
	SellToken string `form:"sellToken" binding:"required" example:"WETH"`

	// Token bought, as a hex address or a symbol known to the node
	BuyToken string `form:"buyToken" binding:"required" example:"0x6b175474e89094c44da98b954eedeac495271d0f"`

	// Exact amount sold in base units. Mutually exclusive with buyAmount.
	SellAmount string `form:"sellAmount" example:"1000000000000000000"`

	// Exact amount bought in base units. Mutually exclusive with sellAmount.
	BuyAmount string `form:"buyAmount" example:""`

	// Tolerated slippage as a fraction, 0.01 is 1%
	SlippagePercentage string `form:"slippagePercentage" example:"0.01"`

	// Comma separated source names to skip
	ExcludedSources string `form:"excludedSources" example:"Curve,MultiHop"`

	// Comma separated source names to route through exclusively
	IncludedSources string `form:"includedSources" example:""`
}

func (h *QuoteHandler) parseQuoteQuery(c *gin.Context) (*domain.QuoteRequest, bool) {
	var q QuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.BadRequest(c, "invalid query parameters: "+err.Error())
		return nil, false
	}

	sellToken, err := h.aggregatorSvc.ResolveToken(q.SellToken)
	if err != nil {
		httputil.BadRequest(c, "invalid sellToken")
		return nil, false
	}
	buyToken, err := h.aggregatorSvc.ResolveToken(q.BuyToken)
	if err != nil {
		httputil.BadRequest(c, "invalid buyToken")
		return nil, false
	}

	req := &domain.QuoteRequest{
		SellToken:          sellToken,
		BuyToken:           buyToken,
		SlippagePercentage: h.aggregatorSvc.DefaultSlippage(),
		ExcludedSources:    domain.ParseSources(q.ExcludedSources),
		IncludedSources:    domain.ParseSources(q.IncludedSources),
	}
	if q.SellAmount != "" {
		if req.SellAmount, err = uint256.FromDecimal(q.SellAmount); err != nil {
			httputil.BadRequest(c, "invalid sellAmount: must be a base unit integer")
			return nil, false
		}
	}
	if q.BuyAmount != "" {
		if req.BuyAmount, err = uint256.FromDecimal(q.BuyAmount); err != nil {
			httputil.BadRequest(c, "invalid buyAmount: must be a base unit integer")
			return nil, false
		}
	}
	if q.SlippagePercentage != "" {
		if req.SlippagePercentage, err = decimal.NewFromString(q.SlippagePercentage); err != nil {
			httputil.BadRequest(c, "invalid slippagePercentage")
			return nil, false
		}
	}
	return req, true
}

// @Summary Get swap quote
// @Description Sample every enabled liquidity source through the on-chain sampler, split the
// @Description order across the sources that maximize the gas adjusted output and return the plan.
// @Description
// @Description Exactly one of sellAmount and buyAmount must be set. Amounts are base unit integers.
// @Description Selling or buying the native token is routed through the wrapped native token; converting
// @Description between the two returns a wrap or unwrap call instead.
// @Tags swap
// @Produce json
// @Param sellToken query string true "Token sold (hex address or symbol)" example("WETH")
// @Param buyToken query string true "Token bought (hex address or symbol)" example("DAI")
// @Param sellAmount query string false "Exact amount sold in base units" example("1000000000000000000")
// @Param buyAmount query string false "Exact amount bought in base units"
// @Param slippagePercentage query string false "Tolerated slippage, 0.01 is 1%" example("0.01")
// @Param excludedSources query string false "Comma separated sources to skip" example("Curve,MultiHop")
// @Param includedSources query string false "Comma separated sources to use exclusively"
// @Success 200 {object} httputil.Response{data=domain.QuoteResponse} "Best quote found"
// @Failure 400 {object} httputil.Response "Invalid request parameters, or not enough liquidity for the requested amount"
// @Failure 502 {object} httputil.Response "Sampler call failed"
// @Router /api/v1/swap/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	req, ok := h.parseQuoteQuery(c)
	if !ok {
		return
	}

	resp, err := h.aggregatorSvc.GetQuote(c.Request.Context(), req)
	if err != nil {
		httputil.HTTPError(c, quoteError(err))
		return
	}
	httputil.Success(c, resp)
}

func quoteError(err error) *appcommon.HttpError {
	switch {
	case errors.Is(err, aggregator.ErrInvalidQuoteRequest), errors.Is(err, aggregator.ErrUnknownSource):
		return appcommon.HTTPErrorBadRequest(err.Error())
	case errors.Is(err, aggregator.ErrInsufficientLiquidity):
		return appcommon.HTTPErrorBadRequest("insufficient liquidity")
	case errors.Is(err, aggregator.ErrSamplerCall):
		return appcommon.HTTPErrorBadGateway("")
	default:
		return appcommon.HTTPErrorInternalError("")
	}
}

// @Summary List liquidity sources
// @Description Sources the node can route through, with the bit each one sets in sourceFlags.
// @Tags swap
// @Produce json
// @Success 200 {object} httputil.Response{data=[]aggregator.SourceInfo}
// @Router /api/v1/swap/sources [get]
func (h *QuoteHandler) getSources(c *gin.Context) {
	httputil.Success(c, h.aggregatorSvc.Sources())
}
