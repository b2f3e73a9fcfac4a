package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/itsib/hyper-dex-swap-node/internal/aggregator"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/http/httputil"
)

type PoolHandler struct {
	aggregatorSvc QuoteService
}

func NewPoolHandler(aggregatorSvc QuoteService) *PoolHandler {
	return &PoolHandler{aggregatorSvc: aggregatorSvc}
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:source", h.getPools)
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

// PoolsResponse lists the pools a source has cached for a token pair
type PoolsResponse struct {
	Source    string   `json:"source" example:"Balancer_V2"`
	SellToken string   `json:"sellToken" example:"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"`
	BuyToken  string   `json:"buyToken" example:"0x6B175474E89094C44Da98b954EedeAC495271d0F"`
	Pools     []string `json:"pools"`
}

// @Summary Get cached pools
// @Description Pool ids a pool cached source currently knows for a token pair. Expired entries are
// @Description included; a miss schedules a background fetch and returns an empty list.
// @Tags pools
// @Produce json
// @Param source path string true "Source name" example("Balancer_V2")
// @Param sellToken query string true "Token sold (hex address or symbol)" example("WETH")
// @Param buyToken query string true "Token bought (hex address or symbol)" example("DAI")
// @Success 200 {object} httputil.Response{data=PoolsResponse}
// @Failure 400 {object} httputil.Response "Invalid token"
// @Failure 404 {object} httputil.Response "Source has no pools cache"
// @Router /api/v1/pools/{source} [get]
func (h *PoolHandler) getPools(c *gin.Context) {
	sell, err := h.aggregatorSvc.ResolveToken(c.Query("sellToken"))
	if err != nil {
		httputil.BadRequest(c, "invalid sellToken")
		return
	}
	buy, err := h.aggregatorSvc.ResolveToken(c.Query("buyToken"))
	if err != nil {
		httputil.BadRequest(c, "invalid buyToken")
		return
	}

	source := domain.Source(c.Param("source"))
	ids, err := h.aggregatorSvc.CachedPools(source, sell, buy)
	if err != nil {
		if errors.Is(err, aggregator.ErrUnknownSource) {
			httputil.NotFound(c, err.Error())
			return
		}
		httputil.InternalError(c, "")
		return
	}
	if ids == nil {
		ids = []string{}
	}

	httputil.Success(c, PoolsResponse{
		Source:    string(source),
		SellToken: sell.Hex(),
		BuyToken:  buy.Hex(),
		Pools:     ids,
	})
}
