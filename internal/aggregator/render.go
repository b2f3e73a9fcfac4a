package aggregator

import (
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/services/router"
)

const pricePrecision = 18

var (
	wethDepositSelector  = hexutil.MustDecode("0xd0e30db0")
	wethWithdrawSelector = hexutil.MustDecode("0x2e1a7d4d")
)

func (svc *Service) render(q *domain.SwapQuote) *domain.QuoteResponse {
	best, worst := q.BestCaseQuoteInfo, q.WorstCaseQuoteInfo
	sellDec, buyDec := int32(q.SellTokenDecimals), int32(q.BuyTokenDecimals)

	// QuoteInfo is already oriented: the maker token is the buy token.
	sellAmount, buyAmount := best.TotalTakerAmount, best.MakerAmount

	resp := &domain.QuoteResponse{
		ChainID:            svc.registry.Chain().ChainID,
		Price:              unitPrice(q.Side, best, sellDec, buyDec).String(),
		GuaranteedPrice:    unitPrice(q.Side, worst, sellDec, buyDec).String(),
		Value:              "0",
		Gas:                decimal.NewFromUint64(worst.Gas).String(),
		EstimatedGas:       decimal.NewFromUint64(best.Gas).String(),
		GasPrice:           "0",
		ProtocolFee:        "0",
		BuyTokenAddress:    q.BuyToken.Hex(),
		SellTokenAddress:   q.SellToken.Hex(),
		BuyAmount:          buyAmount.Dec(),
		SellAmount:         sellAmount.Dec(),
		Sources:            renderSources(q.SourceBreakdown),
		Orders:             renderOrders(q.Orders),
		SellTokenToEthRate: unitRate(q.TakerAmountPerNative, sellDec).String(),
		BuyTokenToEthRate:  unitRate(q.MakerAmountPerNative, buyDec).String(),
		SourceFlags:        decimal.NewFromUint64(uint64(q.SourceFlags)).String(),

		EstimatedPriceImpact: q.PriceImpact.String(),
		PriceImpactSeverity:  string(router.GetPriceImpactSeverity(q.PriceImpact)),
	}
	if q.GasPrice != nil {
		resp.GasPrice = q.GasPrice.Dec()
	}
	if q.SellToken == svc.registry.Chain().Native() {
		resp.Value = sellAmount.Dec()
	}

	switch q.Wrap {
	case domain.WrapDeposit:
		resp.To = svc.registry.Chain().WrappedNative().Hex()
		resp.Data = hexutil.Encode(wethDepositSelector)
	case domain.WrapWithdraw:
		amount := sellAmount.Bytes32()
		resp.To = svc.registry.Chain().WrappedNative().Hex()
		resp.Data = hexutil.Encode(append(append([]byte{}, wethWithdrawSelector...), amount[:]...))
	}
	return resp
}

// unitPrice is the buy token amount per sell token for sells and the sell
// token amount per buy token for buys, both in whole units.
func unitPrice(side domain.Side, info domain.QuoteInfo, sellDec, buyDec int32) decimal.Decimal {
	maker := router.ToDecimal(info.MakerAmount).Shift(-buyDec)
	taker := router.ToDecimal(info.TotalTakerAmount).Shift(-sellDec)
	num, den := maker, taker
	if side == domain.SideBuy {
		num, den = taker, maker
	}
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, pricePrecision)
}

// unitRate converts a base units per wei rate into whole tokens per ether.
func unitRate(rate decimal.Decimal, decimals int32) decimal.Decimal {
	return rate.Shift(18 - decimals).Round(pricePrecision)
}

func renderSources(b domain.SourceBreakdown) []domain.SourceShare {
	out := make([]domain.SourceShare, 0, len(b.Proportions)+1)
	for source, proportion := range b.Proportions {
		out = append(out, domain.SourceShare{Name: string(source), Proportion: proportion.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	if b.MultiHop != nil {
		hops := make([]string, len(b.MultiHop.Hops))
		for i, h := range b.MultiHop.Hops {
			hops[i] = string(h)
		}
		out = append(out, domain.SourceShare{
			Name:              string(domain.SourceMultiHop),
			Proportion:        b.MultiHop.Proportion.String(),
			IntermediateToken: b.MultiHop.IntermediateToken.Hex(),
			Hops:              hops,
		})
	}
	return out
}

func renderOrders(orders []domain.Order) []domain.OrderSummary {
	out := make([]domain.OrderSummary, len(orders))
	for i, o := range orders {
		out[i] = domain.OrderSummary{
			Source:      string(o.Source),
			MakerToken:  o.MakerToken.Hex(),
			TakerToken:  o.TakerToken.Hex(),
			MakerAmount: o.MakerAmount.Dec(),
			TakerAmount: o.TakerAmount.Dec(),
			FillData:    o.FillData,
		}
	}
	return out
}
