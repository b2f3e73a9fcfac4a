package router

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

type fillResult struct {
	input         *uint256.Int
	output        *uint256.Int
	gas           uint64
	inputBySource map[domain.Source]*uint256.Int
}

// QuoteReport is the simulated outcome of a plan.
type QuoteReport struct {
	BestCase        domain.QuoteInfo
	WorstCase       domain.QuoteInfo
	SourceBreakdown domain.SourceBreakdown
}

// fillOrders walks orders, their collapsed fills and sub-fills until target
// input is consumed. Gas is charged for every fill that is touched.
func fillOrders(orders []domain.Order, target *uint256.Int, fees FeeSchedule) *fillResult {
	res := &fillResult{
		input:         new(uint256.Int),
		output:        new(uint256.Int),
		inputBySource: make(map[domain.Source]*uint256.Int),
	}
	remaining := cloneU256(target)

	for i := range orders {
		if remaining.IsZero() {
			break
		}
		for j := range orders[i].Fills {
			if remaining.IsZero() {
				break
			}
			fill := &orders[i].Fills[j]
			res.gas += fees.GasEstimate(fill.Source, fill.FillData)
			bySource, ok := res.inputBySource[fill.Source]
			if !ok {
				bySource = new(uint256.Int)
				res.inputBySource[fill.Source] = bySource
			}

			for _, sub := range fill.SubFills {
				if remaining.IsZero() {
					break
				}
				filledInput := MinU256(remaining, sub.Input)
				filledOutput := MulDiv(sub.Output, filledInput, sub.Input)

				bySource.Add(bySource, filledInput)
				res.input.Add(res.input, filledInput)
				res.output.Add(res.output, filledOutput)
				remaining.Sub(remaining, filledInput)
			}
		}
	}
	return res
}

func totalGas(orders []domain.Order, fees FeeSchedule) uint64 {
	var gas uint64
	for i := range orders {
		for j := range orders[i].Fills {
			fill := &orders[i].Fills[j]
			gas += fees.GasEstimate(fill.Source, fill.FillData)
		}
	}
	return gas
}

// toQuoteInfo orients a fill result. For buys the input side is the maker token.
func toQuoteInfo(side domain.Side, input, output *uint256.Int, gas uint64) domain.QuoteInfo {
	maker, taker := output, input
	if side == domain.SideBuy {
		maker, taker = input, output
	}
	return domain.QuoteInfo{
		MakerAmount:      cloneU256(maker),
		TakerAmount:      cloneU256(taker),
		TotalTakerAmount: cloneU256(taker),
		Gas:              gas,
	}
}

// applySlippage narrows output against the trader: sells receive at least
// output × (1 - slippage), buys spend at most output × (1 + slippage).
func applySlippage(side domain.Side, amount *uint256.Int, slippage decimal.Decimal) *uint256.Int {
	d := ToDecimal(amount)
	if side == domain.SideSell {
		return FromDecimal(d.Mul(decimal.NewFromInt(1).Sub(slippage)).Floor())
	}
	return FromDecimal(d.Mul(decimal.NewFromInt(1).Add(slippage)).Ceil())
}

// SourceBreakdown returns each source's share of the total filled input.
func SourceBreakdown(inputBySource map[domain.Source]*uint256.Int) domain.SourceBreakdown {
	total := new(uint256.Int)
	for _, v := range inputBySource {
		total.Add(total, v)
	}
	proportions := make(map[domain.Source]decimal.Decimal, len(inputBySource))
	if total.IsZero() {
		return domain.SourceBreakdown{Proportions: proportions}
	}
	totalDec := ToDecimal(total)
	for source, v := range inputBySource {
		if v.IsZero() {
			continue
		}
		proportions[source] = ToDecimal(v).DivRound(totalDec, 18)
	}
	return domain.SourceBreakdown{Proportions: proportions}
}

// CalculateQuoteReport simulates the orders of a direct or merged plan.
func CalculateQuoteReport(
	side domain.Side,
	orders []domain.Order,
	target *uint256.Int,
	slippage decimal.Decimal,
	fees FeeSchedule,
) *QuoteReport {
	best := fillOrders(orders, target, fees)
	worstOutput := applySlippage(side, best.output, slippage)

	return &QuoteReport{
		BestCase:        toQuoteInfo(side, best.input, best.output, best.gas),
		WorstCase:       toQuoteInfo(side, best.input, worstOutput, totalGas(orders, fees)),
		SourceBreakdown: SourceBreakdown(best.inputBySource),
	}
}

// CalculateTwoHopQuoteReport reports a bridged plan. The slippage bound
// narrows the received amount for sells and the spent amount for buys.
func CalculateTwoHopQuoteReport(
	side domain.Side,
	orders []domain.Order,
	slippage decimal.Decimal,
	fees FeeSchedule,
) (*QuoteReport, error) {
	if len(orders) != 2 {
		return nil, ErrNotTwoHopSample
	}
	first, second := orders[0], orders[1]
	data, ok := asMultiHop(first, second)
	if !ok {
		return nil, ErrNotTwoHopSample
	}
	gas := fees.GasEstimate(domain.SourceMultiHop, data)

	best := domain.QuoteInfo{
		MakerAmount:      cloneU256(second.MakerAmount),
		TakerAmount:      cloneU256(first.TakerAmount),
		TotalTakerAmount: cloneU256(first.TakerAmount),
		Gas:              gas,
	}
	worst := domain.QuoteInfo{
		MakerAmount:      cloneU256(second.MakerAmount),
		TakerAmount:      cloneU256(first.TakerAmount),
		TotalTakerAmount: cloneU256(first.TakerAmount),
		Gas:              gas,
	}
	if side == domain.SideSell {
		worst.MakerAmount = applySlippage(domain.SideSell, second.MakerAmount, slippage)
	} else {
		worst.TakerAmount = applySlippage(domain.SideBuy, first.TakerAmount, slippage)
		worst.TotalTakerAmount = cloneU256(worst.TakerAmount)
	}

	return &QuoteReport{
		BestCase:  best,
		WorstCase: worst,
		SourceBreakdown: domain.SourceBreakdown{
			Proportions: map[domain.Source]decimal.Decimal{},
			MultiHop: &domain.MultiHopBreakdown{
				Proportion:        decimal.NewFromInt(1),
				IntermediateToken: data.IntermediateToken,
				Hops:              []domain.Source{first.Source, second.Source},
			},
		},
	}, nil
}

func asMultiHop(first, second domain.Order) (*domain.MultiHopFillData, bool) {
	if first.MakerToken != second.TakerToken {
		return nil, false
	}
	return &domain.MultiHopFillData{
		IntermediateToken: first.MakerToken,
		FirstHop:          domain.HopSample{Source: first.Source, FillData: first.FillData},
		SecondHop:         domain.HopSample{Source: second.Source, FillData: second.FillData},
	}, true
}
