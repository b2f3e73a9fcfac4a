package router

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

// Price impact thresholds in basis points (bps)
const (
	PriceImpactLow      int64 = 100  // 1%
	PriceImpactModerate int64 = 300  // 3%
	PriceImpactHigh     int64 = 500  // 5%
	PriceImpactExtreme  int64 = 1000 // 10%
)

// PriceImpactSeverity represents the severity level of price impact
type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"
	SeverityLow      PriceImpactSeverity = "low"
	SeverityModerate PriceImpactSeverity = "moderate"
	SeverityHigh     PriceImpactSeverity = "high"
	SeverityExtreme  PriceImpactSeverity = "extreme"
)

var bps = decimal.NewFromInt(10_000)

// GetPriceImpactSeverity returns the severity level of an impact given as a
// fraction.
func GetPriceImpactSeverity(impact decimal.Decimal) PriceImpactSeverity {
	b := impact.Mul(bps).IntPart()
	switch {
	case b < PriceImpactLow:
		return SeverityNone
	case b < PriceImpactModerate:
		return SeverityLow
	case b < PriceImpactHigh:
		return SeverityModerate
	case b < PriceImpactExtreme:
		return SeverityHigh
	default:
		return SeverityExtreme
	}
}

// EstimatePriceImpact compares the executed rate with the best rate offered
// by the smallest priced probe of any venue. That probe stands in for the
// spot price. The result is a fraction clamped to [0, 1]; zero when nothing
// was sampled.
//
// Sample sets are oriented like the liquidity: for buys the input is the
// amount bought and the output the amount paid.
func EstimatePriceImpact(side domain.Side, sets []domain.SampleSet, makerAmount, takerAmount *uint256.Int) decimal.Decimal {
	if makerAmount == nil || takerAmount == nil || makerAmount.IsZero() || takerAmount.IsZero() {
		return decimal.Zero
	}

	var spot decimal.Decimal
	found := false
	for _, set := range sets {
		for i := range set {
			s := &set[i]
			if s.Input == nil || s.Output == nil || s.Input.IsZero() || s.Output.IsZero() {
				continue
			}
			r := ToDecimal(s.Output).DivRound(ToDecimal(s.Input), ratePrecision)
			// sells want the most output per input, buys the least paid per unit
			if !found || (side == domain.SideSell && r.GreaterThan(spot)) || (side == domain.SideBuy && r.LessThan(spot)) {
				spot = r
				found = true
			}
			break
		}
	}
	if !found {
		return decimal.Zero
	}

	var ratio decimal.Decimal
	if side == domain.SideSell {
		executed := ToDecimal(makerAmount).DivRound(ToDecimal(takerAmount), ratePrecision)
		ratio = executed.DivRound(spot, ratePrecision)
	} else {
		executed := ToDecimal(takerAmount).DivRound(ToDecimal(makerAmount), ratePrecision)
		ratio = spot.DivRound(executed, ratePrecision)
	}

	impact := decimal.NewFromInt(1).Sub(ratio)
	if impact.IsNegative() {
		return decimal.Zero
	}
	if impact.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return impact.Round(6)
}
