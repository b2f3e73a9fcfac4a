package router

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

// ratePrecision is the number of decimal places kept by rate divisions. Token
// pairs with very different decimals produce rates far below 1e-16.
const ratePrecision = 36

// FeeSchedule resolves the gas costs used to penalize fills and paths.
type FeeSchedule interface {
	// GasEstimate is the gas used by one fill of source with the given params.
	GasEstimate(source domain.Source, data domain.FillData) uint64
	// ExchangeOverhead is the fixed gas of settling through the given sources.
	ExchangeOverhead(flags domain.SourceFlags) uint64
	Flag(source domain.Source) domain.SourceFlags
}

// PenaltyOpts carries the native asset rates used to express gas in token units.
type PenaltyOpts struct {
	OutputAmountPerNative decimal.Decimal
	InputAmountPerNative  decimal.Decimal
}

func div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, ratePrecision)
}

// Rate is output per input for sells and input per output for buys, so a
// larger rate is always better. Zero amounts give a zero rate.
func Rate(side domain.Side, input, output decimal.Decimal) decimal.Decimal {
	if input.IsZero() || output.IsZero() {
		return decimal.Zero
	}
	if side == domain.SideSell {
		return div(output, input)
	}
	return div(input, output)
}

// CompleteRate is Rate additionally scaled by the covered share of target.
func CompleteRate(side domain.Side, input, output, target decimal.Decimal) decimal.Decimal {
	if input.IsZero() || output.IsZero() || target.IsZero() {
		return decimal.Zero
	}
	if side == domain.SideSell {
		return div(output, target)
	}
	return div(input, output).Mul(div(input, target))
}

// TwoHopAdjustedRate folds the settlement overhead of a bridged quote into its
// rate. Quotes that do not cover target rate zero.
func TwoHopAdjustedRate(
	side domain.Side,
	sample *domain.Sample,
	target *uint256.Int,
	outputAmountPerNative decimal.Decimal,
	fees FeeSchedule,
) decimal.Decimal {
	if sample.Input == nil || sample.Output == nil {
		return decimal.Zero
	}
	if sample.Input.Lt(target) || sample.Output.IsZero() {
		return decimal.Zero
	}

	flags := fees.Flag(domain.SourceMultiHop)
	if data, ok := sample.FillData.(*domain.MultiHopFillData); ok {
		flags |= fees.Flag(data.FirstHop.Source) | fees.Flag(data.SecondHop.Source)
	}
	gas := fees.ExchangeOverhead(flags) + fees.GasEstimate(domain.SourceMultiHop, sample.FillData)
	penalty := outputAmountPerNative.Mul(gasDecimal(gas))

	adjustedOutput := adjustOutput(side, ToDecimal(sample.Output), penalty).Round(0)
	return Rate(side, ToDecimal(sample.Input), adjustedOutput)
}

// gasPenalty expresses gas in output token units. Without an output token
// native rate it falls back to the input rate scaled by the realized price.
func gasPenalty(gas uint64, opts PenaltyOpts, input, output decimal.Decimal) decimal.Decimal {
	if gas == 0 {
		return decimal.Zero
	}
	g := gasDecimal(gas)
	if !opts.OutputAmountPerNative.IsZero() {
		return opts.OutputAmountPerNative.Mul(g)
	}
	if input.IsZero() {
		return decimal.Zero
	}
	return opts.InputAmountPerNative.Mul(g).Mul(div(output, input).Truncate(0))
}

// adjustOutput worsens output by penalty against the trader.
func adjustOutput(side domain.Side, output, penalty decimal.Decimal) decimal.Decimal {
	if side == domain.SideSell {
		return output.Sub(penalty)
	}
	return output.Add(penalty)
}

func gasDecimal(gas uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(gas))
}
