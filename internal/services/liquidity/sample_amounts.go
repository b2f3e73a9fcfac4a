package liquidity

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/services/router"
)

const (
	DefaultSampleCount = 5
	divisionPrecision  = 36
)

var DefaultDistributionBase = decimal.RequireFromString("1.25")

// SampleAmounts spreads n probe sizes over (0, target] with geometrically
// growing steps. The last probe is target itself.
func SampleAmounts(target *uint256.Int, n int, base decimal.Decimal) []*uint256.Int {
	if n <= 1 {
		return []*uint256.Int{target.Clone()}
	}
	if !base.IsPositive() {
		base = DefaultDistributionBase
	}

	weights := make([]decimal.Decimal, n)
	sum := decimal.Zero
	w := decimal.NewFromInt(1)
	for i := range weights {
		weights[i] = w
		sum = sum.Add(w)
		w = w.Mul(base)
	}

	total := router.ToDecimal(target)
	out := make([]*uint256.Int, n)
	partial := decimal.Zero
	for i := 0; i < n-1; i++ {
		partial = partial.Add(weights[i])
		out[i] = router.FromDecimal(total.Mul(partial).DivRound(sum, divisionPrecision).Floor())
	}
	out[n-1] = target.Clone()
	return out
}
