package router

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

func TestEstimatePriceImpact(t *testing.T) {
	sets := []domain.SampleSet{
		createMockSampleSet(domain.SourceUniswapV2, []uint64{100, 1000}, []uint64{200, 1800}),
		createMockSampleSet(domain.SourceSushiSwap, []uint64{100, 1000}, []uint64{0, 1500}),
		createMockSampleSet(domain.SourceCurve, []uint64{100, 1000}, []uint64{190, 1900}),
	}

	tests := []struct {
		name         string
		side         domain.Side
		maker, taker uint64
		want         string
	}{
		// best smallest probe rate is 2 (Uniswap_V2), 1800/1000 executes at 1.8
		{"sell", domain.SideSell, 1800, 1000, "0.1"},
		{"sell at spot", domain.SideSell, 2000, 1000, "0"},
		{"sell above spot clamps", domain.SideSell, 2500, 1000, "0"},
		// zero output probes are skipped, so SushiSwap's cheapest cost is 1.5
		{"buy", domain.SideBuy, 1000, 2000, "0.25"},
		{"buy at spot", domain.SideBuy, 1000, 1500, "0"},
		{"zero amounts", domain.SideSell, 0, 1000, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatePriceImpact(tt.side, sets, u(tt.maker), u(tt.taker))
			require.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}

	require.True(t, EstimatePriceImpact(domain.SideSell, nil, u(1), u(1)).IsZero())
}

func TestGetPriceImpactSeverity(t *testing.T) {
	tests := []struct {
		impact string
		want   PriceImpactSeverity
	}{
		{"0", SeverityNone},
		{"0.0099", SeverityNone},
		{"0.01", SeverityLow},
		{"0.03", SeverityModerate},
		{"0.07", SeverityHigh},
		{"0.1", SeverityExtreme},
		{"1", SeverityExtreme},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, GetPriceImpactSeverity(decimal.RequireFromString(tt.impact)), tt.impact)
	}
}
