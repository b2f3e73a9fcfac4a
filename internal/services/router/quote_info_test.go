package router

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

func createMockOrder(source domain.Source, subFills ...[2]uint64) domain.Order {
	fill := domain.CollapsedFill{Source: source, Input: u(0), Output: u(0)}
	for _, sf := range subFills {
		fill.SubFills = append(fill.SubFills, domain.SubFill{Input: u(sf[0]), Output: u(sf[1])})
		fill.Input.Add(fill.Input, u(sf[0]))
		fill.Output.Add(fill.Output, u(sf[1]))
	}
	return domain.Order{Source: source, MakerAmount: fill.Output, TakerAmount: fill.Input, Fills: []domain.CollapsedFill{fill}}
}

func TestCalculateQuoteReportSell(t *testing.T) {
	fees := newMockFees(domain.SourceUniswapV2, domain.SourceCurve, domain.SourceBalancer)
	fees.gas[domain.SourceUniswapV2] = 90_000
	fees.gas[domain.SourceCurve] = 150_000
	fees.gas[domain.SourceBalancer] = 120_000
	orders := []domain.Order{
		createMockOrder(domain.SourceUniswapV2, [2]uint64{300, 600}, [2]uint64{300, 570}),
		createMockOrder(domain.SourceCurve, [2]uint64{400, 760}),
		createMockOrder(domain.SourceBalancer, [2]uint64{100, 150}),
	}

	report := CalculateQuoteReport(domain.SideSell, orders, u(900), decimal.RequireFromString("0.01"), fees)

	best := report.BestCase
	if best.TakerAmount.Uint64() != 900 || best.MakerAmount.Uint64() != 1740 {
		t.Errorf("best case = %s/%s, want 900/1740", best.TakerAmount, best.MakerAmount)
	}
	if best.Gas != 240_000 {
		t.Errorf("best case gas = %d, want 240000", best.Gas)
	}

	worst := report.WorstCase
	if worst.MakerAmount.Uint64() != 1722 {
		t.Errorf("worst case maker = %s, want 1722", worst.MakerAmount)
	}
	if worst.Gas != 360_000 {
		t.Errorf("worst case gas = %d, want 360000", worst.Gas)
	}

	props := report.SourceBreakdown.Proportions
	want := map[domain.Source]string{
		domain.SourceUniswapV2: "0.666666666666666667",
		domain.SourceCurve:     "0.333333333333333333",
	}
	if len(props) != len(want) {
		t.Fatalf("breakdown = %v", props)
	}
	for s, w := range want {
		if !props[s].Equal(decimal.RequireFromString(w)) {
			t.Errorf("proportion of %s = %s, want %s", s, props[s], w)
		}
	}
}

func TestCalculateQuoteReportBuy(t *testing.T) {
	fees := newMockFees(domain.SourceUniswapV2)
	orders := []domain.Order{createMockOrder(domain.SourceUniswapV2, [2]uint64{100, 201})}

	report := CalculateQuoteReport(domain.SideBuy, orders, u(100), decimal.RequireFromString("0.01"), fees)

	if report.BestCase.MakerAmount.Uint64() != 100 || report.BestCase.TakerAmount.Uint64() != 201 {
		t.Errorf("best case = %s/%s", report.BestCase.MakerAmount, report.BestCase.TakerAmount)
	}
	// 201 * 1.01 = 203.01, rounded up
	if report.WorstCase.TakerAmount.Uint64() != 204 {
		t.Errorf("worst case taker = %s, want 204", report.WorstCase.TakerAmount)
	}
}

func TestCalculateTwoHopQuoteReport(t *testing.T) {
	fees := newMockFees(domain.SourceUniswapV2, domain.SourceSushiSwap)
	sample := &domain.Sample{
		Source: domain.SourceMultiHop,
		FillData: &domain.MultiHopFillData{
			IntermediateToken: tokenC,
			FirstHop:          domain.HopSample{Source: domain.SourceUniswapV2},
			SecondHop:         domain.HopSample{Source: domain.SourceSushiSwap},
		},
		Input:  u(1000),
		Output: u(2001),
	}
	slippage := decimal.RequireFromString("0.05")

	tests := []struct {
		name       string
		side       domain.Side
		bestMaker  uint64
		bestTaker  uint64
		worstMaker uint64
		worstTaker uint64
	}{
		{"sell narrows received", domain.SideSell, 2001, 1000, 1900, 1000},
		{"buy widens spent", domain.SideBuy, 1000, 2001, 1000, 2102},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := TwoHopOrders(sample, OrderOpts{Side: tt.side, InputToken: tokenA, OutputToken: tokenB}, passthroughSettlement{})
			if err != nil {
				t.Fatal(err)
			}
			report, err := CalculateTwoHopQuoteReport(tt.side, orders, slippage, fees)
			if err != nil {
				t.Fatal(err)
			}
			if report.BestCase.MakerAmount.Uint64() != tt.bestMaker || report.BestCase.TakerAmount.Uint64() != tt.bestTaker {
				t.Errorf("best = %s/%s", report.BestCase.MakerAmount, report.BestCase.TakerAmount)
			}
			if report.WorstCase.MakerAmount.Uint64() != tt.worstMaker || report.WorstCase.TakerAmount.Uint64() != tt.worstTaker {
				t.Errorf("worst = %s/%s", report.WorstCase.MakerAmount, report.WorstCase.TakerAmount)
			}
			mh := report.SourceBreakdown.MultiHop
			if mh == nil || mh.IntermediateToken != tokenC || len(mh.Hops) != 2 {
				t.Errorf("multihop breakdown = %+v", mh)
			}
		})
	}
}
