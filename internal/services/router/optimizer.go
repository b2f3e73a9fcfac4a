package router

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

const (
	// DefaultRunLimit is the step budget of the first merge.
	DefaultRunLimit     = 1 << 8
	runLimitDecayFactor = 0.5
	minMixSteps         = 32
)

var (
	ErrNoOptimalPath = errors.New("no optimal path")
	ErrInvalidPath   = errors.New("merge search produced an invalid path")
)

// FillsToSortedPaths builds one seed path per chain and sorts them by adjusted
// complete rate, best first. Paths whose rate cannot be computed sort last.
func FillsToSortedPaths(ctx *PathContext, chains []FillChain) []*Path {
	type rated struct {
		path *Path
		rate decimal.Decimal
		ok   bool
	}
	entries := make([]rated, 0, len(chains))
	for _, chain := range chains {
		p := PathFromFills(ctx, chain)
		r := p.AdjustedCompleteRate()
		entries = append(entries, rated{path: p, rate: r, ok: !r.IsZero()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ok != entries[j].ok {
			return entries[i].ok
		}
		return entries[i].rate.GreaterThan(entries[j].rate)
	})

	paths := make([]*Path, len(entries))
	for i := range entries {
		paths[i] = entries[i].path
	}
	return paths
}

// ReducePaths drops every path whose best single fill rates below the best
// complete path. No merge drawing only from such a path can beat that rate.
func ReducePaths(sorted []*Path) []*Path {
	var bestComplete *Path
	for _, p := range sorted {
		if p.IsComplete() {
			bestComplete = p
			break
		}
	}
	if bestComplete == nil {
		return sorted
	}
	bestRate := bestComplete.AdjustedCompleteRate()
	if bestRate.IsNegative() {
		return sorted
	}

	reduced := make([]*Path, 0, len(sorted))
	for _, p := range sorted {
		if p.BestRate().GreaterThanOrEqual(bestRate) {
			reduced = append(reduced, p)
		}
	}
	return reduced
}

// RatesByChain maps the chain id of every path to its adjusted rate.
func RatesByChain(paths []*Path) map[int]decimal.Decimal {
	rates := make(map[int]decimal.Decimal, len(paths))
	for _, p := range paths {
		rates[p.ID()] = p.AdjustedRate()
	}
	return rates
}

type walkFrame struct {
	path      *Path
	remaining []int
	next      int
}

// walk runs a bounded depth first search from root over fills, extending a
// path only with valid next fills. It returns the best path seen and the
// updated step count.
func walk(root *Path, fills []int, best *Path, steps, maxSteps int) (*Path, int) {
	visit := func(p *Path) {
		steps++
		if p.IsBetterThan(best) {
			best = p
		}
	}

	visit(root)
	if root.IsComplete() {
		return best, steps
	}

	stack := []walkFrame{{path: root, remaining: fills}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if steps >= maxSteps || top.next >= len(top.remaining) {
			stack = stack[:len(stack)-1]
			continue
		}

		i := top.next
		top.next++
		idx := top.remaining[i]
		if !top.path.IsValidNextFill(idx) {
			continue
		}

		remaining := make([]int, 0, len(top.remaining)-1)
		remaining = append(remaining, top.remaining[:i]...)
		remaining = append(remaining, top.remaining[i+1:]...)

		child := top.path.Clone().Append(idx)
		visit(child)
		if !child.IsComplete() {
			stack = append(stack, walkFrame{path: child, remaining: remaining})
		}
	}
	return best, steps
}

// MixPaths searches combinations of the fills of a and b for a path better
// than a. Fills are walked in order of their chain's rate, keeping each chain
// in index order. It returns the best path and the number of steps taken.
func MixPaths(a, b *Path, maxSteps int, rates map[int]decimal.Decimal) (*Path, int, error) {
	maxSteps = max(maxSteps, minMixSteps)
	arena := a.ctx.Arena

	fills := make([]int, 0, len(a.fills)+len(b.fills))
	fills = append(fills, a.fills...)
	fills = append(fills, b.fills...)
	sort.SliceStable(fills, func(i, j int) bool {
		fi, fj := arena.Get(fills[i]), arena.Get(fills[j])
		if fi.ID != fj.ID {
			return rates[fi.ID].GreaterThan(rates[fj.ID])
		}
		return fi.Index < fj.Index
	})

	best, steps := walk(NewPath(a.ctx), fills, a, 0, maxSteps)
	if !best.IsValid() {
		return nil, steps, ErrInvalidPath
	}
	return best, steps, nil
}

// FindOptimalPath prunes the sorted seed paths and folds the survivors left
// to right, giving each later merge half the step budget of the previous one.
// It yields the processor between merges.
func FindOptimalPath(sorted []*Path, runLimit int) (*Path, int, error) {
	paths := ReducePaths(sorted)
	if len(paths) == 0 {
		return nil, 0, ErrNoOptimalPath
	}

	rates := RatesByChain(paths)
	optimal := paths[0]
	total := 0
	for i, p := range paths[1:] {
		budget := int(float64(runLimit) * math.Pow(runLimitDecayFactor, float64(i)))
		mixed, steps, err := MixPaths(optimal, p, budget, rates)
		total += steps
		if err != nil {
			return nil, total, err
		}
		optimal = mixed
		runtime.Gosched()
	}

	if !optimal.IsComplete() {
		return nil, total, ErrNoOptimalPath
	}
	return optimal, total, nil
}

// BestTwoHopQuote returns the two-hop sample with the best adjusted rate.
// Samples missing a decoded leg or output are ignored.
func BestTwoHopQuote(
	side domain.Side,
	quotes []domain.Sample,
	target *uint256.Int,
	outputAmountPerNative decimal.Decimal,
	fees FeeSchedule,
) (*domain.Sample, decimal.Decimal) {
	var (
		best     *domain.Sample
		bestRate decimal.Decimal
	)
	for i := range quotes {
		q := &quotes[i]
		data, ok := q.FillData.(*domain.MultiHopFillData)
		if !ok || data.FirstHop.Source == "" || data.SecondHop.Source == "" {
			continue
		}
		if q.Output == nil || q.Output.IsZero() {
			continue
		}
		r := TwoHopAdjustedRate(side, q, target, outputAmountPerNative, fees)
		if best == nil || r.GreaterThan(bestRate) {
			best, bestRate = q, r
		}
	}
	return best, bestRate
}

type OptimizerOpts struct {
	RunLimit int
}

// OptimizerResult is the plan handed to the settlement encoder and the quote report.
type OptimizerResult struct {
	Orders               []domain.Order
	LiquidityDelivered   []domain.CollapsedFill
	SourceFlags          domain.SourceFlags
	AdjustedRate         decimal.Decimal
	IsTwoHop             bool
	TwoHopSample         *domain.Sample
	UnoptimizedPath      *CollapsedPath
	TakerAmountPerNative decimal.Decimal
	MakerAmountPerNative decimal.Decimal
	MergeSteps           int
}

// Optimizer turns market side liquidity into an execution plan.
type Optimizer struct {
	fees     FeeSchedule
	settle   SettlementBuilder
	runLimit int
}

func NewOptimizer(fees FeeSchedule, settle SettlementBuilder, opts OptimizerOpts) *Optimizer {
	runLimit := opts.RunLimit
	if runLimit <= 0 {
		runLimit = DefaultRunLimit
	}
	return &Optimizer{fees: fees, settle: settle, runLimit: runLimit}
}

// Optimize builds fills, searches for the best merged path and compares it
// with the best two-hop quote. ErrNoOptimalPath means the liquidity cannot
// cover the requested amount.
func (o *Optimizer) Optimize(liq *domain.MarketSideLiquidity) (*OptimizerResult, error) {
	if liq.InputAmount == nil || liq.InputAmount.IsZero() {
		return nil, fmt.Errorf("%w: zero input amount", ErrNoOptimalPath)
	}

	penalty := PenaltyOpts{
		OutputAmountPerNative: liq.OutputAmountPerNative,
		InputAmountPerNative:  liq.InputAmountPerNative,
	}
	orderOpts := OrderOpts{Side: liq.Side, InputToken: liq.InputToken, OutputToken: liq.OutputToken}

	arena, chains := BuildFills(liq.Side, liq.Quotes.DexQuotes, liq.InputAmount, penalty, o.fees)
	ctx := &PathContext{
		Side:    liq.Side,
		Target:  ToDecimal(liq.InputAmount),
		Arena:   arena,
		Penalty: penalty,
		Fees:    o.fees,
	}
	sorted := FillsToSortedPaths(ctx, chains)

	result := &OptimizerResult{
		TakerAmountPerNative: liq.InputAmountPerNative,
		MakerAmountPerNative: liq.OutputAmountPerNative,
	}
	if liq.Side == domain.SideBuy {
		result.TakerAmountPerNative, result.MakerAmountPerNative = liq.OutputAmountPerNative, liq.InputAmountPerNative
	}
	if len(sorted) > 0 {
		result.UnoptimizedPath = sorted[0].Collapse(orderOpts, o.settle)
	}

	optimal, steps, err := FindOptimalPath(sorted, o.runLimit)
	result.MergeSteps = steps
	if err != nil && !errors.Is(err, ErrNoOptimalPath) {
		return nil, err
	}
	optimalRate := decimal.Zero
	if optimal != nil {
		optimalRate = optimal.AdjustedRate()
	}

	twoHop, twoHopRate := BestTwoHopQuote(liq.Side, liq.Quotes.TwoHopQuotes, liq.InputAmount, liq.OutputAmountPerNative, o.fees)
	if twoHop != nil && twoHopRate.GreaterThan(optimalRate) {
		orders, err := TwoHopOrders(twoHop, orderOpts, o.settle)
		if err != nil {
			return nil, err
		}
		result.Orders = orders
		result.SourceFlags = o.fees.Flag(domain.SourceMultiHop)
		result.AdjustedRate = twoHopRate
		result.IsTwoHop = true
		result.TwoHopSample = twoHop
		return result, nil
	}

	if optimal == nil {
		return nil, ErrNoOptimalPath
	}
	collapsed := optimal.Collapse(orderOpts, o.settle)
	result.Orders = collapsed.Orders
	result.LiquidityDelivered = collapsed.CollapsedFills
	result.SourceFlags = collapsed.SourceFlags
	result.AdjustedRate = optimalRate
	return result, nil
}
