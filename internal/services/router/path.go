package router

import (
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

type pathSize struct {
	input  decimal.Decimal
	output decimal.Decimal
}

// PathContext is shared by every path of one quote.
type PathContext struct {
	Side    domain.Side
	Target  decimal.Decimal
	Arena   *FillArena
	Penalty PenaltyOpts
	Fees    FeeSchedule
}

// Path is an ordered combination of fills with its running raw size, its
// running gas adjusted size and the union of the contributing source flags.
type Path struct {
	ctx          *PathContext
	fills        []int
	size         pathSize
	adjustedSize pathSize
	flags        domain.SourceFlags
}

func NewPath(ctx *PathContext) *Path {
	return &Path{ctx: ctx}
}

// PathFromFills builds a path by appending fills in order.
func PathFromFills(ctx *PathContext, fills []int) *Path {
	p := &Path{ctx: ctx, fills: make([]int, 0, len(fills))}
	for _, idx := range fills {
		p.Append(idx)
	}
	return p
}

// ID is the chain id of the first fill, or -1 for an empty path.
func (p *Path) ID() int {
	if len(p.fills) == 0 {
		return -1
	}
	return p.ctx.Arena.Get(p.fills[0]).ID
}

func (p *Path) Fills() []int {
	return p.fills
}

func (p *Path) Len() int {
	return len(p.fills)
}

func (p *Path) SourceFlags() domain.SourceFlags {
	return p.flags
}

// Size returns the raw input and output of the path.
func (p *Path) Size() (decimal.Decimal, decimal.Decimal) {
	return p.size.input, p.size.output
}

// Append adds the fill at idx. A fill crossing the target is pro-rated, after
// which the path input is pinned at target.
func (p *Path) Append(idx int) *Path {
	p.fills = append(p.fills, idx)
	fill := p.ctx.Arena.Get(idx)
	p.addFillSize(idx, fill)
	p.flags |= fill.Flags
	return p
}

func (p *Path) Clone() *Path {
	fills := make([]int, len(p.fills), len(p.fills)+1)
	copy(fills, p.fills)
	return &Path{
		ctx:          p.ctx,
		fills:        fills,
		size:         p.size,
		adjustedSize: p.adjustedSize,
		flags:        p.flags,
	}
}

func (p *Path) addFillSize(idx int, fill *domain.Fill) {
	input, output := p.ctx.Arena.amounts(idx)
	target := p.ctx.Target

	if p.size.input.Add(input).GreaterThan(target) {
		remaining := target.Sub(p.size.input)
		scaledOutput := div(output.Mul(remaining), input)
		penalty := fill.AdjustedOutput.Sub(output)

		p.size = pathSize{input: target, output: p.size.output.Add(scaledOutput)}
		p.adjustedSize = pathSize{
			input:  target,
			output: p.adjustedSize.output.Add(scaledOutput).Add(penalty),
		}
		return
	}

	p.size.input = p.size.input.Add(input)
	p.size.output = p.size.output.Add(output)
	p.adjustedSize.input = p.adjustedSize.input.Add(input)
	p.adjustedSize.output = p.adjustedSize.output.Add(fill.AdjustedOutput)
}

// adjusted returns the gas adjusted size including the settlement overhead of
// every source in the path.
func (p *Path) adjusted() pathSize {
	overhead := p.ctx.Fees.ExchangeOverhead(p.flags)
	penalty := gasPenalty(overhead, p.ctx.Penalty, p.adjustedSize.input, p.adjustedSize.output)
	return pathSize{
		input:  p.adjustedSize.input,
		output: adjustOutput(p.ctx.Side, p.adjustedSize.output, penalty),
	}
}

func (p *Path) AdjustedSize() (decimal.Decimal, decimal.Decimal) {
	s := p.adjusted()
	return s.input, s.output
}

func (p *Path) AdjustedRate() decimal.Decimal {
	s := p.adjusted()
	return Rate(p.ctx.Side, s.input, s.output)
}

func (p *Path) AdjustedCompleteRate() decimal.Decimal {
	s := p.adjusted()
	return CompleteRate(p.ctx.Side, s.input, s.output, p.ctx.Target)
}

// BestRate is the best raw rate of any single fill in the path.
func (p *Path) BestRate() decimal.Decimal {
	best := decimal.Zero
	for _, idx := range p.fills {
		input, output := p.ctx.Arena.amounts(idx)
		if r := Rate(p.ctx.Side, input, output); r.GreaterThan(best) {
			best = r
		}
	}
	return best
}

func (p *Path) IsComplete() bool {
	return p.size.input.GreaterThanOrEqual(p.ctx.Target)
}

// IsBetterThan prefers more input while either path is incomplete, and the
// higher adjusted complete rate otherwise.
func (p *Path) IsBetterThan(other *Path) bool {
	target := p.ctx.Target
	if p.size.input.LessThan(target) || other.size.input.LessThan(target) {
		return p.size.input.GreaterThan(other.size.input)
	}
	return p.AdjustedCompleteRate().GreaterThan(other.AdjustedCompleteRate())
}

// IsValid reports whether no fill repeats and every child fill directly
// follows its parent.
func (p *Path) IsValid() bool {
	seen := make(map[int]struct{}, len(p.fills))
	for i, idx := range p.fills {
		if _, dup := seen[idx]; dup {
			return false
		}
		seen[idx] = struct{}{}

		fill := p.ctx.Arena.Get(idx)
		if fill.HasParent() && (i == 0 || p.fills[i-1] != fill.Parent) {
			return false
		}
	}
	return true
}

// IsValidNextFill reports whether appending idx keeps the path valid.
func (p *Path) IsValidNextFill(idx int) bool {
	fill := p.ctx.Arena.Get(idx)
	if len(p.fills) == 0 {
		return !fill.HasParent()
	}
	if p.fills[len(p.fills)-1] == fill.Parent {
		return true
	}
	return !fill.HasParent()
}
