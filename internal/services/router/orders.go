package router

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

var ErrNotTwoHopSample = errors.New("sample is not a two-hop quote")

// SettlementBuilder produces the final settlement parameters of a collapsed fill.
type SettlementBuilder interface {
	BuildSettlementParams(fill *domain.CollapsedFill) domain.FillData
}

type OrderOpts struct {
	Side        domain.Side
	InputToken  common.Address
	OutputToken common.Address
}

// CollapsedPath is a path merged into settlement units.
type CollapsedPath struct {
	Path           *Path
	CollapsedFills []domain.CollapsedFill
	Orders         []domain.Order
	SourceFlags    domain.SourceFlags
}

// BuySellTokens returns the maker (received) and taker (spent) tokens.
func BuySellTokens(opts OrderOpts) (makerToken, takerToken common.Address) {
	if opts.Side == domain.SideSell {
		return opts.OutputToken, opts.InputToken
	}
	return opts.InputToken, opts.OutputToken
}

// CollapseFills merges contiguous fills of the same chain. The settlement
// params of a merged run come from its latest fill.
func CollapseFills(arena *FillArena, fills []int) []domain.CollapsedFill {
	collapsed := make([]domain.CollapsedFill, 0, len(fills))
	for _, idx := range fills {
		fill := arena.Get(idx)
		sub := domain.SubFill{Input: cloneU256(fill.Input), Output: cloneU256(fill.Output)}

		if n := len(collapsed); n > 0 && collapsed[n-1].ID == fill.ID {
			prev := &collapsed[n-1]
			prev.Input.Add(prev.Input, fill.Input)
			prev.Output.Add(prev.Output, fill.Output)
			prev.FillData = fill.FillData
			prev.SubFills = append(prev.SubFills, sub)
			continue
		}

		collapsed = append(collapsed, domain.CollapsedFill{
			ID:       fill.ID,
			Source:   fill.Source,
			FillData: fill.FillData,
			Input:    cloneU256(fill.Input),
			Output:   cloneU256(fill.Output),
			SubFills: []domain.SubFill{sub},
		})
	}
	return collapsed
}

// CreateOrder maps a collapsed fill onto an order between makerToken and takerToken.
func CreateOrder(
	fill *domain.CollapsedFill,
	makerToken, takerToken common.Address,
	side domain.Side,
	settle SettlementBuilder,
) domain.Order {
	makerAmount, takerAmount := fill.Output, fill.Input
	if side == domain.SideBuy {
		makerAmount, takerAmount = fill.Input, fill.Output
	}
	return domain.Order{
		Source:      fill.Source,
		FillData:    settle.BuildSettlementParams(fill),
		MakerToken:  makerToken,
		TakerToken:  takerToken,
		MakerAmount: cloneU256(makerAmount),
		TakerAmount: cloneU256(takerAmount),
		Fills:       []domain.CollapsedFill{*fill},
	}
}

// Collapse merges the path into collapsed fills and emits one order each.
func (p *Path) Collapse(opts OrderOpts, settle SettlementBuilder) *CollapsedPath {
	makerToken, takerToken := BuySellTokens(opts)
	collapsed := CollapseFills(p.ctx.Arena, p.fills)

	orders := make([]domain.Order, 0, len(collapsed))
	for i := range collapsed {
		orders = append(orders, CreateOrder(&collapsed[i], makerToken, takerToken, opts.Side, settle))
	}
	return &CollapsedPath{
		Path:           p,
		CollapsedFills: collapsed,
		Orders:         orders,
		SourceFlags:    p.flags,
	}
}

// TwoHopOrders emits the two orders of a bridged quote. The leg amount that is
// decided on chain is left as zero or MaxUint256.
func TwoHopOrders(sample *domain.Sample, opts OrderOpts, settle SettlementBuilder) ([]domain.Order, error) {
	data, ok := sample.FillData.(*domain.MultiHopFillData)
	if !ok {
		return nil, ErrNotTwoHopSample
	}
	makerToken, takerToken := BuySellTokens(opts)

	first := domain.CollapsedFill{
		Source:   data.FirstHop.Source,
		FillData: data.FirstHop.FillData,
	}
	second := domain.CollapsedFill{
		Source:   data.SecondHop.Source,
		FillData: data.SecondHop.FillData,
	}
	if opts.Side == domain.SideSell {
		first.Input, first.Output = cloneU256(sample.Input), new(uint256.Int)
		second.Input, second.Output = cloneU256(MaxUint256), cloneU256(sample.Output)
	} else {
		first.Input, first.Output = new(uint256.Int), cloneU256(sample.Output)
		second.Input, second.Output = cloneU256(sample.Input), cloneU256(MaxUint256)
	}

	return []domain.Order{
		CreateOrder(&first, data.IntermediateToken, takerToken, opts.Side, settle),
		CreateOrder(&second, makerToken, data.IntermediateToken, opts.Side, settle),
	}, nil
}
