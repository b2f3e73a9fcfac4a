package market

import "github.com/itsib/hyper-dex-swap-node/internal/domain"

// fixedSourceGas is the gas of one fill for venues whose cost does not depend
// on the route.
var fixedSourceGas = map[domain.Source]uint64{
	domain.SourceBalancer:   120_000,
	domain.SourceCream:      120_000,
	domain.SourceBalancerV2: 100_000,
	domain.SourceMooniswap:  130_000,
	domain.SourceShell:      170_000,
	domain.SourceComponent:  188_000,
	domain.SourceMStable:    200_000,
	domain.SourceMultiHop:   0,
}

const (
	overheadVIP         = 21_000
	overheadUniswapV3   = 26_000
	overheadLP          = 31_000
	overheadVIPMix      = 36_000
	overheadVIPMultiHop = 46_000
	overheadCurve       = 61_000
	overheadDefault     = 150_000
)

// Sources settled through the exchange proxy's direct entry points.
var vipSources = []domain.Source{
	domain.SourceUniswapV2,
	domain.SourceSushiSwap,
	domain.SourcePancakeSwap,
	domain.SourcePancakeSwapV2,
	domain.SourceBakerySwap,
	domain.SourceApeSwap,
	"CafeSwap",
	"CheeseSwap",
	"JulSwap",
}

// overheadTable prices the fixed cost of settling a set of sources. Sources
// absent from the registry contribute no bits, so their rules never match.
type overheadTable struct {
	vip        []domain.SourceFlags
	uniswapV3  domain.SourceFlags
	curve      domain.SourceFlags
	lp         domain.SourceFlags
	multiHop   domain.SourceFlags
	mixAllowed domain.SourceFlags
}

func newOverheadTable(flag func(domain.Source) domain.SourceFlags) overheadTable {
	t := overheadTable{
		uniswapV3: flag(domain.SourceUniswapV3),
		curve:     flag(domain.SourceCurve),
		lp:        flag(domain.SourceLiquidityProvider),
		multiHop:  flag(domain.SourceMultiHop),
	}
	for _, s := range vipSources {
		if f := flag(s); f != 0 {
			t.vip = append(t.vip, f)
		}
	}
	t.mixAllowed = flag(domain.SourceUniswapV2) | flag(domain.SourceSushiSwap) | t.lp | t.uniswapV3
	return t
}

func (t overheadTable) cost(flags domain.SourceFlags) uint64 {
	if flags == 0 {
		return overheadDefault
	}
	for _, f := range t.vip {
		if flags == f {
			return overheadVIP
		}
	}
	switch {
	case t.uniswapV3 != 0 && flags == t.uniswapV3:
		return overheadUniswapV3
	case t.curve != 0 && flags == t.curve:
		return overheadCurve
	case t.lp != 0 && flags == t.lp:
		return overheadLP
	case t.mixAllowed != 0 && flags.SubsetOf(t.mixAllowed):
		return overheadVIPMix
	case t.multiHop != 0 && flags.Has(t.multiHop) && (flags|t.mixAllowed) == (t.mixAllowed|t.multiHop):
		return overheadVIPMultiHop
	default:
		return overheadDefault
	}
}
