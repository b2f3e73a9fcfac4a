package domain

import (
	"math/bits"
	"strings"
)

type Side uint8

const (
	SideSell Side = iota
	SideBuy
)

func (s Side) String() string {
	switch s {
	case SideSell:
		return "sell"
	case SideBuy:
		return "buy"
	default:
		return "UNKNOWN"
	}
}

// Source is the tag of a liquidity venue.
type Source string

const (
	SourceNative            Source = "Native"
	SourceUniswapV2         Source = "Uniswap_V2"
	SourceSushiSwap         Source = "SushiSwap"
	SourceUniswapV3         Source = "Uniswap_V3"
	SourceCurve             Source = "Curve"
	SourceCurveV2           Source = "Curve_V2"
	SourceSwerve            Source = "Swerve"
	SourceSnowSwap          Source = "SnowSwap"
	SourceBalancer          Source = "Balancer"
	SourceBalancerV2        Source = "Balancer_V2"
	SourceCream             Source = "Cream"
	SourceLiquidityProvider Source = "LiquidityProvider"
	SourceMooniswap         Source = "Mooniswap"
	SourceDodo              Source = "DODO"
	SourceDodoV2            Source = "DODO_V2"
	SourceKyberDmm          Source = "KyberDMM"
	SourceShell             Source = "Shell"
	SourceComponent         Source = "Component"
	SourceMStable           Source = "mStable"
	SourceCryptoCom         Source = "CryptoCom"
	SourceLinkswap          Source = "Linkswap"
	SourcePancakeSwap       Source = "PancakeSwap"
	SourcePancakeSwapV2     Source = "PancakeSwap_V2"
	SourceBakerySwap        Source = "BakerySwap"
	SourceApeSwap           Source = "ApeSwap"
	SourceQuickSwap         Source = "QuickSwap"
	SourceMultiHop          Source = "MultiHop"
)

// SourceFlags is a bitset of registered sources. Bit positions are assigned
// by the venue registry at construction time.
type SourceFlags uint64

// MaxSources is the number of distinct bits a SourceFlags can carry.
const MaxSources = 64

func (f SourceFlags) Has(mask SourceFlags) bool {
	return mask != 0 && f&mask == mask
}

func (f SourceFlags) Intersects(mask SourceFlags) bool {
	return f&mask != 0
}

// SubsetOf reports whether every bit of f is also set in mask.
func (f SourceFlags) SubsetOf(mask SourceFlags) bool {
	return f&^mask == 0
}

func (f SourceFlags) Count() int {
	return bits.OnesCount64(uint64(f))
}

// ParseSources splits a comma separated list of source names.
func ParseSources(raw string) []Source {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]Source, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, Source(p))
		}
	}
	return out
}
