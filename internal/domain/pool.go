package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type PoolFlags uint8

const (
	FlagWeighted PoolFlags = 1 << 0
	FlagStable   PoolFlags = 1 << 1
)

// Pool is the pair-oriented view of a pool as reported by a venue's indexer.
// It is cached per token pair and survives restarts through persistence.
type Pool struct {
	ID         string          `json:"id"`
	Address    common.Address  `json:"address"`
	TokenIn    common.Address  `json:"tokenIn"`
	TokenOut   common.Address  `json:"tokenOut"`
	BalanceIn  decimal.Decimal `json:"balanceIn"`
	BalanceOut decimal.Decimal `json:"balanceOut"`
	WeightIn   decimal.Decimal `json:"weightIn"`
	WeightOut  decimal.Decimal `json:"weightOut"`
	SwapFee    decimal.Decimal `json:"swapFee"`
	Flags      PoolFlags       `json:"flags"`
}

func (p *Pool) HasFlags(mask PoolFlags) bool {
	return p.Flags&mask == mask
}

// IsTradable reports whether the pool holds both sides of the pair.
func (p *Pool) IsTradable() bool {
	return p.BalanceIn.IsPositive() && p.BalanceOut.IsPositive()
}

// PairKey is an order-sensitive cache key for a token pair.
func PairKey(takerToken, makerToken common.Address) string {
	return strings.ToLower(takerToken.Hex()) + "-" + strings.ToLower(makerToken.Hex())
}
