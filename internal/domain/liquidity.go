package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

type RawQuotes struct {
	DexQuotes    []SampleSet
	TwoHopQuotes []Sample
}

// MarketSideLiquidity is everything the optimizer needs for one quote.
type MarketSideLiquidity struct {
	Side                  Side
	InputAmount           *uint256.Int
	InputToken            common.Address
	OutputToken           common.Address
	OutputAmountPerNative decimal.Decimal
	InputAmountPerNative  decimal.Decimal
	Quotes                RawQuotes
	InputTokenDecimals    uint8
	OutputTokenDecimals   uint8
}

func (l *MarketSideLiquidity) IsEmpty() bool {
	return len(l.Quotes.DexQuotes) == 0 && len(l.Quotes.TwoHopQuotes) == 0
}
