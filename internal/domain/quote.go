package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// QuoteRequest is a validated request entering the quote pipeline. Exactly one
// of SellAmount and BuyAmount is set and decides the side.
type QuoteRequest struct {
	SellToken          common.Address
	BuyToken           common.Address
	SellAmount         *uint256.Int
	BuyAmount          *uint256.Int
	SlippagePercentage decimal.Decimal
	ExcludedSources    []Source
	IncludedSources    []Source
}

func (r *QuoteRequest) Side() Side {
	if r.SellAmount != nil {
		return SideSell
	}
	return SideBuy
}

func (r *QuoteRequest) Amount() *uint256.Int {
	if r.SellAmount != nil {
		return r.SellAmount
	}
	return r.BuyAmount
}

// QuoteInfo is the outcome of simulating the orders of a quote, either
// assuming no slippage (best case) or the full tolerated slippage.
type QuoteInfo struct {
	MakerAmount      *uint256.Int
	TakerAmount      *uint256.Int
	TotalTakerAmount *uint256.Int
	Gas              uint64
}

type MultiHopBreakdown struct {
	Proportion        decimal.Decimal `json:"proportion"`
	IntermediateToken common.Address  `json:"intermediateToken"`
	Hops              []Source        `json:"hops"`
}

// SourceBreakdown maps each used source to its share of the filled input.
type SourceBreakdown struct {
	Proportions map[Source]decimal.Decimal
	MultiHop    *MultiHopBreakdown
}

// WrapKind marks quotes that only convert between the native asset and its
// wrapped token.
type WrapKind uint8

const (
	WrapNone WrapKind = iota
	WrapDeposit
	WrapWithdraw
)

// SwapQuote is the full result of the quote pipeline before it is rendered.
type SwapQuote struct {
	Side                 Side
	Wrap                 WrapKind
	SellToken            common.Address
	BuyToken             common.Address
	Orders               []Order
	BestCaseQuoteInfo    QuoteInfo
	WorstCaseQuoteInfo   QuoteInfo
	SourceBreakdown      SourceBreakdown
	SourceFlags          SourceFlags
	IsTwoHop             bool
	SellTokenDecimals    uint8
	BuyTokenDecimals     uint8
	MakerAmountPerNative decimal.Decimal
	TakerAmountPerNative decimal.Decimal
	UnoptimizedOrders    []Order
	GasPrice             *uint256.Int
	PriceImpact          decimal.Decimal
}
