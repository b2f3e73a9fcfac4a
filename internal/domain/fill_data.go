package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FillData holds the venue specific settlement parameters of a sample. Values
// are shared by pointer across every sample of one sampling operation so that
// identities resolved while decoding (pool addresses) reach every fill.
type FillData interface {
	isFillData()
}

type UniswapV2FillData struct {
	Router           common.Address   `json:"router"`
	TokenAddressPath []common.Address `json:"tokenAddressPath"`
}

type UniswapV3PathAmount struct {
	UniswapPath []byte       `json:"uniswapPath"`
	InputAmount *uint256.Int `json:"inputAmount"`
}

type UniswapV3FillData struct {
	Router           common.Address        `json:"router"`
	Quoter           common.Address        `json:"-"`
	TokenAddressPath []common.Address      `json:"tokenAddressPath"`
	PathAmounts      []UniswapV3PathAmount `json:"-"`
	UniswapPath      []byte                `json:"uniswapPath,omitempty"`
}

// CurveInfo describes one curve-style pool and the selectors used to quote it.
type CurveInfo struct {
	PoolAddress               common.Address   `json:"poolAddress"`
	SellQuoteFunctionSelector [4]byte          `json:"sellQuoteFunctionSelector"`
	BuyQuoteFunctionSelector  [4]byte          `json:"buyQuoteFunctionSelector"`
	Tokens                    []common.Address `json:"tokens"`
	MetaTokens                []common.Address `json:"metaTokens,omitempty"`
	GasSchedule               uint64           `json:"gasSchedule"`
}

type CurveFillData struct {
	Pool         CurveInfo `json:"pool"`
	FromTokenIdx int       `json:"fromTokenIdx"`
	ToTokenIdx   int       `json:"toTokenIdx"`
}

// PoolFillData serves the venues that settle against a single pool address.
type PoolFillData struct {
	PoolAddress common.Address `json:"poolAddress"`
}

type BalancerV2FillData struct {
	PoolID common.Hash    `json:"poolId"`
	Vault  common.Address `json:"vault"`
}

type LiquidityProviderFillData struct {
	PoolAddress common.Address `json:"poolAddress"`
	GasCost     uint64         `json:"gasCost"`
}

type DodoFillData struct {
	Helper      common.Address `json:"helperAddress"`
	PoolAddress common.Address `json:"poolAddress"`
	IsSellBase  bool           `json:"isSellBase"`
}

type KyberDmmFillData struct {
	Router           common.Address   `json:"router"`
	TokenAddressPath []common.Address `json:"tokenAddressPath"`
	PoolsPath        []common.Address `json:"poolsPath"`
}

// HopSample is one decoded leg of a two-hop quote.
type HopSample struct {
	Source   Source   `json:"source"`
	FillData FillData `json:"fillData"`
}

type MultiHopFillData struct {
	IntermediateToken common.Address `json:"intermediateToken"`
	FirstHop          HopSample      `json:"firstHopSource"`
	SecondHop         HopSample      `json:"secondHopSource"`
}

func (*UniswapV2FillData) isFillData()         {}
func (*UniswapV3FillData) isFillData()         {}
func (*CurveFillData) isFillData()             {}
func (*PoolFillData) isFillData()              {}
func (*BalancerV2FillData) isFillData()        {}
func (*LiquidityProviderFillData) isFillData() {}
func (*DodoFillData) isFillData()              {}
func (*KyberDmmFillData) isFillData()          {}
func (*MultiHopFillData) isFillData()          {}
