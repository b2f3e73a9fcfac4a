package market

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

const bannedChainJSON = `{
  "chainId": 1,
  "nativeToken": "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
  "wrappedNativeToken": "WETH",
  "feeNativeAmount": "1000000000000000000",
  "tokens": {
    "WETH": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
    "USDT": "0xdac17f958d2ee523a2206206994597c13d831ec7",
    "AAVE": "0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9"
  },
  "feeSources": ["Uniswap_V2", "Unknown"],
  "defaultExcludedSources": ["SushiSwap"],
  "venues": [
    {"source": "Uniswap_V2", "kind": "uniswap_v2", "router": "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"},
    {"source": "SushiSwap", "kind": "uniswap_v2", "router": "0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f", "bannedTokens": ["AAVE"]},
    {"source": "CryptoCom", "kind": "uniswap_v2"}
  ]
}`

func TestRegistryFlags(t *testing.T) {
	r := newTestRegistry(t)
	sources := r.Sources()
	require.Len(t, sources, 18)

	var all domain.SourceFlags
	for i, s := range sources {
		flag := r.Flag(s)
		require.Equal(t, domain.SourceFlags(1)<<uint(i), flag, "source %s", s)
		require.False(t, all.Intersects(flag))
		all |= flag
	}
	require.Equal(t, domain.SourceFlags(1)<<18, r.Flag(domain.SourceMultiHop))
	require.Zero(t, r.Flag("NotAVenue"))
	require.Equal(t, r.Flag(domain.SourceCurve)|r.Flag(domain.SourceDodo),
		r.Flags([]domain.Source{domain.SourceCurve, domain.SourceDodo, "NotAVenue"}))
}

func TestExchangeOverhead(t *testing.T) {
	r := newTestRegistry(t)
	f := r.Flag

	tests := []struct {
		name  string
		flags domain.SourceFlags
		want  uint64
	}{
		{name: "uniswap v2", flags: f(domain.SourceUniswapV2), want: 21_000},
		{name: "sushiswap", flags: f(domain.SourceSushiSwap), want: 21_000},
		{name: "fork outside vip list", flags: f(domain.SourceCryptoCom), want: 150_000},
		{name: "uniswap v3", flags: f(domain.SourceUniswapV3), want: 26_000},
		{name: "curve", flags: f(domain.SourceCurve), want: 61_000},
		{name: "liquidity provider", flags: f(domain.SourceLiquidityProvider), want: 31_000},
		{name: "vip mix", flags: f(domain.SourceUniswapV2) | f(domain.SourceUniswapV3) | f(domain.SourceLiquidityProvider), want: 36_000},
		{name: "vip multihop", flags: f(domain.SourceUniswapV2) | f(domain.SourceMultiHop), want: 46_000},
		{name: "vip with curve", flags: f(domain.SourceUniswapV2) | f(domain.SourceCurve), want: 150_000},
		{name: "multihop with balancer", flags: f(domain.SourceMultiHop) | f(domain.SourceBalancer), want: 150_000},
		{name: "no sources", flags: 0, want: 150_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, r.ExchangeOverhead(tt.flags))
		})
	}
}

func TestGasEstimate(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name   string
		source domain.Source
		data   domain.FillData
		want   uint64
	}{
		{name: "uniswap v2 direct", source: domain.SourceUniswapV2, data: &domain.UniswapV2FillData{TokenAddressPath: []common.Address{weth, usdt}}, want: 90_000},
		{name: "uniswap v2 bridged", source: domain.SourceUniswapV2, data: &domain.UniswapV2FillData{TokenAddressPath: []common.Address{weth, dai, usdt}}, want: 150_000},
		{name: "uniswap v3 bridged", source: domain.SourceUniswapV3, data: &domain.UniswapV3FillData{TokenAddressPath: []common.Address{weth, dai, usdt}}, want: 132_000},
		{name: "kyber two pools", source: domain.SourceKyberDmm, data: &domain.KyberDmmFillData{PoolsPath: []common.Address{dummy, dummy}}, want: 160_000},
		{name: "curve schedule", source: domain.SourceCurve, data: &domain.CurveFillData{Pool: domain.CurveInfo{GasSchedule: 587_000}}, want: 587_000},
		{name: "balancer", source: domain.SourceBalancer, data: &domain.PoolFillData{}, want: 120_000},
		{name: "cream", source: domain.SourceCream, data: &domain.PoolFillData{}, want: 120_000},
		{name: "balancer v2", source: domain.SourceBalancerV2, data: &domain.BalancerV2FillData{}, want: 100_000},
		{name: "liquidity provider", source: domain.SourceLiquidityProvider, data: &domain.LiquidityProviderFillData{GasCost: 160_000}, want: 160_000},
		{name: "liquidity provider default", source: domain.SourceLiquidityProvider, data: &domain.LiquidityProviderFillData{}, want: 100_000},
		{name: "mooniswap", source: domain.SourceMooniswap, data: &domain.PoolFillData{}, want: 130_000},
		{name: "shell", source: domain.SourceShell, data: &domain.PoolFillData{}, want: 170_000},
		{name: "component", source: domain.SourceComponent, data: &domain.PoolFillData{}, want: 188_000},
		{name: "mstable", source: domain.SourceMStable, data: &domain.PoolFillData{}, want: 200_000},
		{name: "dodo sell base", source: domain.SourceDodo, data: &domain.DodoFillData{IsSellBase: true}, want: 180_000},
		{name: "dodo sell quote", source: domain.SourceDodo, data: &domain.DodoFillData{}, want: 300_000},
		{name: "dodo v2", source: domain.SourceDodoV2, data: &domain.DodoFillData{}, want: 100_000},
		{name: "multihop", source: domain.SourceMultiHop, data: &domain.MultiHopFillData{}, want: 0},
		{name: "unknown", source: "NotAVenue", data: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, r.GasEstimate(tt.source, tt.data))
		})
	}
}

func TestIntermediateTokens(t *testing.T) {
	r := newTestRegistry(t)

	got := r.IntermediateTokens(mir, usdt)
	require.Equal(t, []common.Address{ust, weth, dai, usdc, wbtc}, got)

	got = r.IntermediateTokens(weth, usdc)
	require.Equal(t, []common.Address{usdt, dai, wbtc}, got)
}

func TestTooManySources(t *testing.T) {
	var venues []string
	for i := 0; i < domain.MaxSources; i++ {
		venues = append(venues, fmt.Sprintf(`{"source":"Fork%d","kind":"uniswap_v2"}`, i))
	}
	raw := `{"chainId":1,"nativeToken":"0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",` +
		`"wrappedNativeToken":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","feeNativeAmount":"1",` +
		`"venues":[` + strings.Join(venues, ",") + `]}`
	chain, err := config.ParseChainConfig([]byte(raw))
	require.NoError(t, err)

	_, err = NewRegistry(chain, RegistryOpts{})
	require.ErrorIs(t, err, ErrTooManySources)
}

func TestUnknownVenueKind(t *testing.T) {
	raw := `{"chainId":1,"nativeToken":"0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",` +
		`"wrappedNativeToken":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","feeNativeAmount":"1",` +
		`"venues":[{"source":"Bancor","kind":"bancor"}]}`
	chain, err := config.ParseChainConfig([]byte(raw))
	require.NoError(t, err)

	_, err = NewRegistry(chain, RegistryOpts{})
	require.ErrorIs(t, err, ErrUnknownVenueKind)
}

func TestSampleOperationsSkipsBannedAndUnconfigured(t *testing.T) {
	chain, err := config.ParseChainConfig([]byte(bannedChainJSON))
	require.NoError(t, err)
	r, err := NewRegistry(chain, RegistryOpts{})
	require.NoError(t, err)

	sources := []domain.Source{domain.SourceUniswapV2, domain.SourceSushiSwap, domain.SourceCryptoCom, "NotAVenue"}
	q := SampleQuery{Side: domain.SideSell, TakerToken: aave, MakerToken: usdt, Amounts: amountsOf(1, 2)}

	ops := r.SampleOperations(sources, q)
	require.Len(t, ops, 1)
	require.Equal(t, domain.SourceUniswapV2, ops[0].Source())
	require.True(t, r.IsBanned(domain.SourceSushiSwap, usdt, aave))

	q.TakerToken = weth
	ops = r.SampleOperations(sources, q)
	require.Len(t, ops, 2)

	require.Equal(t, []domain.Source{domain.SourceUniswapV2}, r.FeeSources())
	require.Equal(t, []domain.Source{domain.SourceSushiSwap}, r.DefaultExcludedSources())
	require.Equal(t, []domain.Source{domain.SourceUniswapV2, domain.SourceCryptoCom},
		r.EnabledSources([]domain.Source{"sushiswap"}))
}

func TestUniswapV3SettlementPicksCoveringPath(t *testing.T) {
	r := newTestRegistry(t)
	data := &domain.UniswapV3FillData{
		TokenAddressPath: []common.Address{weth, usdt},
		PathAmounts: []domain.UniswapV3PathAmount{
			{UniswapPath: []byte{0x01}, InputAmount: uint256.NewInt(100)},
			{UniswapPath: []byte{0x02}, InputAmount: uint256.NewInt(200)},
			{UniswapPath: []byte{0x03}, InputAmount: uint256.NewInt(300)},
		},
	}

	tests := []struct {
		input uint64
		want  byte
	}{
		{input: 50, want: 0x01},
		{input: 100, want: 0x01},
		{input: 150, want: 0x02},
		{input: 300, want: 0x03},
		{input: 900, want: 0x03},
	}
	for _, tt := range tests {
		fill := &domain.CollapsedFill{Source: domain.SourceUniswapV3, FillData: data, Input: uint256.NewInt(tt.input)}
		got, ok := r.BuildSettlementParams(fill).(*domain.UniswapV3FillData)
		require.True(t, ok)
		require.Equal(t, []byte{tt.want}, got.UniswapPath, "input %d", tt.input)
		require.Nil(t, got.PathAmounts)
	}

	plain := &domain.CollapsedFill{Source: domain.SourceCurve, FillData: &domain.CurveFillData{}}
	require.Same(t, plain.FillData, r.BuildSettlementParams(plain))
}
