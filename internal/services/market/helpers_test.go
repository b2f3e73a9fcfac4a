package market

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

var (
	weth  = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	usdt  = common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")
	dai   = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	usdc  = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	wbtc  = common.HexToAddress("0x2260fac5e5542a773aa44fbcfedf7c193bc2c599")
	link  = common.HexToAddress("0x514910771af9ca656af840dff83e8264ecf986ca")
	susd  = common.HexToAddress("0x57ab1ec28d129707052df4df418d58a2d46d5f51")
	ust   = common.HexToAddress("0xa47c8bf37f92abed4a126bda807a7b7498661acd")
	mir   = common.HexToAddress("0x09a3ecafa817268f77be1283176b946c4ff2e608")
	aave  = common.HexToAddress("0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9")
	dummy = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

func mainnet(t testing.TB) *config.ChainConfig {
	t.Helper()
	chain, err := config.LoadChainConfig("")
	require.NoError(t, err)
	return chain
}

func newTestRegistry(t testing.TB) *Registry {
	t.Helper()
	r, err := NewRegistry(mainnet(t), RegistryOpts{HTTPClient: unreachable{}})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func amountsOf(values ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = uint256.NewInt(v)
	}
	return out
}

type callHandler func(t *testing.T, method *abi.Method, args []interface{}) sampler.CallResult

// fakeCaller answers the sub-calls of a batchCall through handle.
type fakeCaller struct {
	t      *testing.T
	handle callHandler
	calls  int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	method, err := sampler.SamplerABI.MethodById(msg.Data[:4])
	require.NoError(f.t, err)
	require.Equal(f.t, sampler.MethodBatchCall, method.Name)

	args, err := method.Inputs.Unpack(msg.Data[4:])
	require.NoError(f.t, err)
	calls := args[0].([][]byte)

	results := make([]sampler.CallResult, len(calls))
	for i, call := range calls {
		m, err := sampler.SamplerABI.MethodById(call[:4])
		require.NoError(f.t, err)
		a, err := m.Inputs.Unpack(call[4:])
		require.NoError(f.t, err)
		results[i] = f.handle(f.t, m, a)
	}
	return method.Outputs.Pack(results)
}

func respond(t *testing.T, method *abi.Method, values ...interface{}) sampler.CallResult {
	data, err := method.Outputs.Pack(values...)
	require.NoError(t, err)
	return sampler.CallResult{Data: data, Success: true}
}

func execute(t *testing.T, handle callHandler, ops ...*sampler.SourceOperation) {
	t.Helper()
	caller := &fakeCaller{t: t, handle: handle}
	gw := sampler.NewGateway(caller, sampler.GatewayOpts{Address: common.HexToAddress("0x5555555555555555555555555555555555555555")})
	list := make([]sampler.Operation, len(ops))
	for i, op := range ops {
		list[i] = op
	}
	require.NoError(t, gw.Execute(context.Background(), list...))
}

// unreachable fails every subgraph request.
type unreachable struct{}

func (unreachable) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled")
}
