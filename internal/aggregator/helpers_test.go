package aggregator

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/services/market"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

var (
	weth   = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	dai    = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
	usdc   = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	native = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

	samplerAddr = common.HexToAddress("0x5555555555555555555555555555555555555555")
	somePool    = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

var tokenDecimals = map[common.Address]int64{weth: 18, dai: 18, usdc: 6}

type fixedGasPrice int64

func (g fixedGasPrice) GasPrice(context.Context) *big.Int {
	return big.NewInt(int64(g))
}

// linearNode answers every venue probe with amount × rate and never finds a
// two-hop route.
type linearNode struct {
	t    *testing.T
	rate int64
	err  error
}

func (n *linearNode) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if n.err != nil {
		return nil, n.err
	}
	require.Equal(n.t, samplerAddr, *msg.To)
	return n.answer(msg.Data), nil
}

func (n *linearNode) answer(call []byte) []byte {
	m, err := sampler.SamplerABI.MethodById(call[:4])
	require.NoError(n.t, err)
	args, err := m.Inputs.Unpack(call[4:])
	require.NoError(n.t, err)

	switch m.Name {
	case sampler.MethodBatchCall:
		calls := args[0].([][]byte)
		results := make([]sampler.CallResult, len(calls))
		for i, c := range calls {
			results[i] = sampler.CallResult{Data: n.answer(c), Success: true}
		}
		return n.pack(m, results)
	case sampler.MethodTokenDecimals:
		tokens := args[0].([]common.Address)
		out := make([]*big.Int, len(tokens))
		for i, tok := range tokens {
			out[i] = big.NewInt(tokenDecimals[tok])
		}
		return n.pack(m, out)
	case sampler.MethodSampleTwoHopSell, sampler.MethodSampleTwoHopBuy:
		empty := sampler.HopInfo{SourceIndex: big.NewInt(0)}
		return n.pack(m, empty, empty, new(big.Int))
	}

	probes := args[len(args)-1].([]*big.Int)
	outputs := make([]*big.Int, len(probes))
	for i, p := range probes {
		outputs[i] = new(big.Int).Mul(p, big.NewInt(n.rate))
	}
	values := make([]interface{}, len(m.Outputs))
	for i, out := range m.Outputs {
		switch out.Type.T {
		case abi.BoolTy:
			values[i] = true
		case abi.AddressTy:
			values[i] = somePool
		default:
			switch out.Type.Elem.T {
			case abi.BytesTy:
				paths := make([][]byte, len(probes))
				for j := range paths {
					paths[j] = []byte{byte(j + 1)}
				}
				values[i] = paths
			case abi.AddressTy:
				values[i] = []common.Address{somePool}
			default:
				values[i] = outputs
			}
		}
	}
	return n.pack(m, values...)
}

func (n *linearNode) pack(m *abi.Method, values ...interface{}) []byte {
	data, err := m.Outputs.Pack(values...)
	require.NoError(n.t, err)
	return data
}

type offline struct{}

func (offline) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled")
}

func newTestService(t *testing.T, node *linearNode) *Service {
	t.Helper()
	chain, err := config.LoadChainConfig("")
	require.NoError(t, err)
	registry, err := market.NewRegistry(chain, market.RegistryOpts{HTTPClient: offline{}})
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	gateway := sampler.NewGateway(node, sampler.GatewayOpts{Address: samplerAddr})
	return New(registry, gateway, fixedGasPrice(30_000_000_000), Opts{
		DefaultSlippage: decimal.RequireFromString("0.01"),
	})
}
