package liquidity

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
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

func newTestRegistry(t testing.TB) *market.Registry {
	t.Helper()
	chain, err := config.LoadChainConfig("")
	require.NoError(t, err)
	r, err := market.NewRegistry(chain, market.RegistryOpts{HTTPClient: offline{}})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

// quoteFunc prices one probe of a venue method.
type quoteFunc func(method string, args []interface{}, amount *big.Int) *big.Int

func multiplier(n int64) quoteFunc {
	return func(_ string, _ []interface{}, amount *big.Int) *big.Int {
		return new(big.Int).Mul(amount, big.NewInt(n))
	}
}

// fakeNode answers sampler payloads the way the deployed contract would,
// including nested batches and two-hop calls.
type fakeNode struct {
	t      *testing.T
	quote  quoteFunc
	twoHop *big.Int
	err    error

	mu      sync.Mutex
	methods map[string]int
}

func newFakeNode(t *testing.T, quote quoteFunc) *fakeNode {
	return &fakeNode{t: t, quote: quote, methods: make(map[string]int)}
}

func (n *fakeNode) gateway() *sampler.Gateway {
	return sampler.NewGateway(n, sampler.GatewayOpts{Address: samplerAddr})
}

func (n *fakeNode) seen(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.methods[method]
}

func (n *fakeNode) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if n.err != nil {
		return nil, n.err
	}
	require.Equal(n.t, samplerAddr, *msg.To)
	return n.answer(msg.Data).Data, nil
}

func (n *fakeNode) answer(call []byte) sampler.CallResult {
	m, err := sampler.SamplerABI.MethodById(call[:4])
	require.NoError(n.t, err)
	args, err := m.Inputs.Unpack(call[4:])
	require.NoError(n.t, err)

	n.mu.Lock()
	n.methods[m.Name]++
	n.mu.Unlock()

	switch m.Name {
	case sampler.MethodBatchCall:
		calls := args[0].([][]byte)
		results := make([]sampler.CallResult, len(calls))
		for i, c := range calls {
			results[i] = n.answer(c)
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
		if n.twoHop == nil {
			return n.pack(m, sampler.HopInfo{SourceIndex: big.NewInt(0)}, sampler.HopInfo{SourceIndex: big.NewInt(0)}, new(big.Int))
		}
		first, second := args[0].([][]byte), args[1].([][]byte)
		return n.pack(m,
			sampler.HopInfo{SourceIndex: big.NewInt(0), ReturnData: n.answer(first[0]).Data},
			sampler.HopInfo{SourceIndex: big.NewInt(0), ReturnData: n.answer(second[0]).Data},
			n.twoHop,
		)
	}

	probes := args[len(args)-1].([]*big.Int)
	outputs := make([]*big.Int, len(probes))
	for i, p := range probes {
		outputs[i] = n.quote(m.Name, args, p)
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

func (n *fakeNode) pack(m *abi.Method, values ...interface{}) sampler.CallResult {
	data, err := m.Outputs.Pack(values...)
	require.NoError(n.t, err)
	return sampler.CallResult{Data: data, Success: true}
}

type offline struct{}

func (offline) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled")
}
