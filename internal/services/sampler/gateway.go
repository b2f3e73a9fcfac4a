package sampler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/itsib/hyper-dex-swap-node/internal/metrics"
)

// DefaultGasLimit is the gas granted to one aggregated sampler call.
const DefaultGasLimit uint64 = 500_000_000

var ErrSamplerCall = errors.New("sampler call failed")

// ContractCaller executes a read-only contract call. It is satisfied by
// ethclient.Client and by the state override caller of the blockchain adapter.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type GatewayOpts struct {
	Address  common.Address
	GasLimit uint64
}

// Gateway batches sampling operations into one eth_call against the sampler.
type Gateway struct {
	caller   ContractCaller
	address  common.Address
	gasLimit uint64
}

func NewGateway(caller ContractCaller, opts GatewayOpts) *Gateway {
	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	return &Gateway{
		caller:   caller,
		address:  opts.Address,
		gasLimit: gasLimit,
	}
}

func (g *Gateway) Address() common.Address {
	return g.address
}

// Call sends calls as one batchCall and returns their results in order.
func (g *Gateway) Call(ctx context.Context, calls [][]byte) ([]CallResult, error) {
	payload, err := EncodeBatch(calls)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrSamplerCall, err)
	}

	to := g.address
	start := time.Now()
	raw, err := g.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Gas:  g.gasLimit,
		Data: payload,
	}, nil)
	metrics.SamplerBatchDuration.Observe(time.Since(start).Seconds())
	metrics.SamplerBatchSize.Observe(float64(len(calls)))
	if err != nil {
		metrics.SamplerBatchErrors.Inc()
		return nil, fmt.Errorf("%w: %w", ErrSamplerCall, err)
	}

	results, err := DecodeBatch(raw)
	if err != nil {
		metrics.SamplerBatchErrors.Inc()
		return nil, fmt.Errorf("%w: %w", ErrSamplerCall, err)
	}
	if len(results) != len(calls) {
		metrics.SamplerBatchErrors.Inc()
		return nil, fmt.Errorf("%w: %w", ErrSamplerCall, ErrResultsMismatch)
	}
	return results, nil
}

// Execute runs ops in a single round trip and dispatches every result back
// to its operation. When all operations are no-ops nothing is sent.
func (g *Gateway) Execute(ctx context.Context, ops ...Operation) error {
	calls := nonEmptyCalls(ops)
	if len(calls) == 0 {
		for _, op := range ops {
			_ = op.OnSuccess(nil)
		}
		return nil
	}

	results, err := g.Call(ctx, calls)
	if err != nil {
		log.Error().Err(err).Int("calls", len(calls)).Msg("[SamplerGateway] batch call failed")
		return err
	}
	return dispatch(ops, results)
}
