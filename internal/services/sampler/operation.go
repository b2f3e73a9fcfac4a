package sampler

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
	"github.com/itsib/hyper-dex-swap-node/internal/metrics"
)

// Operation is one payload of an aggregated sampler call. An operation with
// empty call data is a no-op and receives OnSuccess(nil). OnSuccess returns an
// error when the data cannot be decoded, in which case OnError follows.
type Operation interface {
	CallData() []byte
	OnSuccess(data []byte) error
	OnError(data []byte)
}

// Decoder extracts the output amounts of a sampling call. Venue specific
// decoders also record the identities reported by the sampler (pools, paths)
// into the shared fill data.
type Decoder func(data []byte) ([]*uint256.Int, error)

// AmountsDecoder decodes methods whose only output is the amounts array.
func AmountsDecoder(method string) Decoder {
	return func(data []byte) ([]*uint256.Int, error) {
		return DecodeAmounts(method, data, 0)
	}
}

// SourceOperation samples one venue route over a list of probe amounts.
type SourceOperation struct {
	source   domain.Source
	fillData domain.FillData
	method   string
	amounts  []*uint256.Int
	callData []byte
	decode   Decoder
	samples  domain.SampleSet
}

// NewSourceOperation packs method with args. A packing failure produces a
// no-op operation that yields no samples.
func NewSourceOperation(
	source domain.Source,
	fillData domain.FillData,
	amounts []*uint256.Int,
	decode Decoder,
	method string,
	args ...interface{},
) *SourceOperation {
	if decode == nil {
		decode = AmountsDecoder(method)
	}
	op := &SourceOperation{
		source:   source,
		fillData: fillData,
		method:   method,
		amounts:  amounts,
		decode:   decode,
	}
	callData, err := Pack(method, args...)
	if err != nil {
		log.Warn().Err(err).Str("source", string(source)).Str("method", method).Msg("[Sampler] failed to encode operation")
		return op
	}
	op.callData = callData
	return op
}

func (op *SourceOperation) Source() domain.Source {
	return op.source
}

func (op *SourceOperation) FillData() domain.FillData {
	return op.fillData
}

func (op *SourceOperation) Method() string {
	return op.method
}

func (op *SourceOperation) CallData() []byte {
	return op.callData
}

func (op *SourceOperation) OnSuccess(data []byte) error {
	op.samples = nil
	if len(data) == 0 {
		return nil
	}
	outputs, err := op.decode(data)
	if err != nil {
		return err
	}
	samples := make(domain.SampleSet, 0, len(outputs))
	for i, output := range outputs {
		input := new(uint256.Int)
		if i < len(op.amounts) && op.amounts[i] != nil {
			input.Set(op.amounts[i])
		}
		samples = append(samples, domain.Sample{
			Source:   op.source,
			FillData: op.fillData,
			Input:    input,
			Output:   output,
		})
	}
	op.samples = samples
	return nil
}

func (op *SourceOperation) OnError(_ []byte) {
	op.samples = nil
	metrics.SamplerOperationFailures.WithLabelValues(string(op.source)).Inc()
	log.Debug().Str("source", string(op.source)).Str("method", op.method).Msg("[Sampler] operation reverted")
}

// Samples is empty until a successful dispatch.
func (op *SourceOperation) Samples() domain.SampleSet {
	return op.samples
}

// CallOperation is a typed sampler call that falls back to a fixed value when
// it reverts or cannot be decoded.
type CallOperation[T any] struct {
	callData []byte
	decode   func(data []byte) (T, error)
	fallback T
	result   T
}

func NewCallOperation[T any](decode func([]byte) (T, error), fallback T, method string, args ...interface{}) *CallOperation[T] {
	op := &CallOperation[T]{decode: decode, fallback: fallback, result: fallback}
	callData, err := Pack(method, args...)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Msg("[Sampler] failed to encode call")
		return op
	}
	op.callData = callData
	return op
}

func (op *CallOperation[T]) CallData() []byte {
	return op.callData
}

func (op *CallOperation[T]) OnSuccess(data []byte) error {
	if len(data) == 0 {
		op.result = op.fallback
		return nil
	}
	v, err := op.decode(data)
	if err != nil {
		return err
	}
	op.result = v
	return nil
}

func (op *CallOperation[T]) OnError(_ []byte) {
	op.result = op.fallback
}

func (op *CallOperation[T]) Result() T {
	return op.result
}

// TokenDecimals reads the decimals of tokens in one call. Unknown decimals are
// reported as zero.
func TokenDecimals(tokens ...common.Address) *CallOperation[[]uint8] {
	fallback := make([]uint8, len(tokens))
	decode := func(data []byte) ([]uint8, error) {
		amounts, err := DecodeAmounts(MethodTokenDecimals, data, 0)
		if err != nil {
			return nil, err
		}
		if len(amounts) != len(tokens) {
			return nil, fmt.Errorf("%w: expected %d decimals, got %d", ErrDecode, len(tokens), len(amounts))
		}
		out := make([]uint8, len(amounts))
		for i, a := range amounts {
			if a.GtUint64(255) {
				return nil, fmt.Errorf("%w: decimals out of range", ErrDecode)
			}
			out[i] = uint8(a.Uint64())
		}
		return out, nil
	}
	return NewCallOperation(decode, fallback, MethodTokenDecimals, tokens)
}

// Batch wraps operations into a nested batchCall so that they travel as one
// payload of the enclosing call.
type Batch struct {
	ops      []Operation
	callData []byte
}

func NewBatch(ops ...Operation) *Batch {
	b := &Batch{ops: ops}
	calls := nonEmptyCalls(ops)
	if len(calls) == 0 {
		return b
	}
	callData, err := EncodeBatch(calls)
	if err != nil {
		log.Warn().Err(err).Msg("[Sampler] failed to encode batch")
		return b
	}
	b.callData = callData
	return b
}

func (b *Batch) Operations() []Operation {
	return b.ops
}

func (b *Batch) CallData() []byte {
	return b.callData
}

func (b *Batch) OnSuccess(data []byte) error {
	if len(b.callData) == 0 || len(data) == 0 {
		for _, op := range b.ops {
			_ = op.OnSuccess(nil)
		}
		return nil
	}
	results, err := DecodeBatch(data)
	if err != nil {
		return err
	}
	return dispatch(b.ops, results)
}

func (b *Batch) OnError(data []byte) {
	for _, op := range b.ops {
		if len(op.CallData()) == 0 {
			_ = op.OnSuccess(nil)
			continue
		}
		op.OnError(data)
	}
}

func nonEmptyCalls(ops []Operation) [][]byte {
	calls := make([][]byte, 0, len(ops))
	for _, op := range ops {
		if cd := op.CallData(); len(cd) > 0 {
			calls = append(calls, cd)
		}
	}
	return calls
}

// dispatch hands results back to the non-empty operations in order. A failed
// or undecodable result goes to OnError and never affects its neighbours.
func dispatch(ops []Operation, results []CallResult) error {
	if want := len(nonEmptyCalls(ops)); want != len(results) {
		return fmt.Errorf("%w: %d operations, %d results", ErrResultsMismatch, want, len(results))
	}
	idx := 0
	for _, op := range ops {
		if len(op.CallData()) == 0 {
			_ = op.OnSuccess(nil)
			continue
		}
		res := results[idx]
		idx++
		if !res.Success {
			op.OnError(res.Data)
			continue
		}
		if err := op.OnSuccess(res.Data); err != nil {
			op.OnError(res.Data)
		}
	}
	return nil
}
