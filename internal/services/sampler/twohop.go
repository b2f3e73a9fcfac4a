package sampler

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

// TwoHopOperation asks the sampler for the best route through one
// intermediate token. Every first-hop operation trades the input token for
// the intermediate and every second-hop operation the intermediate for the
// output token; the sampler reports the winning pair of sub-calls.
type TwoHopOperation struct {
	side         domain.Side
	intermediate common.Address
	firstHop     []*SourceOperation
	secondHop    []*SourceOperation
	amount       *uint256.Int
	callData     []byte
	sample       *domain.Sample
}

func NewTwoHopOperation(
	side domain.Side,
	intermediate common.Address,
	firstHop, secondHop []*SourceOperation,
	amount *uint256.Int,
) *TwoHopOperation {
	op := &TwoHopOperation{
		side:         side,
		intermediate: intermediate,
		firstHop:     nonEmptyOps(firstHop),
		secondHop:    nonEmptyOps(secondHop),
		amount:       amount,
	}
	if len(op.firstHop) == 0 || len(op.secondHop) == 0 || amount == nil {
		return op
	}

	callData, err := Pack(op.method(), opCalls(op.firstHop), opCalls(op.secondHop), amount.ToBig())
	if err != nil {
		log.Warn().Err(err).Str("intermediate", intermediate.Hex()).Msg("[Sampler] failed to encode two-hop operation")
		return op
	}
	op.callData = callData
	return op
}

func (op *TwoHopOperation) method() string {
	if op.side == domain.SideSell {
		return MethodSampleTwoHopSell
	}
	return MethodSampleTwoHopBuy
}

func (op *TwoHopOperation) Intermediate() common.Address {
	return op.intermediate
}

func (op *TwoHopOperation) CallData() []byte {
	return op.callData
}

func (op *TwoHopOperation) OnSuccess(data []byte) error {
	op.sample = nil
	if len(data) == 0 {
		return nil
	}

	values, err := Unpack(op.method(), data)
	if err != nil {
		return err
	}
	if len(values) != 3 {
		return fmt.Errorf("%w: two-hop returned %d values", ErrDecode, len(values))
	}
	first, err := Convert[HopInfo](values[0])
	if err != nil {
		return err
	}
	second, err := Convert[HopInfo](values[1])
	if err != nil {
		return err
	}
	raw, err := Convert[*big.Int](values[2])
	if err != nil {
		return err
	}
	output, overflow := uint256.FromBig(raw)
	if overflow || raw.Sign() < 0 {
		return fmt.Errorf("%w: two-hop amount out of range", ErrDecode)
	}
	if output.IsZero() {
		return nil
	}

	firstOp, err := pickHop(op.firstHop, first)
	if err != nil {
		return err
	}
	secondOp, err := pickHop(op.secondHop, second)
	if err != nil {
		return err
	}
	if err := firstOp.OnSuccess(first.ReturnData); err != nil {
		return err
	}
	if err := secondOp.OnSuccess(second.ReturnData); err != nil {
		return err
	}

	op.sample = &domain.Sample{
		Source: domain.SourceMultiHop,
		FillData: &domain.MultiHopFillData{
			IntermediateToken: op.intermediate,
			FirstHop:          domain.HopSample{Source: firstOp.Source(), FillData: firstOp.FillData()},
			SecondHop:         domain.HopSample{Source: secondOp.Source(), FillData: secondOp.FillData()},
		},
		Input:  op.amount.Clone(),
		Output: output,
	}
	return nil
}

func pickHop(ops []*SourceOperation, hop HopInfo) (*SourceOperation, error) {
	if hop.SourceIndex == nil || !hop.SourceIndex.IsInt64() {
		return nil, fmt.Errorf("%w: missing hop index", ErrDecode)
	}
	idx := hop.SourceIndex.Int64()
	if idx < 0 || idx >= int64(len(ops)) {
		return nil, fmt.Errorf("%w: hop index %d out of range", ErrDecode, idx)
	}
	return ops[idx], nil
}

func (op *TwoHopOperation) OnError(_ []byte) {
	op.sample = nil
}

// Sample is nil when no route through the intermediate token exists.
func (op *TwoHopOperation) Sample() *domain.Sample {
	return op.sample
}

func nonEmptyOps(ops []*SourceOperation) []*SourceOperation {
	out := make([]*SourceOperation, 0, len(ops))
	for _, op := range ops {
		if op != nil && len(op.CallData()) > 0 {
			out = append(out, op)
		}
	}
	return out
}

func opCalls(ops []*SourceOperation) [][]byte {
	calls := make([][]byte, len(ops))
	for i, op := range ops {
		calls[i] = op.CallData()
	}
	return calls
}
