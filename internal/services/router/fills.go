package router

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

// FillChain lists the arena indices of one sample set's fills, in order.
type FillChain []int

// FillArena owns every fill built for one quote. Paths refer to fills by
// index so they can be cloned by copying an index slice.
type FillArena struct {
	fills   []domain.Fill
	inputs  []decimal.Decimal
	outputs []decimal.Decimal
}

func NewFillArena(capacity int) *FillArena {
	return &FillArena{
		fills:   make([]domain.Fill, 0, capacity),
		inputs:  make([]decimal.Decimal, 0, capacity),
		outputs: make([]decimal.Decimal, 0, capacity),
	}
}

func (a *FillArena) Len() int {
	return len(a.fills)
}

// Get returns the fill stored at idx. The pointer is valid until the next
// AddSampleSet call.
func (a *FillArena) Get(idx int) *domain.Fill {
	return &a.fills[idx]
}

func (a *FillArena) amounts(idx int) (decimal.Decimal, decimal.Decimal) {
	return a.inputs[idx], a.outputs[idx]
}

func (a *FillArena) push(f domain.Fill, input, output decimal.Decimal) int {
	a.fills = append(a.fills, f)
	a.inputs = append(a.inputs, input)
	a.outputs = append(a.outputs, output)
	return len(a.fills) - 1
}

func (a *FillArena) truncate(n int) {
	a.fills = a.fills[:n]
	a.inputs = a.inputs[:n]
	a.outputs = a.outputs[:n]
}

// AddSampleSet turns an ascending sample set into a chain of marginal fills.
// Zero output samples are skipped, only the first fill carries the gas
// penalty, and the chain stops once its input reaches target. A chain with no
// input or no output is rolled back and nil is returned.
func (a *FillArena) AddSampleSet(
	id int,
	side domain.Side,
	samples domain.SampleSet,
	target *uint256.Int,
	opts PenaltyOpts,
	fees FeeSchedule,
) FillChain {
	start := a.Len()
	chain := make(FillChain, 0, len(samples))

	prevInput, prevOutput := u256Zero, u256Zero
	totalInput, totalOutput := new(uint256.Int), new(uint256.Int)
	parent := domain.NoParent

	for i := range samples {
		s := &samples[i]
		if s.Output == nil || s.Output.IsZero() {
			continue
		}
		if !totalInput.Lt(target) {
			break
		}

		input := SubSat(s.Input, prevInput)
		output := SubSat(s.Output, prevOutput)
		prevInput, prevOutput = s.Input, s.Output

		inputDec, outputDec := ToDecimal(input), ToDecimal(output)
		var penalty decimal.Decimal
		if len(chain) == 0 {
			penalty = gasPenalty(fees.GasEstimate(s.Source, s.FillData), opts, inputDec, outputDec)
		}

		idx := a.push(domain.Fill{
			ID:             id,
			Index:          len(chain),
			Parent:         parent,
			Source:         s.Source,
			FillData:       s.FillData,
			Input:          input,
			Output:         output,
			AdjustedOutput: adjustOutput(side, outputDec, penalty),
			Flags:          fees.Flag(s.Source),
		}, inputDec, outputDec)

		parent = idx
		chain = append(chain, idx)
		totalInput.Add(totalInput, input)
		totalOutput.Add(totalOutput, output)
	}

	if len(chain) == 0 || totalInput.IsZero() || totalOutput.IsZero() {
		a.truncate(start)
		return nil
	}
	return chain
}

// BuildFills converts every sample set into a fill chain, dropping the ones
// that carry no liquidity. Chain ids are the chain's position in the result.
func BuildFills(
	side domain.Side,
	sets []domain.SampleSet,
	target *uint256.Int,
	opts PenaltyOpts,
	fees FeeSchedule,
) (*FillArena, []FillChain) {
	capacity := 0
	for _, set := range sets {
		capacity += len(set)
	}

	arena := NewFillArena(capacity)
	chains := make([]FillChain, 0, len(sets))
	for _, set := range sets {
		if chain := arena.AddSampleSet(len(chains), side, set, target, opts, fees); chain != nil {
			chains = append(chains, chain)
		}
	}
	return arena, chains
}
