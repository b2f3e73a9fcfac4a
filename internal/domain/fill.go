package domain

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// NoParent marks a fill that starts its chain.
const NoParent = -1

// Sample is one measured point on a venue's price curve.
type Sample struct {
	Source   Source
	FillData FillData
	Input    *uint256.Int
	Output   *uint256.Int
}

// SampleSet is ascending by input and produced from one probe schedule.
type SampleSet []Sample

// Fill is a marginal slice of a venue's price curve. Fills are owned by an
// arena; Parent is the arena index of the preceding fill of the same chain.
type Fill struct {
	ID             int
	Index          int
	Parent         int
	Source         Source
	FillData       FillData
	Input          *uint256.Int
	Output         *uint256.Int
	AdjustedOutput decimal.Decimal
	Flags          SourceFlags
}

func (f *Fill) HasParent() bool {
	return f.Parent != NoParent
}

// CollapsedFill is a run of contiguous fills from the same chain.
type CollapsedFill struct {
	ID       int
	Source   Source
	FillData FillData
	Input    *uint256.Int
	Output   *uint256.Int
	SubFills []SubFill
}

type SubFill struct {
	Input  *uint256.Int
	Output *uint256.Int
}
