package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Order is the settlement ready unit handed to the calldata encoder. The maker
// token is the one the taker receives.
type Order struct {
	Source      Source          `json:"source"`
	FillData    FillData        `json:"fillData"`
	MakerToken  common.Address  `json:"makerToken"`
	TakerToken  common.Address  `json:"takerToken"`
	MakerAmount *uint256.Int    `json:"makerAmount"`
	TakerAmount *uint256.Int    `json:"takerAmount"`
	Fills       []CollapsedFill `json:"-"`
}
