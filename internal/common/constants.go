// Package common contains common constants and variables used across services
package common

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// NullAddress is the zero address. Some venues use it for the native asset.
	NullAddress = common.Address{}

	// NativeAddress is the sentinel API callers use for the native asset.
	NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
)

const (
	// TxBaseGas is the intrinsic gas of any transaction.
	TxBaseGas uint64 = 21_000
	// ProtocolBaseGas is charged on top of the fills of a settled quote.
	ProtocolBaseGas uint64 = 150_000
)

// OneEther is 1e18 base units.
var OneEther = uint256.NewInt(1_000_000_000_000_000_000)

// IsNative reports whether token is the native asset sentinel.
func IsNative(token common.Address) bool {
	return token == NativeAddress
}
