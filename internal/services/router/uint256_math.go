package router

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// MaxUint256 is 2^256-1, used for the open leg of a two-hop order.
	MaxUint256 = new(uint256.Int).SetAllOne()

	u256Zero = uint256.NewInt(0)
)

// ToDecimal converts an on-chain amount into an exact decimal.
func ToDecimal(v *uint256.Int) decimal.Decimal {
	if v == nil || v.IsZero() {
		return decimal.Zero
	}
	if v.IsUint64() && v.Uint64() <= 1<<62 {
		return decimal.NewFromInt(int64(v.Uint64()))
	}
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// FromDecimal truncates d toward zero. Negative values clamp to zero and
// values above 2^256-1 saturate.
func FromDecimal(d decimal.Decimal) *uint256.Int {
	if !d.IsPositive() {
		return new(uint256.Int)
	}
	v, overflow := uint256.FromBig(d.BigInt())
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return v
}

// SubSat returns a - b, or zero when b > a.
func SubSat(a, b *uint256.Int) *uint256.Int {
	out, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return out.Clear()
	}
	return out
}

// MulDiv performs (a * b) / c with a 512-bit intermediate. A zero divisor
// yields zero; an overflowing result saturates.
func MulDiv(a, b, c *uint256.Int) *uint256.Int {
	if c.IsZero() {
		return new(uint256.Int)
	}
	out, overflow := new(uint256.Int).MulDivOverflow(a, b, c)
	if overflow {
		return out.SetAllOne()
	}
	return out
}

// MinU256 returns a copy of the smaller value.
func MinU256(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

func cloneU256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
