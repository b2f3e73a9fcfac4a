package router

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

func TestMulDiv(t *testing.T) {
	big := new(uint256.Int).Lsh(u(1), 200)
	tests := []struct {
		name    string
		a, b, c *uint256.Int
		want    *uint256.Int
	}{
		{"simple", u(10), u(3), u(4), u(7)},
		{"wide intermediate", big, big, big, big},
		{"zero divisor", u(10), u(3), u(0), u(0)},
		{"saturates", MaxUint256, MaxUint256, u(1), MaxUint256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MulDiv(tt.a, tt.b, tt.c); !got.Eq(tt.want) {
				t.Errorf("MulDiv() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecimalConversions(t *testing.T) {
	huge := new(uint256.Int).Lsh(u(1), 255)

	if got := ToDecimal(huge); got.String() != huge.Dec() {
		t.Errorf("ToDecimal(2^255) = %s", got)
	}
	if got := FromDecimal(ToDecimal(huge)); !got.Eq(huge) {
		t.Errorf("round trip of 2^255 = %s", got)
	}
	if got := FromDecimal(decimal.RequireFromString("12.99")); got.Uint64() != 12 {
		t.Errorf("FromDecimal truncates, got %s", got)
	}
	if got := FromDecimal(decimal.NewFromInt(-5)); !got.IsZero() {
		t.Errorf("negative values clamp to zero, got %s", got)
	}
	overflow := ToDecimal(MaxUint256).Add(decimal.NewFromInt(1))
	if got := FromDecimal(overflow); !got.Eq(MaxUint256) {
		t.Errorf("overflow saturates, got %s", got)
	}
}

func TestSubSat(t *testing.T) {
	if got := SubSat(u(5), u(3)); got.Uint64() != 2 {
		t.Errorf("SubSat(5, 3) = %s", got)
	}
	if got := SubSat(u(3), u(5)); !got.IsZero() {
		t.Errorf("SubSat(3, 5) = %s, want 0", got)
	}
}

func BenchmarkMulDiv(b *testing.B) {
	x := new(uint256.Int).Lsh(u(1), 200)
	y := u(997)
	z := u(1000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = MulDiv(x, y, z)
	}
}
