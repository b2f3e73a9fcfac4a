package sampler

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSamplerABIMethods(t *testing.T) {
	for _, name := range []string{
		MethodBatchCall,
		MethodTokenDecimals,
		MethodSampleTwoHopSell,
		MethodSampleTwoHopBuy,
		"sampleSellsFromUniswapV2",
		"sampleBuysFromUniswapV3",
		"sampleSellsFromCurve",
		"sampleBuysFromBalancerV2",
		"sampleSellsFromDODOV2",
		"sampleBuysFromKyberDmm",
	} {
		if _, ok := SamplerABI.Methods[name]; !ok {
			t.Errorf("method %s missing from sampler abi", name)
		}
	}
}

func TestToAmounts(t *testing.T) {
	overflow := new(big.Int).Lsh(big.NewInt(1), 256)

	tests := []struct {
		name    string
		value   interface{}
		want    []uint64
		wantErr bool
	}{
		{name: "amounts", value: []*big.Int{big.NewInt(1), big.NewInt(42)}, want: []uint64{1, 42}},
		{name: "empty", value: []*big.Int{}, want: []uint64{}},
		{name: "negative", value: []*big.Int{big.NewInt(-1)}, wantErr: true},
		{name: "overflow", value: []*big.Int{overflow}, wantErr: true},
		{name: "wrong type", value: common.Address{}, wantErr: true},
		{name: "nil", value: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToAmounts(tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Fatalf("expected ErrDecode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d amounts, got %d", len(tt.want), len(got))
			}
			for i, w := range tt.want {
				if got[i].Uint64() != w {
					t.Errorf("amount %d: expected %d, got %d", i, w, got[i].Uint64())
				}
			}
		})
	}
}

func TestDecodeBatchRoundTrip(t *testing.T) {
	in := []CallResult{
		{Data: []byte{0xde, 0xad}, Success: true},
		{Data: nil, Success: false},
	}
	raw, err := SamplerABI.Methods[MethodBatchCall].Outputs.Pack(in)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	out, err := DecodeBatch(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || !out[0].Success || out[1].Success {
		t.Fatalf("unexpected results %+v", out)
	}
	if string(out[0].Data) != string(in[0].Data) {
		t.Errorf("expected data %x, got %x", in[0].Data, out[0].Data)
	}
}

func TestDecodeBatchGarbage(t *testing.T) {
	if _, err := DecodeBatch([]byte{0x01}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestTokenDecimalsOutOfRange(t *testing.T) {
	op := TokenDecimals(tokenA)
	raw, err := SamplerABI.Methods[MethodTokenDecimals].Outputs.Pack([]*big.Int{big.NewInt(300)})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if err := op.OnSuccess(raw); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	op.OnError(raw)
	if got := op.Result(); len(got) != 1 || got[0] != 0 {
		t.Errorf("expected fallback decimals, got %v", got)
	}
}

func BenchmarkEncodeBatch(b *testing.B) {
	amounts := ToBigAmounts(amountsOf(1, 2, 3, 4, 5))
	calls := make([][]byte, 0, 32)
	for i := 0; i < 32; i++ {
		call, err := Pack("sampleSellsFromUniswapV2", routerAddr, []common.Address{tokenA, tokenB}, amounts)
		if err != nil {
			b.Fatal(err)
		}
		calls = append(calls, call)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeBatch(calls); err != nil {
			b.Fatal(err)
		}
	}
}
