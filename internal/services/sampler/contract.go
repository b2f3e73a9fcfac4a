package sampler

import (
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

//go:embed sampler_abi.json
var samplerABIJSON string

// SamplerABI is the interface of the on-chain bridge sampler.
var SamplerABI = mustParseABI(samplerABIJSON)

const (
	MethodBatchCall        = "batchCall"
	MethodTokenDecimals    = "getTokenDecimals"
	MethodSampleTwoHopSell = "sampleTwoHopSell"
	MethodSampleTwoHopBuy  = "sampleTwoHopBuy"
)

var (
	ErrDecode          = errors.New("sampler: cannot decode call result")
	ErrResultsMismatch = errors.New("sampler: result count does not match operations")
)

// CallResult is one entry of a batchCall response.
type CallResult struct {
	Data    []byte
	Success bool
}

// HopInfo identifies the winning sub-call of a two-hop leg.
type HopInfo struct {
	SourceIndex *big.Int
	ReturnData  []byte
}

// CurvePoolArg is the curveInfo tuple of the curve samplers.
type CurvePoolArg struct {
	PoolAddress               common.Address
	SellQuoteFunctionSelector [4]byte
	BuyQuoteFunctionSelector  [4]byte
}

type BalancerV2PoolArg struct {
	PoolId [32]byte
	Vault  common.Address
}

type DodoOptsArg struct {
	Registry common.Address
	Helper   common.Address
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("sampler: invalid embedded abi: %v", err))
	}
	return parsed
}

// Pack encodes a call of the named sampler method.
func Pack(method string, args ...interface{}) ([]byte, error) {
	return SamplerABI.Pack(method, args...)
}

// Unpack decodes the return data of the named sampler method.
func Unpack(method string, data []byte) ([]interface{}, error) {
	values, err := SamplerABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, method, err)
	}
	return values, nil
}

// Convert casts an unpacked abi value into T. The abi package panics on
// shape mismatches, which are reported as ErrDecode instead.
func Convert[T any](value interface{}) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()
	if value == nil {
		return out, fmt.Errorf("%w: nil value", ErrDecode)
	}
	out = *abi.ConvertType(value, new(T)).(*T)
	return out, nil
}

// DecodeAmounts unpacks method and converts the output at index into amounts.
func DecodeAmounts(method string, data []byte, index int) ([]*uint256.Int, error) {
	values, err := Unpack(method, data)
	if err != nil {
		return nil, err
	}
	if index >= len(values) {
		return nil, fmt.Errorf("%w: %s has %d outputs", ErrDecode, method, len(values))
	}
	return ToAmounts(values[index])
}

// ToAmounts converts an unpacked uint256[] into native amounts.
func ToAmounts(value interface{}) ([]*uint256.Int, error) {
	raw, err := Convert[[]*big.Int](value)
	if err != nil {
		return nil, err
	}
	out := make([]*uint256.Int, len(raw))
	for i, v := range raw {
		if v == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: invalid amount at %d", ErrDecode, i)
		}
		amount, overflow := uint256.FromBig(v)
		if overflow {
			return nil, fmt.Errorf("%w: amount overflow at %d", ErrDecode, i)
		}
		out[i] = amount
	}
	return out, nil
}

// ToBigAmounts converts amounts into the representation the abi encoder expects.
func ToBigAmounts(amounts []*uint256.Int) []*big.Int {
	out := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		if a == nil {
			out[i] = new(big.Int)
			continue
		}
		out[i] = a.ToBig()
	}
	return out
}

// EncodeBatch packs calls into one batchCall payload.
func EncodeBatch(calls [][]byte) ([]byte, error) {
	return Pack(MethodBatchCall, calls)
}

// DecodeBatch unpacks the results of a batchCall payload.
func DecodeBatch(data []byte) ([]CallResult, error) {
	values, err := Unpack(MethodBatchCall, data)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: batchCall returned %d values", ErrDecode, len(values))
	}
	return Convert[[]CallResult](values[0])
}
