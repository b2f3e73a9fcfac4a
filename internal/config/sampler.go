package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andrew-solarstorm/go-packages/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

type SamplerConfig struct {
	// Address is the account the sampler is called at. When Bytecode is set
	// the account code is replaced for the duration of the call, so any
	// address works.
	Address  ethcommon.Address
	Bytecode []byte
	GasLimit uint64

	// SampleCount is the number of probe amounts per venue and route.
	SampleCount int
	// DistributionBase spreads probe amounts geometrically towards the target.
	DistributionBase decimal.Decimal

	// RunLimit bounds the merge search of the path optimizer.
	RunLimit int

	DefaultSlippage decimal.Decimal
}

func (c *SamplerConfig) Key() string {
	return SAMPLER_CONFIG_KEY
}

func (c *SamplerConfig) Load() error {
	addr := common.GetEnvOrDefault("SAMPLER_ADDRESS", "0x5555555555555555555555555555555555555555")
	if !ethcommon.IsHexAddress(addr) {
		return fmt.Errorf("invalid SAMPLER_ADDRESS %q", addr)
	}
	c.Address = ethcommon.HexToAddress(addr)

	if raw := strings.TrimSpace(common.GetEnvOrDefault("SAMPLER_BYTECODE", "")); raw != "" {
		code, err := hexutil.Decode(raw)
		if err != nil {
			return fmt.Errorf("invalid SAMPLER_BYTECODE: %w", err)
		}
		c.Bytecode = code
	}

	c.GasLimit = uint64(common.GetEnvOrDefaultInt("SAMPLER_GAS_LIMIT", 500_000_000))
	c.SampleCount = common.GetEnvOrDefaultInt("SAMPLE_COUNT", 5)
	c.RunLimit = common.GetEnvOrDefaultInt("SAMPLER_RUN_LIMIT", 256)

	base, err := decimal.NewFromString(common.GetEnvOrDefault("SAMPLE_DISTRIBUTION_BASE", "1.25"))
	if err != nil {
		return fmt.Errorf("invalid SAMPLE_DISTRIBUTION_BASE: %w", err)
	}
	c.DistributionBase = base

	slippage, err := decimal.NewFromString(common.GetEnvOrDefault("DEFAULT_SLIPPAGE", "0.01"))
	if err != nil {
		return fmt.Errorf("invalid DEFAULT_SLIPPAGE: %w", err)
	}
	c.DefaultSlippage = slippage
	return c.Validate()
}

func (c *SamplerConfig) Validate() error {
	if c.Address == (ethcommon.Address{}) {
		return errors.New("invalid sampler config: zero sampler address")
	}
	if c.GasLimit == 0 || c.SampleCount < 1 || c.RunLimit < 1 {
		return errors.New("invalid sampler config")
	}
	if !c.DistributionBase.IsPositive() {
		return errors.New("invalid sampler config: distribution base must be positive")
	}
	if c.DefaultSlippage.IsNegative() || c.DefaultSlippage.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("invalid sampler config: slippage out of [0, 1]")
	}
	return nil
}
