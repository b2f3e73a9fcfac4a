package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/shopspring/decimal"
)

type RPCConfig struct {
	RPCUrl  string
	Timeout time.Duration

	// GasPriceTTL is how long a fetched gas price is served before refreshing.
	GasPriceTTL time.Duration
	// FallbackGasPriceGwei is served when the node cannot be reached and no
	// price has been fetched yet.
	FallbackGasPriceGwei decimal.Decimal
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = common.GetEnvOrDefault("RPC_URL", "")
	r.Timeout = time.Duration(common.GetEnvOrDefaultInt("RPC_TIMEOUT_MS", 10_000)) * time.Millisecond
	r.GasPriceTTL = time.Duration(common.GetEnvOrDefaultInt("GAS_PRICE_TTL_MS", 15_000)) * time.Millisecond

	fallback, err := decimal.NewFromString(common.GetEnvOrDefault("FALLBACK_GAS_PRICE_GWEI", "30"))
	if err != nil {
		return fmt.Errorf("invalid FALLBACK_GAS_PRICE_GWEI: %w", err)
	}
	r.FallbackGasPriceGwei = fallback
	return r.Validate()
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config: RPC_URL is required")
	}
	if r.Timeout <= 0 || r.GasPriceTTL <= 0 || r.FallbackGasPriceGwei.IsNegative() {
		return errors.New("invalid rpc config")
	}
	return nil
}
