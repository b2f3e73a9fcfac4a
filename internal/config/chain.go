package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

//go:embed chains/mainnet.json
var mainnetChainJSON []byte

var ErrUnknownToken = errors.New("unknown token reference")

// PoolConfig describes a statically configured pool of a venue.
type PoolConfig struct {
	Address string   `json:"address"`
	Tokens  []string `json:"tokens"`

	// Curve-like pools.
	ExchangeSelector  string `json:"exchangeSelector,omitempty"`
	SellQuoteSelector string `json:"sellQuoteSelector,omitempty"`
	BuyQuoteSelector  string `json:"buyQuoteSelector,omitempty"`
	GasSchedule       uint64 `json:"gasSchedule,omitempty"`

	// Liquidity provider pools charge GasCostNative when the wrapped native
	// token is one side of the pair and GasCost otherwise.
	GasCost       uint64 `json:"gasCost,omitempty"`
	GasCostNative uint64 `json:"gasCostNative,omitempty"`
}

// VenueConfig is one entry of the venue list. Kind selects the descriptor
// family; the remaining fields are read by that family only.
type VenueConfig struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`

	Router    string   `json:"router,omitempty"`
	Quoter    string   `json:"quoter,omitempty"`
	Vault     string   `json:"vault,omitempty"`
	Registry  string   `json:"registry,omitempty"`
	Helper    string   `json:"helper,omitempty"`
	Addresses []string `json:"addresses,omitempty"`

	// Intermediates replaces the chain intermediate tokens for this venue.
	Intermediates []string `json:"intermediates,omitempty"`
	BannedTokens  []string `json:"bannedTokens,omitempty"`

	Pools []PoolConfig `json:"pools,omitempty"`

	SubgraphURL     string `json:"subgraphUrl,omitempty"`
	TopPools        int    `json:"topPools,omitempty"`
	MaxPoolsPerPair int    `json:"maxPoolsPerPair,omitempty"`
	MaxPoolsQueried int    `json:"maxPoolsQueried,omitempty"`
}

// ChainConfig describes the network a node quotes on. Token fields accept
// either a hex address or a symbol of the Tokens table; symbols are resolved
// to addresses when the description is loaded.
type ChainConfig struct {
	ChainID            int64             `json:"chainId"`
	Name               string            `json:"name"`
	NativeToken        string            `json:"nativeToken"`
	WrappedNativeToken string            `json:"wrappedNativeToken"`
	FeeNativeAmount    string            `json:"feeNativeAmount"`
	Tokens             map[string]string `json:"tokens"`

	DefaultIntermediateTokens []string            `json:"defaultIntermediateTokens"`
	TokenAdjacency            map[string][]string `json:"tokenAdjacency"`
	DefaultExcludedSources    []string            `json:"defaultExcludedSources"`
	FeeSources                []string            `json:"feeSources"`

	Venues []VenueConfig `json:"venues"`
}

// LoadChainConfig reads the description at path, or the embedded mainnet
// description when path is empty.
func LoadChainConfig(path string) (*ChainConfig, error) {
	data := mainnetChainJSON
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read chain config: %w", err)
		}
		data = raw
	}
	return ParseChainConfig(data)
}

func ParseChainConfig(data []byte) (*ChainConfig, error) {
	var cfg ChainConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse chain config: %w", err)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ChainConfig) Validate() error {
	if c.ChainID <= 0 {
		return errors.New("invalid chain config: chainId")
	}
	if !ethcommon.IsHexAddress(c.WrappedNativeToken) || !ethcommon.IsHexAddress(c.NativeToken) {
		return errors.New("invalid chain config: native tokens")
	}
	if _, ok := new(big.Int).SetString(c.FeeNativeAmount, 10); !ok {
		return fmt.Errorf("invalid chain config: feeNativeAmount %q", c.FeeNativeAmount)
	}
	seen := make(map[string]struct{}, len(c.Venues))
	for _, v := range c.Venues {
		if v.Source == "" || v.Kind == "" {
			return errors.New("invalid chain config: venue without source or kind")
		}
		if _, dup := seen[v.Source]; dup {
			return fmt.Errorf("invalid chain config: duplicate venue %s", v.Source)
		}
		seen[v.Source] = struct{}{}
	}
	return nil
}

// Token resolves a symbol or hex address.
func (c *ChainConfig) Token(ref string) (ethcommon.Address, error) {
	if ethcommon.IsHexAddress(ref) {
		return ethcommon.HexToAddress(ref), nil
	}
	if addr, ok := c.Tokens[ref]; ok && ethcommon.IsHexAddress(addr) {
		return ethcommon.HexToAddress(addr), nil
	}
	return ethcommon.Address{}, fmt.Errorf("%w: %s", ErrUnknownToken, ref)
}

func (c *ChainConfig) resolveRef(ref string) (string, error) {
	addr, err := c.Token(ref)
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Hex()), nil
}

func (c *ChainConfig) resolveList(refs []string) ([]string, error) {
	out := make([]string, len(refs))
	for i, ref := range refs {
		addr, err := c.resolveRef(ref)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

func (c *ChainConfig) resolve() error {
	var err error
	if c.WrappedNativeToken, err = c.resolveRef(c.WrappedNativeToken); err != nil {
		return err
	}
	if c.DefaultIntermediateTokens, err = c.resolveList(c.DefaultIntermediateTokens); err != nil {
		return err
	}

	adjacency := make(map[string][]string, len(c.TokenAdjacency))
	for from, to := range c.TokenAdjacency {
		key, err := c.resolveRef(from)
		if err != nil {
			return err
		}
		if adjacency[key], err = c.resolveList(to); err != nil {
			return err
		}
	}
	c.TokenAdjacency = adjacency

	for i := range c.Venues {
		v := &c.Venues[i]
		if v.Intermediates, err = c.resolveList(v.Intermediates); err != nil {
			return fmt.Errorf("venue %s: %w", v.Source, err)
		}
		if v.BannedTokens, err = c.resolveList(v.BannedTokens); err != nil {
			return fmt.Errorf("venue %s: %w", v.Source, err)
		}
		for j := range v.Pools {
			if v.Pools[j].Tokens, err = c.resolveList(v.Pools[j].Tokens); err != nil {
				return fmt.Errorf("venue %s: %w", v.Source, err)
			}
		}
	}
	return nil
}

func (c *ChainConfig) WrappedNative() ethcommon.Address {
	return ethcommon.HexToAddress(c.WrappedNativeToken)
}

func (c *ChainConfig) Native() ethcommon.Address {
	return ethcommon.HexToAddress(c.NativeToken)
}

func (c *ChainConfig) FeeNative() *big.Int {
	v, _ := new(big.Int).SetString(c.FeeNativeAmount, 10)
	return v
}

// Addresses converts resolved token references to addresses.
func Addresses(refs []string) []ethcommon.Address {
	out := make([]ethcommon.Address, len(refs))
	for i, ref := range refs {
		out[i] = ethcommon.HexToAddress(ref)
	}
	return out
}
