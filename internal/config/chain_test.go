package config

import (
	"errors"
	"strings"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

func TestLoadEmbeddedChainConfig(t *testing.T) {
	cfg, err := LoadChainConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 1 {
		t.Fatalf("expected mainnet, got chain %d", cfg.ChainID)
	}
	weth := ethcommon.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	if cfg.WrappedNative() != weth {
		t.Errorf("expected WETH %s, got %s", weth.Hex(), cfg.WrappedNative().Hex())
	}
	if len(cfg.DefaultIntermediateTokens) != 5 {
		t.Errorf("expected 5 intermediate tokens, got %d", len(cfg.DefaultIntermediateTokens))
	}
	for _, tok := range cfg.DefaultIntermediateTokens {
		if !ethcommon.IsHexAddress(tok) {
			t.Errorf("intermediate %q was not resolved", tok)
		}
	}
	if cfg.FeeNative().String() != "1000000000000000000" {
		t.Errorf("unexpected fee native amount %s", cfg.FeeNative())
	}

	var linkswap *VenueConfig
	for i := range cfg.Venues {
		if cfg.Venues[i].Source == "Linkswap" {
			linkswap = &cfg.Venues[i]
		}
	}
	if linkswap == nil || len(linkswap.Intermediates) != 2 {
		t.Fatalf("linkswap venue not configured: %+v", linkswap)
	}
	if !strings.EqualFold(linkswap.Intermediates[1], weth.Hex()) {
		t.Errorf("expected WETH as second linkswap intermediate, got %s", linkswap.Intermediates[1])
	}
}

func TestParseChainConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{
			name:    "unknown symbol",
			raw:     `{"chainId":1,"nativeToken":"0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE","wrappedNativeToken":"WETH","feeNativeAmount":"1"}`,
			wantErr: ErrUnknownToken,
		},
		{
			name: "duplicate venue",
			raw: `{"chainId":1,"nativeToken":"0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
				"wrappedNativeToken":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","feeNativeAmount":"1",
				"venues":[{"source":"A","kind":"uniswap_v2"},{"source":"A","kind":"uniswap_v2"}]}`,
		},
		{
			name: "bad fee amount",
			raw: `{"chainId":1,"nativeToken":"0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
				"wrappedNativeToken":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","feeNativeAmount":"one"}`,
		},
		{name: "garbage", raw: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChainConfig([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
