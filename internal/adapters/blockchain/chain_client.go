package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/services/sampler"
)

const CHAIN_CLIENT_SERVICE = "chain-client-svc"

var ErrNotConnected = errors.New("chain client is not connected")

// ChainClientService owns the JSON-RPC connection to the node.
type ChainClientService struct {
	container.BaseDIInstance

	mu       sync.RWMutex
	conf     *config.RPCConfig
	sampler  *config.SamplerConfig
	rpc      *rpc.Client
	client   *ethclient.Client
	override *gethclient.Client
}

func (svc *ChainClientService) ID() string {
	return CHAIN_CLIENT_SERVICE
}

func (svc *ChainClientService) Configure(c container.IContainer) error {
	svc.conf = c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.sampler = c.GetConfig(config.SAMPLER_CONFIG_KEY).(*config.SamplerConfig)
	return svc.dial()
}

func (svc *ChainClientService) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), svc.conf.Timeout)
	defer cancel()

	client := svc.Client()
	if client == nil {
		return ErrNotConnected
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		log.Warn().Err(err).Str("url", svc.conf.RPCUrl).Msg("[ChainClient] node not reachable, requests will retry")
		return nil
	}
	log.Info().Str("chainId", chainID.String()).Msg("[ChainClient] connected")
	return nil
}

func (svc *ChainClientService) Stop() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.rpc != nil {
		svc.rpc.Close()
		svc.rpc = nil
		svc.client = nil
		svc.override = nil
	}
	return nil
}

func (svc *ChainClientService) dial() error {
	rpcClient, err := rpc.DialOptions(context.Background(), svc.conf.RPCUrl)
	if err != nil {
		return fmt.Errorf("dial %s: %w", svc.conf.RPCUrl, err)
	}
	svc.mu.Lock()
	svc.rpc = rpcClient
	svc.client = ethclient.NewClient(rpcClient)
	svc.override = gethclient.New(rpcClient)
	svc.mu.Unlock()
	return nil
}

func (svc *ChainClientService) Client() *ethclient.Client {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.client
}

// SuggestGasPrice asks the node for the current gas price.
func (svc *ChainClientService) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client := svc.Client()
	if client == nil {
		return nil, ErrNotConnected
	}
	return client.SuggestGasPrice(ctx)
}

// SamplerCaller returns the caller the sampling gateway talks through. When
// sampler bytecode is configured it is injected at the sampler address with a
// state override, so no deployment is needed.
func (svc *ChainClientService) SamplerCaller() sampler.ContractCaller {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	var code []byte
	if svc.sampler != nil {
		code = svc.sampler.Bytecode
	}
	if len(code) == 0 {
		return &TimeoutCaller{caller: svc.client, timeout: svc.conf.Timeout}
	}
	return NewOverrideCaller(svc.override, svc.sampler.Address, code, svc.conf.Timeout)
}

// OverrideClient is the state override flavour of eth_call.
type OverrideClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int, overrides *map[common.Address]gethclient.OverrideAccount) ([]byte, error)
}

type OverrideCaller struct {
	client    OverrideClient
	overrides map[common.Address]gethclient.OverrideAccount
	timeout   time.Duration
}

func NewOverrideCaller(client OverrideClient, address common.Address, code []byte, timeout time.Duration) *OverrideCaller {
	return &OverrideCaller{
		client: client,
		overrides: map[common.Address]gethclient.OverrideAccount{
			address: {Code: code},
		},
		timeout: timeout,
	}
}

func (c *OverrideCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.client.CallContract(ctx, msg, blockNumber, &c.overrides)
}

// TimeoutCaller bounds every call of caller by timeout.
type TimeoutCaller struct {
	caller  sampler.ContractCaller
	timeout time.Duration
}

func (c *TimeoutCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if c.caller == nil {
		return nil, ErrNotConnected
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.caller.CallContract(ctx, msg, blockNumber)
}
