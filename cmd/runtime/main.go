package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/itsib/hyper-dex-swap-node/internal/adapters/blockchain"
	"github.com/itsib/hyper-dex-swap-node/internal/aggregator"
	"github.com/itsib/hyper-dex-swap-node/internal/common"
	"github.com/itsib/hyper-dex-swap-node/internal/config"
	"github.com/itsib/hyper-dex-swap-node/internal/http"
	"github.com/itsib/hyper-dex-swap-node/internal/services"
	"github.com/itsib/hyper-dex-swap-node/internal/services/market"
)

// @title HyperDex Swap Node API
// @version 1.0
// @description DEX aggregation quote node for EVM chains.
// @description
// @description ## - Features
// @description - **On-chain sampling**: every venue is priced at several amounts in one eth_call through the sampler contract
// @description - **Order splitting**: the order is spread across venues to maximize output net of gas
// @description - **Two-hop routes**: sells may settle through an intermediate token when that pays more
// @description - **Native token**: ETH is routed through WETH, and ETH/WETH conversions return a wrap or unwrap call
// @description
// @description ## - Usage Tips
// @description - Amounts are base unit integers: 1 WETH = 1000000000000000000
// @description - Set exactly one of sellAmount and buyAmount
// @description - slippagePercentage is a fraction: 0.01 is 1%
// @description - Use /api/v1/swap/sources for the names accepted by excludedSources and includedSources
// @description
// @BasePath /
// @schemes https http
// @tag.name swap
// @tag.description Quotes and liquidity sources
// @tag.name pools
// @tag.description Pool caches of the subgraph backed sources

func main() {
	common.InitRuntime()

	// a missing .env is fine, the environment may be set by the deployment
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("failed to load general config")
		return
	}
	services.SetupLogger(general.LogLevel, general.IsLocal())

	// di container config
	conf := container.NewConf(
		general,
		&config.RPCConfig{},
		&config.SamplerConfig{},
		&config.MarketConfig{},
		&config.StorageConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		// adapters
		&blockchain.ChainClientService{},
		&blockchain.GasPriceCacheService{},

		// core
		&market.Service{},
		&aggregator.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
