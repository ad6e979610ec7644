package evm

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/catenahq/bridge-backend/internal/bridge"
	"github.com/catenahq/bridge-backend/internal/chain"
)

// RouteConfig is the per-route endpoint configuration.
type RouteConfig struct {
	RPCURL         string
	RelayerURL     string
	BridgeContract string
}

// FactoryConfig wires the chain catalogue and route endpoints into a
// provider factory.
type FactoryConfig struct {
	Chains     *chain.Registry
	Routes     map[bridge.ChainPair]RouteConfig
	Logger     *zap.SugaredLogger
	HTTPClient *http.Client
}

// NewFactory returns the factory the provider registry builds from. The
// implementation is selected by the route's source chain: funds leaving an
// optimistic rollup need withdrawal execution, funds leaving a plasma chain
// need an exit, and everything else is plain lock-and-mint.
func NewFactory(cfg FactoryConfig) bridge.ProviderFactory {
	return func(pair bridge.ChainPair) (bridge.Provider, error) {
		rc, ok := cfg.Routes[pair]
		if !ok {
			return nil, fmt.Errorf("no route configuration for %s", pair)
		}
		source, err := cfg.Chains.Get(pair.Source)
		if err != nil {
			return nil, err
		}
		target, err := cfg.Chains.Get(pair.Target)
		if err != nil {
			return nil, err
		}

		pcfg := Config{
			Pair:            pair,
			SourceNetworkID: source.NetworkID,
			TargetNetworkID: target.NetworkID,
			RPCURL:          rc.RPCURL,
			RelayerURL:      rc.RelayerURL,
			BridgeContract:  rc.BridgeContract,
			Logger:          cfg.Logger,
			HTTPClient:      cfg.HTTPClient,
		}

		switch pair.Source {
		case chain.Arbitrum:
			return NewRollupProvider(pcfg)
		case chain.Polygon:
			return NewPlasmaProvider(pcfg)
		default:
			return NewProvider(pcfg)
		}
	}
}
