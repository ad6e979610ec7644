package bridge

import (
	"fmt"

	"github.com/catenahq/bridge-backend/internal/chain"
)

// ProviderFactory builds the provider for one route. Injected so tests can
// substitute mocks without touching process-wide state.
type ProviderFactory func(pair ChainPair) (Provider, error)

// DefaultPairs lists the supported routes: every non-home chain bridges to
// and from Catena.
var DefaultPairs = []ChainPair{
	{Source: chain.Catena, Target: chain.Ethereum},
	{Source: chain.Ethereum, Target: chain.Catena},
	{Source: chain.Catena, Target: chain.Polygon},
	{Source: chain.Polygon, Target: chain.Catena},
	{Source: chain.Catena, Target: chain.Arbitrum},
	{Source: chain.Arbitrum, Target: chain.Catena},
}

// Registry resolves (source, target) to the provider built for that route.
// The provider map is populated once at construction and read-only afterward,
// so concurrent Resolve calls need no locking.
type Registry struct {
	providers map[ChainPair]Provider
}

// NewRegistry eagerly builds a provider for every configured pair. Any single
// failure aborts the whole build: a partially-initialized registry would let
// users select a route that looks supported but cannot execute.
func NewRegistry(pairs []ChainPair, factory ProviderFactory) (*Registry, error) {
	r := &Registry{providers: make(map[ChainPair]Provider, len(pairs))}
	for _, pair := range pairs {
		p, err := factory(pair)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInitializationFailed, pair, err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: %s: factory returned no provider", ErrInitializationFailed, pair)
		}
		r.providers[pair] = p
	}
	return r, nil
}

// Resolve returns the provider for the route, or ErrProviderNotFound.
func (r *Registry) Resolve(source, target chain.ID) (Provider, error) {
	pair := ChainPair{Source: source, Target: target}
	p, ok := r.providers[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, pair)
	}
	return p, nil
}

// Pairs returns the supported routes.
func (r *Registry) Pairs() []ChainPair {
	out := make([]ChainPair, 0, len(r.providers))
	for pair := range r.providers {
		out = append(out, pair)
	}
	return out
}
