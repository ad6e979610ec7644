package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catenahq/bridge-backend/internal/chain"
)

func TestNewRegistry_BuildsAllPairs(t *testing.T) {
	registry, err := NewRegistry(DefaultPairs, func(pair ChainPair) (Provider, error) {
		return newMockProvider(pair), nil
	})
	require.NoError(t, err)

	assert.Len(t, registry.Pairs(), len(DefaultPairs))
	for _, pair := range DefaultPairs {
		p, err := registry.Resolve(pair.Source, pair.Target)
		require.NoError(t, err)
		assert.Equal(t, pair, p.Pair())
	}
}

func TestNewRegistry_DirectionsAreDistinct(t *testing.T) {
	registry, err := NewRegistry(DefaultPairs, func(pair ChainPair) (Provider, error) {
		return newMockProvider(pair), nil
	})
	require.NoError(t, err)

	forward, err := registry.Resolve(chain.Catena, chain.Ethereum)
	require.NoError(t, err)
	reverse, err := registry.Resolve(chain.Ethereum, chain.Catena)
	require.NoError(t, err)

	assert.NotSame(t, forward, reverse)
	assert.NotEqual(t, forward.Pair(), reverse.Pair())
}

func TestNewRegistry_SingleFailureAbortsBuild(t *testing.T) {
	bad := ChainPair{Source: chain.Polygon, Target: chain.Catena}
	registry, err := NewRegistry(DefaultPairs, func(pair ChainPair) (Provider, error) {
		if pair == bad {
			return nil, errors.New("relayer endpoint missing")
		}
		return newMockProvider(pair), nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInitializationFailed)
	assert.Contains(t, err.Error(), "polygon->catena")
	assert.Nil(t, registry)
}

func TestNewRegistry_NilProviderAbortsBuild(t *testing.T) {
	registry, err := NewRegistry(DefaultPairs, func(pair ChainPair) (Provider, error) {
		return nil, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInitializationFailed)
	assert.Nil(t, registry)
}

func TestRegistry_ResolveUnknownPair(t *testing.T) {
	registry, err := NewRegistry(DefaultPairs, func(pair ChainPair) (Provider, error) {
		return newMockProvider(pair), nil
	})
	require.NoError(t, err)

	_, err = registry.Resolve(chain.Ethereum, chain.Polygon)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}
