package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()

	md, err := r.Get(Ethereum)
	require.NoError(t, err)
	assert.Equal(t, "Ethereum", md.Name)
	assert.Equal(t, "ETH", md.NativeSymbol)
	assert.Equal(t, uint64(1), md.NetworkID)

	_, err = r.Get(ID("dogecoin"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chain")
}

func TestRegistryKnown(t *testing.T) {
	r := NewRegistry()

	for _, id := range []ID{Catena, Ethereum, Polygon, Arbitrum} {
		assert.True(t, r.Known(id), "expected %s to be known", id)
	}
	assert.False(t, r.Known(ID("solana")))
}

func TestRegistryAll(t *testing.T) {
	r := NewRegistry()

	all := r.All()
	require.Len(t, all, 4)
	assert.Equal(t, Catena, all[0].ID)
}

func TestMustGetPanicsOnUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.MustGet(ID("bitcoin")) })
}
