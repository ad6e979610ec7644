package chain

import "fmt"

// ID identifies a supported blockchain. The set is closed: adding a chain
// means adding a constant here plus its metadata below.
type ID string

const (
	Catena   ID = "catena"
	Ethereum ID = "ethereum"
	Polygon  ID = "polygon"
	Arbitrum ID = "arbitrum"
)

// Metadata holds the static network description for a chain. Built once at
// process start and never mutated.
type Metadata struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	NativeSymbol string `json:"nativeSymbol"`
	ExplorerURL  string `json:"explorerUrl"`
	NetworkID    uint64 `json:"networkId"` // EVM chain id used for tx signing
}

// Registry is a read-only catalogue of supported chains.
type Registry struct {
	chains map[ID]Metadata
}

var defaults = []Metadata{
	{ID: Catena, Name: "Catena", NativeSymbol: "CTA", ExplorerURL: "https://explorer.catena.network", NetworkID: 9100},
	{ID: Ethereum, Name: "Ethereum", NativeSymbol: "ETH", ExplorerURL: "https://etherscan.io", NetworkID: 1},
	{ID: Polygon, Name: "Polygon", NativeSymbol: "MATIC", ExplorerURL: "https://polygonscan.com", NetworkID: 137},
	{ID: Arbitrum, Name: "Arbitrum One", NativeSymbol: "ETH", ExplorerURL: "https://arbiscan.io", NetworkID: 42161},
}

// NewRegistry builds the registry from the static chain table.
func NewRegistry() *Registry {
	r := &Registry{chains: make(map[ID]Metadata, len(defaults))}
	for _, md := range defaults {
		r.chains[md.ID] = md
	}
	return r
}

// Get returns the metadata for a chain. An unknown chain is a configuration
// bug; callers resolving config at startup should treat this as fatal.
func (r *Registry) Get(id ID) (Metadata, error) {
	md, ok := r.chains[id]
	if !ok {
		return Metadata{}, fmt.Errorf("unknown chain %q", id)
	}
	return md, nil
}

// MustGet is Get for startup paths where the chain is known to be configured.
func (r *Registry) MustGet(id ID) Metadata {
	md, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return md
}

// Known reports whether the chain is in the catalogue.
func (r *Registry) Known(id ID) bool {
	_, ok := r.chains[id]
	return ok
}

// All returns the supported chains in a stable order.
func (r *Registry) All() []Metadata {
	out := make([]Metadata, 0, len(defaults))
	for _, md := range defaults {
		out = append(out, r.chains[md.ID])
	}
	return out
}
