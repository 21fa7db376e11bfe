package asset

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry holds the assets known to the process. Tokens discovered on chain
// at runtime are added next to the well-known ones.
type Registry struct {
	mu   sync.RWMutex
	byID map[ID]*Asset
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]*Asset)}
}

// DefaultRegistry returns a registry seeded with the well-known Polygon assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{POL, USDC, WETH, WPOL} {
		r.Register(a)
	}
	return r
}

// Register stores a and returns the registered asset. If the id is already
// known the existing entry wins.
func (r *Registry) Register(a *Asset) *Asset {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[a.ID()]; ok {
		return existing
	}
	r.byID[a.ID()] = a
	return a
}

func (r *Registry) Get(id ID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetNative returns the native coin of chainID.
func (r *Registry) GetNative(chainID uint64) (*Asset, bool) {
	return r.Get(NewNativeAssetID(chainID))
}

// GetToken returns the ERC-20 at address on chainID.
func (r *Registry) GetToken(chainID uint64, address common.Address) (*Asset, bool) {
	return r.Get(NewTokenAssetID(chainID, address))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
