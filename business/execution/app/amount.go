package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	blockchainApp "github.com/fd1az/dex-arbitrage-bot/business/blockchain/app"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/asset"
)

// BalanceResolver sizes a round trip as the account's whole balance of the
// base asset: the native coin, or an ERC-20 when one is configured.
type BalanceResolver struct {
	chain     blockchainApp.ChainClient
	contracts Contracts
	owner     common.Address
	chainID   uint64
	base      common.Address
	registry  *asset.Registry

	mu        sync.Mutex
	baseAsset *asset.Asset
}

// NewBalanceResolver creates a resolver. A zero base address selects the
// native balance.
func NewBalanceResolver(chain blockchainApp.ChainClient, contracts Contracts, owner common.Address, chainID uint64, base common.Address, registry *asset.Registry) *BalanceResolver {
	return &BalanceResolver{
		chain:     chain,
		contracts: contracts,
		owner:     owner,
		chainID:   chainID,
		base:      base,
		registry:  registry,
	}
}

// Resolve returns the current balance.
func (r *BalanceResolver) Resolve(ctx context.Context) (asset.Amount, error) {
	a, err := r.asset(ctx)
	if err != nil {
		return asset.Amount{}, err
	}

	if a.ID().IsNative() {
		bal, err := r.chain.BalanceAt(ctx, r.owner, nil)
		if err != nil {
			return asset.Amount{}, err
		}
		return asset.NewAmount(a, bal), nil
	}

	bal, err := r.contracts.BalanceOf(ctx, r.base, r.owner)
	if err != nil {
		return asset.Amount{}, err
	}
	return asset.NewAmount(a, bal), nil
}

// asset resolves the base asset once, reading unknown ERC-20 metadata from
// the chain and registering it.
func (r *BalanceResolver) asset(ctx context.Context) (*asset.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.baseAsset != nil {
		return r.baseAsset, nil
	}

	if r.base == (common.Address{}) {
		native, ok := r.registry.GetNative(r.chainID)
		if !ok {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("no native asset for configured chain"))
		}
		r.baseAsset = native
		return native, nil
	}

	if known, ok := r.registry.GetToken(r.chainID, r.base); ok {
		r.baseAsset = known
		return known, nil
	}

	symbol, decimals, err := r.contracts.TokenInfo(ctx, r.base)
	if err != nil {
		return nil, err
	}
	a := r.registry.Register(asset.MustNewToken(r.chainID, r.base, symbol, decimals))
	r.baseAsset = a
	return a, nil
}
