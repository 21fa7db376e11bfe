// Package asset models the on-chain assets the bot trades with. Amounts are
// exact big.Int values in the smallest unit; decimal.Decimal only appears at
// the edges (logs, ledger, UI).
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Polygon PoS chain ids.
const (
	ChainIDEthereum = 1
	ChainIDPolygon  = 137
	ChainIDAmoy     = 80002
)

// Well-known Polygon token addresses.
var (
	AddrUSDCPolygon = common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	AddrWETHPolygon = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	AddrWPOLPolygon = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
)

// ID identifies an asset by chain and contract. A zero address is the
// chain's native coin.
type ID struct {
	chainID uint64
	address common.Address
}

// NewNativeAssetID returns the id of a chain's native coin.
func NewNativeAssetID(chainID uint64) ID {
	return ID{chainID: chainID}
}

// NewTokenAssetID returns the id of an ERC-20 token.
func NewTokenAssetID(chainID uint64, addr common.Address) ID {
	if addr == (common.Address{}) {
		panic("asset: zero token address")
	}
	return ID{chainID: chainID, address: addr}
}

func (id ID) ChainID() uint64         { return id.chainID }
func (id ID) Address() common.Address { return id.address }
func (id ID) IsNative() bool          { return id.address == (common.Address{}) }

func (id ID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("%d/native", id.chainID)
	}
	return fmt.Sprintf("%d/%s", id.chainID, id.address.Hex())
}

// Asset is the metadata of a tradable asset. Symbols are display only;
// identity is the ID.
type Asset struct {
	id       ID
	symbol   string
	decimals uint8
}

// NewAsset creates an asset. Decimals above 36 are rejected as corrupt
// contract metadata.
func NewAsset(id ID, symbol string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 36 {
		panic("asset: implausible decimals")
	}
	return &Asset{id: id, symbol: symbol, decimals: decimals}
}

// MustNewToken creates an ERC-20 asset.
func MustNewToken(chainID uint64, address common.Address, symbol string, decimals uint8) *Asset {
	return NewAsset(NewTokenAssetID(chainID, address), symbol, decimals)
}

func (a *Asset) ID() ID                  { return a.id }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) Address() common.Address { return a.id.Address() }
func (a *Asset) String() string          { return a.symbol }

// Well-known Polygon assets.
var (
	POL  = NewAsset(NewNativeAssetID(ChainIDPolygon), "POL", 18)
	USDC = MustNewToken(ChainIDPolygon, AddrUSDCPolygon, "USDC", 6)
	WETH = MustNewToken(ChainIDPolygon, AddrWETHPolygon, "WETH", 18)
	WPOL = MustNewToken(ChainIDPolygon, AddrWPOLPolygon, "WPOL", 18)
)
