package asset_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	one := asset.NewAmount(asset.POL, big.NewInt(1e18))

	assert.True(t, one.IsPositive())
	assert.True(t, one.ToDecimal().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "1 POL", one.String())
	assert.True(t, asset.Zero(asset.POL).IsZero())
	assert.False(t, asset.Zero(asset.POL).IsPositive())
}

func TestAmount_RawIsCopied(t *testing.T) {
	raw := big.NewInt(5)
	a := asset.NewAmount(asset.USDC, raw)
	raw.SetInt64(7)
	assert.Equal(t, int64(5), a.Raw().Int64())

	a.Raw().SetInt64(9)
	assert.Equal(t, int64(5), a.Raw().Int64())
}

func TestNewAmount_RejectsNegative(t *testing.T) {
	assert.Panics(t, func() { asset.NewAmount(asset.POL, big.NewInt(-1)) })
}

func TestParseDecimal(t *testing.T) {
	amount, err := asset.ParseDecimal(asset.POL, decimal.RequireFromString("1.5"))
	require.NoError(t, err)

	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, 0, amount.Raw().Cmp(want), "raw = %s", amount.Raw())

	// USDC carries six decimals.
	_, err = asset.ParseDecimal(asset.USDC, decimal.RequireFromString("1.1234567"))
	assert.ErrorIs(t, err, asset.ErrTooManyDecimals)

	_, err = asset.ParseDecimal(asset.USDC, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, asset.ErrNegativeAmount)
}

func TestID_Identity(t *testing.T) {
	a := asset.NewTokenAssetID(asset.ChainIDPolygon, asset.AddrUSDCPolygon)
	b := asset.NewTokenAssetID(asset.ChainIDPolygon, asset.AddrUSDCPolygon)
	assert.Equal(t, a, b)

	other := asset.NewTokenAssetID(asset.ChainIDEthereum, asset.AddrUSDCPolygon)
	assert.NotEqual(t, a, other, "different chains must differ")
	assert.True(t, asset.NewNativeAssetID(asset.ChainIDPolygon).IsNative())
}

func TestRegistry(t *testing.T) {
	r := asset.DefaultRegistry()

	native, ok := r.GetNative(asset.ChainIDPolygon)
	require.True(t, ok)
	assert.Equal(t, "POL", native.Symbol())

	weth, ok := r.GetToken(asset.ChainIDPolygon, asset.AddrWETHPolygon)
	require.True(t, ok)
	assert.Equal(t, uint8(18), weth.Decimals())

	_, ok = r.GetNative(asset.ChainIDAmoy)
	assert.False(t, ok)
}

func TestRegistry_RegisterKeepsFirst(t *testing.T) {
	r := asset.NewRegistry()
	link := common.HexToAddress("0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39")

	first := r.Register(asset.MustNewToken(asset.ChainIDPolygon, link, "LINK", 18))
	second := r.Register(asset.MustNewToken(asset.ChainIDPolygon, link, "LINK2", 18))

	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())
}
