package domain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTradeRequest_Path(t *testing.T) {
	weth := common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	token := common.HexToAddress("0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39")

	tests := []struct {
		name      string
		direction Direction
		want      []common.Address
	}{
		{"open_sells_token_for_weth", DirectionOpen, []common.Address{token, weth}},
		{"close_buys_token_with_weth", DirectionClose, []common.Address{weth, token}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TradeRequest{Token: token, Direction: tt.direction}.Path(weth)
			if len(got) != 2 || got[0] != tt.want[0] || got[1] != tt.want[1] {
				t.Errorf("Path = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailed(t *testing.T) {
	r := Failed(common.Hash{}, errors.New("boom"))
	if r.Confirmed || r.Submitted() || r.Err == nil {
		t.Errorf("unexpected result %+v", r)
	}

	r = Failed(common.HexToHash("0x01"), errors.New("timeout"))
	if !r.Submitted() {
		t.Error("hash present means submitted")
	}
}

func TestMinAmountOut(t *testing.T) {
	tests := []struct {
		name   string
		quoted *big.Int
		bps    int64
		want   int64
	}{
		{"half_percent", big.NewInt(1000), 50, 995},
		{"rounds_down", big.NewInt(999), 50, 994},
		{"zero_tolerance", big.NewInt(1000), 0, 1000},
		{"clamped_above", big.NewInt(1000), 20_000, 0},
		{"clamped_below", big.NewInt(1000), -5, 1000},
		{"nil_quote", nil, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinAmountOut(tt.quoted, tt.bps); got.Int64() != tt.want {
				t.Errorf("MinAmountOut = %s, want %d", got, tt.want)
			}
		})
	}
}
