// Package app contains the swap executor and trade sizing for the execution context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contracts encodes router and token calls and runs the read-only ones.
type Contracts interface {
	AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	TokenInfo(ctx context.Context, token common.Address) (symbol string, decimals uint8, err error)

	PackSwap(amountIn, minOut *big.Int, path []common.Address, to common.Address, deadline *big.Int) ([]byte, error)
	PackApprove(spender common.Address, amount *big.Int) ([]byte, error)
}

// TxSigner signs transactions for the trading account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction) (*types.Transaction, error)
}
