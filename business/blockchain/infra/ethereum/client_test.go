package ethereum

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

func TestClient_PassesResults(t *testing.T) {
	ctx := context.Background()
	chain := newFakeChain(100)
	c, err := NewClient(chain, logger.NewDiscard())
	require.NoError(t, err)

	id, err := c.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(137), id.Int64())

	nonce, err := c.PendingNonceAt(ctx, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), nonce)

	require.NoError(t, c.SendTransaction(ctx, nil))
	assert.Equal(t, 1, chain.count("SendTransaction"))
}

func TestClient_WrapsFailures(t *testing.T) {
	chain := newFakeChain(100)
	chain.setFail(true)
	c, err := NewClient(chain, logger.NewDiscard())
	require.NoError(t, err)

	_, err = c.BlockNumber(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeChainRPCError))
	assert.True(t, errors.Is(err, errNode), "cause must be preserved")
}

func TestClient_ReceiptNotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	chain := newFakeChain(100)
	c, err := NewClient(chain, logger.NewDiscard())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := c.TransactionReceipt(ctx, common.Hash{})
		assert.ErrorIs(t, err, ethereum.NotFound)
		assert.False(t, apperror.IsAppError(err))
	}

	_, err = c.BlockNumber(ctx)
	assert.NoError(t, err, "breaker must stay closed")
}

func TestClient_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	chain := newFakeChain(100)
	chain.setFail(true)
	c, err := NewClient(chain, logger.NewDiscard())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = c.SuggestGasPrice(ctx)
	}
	chain.setFail(false)

	_, err = c.SuggestGasPrice(ctx)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeCircuitOpen))
	assert.Equal(t, 5, chain.count("SuggestGasPrice"), "open breaker must not reach the node")
}
