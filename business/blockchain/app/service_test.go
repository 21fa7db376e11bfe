package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

type mockSubscriber struct{ mock.Mock }

func (m *mockSubscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	args := m.Called(ctx)
	ch, _ := args.Get(0).(<-chan *domain.Block)
	return ch, args.Error(1)
}

func (m *mockSubscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).(*domain.Block)
	return b, args.Error(1)
}

func (m *mockSubscriber) State() domain.ConnectionState {
	return m.Called().Get(0).(domain.ConnectionState)
}

type mockGasOracle struct{ mock.Mock }

func (m *mockGasOracle) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*domain.GasPrice)
	return p, args.Error(1)
}

func (m *mockGasOracle) Estimate() *domain.GasEstimate {
	return m.Called().Get(0).(*domain.GasEstimate)
}

func TestWatch_ForwardsBlocksWithGasPrice(t *testing.T) {
	ctx := context.Background()

	ch := make(chan *domain.Block, 2)
	ch <- &domain.Block{Number: 1}
	ch <- &domain.Block{Number: 2}
	close(ch)

	sub := &mockSubscriber{}
	sub.On("Subscribe", mock.Anything).Return((<-chan *domain.Block)(ch), nil)

	price := domain.NewGasPrice(big.NewInt(30_000_000_000))
	gas := &mockGasOracle{}
	gas.On("GasPrice", mock.Anything).Return(price, nil).Once()
	gas.On("GasPrice", mock.Anything).Return(nil, errors.New("rpc down")).Once()

	svc := NewBlockchainService(nil, sub, gas, logger.NewDiscard())

	var got []uint64
	var prices []*domain.GasPrice
	err := svc.Watch(ctx, func(b *domain.Block, p *domain.GasPrice) {
		got = append(got, b.Number)
		prices = append(prices, p)
	})

	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, got)
	assert.Same(t, price, prices[0])
	assert.Nil(t, prices[1], "failed lookup passes a nil price")
}

func TestWatch_SubscribeFailure(t *testing.T) {
	sub := &mockSubscriber{}
	sub.On("Subscribe", mock.Anything).Return(nil, errors.New("closed"))

	svc := NewBlockchainService(nil, sub, &mockGasOracle{}, logger.NewDiscard())
	err := svc.Watch(context.Background(), func(*domain.Block, *domain.GasPrice) {
		t.Fatal("no block expected")
	})
	assert.EqualError(t, err, "closed")
}
