package app

import (
	"context"

	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	client     ChainClient
	subscriber BlockSubscriber
	gasOracle  GasOracle
	logger     logger.LoggerInterface
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(client ChainClient, subscriber BlockSubscriber, gasOracle GasOracle, log logger.LoggerInterface) *BlockchainService {
	return &BlockchainService{
		client:     client,
		subscriber: subscriber,
		gasOracle:  gasOracle,
		logger:     log,
	}
}

// Watch feeds every new block and the gas price at that block to onBlock
// until ctx is done. A failed gas lookup passes a nil price.
func (s *BlockchainService) Watch(ctx context.Context, onBlock func(*domain.Block, *domain.GasPrice)) error {
	blocks, err := s.subscriber.Subscribe(ctx)
	if err != nil {
		return err
	}

	for block := range blocks {
		price, err := s.gasOracle.GasPrice(ctx)
		if err != nil {
			s.logger.Debug(ctx, "gas price unavailable", "block", block.Number, "error", err)
			price = nil
		}
		onBlock(block, price)
	}

	return ctx.Err()
}

// LatestBlock returns the current chain head.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.subscriber.LatestBlock(ctx)
}

// GasPrice retrieves the current gas price.
func (s *BlockchainService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GasPrice(ctx)
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// Check verifies the node answers. It backs the health endpoint.
func (s *BlockchainService) Check(ctx context.Context) error {
	_, err := s.client.BlockNumber(ctx)
	return err
}
