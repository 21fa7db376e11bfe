package app

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	blockchainDomain "github.com/fd1az/dex-arbitrage-bot/business/blockchain/domain"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var (
	owner       = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	sushiRouter = common.HexToAddress("0x1b02da8cb0d097eb8d57a175b88c7d8b47997506")
	uniRouter   = common.HexToAddress("0x7a250d5630b4cf539739df2c5dacabbe0a1c317c")
	weth        = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	link        = common.HexToAddress("0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39")
)

// fakeChain mines every sent transaction into the next block and advances
// the head by one on every BlockNumber call.
type fakeChain struct {
	mu       sync.Mutex
	balance  *big.Int
	head     uint64
	nonce    uint64
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	// status applied to mined transactions; mine=false leaves them pending.
	status uint64
	mine   bool
	sendErr error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balance:  new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)),
		head:     1000,
		nonce:    4,
		receipts: map[common.Hash]*types.Receipt{},
		status:   types.ReceiptStatusSuccessful,
		mine:     true,
	}
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(137), nil }

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head++
	return f.head, nil
}

func (f *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(f.head)}, nil
}

func (f *fakeChain) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeChain) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return blockchainDomain.GweiToWei(30), nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	f.nonce++
	if f.mine {
		f.receipts[tx.Hash()] = &types.Receipt{
			Status:      f.status,
			BlockNumber: new(big.Int).SetUint64(f.head + 1),
			GasUsed:     150_000,
			TxHash:      tx.Hash(),
		}
	}
	return nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeChain) sentTxs() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

type mockContracts struct{ mock.Mock }

func (m *mockContracts) AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	args := m.Called(ctx, router, amountIn, path)
	out, _ := args.Get(0).([]*big.Int)
	return out, args.Error(1)
}

func (m *mockContracts) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	args := m.Called(ctx, token, owner, spender)
	out, _ := args.Get(0).(*big.Int)
	return out, args.Error(1)
}

func (m *mockContracts) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	args := m.Called(ctx, token, owner)
	out, _ := args.Get(0).(*big.Int)
	return out, args.Error(1)
}

func (m *mockContracts) TokenInfo(ctx context.Context, token common.Address) (string, uint8, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Get(1).(uint8), args.Error(2)
}

func (m *mockContracts) PackSwap(amountIn, minOut *big.Int, path []common.Address, to common.Address, deadline *big.Int) ([]byte, error) {
	args := m.Called(amountIn, minOut, path, to, deadline)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (m *mockContracts) PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	args := m.Called(spender, amount)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

// fixedGas prices swaps at 60 gwei and 8M gas.
type fixedGas struct{}

func (fixedGas) GasPrice(context.Context) (*blockchainDomain.GasPrice, error) {
	return blockchainDomain.NewGasPrice(blockchainDomain.GweiToWei(60)), nil
}

func (fixedGas) Estimate() *blockchainDomain.GasEstimate {
	return blockchainDomain.CalculateGasEstimate(8_000_000, blockchainDomain.NewGasPrice(blockchainDomain.GweiToWei(60)))
}

func bigEq(n int64) any {
	return mock.MatchedBy(func(v *big.Int) bool { return v != nil && v.Int64() == n })
}
