package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var errNode = errors.New("node unavailable")

// fakeChain serves a head that advances by one on every HeaderByNumber call.
type fakeChain struct {
	mu       sync.Mutex
	head     uint64
	gasPrice *big.Int
	fail     bool
	calls    map[string]int
	receipt  *types.Receipt
}

func newFakeChain(head uint64) *fakeChain {
	return &fakeChain{head: head, gasPrice: big.NewInt(30_000_000_000), calls: map[string]int{}}
}

func (f *fakeChain) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if f.fail {
		return errNode
	}
	return nil
}

func (f *fakeChain) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeChain) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) {
	if err := f.record("ChainID"); err != nil {
		return nil, err
	}
	return big.NewInt(137), nil
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	if err := f.record("BlockNumber"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	if err := f.record("HeaderByNumber"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head++
	return &types.Header{Number: new(big.Int).SetUint64(f.head), Time: 1_700_000_000 + f.head*2}, nil
}

func (f *fakeChain) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	if err := f.record("BalanceAt"); err != nil {
		return nil, err
	}
	return big.NewInt(1e18), nil
}

func (f *fakeChain) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	if err := f.record("CallContract"); err != nil {
		return nil, err
	}
	return []byte{0x01}, nil
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	if err := f.record("PendingNonceAt"); err != nil {
		return 0, err
	}
	return 4, nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	if err := f.record("SuggestGasPrice"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeChain) SendTransaction(context.Context, *types.Transaction) error {
	return f.record("SendTransaction")
}

func (f *fakeChain) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if err := f.record("TransactionReceipt"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}
