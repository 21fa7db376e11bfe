// Package pending stores positions whose close leg did not confirm.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
)

const keyPrefix = "pending/"

// BadgerStore keeps one PendingClose per token, JSON-encoded.
type BadgerStore struct {
	db *badger.DB
}

// Open opens or creates the store in dir.
func Open(dir string) (*BadgerStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, apperror.New(apperror.CodePendingStoreFailed, apperror.WithContext("directory is required"))
	}

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, apperror.New(apperror.CodePendingStoreFailed, apperror.WithContext(dir), apperror.WithCause(err))
	}
	return &BadgerStore{db: db}, nil
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, apperror.New(apperror.CodePendingStoreFailed, apperror.WithCause(err))
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func key(token common.Address) []byte {
	return []byte(keyPrefix + strings.ToLower(token.Hex()))
}

// Put inserts or replaces the entry for pc's token.
func (s *BadgerStore) Put(ctx context.Context, pc domain.PendingClose) error {
	val, err := json.Marshal(pc)
	if err != nil {
		return apperror.New(apperror.CodePendingStoreFailed, apperror.WithCause(err))
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(pc.Position.TokenAddress), val)
	})
	if err != nil {
		return apperror.New(apperror.CodePendingStoreFailed,
			apperror.WithContext("put "+pc.Position.Symbol), apperror.WithCause(err))
	}
	return nil
}

// Get returns the entry for token, or nil when there is none.
func (s *BadgerStore) Get(ctx context.Context, token common.Address) (*domain.PendingClose, error) {
	var out *domain.PendingClose

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(token))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var pc domain.PendingClose
			if err := json.Unmarshal(val, &pc); err != nil {
				return err
			}
			out = &pc
			return nil
		})
	})
	if err != nil {
		return nil, apperror.New(apperror.CodePendingStoreFailed,
			apperror.WithContext("get "+token.Hex()), apperror.WithCause(err))
	}
	return out, nil
}

// Delete removes the entry for token. Deleting a missing entry is not an error.
func (s *BadgerStore) Delete(ctx context.Context, token common.Address) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(token))
	})
	if err != nil {
		return apperror.New(apperror.CodePendingStoreFailed,
			apperror.WithContext("delete "+token.Hex()), apperror.WithCause(err))
	}
	return nil
}

// List returns every entry, oldest failure first.
func (s *BadgerStore) List(ctx context.Context) ([]domain.PendingClose, error) {
	out := make([]domain.PendingClose, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var pc domain.PendingClose
				if err := json.Unmarshal(val, &pc); err != nil {
					return err
				}
				out = append(out, pc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperror.New(apperror.CodePendingStoreFailed, apperror.WithContext("list"), apperror.WithCause(err))
	}

	slices.SortStableFunc(out, func(a, b domain.PendingClose) int {
		return a.FailedAt.Compare(b.FailedAt)
	})
	return out, nil
}

// Check reports whether the store is readable.
func (s *BadgerStore) Check(ctx context.Context) error {
	_, err := s.List(ctx)
	return err
}
