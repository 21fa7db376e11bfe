// Package ledger persists closed trades as an indented JSON array.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
)

// JSONFile is an append-only ledger. Each append reads the whole file,
// appends one record and atomically replaces the file.
type JSONFile struct {
	mu   sync.Mutex
	path string
}

// NewJSONFile opens the ledger at path, creating it as `[]` if absent.
func NewJSONFile(path string) (*JSONFile, error) {
	l := &JSONFile{path: path}
	if err := l.ensure(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the ledger file location.
func (l *JSONFile) Path() string {
	return l.path
}

func (l *JSONFile) ensure() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return apperror.New(apperror.CodeLedgerReadFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperror.New(apperror.CodeLedgerWriteFailed, apperror.WithContext(dir), apperror.WithCause(err))
		}
	}
	return l.write([]domain.TradeRecord{})
}

// Append adds rec to the end of the ledger.
func (l *JSONFile) Append(ctx context.Context, rec domain.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return err
	}
	return l.write(append(records, rec))
}

// All returns every record in append order.
func (l *JSONFile) All(ctx context.Context) ([]domain.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Raw returns the ledger file contents verbatim.
func (l *JSONFile) Raw(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, apperror.New(apperror.CodeLedgerReadFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}
	return raw, nil
}

func (l *JSONFile) read() ([]domain.TradeRecord, error) {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.TradeRecord{}, nil
	}
	if err != nil {
		return nil, apperror.New(apperror.CodeLedgerReadFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}

	records := []domain.TradeRecord{}
	if len(raw) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, apperror.New(apperror.CodeLedgerReadFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}
	return records, nil
}

func (l *JSONFile) write(records []domain.TradeRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return apperror.New(apperror.CodeLedgerWriteFailed, apperror.WithCause(err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return apperror.New(apperror.CodeLedgerWriteFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperror.New(apperror.CodeLedgerWriteFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperror.New(apperror.CodeLedgerWriteFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}
	if err := tmp.Close(); err != nil {
		return apperror.New(apperror.CodeLedgerWriteFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return apperror.New(apperror.CodeLedgerWriteFailed, apperror.WithContext(l.path), apperror.WithCause(err))
	}
	return nil
}

// Check reports whether the ledger is readable.
func (l *JSONFile) Check(ctx context.Context) error {
	_, err := l.All(ctx)
	return err
}
