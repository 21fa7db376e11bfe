// Package tokenlist loads the token universe from a JSON file.
package tokenlist

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

type entry struct {
	Symbol string `json:"symbol"`
	Token  string `json:"token"`
}

type document struct {
	Data []entry `json:"data"`
}

// File reads `{"data":[{"symbol":"…","token":"0x…"}]}` on every Load, so
// edits are picked up on the next cycle.
type File struct {
	path   string
	logger logger.LoggerInterface
}

// NewFile creates a token source backed by path.
func NewFile(path string, log logger.LoggerInterface) *File {
	return &File{path: path, logger: log}
}

// Load returns the listed tokens in file order. A missing file yields an
// empty list. Entries with an invalid address are skipped.
func (f *File) Load(ctx context.Context) ([]pricingDomain.Token, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn(ctx, "token list not found", "path", f.path)
		return []pricingDomain.Token{}, nil
	}
	if err != nil {
		return nil, apperror.New(apperror.CodeTokenListUnreadable,
			apperror.WithContext(f.path), apperror.WithCause(err))
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperror.New(apperror.CodeTokenListUnreadable,
			apperror.WithContext(f.path), apperror.WithCause(err))
	}

	tokens := make([]pricingDomain.Token, 0, len(doc.Data))
	for _, e := range doc.Data {
		addr := strings.TrimSpace(e.Token)
		if !common.IsHexAddress(addr) {
			f.logger.Warn(ctx, "skipping token with invalid address", "symbol", e.Symbol, "token", e.Token)
			continue
		}
		tokens = append(tokens, pricingDomain.Token{
			Symbol:  strings.TrimSpace(e.Symbol),
			Address: common.HexToAddress(addr),
		})
	}

	if len(tokens) == 0 {
		f.logger.Warn(ctx, "token list is empty", "path", f.path)
	}
	return tokens, nil
}
