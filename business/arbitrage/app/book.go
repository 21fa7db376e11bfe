package app

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
)

// PositionBook owns the open-position table. Every operation is atomic and
// enforces at most one active position per token.
type PositionBook struct {
	mu        sync.Mutex
	positions map[common.Address]*domain.Position
}

// NewPositionBook creates an empty book.
func NewPositionBook() *PositionBook {
	return &PositionBook{positions: make(map[common.Address]*domain.Position)}
}

// Begin reserves token for a new round trip (NONE → OPENING).
func (b *PositionBook) Begin(token pricingDomain.Token, dir domain.Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.positions[token.Address]; ok && existing.State.Active() {
		return apperror.New(apperror.CodePositionExists,
			apperror.WithContext(fmt.Sprintf("%s is %s", token.Symbol, existing.State)))
	}

	b.positions[token.Address] = &domain.Position{
		TokenAddress: token.Address,
		Symbol:       token.Symbol,
		BuyVenue:     dir.Buy,
		SellVenue:    dir.Sell,
		State:        domain.StateOpening,
	}
	return nil
}

// Open records the confirmed open leg (OPENING → OPEN).
func (b *PositionBook) Open(pos *domain.Position) (*domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.transition(pos.TokenAddress, domain.StateOpen)
	if err != nil {
		return nil, err
	}

	next := pos.Clone()
	next.State = cur
	b.positions[pos.TokenAddress] = next
	return next.Clone(), nil
}

// Abort releases a reservation whose open leg failed (OPENING → NONE).
func (b *PositionBook) Abort(token common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.transition(token, domain.StateNone); err != nil {
		return err
	}
	delete(b.positions, token)
	return nil
}

// MarkClosing flags the close leg as in flight (OPEN → CLOSING).
func (b *PositionBook) MarkClosing(token common.Address) (*domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.transition(token, domain.StateClosing); err != nil {
		return nil, err
	}
	return b.positions[token].Clone(), nil
}

// Close removes a position whose close leg has been handled (CLOSING → CLOSED).
func (b *PositionBook) Close(token common.Address) (*domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.transition(token, domain.StateClosed); err != nil {
		return nil, err
	}
	pos := b.positions[token]
	delete(b.positions, token)
	return pos, nil
}

// Release drops a position without settling it, used when the position has
// been handed to the pending-close store.
func (b *PositionBook) Release(token common.Address) {
	b.mu.Lock()
	delete(b.positions, token)
	b.mu.Unlock()
}

// ObserveSellPrice records the latest monitored sell-venue unit price.
func (b *PositionBook) ObserveSellPrice(token common.Address, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pos, ok := b.positions[token]; ok {
		pos.LastSellPrice = price
	}
}

// Get returns a copy of the position for token.
func (b *PositionBook) Get(token common.Address) (*domain.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[token]
	if !ok {
		return nil, false
	}
	return pos.Clone(), true
}

// Snapshot returns copies of every tracked position.
func (b *PositionBook) Snapshot() []*domain.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*domain.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos.Clone())
	}
	return out
}

// Len returns the number of tracked positions.
func (b *PositionBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.positions)
}

// transition validates and applies a state change. Callers hold mu.
func (b *PositionBook) transition(token common.Address, to domain.PositionState) (domain.PositionState, error) {
	pos, ok := b.positions[token]
	if !ok {
		return "", apperror.New(apperror.CodePositionNotFound, apperror.WithContext(token.Hex()))
	}
	if !domain.CanTransition(pos.State, to) {
		return "", apperror.New(apperror.CodeInvalidTransition,
			apperror.WithContext(fmt.Sprintf("%s: %s → %s", pos.Symbol, pos.State, to)))
	}
	pos.State = to
	return to, nil
}
