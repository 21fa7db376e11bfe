// Package domain contains the core domain types for the pricing context.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Venue identifies one of the two exchanges prices are compared across.
type Venue string

const (
	VenueSushiSwap Venue = "sushiswap"
	VenueUniswap   Venue = "uniswap"
)

// Venues lists every supported venue in a stable order.
var Venues = []Venue{VenueSushiSwap, VenueUniswap}

// Other returns the opposite venue.
func (v Venue) Other() Venue {
	if v == VenueSushiSwap {
		return VenueUniswap
	}
	return VenueSushiSwap
}

// Valid reports whether v is a known venue.
func (v Venue) Valid() bool {
	return v == VenueSushiSwap || v == VenueUniswap
}

// DisplayName returns the exchange name as written to the trade ledger.
func (v Venue) DisplayName() string {
	switch v {
	case VenueSushiSwap:
		return "SushiSwap"
	case VenueUniswap:
		return "Uniswap"
	default:
		return string(v)
	}
}

func (v Venue) String() string {
	return string(v)
}

// ParseVenue accepts either the tag or the display name, case-insensitively.
func ParseVenue(s string) (Venue, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sushiswap":
		return VenueSushiSwap, nil
	case "uniswap":
		return VenueUniswap, nil
	default:
		return "", fmt.Errorf("unknown venue %q", s)
	}
}

// Token is an entry of the scanned token universe.
type Token struct {
	Symbol  string
	Address common.Address
}

func (t Token) String() string {
	return t.Symbol + "(" + t.Address.Hex() + ")"
}

// Quote is a USD price for a token on one venue. A zero Quote is unavailable.
type Quote struct {
	Token     Token
	Venue     Venue
	USDPrice  decimal.Decimal
	Available bool
	FetchedAt time.Time
}

// NewQuote builds an available quote. Non-positive prices are treated as unavailable.
func NewQuote(token Token, venue Venue, price decimal.Decimal, at time.Time) Quote {
	if !price.IsPositive() {
		return Unavailable(token, venue)
	}
	return Quote{
		Token:     token,
		Venue:     venue,
		USDPrice:  price,
		Available: true,
		FetchedAt: at,
	}
}

// Unavailable returns the sentinel quote for a failed lookup.
func Unavailable(token Token, venue Venue) Quote {
	return Quote{Token: token, Venue: venue}
}
