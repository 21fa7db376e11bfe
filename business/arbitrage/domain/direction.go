package domain

import pricingDomain "github.com/fd1az/dex-arbitrage-bot/business/pricing/domain"

// Direction is the buy/sell venue assignment of a round trip.
type Direction struct {
	Buy  pricingDomain.Venue
	Sell pricingDomain.Venue
}

// NewDirection buys on low and sells on the other venue.
func NewDirection(low pricingDomain.Venue) Direction {
	return Direction{Buy: low, Sell: low.Other()}
}

// String returns a human-readable description of the direction.
func (d Direction) String() string {
	return d.Buy.DisplayName() + " → " + d.Sell.DisplayName()
}
