package models

import "time"

// RebalanceEvent records that a strategy reported a rebalance. It does not
// itself change position state; the strategy acts on the next tick.
type RebalanceEvent struct {
	Date             time.Time `json:"date"`
	Reason           string    `json:"reason"`
	PriceBefore      float64   `json:"priceBefore"`
	PriceAfter       float64   `json:"priceAfter"`
	PercentageChange float64   `json:"percentageChange"`
}

func NewRebalanceEvent(date time.Time, reason string, priceBefore, priceAfter float64) RebalanceEvent {
	change := 0.0
	if priceBefore > 0 {
		change = (priceAfter - priceBefore) / priceBefore
	}

	return RebalanceEvent{
		Date:             date,
		Reason:           reason,
		PriceBefore:      priceBefore,
		PriceAfter:       priceAfter,
		PercentageChange: change,
	}
}
