package models

import (
	"fmt"
	"time"
)

// MarketData is a single-tick snapshot for one asset. Funding rate and
// implied volatility are optional: a nil pointer means the venue does not
// publish them, which every consumer must treat as a valid response.
type MarketData struct {
	Timestamp         time.Time          `json:"timestamp"`
	Asset             string             `json:"asset"`
	Price             float64            `json:"price"`
	Volume            *float64           `json:"volume,omitempty"`
	ImpliedVolatility *ImpliedVolatility `json:"impliedVolatility,omitempty"`
	FundingRate       *FundingRate       `json:"fundingRate,omitempty"`
}

func (md MarketData) Validate() error {
	if md.Timestamp.IsZero() {
		return ErrNoTimestamp
	}

	if md.Asset == "" {
		return fmt.Errorf("asset not set")
	}

	if md.Price <= 0 {
		return fmt.Errorf("price must be greater than 0: got %v", md.Price)
	}

	return nil
}
