package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Position is a single strategy holding. EntryPrice is the fee-accounting
// reference price: it is set once at creation and must never change for the
// life of the position. UpdatePrice only moves CurrentPrice.
type Position struct {
	ID               uuid.UUID `json:"id"`
	StrategyID       string    `json:"strategyId"`
	Asset            string    `json:"asset"`
	Amount           float64   `json:"amount"`
	EntryPrice       float64   `json:"entryPrice"`
	CurrentPrice     float64   `json:"currentPrice"`
	CollateralAmount float64   `json:"collateralAmount"`
	BorrowedAmount   float64   `json:"borrowedAmount"`
	OpenedAt         time.Time `json:"openedAt"`
}

func NewPosition(strategyID, asset string, amount, entryPrice float64, openedAt time.Time) (*Position, error) {
	return RestorePosition(uuid.New(), strategyID, asset, amount, entryPrice, entryPrice, 0, 0, openedAt)
}

// RestorePosition rebuilds a position from its attributes, e.g. after
// deserialization. A restored position is behaviorally identical to the
// original.
func RestorePosition(id uuid.UUID, strategyID, asset string, amount, entryPrice, currentPrice, collateralAmount, borrowedAmount float64, openedAt time.Time) (*Position, error) {
	if strategyID == "" {
		return nil, fmt.Errorf("%w: strategy id not set", ErrInvalidConfig)
	}

	if asset == "" {
		return nil, fmt.Errorf("%w: asset not set", ErrInvalidConfig)
	}

	if amount == 0 {
		return nil, ErrPositionAmountZero
	}

	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidEntryPrice, entryPrice)
	}

	if currentPrice <= 0 {
		currentPrice = entryPrice
	}

	return &Position{
		ID:               id,
		StrategyID:       strategyID,
		Asset:            asset,
		Amount:           amount,
		EntryPrice:       entryPrice,
		CurrentPrice:     currentPrice,
		CollateralAmount: collateralAmount,
		BorrowedAmount:   borrowedAmount,
		OpenedAt:         openedAt,
	}, nil
}

// UpdatePrice moves the mark price. The entry price is never touched here.
func (p *Position) UpdatePrice(price float64) {
	if price <= 0 {
		return
	}

	p.CurrentPrice = price
}

func (p *Position) IsLeveraged() bool {
	return p.BorrowedAmount != 0
}

func (p *Position) MarketValue() float64 {
	return p.Amount * p.CurrentPrice
}

func (p *Position) UnrealizedPnL() float64 {
	return p.Amount * (p.CurrentPrice - p.EntryPrice)
}

// HealthFactor derives collateral value over debt value at the current mark.
func (p *Position) HealthFactor() (HealthFactor, error) {
	if !p.IsLeveraged() {
		return NewHealthFactor(p.MarketValue(), 0)
	}

	return NewHealthFactor(p.CollateralAmount*p.CurrentPrice, p.BorrowedAmount)
}

func (p *Position) String() string {
	return fmt.Sprintf("%s %s %.6f @%.2f (entry %.2f)", p.StrategyID, p.Asset, p.Amount, p.CurrentPrice, p.EntryPrice)
}
