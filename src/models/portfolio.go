package models

import (
	"sort"

	"github.com/google/uuid"
)

// Portfolio owns the cash balance and the open positions. It is mutated only
// by the backtest engine after strategies return their deltas; strategies
// receive it read-only by convention.
type Portfolio struct {
	Cash      float64                 `json:"cash"`
	Positions map[uuid.UUID]*Position `json:"positions"`
}

func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{
		Cash:      initialCash,
		Positions: make(map[uuid.UUID]*Position),
	}
}

// SetPosition inserts a new position or replaces an existing one by id.
func (pf *Portfolio) SetPosition(position *Position) {
	pf.Positions[position.ID] = position
}

func (pf *Portfolio) RemovePosition(id uuid.UUID) {
	delete(pf.Positions, id)
}

func (pf *Portfolio) GetPosition(id uuid.UUID) (*Position, bool) {
	position, found := pf.Positions[id]
	return position, found
}

// FindPosition returns the open position for a (strategy, asset) pair. The
// engine guarantees at most one exists unless a strategy manages multiple
// ids itself.
func (pf *Portfolio) FindPosition(strategyID, asset string) (*Position, bool) {
	for _, position := range pf.Positions {
		if position.StrategyID == strategyID && position.Asset == asset {
			return position, true
		}
	}

	return nil, false
}

func (pf *Portfolio) StrategyPositions(strategyID string) []*Position {
	var out []*Position
	for _, position := range pf.Positions {
		if position.StrategyID == strategyID {
			out = append(out, position)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})

	return out
}

// TotalValue is the portfolio equity: cash plus position market values, net
// of borrowed amounts. Under correct accounting it never goes negative.
func (pf *Portfolio) TotalValue() float64 {
	total := pf.Cash
	for _, position := range pf.Positions {
		total += position.MarketValue() - position.BorrowedAmount
	}

	return total
}

// TotalDebt sums borrowed amounts across leveraged positions.
func (pf *Portfolio) TotalDebt() float64 {
	debt := 0.0
	for _, position := range pf.Positions {
		debt += position.BorrowedAmount
	}

	return debt
}

// TotalCollateralValue sums collateral marked at current prices.
func (pf *Portfolio) TotalCollateralValue() float64 {
	collateral := 0.0
	for _, position := range pf.Positions {
		collateral += position.CollateralAmount * position.CurrentPrice
	}

	return collateral
}

// HealthFactor is the portfolio-level collateral over debt ratio.
func (pf *Portfolio) HealthFactor() (HealthFactor, error) {
	return NewHealthFactor(pf.TotalCollateralValue(), pf.TotalDebt())
}

// Leverage is gross exposure over equity: 1.0 for an unleveraged book.
func (pf *Portfolio) Leverage() float64 {
	equity := pf.TotalValue()
	if equity <= 0 {
		return 0
	}

	return (equity + pf.TotalDebt()) / equity
}
