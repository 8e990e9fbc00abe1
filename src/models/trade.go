package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is an append-only ledger entry. It is never mutated after creation;
// costs applied later are recorded by the engine, not written back here.
type Trade struct {
	ID         uuid.UUID `json:"id"`
	StrategyID string    `json:"strategyId"`
	Asset      string    `json:"asset"`
	Side       TradeSide `json:"side"`
	Amount     float64   `json:"amount"`
	Price      float64   `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
	Fees       *float64  `json:"fees,omitempty"`
	Slippage   *float64  `json:"slippage,omitempty"`
}

func NewTrade(strategyID, asset string, side TradeSide, amount, price float64, timestamp time.Time) (*Trade, error) {
	trade := &Trade{
		ID:         uuid.New(),
		StrategyID: strategyID,
		Asset:      asset,
		Side:       side,
		Amount:     amount,
		Price:      price,
		Timestamp:  timestamp,
	}

	if err := trade.Validate(); err != nil {
		return nil, fmt.Errorf("NewTrade: %w", err)
	}

	return trade, nil
}

func (tr *Trade) Validate() error {
	if tr.StrategyID == "" {
		return fmt.Errorf("%w: strategy id not set", ErrInvalidConfig)
	}

	if tr.Asset == "" {
		return fmt.Errorf("%w: asset not set", ErrInvalidConfig)
	}

	if tr.Side != TradeSideBuy && tr.Side != TradeSideSell {
		return fmt.Errorf("%w: unknown trade side %q", ErrInvalidConfig, tr.Side)
	}

	if tr.Amount <= 0 {
		return ErrTradeAmountZero
	}

	if tr.Price <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTradePrice, tr.Price)
	}

	if tr.Timestamp.IsZero() {
		return ErrNoTimestamp
	}

	return nil
}

// Notional is the trade's USD size.
func (tr *Trade) Notional() float64 {
	return tr.Amount * tr.Price
}

func (tr Trade) String() string {
	return fmt.Sprintf("%s %s %.6f %s @%.2f", tr.StrategyID, tr.Side, tr.Amount, tr.Asset, tr.Price)
}
