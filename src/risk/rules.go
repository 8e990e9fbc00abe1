package risk

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/quantlabs/defi-yield-backtester/src/models"
)

type ActionType string

const (
	ActionReduce   ActionType = "reduce"
	ActionClose    ActionType = "close"
	ActionIncrease ActionType = "increase"
)

// Action is an advisory emitted by the rule engine. The engine never mutates
// the portfolio itself; acting on the advice is the caller's decision.
type Action struct {
	Type       ActionType `json:"type"`
	StrategyID string     `json:"strategyId"`
	Asset      string     `json:"asset"`
	Reason     string     `json:"reason"`
}

// RuleConfig sets the thresholds the rule engine evaluates each tick.
// Zero-valued thresholds disable the corresponding rule.
type RuleConfig struct {
	MinHealthFactor    float64 `yaml:"minHealthFactor"`
	TargetHealthFactor float64 `yaml:"targetHealthFactor"`
	MaxLeverage        float64 `yaml:"maxLeverage"`
	MaxDrawdown        float64 `yaml:"maxDrawdown"`
}

func (c RuleConfig) Validate() error {
	if c.MinHealthFactor < 0 || c.MaxLeverage < 0 || c.MaxDrawdown < 0 {
		return fmt.Errorf("%w: rule thresholds must be non-negative", models.ErrInvalidConfig)
	}

	if c.TargetHealthFactor != 0 && c.TargetHealthFactor < c.MinHealthFactor {
		return fmt.Errorf("%w: target health factor %v below minimum %v", models.ErrInvalidConfig, c.TargetHealthFactor, c.MinHealthFactor)
	}

	return nil
}

// RuleEngine turns portfolio state into deleveraging or releveraging advice.
type RuleEngine struct {
	cfg RuleConfig
}

func NewRuleEngine(cfg RuleConfig) (*RuleEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &RuleEngine{cfg: cfg}, nil
}

// Evaluate inspects every leveraged position and the portfolio aggregates.
// Position order is deterministic so repeated runs emit identical advice.
func (e *RuleEngine) Evaluate(portfolio *models.Portfolio, drawdown float64) ([]Action, error) {
	if portfolio == nil {
		return nil, fmt.Errorf("%w: portfolio not set", models.ErrInvalidConfig)
	}

	var actions []Action

	positions := make([]*models.Position, 0, len(portfolio.Positions))
	for _, position := range portfolio.Positions {
		positions = append(positions, position)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].ID.String() < positions[j].ID.String()
	})

	for _, position := range positions {
		if !position.IsLeveraged() {
			continue
		}

		hf, err := position.HealthFactor()
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", position.ID, err)
		}

		if hf.IsInfinite() {
			continue
		}

		if e.cfg.MinHealthFactor > 0 && float64(hf) < e.cfg.MinHealthFactor {
			if float64(hf) < 1 {
				actions = append(actions, Action{
					Type:       ActionClose,
					StrategyID: position.StrategyID,
					Asset:      position.Asset,
					Reason:     fmt.Sprintf("health factor %.3f below liquidation threshold", float64(hf)),
				})
				continue
			}

			actions = append(actions, Action{
				Type:       ActionReduce,
				StrategyID: position.StrategyID,
				Asset:      position.Asset,
				Reason:     fmt.Sprintf("health factor %.3f below minimum %.3f", float64(hf), e.cfg.MinHealthFactor),
			})
			continue
		}

		if e.cfg.TargetHealthFactor > 0 && float64(hf) > e.cfg.TargetHealthFactor {
			actions = append(actions, Action{
				Type:       ActionIncrease,
				StrategyID: position.StrategyID,
				Asset:      position.Asset,
				Reason:     fmt.Sprintf("health factor %.3f above target %.3f, capacity unused", float64(hf), e.cfg.TargetHealthFactor),
			})
		}
	}

	if e.cfg.MaxLeverage > 0 {
		if leverage := portfolio.Leverage(); leverage > e.cfg.MaxLeverage {
			actions = append(actions, Action{
				Type:   ActionReduce,
				Reason: fmt.Sprintf("portfolio leverage %.2fx exceeds maximum %.2fx", leverage, e.cfg.MaxLeverage),
			})
		}
	}

	if e.cfg.MaxDrawdown > 0 && drawdown > e.cfg.MaxDrawdown {
		actions = append(actions, Action{
			Type:   ActionReduce,
			Reason: fmt.Sprintf("drawdown %.2f%% exceeds maximum %.2f%%", drawdown*100, e.cfg.MaxDrawdown*100),
		})
	}

	if len(actions) > 0 {
		log.Debugf("risk rules emitted %d actions", len(actions))
	}

	return actions, nil
}
