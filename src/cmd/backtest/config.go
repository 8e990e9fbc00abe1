package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantlabs/defi-yield-backtester/src/backtester"
	"github.com/quantlabs/defi-yield-backtester/src/costs"
	"github.com/quantlabs/defi-yield-backtester/src/data"
	"github.com/quantlabs/defi-yield-backtester/src/models"
	"github.com/quantlabs/defi-yield-backtester/src/optimizer"
	"github.com/quantlabs/defi-yield-backtester/src/risk"
	"github.com/quantlabs/defi-yield-backtester/src/strategies"
)

// RegimeSwitcherSpec wires a switcher with its two LP books.
type RegimeSwitcherSpec struct {
	Switch   strategies.RegimeSwitcherConfig `yaml:"switch"`
	Calm     strategies.LPConfig             `yaml:"calm"`
	Stressed strategies.LPConfig             `yaml:"stressed"`
}

// StrategySpec is one strategy entry in the run file. Type selects the
// constructor; exactly one of the payload sections must be set for it.
type StrategySpec struct {
	Type    string                             `yaml:"type"`
	Name    string                             `yaml:"name"`
	LP      *strategies.LPConfig               `yaml:"lp,omitempty"`
	Options *strategies.OptionsPremiumConfig   `yaml:"options,omitempty"`
	Lending *strategies.LeveragedLendingConfig `yaml:"lending,omitempty"`
	Funding *strategies.FundingArbConfig       `yaml:"funding,omitempty"`
	RWA     *strategies.RWACarryConfig         `yaml:"rwa,omitempty"`
	Regime  *RegimeSwitcherSpec                `yaml:"regime,omitempty"`
}

// BacktestConfig is the YAML run file.
type BacktestConfig struct {
	Start          time.Time              `yaml:"start"`
	End            time.Time              `yaml:"end"`
	StepHours      float64                `yaml:"stepHours"`
	InitialCapital float64                `yaml:"initialCapital"`
	RiskFreeRate   float64                `yaml:"riskFreeRate"`
	ApplyCosts     bool                   `yaml:"applyCosts"`
	ApplyIL        bool                   `yaml:"applyIl"`
	CostModel      *models.CostModel      `yaml:"costModel,omitempty"`
	GasOracles     map[string]string      `yaml:"gasOracles,omitempty"`
	RiskRules      *risk.RuleConfig       `yaml:"riskRules,omitempty"`
	CandleFiles    map[string]string      `yaml:"candleFiles"`
	FundingFiles   map[string]string      `yaml:"fundingFiles,omitempty"`
	Strategies     []StrategySpec         `yaml:"strategies"`
	Calibration    *optimizer.Calibration `yaml:"calibration,omitempty"`
}

func LoadBacktestConfig(path string) (*BacktestConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config %s: %w", path, err)
	}

	var cfg BacktestConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run config %s: %w", path, err)
	}

	if cfg.StepHours <= 0 {
		cfg.StepHours = 24
	}

	return &cfg, nil
}

// buildStrategy instantiates one spec entry and reports the assignment the
// engine should drive it with.
func buildStrategy(spec StrategySpec, opt *optimizer.RangeOptimizer) (backtester.Assignment, error) {
	if spec.Name == "" {
		return backtester.Assignment{}, fmt.Errorf("%w: strategy entry of type %q has no name", models.ErrInvalidConfig, spec.Type)
	}

	switch spec.Type {
	case "volatile-pair":
		if spec.LP == nil {
			return backtester.Assignment{}, fmt.Errorf("%w: %s needs an lp section", models.ErrInvalidConfig, spec.Type)
		}

		s, err := strategies.NewVolatilePairStrategy(spec.Name, *spec.LP, opt)
		if err != nil {
			return backtester.Assignment{}, err
		}

		return backtester.Assignment{Strategy: s, Asset: spec.LP.Asset, RangeWidth: spec.LP.RangeWidth, FeeAPR: spec.LP.FeeAPR}, nil

	case "stable-pair":
		if spec.LP == nil {
			return backtester.Assignment{}, fmt.Errorf("%w: %s needs an lp section", models.ErrInvalidConfig, spec.Type)
		}

		s, err := strategies.NewStablePairStrategy(spec.Name, *spec.LP, opt)
		if err != nil {
			return backtester.Assignment{}, err
		}

		return backtester.Assignment{Strategy: s, Asset: spec.LP.Asset, RangeWidth: spec.LP.RangeWidth, FeeAPR: spec.LP.FeeAPR}, nil

	case "trend-aware":
		if spec.LP == nil {
			return backtester.Assignment{}, fmt.Errorf("%w: %s needs an lp section", models.ErrInvalidConfig, spec.Type)
		}

		s, err := strategies.NewTrendAwareStrategy(spec.Name, *spec.LP, opt)
		if err != nil {
			return backtester.Assignment{}, err
		}

		return backtester.Assignment{Strategy: s, Asset: spec.LP.Asset, RangeWidth: spec.LP.RangeWidth, FeeAPR: spec.LP.FeeAPR}, nil

	case "options-premium":
		if spec.Options == nil {
			return backtester.Assignment{}, fmt.Errorf("%w: %s needs an options section", models.ErrInvalidConfig, spec.Type)
		}

		s, err := strategies.NewOptionsPremiumStrategy(spec.Name, *spec.Options)
		if err != nil {
			return backtester.Assignment{}, err
		}

		return backtester.Assignment{Strategy: s, Asset: spec.Options.Asset}, nil

	case "leveraged-lending":
		if spec.Lending == nil {
			return backtester.Assignment{}, fmt.Errorf("%w: %s needs a lending section", models.ErrInvalidConfig, spec.Type)
		}

		s, err := strategies.NewLeveragedLendingStrategy(spec.Name, *spec.Lending)
		if err != nil {
			return backtester.Assignment{}, err
		}

		return backtester.Assignment{Strategy: s, Asset: spec.Lending.Asset}, nil

	case "funding-arb":
		if spec.Funding == nil {
			return backtester.Assignment{}, fmt.Errorf("%w: %s needs a funding section", models.ErrInvalidConfig, spec.Type)
		}

		s, err := strategies.NewFundingArbStrategy(spec.Name, *spec.Funding)
		if err != nil {
			return backtester.Assignment{}, err
		}

		return backtester.Assignment{Strategy: s, Asset: spec.Funding.Asset}, nil

	case "rwa-carry":
		if spec.RWA == nil {
			return backtester.Assignment{}, fmt.Errorf("%w: %s needs an rwa section", models.ErrInvalidConfig, spec.Type)
		}

		s, err := strategies.NewRWACarryStrategy(spec.Name, *spec.RWA)
		if err != nil {
			return backtester.Assignment{}, err
		}

		return backtester.Assignment{Strategy: s, Asset: spec.RWA.Asset}, nil

	case "regime-switcher":
		if spec.Regime == nil {
			return backtester.Assignment{}, fmt.Errorf("%w: %s needs a regime section", models.ErrInvalidConfig, spec.Type)
		}

		calm, err := strategies.NewVolatilePairStrategy(spec.Name, spec.Regime.Calm, opt)
		if err != nil {
			return backtester.Assignment{}, fmt.Errorf("calm book: %w", err)
		}

		stressed, err := strategies.NewVolatilePairStrategy(spec.Name, spec.Regime.Stressed, opt)
		if err != nil {
			return backtester.Assignment{}, fmt.Errorf("stressed book: %w", err)
		}

		s, err := strategies.NewRegimeSwitcherStrategy(spec.Name, spec.Regime.Switch, calm, stressed)
		if err != nil {
			return backtester.Assignment{}, err
		}

		return backtester.Assignment{Strategy: s, Asset: spec.Regime.Calm.Asset, RangeWidth: spec.Regime.Calm.RangeWidth, FeeAPR: spec.Regime.Calm.FeeAPR}, nil

	default:
		return backtester.Assignment{}, fmt.Errorf("%w: unknown strategy type %q", models.ErrInvalidConfig, spec.Type)
	}
}

// BuildRunConfig turns the YAML file into an engine RunConfig.
func (cfg *BacktestConfig) BuildRunConfig() (backtester.RunConfig, error) {
	if len(cfg.CandleFiles) == 0 {
		return backtester.RunConfig{}, fmt.Errorf("%w: no candle files configured", models.ErrInvalidConfig)
	}

	adapter, err := data.NewCSVAdapter(cfg.CandleFiles, cfg.FundingFiles)
	if err != nil {
		return backtester.RunConfig{}, err
	}

	calibration := optimizer.DefaultCalibration()
	if cfg.Calibration != nil {
		calibration = *cfg.Calibration
	}

	var source costs.GasPriceSource
	if len(cfg.GasOracles) > 0 {
		source = costs.NewHTTPGasPriceSource(cfg.GasOracles)
	}

	opt, err := optimizer.NewRangeOptimizer(calibration, costs.NewCalculator(source))
	if err != nil {
		return backtester.RunConfig{}, err
	}

	assignments := make([]backtester.Assignment, 0, len(cfg.Strategies))
	for i, spec := range cfg.Strategies {
		assignment, err := buildStrategy(spec, opt)
		if err != nil {
			return backtester.RunConfig{}, fmt.Errorf("strategy %d (%s): %w", i, spec.Name, err)
		}

		assignments = append(assignments, assignment)
	}

	return backtester.RunConfig{
		Start:          cfg.Start,
		End:            cfg.End,
		Step:           time.Duration(cfg.StepHours * float64(time.Hour)),
		InitialCapital: cfg.InitialCapital,
		RiskFreeRate:   cfg.RiskFreeRate,
		ApplyCosts:     cfg.ApplyCosts,
		ApplyIL:        cfg.ApplyIL,
		CostModel:      cfg.CostModel,
		Assignments:    assignments,
		Adapter:        adapter,
		GasPriceSource: source,
		RiskRules:      cfg.RiskRules,
	}, nil
}
