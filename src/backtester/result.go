package backtester

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/quantlabs/defi-yield-backtester/src/models"
	"github.com/quantlabs/defi-yield-backtester/src/risk"
)

type EquityPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// RiskAdvice is the rule engine's output for one tick, timestamped.
type RiskAdvice struct {
	Time    time.Time     `json:"time"`
	Actions []risk.Action `json:"actions"`
}

// BacktestResult is the engine's complete output: headline risk metrics, the
// raw equity curve, the trade log, per-strategy position economics, and the
// realized cost attribution.
type BacktestResult struct {
	Metrics         risk.Metrics                `json:"metrics"`
	EquityCurve     []EquityPoint               `json:"equityCurve"`
	Trades          []*models.Trade             `json:"trades"`
	FinalPortfolio  *models.Portfolio           `json:"finalPortfolio"`
	PositionMetrics map[string]PositionSnapshot `json:"positionMetrics"`
	CostsPaidUSD    map[string]float64          `json:"costsPaidUsd"`
	TotalCostsUSD   float64                     `json:"totalCostsUsd"`
	RiskAdvice      []RiskAdvice                `json:"riskAdvice"`
}

// WriteSummary renders the headline numbers as a terminal table.
func (r *BacktestResult) WriteSummary(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorder(false)

	table.Append([]string{"Total Return", fmt.Sprintf("%.2f%%", r.Metrics.TotalReturnPct)})
	table.Append([]string{"Annualized Return", fmt.Sprintf("%.2f%%", r.Metrics.AnnualizedReturn)})
	table.Append([]string{"Sharpe Ratio", fmt.Sprintf("%.3f", r.Metrics.SharpeRatio)})
	table.Append([]string{"Sortino Ratio", fmt.Sprintf("%.3f", r.Metrics.SortinoRatio)})
	table.Append([]string{"Max Drawdown", fmt.Sprintf("%.2f%%", r.Metrics.MaxDrawdown*100)})
	table.Append([]string{"VaR (95%)", fmt.Sprintf("%.4f", r.Metrics.ValueAtRisk95)})
	table.Append([]string{"Annualized Volatility", fmt.Sprintf("%.2f%%", r.Metrics.Volatility*100)})
	table.Append([]string{"Trades", fmt.Sprintf("%d", len(r.Trades))})
	table.Append([]string{"Total Costs", fmt.Sprintf("$%.2f", r.TotalCostsUSD)})

	table.Render()

	if len(r.PositionMetrics) == 0 {
		return
	}

	fmt.Fprintln(w)

	positions := tablewriter.NewWriter(w)
	positions.SetHeader([]string{"Strategy", "In-Range", "Fees Earned", "Worst IL", "Rebalances"})
	positions.SetBorder(false)

	names := make([]string, 0, len(r.PositionMetrics))
	for name := range r.PositionMetrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		snapshot := r.PositionMetrics[name]
		positions.Append([]string{
			name,
			fmt.Sprintf("%.1f%%", snapshot.TimeInRangeRatio*100),
			fmt.Sprintf("%.2f%%", snapshot.FeesEarnedPct),
			fmt.Sprintf("%.2f%%", snapshot.WorstIL*100),
			fmt.Sprintf("%d", snapshot.RebalanceCount),
		})
	}

	positions.Render()
}
