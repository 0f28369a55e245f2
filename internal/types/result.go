package types

import (
	"fmt"
	"os"
	"time"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// LedgerSnapshot is the end-of-day ledger valuation recorded once per
// simulated bar. The append-only sequence forms the equity curve.
type LedgerSnapshot struct {
	Time           time.Time `yaml:"time" json:"time" csv:"time"`
	Cash           float64   `yaml:"cash" json:"cash" csv:"cash"`
	PositionsValue float64   `yaml:"positions_value" json:"positions_value" csv:"positions_value"`
	TotalEquity    float64   `yaml:"total_equity" json:"total_equity" csv:"total_equity"`
}

// Transaction is one filled order in the transaction log.
type Transaction struct {
	Time     time.Time `yaml:"time" json:"time" csv:"time"`
	Symbol   string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side     Side      `yaml:"side" json:"side" csv:"side"`
	Quantity float64   `yaml:"quantity" json:"quantity" csv:"quantity"`
	Price    float64   `yaml:"price" json:"price" csv:"price"`
	// PnL is the realized profit for sells; zero for buys.
	PnL float64 `yaml:"pnl" json:"pnl" csv:"pnl"`
}

// RunResult is the complete outcome of one backtest run. The report printer
// consumes exactly this shape.
type RunResult struct {
	StrategyName string
	StartingCash float64
	FinalEquity  float64
	TotalProfit  float64
	// SharpeRatio is None when the return series has fewer than 2 points or
	// zero variance.
	SharpeRatio           optional.Option[float64]
	TotalReturnPct        float64
	AnnualizedReturnPct   float64
	MaxDrawdownPct        float64
	MaxDrawdownAbs        float64
	MaxDrawdownLengthBars int
	EquityCurve           []LedgerSnapshot
	Transactions          []Transaction
}

// runResultDoc mirrors RunResult with YAML-friendly field types.
type runResultDoc struct {
	StrategyName          string           `yaml:"strategy_name"`
	StartingCash          float64          `yaml:"starting_cash"`
	FinalEquity           float64          `yaml:"final_equity"`
	TotalProfit           float64          `yaml:"total_profit"`
	SharpeRatio           *float64         `yaml:"sharpe_ratio"`
	TotalReturnPct        float64          `yaml:"total_return_pct"`
	AnnualizedReturnPct   float64          `yaml:"annualized_return_pct"`
	MaxDrawdownPct        float64          `yaml:"max_drawdown_pct"`
	MaxDrawdownAbs        float64          `yaml:"max_drawdown_abs"`
	MaxDrawdownLengthBars int              `yaml:"max_drawdown_length_bars"`
	EquityCurve           []LedgerSnapshot `yaml:"equity_curve"`
	Transactions          []Transaction    `yaml:"transactions"`
}

// WriteRunResult writes the run result as YAML.
func WriteRunResult(path string, result RunResult) error {
	doc := runResultDoc{
		StrategyName:          result.StrategyName,
		StartingCash:          result.StartingCash,
		FinalEquity:           result.FinalEquity,
		TotalProfit:           result.TotalProfit,
		SharpeRatio:           nil,
		TotalReturnPct:        result.TotalReturnPct,
		AnnualizedReturnPct:   result.AnnualizedReturnPct,
		MaxDrawdownPct:        result.MaxDrawdownPct,
		MaxDrawdownAbs:        result.MaxDrawdownAbs,
		MaxDrawdownLengthBars: result.MaxDrawdownLengthBars,
		EquityCurve:           result.EquityCurve,
		Transactions:          result.Transactions,
	}

	if result.SharpeRatio.IsSome() {
		sharpe := result.SharpeRatio.Unwrap()
		doc.SharpeRatio = &sharpe
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal run result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run result to file: %w", err)
	}

	return nil
}
