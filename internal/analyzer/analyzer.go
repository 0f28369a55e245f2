// Package analyzer computes post-run statistics from a completed equity
// curve and transaction log. All functions are pure: they never mutate their
// inputs and carry no state between calls.
package analyzer

import (
	"github.com/tidemill-labs/backtrack/internal/types"
)

// Summarize assembles the full run result from the equity curve and the
// transaction log produced by a finished backtest.
func Summarize(strategyName string, startingCash float64, curve []types.LedgerSnapshot, transactions []types.Transaction) types.RunResult {
	finalEquity := startingCash
	if len(curve) > 0 {
		finalEquity = curve[len(curve)-1].TotalEquity
	}

	drawdown := MaxDrawdown(curve)

	return types.RunResult{
		StrategyName:          strategyName,
		StartingCash:          startingCash,
		FinalEquity:           finalEquity,
		TotalProfit:           finalEquity - startingCash,
		SharpeRatio:           SharpeRatio(curve),
		TotalReturnPct:        TotalReturnPct(startingCash, curve),
		AnnualizedReturnPct:   AnnualizedReturnPct(startingCash, curve),
		MaxDrawdownPct:        drawdown.Pct,
		MaxDrawdownAbs:        drawdown.Abs,
		MaxDrawdownLengthBars: drawdown.LengthBars,
		EquityCurve:           curve,
		Transactions:          transactions,
	}
}
