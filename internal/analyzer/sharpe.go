package analyzer

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/tidemill-labs/backtrack/internal/types"
)

// tradingDaysPerYear is the annualization factor for daily bars.
const tradingDaysPerYear = 252

// SharpeRatio computes the annualized Sharpe ratio of the daily equity
// returns (risk-free rate zero). Returns None when fewer than two return
// points exist or the return series has zero variance.
func SharpeRatio(curve []types.LedgerSnapshot) optional.Option[float64] {
	returns := dailyReturns(curve)
	if len(returns) < 2 {
		return optional.None[float64]()
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	if variance == 0 {
		return optional.None[float64]()
	}

	sharpe := mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)

	return optional.Some(sharpe)
}

// dailyReturns converts the equity curve into simple period returns.
// Snapshots with non-positive equity terminate the series.
func dailyReturns(curve []types.LedgerSnapshot) []float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].TotalEquity
		if prev <= 0 {
			break
		}

		returns = append(returns, curve[i].TotalEquity/prev-1)
	}

	return returns
}
