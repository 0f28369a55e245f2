package analyzer

import (
	"math"

	"github.com/tidemill-labs/backtrack/internal/types"
)

const daysPerYear = 365.25

// TotalReturnPct is the percentage change from starting cash to final equity.
// Returns 0 for an empty curve or non-positive starting cash.
func TotalReturnPct(startingCash float64, curve []types.LedgerSnapshot) float64 {
	if len(curve) == 0 || startingCash <= 0 {
		return 0
	}

	final := curve[len(curve)-1].TotalEquity

	return (final - startingCash) / startingCash * 100
}

// AnnualizedReturnPct normalizes the total return by elapsed simulated years.
// Runs spanning less than one calendar day use the total return unannualized.
func AnnualizedReturnPct(startingCash float64, curve []types.LedgerSnapshot) float64 {
	if len(curve) == 0 || startingCash <= 0 {
		return 0
	}

	final := curve[len(curve)-1].TotalEquity
	if final <= 0 {
		return -100
	}

	elapsed := curve[len(curve)-1].Time.Sub(curve[0].Time)

	years := elapsed.Hours() / 24 / daysPerYear
	if years <= 0 {
		return TotalReturnPct(startingCash, curve)
	}

	return (math.Pow(final/startingCash, 1/years) - 1) * 100
}
