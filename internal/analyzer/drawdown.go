package analyzer

import (
	"github.com/tidemill-labs/backtrack/internal/types"
)

// Drawdown aggregates the worst equity declines of a run. Pct, Abs and
// LengthBars are independent running maxima: the deepest percentage decline,
// the largest currency decline and the longest stretch of bars spent below a
// peak may each come from a different drawdown.
type Drawdown struct {
	// Pct is the largest decline as a percentage of its peak equity.
	Pct float64
	// Abs is the largest decline in account currency.
	Abs float64
	// LengthBars counts the bars of the longest stretch below a peak.
	LengthBars int
}

// MaxDrawdown scans the equity curve and tracks each drawdown statistic
// independently. An empty or monotonically rising curve yields the zero value.
func MaxDrawdown(curve []types.LedgerSnapshot) Drawdown {
	worst := Drawdown{}

	if len(curve) == 0 {
		return worst
	}

	peak := curve[0].TotalEquity
	length := 0

	for _, snapshot := range curve {
		if snapshot.TotalEquity >= peak {
			peak = snapshot.TotalEquity
			length = 0

			continue
		}

		length++

		abs := peak - snapshot.TotalEquity

		pct := 0.0
		if peak > 0 {
			pct = abs / peak * 100
		}

		if abs > worst.Abs {
			worst.Abs = abs
		}

		if pct > worst.Pct {
			worst.Pct = pct
		}

		if length > worst.LengthBars {
			worst.LengthBars = length
		}
	}

	return worst
}
