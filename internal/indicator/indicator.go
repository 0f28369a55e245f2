// Package indicator provides rolling indicators computed over close-price
// windows. All indicators signal their warm-up period with
// errors.InsufficientDataError rather than producing partial values.
package indicator

import (
	"github.com/tidemill-labs/backtrack/internal/types"
)

// Indicator is a rolling calculation over an ordered close-price history.
// The input slice is ordered oldest first; the value is computed over the
// trailing window ending at the last element.
type Indicator interface {
	// Name returns the registry name of the indicator.
	Name() types.IndicatorType
	// Config sets indicator parameters.
	Config(params ...any) error
	// RawValue computes the indicator over the trailing window of closes.
	// Returns errors.InsufficientDataError while the window is not full.
	RawValue(closes []float64) (float64, error)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// window returns the trailing n elements of values.
func window(values []float64, n int) []float64 {
	return values[len(values)-n:]
}
