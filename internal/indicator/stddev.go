package indicator

import (
	"math"

	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

// StdDev implements a rolling population standard deviation of close prices.
type StdDev struct {
	period int
}

// NewStdDev creates a new StdDev indicator with the default period.
func NewStdDev() Indicator {
	return &StdDev{
		period: 20,
	}
}

// Name returns the name of the indicator.
func (s *StdDev) Name() types.IndicatorType {
	return types.IndicatorTypeStdDev
}

// Config expects one parameter: period (int).
func (s *StdDev) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: period (int)")
	}

	period, ok := params[0].(int)
	if !ok {
		periodFloat, ok := params[0].(float64)
		if !ok {
			return errors.New(errors.ErrCodeInvalidParameter, "invalid type for period parameter, expected int or float")
		}

		period = int(periodFloat)
	}

	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	s.period = period

	return nil
}

// RawValue computes the standard deviation of the trailing period closes.
func (s *StdDev) RawValue(closes []float64) (float64, error) {
	if len(closes) < s.period {
		return 0, errors.NewInsufficientDataErrorf(s.period, len(closes), "",
			"stddev warm-up: need %d closes, have %d", s.period, len(closes))
	}

	values := window(closes, s.period)
	avg := mean(values)

	variance := 0.0
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}

	variance /= float64(len(values))

	return math.Sqrt(variance), nil
}
