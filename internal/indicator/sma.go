package indicator

import (
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

// SMA implements a simple moving average over close prices.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator with the default period.
func NewSMA() Indicator {
	return &SMA{
		period: 20,
	}
}

// Name returns the name of the indicator.
func (s *SMA) Name() types.IndicatorType {
	return types.IndicatorTypeSMA
}

// Config expects one parameter: period (int).
func (s *SMA) Config(params ...any) error {
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

// RawValue computes the average of the trailing period closes.
func (s *SMA) RawValue(closes []float64) (float64, error) {
	if len(closes) < s.period {
		return 0, errors.NewInsufficientDataErrorf(s.period, len(closes), "",
			"sma warm-up: need %d closes, have %d", s.period, len(closes))
	}

	return mean(window(closes, s.period)), nil
}
