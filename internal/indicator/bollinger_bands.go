package indicator

import (
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

// Bands holds the three Bollinger band values for one bar.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands implements Bollinger bands: a rolling mean with bands at
// k standard deviations above and below.
type BollingerBands struct {
	period int
	k      float64
}

// NewBollingerBands creates a new BollingerBands indicator with default
// configuration (20-period, k=2).
func NewBollingerBands() Indicator {
	return &BollingerBands{
		period: 20,
		k:      2.0,
	}
}

// Name returns the name of the indicator.
func (b *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Config expects two parameters: period (int) and k (float64).
func (b *BollingerBands) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 2 parameters: period (int), k (float64)")
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

	k, ok := params[1].(float64)
	if !ok {
		kInt, ok := params[1].(int)
		if !ok {
			return errors.New(errors.ErrCodeInvalidParameter, "invalid type for k parameter, expected float or int")
		}

		k = float64(kInt)
	}

	if k <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "k must be positive, got %f", k)
	}

	b.period = period
	b.k = k

	return nil
}

// RawValue returns the middle band (the rolling mean).
func (b *BollingerBands) RawValue(closes []float64) (float64, error) {
	bands, err := b.Bands(closes)
	if err != nil {
		return 0, err
	}

	return bands.Middle, nil
}

// Bands computes the upper, middle and lower bands over the trailing window.
// Returns errors.InsufficientDataError while the window is not full.
func (b *BollingerBands) Bands(closes []float64) (Bands, error) {
	if len(closes) < b.period {
		return Bands{}, errors.NewInsufficientDataErrorf(b.period, len(closes), "",
			"bollinger warm-up: need %d closes, have %d", b.period, len(closes))
	}

	sma := &SMA{period: b.period}

	middle, err := sma.RawValue(closes)
	if err != nil {
		return Bands{}, err
	}

	stddev := &StdDev{period: b.period}

	dev, err := stddev.RawValue(closes)
	if err != nil {
		return Bands{}, err
	}

	return Bands{
		Upper:  middle + b.k*dev,
		Middle: middle,
		Lower:  middle - b.k*dev,
	}, nil
}
