package types

import (
	"time"

	"github.com/tidemill-labs/backtrack/pkg/errors"
)

// Bar is one trading day's OHLCV record for a symbol. Bars are immutable once
// loaded into a PriceSeries.
type Bar struct {
	Time     time.Time `yaml:"time" json:"time" csv:"time" validate:"required"`
	Symbol   string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Open     float64   `yaml:"open" json:"open" csv:"open" validate:"gt=0"`
	High     float64   `yaml:"high" json:"high" csv:"high" validate:"gt=0"`
	Low      float64   `yaml:"low" json:"low" csv:"low" validate:"gt=0"`
	Close    float64   `yaml:"close" json:"close" csv:"close" validate:"gt=0"`
	AdjClose float64   `yaml:"adj_close" json:"adj_close" csv:"adj_close"`
	Volume   float64   `yaml:"volume" json:"volume" csv:"volume" validate:"gte=0"`
}

// PriceSeries owns the ordered bar sequence for one symbol. Dates are strictly
// increasing with no duplicates; non-trading days are simply absent.
type PriceSeries struct {
	Symbol string
	Bars   []Bar
}

// NewPriceSeries validates the bar sequence and returns a PriceSeries.
// Returns an ErrCodeDataIntegrity error on non-monotonic or duplicate dates.
func NewPriceSeries(symbol string, bars []Bar) (*PriceSeries, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "price series symbol is empty")
	}

	for i := range bars {
		bars[i].Symbol = symbol

		if i == 0 {
			continue
		}

		if !bars[i].Time.After(bars[i-1].Time) {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity,
				"price series %s is not strictly increasing at %s (previous %s)",
				symbol, bars[i].Time.Format("2006-01-02"), bars[i-1].Time.Format("2006-01-02"))
		}
	}

	return &PriceSeries{
		Symbol: symbol,
		Bars:   bars,
	}, nil
}

// Len returns the number of bars in the series.
func (p *PriceSeries) Len() int {
	return len(p.Bars)
}

// At returns the bar at index i.
func (p *PriceSeries) At(i int) Bar {
	return p.Bars[i]
}

// Between returns the bars with start <= time <= end, preserving order.
func (p *PriceSeries) Between(start, end time.Time) []Bar {
	var out []Bar

	for _, bar := range p.Bars {
		if bar.Time.Before(start) || bar.Time.After(end) {
			continue
		}

		out = append(out, bar)
	}

	return out
}
