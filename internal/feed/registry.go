// Package feed aligns per-symbol price series onto a shared simulation
// calendar and serves point-in-time lookups to the backtest engine.
package feed

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

type symbolSeries struct {
	bars  []types.Bar
	index map[time.Time]int
}

// Registry holds one price series per symbol, restricted to the simulation
// date range, plus the calendar of distinct trading dates across all symbols.
// It is immutable after construction.
type Registry struct {
	series   map[string]*symbolSeries
	symbols  []string
	calendar []time.Time
}

// NewRegistry builds a registry from the given series restricted to
// [start, end]. A symbol with zero bars in range is a fatal data error.
func NewRegistry(seriesList []*types.PriceSeries, start, end time.Time) (*Registry, error) {
	if len(seriesList) == 0 {
		return nil, errors.New(errors.ErrCodeEmptySymbolSet, "no price series registered")
	}

	registry := &Registry{
		series:   make(map[string]*symbolSeries, len(seriesList)),
		symbols:  nil,
		calendar: nil,
	}

	dates := make(map[time.Time]struct{})

	for _, series := range seriesList {
		if _, exists := registry.series[series.Symbol]; exists {
			return nil, errors.Newf(errors.ErrCodeDataIntegrity, "duplicate price series for symbol %s", series.Symbol)
		}

		bars := series.Between(start, end)
		if len(bars) == 0 {
			return nil, errors.Newf(errors.ErrCodeEmptyPriceRange,
				"symbol %s has no bars between %s and %s",
				series.Symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}

		index := make(map[time.Time]int, len(bars))
		for i, bar := range bars {
			index[bar.Time] = i
			dates[bar.Time] = struct{}{}
		}

		registry.series[series.Symbol] = &symbolSeries{bars: bars, index: index}
		registry.symbols = append(registry.symbols, series.Symbol)
	}

	sort.Strings(registry.symbols)

	registry.calendar = make([]time.Time, 0, len(dates))
	for date := range dates {
		registry.calendar = append(registry.calendar, date)
	}

	sort.Slice(registry.calendar, func(i, j int) bool {
		return registry.calendar[i].Before(registry.calendar[j])
	})

	return registry, nil
}

// Symbols returns the registered symbols in sorted order. The slice is a
// copy; callers cannot mutate registry state through it.
func (r *Registry) Symbols() []string {
	symbols := make([]string, len(r.symbols))
	copy(symbols, r.symbols)

	return symbols
}

// Calendar returns the ascending sequence of distinct trading dates across
// all registered symbols. The slice is a copy.
func (r *Registry) Calendar() []time.Time {
	calendar := make([]time.Time, len(r.calendar))
	copy(calendar, r.calendar)

	return calendar
}

// BarOn returns the bar for symbol on the exact date, if the symbol traded
// that day.
func (r *Registry) BarOn(symbol string, date time.Time) optional.Option[types.Bar] {
	series, ok := r.series[symbol]
	if !ok {
		return optional.None[types.Bar]()
	}

	i, ok := series.index[date]
	if !ok {
		return optional.None[types.Bar]()
	}

	return optional.Some(series.bars[i])
}

// HistoryThrough returns all bars for symbol with time <= date, oldest first.
// This is the no-look-ahead boundary: callers can never observe future bars.
// The slice is a copy; mutating it leaves the registry untouched.
func (r *Registry) HistoryThrough(symbol string, date time.Time) []types.Bar {
	bars := r.historyThrough(symbol, date)
	if bars == nil {
		return nil
	}

	history := make([]types.Bar, len(bars))
	copy(history, bars)

	return history
}

// historyThrough serves internal lookups that only read the prefix.
func (r *Registry) historyThrough(symbol string, date time.Time) []types.Bar {
	series, ok := r.series[symbol]
	if !ok {
		return nil
	}

	n := sort.Search(len(series.bars), func(i int) bool {
		return series.bars[i].Time.After(date)
	})

	return series.bars[:n]
}

// ClosesThrough returns the close prices of all bars with time <= date,
// oldest first.
func (r *Registry) ClosesThrough(symbol string, date time.Time) []float64 {
	bars := r.historyThrough(symbol, date)
	if len(bars) == 0 {
		return nil
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	return closes
}

// CloseAgo returns the close n trading days before the most recent bar at or
// before date. n=0 is the current close. Returns None when the lookback
// reaches past the start of history.
func (r *Registry) CloseAgo(symbol string, date time.Time, n int) optional.Option[float64] {
	if n < 0 {
		return optional.None[float64]()
	}

	bars := r.historyThrough(symbol, date)
	if len(bars) <= n {
		return optional.None[float64]()
	}

	return optional.Some(bars[len(bars)-1-n].Close)
}

// LastBarThrough returns the most recent bar at or before date, if any.
func (r *Registry) LastBarThrough(symbol string, date time.Time) optional.Option[types.Bar] {
	bars := r.historyThrough(symbol, date)
	if len(bars) == 0 {
		return optional.None[types.Bar]()
	}

	return optional.Some(bars[len(bars)-1])
}
