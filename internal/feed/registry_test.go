package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func testBar(d int, close float64) types.Bar {
	return types.Bar{
		Time:     day(d),
		Symbol:   "",
		Open:     close - 1,
		High:     close + 1,
		Low:      close - 2,
		Close:    close,
		AdjClose: close,
		Volume:   1000,
	}
}

func mustSeries(suite *RegistryTestSuite, symbol string, bars []types.Bar) *types.PriceSeries {
	series, err := types.NewPriceSeries(symbol, bars)
	suite.Require().NoError(err)

	return series
}

func (suite *RegistryTestSuite) newRegistry() *Registry {
	// AAPL trades on days 1-4, MSFT skips day 3.
	aapl := mustSeries(suite, "AAPL", []types.Bar{testBar(1, 100), testBar(2, 101), testBar(3, 102), testBar(4, 103)})
	msft := mustSeries(suite, "MSFT", []types.Bar{testBar(1, 200), testBar(2, 201), testBar(4, 203)})

	registry, err := NewRegistry([]*types.PriceSeries{aapl, msft}, day(1), day(4))
	suite.Require().NoError(err)

	return registry
}

func (suite *RegistryTestSuite) TestEmptySymbolSet() {
	_, err := NewRegistry(nil, day(1), day(4))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptySymbolSet))
}

func (suite *RegistryTestSuite) TestDuplicateSymbol() {
	a := mustSeries(suite, "AAPL", []types.Bar{testBar(1, 100)})
	b := mustSeries(suite, "AAPL", []types.Bar{testBar(1, 100)})

	_, err := NewRegistry([]*types.PriceSeries{a, b}, day(1), day(4))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataIntegrity))
}

func (suite *RegistryTestSuite) TestEmptyRangeIsFatal() {
	a := mustSeries(suite, "AAPL", []types.Bar{testBar(1, 100)})

	_, err := NewRegistry([]*types.PriceSeries{a}, day(10), day(20))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyPriceRange))
}

func (suite *RegistryTestSuite) TestCalendarIsDateUnion() {
	registry := suite.newRegistry()

	calendar := registry.Calendar()
	suite.Require().Len(calendar, 4)
	suite.Equal(day(1), calendar[0])
	suite.Equal(day(4), calendar[3])
}

func (suite *RegistryTestSuite) TestSymbolsSorted() {
	registry := suite.newRegistry()
	suite.Equal([]string{"AAPL", "MSFT"}, registry.Symbols())
}

func (suite *RegistryTestSuite) TestBarOnMissingDate() {
	registry := suite.newRegistry()

	suite.True(registry.BarOn("MSFT", day(3)).IsNone())

	bar, err := registry.BarOn("AAPL", day(3)).Take()
	suite.Require().NoError(err)
	suite.InDelta(102.0, bar.Close, 1e-9)
}

func (suite *RegistryTestSuite) TestHistoryThroughHidesFuture() {
	registry := suite.newRegistry()

	bars := registry.HistoryThrough("AAPL", day(2))
	suite.Require().Len(bars, 2)
	suite.Equal(day(2), bars[len(bars)-1].Time)

	closes := registry.ClosesThrough("AAPL", day(2))
	suite.Equal([]float64{100, 101}, closes)
}

func (suite *RegistryTestSuite) TestAccessorsReturnCopies() {
	registry := suite.newRegistry()

	symbols := registry.Symbols()
	symbols[0] = "ZZZZ"
	suite.Equal([]string{"AAPL", "MSFT"}, registry.Symbols())

	calendar := registry.Calendar()
	calendar[0] = day(30)
	suite.Equal(day(1), registry.Calendar()[0])

	bars := registry.HistoryThrough("AAPL", day(2))
	bars[0].Close = -1
	suite.InDelta(100.0, registry.HistoryThrough("AAPL", day(2))[0].Close, 1e-9)
}

func (suite *RegistryTestSuite) TestCloseAgo() {
	registry := suite.newRegistry()

	current, err := registry.CloseAgo("AAPL", day(3), 0).Take()
	suite.Require().NoError(err)
	suite.InDelta(102.0, current, 1e-9)

	twoAgo, err := registry.CloseAgo("AAPL", day(3), 2).Take()
	suite.Require().NoError(err)
	suite.InDelta(100.0, twoAgo, 1e-9)

	suite.True(registry.CloseAgo("AAPL", day(3), 3).IsNone())
}

func (suite *RegistryTestSuite) TestCloseAgoSkipsMissingDates() {
	registry := suite.newRegistry()

	// On day 4, MSFT's previous trading day is day 2: the day-3 gap does not
	// count as a lookback step.
	oneAgo, err := registry.CloseAgo("MSFT", day(4), 1).Take()
	suite.Require().NoError(err)
	suite.InDelta(201.0, oneAgo, 1e-9)
}

func (suite *RegistryTestSuite) TestLastBarThrough() {
	registry := suite.newRegistry()

	bar, err := registry.LastBarThrough("MSFT", day(3)).Take()
	suite.Require().NoError(err)
	suite.Equal(day(2), bar.Time)

	suite.True(registry.LastBarThrough("UNKNOWN", day(3)).IsNone())
}

func (suite *RegistryTestSuite) TestDateRangeRestriction() {
	aapl := mustSeries(suite, "AAPL", []types.Bar{testBar(1, 100), testBar(2, 101), testBar(3, 102), testBar(4, 103)})

	registry, err := NewRegistry([]*types.PriceSeries{aapl}, day(2), day(3))
	suite.Require().NoError(err)

	suite.Len(registry.Calendar(), 2)
	suite.Empty(registry.HistoryThrough("AAPL", day(1)))
}
