package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/tidemill-labs/backtrack/internal/types"
)

type AnalyzerTestSuite struct {
	suite.Suite
}

func TestAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(AnalyzerTestSuite))
}

func snapshot(d int, equity float64) types.LedgerSnapshot {
	return types.LedgerSnapshot{
		Time:           time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC),
		Cash:           equity,
		PositionsValue: 0,
		TotalEquity:    equity,
	}
}

func curveOf(equities ...float64) []types.LedgerSnapshot {
	curve := make([]types.LedgerSnapshot, len(equities))
	for i, equity := range equities {
		curve[i] = snapshot(i+1, equity)
	}

	return curve
}

func (suite *AnalyzerTestSuite) TestTotalReturnPct() {
	curve := curveOf(10000, 10500, 11000)
	suite.InDelta(10.0, TotalReturnPct(10000, curve), 1e-9)
}

func (suite *AnalyzerTestSuite) TestTotalReturnEmptyCurve() {
	suite.Zero(TotalReturnPct(10000, nil))
	suite.Zero(AnnualizedReturnPct(10000, nil))
}

func (suite *AnalyzerTestSuite) TestAnnualizedReturnOneYear() {
	curve := []types.LedgerSnapshot{
		snapshot(1, 10000),
		{
			Time:        time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).Add(6 * time.Hour),
			TotalEquity: 11000,
		},
	}

	// Elapsed time is one Julian year, so annualized equals total return.
	annualized := AnnualizedReturnPct(10000, curve)
	suite.InDelta(10.0, annualized, 0.01)
}

func (suite *AnalyzerTestSuite) TestAnnualizedReturnSubDayRun() {
	curve := curveOf(10000, 10100)
	curve[1].Time = curve[0].Time

	suite.InDelta(TotalReturnPct(10000, curve), AnnualizedReturnPct(10000, curve), 1e-9)
}

func (suite *AnalyzerTestSuite) TestSharpeNoneForShortSeries() {
	suite.True(SharpeRatio(nil).IsNone())
	suite.True(SharpeRatio(curveOf(10000)).IsNone())
	suite.True(SharpeRatio(curveOf(10000, 10100)).IsNone())
}

func (suite *AnalyzerTestSuite) TestSharpeNoneForZeroVariance() {
	// Constant growth rate: every daily return is identical.
	suite.True(SharpeRatio(curveOf(10000, 10000, 10000, 10000)).IsNone())
}

func (suite *AnalyzerTestSuite) TestSharpeValue() {
	curve := curveOf(10000, 10100, 10050, 10200)

	sharpe, err := SharpeRatio(curve).Take()
	suite.Require().NoError(err)

	returns := []float64{10100.0/10000.0 - 1, 10050.0/10100.0 - 1, 10200.0/10050.0 - 1}
	mean := (returns[0] + returns[1] + returns[2]) / 3

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= 2

	expected := mean / math.Sqrt(variance) * math.Sqrt(252)
	suite.InDelta(expected, sharpe, 1e-9)
}

func (suite *AnalyzerTestSuite) TestMaxDrawdown() {
	curve := curveOf(10000, 10500, 9800, 9500, 10600, 10200)

	drawdown := MaxDrawdown(curve)
	suite.InDelta(1000.0, drawdown.Abs, 1e-9)
	suite.InDelta(1000.0/10500.0*100, drawdown.Pct, 1e-9)
	suite.Equal(2, drawdown.LengthBars)
}

func (suite *AnalyzerTestSuite) TestMaxDrawdownTracksPctAndAbsIndependently() {
	// The early decline is the deeper one in percentage terms, the later
	// one is larger in currency terms.
	curve := curveOf(100, 50, 1000, 900)

	drawdown := MaxDrawdown(curve)
	suite.InDelta(50.0, drawdown.Pct, 1e-9)
	suite.InDelta(100.0, drawdown.Abs, 1e-9)
	suite.Equal(1, drawdown.LengthBars)
}

func (suite *AnalyzerTestSuite) TestMaxDrawdownMonotonicCurve() {
	drawdown := MaxDrawdown(curveOf(10000, 10100, 10200))
	suite.Zero(drawdown.Abs)
	suite.Zero(drawdown.Pct)
	suite.Zero(drawdown.LengthBars)
}

func (suite *AnalyzerTestSuite) TestSummarize() {
	curve := curveOf(10000, 10500, 11000)

	result := Summarize("buy_hold", 10000, curve, nil)
	suite.Equal("buy_hold", result.StrategyName)
	suite.InDelta(10000.0, result.StartingCash, 1e-9)
	suite.InDelta(11000.0, result.FinalEquity, 1e-9)
	suite.InDelta(1000.0, result.TotalProfit, 1e-9)
	suite.InDelta(10.0, result.TotalReturnPct, 1e-9)
	suite.Len(result.EquityCurve, 3)
	suite.Empty(result.Transactions)
}

func (suite *AnalyzerTestSuite) TestSummarizeEmptyCurve() {
	result := Summarize("buy_hold", 10000, nil, nil)
	suite.InDelta(10000.0, result.FinalEquity, 1e-9)
	suite.Zero(result.TotalProfit)
	suite.True(result.SharpeRatio.IsNone())
}
