package broker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/types"
)

type BrokerTestSuite struct {
	suite.Suite
	journal *Journal
	broker  *Broker
}

func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerTestSuite))
}

func (suite *BrokerTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	journal, err := NewJournal(log)
	suite.Require().NoError(err)
	suite.Require().NoError(journal.Initialize())

	suite.journal = journal
	suite.broker = NewBroker(10000, journal, log)
}

func (suite *BrokerTestSuite) TearDownTest() {
	suite.Require().NoError(suite.journal.Close())
}

func day(d int) time.Time {
	return time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC)
}

func newOrder(symbol string, side types.Side, sizing types.SizingMode, quantity float64) *types.Order {
	return &types.Order{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Side:       side,
		SizingMode: sizing,
		Quantity:   quantity,
		Status:     types.OrderStatusSubmitted,
		CreatedAt:  day(1),
		Reason: types.Reason{
			Reason:  types.OrderReasonStrategy,
			Message: "",
		},
		StrategyName: "test",
	}
}

func (suite *BrokerTestSuite) submitAndFill(order *types.Order, refPrice, fillPrice float64, at time.Time) {
	suite.Require().NoError(suite.broker.Submit(order, refPrice))
	suite.Require().Equal(types.OrderStatusAccepted, order.Status)
	suite.Require().NoError(suite.broker.Fill(order, fillPrice, at))
}

func (suite *BrokerTestSuite) TestAllInBuySizesAtFillPrice() {
	order := newOrder("AAPL", types.SideBuy, types.SizingAllIn, 0)
	suite.submitAndFill(order, 100, 102, day(2))

	// floor(10000/102) = 98 shares, cost 9996.
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.InDelta(98.0, order.FilledQuantity, 1e-9)
	suite.InDelta(102.0, order.FilledPrice, 1e-9)
	suite.Equal(day(2), order.FilledAt)
	suite.InDelta(4.0, suite.broker.Cash(), 1e-9)

	position := suite.broker.Position("AAPL")
	suite.InDelta(98.0, position.Quantity, 1e-9)
	suite.InDelta(102.0, position.AvgCost, 1e-9)
	suite.Equal(day(2), position.OpenedAt)
}

func (suite *BrokerTestSuite) TestAllInBuyRejectedWhenUnaffordable() {
	first := newOrder("AAPL", types.SideBuy, types.SizingAllIn, 0)
	suite.submitAndFill(first, 100, 100, day(2))

	// Cash is now 0; the next buy cannot afford a single share.
	second := newOrder("AAPL", types.SideBuy, types.SizingAllIn, 0)
	suite.Require().NoError(suite.broker.Submit(second, 100))
	suite.Require().NoError(suite.broker.Fill(second, 100, day(3)))

	suite.Equal(types.OrderStatusRejected, second.Status)
	suite.Equal(types.OrderReasonInsufficientFunds, second.Reason.Reason)
}

func (suite *BrokerTestSuite) TestFixedBuyRejectedAtSubmit() {
	order := newOrder("AAPL", types.SideBuy, types.SizingFixed, 200)

	suite.Require().NoError(suite.broker.Submit(order, 100))
	suite.Equal(types.OrderStatusRejected, order.Status)
	suite.Equal(types.OrderReasonInsufficientFunds, order.Reason.Reason)
}

func (suite *BrokerTestSuite) TestSellWithoutPositionRejectedAtSubmit() {
	order := newOrder("AAPL", types.SideSell, types.SizingAllIn, 0)

	suite.Require().NoError(suite.broker.Submit(order, 100))
	suite.Equal(types.OrderStatusRejected, order.Status)
	suite.Equal(types.OrderReasonInsufficientPosition, order.Reason.Reason)
	suite.InDelta(10000.0, suite.broker.Cash(), 1e-9)
}

func (suite *BrokerTestSuite) TestAllInSellFlattensPosition() {
	buy := newOrder("AAPL", types.SideBuy, types.SizingAllIn, 0)
	suite.submitAndFill(buy, 100, 100, day(2))

	sell := newOrder("AAPL", types.SideSell, types.SizingAllIn, 0)
	suite.submitAndFill(sell, 110, 110, day(3))

	suite.Equal(types.OrderStatusFilled, sell.Status)
	suite.InDelta(100.0, sell.FilledQuantity, 1e-9)
	suite.True(suite.broker.Position("AAPL").IsFlat())
	suite.InDelta(11000.0, suite.broker.Cash(), 1e-9)
	suite.Empty(suite.broker.Positions())
}

func (suite *BrokerTestSuite) TestRealizedPnLAgainstAvgCost() {
	buy := newOrder("AAPL", types.SideBuy, types.SizingFixed, 50)
	suite.submitAndFill(buy, 100, 100, day(2))

	sell := newOrder("AAPL", types.SideSell, types.SizingAllIn, 0)
	suite.submitAndFill(sell, 120, 120, day(3))

	transactions, err := suite.journal.Transactions()
	suite.Require().NoError(err)
	suite.Require().Len(transactions, 2)

	suite.InDelta(0.0, transactions[0].PnL, 1e-9)
	suite.InDelta(1000.0, transactions[1].PnL, 1e-9)
}

func (suite *BrokerTestSuite) TestWeightedAverageCost() {
	first := newOrder("AAPL", types.SideBuy, types.SizingFixed, 10)
	suite.submitAndFill(first, 100, 100, day(2))

	second := newOrder("AAPL", types.SideBuy, types.SizingFixed, 30)
	suite.submitAndFill(second, 120, 120, day(3))

	position := suite.broker.Position("AAPL")
	suite.InDelta(40.0, position.Quantity, 1e-9)
	// (10*100 + 30*120) / 40 = 115
	suite.InDelta(115.0, position.AvgCost, 1e-9)
	suite.Equal(day(2), position.OpenedAt)
}

func (suite *BrokerTestSuite) TestFixedSellExceedingHoldingsRejected() {
	buy := newOrder("AAPL", types.SideBuy, types.SizingFixed, 10)
	suite.submitAndFill(buy, 100, 100, day(2))

	sell := newOrder("AAPL", types.SideSell, types.SizingFixed, 20)
	suite.Require().NoError(suite.broker.Submit(sell, 100))
	suite.Equal(types.OrderStatusRejected, sell.Status)
	suite.Equal(types.OrderReasonInsufficientPosition, sell.Reason.Reason)
}

func (suite *BrokerTestSuite) TestCancelMarksOrder() {
	order := newOrder("AAPL", types.SideBuy, types.SizingAllIn, 0)
	suite.Require().NoError(suite.broker.Submit(order, 100))

	suite.Require().NoError(suite.broker.Cancel(order, "simulation ended before fill"))
	suite.Equal(types.OrderStatusCancelled, order.Status)
	suite.Equal(types.OrderReasonEndOfData, order.Reason.Reason)
}

func (suite *BrokerTestSuite) TestMarkToMarket() {
	buy := newOrder("AAPL", types.SideBuy, types.SizingFixed, 50)
	suite.submitAndFill(buy, 100, 100, day(2))

	snapshot := suite.broker.MarkToMarket(day(2), map[string]float64{"AAPL": 104})
	suite.Equal(day(2), snapshot.Time)
	suite.InDelta(5000.0, snapshot.Cash, 1e-9)
	suite.InDelta(5200.0, snapshot.PositionsValue, 1e-9)
	suite.InDelta(10200.0, snapshot.TotalEquity, 1e-9)
}

func (suite *BrokerTestSuite) TestMarkToMarketUnknownCloseFallsBackToCost() {
	buy := newOrder("AAPL", types.SideBuy, types.SizingFixed, 50)
	suite.submitAndFill(buy, 100, 100, day(2))

	snapshot := suite.broker.MarkToMarket(day(2), map[string]float64{})
	suite.InDelta(10000.0, snapshot.TotalEquity, 1e-9)
}
