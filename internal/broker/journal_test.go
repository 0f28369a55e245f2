package broker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

type JournalTestSuite struct {
	suite.Suite
	journal *Journal
}

func TestJournalSuite(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}

func (suite *JournalTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	journal, err := NewJournal(log)
	suite.Require().NoError(err)
	suite.Require().NoError(journal.Initialize())

	suite.journal = journal
}

func (suite *JournalTestSuite) TearDownTest() {
	suite.Require().NoError(suite.journal.Close())
}

func (suite *JournalTestSuite) filledOrder(symbol string, side types.Side, created, filled int, price, quantity float64) types.Order {
	return types.Order{
		ID:             uuid.New().String(),
		Symbol:         symbol,
		Side:           side,
		SizingMode:     types.SizingAllIn,
		Quantity:       0,
		Status:         types.OrderStatusFilled,
		CreatedAt:      day(created),
		FilledAt:       day(filled),
		FilledPrice:    price,
		FilledQuantity: quantity,
		Reason: types.Reason{
			Reason:  types.OrderReasonStrategy,
			Message: "",
		},
		StrategyName: "test",
	}
}

func (suite *JournalTestSuite) TestRecordAndReadOrders() {
	order := suite.filledOrder("AAPL", types.SideBuy, 1, 2, 100, 10)
	order.Status = types.OrderStatusAccepted

	suite.Require().NoError(suite.journal.RecordOrder(order))

	orders, err := suite.journal.Orders()
	suite.Require().NoError(err)
	suite.Require().Len(orders, 1)
	suite.Equal(order.ID, orders[0].ID)
	suite.Equal(types.OrderStatusAccepted, orders[0].Status)
	suite.WithinDuration(day(1), orders[0].CreatedAt, time.Second)
}

func (suite *JournalTestSuite) TestUpdateOrder() {
	order := suite.filledOrder("AAPL", types.SideBuy, 1, 2, 100, 10)
	order.Status = types.OrderStatusAccepted

	suite.Require().NoError(suite.journal.RecordOrder(order))

	order.Status = types.OrderStatusFilled
	suite.Require().NoError(suite.journal.UpdateOrder(order))

	orders, err := suite.journal.Orders()
	suite.Require().NoError(err)
	suite.Require().Len(orders, 1)
	suite.Equal(types.OrderStatusFilled, orders[0].Status)
	suite.WithinDuration(day(2), orders[0].FilledAt, time.Second)
}

func (suite *JournalTestSuite) TestUpdateUnknownOrder() {
	order := suite.filledOrder("AAPL", types.SideBuy, 1, 2, 100, 10)

	err := suite.journal.UpdateOrder(order)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderNotFound))
}

func (suite *JournalTestSuite) TestTransactionsOrderedByTime() {
	second := suite.filledOrder("AAPL", types.SideSell, 3, 4, 110, 10)
	first := suite.filledOrder("AAPL", types.SideBuy, 1, 2, 100, 10)

	suite.Require().NoError(suite.journal.RecordOrder(second))
	suite.Require().NoError(suite.journal.RecordFill(second, 100))
	suite.Require().NoError(suite.journal.RecordOrder(first))
	suite.Require().NoError(suite.journal.RecordFill(first, 0))

	transactions, err := suite.journal.Transactions()
	suite.Require().NoError(err)
	suite.Require().Len(transactions, 2)
	suite.WithinDuration(day(2), transactions[0].Time, time.Second)
	suite.Equal(types.SideBuy, transactions[0].Side)
	suite.WithinDuration(day(4), transactions[1].Time, time.Second)
	suite.InDelta(100.0, transactions[1].PnL, 1e-9)
}

func (suite *JournalTestSuite) TestCountOrdersByStatus() {
	accepted := suite.filledOrder("AAPL", types.SideBuy, 1, 2, 100, 10)
	accepted.Status = types.OrderStatusAccepted
	rejected := suite.filledOrder("MSFT", types.SideSell, 1, 0, 0, 0)
	rejected.Status = types.OrderStatusRejected

	suite.Require().NoError(suite.journal.RecordOrder(accepted))
	suite.Require().NoError(suite.journal.RecordOrder(rejected))

	count, err := suite.journal.CountOrdersByStatus(types.OrderStatusRejected)
	suite.Require().NoError(err)
	suite.Equal(1, count)
}

func (suite *JournalTestSuite) TestWriteTradeLog() {
	order := suite.filledOrder("AAPL", types.SideBuy, 1, 2, 100, 10)
	suite.Require().NoError(suite.journal.RecordOrder(order))
	suite.Require().NoError(suite.journal.RecordFill(order, 0))

	dir := suite.T().TempDir()
	suite.Require().NoError(suite.journal.Write(dir))

	data, err := os.ReadFile(filepath.Join(dir, "trades.csv"))
	suite.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	suite.Require().Len(lines, 2)
	suite.Contains(lines[1], "AAPL")
}

func (suite *JournalTestSuite) TestCleanupResetsTables() {
	order := suite.filledOrder("AAPL", types.SideBuy, 1, 2, 100, 10)
	suite.Require().NoError(suite.journal.RecordOrder(order))

	suite.Require().NoError(suite.journal.Cleanup())

	orders, err := suite.journal.Orders()
	suite.Require().NoError(err)
	suite.Empty(orders)
}
