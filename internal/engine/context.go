package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/tidemill-labs/backtrack/internal/broker"
	"github.com/tidemill-labs/backtrack/internal/feed"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/strategy"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

// runContext is the engine's implementation of strategy.Context, scoped to a
// single simulated date. History access is delegated to the feed registry,
// which never returns bars past the current date.
type runContext struct {
	date         time.Time
	feed         *feed.Registry
	broker       *broker.Broker
	log          *logger.Logger
	strategyName string
	// accepted collects orders acknowledged on this bar; the engine moves
	// them to the pending queue after OnBar returns, so nothing created
	// today can fill today. rejected collects submit-time rejections so the
	// strategy still receives an OnOrderUpdate for them after OnBar.
	accepted []*types.Order
	rejected []*types.Order
}

var _ strategy.Context = (*runContext)(nil)

func (c *runContext) Time() time.Time {
	return c.date
}

func (c *runContext) Symbols() []string {
	return c.feed.Symbols()
}

func (c *runContext) CurrentBar(symbol string) optional.Option[types.Bar] {
	return c.feed.BarOn(symbol, c.date)
}

func (c *runContext) History(symbol string) []types.Bar {
	return c.feed.HistoryThrough(symbol, c.date)
}

func (c *runContext) Closes(symbol string) []float64 {
	return c.feed.ClosesThrough(symbol, c.date)
}

func (c *runContext) CloseAgo(symbol string, n int) optional.Option[float64] {
	return c.feed.CloseAgo(symbol, c.date, n)
}

func (c *runContext) Position(symbol string) types.Position {
	return c.broker.Position(symbol)
}

func (c *runContext) Logger() *logger.Logger {
	return c.log
}

// Submit creates an order decided on this bar and hands it to the broker for
// acknowledgement. The decision-bar close is the reference price for
// affordability checks on fixed-quantity buys.
func (c *runContext) Submit(symbol string, side types.Side, sizing types.SizingMode, quantity float64) (types.Order, error) {
	lastBar, err := c.feed.LastBarThrough(symbol, c.date).Take()
	if err != nil {
		return types.Order{}, errors.Newf(errors.ErrCodeDataNotFound,
			"no price data for %s on or before %s", symbol, c.date.Format(time.DateOnly))
	}

	order := &types.Order{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Side:       side,
		SizingMode: sizing,
		Quantity:   quantity,
		Status:     types.OrderStatusSubmitted,
		CreatedAt:  c.date,
		Reason: types.Reason{
			Reason:  types.OrderReasonStrategy,
			Message: "",
		},
		StrategyName: c.strategyName,
	}

	if err := c.broker.Submit(order, lastBar.Close); err != nil {
		return types.Order{}, err
	}

	switch order.Status {
	case types.OrderStatusAccepted:
		c.accepted = append(c.accepted, order)
	case types.OrderStatusRejected:
		c.rejected = append(c.rejected, order)
	}

	return *order, nil
}
