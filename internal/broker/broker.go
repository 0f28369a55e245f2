// Package broker maintains the simulated cash/position ledger and turns
// accepted orders into fills. It is owned exclusively by the engine during a
// run; strategies never touch it directly.
package broker

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"go.uber.org/zap"
)

// Broker tracks cash and long-only positions, acknowledges orders and
// processes fills. All cash movement goes through decimal arithmetic.
type Broker struct {
	cash      decimal.Decimal
	positions map[string]*types.Position
	journal   *Journal
	logger    *logger.Logger
}

// NewBroker creates a broker with the given starting cash.
func NewBroker(startingCash float64, journal *Journal, log *logger.Logger) *Broker {
	return &Broker{
		cash:      decimal.NewFromFloat(startingCash),
		positions: make(map[string]*types.Position),
		journal:   journal,
		logger:    log,
	}
}

// Submit acknowledges an order as Accepted or Rejected and journals the
// outcome. refPrice is the decision-bar close used for the affordability
// check on fixed-quantity buys; all-in buys are sized and checked at fill.
// A rejection is an order-level outcome, not an error.
func (b *Broker) Submit(order *types.Order, refPrice float64) error {
	if err := order.Validate(); err != nil {
		return err
	}

	order.Status = types.OrderStatusAccepted

	switch order.Side {
	case types.SideSell:
		position := b.Position(order.Symbol)
		if position.IsFlat() || (order.SizingMode == types.SizingFixed && order.Quantity > position.Quantity) {
			b.reject(order, types.OrderReasonInsufficientPosition, "sell exceeds current holdings")
		}
	case types.SideBuy:
		if order.SizingMode == types.SizingFixed {
			cost := decimal.NewFromFloat(order.Quantity).Mul(decimal.NewFromFloat(refPrice))
			if cost.GreaterThan(b.cash) {
				b.reject(order, types.OrderReasonInsufficientFunds, "buy cost exceeds available cash")
			}
		}
	}

	if order.Status == types.OrderStatusAccepted {
		b.logger.Debug("Order accepted",
			zap.String("order_id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
		)
	}

	return b.journal.RecordOrder(*order)
}

// Fill executes an accepted order at the given price and time, normally the
// next bar's open. All-in buys are sized here as floor(cash/price) whole
// shares; all-in sells flatten the position. A failed re-check marks the
// order Rejected instead of returning an error.
func (b *Broker) Fill(order *types.Order, price float64, at time.Time) error {
	if price <= 0 {
		return errors.Newf(errors.ErrCodeFillFailed, "invalid fill price %f for order %s", price, order.ID)
	}

	switch order.Side {
	case types.SideBuy:
		return b.fillBuy(order, price, at)
	case types.SideSell:
		return b.fillSell(order, price, at)
	}

	return errors.Newf(errors.ErrCodeInvalidOrder, "unknown side %s", order.Side)
}

func (b *Broker) fillBuy(order *types.Order, price float64, at time.Time) error {
	priceDec := decimal.NewFromFloat(price)

	quantity := order.Quantity
	if order.SizingMode == types.SizingAllIn {
		maxQty, _ := b.cash.Div(priceDec).Float64()
		quantity = math.Floor(maxQty)
	}

	cost := decimal.NewFromFloat(quantity).Mul(priceDec)
	if quantity < 1 || cost.GreaterThan(b.cash) {
		b.reject(order, types.OrderReasonInsufficientFunds, "cannot afford order at fill price")

		return b.journal.UpdateOrder(*order)
	}

	b.cash = b.cash.Sub(cost)

	position, held := b.positions[order.Symbol]
	if !held {
		position = &types.Position{
			Symbol:   order.Symbol,
			Quantity: 0,
			AvgCost:  0,
			OpenedAt: at,
		}
		b.positions[order.Symbol] = position
	}

	// Volume-weighted average cost across all unclosed buys.
	oldValue := decimal.NewFromFloat(position.AvgCost).Mul(decimal.NewFromFloat(position.Quantity))
	newQuantity := position.Quantity + quantity
	avgCost, _ := oldValue.Add(cost).Div(decimal.NewFromFloat(newQuantity)).Float64()

	position.Quantity = newQuantity
	position.AvgCost = avgCost

	b.complete(order, price, quantity, at)

	return b.recordFill(*order, 0)
}

func (b *Broker) fillSell(order *types.Order, price float64, at time.Time) error {
	position, held := b.positions[order.Symbol]
	if !held || position.IsFlat() {
		b.reject(order, types.OrderReasonInsufficientPosition, "no shares held at fill time")

		return b.journal.UpdateOrder(*order)
	}

	quantity := order.Quantity
	if order.SizingMode == types.SizingAllIn {
		quantity = position.Quantity
	}

	if quantity > position.Quantity {
		b.reject(order, types.OrderReasonInsufficientPosition, "sell exceeds holdings at fill time")

		return b.journal.UpdateOrder(*order)
	}

	priceDec := decimal.NewFromFloat(price)
	quantityDec := decimal.NewFromFloat(quantity)

	proceeds := quantityDec.Mul(priceDec)
	b.cash = b.cash.Add(proceeds)

	// Realized PnL against volume-weighted average cost; tracked for
	// reporting, cash already carries the proceeds.
	pnl, _ := priceDec.Sub(decimal.NewFromFloat(position.AvgCost)).Mul(quantityDec).Float64()

	position.Quantity -= quantity
	if position.IsFlat() {
		delete(b.positions, order.Symbol)
	}

	b.complete(order, price, quantity, at)

	return b.recordFill(*order, pnl)
}

func (b *Broker) complete(order *types.Order, price, quantity float64, at time.Time) {
	order.Status = types.OrderStatusFilled
	order.FilledAt = at
	order.FilledPrice = price
	order.FilledQuantity = quantity

	b.logger.Debug("Order filled",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
	)
}

func (b *Broker) recordFill(order types.Order, pnl float64) error {
	if err := b.journal.UpdateOrder(order); err != nil {
		return err
	}

	return b.journal.RecordFill(order, pnl)
}

func (b *Broker) reject(order *types.Order, reason, message string) {
	order.Status = types.OrderStatusRejected
	order.Reason = types.Reason{Reason: reason, Message: message}

	b.logger.Debug("Order rejected",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("reason", reason),
	)
}

// Cancel marks a still-pending order Cancelled (end of calendar).
func (b *Broker) Cancel(order *types.Order, message string) error {
	order.Status = types.OrderStatusCancelled
	order.Reason = types.Reason{Reason: types.OrderReasonEndOfData, Message: message}

	return b.journal.UpdateOrder(*order)
}

// Cash returns the current cash balance.
func (b *Broker) Cash() float64 {
	cash, _ := b.cash.Float64()

	return cash
}

// Position returns the current position for symbol; the zero Position when
// nothing is held.
func (b *Broker) Position(symbol string) types.Position {
	if position, held := b.positions[symbol]; held {
		return *position
	}

	return types.Position{Symbol: symbol, Quantity: 0, AvgCost: 0, OpenedAt: time.Time{}}
}

// Positions returns all open positions in symbol order.
func (b *Broker) Positions() []types.Position {
	symbols := make([]string, 0, len(b.positions))
	for symbol := range b.positions {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	positions := make([]types.Position, 0, len(symbols))
	for _, symbol := range symbols {
		positions = append(positions, *b.positions[symbol])
	}

	return positions
}

// MarkToMarket values the ledger at the given date using the supplied
// last-known close per symbol.
func (b *Broker) MarkToMarket(date time.Time, lastCloses map[string]float64) types.LedgerSnapshot {
	positionsValue := decimal.Zero

	for symbol, position := range b.positions {
		price, known := lastCloses[symbol]
		if !known {
			// No close seen yet for this symbol; fall back to cost.
			price = position.AvgCost
		}

		positionsValue = positionsValue.Add(
			decimal.NewFromFloat(position.Quantity).Mul(decimal.NewFromFloat(price)))
	}

	cash, _ := b.cash.Float64()
	value, _ := positionsValue.Float64()
	equity, _ := b.cash.Add(positionsValue).Float64()

	return types.LedgerSnapshot{
		Time:           date,
		Cash:           cash,
		PositionsValue: value,
		TotalEquity:    equity,
	}
}
