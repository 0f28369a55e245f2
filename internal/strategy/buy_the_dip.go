package strategy

import (
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"go.uber.org/zap"
)

type buyTheDipConfig struct {
	SizingConfig `yaml:",inline"`
	// HoldBars is the number of bars to hold after the buy fills.
	HoldBars int `yaml:"hold_bars"`
}

type dipState struct {
	holding bool
	// barsSinceFill counts bars seen since the buy filled.
	barsSinceFill int
	// pendingOrderID guards against stacking orders while one is in flight.
	pendingOrderID string
}

// BuyTheDip buys after three consecutive days of declining closes and sells
// the full position a fixed number of bars after the buy fills.
type BuyTheDip struct {
	config buyTheDipConfig
	state  map[string]*dipState
}

// NewBuyTheDip creates an uninitialized BuyTheDip strategy.
func NewBuyTheDip() *BuyTheDip {
	return &BuyTheDip{
		config: buyTheDipConfig{},
		state:  make(map[string]*dipState),
	}
}

// Name implements Strategy.
func (s *BuyTheDip) Name() string {
	return "buy_dip"
}

// Initialize implements Strategy.
func (s *BuyTheDip) Initialize(config string) error {
	s.config = buyTheDipConfig{}
	s.state = make(map[string]*dipState)

	if err := unmarshalConfig(config, &s.config); err != nil {
		return err
	}

	if s.config.HoldBars == 0 {
		s.config.HoldBars = 5
	}

	if s.config.HoldBars < 0 {
		return errors.Newf(errors.ErrCodeStrategyConfigError, "hold_bars must be positive, got %d", s.config.HoldBars)
	}

	return s.config.normalize()
}

// OnBar implements Strategy.
func (s *BuyTheDip) OnBar(ctx Context) error {
	for _, symbol := range ctx.Symbols() {
		if ctx.CurrentBar(symbol).IsNone() {
			continue
		}

		state := s.symbolState(symbol)
		if state.pendingOrderID != "" {
			continue
		}

		if !ctx.Position(symbol).IsFlat() {
			if state.holding && state.barsSinceFill >= s.config.HoldBars {
				order, err := ctx.Submit(symbol, types.SideSell, types.SizingAllIn, 0)
				if err != nil {
					return err
				}

				if !order.Status.IsTerminal() {
					state.pendingOrderID = order.ID
				}
			}

			if state.holding {
				state.barsSinceFill++
			}

			continue
		}

		if s.threeDayDecline(ctx, symbol) {
			ctx.Logger().Debug("Dip detected",
				zap.String("symbol", symbol),
				zap.Time("date", ctx.Time()),
			)

			order, err := ctx.Submit(symbol, types.SideBuy, s.config.Sizing, s.config.Quantity)
			if err != nil {
				return err
			}

			if !order.Status.IsTerminal() {
				state.pendingOrderID = order.ID
			}
		}
	}

	return nil
}

// threeDayDecline reports whether the close fell on each of the last three
// days. Abstains (false) during warm-up when the lookback is not yet full.
func (s *BuyTheDip) threeDayDecline(ctx Context, symbol string) bool {
	for n := 0; n < 3; n++ {
		newer := ctx.CloseAgo(symbol, n)
		older := ctx.CloseAgo(symbol, n+1)

		if newer.IsNone() || older.IsNone() {
			return false
		}

		if newer.Unwrap() >= older.Unwrap() {
			return false
		}
	}

	return true
}

// OnOrderUpdate implements Strategy.
func (s *BuyTheDip) OnOrderUpdate(ctx Context, order types.Order) error {
	state := s.symbolState(order.Symbol)

	if order.ID == state.pendingOrderID {
		state.pendingOrderID = ""
	}

	if order.Status == types.OrderStatusFilled {
		switch order.Side {
		case types.SideBuy:
			state.holding = true
			state.barsSinceFill = 0
		case types.SideSell:
			state.holding = false
			state.barsSinceFill = 0
		}
	}

	return nil
}

func (s *BuyTheDip) symbolState(symbol string) *dipState {
	state, ok := s.state[symbol]
	if !ok {
		state = &dipState{}
		s.state[symbol] = state
	}

	return state
}
