package strategy

import (
	"github.com/tidemill-labs/backtrack/internal/types"
	"go.uber.org/zap"
)

type buyHoldConfig struct {
	SizingConfig `yaml:",inline"`
}

// BuyHold submits a single buy per symbol on its first tradable bar and
// never exits. A rejected entry is not retried.
type BuyHold struct {
	config    buyHoldConfig
	submitted map[string]bool
}

// NewBuyHold creates an uninitialized BuyHold strategy.
func NewBuyHold() *BuyHold {
	return &BuyHold{
		config:    buyHoldConfig{},
		submitted: make(map[string]bool),
	}
}

// Name implements Strategy.
func (s *BuyHold) Name() string {
	return "buy_hold"
}

// Initialize implements Strategy.
func (s *BuyHold) Initialize(config string) error {
	s.config = buyHoldConfig{}
	s.submitted = make(map[string]bool)

	if err := unmarshalConfig(config, &s.config); err != nil {
		return err
	}

	return s.config.normalize()
}

// OnBar implements Strategy.
func (s *BuyHold) OnBar(ctx Context) error {
	for _, symbol := range ctx.Symbols() {
		if s.submitted[symbol] {
			continue
		}

		if ctx.CurrentBar(symbol).IsNone() {
			continue
		}

		ctx.Logger().Debug("Entering position",
			zap.String("symbol", symbol),
			zap.Time("date", ctx.Time()),
		)

		if _, err := ctx.Submit(symbol, types.SideBuy, s.config.Sizing, s.config.Quantity); err != nil {
			return err
		}

		s.submitted[symbol] = true
	}

	return nil
}

// OnOrderUpdate implements Strategy.
func (s *BuyHold) OnOrderUpdate(ctx Context, order types.Order) error {
	if order.Status == types.OrderStatusRejected {
		ctx.Logger().Warn("Entry rejected",
			zap.String("symbol", order.Symbol),
			zap.String("reason", order.Reason.Message),
		)
	}

	return nil
}
