package strategy

import (
	"github.com/tidemill-labs/backtrack/internal/indicator"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"go.uber.org/zap"
)

type goldenCrossConfig struct {
	SizingConfig `yaml:",inline"`
	// FastPeriod and SlowPeriod are the two simple moving average windows.
	FastPeriod int `yaml:"fast_period"`
	SlowPeriod int `yaml:"slow_period"`
}

type crossState struct {
	// fastAbove is the fast/slow relation on the previous valued bar.
	fastAbove      bool
	seen           bool
	pendingOrderID string
}

// GoldenCross buys when the fast moving average crosses above the slow one
// while flat, and sells the position on the opposite cross.
type GoldenCross struct {
	config     goldenCrossConfig
	indicators indicator.Registry
	fast       indicator.Indicator
	slow       indicator.Indicator
	state      map[string]*crossState
}

// NewGoldenCross creates an uninitialized GoldenCross strategy.
func NewGoldenCross() *GoldenCross {
	return &GoldenCross{
		config:     goldenCrossConfig{},
		indicators: indicator.NewRegistry(),
		fast:       nil,
		slow:       nil,
		state:      make(map[string]*crossState),
	}
}

// Name implements Strategy.
func (s *GoldenCross) Name() string {
	return "golden_cross"
}

// Initialize implements Strategy.
func (s *GoldenCross) Initialize(config string) error {
	s.config = goldenCrossConfig{}
	s.state = make(map[string]*crossState)

	if err := unmarshalConfig(config, &s.config); err != nil {
		return err
	}

	if s.config.FastPeriod == 0 {
		s.config.FastPeriod = 50
	}

	if s.config.SlowPeriod == 0 {
		s.config.SlowPeriod = 200
	}

	if s.config.FastPeriod >= s.config.SlowPeriod {
		return errors.Newf(errors.ErrCodeStrategyConfigError,
			"fast_period (%d) must be shorter than slow_period (%d)", s.config.FastPeriod, s.config.SlowPeriod)
	}

	fast, err := s.indicators.NewIndicator(types.IndicatorTypeSMA)
	if err != nil {
		return err
	}

	if err := fast.Config(s.config.FastPeriod); err != nil {
		return err
	}

	slow, err := s.indicators.NewIndicator(types.IndicatorTypeSMA)
	if err != nil {
		return err
	}

	if err := slow.Config(s.config.SlowPeriod); err != nil {
		return err
	}

	s.fast = fast
	s.slow = slow

	return s.config.normalize()
}

// OnBar implements Strategy.
func (s *GoldenCross) OnBar(ctx Context) error {
	for _, symbol := range ctx.Symbols() {
		if ctx.CurrentBar(symbol).IsNone() {
			continue
		}

		state := s.symbolState(symbol)
		if state.pendingOrderID != "" {
			continue
		}

		closes := ctx.Closes(symbol)

		fastValue, err := s.fast.RawValue(closes)
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				continue
			}

			return err
		}

		slowValue, err := s.slow.RawValue(closes)
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				continue
			}

			return err
		}

		fastAbove := fastValue > slowValue

		if !state.seen {
			state.seen = true
			state.fastAbove = fastAbove

			continue
		}

		crossedUp := fastAbove && !state.fastAbove
		crossedDown := !fastAbove && state.fastAbove
		state.fastAbove = fastAbove

		position := ctx.Position(symbol)

		switch {
		case crossedUp && position.IsFlat():
			ctx.Logger().Debug("Golden cross",
				zap.String("symbol", symbol),
				zap.Float64("fast", fastValue),
				zap.Float64("slow", slowValue),
			)

			order, err := ctx.Submit(symbol, types.SideBuy, s.config.Sizing, s.config.Quantity)
			if err != nil {
				return err
			}

			if !order.Status.IsTerminal() {
				state.pendingOrderID = order.ID
			}
		case crossedDown && !position.IsFlat():
			ctx.Logger().Debug("Death cross",
				zap.String("symbol", symbol),
				zap.Float64("fast", fastValue),
				zap.Float64("slow", slowValue),
			)

			order, err := ctx.Submit(symbol, types.SideSell, types.SizingAllIn, 0)
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

// OnOrderUpdate implements Strategy.
func (s *GoldenCross) OnOrderUpdate(ctx Context, order types.Order) error {
	state := s.symbolState(order.Symbol)
	if order.ID == state.pendingOrderID {
		state.pendingOrderID = ""
	}

	return nil
}

func (s *GoldenCross) symbolState(symbol string) *crossState {
	state, ok := s.state[symbol]
	if !ok {
		state = &crossState{}
		s.state[symbol] = state
	}

	return state
}
