package strategy

import (
	"github.com/tidemill-labs/backtrack/internal/indicator"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"go.uber.org/zap"
)

type bollingerReversionConfig struct {
	SizingConfig `yaml:",inline"`
	Period       int     `yaml:"period"`
	K            float64 `yaml:"k"`
}

type bandState struct {
	// belowLower and aboveUpper record the close/band relation on the
	// previous valued bar, so crossings can be detected.
	belowLower     bool
	aboveUpper     bool
	seen           bool
	pendingOrderID string
}

// BollingerReversion buys when the close crosses below the lower Bollinger
// band while flat, and sells the position when the close crosses above the
// upper band.
type BollingerReversion struct {
	config     bollingerReversionConfig
	indicators indicator.Registry
	bands      *indicator.BollingerBands
	state      map[string]*bandState
}

// NewBollingerReversion creates an uninitialized BollingerReversion strategy.
func NewBollingerReversion() *BollingerReversion {
	return &BollingerReversion{
		config:     bollingerReversionConfig{},
		indicators: indicator.NewRegistry(),
		bands:      nil,
		state:      make(map[string]*bandState),
	}
}

// Name implements Strategy.
func (s *BollingerReversion) Name() string {
	return "bbands"
}

// Initialize implements Strategy.
func (s *BollingerReversion) Initialize(config string) error {
	s.config = bollingerReversionConfig{}
	s.state = make(map[string]*bandState)

	if err := unmarshalConfig(config, &s.config); err != nil {
		return err
	}

	if s.config.Period == 0 {
		s.config.Period = 20
	}

	if s.config.K == 0 {
		s.config.K = 2.0
	}

	resolved, err := s.indicators.NewIndicator(types.IndicatorTypeBollingerBands)
	if err != nil {
		return err
	}

	bands, ok := resolved.(*indicator.BollingerBands)
	if !ok {
		return errors.New(errors.ErrCodeStrategyConfigError, "bollinger bands indicator unavailable")
	}

	if err := bands.Config(s.config.Period, s.config.K); err != nil {
		return err
	}

	s.bands = bands

	return s.config.normalize()
}

// OnBar implements Strategy.
func (s *BollingerReversion) OnBar(ctx Context) error {
	for _, symbol := range ctx.Symbols() {
		bar, err := ctx.CurrentBar(symbol).Take()
		if err != nil {
			continue
		}

		state := s.symbolState(symbol)
		if state.pendingOrderID != "" {
			continue
		}

		bands, err := s.bands.Bands(ctx.Closes(symbol))
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				continue
			}

			return err
		}

		belowLower := bar.Close < bands.Lower
		aboveUpper := bar.Close > bands.Upper

		if !state.seen {
			state.seen = true
			state.belowLower = belowLower
			state.aboveUpper = aboveUpper

			continue
		}

		crossedBelow := belowLower && !state.belowLower
		crossedAbove := aboveUpper && !state.aboveUpper
		state.belowLower = belowLower
		state.aboveUpper = aboveUpper

		position := ctx.Position(symbol)

		switch {
		case crossedBelow && position.IsFlat():
			ctx.Logger().Debug("Close crossed below lower band",
				zap.String("symbol", symbol),
				zap.Float64("close", bar.Close),
				zap.Float64("lower", bands.Lower),
			)

			order, err := ctx.Submit(symbol, types.SideBuy, s.config.Sizing, s.config.Quantity)
			if err != nil {
				return err
			}

			if !order.Status.IsTerminal() {
				state.pendingOrderID = order.ID
			}
		case crossedAbove && !position.IsFlat():
			ctx.Logger().Debug("Close crossed above upper band",
				zap.String("symbol", symbol),
				zap.Float64("close", bar.Close),
				zap.Float64("upper", bands.Upper),
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
func (s *BollingerReversion) OnOrderUpdate(ctx Context, order types.Order) error {
	state := s.symbolState(order.Symbol)
	if order.ID == state.pendingOrderID {
		state.pendingOrderID = ""
	}

	return nil
}

func (s *BollingerReversion) symbolState(symbol string) *bandState {
	state, ok := s.state[symbol]
	if !ok {
		state = &bandState{}
		s.state[symbol] = state
	}

	return state
}
