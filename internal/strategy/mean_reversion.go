package strategy

import (
	"github.com/tidemill-labs/backtrack/internal/indicator"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"go.uber.org/zap"
)

type meanReversionConfig struct {
	SizingConfig `yaml:",inline"`
	Period       int `yaml:"period"`
	// Threshold is the z-score below the rolling mean that triggers an entry.
	Threshold float64 `yaml:"threshold"`
}

type reversionState struct {
	pendingOrderID string
}

// MeanReversion buys when the close sits more than a z-score threshold below
// its rolling mean while flat, and sells once the close reverts to or above
// the mean.
type MeanReversion struct {
	config     meanReversionConfig
	indicators indicator.Registry
	mean       indicator.Indicator
	stddev     indicator.Indicator
	state      map[string]*reversionState
}

// NewMeanReversion creates an uninitialized MeanReversion strategy.
func NewMeanReversion() *MeanReversion {
	return &MeanReversion{
		config:     meanReversionConfig{},
		indicators: indicator.NewRegistry(),
		mean:       nil,
		stddev:     nil,
		state:      make(map[string]*reversionState),
	}
}

// Name implements Strategy.
func (s *MeanReversion) Name() string {
	return "mean_reversion"
}

// Initialize implements Strategy.
func (s *MeanReversion) Initialize(config string) error {
	s.config = meanReversionConfig{}
	s.state = make(map[string]*reversionState)

	if err := unmarshalConfig(config, &s.config); err != nil {
		return err
	}

	if s.config.Period == 0 {
		s.config.Period = 20
	}

	if s.config.Threshold == 0 {
		s.config.Threshold = 1.5
	}

	if s.config.Threshold < 0 {
		return errors.Newf(errors.ErrCodeStrategyConfigError,
			"threshold must be non-negative, got %f", s.config.Threshold)
	}

	mean, err := s.indicators.NewIndicator(types.IndicatorTypeSMA)
	if err != nil {
		return err
	}

	if err := mean.Config(s.config.Period); err != nil {
		return err
	}

	stddev, err := s.indicators.NewIndicator(types.IndicatorTypeStdDev)
	if err != nil {
		return err
	}

	if err := stddev.Config(s.config.Period); err != nil {
		return err
	}

	s.mean = mean
	s.stddev = stddev

	return s.config.normalize()
}

// OnBar implements Strategy.
func (s *MeanReversion) OnBar(ctx Context) error {
	for _, symbol := range ctx.Symbols() {
		bar, err := ctx.CurrentBar(symbol).Take()
		if err != nil {
			continue
		}

		state := s.symbolState(symbol)
		if state.pendingOrderID != "" {
			continue
		}

		closes := ctx.Closes(symbol)

		mean, err := s.mean.RawValue(closes)
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				continue
			}

			return err
		}

		dev, err := s.stddev.RawValue(closes)
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				continue
			}

			return err
		}

		position := ctx.Position(symbol)

		if position.IsFlat() {
			// Flat periods with no price movement produce a zero stddev;
			// no deviation signal exists there.
			if dev == 0 {
				continue
			}

			zScore := (bar.Close - mean) / dev
			if zScore >= -s.config.Threshold {
				continue
			}

			ctx.Logger().Debug("Close stretched below mean",
				zap.String("symbol", symbol),
				zap.Float64("close", bar.Close),
				zap.Float64("mean", mean),
				zap.Float64("z_score", zScore),
			)

			order, err := ctx.Submit(symbol, types.SideBuy, s.config.Sizing, s.config.Quantity)
			if err != nil {
				return err
			}

			if !order.Status.IsTerminal() {
				state.pendingOrderID = order.ID
			}

			continue
		}

		if bar.Close >= mean {
			ctx.Logger().Debug("Close reverted to mean",
				zap.String("symbol", symbol),
				zap.Float64("close", bar.Close),
				zap.Float64("mean", mean),
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
func (s *MeanReversion) OnOrderUpdate(ctx Context, order types.Order) error {
	state := s.symbolState(order.Symbol)
	if order.ID == state.pendingOrderID {
		state.pendingOrderID = ""
	}

	return nil
}

func (s *MeanReversion) symbolState(symbol string) *reversionState {
	state, ok := s.state[symbol]
	if !ok {
		state = &reversionState{}
		s.state[symbol] = state
	}

	return state
}
