// Package strategy holds the pluggable trading strategies and the
// point-in-time context the engine hands them on every bar.
package strategy

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Context is the narrow, read-only view of the simulation a strategy sees at
// one bar. It exposes only bars up to and including the current simulated
// date; this is the enforcement point for no-look-ahead.
type Context interface {
	// Time returns the current simulated date.
	Time() time.Time
	// Symbols returns all registered symbols.
	Symbols() []string
	// CurrentBar returns the bar for symbol on the current date, or None if
	// the symbol did not trade today.
	CurrentBar(symbol string) optional.Option[types.Bar]
	// History returns all bars for symbol up to and including the current
	// date, oldest first.
	History(symbol string) []types.Bar
	// Closes returns the close prices of History.
	Closes(symbol string) []float64
	// CloseAgo returns the close n trading days ago for symbol (n=0 is the
	// current close). None during warm-up when the lookback exceeds history.
	CloseAgo(symbol string, n int) optional.Option[float64]
	// Position returns the current position for symbol.
	Position(symbol string) types.Position
	// Submit queues an order decided on this bar. The returned order carries
	// the acknowledgement status (Accepted or Rejected); accepted orders
	// fill at the next available bar's open.
	Submit(symbol string, side types.Side, sizing types.SizingMode, quantity float64) (types.Order, error)
	// Logger returns the run logger.
	Logger() *logger.Logger
}

// Strategy is the pluggable decision logic. Implementations hold private
// per-symbol state that persists across bars and is reset by Initialize at
// the start of a run.
type Strategy interface {
	// Name returns the registry name of the strategy.
	Name() string
	// Initialize parses the YAML parameter payload and resets all run state.
	Initialize(config string) error
	// OnBar is invoked once per simulated date, after pending fills resolve.
	OnBar(ctx Context) error
	// OnOrderUpdate is invoked when an order created by this strategy
	// reaches a terminal state.
	OnOrderUpdate(ctx Context, order types.Order) error
}

// SizingConfig selects how orders created by a strategy are sized. Shared by
// all built-in strategy configs.
type SizingConfig struct {
	// Sizing is all_in (default) or fixed.
	Sizing types.SizingMode `yaml:"sizing"`
	// Quantity is the share count for fixed sizing.
	Quantity float64 `yaml:"quantity"`
}

func (c *SizingConfig) normalize() error {
	if c.Sizing == "" {
		c.Sizing = types.SizingAllIn
	}

	switch c.Sizing {
	case types.SizingAllIn:
		c.Quantity = 0
	case types.SizingFixed:
		if c.Quantity <= 0 {
			return errors.New(errors.ErrCodeInvalidSizing, "fixed sizing requires a positive quantity")
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidSizing, "unknown sizing mode %q", c.Sizing)
	}

	return nil
}

// unmarshalConfig parses a strategy YAML payload into out. An empty payload
// leaves out at its defaults.
func unmarshalConfig(config string, out any) error {
	if config == "" {
		return nil
	}

	if err := yaml.Unmarshal([]byte(config), out); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse strategy config", err)
	}

	return nil
}
