// Package engine drives the bar-by-bar simulation: it advances the shared
// calendar, resolves pending fills at the open, invokes the strategy and
// records end-of-day ledger snapshots.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/tidemill-labs/backtrack/internal/analyzer"
	"github.com/tidemill-labs/backtrack/internal/broker"
	"github.com/tidemill-labs/backtrack/internal/feed"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/strategy"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Date range bounds used when the configuration leaves start or end open.
var (
	minTime = time.Time{}
	maxTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// OnProgressCallback reports simulation progress after each processed date.
type OnProgressCallback func(current int, total int)

// Engine orchestrates one backtest run over a feed registry with a single
// strategy. Construct with NewEngine, then Initialize, SetStrategy and
// LoadData before Run.
type Engine struct {
	config         Config
	log            *logger.Logger
	feed           *feed.Registry
	journal        *broker.Journal
	broker         *broker.Broker
	strategy       strategy.Strategy
	strategyConfig string
	onProgress     OnProgressCallback
}

// NewEngine creates an uninitialized engine.
func NewEngine() *Engine {
	return &Engine{
		config:         EmptyConfig(),
		log:            nil,
		feed:           nil,
		journal:        nil,
		broker:         nil,
		strategy:       nil,
		strategyConfig: "",
		onProgress:     nil,
	}
}

// Initialize parses the YAML engine configuration and prepares the journal.
func (e *Engine) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &e.config); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse engine config", err)
	}

	if err := e.config.Validate(); err != nil {
		return err
	}

	if e.log == nil {
		log, err := logger.NewLogger()
		if err != nil {
			return err
		}

		e.log = log
	}

	e.log.Debug("Engine initialized",
		zap.Float64("starting_cash", e.config.StartingCash),
	)

	journal, err := broker.NewJournal(e.log)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create order journal", err)
	}

	if err := journal.Initialize(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to initialize order journal", err)
	}

	e.journal = journal

	return nil
}

// SetLogger replaces the engine logger. Must be called before Initialize to
// take effect for initialization logging.
func (e *Engine) SetLogger(log *logger.Logger) {
	e.log = log
}

// SetProgressCallback registers a progress callback invoked once per
// processed calendar date.
func (e *Engine) SetProgressCallback(callback OnProgressCallback) {
	e.onProgress = callback
}

// SetStrategy assigns the strategy and its YAML parameter payload. The
// strategy is initialized (and its state reset) at the start of Run.
func (e *Engine) SetStrategy(s strategy.Strategy, strategyConfig string) {
	e.strategy = s
	e.strategyConfig = strategyConfig
}

// LoadData builds the feed registry from the given price series, restricted
// to the configured date range.
func (e *Engine) LoadData(seriesList []*types.PriceSeries) error {
	start := minTime
	if e.config.StartTime.IsSome() {
		start = e.config.StartTime.Unwrap()
	}

	end := maxTime
	if e.config.EndTime.IsSome() {
		end = e.config.EndTime.Unwrap()
	}

	registry, err := feed.NewRegistry(seriesList, start, end)
	if err != nil {
		return err
	}

	e.feed = registry

	e.log.Debug("Data loaded",
		zap.Strings("symbols", registry.Symbols()),
		zap.Int("calendar_days", len(registry.Calendar())),
	)

	return nil
}

func (e *Engine) preRunCheck() error {
	if e.journal == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine is not initialized")
	}

	if e.strategy == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "no strategy set")
	}

	if e.feed == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "no data loaded")
	}

	return nil
}

// Run executes the simulation and returns the assembled run result. The
// context cancels a run between calendar dates.
func (e *Engine) Run(ctx context.Context) (types.RunResult, error) {
	if err := e.preRunCheck(); err != nil {
		return types.RunResult{}, err
	}

	if err := e.strategy.Initialize(e.strategyConfig); err != nil {
		return types.RunResult{}, err
	}

	e.broker = broker.NewBroker(e.config.StartingCash, e.journal, e.log)

	calendar := e.feed.Calendar()

	var pending []*types.Order

	lastCloses := make(map[string]float64)
	curve := make([]types.LedgerSnapshot, 0, len(calendar))

	for i, date := range calendar {
		if err := ctx.Err(); err != nil {
			return types.RunResult{}, errors.Wrap(errors.ErrCodeBacktestRunFailed, "run cancelled", err)
		}

		runCtx := &runContext{
			date:         date,
			feed:         e.feed,
			broker:       e.broker,
			log:          e.log,
			strategyName: e.strategy.Name(),
			accepted:     nil,
			rejected:     nil,
		}

		// Orders accepted on earlier dates fill at today's open. Symbols
		// without a bar today stay queued for their next traded date.
		remaining := pending[:0]

		for _, order := range pending {
			bar, err := e.feed.BarOn(order.Symbol, date).Take()
			if err != nil {
				remaining = append(remaining, order)

				continue
			}

			if err := e.broker.Fill(order, bar.Open, date); err != nil {
				return types.RunResult{}, err
			}

			if err := e.strategy.OnOrderUpdate(runCtx, *order); err != nil {
				return types.RunResult{}, err
			}
		}

		pending = remaining

		for _, symbol := range e.feed.Symbols() {
			if bar, err := e.feed.BarOn(symbol, date).Take(); err == nil {
				lastCloses[symbol] = bar.Close
			}
		}

		if err := e.strategy.OnBar(runCtx); err != nil {
			return types.RunResult{}, errors.Wrap(errors.ErrCodeStrategyFailed, "strategy callback failed", err)
		}

		pending = append(pending, runCtx.accepted...)

		// Submit-time rejections are terminal too; the strategy hears about
		// them through the same callback as fills and cancellations.
		for _, order := range runCtx.rejected {
			if err := e.strategy.OnOrderUpdate(runCtx, *order); err != nil {
				return types.RunResult{}, err
			}
		}

		curve = append(curve, e.broker.MarkToMarket(date, lastCloses))

		if e.onProgress != nil {
			e.onProgress(i+1, len(calendar))
		}
	}

	// Whatever never found a fill bar is cancelled, not silently dropped.
	if len(pending) > 0 {
		endCtx := &runContext{
			date:         calendar[len(calendar)-1],
			feed:         e.feed,
			broker:       e.broker,
			log:          e.log,
			strategyName: e.strategy.Name(),
			accepted:     nil,
			rejected:     nil,
		}

		for _, order := range pending {
			if err := e.broker.Cancel(order, "simulation ended before fill"); err != nil {
				return types.RunResult{}, err
			}

			if err := e.strategy.OnOrderUpdate(endCtx, *order); err != nil {
				return types.RunResult{}, err
			}
		}
	}

	transactions, err := e.journal.Transactions()
	if err != nil {
		return types.RunResult{}, err
	}

	result := analyzer.Summarize(e.strategy.Name(), e.config.StartingCash, curve, transactions)

	e.log.Info("Run complete",
		zap.String("strategy", result.StrategyName),
		zap.Float64("final_equity", result.FinalEquity),
		zap.Int("transactions", len(result.Transactions)),
	)

	return result, nil
}

// WriteResults writes the run statistics and the trade log into folder.
func (e *Engine) WriteResults(folder string, result types.RunResult) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestRunFailed, "failed to create results folder", err)
	}

	if err := types.WriteRunResult(filepath.Join(folder, "stats.yaml"), result); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestRunFailed, "failed to write run stats", err)
	}

	if err := e.journal.Write(folder); err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to write trade log", err)
	}

	return nil
}

// GetConfigSchema returns the JSON schema of the engine configuration.
func (e *Engine) GetConfigSchema() (string, error) {
	return e.config.GenerateSchemaJSON()
}

// Journal exposes the order journal for post-run inspection.
func (e *Engine) Journal() *broker.Journal {
	return e.journal
}

// Cleanup releases the journal's database resources.
func (e *Engine) Cleanup() error {
	if e.journal == nil {
		return nil
	}

	return e.journal.Close()
}
