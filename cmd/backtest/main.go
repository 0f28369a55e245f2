package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/tidemill-labs/backtrack/internal/engine"
	"github.com/tidemill-labs/backtrack/internal/feed"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/strategy"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
)

// backtestAction loads price data, builds the engine and runs the selected
// strategy over it.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	strategyName := cmd.String("strategy")
	dataGlob := cmd.String("data")
	cash := cmd.Float("cash")
	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")
	strategyConfigPath := cmd.String("config")
	resultsFolder := cmd.String("output")

	level := zapcore.InfoLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	registry := strategy.NewRegistry()

	selected, err := registry.Get(strategyName)
	if err != nil {
		return err
	}

	strategyConfig := ""

	if strategyConfigPath != "" {
		data, err := os.ReadFile(strategyConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read strategy config: %w", err)
		}

		strategyConfig = string(data)
	}

	seriesList, err := feed.LoadCSVGlob(dataGlob, log)
	if err != nil {
		return err
	}

	engineConfig := fmt.Sprintf("starting_cash: %f\n", cash)
	if !start.IsZero() {
		engineConfig += fmt.Sprintf("start_time: %s\n", start.Format(time.RFC3339))
	}

	if !end.IsZero() {
		engineConfig += fmt.Sprintf("end_time: %s\n", end.Format(time.RFC3339))
	}

	backtester := engine.NewEngine()
	backtester.SetLogger(log)

	if err := backtester.Initialize(engineConfig); err != nil {
		return err
	}
	defer backtester.Cleanup()

	backtester.SetStrategy(selected, strategyConfig)

	if err := backtester.LoadData(seriesList); err != nil {
		return err
	}

	bar := progressbar.Default(1)
	bar.Describe(fmt.Sprintf("Running %s", strategyName))

	backtester.SetProgressCallback(func(current, total int) {
		bar.ChangeMax(total)
		bar.Set(current)
	})

	result, err := backtester.Run(ctx)
	if err != nil {
		return err
	}

	bar.Finish()

	printReport(result)

	if resultsFolder != "" {
		if err := backtester.WriteResults(resultsFolder, result); err != nil {
			return err
		}

		fmt.Printf("\nResults written to %s\n", resultsFolder)
	}

	return nil
}

// printReport mirrors the classic results/analysis console summary.
func printReport(result types.RunResult) {
	fmt.Println("\n*** Results ***")
	fmt.Printf("Strategy: %s\n", result.StrategyName)
	fmt.Printf("Starting Portfolio Value: %.3f\n", result.StartingCash)
	fmt.Printf("Final Portfolio Value: %.3f\n", result.FinalEquity)
	fmt.Printf("Total profit: %.3f\n", result.TotalProfit)

	fmt.Println("\n*** Analysis ***")

	if result.SharpeRatio.IsSome() {
		fmt.Printf("Sharpe Ratio: %.3f\n", result.SharpeRatio.Unwrap())
	} else {
		fmt.Println("Sharpe Ratio: n/a")
	}

	fmt.Printf("Total return (pct): %.2f %%\n", result.TotalReturnPct)
	fmt.Printf("Mean annual return (pct): %.2f %%\n", result.AnnualizedReturnPct)
	fmt.Printf("Max drawdown (pct): %.2f %%\n", result.MaxDrawdownPct)
	fmt.Printf("Max drawdown ($): %.0f\n", result.MaxDrawdownAbs)
	fmt.Printf("Max drawdown length (days): %d\n", result.MaxDrawdownLengthBars)

	if len(result.Transactions) == 0 {
		return
	}

	fmt.Println("\n*** Transaction breakdown ***")

	for _, tx := range result.Transactions {
		fmt.Printf("Date: %s | Symbol: %s | Price: %.2f | Type: %s | N_Shares: %.0f\n",
			tx.Time.Format(time.DateOnly), tx.Symbol, tx.Price, side(tx.Side), tx.Quantity)
	}
}

func side(s types.Side) string {
	if s == types.SideBuy {
		return "Buy"
	}

	return "Sell"
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run a historical backtest of a trading strategy over daily CSV data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "strategy",
				Aliases:  []string{"s"},
				Usage:    "Strategy name (golden_cross, buy_hold, buy_dip, bbands, mean_reversion)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Glob of input CSV files, one per symbol",
				Value:    "data/*.csv",
				Required: false,
			},
			&cli.FloatFlag{
				Name:     "cash",
				Aliases:  []string{"c"},
				Usage:    "Starting cash balance",
				Value:    10000,
				Required: false,
			},
			&cli.TimestampFlag{
				Name:  "start",
				Usage: "Start date in `YYYY-MM-DD` format",
				Value: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: false,
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format",
				Value: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: false,
			},
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Path to the strategy YAML parameter file",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Folder for the stats and trade log output",
				Required: false,
			},
			&cli.BoolFlag{
				Name:     "verbose",
				Aliases:  []string{"v"},
				Usage:    "Enable debug logging",
				Required: false,
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
