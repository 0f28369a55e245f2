package feed

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"go.uber.org/zap"
)

// LoadCSVFile reads one daily-bar CSV into a validated PriceSeries. The
// symbol is taken from the file stem (data/SPY.csv -> SPY). The file must
// carry the header Date,Open,High,Low,Close,Adj Close,Volume.
func LoadCSVFile(path string, log *logger.Logger) (*types.PriceSeries, error) {
	symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataLoadFailed, "failed to open duckdb", err)
	}
	defer db.Close()

	// read_csv_auto infers the Date column as DATE; ordering here means the
	// series constructor only has to reject duplicates, not re-sort.
	query := fmt.Sprintf(`
		SELECT "Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"
		FROM read_csv_auto('%s', header=true)
		ORDER BY "Date"
	`, path)

	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to read csv %s", path)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var (
			date                              time.Time
			open, high, low, closePx, adj, vol float64
		)

		if err := rows.Scan(&date, &open, &high, &low, &closePx, &adj, &vol); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to scan row in %s", path)
		}

		bars = append(bars, types.Bar{
			Time:     date.UTC().Truncate(24 * time.Hour),
			Symbol:   symbol,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePx,
			AdjClose: adj,
			Volume:   vol,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to iterate rows in %s", path)
	}

	log.Debug("Loaded price series",
		zap.String("symbol", symbol),
		zap.String("path", path),
		zap.Int("bars", len(bars)),
	)

	return types.NewPriceSeries(symbol, bars)
}

// LoadCSVGlob loads every CSV matching the pattern, one PriceSeries per file.
func LoadCSVGlob(pattern string, log *logger.Logger) ([]*types.PriceSeries, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "bad data glob %s", pattern)
	}

	if len(files) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no data files match %s", pattern)
	}

	seriesList := make([]*types.PriceSeries, 0, len(files))

	for _, file := range files {
		series, err := LoadCSVFile(file, log)
		if err != nil {
			return nil, err
		}

		seriesList = append(seriesList, series)
	}

	return seriesList, nil
}
