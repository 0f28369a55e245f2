package writer

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/tidemill-labs/backtrack/internal/types"
)

// CSVWriter stages daily bars in an in-memory DuckDB table and exports them
// as a CSV file with the Yahoo-style header
// "Date,Open,High,Low,Close,Adj Close,Volume".
type CSVWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
}

// NewCSVWriter creates a CSV writer that exports to outputPath.
func NewCSVWriter(outputPath string) MarketDataWriter {
	return &CSVWriter{
		db:         nil,
		tx:         nil,
		stmt:       nil,
		outputPath: outputPath,
	}
}

// Initialize opens the staging database, creates the bar table and prepares
// the insert statement inside a transaction.
func (w *CSVWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			adj_close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to create table: %w", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO bars (time, open, high, low, close, adj_close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	return nil
}

// Write stages a single bar inside the open transaction.
func (w *CSVWriter) Write(bar types.Bar) error {
	if w.stmt == nil {
		return fmt.Errorf("writer not initialized or statement is nil")
	}

	_, err := w.stmt.Exec(
		bar.Time,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.AdjClose,
		bar.Volume,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bar: %w", err)
	}

	return nil
}

// Finalize commits the staged rows and exports them to the CSV file in
// ascending date order.
func (w *CSVWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", fmt.Errorf("writer not initialized or transaction is nil")
	}

	if err = w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.tx = nil

	escapedPath := strings.ReplaceAll(w.outputPath, "'", "''")

	_, err = w.db.Exec(fmt.Sprintf(`
		COPY (
			SELECT
				strftime(time, '%%Y-%%m-%%d') AS "Date",
				open AS "Open",
				high AS "High",
				low AS "Low",
				close AS "Close",
				adj_close AS "Adj Close",
				volume AS "Volume"
			FROM bars
			ORDER BY time
		) TO '%s' (FORMAT CSV, HEADER)
	`, escapedPath))
	if err != nil {
		return "", fmt.Errorf("failed to export to CSV: %w", err)
	}

	return w.outputPath, nil
}

// Close releases the staging database resources.
func (w *CSVWriter) Close() error {
	if w.stmt != nil {
		w.stmt.Close()
		w.stmt = nil
	}

	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}

		w.db = nil
	}

	return nil
}

// GetOutputPath returns the configured output file path.
func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}
