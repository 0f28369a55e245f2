// Package writer persists downloaded market data to a destination file.
package writer

import (
	"github.com/tidemill-labs/backtrack/internal/types"
)

// MarketDataWriter defines the interface for writing daily bars to a
// destination.
type MarketDataWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize completes the writing process and returns the output path.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
