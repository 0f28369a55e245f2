// Package provider fetches daily OHLCV history from external market data
// vendors.
package provider

import (
	"context"
	"time"

	"github.com/tidemill-labs/backtrack/internal/types"
)

// OnDownloadProgress reports download progress to the caller.
type OnDownloadProgress func(current float64, total float64, message string)

// Provider downloads daily bars for one ticker and streams them to onBar in
// ascending date order.
type Provider interface {
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onBar func(types.Bar) error, onProgress OnDownloadProgress) error
}
