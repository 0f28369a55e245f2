// Package marketdata downloads daily OHLCV history from external providers
// and stores it as CSV files readable by the backtest data loader.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidemill-labs/backtrack/pkg/marketdata/provider"
	"github.com/tidemill-labs/backtrack/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  ProviderType `validate:"required,oneof=polygon"`
	DataPath      string       `validate:"required"`
	PolygonApiKey string       `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Ticker    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

// Client downloads data from a provider and stores one CSV file per ticker
// under the configured data path.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	var marketProvider provider.Provider

	var err error

	switch config.ProviderType {
	case ProviderPolygon:
		marketProvider, err = provider.NewPolygonClient(config.PolygonApiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Polygon client: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.ProviderType)
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download fetches daily bars for the requested ticker and writes them to
// <DataPath>/<ticker>.csv. Returns the output path.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", fmt.Errorf("invalid download parameters: %w", err)
	}

	if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create data path: %w", err)
	}

	outputPath := filepath.Join(c.config.DataPath, strings.ToUpper(params.Ticker)+".csv")

	marketWriter := writer.NewCSVWriter(outputPath)
	if err := marketWriter.Initialize(); err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	defer marketWriter.Close()

	err := c.provider.Download(ctx, params.Ticker, params.StartDate, params.EndDate, marketWriter.Write, c.onProgress)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", params.Ticker, err)
	}

	path, err := marketWriter.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return path, nil
}
