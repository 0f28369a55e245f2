package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/tidemill-labs/backtrack/internal/types"
)

type PolygonClient struct {
	client *polygon.Client
}

// NewPolygonClient creates a Polygon provider. The API key is required.
func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	return &PolygonClient{
		client: polygon.New(apiKey),
	}, nil
}

// Download streams daily aggregates for ticker. Polygon serves
// split-adjusted aggregates, so the adjusted close equals the close.
func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onBar func(types.Bar) error, onProgress OnDownloadProgress) error {
	totalDays := endDate.Sub(startDate).Hours()/24 + 1

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000).WithAdjusted(true)

	iter := c.client.ListAggs(ctx, params)

	processed := 0

	for iter.Next() {
		agg := iter.Item()

		date := time.Time(agg.Timestamp).UTC().Truncate(24 * time.Hour)

		bar := types.Bar{
			Time:     date,
			Symbol:   ticker,
			Open:     agg.Open,
			High:     agg.High,
			Low:      agg.Low,
			Close:    agg.Close,
			AdjClose: agg.Close,
			Volume:   agg.Volume,
		}

		if err := onBar(bar); err != nil {
			return fmt.Errorf("failed to handle bar: %w", err)
		}

		processed++

		if onProgress != nil {
			elapsed := date.Sub(startDate).Hours() / 24
			onProgress(elapsed, totalDays, fmt.Sprintf("Downloading %s", ticker))
		}
	}

	if iter.Err() != nil {
		return fmt.Errorf("error iterating polygon aggregates: %w", iter.Err())
	}

	return nil
}
