package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position represents the current holdings of one symbol. Long-only: quantity
// is never negative. Owned exclusively by the broker's ledger and mutated only
// through fill processing.
type Position struct {
	Symbol string `yaml:"symbol" json:"symbol" csv:"symbol"`
	// Quantity is the number of shares currently held.
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	// AvgCost is the volume-weighted average cost across all unclosed buys.
	AvgCost float64 `yaml:"avg_cost" json:"avg_cost" csv:"avg_cost"`
	// OpenedAt is the fill time of the first buy that opened the position.
	OpenedAt time.Time `yaml:"opened_at" json:"opened_at" csv:"opened_at"`
}

// IsFlat reports whether no shares are held.
func (p Position) IsFlat() bool {
	return p.Quantity == 0
}

// MarketValue marks the position to market at the given price.
func (p Position) MarketValue(price float64) float64 {
	value, _ := decimal.NewFromFloat(p.Quantity).Mul(decimal.NewFromFloat(price)).Float64()

	return value
}

// UnrealizedPnL is the open profit at the given price relative to average cost.
func (p Position) UnrealizedPnL(price float64) float64 {
	pnl, _ := decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(p.AvgCost)).
		Mul(decimal.NewFromFloat(p.Quantity)).
		Float64()

	return pnl
}
