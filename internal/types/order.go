package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

type Side string

type OrderStatus string

type SizingMode string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

const (
	// SizingAllIn spends all available cash at the fill price, floored to
	// whole shares.
	SizingAllIn SizingMode = "all_in"
	// SizingFixed buys or sells a fixed share count carried on the order.
	SizingFixed SizingMode = "fixed"
)

const (
	OrderReasonStrategy             string = "strategy"
	OrderReasonInsufficientFunds    string = "insufficient_funds"
	OrderReasonInsufficientPosition string = "insufficient_position"
	OrderReasonEndOfData            string = "end_of_data"
)

// Reason records why an order was created, rejected or cancelled.
type Reason struct {
	Reason  string `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	Message string `yaml:"message" json:"message" csv:"message"`
}

// Order is a pending buy/sell intent. State transitions are owned exclusively
// by the engine and broker; FILLED, REJECTED and CANCELLED are terminal.
type Order struct {
	ID         string     `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	Symbol     string     `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side       Side       `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	SizingMode SizingMode `yaml:"sizing_mode" json:"sizing_mode" csv:"sizing_mode" validate:"required,oneof=all_in fixed"`
	// Quantity is the fixed share count for SizingFixed orders. Zero for
	// SizingAllIn; the broker sizes those at fill time.
	Quantity  float64     `yaml:"quantity" json:"quantity" csv:"quantity" validate:"gte=0"`
	Status    OrderStatus `yaml:"status" json:"status" csv:"status"`
	CreatedAt time.Time   `yaml:"created_at" json:"created_at" csv:"created_at" validate:"required"`
	// FilledAt is always strictly after CreatedAt (next-bar execution).
	FilledAt       time.Time `yaml:"filled_at" json:"filled_at" csv:"filled_at"`
	FilledPrice    float64   `yaml:"filled_price" json:"filled_price" csv:"filled_price"`
	FilledQuantity float64   `yaml:"filled_quantity" json:"filled_quantity" csv:"filled_quantity"`
	Reason         Reason    `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	StrategyName   string    `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name" validate:"required"`
}

// IsTerminal reports whether the status allows no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusRejected || s == OrderStatusCancelled
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if o.SizingMode == SizingFixed && o.Quantity <= 0 {
		return errors.New(errors.ErrCodeInvalidSizing, "fixed sizing requires a positive quantity")
	}

	return nil
}
