package types

// IndicatorType identifies a registered rolling indicator.
type IndicatorType string

const (
	IndicatorTypeSMA            IndicatorType = "sma"
	IndicatorTypeStdDev         IndicatorType = "stddev"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
)
