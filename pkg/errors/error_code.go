package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation / configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInsufficientData     ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104
	ErrCodeInvalidSizing        ErrorCode = 105
	ErrCodeInvalidDateRange     ErrorCode = 106
	ErrCodeInvalidCash          ErrorCode = 107
	ErrCodeEmptySymbolSet       ErrorCode = 108

	// Data / feed errors (200-299)
	ErrCodeDataIntegrity   ErrorCode = 200
	ErrCodeDataNotFound    ErrorCode = 201
	ErrCodeQueryFailed     ErrorCode = 202
	ErrCodeDataLoadFailed  ErrorCode = 203
	ErrCodeEmptyPriceRange ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound    ErrorCode = 400
	ErrCodeStrategyConfigError ErrorCode = 401
	ErrCodeStrategyFailed      ErrorCode = 402

	// Order / broker errors (500-599)
	ErrCodeInsufficientFunds    ErrorCode = 500
	ErrCodeInsufficientPosition ErrorCode = 501
	ErrCodeOrderNotFound        ErrorCode = 502
	ErrCodeFillFailed           ErrorCode = 503

	// Backtest engine errors (600-699)
	ErrCodeBacktestConfigError ErrorCode = 600
	ErrCodeBacktestInitFailed  ErrorCode = 601
	ErrCodeBacktestRunFailed   ErrorCode = 602
	ErrCodeJournalFailed       ErrorCode = 603

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 703
)
