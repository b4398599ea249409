package marketdata

import (
	"context"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// PriceSource provides current prices for the monitoring tick.
type PriceSource interface {
	// GetCurrentPrice returns the latest traded price for a symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// BenchmarkSource provides the benchmark series the regime detector and the
// market crash breaker run on.
type BenchmarkSource interface {
	// GetDailyHistory returns up to limit daily candles for a symbol in
	// ascending time order.
	GetDailyHistory(ctx context.Context, symbol string, limit int) ([]types.OHLCV, error)

	// GetSessionChange returns the benchmark's move since the daily open as
	// a fraction (-0.02 means down 2%).
	GetSessionChange(ctx context.Context, symbol string) (float64, error)
}

// Source combines the price and benchmark feeds the engine needs.
type Source interface {
	PriceSource
	BenchmarkSource
}
