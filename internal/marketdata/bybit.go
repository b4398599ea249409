package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// BybitConfig holds Bybit connection settings. Market data endpoints work
// with empty credentials.
type BybitConfig struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Category  string // "spot", "linear", "inverse"
}

// BybitSource implements Source against the Bybit V5 market endpoints.
type BybitSource struct {
	httpClient *bybit_api.Client
	category   string
}

// NewBybitSource creates a Bybit-backed market data source.
func NewBybitSource(cfg BybitConfig) *BybitSource {
	baseURL := bybit_api.MAINNET
	if cfg.Testnet {
		baseURL = bybit_api.TESTNET
	}

	category := cfg.Category
	if category == "" {
		category = "spot"
	}

	return &BybitSource{
		httpClient: bybit_api.NewBybitHttpClient(cfg.APIKey, cfg.APISecret, bybit_api.WithBaseURL(baseURL)),
		category:   category,
	}
}

// GetCurrentPrice returns the latest traded price for a symbol.
func (s *BybitSource) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": s.category,
		"symbol":   symbol,
	}

	result, err := s.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return 0, engineerr.NewMarketDataError("bybit", "get_current_price",
			fmt.Sprintf("ticker request failed for %s", symbol), err)
	}

	ticker, err := parseTickerResponse(result)
	if err != nil {
		return 0, engineerr.NewMarketDataError("bybit", "get_current_price",
			fmt.Sprintf("ticker parse failed for %s", symbol), err)
	}

	price := parseFloat64(ticker.LastPrice)
	if price <= 0 {
		return 0, engineerr.NewMarketDataError("bybit", "get_current_price",
			fmt.Sprintf("non-positive price %q for %s", ticker.LastPrice, symbol), nil)
	}
	return price, nil
}

// GetDailyHistory returns up to limit daily candles in ascending time order.
func (s *BybitSource) GetDailyHistory(ctx context.Context, symbol string, limit int) ([]types.OHLCV, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	params := map[string]interface{}{
		"category": s.category,
		"symbol":   symbol,
		"interval": "D",
		"limit":    limit,
	}

	result, err := s.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, engineerr.NewMarketDataError("bybit", "get_daily_history",
			fmt.Sprintf("kline request failed for %s", symbol), err)
	}

	candles, err := parseKlineResponse(result)
	if err != nil {
		return nil, engineerr.NewMarketDataError("bybit", "get_daily_history",
			fmt.Sprintf("kline parse failed for %s", symbol), err)
	}
	return candles, nil
}

// GetSessionChange returns the benchmark's move since the daily open as a
// fraction of the open.
func (s *BybitSource) GetSessionChange(ctx context.Context, symbol string) (float64, error) {
	candles, err := s.GetDailyHistory(ctx, symbol, 1)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, engineerr.NewMarketDataError("bybit", "get_session_change",
			fmt.Sprintf("no daily candle for %s", symbol), nil)
	}

	today := candles[len(candles)-1]
	if today.Open <= 0 {
		return 0, engineerr.NewMarketDataError("bybit", "get_session_change",
			fmt.Sprintf("zero open for %s", symbol), nil)
	}
	return (today.Close - today.Open) / today.Open, nil
}

type tickerEntry struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
}

// parseTickerResponse extracts the first ticker from a market tickers call.
func parseTickerResponse(response interface{}) (*tickerEntry, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}

	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		Category string        `json:"category"`
		List     []tickerEntry `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}

	if len(tickerResult.List) == 0 {
		return nil, fmt.Errorf("no ticker data found")
	}
	return &tickerResult.List[0], nil
}

// parseKlineResponse parses a kline call into ascending-order candles.
// Bybit returns newest first; indicator code expects oldest first.
func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}

	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	var candles []types.OHLCV
	for _, item := range klineResult.List {
		if len(item) < 7 {
			continue // Skip incomplete data
		}

		// Bybit kline format: [startTime, open, high, low, close, volume, turnover]
		candles = append(candles, types.OHLCV{
			Timestamp: time.UnixMilli(parseInt64(item[0])),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}

	// Reverse into ascending time order.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

func parseFloat64(s string) float64 {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseInt64(s string) int64 {
	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return value
}
