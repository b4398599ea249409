package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

func TestParseTickerResponse(t *testing.T) {
	response := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"category": "spot",
			"list": []map[string]interface{}{
				{"symbol": "BTCUSDT", "lastPrice": "43250.50"},
			},
		},
	}

	ticker, err := parseTickerResponse(response)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", ticker.Symbol)
	assert.InDelta(t, 43250.50, parseFloat64(ticker.LastPrice), 1e-9)
}

func TestParseTickerResponse_APIError(t *testing.T) {
	response := &bybit_api.ServerResponse{
		RetCode: 10001,
		RetMsg:  "params error",
	}

	_, err := parseTickerResponse(response)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "params error")
}

func TestParseTickerResponse_EmptyList(t *testing.T) {
	response := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"category": "spot",
			"list":     []map[string]interface{}{},
		},
	}

	_, err := parseTickerResponse(response)
	assert.Error(t, err)
}

func TestParseTickerResponse_WrongType(t *testing.T) {
	_, err := parseTickerResponse("not a server response")
	assert.Error(t, err)
}

func TestParseKlineResponse_ReversesToAscending(t *testing.T) {
	// Bybit returns newest first.
	response := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"symbol":   "BTCUSDT",
			"category": "spot",
			"list": [][]string{
				{"1704240000000", "102", "106", "101", "105", "1200", "126000"},
				{"1704153600000", "101", "104", "100", "102", "1100", "112200"},
				{"1704067200000", "100", "103", "99", "101", "1000", "101000"},
			},
		},
	}

	candles, err := parseKlineResponse(response)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.InDelta(t, 101, candles[0].Close, 1e-9)
	assert.InDelta(t, 102, candles[1].Close, 1e-9)
	assert.InDelta(t, 105, candles[2].Close, 1e-9)
	assert.True(t, candles[0].Timestamp.Before(candles[1].Timestamp))
	assert.True(t, candles[1].Timestamp.Before(candles[2].Timestamp))

	assert.InDelta(t, 102, candles[2].Open, 1e-9)
	assert.InDelta(t, 106, candles[2].High, 1e-9)
	assert.InDelta(t, 101, candles[2].Low, 1e-9)
	assert.InDelta(t, 1200, candles[2].Volume, 1e-9)
}

func TestParseKlineResponse_SkipsIncompleteRows(t *testing.T) {
	response := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"symbol":   "BTCUSDT",
			"category": "spot",
			"list": [][]string{
				{"1704153600000", "101", "104", "100", "102", "1100", "112200"},
				{"1704067200000", "100", "103"}, // truncated row
			},
		},
	}

	candles, err := parseKlineResponse(response)
	require.NoError(t, err)
	assert.Len(t, candles, 1)
}

func TestParseHelpers(t *testing.T) {
	assert.InDelta(t, 1.5, parseFloat64("1.5"), 1e-9)
	assert.InDelta(t, 0, parseFloat64("garbage"), 1e-9)
	assert.Equal(t, int64(1704067200000), parseInt64("1704067200000"))
	assert.Equal(t, int64(0), parseInt64("garbage"))
}
