package indicators

import (
	"errors"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// EMA represents the Exponential Moving Average technical indicator
type EMA struct {
	period      int
	alpha       float64
	lastValue   float64
	initialized bool
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1), // Standard EMA alpha calculation
	}
}

// Calculate calculates the EMA value
func (e *EMA) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < e.period {
		return 0, errors.New("insufficient data for EMA calculation")
	}

	if !e.initialized {
		return e.initialCalculation(data)
	}

	return e.incrementalCalculation(data)
}

// initialCalculation seeds the EMA with an SMA of the first 'period' values
func (e *EMA) initialCalculation(data []types.OHLCV) (float64, error) {
	sum := 0.0
	startIdx := len(data) - e.period
	for i := startIdx; i < len(data); i++ {
		sum += data[i].Close
	}

	e.lastValue = sum / float64(e.period)
	e.initialized = true

	return e.lastValue, nil
}

// incrementalCalculation updates EMA with the latest price
func (e *EMA) incrementalCalculation(data []types.OHLCV) (float64, error) {
	if len(data) == 0 {
		return e.lastValue, nil
	}

	latestPrice := data[len(data)-1].Close
	e.lastValue = (latestPrice * e.alpha) + (e.lastValue * (1 - e.alpha))

	return e.lastValue, nil
}

// UpdateSingle updates the EMA with a single value (used for smoothing other series)
func (e *EMA) UpdateSingle(value float64) float64 {
	if !e.initialized {
		e.lastValue = value
		e.initialized = true
	} else {
		e.lastValue = (value * e.alpha) + (e.lastValue * (1 - e.alpha))
	}

	return e.lastValue
}

// IsInitialized returns whether the EMA has been initialized
func (e *EMA) IsInitialized() bool {
	return e.initialized
}

// GetLastValue returns the last calculated EMA value
func (e *EMA) GetLastValue() float64 {
	return e.lastValue
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return "EMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}

// ResetState resets the EMA internal state for new data periods
func (e *EMA) ResetState() {
	e.lastValue = 0.0
	e.initialized = false
}
