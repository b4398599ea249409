package indicators

import (
	"errors"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// ROC represents the Rate of Change momentum indicator, expressed as the
// percentage change of the close over the lookback window.
type ROC struct {
	period    int
	lastValue float64
}

// NewROC creates a new ROC indicator
func NewROC(period int) *ROC {
	return &ROC{
		period: period,
	}
}

// Calculate calculates the percentage rate of change over the period
func (r *ROC) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < r.period+1 {
		return 0, errors.New("insufficient data for ROC calculation")
	}

	current := data[len(data)-1].Close
	past := data[len(data)-1-r.period].Close
	if past == 0 {
		return 0, errors.New("zero reference price in ROC calculation")
	}

	r.lastValue = (current/past - 1) * 100
	return r.lastValue, nil
}

// GetLastValue returns the last calculated ROC value
func (r *ROC) GetLastValue() float64 {
	return r.lastValue
}

// GetName returns the indicator name
func (r *ROC) GetName() string {
	return "ROC"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (r *ROC) GetRequiredPeriods() int {
	return r.period + 1
}
