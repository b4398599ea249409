package indicators

import (
	"errors"
	"math"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// ADX represents the Average Directional Index technical indicator.
// ADX measures trend strength regardless of direction (0-100 scale).
// Values > 20 indicate a trending market, > 40 a strong trend.
type ADX struct {
	period int

	// Previous values for incremental calculation
	prevHigh  float64
	prevLow   float64
	prevClose float64

	// Smoothing components (Wilder's smoothing)
	trSum      float64
	plusDMSum  float64
	minusDMSum float64
	adxSum     float64

	initialized bool
	lastADX     float64
}

// NewADX creates a new ADX indicator
func NewADX(period int) *ADX {
	return &ADX{
		period: period,
	}
}

// Calculate calculates the ADX value
func (adx *ADX) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < adx.period*3 { // Need extra periods for proper ADX calculation
		return 0, errors.New("insufficient data for ADX calculation")
	}

	if !adx.initialized {
		return adx.initialCalculation(data)
	}

	return adx.incrementalCalculation(data[len(data)-1])
}

// initialCalculation performs the initial ADX calculation
func (adx *ADX) initialCalculation(data []types.OHLCV) (float64, error) {
	adx.trSum = 0
	adx.plusDMSum = 0
	adx.minusDMSum = 0

	startIdx := len(data) - (adx.period * 2)
	if startIdx < 1 {
		startIdx = 1
	}

	// Seed TR, +DM, -DM sums over the first period
	for i := startIdx; i < startIdx+adx.period && i < len(data); i++ {
		current := data[i]
		previous := data[i-1]

		tr := math.Max(current.High-current.Low,
			math.Max(math.Abs(current.High-previous.Close),
				math.Abs(current.Low-previous.Close)))
		adx.trSum += tr

		plusDM, minusDM := directionalMovement(current, previous)
		adx.plusDMSum += plusDM
		adx.minusDMSum += minusDM
	}

	plusDI := (adx.plusDMSum / adx.trSum) * 100
	minusDI := (adx.minusDMSum / adx.trSum) * 100

	diSum := plusDI + minusDI
	var dx float64
	if diSum != 0 {
		dx = (math.Abs(plusDI-minusDI) / diSum) * 100
	}

	dxValues := []float64{dx}

	// Continue with Wilder smoothing over the remaining data to build DX series
	for i := startIdx + adx.period; i < len(data); i++ {
		current := data[i]
		previous := data[i-1]

		tr := math.Max(current.High-current.Low,
			math.Max(math.Abs(current.High-previous.Close),
				math.Abs(current.Low-previous.Close)))
		adx.trSum = adx.trSum - (adx.trSum / float64(adx.period)) + tr

		plusDM, minusDM := directionalMovement(current, previous)
		adx.plusDMSum = adx.plusDMSum - (adx.plusDMSum / float64(adx.period)) + plusDM
		adx.minusDMSum = adx.minusDMSum - (adx.minusDMSum / float64(adx.period)) + minusDM

		plusDI = (adx.plusDMSum / adx.trSum) * 100
		minusDI = (adx.minusDMSum / adx.trSum) * 100

		diSum = plusDI + minusDI
		if diSum != 0 {
			dx = (math.Abs(plusDI-minusDI) / diSum) * 100
		} else {
			dx = 0
		}

		dxValues = append(dxValues, dx)
	}

	// Initial ADX is the simple average of the first period DX values
	if len(dxValues) >= adx.period {
		adxSum := 0.0
		for i := 0; i < adx.period; i++ {
			adxSum += dxValues[i]
		}
		adx.lastADX = adxSum / float64(adx.period)
		adx.adxSum = adx.lastADX * float64(adx.period)
	} else {
		adx.lastADX = 0
		adx.adxSum = 0
	}

	lastCandle := data[len(data)-1]
	adx.prevHigh = lastCandle.High
	adx.prevLow = lastCandle.Low
	adx.prevClose = lastCandle.Close
	adx.initialized = true

	return adx.lastADX, nil
}

// incrementalCalculation updates ADX with new price data
func (adx *ADX) incrementalCalculation(newCandle types.OHLCV) (float64, error) {
	tr := math.Max(newCandle.High-newCandle.Low,
		math.Max(math.Abs(newCandle.High-adx.prevClose),
			math.Abs(newCandle.Low-adx.prevClose)))
	adx.trSum = adx.trSum - (adx.trSum / float64(adx.period)) + tr

	prev := types.OHLCV{High: adx.prevHigh, Low: adx.prevLow, Close: adx.prevClose}
	plusDM, minusDM := directionalMovement(newCandle, prev)
	adx.plusDMSum = adx.plusDMSum - (adx.plusDMSum / float64(adx.period)) + plusDM
	adx.minusDMSum = adx.minusDMSum - (adx.minusDMSum / float64(adx.period)) + minusDM

	plusDI := (adx.plusDMSum / adx.trSum) * 100
	minusDI := (adx.minusDMSum / adx.trSum) * 100

	diSum := plusDI + minusDI
	var dx float64
	if diSum != 0 {
		dx = (math.Abs(plusDI-minusDI) / diSum) * 100
	}

	adx.adxSum = adx.adxSum - (adx.adxSum / float64(adx.period)) + dx
	adx.lastADX = adx.adxSum / float64(adx.period)

	adx.prevHigh = newCandle.High
	adx.prevLow = newCandle.Low
	adx.prevClose = newCandle.Close

	return adx.lastADX, nil
}

// directionalMovement returns the +DM and -DM components for a candle pair
func directionalMovement(current, previous types.OHLCV) (plusDM, minusDM float64) {
	highDiff := current.High - previous.High
	lowDiff := previous.Low - current.Low

	if highDiff > lowDiff && highDiff > 0 {
		plusDM = highDiff
	}
	if lowDiff > highDiff && lowDiff > 0 {
		minusDM = lowDiff
	}
	return plusDM, minusDM
}

// GetDirectionalIndex returns both +DI and -DI for additional analysis
func (adx *ADX) GetDirectionalIndex() (plusDI, minusDI float64) {
	if adx.trSum > 0 {
		plusDI = (adx.plusDMSum / adx.trSum) * 100
		minusDI = (adx.minusDMSum / adx.trSum) * 100
	}
	return plusDI, minusDI
}

// IsTrending returns true if ADX indicates a trending market
func (adx *ADX) IsTrending() bool {
	return adx.lastADX > 20.0
}

// GetLastValue returns the last calculated ADX value
func (adx *ADX) GetLastValue() float64 {
	return adx.lastADX
}

// GetName returns the indicator name
func (adx *ADX) GetName() string {
	return "ADX"
}

// GetRequiredPeriods returns minimum periods needed for calculation
func (adx *ADX) GetRequiredPeriods() int {
	return adx.period * 3 // Need extra periods for proper ADX calculation
}

// ResetState resets internal state for new data periods
func (adx *ADX) ResetState() {
	adx.trSum = 0
	adx.plusDMSum = 0
	adx.minusDMSum = 0
	adx.adxSum = 0
	adx.prevHigh = 0
	adx.prevLow = 0
	adx.prevClose = 0
	adx.initialized = false
	adx.lastADX = 0
}
