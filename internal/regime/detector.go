package regime

import (
	"fmt"
	"math"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/indicators"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// Regime represents different market regimes. Declaration order doubles as
// the tie-break priority when two regimes accumulate the same vote weight.
type Regime int

const (
	RegimeStrongBull Regime = iota
	RegimeTrendingUp
	RegimeChoppy
	RegimeRanging
	RegimeConsolidation
	RegimeWeak
	RegimeTrendingDown
	RegimeNeutral // fallback when data is insufficient
)

func (r Regime) String() string {
	switch r {
	case RegimeStrongBull:
		return "STRONG_BULL"
	case RegimeTrendingUp:
		return "TRENDING_UP"
	case RegimeChoppy:
		return "CHOPPY"
	case RegimeRanging:
		return "RANGING"
	case RegimeConsolidation:
		return "CONSOLIDATION"
	case RegimeWeak:
		return "WEAK"
	case RegimeTrendingDown:
		return "TRENDING_DOWN"
	case RegimeNeutral:
		return "NEUTRAL"
	default:
		return "UNKNOWN"
	}
}

// votedRegimes lists the classifiable regimes in tie-break priority order.
var votedRegimes = []Regime{
	RegimeStrongBull,
	RegimeTrendingUp,
	RegimeChoppy,
	RegimeRanging,
	RegimeConsolidation,
	RegimeWeak,
	RegimeTrendingDown,
}

// Metrics holds the indicator set computed from the benchmark series.
type Metrics struct {
	Price              float64 `json:"price"`
	MA20               float64 `json:"ma20"`
	MA50               float64 `json:"ma50"`
	AboveMA20          bool    `json:"above_ma20"`
	AboveMA50          bool    `json:"above_ma50"`
	MA20AboveMA50      bool    `json:"ma20_above_ma50"`
	DistFromMA20       float64 `json:"dist_from_ma20"` // percent
	ROC5               float64 `json:"roc_5"`
	ROC20              float64 `json:"roc_20"`
	ADX                float64 `json:"adx"`
	ATRPercent         float64 `json:"atr_percent"`
	Volatility         float64 `json:"volatility"` // stddev of daily returns, percent
	VolRatio           float64 `json:"vol_ratio"`  // recent vs historical volatility
	ConsolidationRange float64 `json:"consolidation_range"`
	VolumeRatio        float64 `json:"volume_ratio"`
}

// Signal represents the output of regime detection
type Signal struct {
	Regime     Regime    `json:"regime"`
	Confidence float64   `json:"confidence"` // 0.0 to 1.0
	Timestamp  time.Time `json:"timestamp"`
	Metrics    Metrics   `json:"metrics"`
}

// DetectorConfig holds detector parameters.
type DetectorConfig struct {
	MAFastPeriod      int
	MASlowPeriod      int
	ROCFastPeriod     int
	ROCSlowPeriod     int
	ADXPeriod         int
	ATRPeriod         int
	ConsolidationDays int
	CheckInterval     time.Duration // cooldown between classifications
}

// DefaultDetectorConfig returns the production detector parameters.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MAFastPeriod:      20,
		MASlowPeriod:      50,
		ROCFastPeriod:     5,
		ROCSlowPeriod:     20,
		ADXPeriod:         14,
		ATRPeriod:         14,
		ConsolidationDays: 10,
		CheckInterval:     time.Hour,
	}
}

// Detector classifies the market regime from benchmark OHLC data using a
// weighted-vote classifier over seven mutually exclusive labels.
type Detector struct {
	cfg DetectorConfig

	lastRegime Regime
	lastSignal *Signal
	lastCheck  time.Time
	history    []*Signal
}

// NewDetector creates a regime detector.
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.MAFastPeriod == 0 {
		cfg = DefaultDetectorConfig()
	}
	return &Detector{
		cfg:        cfg,
		lastRegime: RegimeNeutral,
		history:    make([]*Signal, 0, 100),
	}
}

// ShouldRefresh reports whether the cooldown interval has elapsed since the
// last classification. The detector runs on this timer, not every tick.
func (d *Detector) ShouldRefresh(now time.Time) bool {
	if d.lastCheck.IsZero() {
		return true
	}
	return now.Sub(d.lastCheck) >= d.cfg.CheckInterval
}

// MinRequiredBars returns the benchmark history needed for classification.
func (d *Detector) MinRequiredBars() int {
	need := d.cfg.MASlowPeriod + 1
	if adxNeed := d.cfg.ADXPeriod * 3; adxNeed > need {
		need = adxNeed
	}
	return need
}

// Detect classifies the current regime from the benchmark series.
func (d *Detector) Detect(data []types.OHLCV, now time.Time) (*Signal, error) {
	if len(data) < d.MinRequiredBars() {
		return nil, fmt.Errorf("insufficient benchmark data: need at least %d bars, have %d",
			d.MinRequiredBars(), len(data))
	}

	metrics, err := d.calculateMetrics(data)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate regime metrics: %w", err)
	}

	regime, confidence := classify(metrics)

	signal := &Signal{
		Regime:     regime,
		Confidence: confidence,
		Timestamp:  data[len(data)-1].Timestamp,
		Metrics:    *metrics,
	}

	d.lastRegime = regime
	d.lastSignal = signal
	d.lastCheck = now
	d.history = append(d.history, signal)

	// Keep history manageable
	if len(d.history) > 1000 {
		d.history = d.history[100:]
	}

	return signal, nil
}

// Current returns the last detected regime.
func (d *Detector) Current() Regime {
	return d.lastRegime
}

// LastSignal returns the most recent signal.
func (d *Detector) LastSignal() *Signal {
	return d.lastSignal
}

// History returns the recent signal history.
func (d *Detector) History() []*Signal {
	return d.history
}

// calculateMetrics computes the indicator set for classification.
func (d *Detector) calculateMetrics(data []types.OHLCV) (*Metrics, error) {
	m := &Metrics{}
	m.Price = data[len(data)-1].Close

	maFast := indicators.NewSMA(d.cfg.MAFastPeriod)
	maSlow := indicators.NewSMA(d.cfg.MASlowPeriod)
	rocFast := indicators.NewROC(d.cfg.ROCFastPeriod)
	rocSlow := indicators.NewROC(d.cfg.ROCSlowPeriod)
	adx := indicators.NewADX(d.cfg.ADXPeriod)
	atr := indicators.NewATR(d.cfg.ATRPeriod)

	var err error
	if m.MA20, err = maFast.Calculate(data); err != nil {
		return nil, fmt.Errorf("MA%d: %w", d.cfg.MAFastPeriod, err)
	}
	if m.MA50, err = maSlow.Calculate(data); err != nil {
		return nil, fmt.Errorf("MA%d: %w", d.cfg.MASlowPeriod, err)
	}
	if m.ROC5, err = rocFast.Calculate(data); err != nil {
		return nil, fmt.Errorf("ROC%d: %w", d.cfg.ROCFastPeriod, err)
	}
	if m.ROC20, err = rocSlow.Calculate(data); err != nil {
		return nil, fmt.Errorf("ROC%d: %w", d.cfg.ROCSlowPeriod, err)
	}
	if m.ADX, err = adx.Calculate(data); err != nil {
		return nil, fmt.Errorf("ADX: %w", err)
	}

	atrValue, err := atr.Calculate(data)
	if err != nil {
		return nil, fmt.Errorf("ATR: %w", err)
	}
	if m.Price > 0 {
		m.ATRPercent = atrValue / m.Price * 100
	}

	m.AboveMA20 = m.Price > m.MA20
	m.AboveMA50 = m.Price > m.MA50
	m.MA20AboveMA50 = m.MA20 > m.MA50
	if m.MA20 > 0 {
		m.DistFromMA20 = (m.Price - m.MA20) / m.MA20 * 100
	}

	// Realized volatility of daily returns, recent window vs historical.
	returns := dailyReturns(data)
	m.Volatility = stdDev(returns) * 100
	if len(returns) >= 20 {
		recent := stdDev(returns[len(returns)-5:])
		historical := stdDev(returns[len(returns)-20 : len(returns)-5])
		if historical > 0 {
			m.VolRatio = recent / historical
		} else {
			m.VolRatio = 1
		}
	} else {
		m.VolRatio = 1
	}

	// Range of the last N days relative to price.
	window := data
	if len(data) > d.cfg.ConsolidationDays {
		window = data[len(data)-d.cfg.ConsolidationDays:]
	}
	high, low := window[0].High, window[0].Low
	for _, candle := range window[1:] {
		high = math.Max(high, candle.High)
		low = math.Min(low, candle.Low)
	}
	if m.Price > 0 {
		m.ConsolidationRange = (high - low) / m.Price * 100
	}

	m.VolumeRatio = volumeRatio(data)

	return m, nil
}

// classify runs the weighted vote over the regime labels. The label with the
// highest accumulated weight wins; ties break by declaration order.
func classify(m *Metrics) (Regime, float64) {
	scores := make(map[Regime]float64, len(votedRegimes))

	// STRONG_BULL signals
	if m.AboveMA20 && m.AboveMA50 && m.MA20AboveMA50 {
		scores[RegimeStrongBull] += 30
	}
	if m.ROC20 > 10 {
		scores[RegimeStrongBull] += 25
	}
	if m.ROC5 > 5 {
		scores[RegimeStrongBull] += 20
	}
	if m.ADX > 30 {
		scores[RegimeStrongBull] += 25
	}

	// TRENDING_UP signals
	if m.AboveMA20 && m.MA20AboveMA50 {
		scores[RegimeTrendingUp] += 25
	}
	if m.ROC20 > 5 && m.ROC20 <= 10 {
		scores[RegimeTrendingUp] += 20
	}
	if m.ADX > 20 && m.ADX <= 30 {
		scores[RegimeTrendingUp] += 20
	}
	if m.DistFromMA20 > 0 && m.DistFromMA20 < 5 {
		scores[RegimeTrendingUp] += 15
	}

	// CHOPPY signals
	if m.VolRatio > 1.5 {
		scores[RegimeChoppy] += 30
	}
	if m.ADX < 20 {
		scores[RegimeChoppy] += 25
	}
	if math.Abs(m.ROC5) < 2 {
		scores[RegimeChoppy] += 20
	}
	if m.ATRPercent > 3 {
		scores[RegimeChoppy] += 15
	}

	// RANGING signals
	if m.ConsolidationRange < 3 {
		scores[RegimeRanging] += 30
	}
	if math.Abs(m.DistFromMA20) < 2 {
		scores[RegimeRanging] += 25
	}
	if m.Volatility < 1.5 {
		scores[RegimeRanging] += 20
	}
	if m.AboveMA50 {
		scores[RegimeRanging] += 15
	}

	// CONSOLIDATION signals
	if m.ConsolidationRange < 5 {
		scores[RegimeConsolidation] += 25
	}
	if m.VolumeRatio < 0.8 { // low volume while consolidating
		scores[RegimeConsolidation] += 20
	}
	if m.ATRPercent < 2 {
		scores[RegimeConsolidation] += 20
	}
	if m.ADX < 20 {
		scores[RegimeConsolidation] += 15
	}
	if m.AboveMA50 {
		scores[RegimeConsolidation] += 10
	}

	// WEAK signals
	if !m.AboveMA20 && m.AboveMA50 {
		scores[RegimeWeak] += 25
	}
	if m.ROC5 < 0 && m.ROC5 > -3 {
		scores[RegimeWeak] += 20
	}
	if m.ADX < 15 {
		scores[RegimeWeak] += 20
	}

	// TRENDING_DOWN signals
	if !m.AboveMA20 && !m.AboveMA50 {
		scores[RegimeTrendingDown] += 30
	}
	if m.ROC20 < -5 {
		scores[RegimeTrendingDown] += 25
	}
	if m.ROC5 < -3 {
		scores[RegimeTrendingDown] += 20
	}
	if m.ADX > 25 {
		scores[RegimeTrendingDown] += 25
	}

	best := votedRegimes[0]
	for _, regime := range votedRegimes[1:] {
		if scores[regime] > scores[best] {
			best = regime
		}
	}

	confidence := math.Min(scores[best]/100, 1.0)
	return best, confidence
}

func dailyReturns(data []types.OHLCV) []float64 {
	returns := make([]float64, 0, len(data)-1)
	for i := 1; i < len(data); i++ {
		prev := data[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, (data[i].Close-prev)/prev)
	}
	return returns
}

func stdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}

func volumeRatio(data []types.OHLCV) float64 {
	if len(data) < 20 {
		return 1
	}
	recent := 0.0
	for _, candle := range data[len(data)-5:] {
		recent += candle.Volume
	}
	recent /= 5

	avg := 0.0
	for _, candle := range data[len(data)-20:] {
		avg += candle.Volume
	}
	avg /= 20

	if avg == 0 {
		return 1
	}
	return recent / avg
}
