package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_trades_total",
			Help: "Total number of realized exits",
		},
		[]string{"strategy", "reason"},
	)

	tradePnL = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_engine_trade_pnl",
			Help:    "Distribution of realized trade P&L",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_rejections_total",
			Help: "Total number of rejected entry attempts",
		},
		[]string{"reason"},
	)

	// Portfolio metrics
	totalCapital = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_total_capital",
			Help: "Total portfolio capital",
		},
	)

	availableCapital = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_available_capital",
			Help: "Capital available for new entries",
		},
	)

	openPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_open_positions",
			Help: "Open positions per strategy",
		},
		[]string{"strategy"},
	)

	portfolioHeat = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_portfolio_heat",
			Help: "Total capital at risk across open positions, percent",
		},
	)

	drawdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_drawdown",
			Help: "Current peak-to-trough drawdown fraction",
		},
	)

	// Regime metrics
	regimeConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_regime_confidence",
			Help: "Confidence of the current regime classification",
		},
		[]string{"regime"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_errors_total",
			Help: "Total number of errors",
		},
		[]string{"category"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradePnL)
	prometheus.MustRegister(rejectionsTotal)
	prometheus.MustRegister(totalCapital)
	prometheus.MustRegister(availableCapital)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(portfolioHeat)
	prometheus.MustRegister(drawdown)
	prometheus.MustRegister(regimeConfidence)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTrade records a realized exit
func RecordTrade(strategy, reason string, pnl float64) {
	tradesTotal.WithLabelValues(strategy, reason).Inc()
	tradePnL.WithLabelValues(strategy).Observe(pnl)
}

// RecordRejection records a rejected entry attempt
func RecordRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// UpdateCapital updates the capital gauges
func UpdateCapital(total, available float64) {
	totalCapital.Set(total)
	availableCapital.Set(available)
}

// UpdateOpenPositions updates the per-strategy open position gauge
func UpdateOpenPositions(strategy string, count int) {
	openPositions.WithLabelValues(strategy).Set(float64(count))
}

// UpdatePortfolioHeat updates the portfolio heat gauge
func UpdatePortfolioHeat(heat float64) {
	portfolioHeat.Set(heat)
}

// UpdateDrawdown updates the drawdown gauge
func UpdateDrawdown(dd float64) {
	drawdown.Set(dd)
}

// UpdateRegime updates the regime confidence metric. On a regime change the
// caller should ClearRegime the old label first.
func UpdateRegime(regime string, confidence float64) {
	regimeConfidence.WithLabelValues(regime).Set(confidence)
}

// ClearRegime zeroes a regime label after a regime change.
func ClearRegime(regime string) {
	regimeConfidence.WithLabelValues(regime).Set(0)
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
