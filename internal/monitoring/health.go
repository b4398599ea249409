package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

type HealthChecker struct {
	mu            sync.RWMutex
	lastCycle     time.Time
	openPositions int
	totalCapital  float64
	regime        string
	isConnected   bool
	errors        []string
}

type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastCycle     time.Time `json:"last_cycle"`
	OpenPositions int       `json:"open_positions"`
	TotalCapital  float64   `json:"total_capital"`
	Regime        string    `json:"regime"`
	IsConnected   bool      `json:"is_connected"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.isConnected || time.Since(h.lastCycle) > time.Hour {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		LastCycle:     h.lastCycle,
		OpenPositions: h.openPositions,
		TotalCapital:  h.totalCapital,
		Regime:        h.regime,
		IsConnected:   h.isConnected,
		Uptime:        time.Since(startTime).String(),
		Errors:        h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// RecordCycle marks a completed engine cycle.
func (h *HealthChecker) RecordCycle(openPositions int, totalCapital float64, regime string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = time.Now()
	h.openPositions = openPositions
	h.totalCapital = totalCapital
	h.regime = regime
	h.errors = h.errors[:0]
}

// SetConnected updates the market data connectivity flag.
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordError appends an error to the health report. Errors clear on the
// next successful cycle.
func (h *HealthChecker) RecordError(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, message)
	if len(h.errors) > 20 {
		h.errors = h.errors[len(h.errors)-20:]
	}
}
