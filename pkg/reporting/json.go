package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
)

// JSONReporter writes a machine-readable session report.
type JSONReporter struct{}

// NewJSONReporter creates a JSON reporter.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

// SessionReport is the exported report schema.
type SessionReport struct {
	GeneratedAt      time.Time                         `json:"generated_at"`
	SessionStart     time.Time                         `json:"session_start"`
	TotalCapital     float64                           `json:"total_capital"`
	AvailableCapital float64                           `json:"available_capital"`
	InvestedCapital  float64                           `json:"invested_capital"`
	PeakCapital      float64                           `json:"peak_capital"`
	OpenPositions    []position.Position               `json:"open_positions"`
	TradeHistory     []position.TradeRecord            `json:"trade_history"`
	Stats            position.TradeStats               `json:"stats"`
	StrategyStats    map[string]position.StrategyStats `json:"strategy_stats"`
	BestTrade        *position.TradeRecord             `json:"best_trade,omitempty"`
	WorstTrade       *position.TradeRecord             `json:"worst_trade,omitempty"`
}

// WriteReport writes the session report to path.
func (r *JSONReporter) WriteReport(store *position.Store, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	report := SessionReport{
		GeneratedAt:      time.Now(),
		SessionStart:     store.SessionStart(),
		TotalCapital:     store.TotalCapital(),
		AvailableCapital: store.AvailableCapital(),
		InvestedCapital:  store.InvestedCapital(),
		PeakCapital:      store.PeakCapital(),
		OpenPositions:    store.Positions(),
		TradeHistory:     store.History(),
		Stats:            store.Stats(),
		StrategyStats:    store.StrategyStats(),
	}
	if best, ok := store.BestTrade(); ok {
		report.BestTrade = &best
	}
	if worst, ok := store.WorstTrade(); ok {
		report.WorstTrade = &worst
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
