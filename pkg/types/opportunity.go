package types

import "time"

// Opportunity is a sized-entry candidate produced by an external signal
// collaborator. It is consumed exactly once by the engine and never retained.
type Opportunity struct {
	Symbol       string    `json:"symbol"`
	Strategy     string    `json:"strategy"`
	Score        float64   `json:"score"`
	EntryPrice   float64   `json:"entry_price"`
	ATR          float64   `json:"atr"`
	StopDistance float64   `json:"stop_distance,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
