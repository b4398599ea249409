package strategy

import (
	"fmt"
	"math"
)

// Horizon separates short-horizon strategies (swing style, quick time stops)
// from long-horizon ones (positional, time exits suppressed while underwater).
type Horizon int

const (
	HorizonShort Horizon = iota
	HorizonLong
)

func (h Horizon) String() string {
	switch h {
	case HorizonShort:
		return "SHORT"
	case HorizonLong:
		return "LONG"
	default:
		return "UNKNOWN"
	}
}

// TargetLevel is one rung of the profit-taking ladder: a percent-of-entry
// price and the fraction of the initial shares to exit there.
type TargetLevel struct {
	Pct          float64 `json:"pct"`
	ExitFraction float64 `json:"exit_fraction"`
}

// TrailingRule describes how the stop-loss follows price once in profit.
// At BreakevenAtPct the stop moves to the entry price; at TrailAtPct it
// trails DistancePct (or ATRMultiple*ATR when ATRScaled) below the peak.
type TrailingRule struct {
	BreakevenAtPct float64 `json:"breakeven_at_pct"`
	TrailAtPct     float64 `json:"trail_at_pct"`
	DistancePct    float64 `json:"distance_pct"`
	ATRScaled      bool    `json:"atr_scaled"`
	ATRMultiple    float64 `json:"atr_multiple"`
}

// NoRecoveryFunc is the single discretionary override a long-horizon strategy
// may supply: called for a losing position at its time stop, returning true
// confirms the exit. The callback may be arbitrarily expensive or faulty, so
// callers must recover panics per position.
type NoRecoveryFunc func(symbol string, daysHeld int, profitPct float64) bool

// Strategy carries the fully typed per-strategy parameters: stop placement,
// target ladder, time-stop behavior, trailing rule and capacity limits.
type Strategy struct {
	Name            string
	Horizon         Horizon
	StopLossPct     float64 // fallback percent stop when no ATR is available
	ATRStopMultiple float64
	MinStopPct      float64 // stop distance clip band, as fraction of entry
	MaxStopPct      float64
	Targets         [3]TargetLevel
	TimeStopDays    int     // short horizon: stale-position threshold
	FlatProfitPct   float64 // short horizon: profit below this counts as flat
	MinHoldDays     int
	MaxHoldDays     int
	MaxPositions    int
	Trailing        TrailingRule
	NoRecovery      NoRecoveryFunc
}

// Validate checks the strategy parameters for internal consistency.
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("strategy name is required")
	}
	if s.StopLossPct <= 0 || s.StopLossPct >= 1 {
		return fmt.Errorf("%s: stop loss pct %.4f out of (0,1)", s.Name, s.StopLossPct)
	}
	if s.MinStopPct > s.MaxStopPct {
		return fmt.Errorf("%s: min stop pct %.4f above max %.4f", s.Name, s.MinStopPct, s.MaxStopPct)
	}
	if s.MaxHoldDays <= 0 {
		return fmt.Errorf("%s: max hold days must be positive", s.Name)
	}
	if s.MaxPositions <= 0 {
		return fmt.Errorf("%s: max positions must be positive", s.Name)
	}

	sum := 0.0
	prev := 0.0
	for i, t := range s.Targets {
		if t.Pct <= prev {
			return fmt.Errorf("%s: target %d pct %.4f not above previous", s.Name, i+1, t.Pct)
		}
		if t.ExitFraction <= 0 {
			return fmt.Errorf("%s: target %d exit fraction must be positive", s.Name, i+1)
		}
		prev = t.Pct
		sum += t.ExitFraction
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%s: target exit fractions sum to %.4f, want 1.0", s.Name, sum)
	}
	return nil
}

// StopPrice computes the initial stop for an entry: an ATR-multiple distance
// clipped to the [MinStopPct, MaxStopPct] band below entry, falling back to
// the plain percent stop when no ATR is supplied.
func (s *Strategy) StopPrice(entry, atr float64) float64 {
	distPct := s.StopLossPct
	if atr > 0 && s.ATRStopMultiple > 0 && entry > 0 {
		distPct = (s.ATRStopMultiple * atr) / entry
	}
	if distPct < s.MinStopPct {
		distPct = s.MinStopPct
	}
	if distPct > s.MaxStopPct {
		distPct = s.MaxStopPct
	}
	return entry * (1 - distPct)
}

// TargetPrices expands the ladder into absolute prices for an entry.
func (s *Strategy) TargetPrices(entry float64) [3]float64 {
	var out [3]float64
	for i, t := range s.Targets {
		out[i] = entry * (1 + t.Pct/100)
	}
	return out
}

// TrailStop returns the trailing stop implied by the peak price since entry.
// The result is never below currentStop, so applying it keeps the stop
// monotonically non-decreasing.
func (s *Strategy) TrailStop(entry, highest, currentStop, atr float64) float64 {
	stop := currentStop
	if entry <= 0 || highest <= entry {
		return stop
	}

	profitPct := (highest - entry) / entry * 100

	if s.Trailing.BreakevenAtPct > 0 && profitPct >= s.Trailing.BreakevenAtPct && entry > stop {
		stop = entry
	}

	if s.Trailing.TrailAtPct > 0 && profitPct >= s.Trailing.TrailAtPct {
		trailed := highest * (1 - s.Trailing.DistancePct)
		if s.Trailing.ATRScaled && atr > 0 {
			trailed = highest - s.Trailing.ATRMultiple*atr
		}
		if trailed > stop {
			stop = trailed
		}
	}

	return stop
}
