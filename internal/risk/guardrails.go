package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
)

// HeatBand classifies total portfolio risk exposure. Reporting only, never a
// hard blocker.
type HeatBand int

const (
	HeatSafe HeatBand = iota
	HeatCaution
	HeatDanger
)

func (h HeatBand) String() string {
	switch h {
	case HeatSafe:
		return "SAFE"
	case HeatCaution:
		return "CAUTION"
	case HeatDanger:
		return "DANGER"
	default:
		return "UNKNOWN"
	}
}

// Config holds the guardrail thresholds.
type Config struct {
	MaxDailyLossPct   float64       // session P&L kill switch
	MinorDrawdownPct  float64       // risk multiplier steps to 0.75 here
	MajorDrawdownPct  float64       // and to 0.5 here
	HardDrawdownPct   float64       // full entry pause past this
	PauseDuration     time.Duration // how long a drawdown pause lasts
	LossStreakTrigger int           // consecutive losses before throttling
	LossStreakFactor  float64
	WinStreakTrigger  int // consecutive wins before a bounded increase
	WinStreakFactor   float64
	StreakMinTrades   int // minimum closed trades before increases apply
	MinMultiplier     float64
	MaxMultiplier     float64
	MarketCrashPct    float64 // benchmark intraday move that blocks entries
	HeatCautionPct    float64
	HeatDangerPct     float64
}

// DefaultConfig returns the production guardrail thresholds.
func DefaultConfig() Config {
	return Config{
		MaxDailyLossPct:   0.03,
		MinorDrawdownPct:  0.05,
		MajorDrawdownPct:  0.10,
		HardDrawdownPct:   0.15,
		PauseDuration:     24 * time.Hour,
		LossStreakTrigger: 2,
		LossStreakFactor:  0.8,
		WinStreakTrigger:  3,
		WinStreakFactor:   1.1,
		StreakMinTrades:   15,
		MinMultiplier:     0.5,
		MaxMultiplier:     1.25,
		MarketCrashPct:    -0.02,
		HeatCautionPct:    4.0,
		HeatDangerPct:     6.0,
	}
}

// Guardrails wraps the allocator with portfolio-wide limits: the daily-loss
// kill switch, the consecutive-loss throttle, the drawdown pause and the
// portfolio heat gauge. A triggered pause suspends only the entry path;
// exits must stay live since unmonitored positions are the primary risk.
type Guardrails struct {
	mu  sync.Mutex
	cfg Config

	sessionStart   time.Time
	sessionCapital float64
	dailyPnL       float64

	consecutiveLosses int
	consecutiveWins   int
	closedTrades      int

	peakCapital     float64
	currentDrawdown float64 // fraction of peak

	paused      bool
	pauseUntil  time.Time
	pauseReason string

	marketCrash bool
}

// New creates guardrails for a session starting at the given capital.
func New(cfg Config, initialCapital float64) *Guardrails {
	return &Guardrails{
		cfg:            cfg,
		sessionStart:   time.Now(),
		sessionCapital: initialCapital,
		peakCapital:    initialCapital,
	}
}

// CheckEntryAllowed gates the entry path. A nil return means entries may
// proceed; otherwise the typed rejection explains why. Exits are never gated.
func (g *Guardrails) CheckEntryAllowed(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		if now.Before(g.pauseUntil) {
			return engineerr.NewRejection(engineerr.RejectDrawdownPause, "risk_guardrails",
				fmt.Sprintf("paused until %s: %s", g.pauseUntil.Format(time.RFC3339), g.pauseReason))
		}
		g.paused = false
		g.pauseReason = ""
	}

	if g.marketCrash {
		return engineerr.NewRejection(engineerr.RejectMarketCrash, "risk_guardrails",
			"benchmark crash circuit breaker tripped for this session")
	}

	maxDailyLoss := g.sessionCapital * g.cfg.MaxDailyLossPct
	if g.dailyPnL <= -maxDailyLoss {
		return engineerr.NewRejection(engineerr.RejectDailyLossLimit, "risk_guardrails",
			fmt.Sprintf("session P&L %.2f breached daily loss limit %.2f", g.dailyPnL, -maxDailyLoss))
	}

	return nil
}

// RecordTrade folds a realized exit into the session counters. Every exit
// moves the daily P&L; only final exits count toward win/loss streaks.
func (g *Guardrails) RecordTrade(rec position.TradeRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyPnL += rec.PnL
	if !rec.Final {
		return
	}

	g.closedTrades++
	if rec.PnL > 0 {
		g.consecutiveWins++
		g.consecutiveLosses = 0
	} else {
		g.consecutiveLosses++
		g.consecutiveWins = 0
	}
}

// UpdateCapital tracks the portfolio peak and triggers the drawdown pause
// when the hard limit is crossed.
func (g *Guardrails) UpdateCapital(total float64, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if total > g.peakCapital {
		g.peakCapital = total
	}
	if g.peakCapital > 0 && total < g.peakCapital {
		g.currentDrawdown = (g.peakCapital - total) / g.peakCapital
	} else {
		g.currentDrawdown = 0
	}

	if g.currentDrawdown >= g.cfg.HardDrawdownPct && !g.paused {
		g.paused = true
		g.pauseUntil = now.Add(g.cfg.PauseDuration)
		g.pauseReason = fmt.Sprintf("drawdown %.1f%% >= %.1f%%",
			g.currentDrawdown*100, g.cfg.HardDrawdownPct*100)
	}
}

// DrawdownMultiplier steps the risk fraction down as drawdown deepens:
// 1.0 normally, 0.75 past the minor threshold, 0.5 past the major one.
func (g *Guardrails) DrawdownMultiplier() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.currentDrawdown >= g.cfg.MajorDrawdownPct:
		return 0.5
	case g.currentDrawdown >= g.cfg.MinorDrawdownPct:
		return 0.75
	default:
		return 1.0
	}
}

// StreakMultiplier throttles sizing after consecutive losses and allows a
// bounded increase after a win streak with a minimum sample. Clamped.
func (g *Guardrails) StreakMultiplier() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	mult := 1.0
	if g.consecutiveLosses >= g.cfg.LossStreakTrigger {
		mult = g.cfg.LossStreakFactor
	} else if g.consecutiveWins >= g.cfg.WinStreakTrigger && g.closedTrades >= g.cfg.StreakMinTrades {
		mult = g.cfg.WinStreakFactor
	}

	if mult < g.cfg.MinMultiplier {
		mult = g.cfg.MinMultiplier
	}
	if mult > g.cfg.MaxMultiplier {
		mult = g.cfg.MaxMultiplier
	}
	return mult
}

// NoteBenchmarkMove feeds the benchmark's intraday move into the market
// crash circuit breaker. Once tripped it blocks entries until session reset.
func (g *Guardrails) NoteBenchmarkMove(changePct float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if changePct <= g.cfg.MarketCrashPct {
		g.marketCrash = true
	}
}

// MarketCrashed reports whether the crash breaker is tripped.
func (g *Guardrails) MarketCrashed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.marketCrash
}

// ResetSession starts a new trading session: daily P&L and the crash
// breaker reset, streaks and drawdown state carry over.
func (g *Guardrails) ResetSession(now time.Time, capital float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sessionStart = now
	g.sessionCapital = capital
	g.dailyPnL = 0
	g.marketCrash = false
}

// SessionStart returns when the current trading session began.
func (g *Guardrails) SessionStart() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionStart
}

// DailyPnL returns the realized P&L since session start.
func (g *Guardrails) DailyPnL() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dailyPnL
}

// Drawdown returns the current peak-to-trough drawdown as a fraction.
func (g *Guardrails) Drawdown() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentDrawdown
}

// Paused reports whether the entry path is paused, and until when.
func (g *Guardrails) Paused() (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused, g.pauseUntil
}

// Streaks returns the current consecutive win and loss counts.
func (g *Guardrails) Streaks() (wins, losses int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consecutiveWins, g.consecutiveLosses
}

// PortfolioHeat sums (entry - stop) * shares across open positions, as a
// percent of capital, and classifies it into a band.
func (g *Guardrails) PortfolioHeat(positions []position.Position, capital float64) (float64, HeatBand) {
	if capital <= 0 {
		return 0, HeatSafe
	}

	totalRisk := 0.0
	for _, pos := range positions {
		risk := (pos.EntryPrice - pos.StopLoss) * float64(pos.CurrentShares)
		if risk > 0 {
			totalRisk += risk
		}
	}

	heat := totalRisk / capital * 100

	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case heat < g.cfg.HeatCautionPct:
		return heat, HeatSafe
	case heat < g.cfg.HeatDangerPct:
		return heat, HeatCaution
	default:
		return heat, HeatDanger
	}
}

// State captures guardrail counters for persistence alongside the portfolio
// snapshot.
type State struct {
	SessionStart      time.Time `json:"session_start"`
	SessionCapital    float64   `json:"session_capital"`
	DailyPnL          float64   `json:"daily_pnl"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	ConsecutiveWins   int       `json:"consecutive_wins"`
	ClosedTrades      int       `json:"closed_trades"`
	PeakCapital       float64   `json:"peak_capital"`
	Paused            bool      `json:"paused"`
	PauseUntil        time.Time `json:"pause_until,omitempty"`
	PauseReason       string    `json:"pause_reason,omitempty"`
	MarketCrash       bool      `json:"market_crash"`
}

// Export captures the guardrail state.
func (g *Guardrails) Export() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	return State{
		SessionStart:      g.sessionStart,
		SessionCapital:    g.sessionCapital,
		DailyPnL:          g.dailyPnL,
		ConsecutiveLosses: g.consecutiveLosses,
		ConsecutiveWins:   g.consecutiveWins,
		ClosedTrades:      g.closedTrades,
		PeakCapital:       g.peakCapital,
		Paused:            g.paused,
		PauseUntil:        g.pauseUntil,
		PauseReason:       g.pauseReason,
		MarketCrash:       g.marketCrash,
	}
}

// Restore replaces the guardrail counters from a persisted state.
func (g *Guardrails) Restore(state State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sessionStart = state.SessionStart
	g.sessionCapital = state.SessionCapital
	g.dailyPnL = state.DailyPnL
	g.consecutiveLosses = state.ConsecutiveLosses
	g.consecutiveWins = state.ConsecutiveWins
	g.closedTrades = state.ClosedTrades
	g.peakCapital = state.PeakCapital
	g.paused = state.Paused
	g.pauseUntil = state.PauseUntil
	g.pauseReason = state.PauseReason
	g.marketCrash = state.MarketCrash
}
