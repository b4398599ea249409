package position

import "time"

// ExitReason labels why shares left a position. Reasons end up in trade
// records, alerts and the session log, so the strings are stable.
type ExitReason string

const (
	ReasonStopLoss       ExitReason = "STOP_LOSS"
	ReasonTarget1        ExitReason = "TARGET_1"
	ReasonTarget2        ExitReason = "TARGET_2"
	ReasonTarget3        ExitReason = "TARGET_3"
	ReasonLadderComplete ExitReason = "TARGET_LADDER_COMPLETE"
	ReasonTimeStop       ExitReason = "TIME_STOP"
	ReasonMarketCrash    ExitReason = "MARKET_CRASH"
	ReasonManual         ExitReason = "MANUAL"
)

// TargetReason maps a ladder index (0-based) to its exit reason.
func TargetReason(idx int) ExitReason {
	switch idx {
	case 0:
		return ReasonTarget1
	case 1:
		return ReasonTarget2
	default:
		return ReasonTarget3
	}
}

// Target is one rung of a position's profit ladder. Hit flags are sticky:
// once marked, a target is never re-triggered.
type Target struct {
	Price        float64 `json:"price"`
	ExitFraction float64 `json:"exit_fraction"`
	Hit          bool    `json:"hit"`
}

// Position is one open holding. The symbol is globally unique across the
// whole engine: a symbol open under any strategy blocks new entries for that
// symbol under every strategy.
type Position struct {
	Symbol        string    `json:"symbol"`
	Strategy      string    `json:"strategy"`
	EntryPrice    float64   `json:"entry_price"`
	InitialShares int       `json:"initial_shares"`
	CurrentShares int       `json:"current_shares"`
	StopLoss      float64   `json:"stop_loss"`
	Targets       [3]Target `json:"targets"`
	HighestPrice  float64   `json:"highest_price"`
	EntryTime     time.Time `json:"entry_time"`
	EntryATR      float64   `json:"entry_atr,omitempty"`
}

// CostPerShare is the original per-share cost (position value over initial
// shares). All realized P&L uses this, never the fluctuating market price.
func (p *Position) CostPerShare() float64 {
	return p.EntryPrice
}

// InvestedValue is the cost basis of the shares still held.
func (p *Position) InvestedValue() float64 {
	return float64(p.CurrentShares) * p.CostPerShare()
}

// DaysHeld counts whole days since entry.
func (p *Position) DaysHeld(now time.Time) int {
	if now.Before(p.EntryTime) {
		return 0
	}
	return int(now.Sub(p.EntryTime).Hours() / 24)
}

// ProfitPct is the unrealized move from entry, in percent.
func (p *Position) ProfitPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// NextTarget returns the index of the lowest untriggered target, or -1 when
// the ladder is exhausted.
func (p *Position) NextTarget() int {
	for i, t := range p.Targets {
		if !t.Hit {
			return i
		}
	}
	return -1
}

// TradeRecord is one realized exit, full or partial. Immutable once created.
type TradeRecord struct {
	Symbol      string     `json:"symbol"`
	Strategy    string     `json:"strategy"`
	EntryPrice  float64    `json:"entry_price"`
	ExitPrice   float64    `json:"exit_price"`
	Shares      int        `json:"shares"`
	PnL         float64    `json:"pnl"`
	PnLPct      float64    `json:"pnl_pct"`
	Reason      ExitReason `json:"reason"`
	EntryTime   time.Time  `json:"entry_time"`
	ExitTime    time.Time  `json:"exit_time"`
	HoldingDays int        `json:"holding_days"`
	Final       bool       `json:"final"`
}

// StrategyStats aggregates realized results per strategy.
type StrategyStats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalPnL    float64 `json:"total_pnl"`
	TotalProfit float64 `json:"total_profit"`
	TotalLoss   float64 `json:"total_loss"`
}

// WinRate is the fraction of winning trades, 0 when no trades yet.
func (s *StrategyStats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}

// Expectancy is the average expected P&L per trade.
func (s *StrategyStats) Expectancy() float64 {
	if s.Trades == 0 {
		return 0
	}
	winRate := s.WinRate()
	avgWin, avgLoss := 0.0, 0.0
	if s.Wins > 0 {
		avgWin = s.TotalProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		avgLoss = s.TotalLoss / float64(s.Losses)
	}
	return winRate*avgWin - (1-winRate)*avgLoss
}

// TradeStats aggregates realized results across the whole portfolio. The
// allocator's Kelly sizing reads these.
type TradeStats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalProfit float64 `json:"total_profit"`
	TotalLoss   float64 `json:"total_loss"`
}

// WinRate is the fraction of winning trades, 0 when no trades yet.
func (s *TradeStats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}

// AvgWin is the mean profit of winning trades.
func (s *TradeStats) AvgWin() float64 {
	if s.Wins == 0 {
		return 0
	}
	return s.TotalProfit / float64(s.Wins)
}

// AvgLoss is the mean absolute loss of losing trades.
func (s *TradeStats) AvgLoss() float64 {
	if s.Losses == 0 {
		return 0
	}
	return s.TotalLoss / float64(s.Losses)
}
