package allocator

import (
	"fmt"
	"math"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/strategy"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// Config controls position sizing.
type Config struct {
	MaxRiskPerTrade  float64 // hard cap on capital risked per trade
	KellyScale       float64 // fraction of raw Kelly to use (1/4 Kelly default)
	KellyMinTrades   int     // closed trades required before Kelly kicks in
	MaxPositionPct   float64 // cap on position cost vs available capital
	MinPositionValue float64 // reject entries smaller than this cost
}

// DefaultConfig returns conservative sizing defaults.
func DefaultConfig() Config {
	return Config{
		MaxRiskPerTrade:  0.02,
		KellyScale:       0.25,
		KellyMinTrades:   10,
		MaxPositionPct:   0.25,
		MinPositionValue: 0,
	}
}

// Allocator converts an approved opportunity plus the current capital state
// into a fully specified position, or a typed rejection. It never mutates
// portfolio state itself.
type Allocator struct {
	cfg Config
}

// New creates an allocator, filling zero config fields with defaults.
func New(cfg Config) *Allocator {
	def := DefaultConfig()
	if cfg.MaxRiskPerTrade <= 0 {
		cfg.MaxRiskPerTrade = def.MaxRiskPerTrade
	}
	if cfg.KellyScale <= 0 {
		cfg.KellyScale = def.KellyScale
	}
	if cfg.KellyMinTrades <= 0 {
		cfg.KellyMinTrades = def.KellyMinTrades
	}
	if cfg.MaxPositionPct <= 0 {
		cfg.MaxPositionPct = def.MaxPositionPct
	}
	return &Allocator{cfg: cfg}
}

// KellyFraction derives a bet size from realized results:
// kelly = winRate - (1-winRate)/(avgWin/avgLoss), scaled down for safety.
// Before the minimum sample is reached the configured max risk is used, so
// early trades are sized by the hard cap alone.
func (a *Allocator) KellyFraction(stats position.TradeStats) float64 {
	if stats.Trades < a.cfg.KellyMinTrades {
		return a.cfg.MaxRiskPerTrade
	}

	winRate := stats.WinRate()
	avgWin := stats.AvgWin()
	avgLoss := stats.AvgLoss()
	if avgLoss <= 0 || avgWin <= 0 {
		return a.cfg.MaxRiskPerTrade
	}

	kelly := winRate - (1-winRate)/(avgWin/avgLoss)
	if kelly < 0 {
		kelly = 0
	}
	return kelly * a.cfg.KellyScale
}

// RiskFraction is the capital fraction risked on the next trade:
// min(maxRiskPerTrade, kelly) scaled by the drawdown and streak multipliers
// supplied by the risk guardrails.
func (a *Allocator) RiskFraction(stats position.TradeStats, drawdownMult, streakMult float64) float64 {
	base := math.Min(a.cfg.MaxRiskPerTrade, a.KellyFraction(stats))
	return base * drawdownMult * streakMult
}

// Allocate sizes an opportunity against the available capital and builds the
// position: risk-derived share count, strategy stop and 3-level target
// ladder. Rejections are typed and mutation-free.
func (a *Allocator) Allocate(
	opp types.Opportunity,
	strat *strategy.Strategy,
	available float64,
	openForStrategy int,
	stats position.TradeStats,
	drawdownMult, streakMult float64,
	now time.Time,
) (position.Position, error) {
	if opp.Symbol == "" || opp.EntryPrice <= 0 {
		return position.Position{}, engineerr.NewRejection(engineerr.RejectInvalidOpportunity, "allocator",
			fmt.Sprintf("invalid opportunity %q at %.2f", opp.Symbol, opp.EntryPrice))
	}
	if openForStrategy >= strat.MaxPositions {
		return position.Position{}, engineerr.NewRejection(engineerr.RejectStrategyCapacityExceeded, "allocator",
			fmt.Sprintf("%s at capacity (%d/%d)", strat.Name, openForStrategy, strat.MaxPositions))
	}

	stopLoss := a.stopFor(opp, strat)
	riskPerShare := opp.EntryPrice - stopLoss
	if riskPerShare <= 0 {
		return position.Position{}, engineerr.NewRejection(engineerr.RejectInvalidOpportunity, "allocator",
			fmt.Sprintf("%s: stop %.2f not below entry %.2f", opp.Symbol, stopLoss, opp.EntryPrice))
	}

	riskFraction := a.RiskFraction(stats, drawdownMult, streakMult)
	riskAmount := available * riskFraction

	shares := int(math.Floor(riskAmount / riskPerShare))

	// Clip so the position cost stays inside the per-position cap.
	maxShares := int(math.Floor(available * a.cfg.MaxPositionPct / opp.EntryPrice))
	if shares > maxShares {
		shares = maxShares
	}

	cost := float64(shares) * opp.EntryPrice
	if shares <= 0 || cost > available || cost < a.cfg.MinPositionValue {
		return position.Position{}, engineerr.NewRejection(engineerr.RejectInsufficientCapital, "allocator",
			fmt.Sprintf("%s: %d shares (%.2f) vs available %.2f", opp.Symbol, shares, cost, available))
	}

	targetPrices := strat.TargetPrices(opp.EntryPrice)
	var targets [3]position.Target
	for i := range targets {
		targets[i] = position.Target{
			Price:        targetPrices[i],
			ExitFraction: strat.Targets[i].ExitFraction,
		}
	}

	return position.Position{
		Symbol:        opp.Symbol,
		Strategy:      strat.Name,
		EntryPrice:    opp.EntryPrice,
		InitialShares: shares,
		CurrentShares: shares,
		StopLoss:      stopLoss,
		Targets:       targets,
		HighestPrice:  opp.EntryPrice,
		EntryTime:     now,
		EntryATR:      opp.ATR,
	}, nil
}

// stopFor places the initial stop: the opportunity's suggested distance when
// present, otherwise the strategy's ATR-multiple rule, both clipped to the
// strategy's [min,max] percent band below entry.
func (a *Allocator) stopFor(opp types.Opportunity, strat *strategy.Strategy) float64 {
	if opp.StopDistance > 0 {
		distPct := opp.StopDistance / opp.EntryPrice
		if distPct < strat.MinStopPct {
			distPct = strat.MinStopPct
		}
		if distPct > strat.MaxStopPct {
			distPct = strat.MaxStopPct
		}
		return opp.EntryPrice * (1 - distPct)
	}
	return strat.StopPrice(opp.EntryPrice, opp.ATR)
}
