package position

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
)

// capitalEpsilon bounds acceptable float drift when asserting the capital
// invariant. Anything beyond it means money was double counted.
const capitalEpsilon = 1e-6

// Store holds the canonical open positions and portfolio capital. Every
// mutation runs inside one mutex-guarded read-modify-write section, and the
// capital invariant (capital == available + invested) is asserted before each
// commit. A violated invariant panics: continuing would risk double-counting
// money.
type Store struct {
	mu sync.Mutex

	totalCapital     float64
	availableCapital float64
	positions        map[string]*Position
	history          []TradeRecord
	strategyStats    map[string]*StrategyStats
	stats            TradeStats

	sessionStart time.Time
	peakCapital  float64
	bestTrade    *TradeRecord
	worstTrade   *TradeRecord
}

// NewStore creates a store with the given starting capital.
func NewStore(initialCapital float64) *Store {
	return &Store{
		totalCapital:     initialCapital,
		availableCapital: initialCapital,
		positions:        make(map[string]*Position),
		strategyStats:    make(map[string]*StrategyStats),
		sessionStart:     time.Now(),
		peakCapital:      initialCapital,
	}
}

// Open commits a fully specified position. Validation and capital rejections
// are synchronous and mutation-free.
func (s *Store) Open(pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos.Symbol == "" || pos.EntryPrice <= 0 || pos.InitialShares <= 0 {
		return engineerr.NewRejection(engineerr.RejectInvalidOpportunity, "position_store",
			fmt.Sprintf("invalid position %q: price %.2f shares %d", pos.Symbol, pos.EntryPrice, pos.InitialShares))
	}
	if pos.CurrentShares == 0 {
		pos.CurrentShares = pos.InitialShares
	}
	if pos.CurrentShares != pos.InitialShares {
		return engineerr.NewRejection(engineerr.RejectInvalidOpportunity, "position_store",
			fmt.Sprintf("%s: new position must hold all initial shares", pos.Symbol))
	}
	if _, exists := s.positions[pos.Symbol]; exists {
		return engineerr.NewRejection(engineerr.RejectDuplicateSymbol, "position_store",
			fmt.Sprintf("%s already open", pos.Symbol))
	}

	cost := pos.EntryPrice * float64(pos.InitialShares)
	if cost > s.availableCapital+capitalEpsilon {
		return engineerr.NewRejection(engineerr.RejectInsufficientCapital, "position_store",
			fmt.Sprintf("%s needs %.2f, available %.2f", pos.Symbol, cost, s.availableCapital))
	}

	if pos.HighestPrice < pos.EntryPrice {
		pos.HighestPrice = pos.EntryPrice
	}
	if pos.EntryTime.IsZero() {
		pos.EntryTime = time.Now()
	}

	s.availableCapital -= cost
	s.positions[pos.Symbol] = &pos
	s.assertInvariant("open " + pos.Symbol)
	return nil
}

// Reduce realizes an exit of the given share count at exitPrice. Reducing to
// zero shares destroys the position and marks the record final.
func (s *Store) Reduce(symbol string, shares int, exitPrice float64, reason ExitReason, now time.Time) (TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reduceLocked(symbol, shares, exitPrice, reason, now)
}

// Close fully exits a position at exitPrice.
func (s *Store) Close(symbol string, exitPrice float64, reason ExitReason, now time.Time) (TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[symbol]
	if !ok {
		return TradeRecord{}, engineerr.NewValidationError("position_store", "close", symbol+" not open")
	}
	return s.reduceLocked(symbol, pos.CurrentShares, exitPrice, reason, now)
}

// ExecuteTargetExit performs the partial exit for one ladder rung in a single
// critical section: derives the share count from the INITIAL share count (so
// the fractions always sum to the whole position regardless of rounding),
// marks the target hit, and commits the reduction at the target price. A
// partial that rounds to zero shares, or that exhausts the ladder, promotes
// to a full exit.
func (s *Store) ExecuteTargetExit(symbol string, targetIdx int, now time.Time) (TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[symbol]
	if !ok {
		return TradeRecord{}, engineerr.NewValidationError("position_store", "target_exit", symbol+" not open")
	}
	if targetIdx < 0 || targetIdx >= len(pos.Targets) {
		return TradeRecord{}, engineerr.NewValidationError("position_store", "target_exit",
			fmt.Sprintf("%s: target index %d out of range", symbol, targetIdx))
	}
	target := &pos.Targets[targetIdx]
	if target.Hit {
		return TradeRecord{}, engineerr.NewValidationError("position_store", "target_exit",
			fmt.Sprintf("%s: target %d already hit", symbol, targetIdx+1))
	}

	shares := int(math.Floor(float64(pos.InitialShares) * target.ExitFraction))
	if shares > pos.CurrentShares {
		shares = pos.CurrentShares
	}

	reason := TargetReason(targetIdx)
	lastRung := targetIdx == len(pos.Targets)-1
	if shares <= 0 || shares == pos.CurrentShares || lastRung {
		// Full exit: either the rounding left nothing meaningful to keep,
		// or this rung finishes the ladder.
		shares = pos.CurrentShares
		reason = ReasonLadderComplete
	}

	target.Hit = true
	return s.reduceLocked(symbol, shares, target.Price, reason, now)
}

// UpdateTrail raises the stop-loss and the observed peak for a position. The
// stop is monotonically non-decreasing: a lower candidate is ignored, never
// an error.
func (s *Store) UpdateTrail(symbol string, newStop, newHighest float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[symbol]
	if !ok {
		return engineerr.NewValidationError("position_store", "update_trail", symbol+" not open")
	}
	if newHighest > pos.HighestPrice {
		pos.HighestPrice = newHighest
	}
	if newStop > pos.StopLoss {
		pos.StopLoss = newStop
	}
	return nil
}

func (s *Store) reduceLocked(symbol string, shares int, exitPrice float64, reason ExitReason, now time.Time) (TradeRecord, error) {
	pos, ok := s.positions[symbol]
	if !ok {
		return TradeRecord{}, engineerr.NewValidationError("position_store", "reduce", symbol+" not open")
	}
	if shares <= 0 || shares > pos.CurrentShares {
		return TradeRecord{}, engineerr.NewValidationError("position_store", "reduce",
			fmt.Sprintf("%s: invalid share count %d of %d", symbol, shares, pos.CurrentShares))
	}
	if exitPrice <= 0 {
		return TradeRecord{}, engineerr.NewValidationError("position_store", "reduce",
			fmt.Sprintf("%s: invalid exit price %.2f", symbol, exitPrice))
	}

	costPerShare := pos.CostPerShare()
	proceeds := float64(shares) * exitPrice
	costBasis := float64(shares) * costPerShare
	pnl := proceeds - costBasis

	pos.CurrentShares -= shares
	s.availableCapital += proceeds
	s.totalCapital += pnl

	record := TradeRecord{
		Symbol:      symbol,
		Strategy:    pos.Strategy,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Shares:      shares,
		PnL:         pnl,
		PnLPct:      (exitPrice - costPerShare) / costPerShare * 100,
		Reason:      reason,
		EntryTime:   pos.EntryTime,
		ExitTime:    now,
		HoldingDays: pos.DaysHeld(now),
		Final:       pos.CurrentShares == 0,
	}

	if pos.CurrentShares < 0 {
		panic(engineerr.New(engineerr.ErrorCategoryFatal, "position_store", "reduce",
			fmt.Sprintf("%s: negative shares after reduction", symbol)))
	}
	if record.Final {
		delete(s.positions, symbol)
	}

	s.history = append(s.history, record)
	s.recordStatsLocked(record)
	s.assertInvariant("reduce " + symbol)
	return record, nil
}

func (s *Store) recordStatsLocked(rec TradeRecord) {
	stats, ok := s.strategyStats[rec.Strategy]
	if !ok {
		stats = &StrategyStats{}
		s.strategyStats[rec.Strategy] = stats
	}

	stats.Trades++
	s.stats.Trades++
	stats.TotalPnL += rec.PnL
	if rec.PnL > 0 {
		stats.Wins++
		stats.TotalProfit += rec.PnL
		s.stats.Wins++
		s.stats.TotalProfit += rec.PnL
	} else {
		stats.Losses++
		stats.TotalLoss += math.Abs(rec.PnL)
		s.stats.Losses++
		s.stats.TotalLoss += math.Abs(rec.PnL)
	}

	if s.totalCapital > s.peakCapital {
		s.peakCapital = s.totalCapital
	}
	if s.bestTrade == nil || rec.PnL > s.bestTrade.PnL {
		best := rec
		s.bestTrade = &best
	}
	if s.worstTrade == nil || rec.PnL < s.worstTrade.PnL {
		worst := rec
		s.worstTrade = &worst
	}
}

// assertInvariant recomputes invested capital and panics when the books
// no longer balance. Fatal per design: never silently corrected.
func (s *Store) assertInvariant(op string) {
	invested := 0.0
	for _, pos := range s.positions {
		if pos.CurrentShares < 0 || pos.CurrentShares > pos.InitialShares {
			panic(engineerr.New(engineerr.ErrorCategoryFatal, "position_store", op,
				fmt.Sprintf("%s: share count %d outside [0,%d]", pos.Symbol, pos.CurrentShares, pos.InitialShares)))
		}
		invested += pos.InvestedValue()
	}

	drift := math.Abs(s.totalCapital - (s.availableCapital + invested))
	tolerance := capitalEpsilon * math.Max(1, math.Abs(s.totalCapital))
	if drift > tolerance {
		panic(engineerr.New(engineerr.ErrorCategoryFatal, "position_store", op,
			fmt.Sprintf("capital invariant violated: total %.6f != available %.6f + invested %.6f",
				s.totalCapital, s.availableCapital, invested)))
	}
}

// IsOpen reports whether the symbol has an open position under any strategy.
func (s *Store) IsOpen(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.positions[symbol]
	return ok
}

// Get returns a copy of the position for the symbol.
func (s *Store) Get(symbol string) (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns copies of all open positions, sorted by symbol.
func (s *Store) Positions() []Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Position, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// OpenCount returns the number of open positions.
func (s *Store) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions)
}

// OpenCountForStrategy returns the open position count for one strategy.
func (s *Store) OpenCountForStrategy(strategy string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, pos := range s.positions {
		if pos.Strategy == strategy {
			count++
		}
	}
	return count
}

// TotalCapital returns current total capital.
func (s *Store) TotalCapital() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCapital
}

// AvailableCapital returns capital not tied up in open positions.
func (s *Store) AvailableCapital() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableCapital
}

// InvestedCapital returns the cost basis of all open positions.
func (s *Store) InvestedCapital() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	invested := 0.0
	for _, pos := range s.positions {
		invested += pos.InvestedValue()
	}
	return invested
}

// PeakCapital returns the highest total capital observed.
func (s *Store) PeakCapital() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peakCapital
}

// SessionStart returns when this portfolio session began.
func (s *Store) SessionStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionStart
}

// History returns a copy of the append-only trade history.
func (s *Store) History() []TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TradeRecord, len(s.history))
	copy(out, s.history)
	return out
}

// Stats returns portfolio-wide realized trade statistics.
func (s *Store) Stats() TradeStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// StrategyStats returns a copy of per-strategy aggregates.
func (s *Store) StrategyStats() map[string]StrategyStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]StrategyStats, len(s.strategyStats))
	for name, stats := range s.strategyStats {
		out[name] = *stats
	}
	return out
}

// BestTrade returns the most profitable realized trade, if any.
func (s *Store) BestTrade() (TradeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bestTrade == nil {
		return TradeRecord{}, false
	}
	return *s.bestTrade, true
}

// WorstTrade returns the least profitable realized trade, if any.
func (s *Store) WorstTrade() (TradeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.worstTrade == nil {
		return TradeRecord{}, false
	}
	return *s.worstTrade, true
}

// Snapshot captures the portfolio state for atomic persistence. Field names
// are stable; evolution is additive only.
type Snapshot struct {
	Version          int                      `json:"version"`
	LastUpdated      time.Time                `json:"last_updated"`
	TotalCapital     float64                  `json:"capital"`
	AvailableCapital float64                  `json:"available_capital"`
	SessionStart     time.Time                `json:"session_start"`
	PeakCapital      float64                  `json:"peak_capital"`
	Positions        map[string]Position      `json:"positions"`
	History          []TradeRecord            `json:"trade_history"`
	StrategyStats    map[string]StrategyStats `json:"strategy_stats"`
	Stats            TradeStats               `json:"stats"`
	BestTrade        *TradeRecord             `json:"best_trade,omitempty"`
	WorstTrade       *TradeRecord             `json:"worst_trade,omitempty"`
}

// SnapshotVersion is the current persisted-snapshot schema version.
const SnapshotVersion = 1

// Export captures a consistent snapshot of the whole store.
func (s *Store) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Version:          SnapshotVersion,
		LastUpdated:      time.Now(),
		TotalCapital:     s.totalCapital,
		AvailableCapital: s.availableCapital,
		SessionStart:     s.sessionStart,
		PeakCapital:      s.peakCapital,
		Positions:        make(map[string]Position, len(s.positions)),
		History:          make([]TradeRecord, len(s.history)),
		StrategyStats:    make(map[string]StrategyStats, len(s.strategyStats)),
		Stats:            s.stats,
	}
	for sym, pos := range s.positions {
		snap.Positions[sym] = *pos
	}
	copy(snap.History, s.history)
	for name, stats := range s.strategyStats {
		snap.StrategyStats[name] = *stats
	}
	if s.bestTrade != nil {
		best := *s.bestTrade
		snap.BestTrade = &best
	}
	if s.worstTrade != nil {
		worst := *s.worstTrade
		snap.WorstTrade = &worst
	}
	return snap
}

// Restore replaces the store contents from a snapshot, re-asserting the
// capital invariant before accepting it.
func (s *Store) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invested := 0.0
	for sym, pos := range snap.Positions {
		if pos.CurrentShares < 0 || pos.CurrentShares > pos.InitialShares {
			return engineerr.NewValidationError("position_store", "restore",
				fmt.Sprintf("%s: share count %d outside [0,%d]", sym, pos.CurrentShares, pos.InitialShares))
		}
		invested += pos.InvestedValue()
	}
	drift := math.Abs(snap.TotalCapital - (snap.AvailableCapital + invested))
	if drift > capitalEpsilon*math.Max(1, math.Abs(snap.TotalCapital)) {
		return engineerr.NewValidationError("position_store", "restore",
			fmt.Sprintf("snapshot capital invariant violated: total %.6f != available %.6f + invested %.6f",
				snap.TotalCapital, snap.AvailableCapital, invested))
	}

	s.totalCapital = snap.TotalCapital
	s.availableCapital = snap.AvailableCapital
	s.sessionStart = snap.SessionStart
	s.peakCapital = snap.PeakCapital
	s.stats = snap.Stats

	s.positions = make(map[string]*Position, len(snap.Positions))
	for sym, pos := range snap.Positions {
		p := pos
		s.positions[sym] = &p
	}
	s.history = make([]TradeRecord, len(snap.History))
	copy(s.history, snap.History)
	s.strategyStats = make(map[string]*StrategyStats, len(snap.StrategyStats))
	for name, stats := range snap.StrategyStats {
		st := stats
		s.strategyStats[name] = &st
	}
	s.bestTrade = snap.BestTrade
	s.worstTrade = snap.WorstTrade
	return nil
}
