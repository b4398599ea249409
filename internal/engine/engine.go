package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/allocator"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/exitengine"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/logger"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/marketdata"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/monitoring"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/regime"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/risk"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/state"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/strategy"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// Config holds engine orchestration settings.
type Config struct {
	CycleInterval     time.Duration // monitoring tick spacing
	PriceWorkers      int           // bounded pool for price fetches
	OpportunityBuffer int           // pending opportunity channel capacity
	BenchmarkSymbol   string        // series the regime detector runs on
	BenchmarkBars     int           // daily candles fetched per refresh
}

// DefaultConfig returns production orchestration settings.
func DefaultConfig() Config {
	return Config{
		CycleInterval:     time.Minute,
		PriceWorkers:      4,
		OpportunityBuffer: 64,
		BenchmarkSymbol:   "BTCUSDT",
		BenchmarkBars:     120,
	}
}

// Deps bundles the components the engine orchestrates. Everything is passed
// in explicitly; the engine owns no global state.
type Deps struct {
	Store      *position.Store
	Allocator  *allocator.Allocator
	Guardrails *risk.Guardrails
	Exits      *exitengine.Engine
	Detector   *regime.Detector
	Router     *regime.Router
	Strategies *strategy.Registry
	Market     marketdata.Source
	Persist    *state.Persistence
	Log        *logger.Logger
	Health     *monitoring.HealthChecker
}

// Engine is the orchestration context: one serial decision loop over the
// position store, fed by an opportunity channel and a price worker pool.
// Exits always commit before entries within a cycle.
type Engine struct {
	cfg  Config
	deps Deps

	opportunities chan types.Opportunity

	mu        sync.Mutex
	observers []Observer
}

// New creates an engine from its dependencies.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Store == nil || deps.Allocator == nil || deps.Guardrails == nil ||
		deps.Exits == nil || deps.Detector == nil || deps.Router == nil ||
		deps.Strategies == nil || deps.Market == nil {
		return nil, engineerr.NewConfigurationError("engine", "new", "missing required dependency")
	}

	def := DefaultConfig()
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = def.CycleInterval
	}
	if cfg.PriceWorkers <= 0 {
		cfg.PriceWorkers = def.PriceWorkers
	}
	if cfg.OpportunityBuffer <= 0 {
		cfg.OpportunityBuffer = def.OpportunityBuffer
	}
	if cfg.BenchmarkSymbol == "" {
		cfg.BenchmarkSymbol = def.BenchmarkSymbol
	}
	if cfg.BenchmarkBars <= 0 {
		cfg.BenchmarkBars = def.BenchmarkBars
	}

	return &Engine{
		cfg:           cfg,
		deps:          deps,
		opportunities: make(chan types.Opportunity, cfg.OpportunityBuffer),
	}, nil
}

// AddObserver registers an event observer.
func (e *Engine) AddObserver(obs Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, obs)
}

// SubmitOpportunity queues an opportunity for the next cycle. A full queue
// rejects immediately rather than blocking the producer.
func (e *Engine) SubmitOpportunity(opp types.Opportunity) error {
	select {
	case e.opportunities <- opp:
		return nil
	default:
		return engineerr.NewRejection(engineerr.RejectInvalidOpportunity, "engine",
			fmt.Sprintf("opportunity queue full, dropping %s", opp.Symbol))
	}
}

// Run executes cycles until the context is cancelled, then persists a final
// snapshot.
func (e *Engine) Run(ctx context.Context) error {
	e.info("engine started: cycle interval %s, %d price workers",
		e.cfg.CycleInterval, e.cfg.PriceWorkers)

	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.info("engine stopping: %v", ctx.Err())
			e.persistState()
			return ctx.Err()
		case now := <-ticker.C:
			e.RunCycle(ctx, now)
		}
	}
}

// RunCycle executes one full cycle: session rollover, regime refresh, price
// fetch, exits, guardrail bookkeeping, entries, persistence, metrics. Exits
// always commit before any entry is considered.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) {
	e.rolloverSession(now)
	e.refreshRegime(ctx, now)

	pending := e.drainOpportunities()
	prices := e.fetchPrices(ctx, e.symbolsToPrice(pending))

	e.runExits(prices, now)
	e.deps.Guardrails.UpdateCapital(e.deps.Store.TotalCapital(), now)
	e.runEntries(pending, now)

	e.persistState()
	e.publishMetrics()
}

// rolloverSession starts a fresh guardrail session on the first cycle of a
// new calendar day: the daily-loss kill switch and the crash breaker reset,
// streaks and drawdown state carry over.
func (e *Engine) rolloverSession(now time.Time) {
	start := e.deps.Guardrails.SessionStart()
	sy, sm, sd := start.Date()
	ny, nm, nd := now.Date()
	if sy == ny && sm == nm && sd == nd {
		return
	}

	e.deps.Guardrails.ResetSession(now, e.deps.Store.TotalCapital())
	e.info("🌅 new session %s: daily loss limit and crash breaker reset",
		now.Format("2006-01-02"))
}

// refreshRegime reclassifies the market on the detector's cooldown and feeds
// the benchmark's session move into the crash breaker every cycle.
func (e *Engine) refreshRegime(ctx context.Context, now time.Time) {
	if change, err := e.deps.Market.GetSessionChange(ctx, e.cfg.BenchmarkSymbol); err == nil {
		wasCrashed := e.deps.Guardrails.MarketCrashed()
		e.deps.Guardrails.NoteBenchmarkMove(change)
		if !wasCrashed && e.deps.Guardrails.MarketCrashed() {
			e.emitGuardrail(GuardrailEvent{
				Reason:    string(engineerr.RejectMarketCrash),
				Detail:    fmt.Sprintf("benchmark %s moved %.2f%% intraday", e.cfg.BenchmarkSymbol, change*100),
				Timestamp: now,
			})
		}
	} else {
		e.warn("benchmark session change unavailable: %v", err)
		monitoring.RecordError(string(engineerr.ErrorCategoryMarketData))
	}

	if !e.deps.Detector.ShouldRefresh(now) {
		return
	}

	history, err := e.deps.Market.GetDailyHistory(ctx, e.cfg.BenchmarkSymbol, e.cfg.BenchmarkBars)
	if err != nil {
		e.warn("benchmark history unavailable, keeping regime %s: %v", e.deps.Detector.Current(), err)
		monitoring.RecordError(string(engineerr.ErrorCategoryMarketData))
		return
	}

	previous := e.deps.Detector.Current()
	signal, err := e.deps.Detector.Detect(history, now)
	if err != nil {
		e.warn("regime detection failed, keeping %s: %v", previous, err)
		return
	}

	if signal.Regime != previous {
		e.info("📊 regime change: %s -> %s (%.0f%% confidence)",
			previous, signal.Regime, signal.Confidence*100)
		monitoring.ClearRegime(previous.String())
	}
	monitoring.UpdateRegime(signal.Regime.String(), signal.Confidence)
}

// drainOpportunities empties the pending queue for this cycle.
func (e *Engine) drainOpportunities() []types.Opportunity {
	var pending []types.Opportunity
	for {
		select {
		case opp := <-e.opportunities:
			pending = append(pending, opp)
		default:
			return pending
		}
	}
}

// symbolsToPrice collects every symbol this cycle needs a price for: all
// open positions plus all pending opportunities.
func (e *Engine) symbolsToPrice(pending []types.Opportunity) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, pos := range e.deps.Store.Positions() {
		if !seen[pos.Symbol] {
			seen[pos.Symbol] = true
			symbols = append(symbols, pos.Symbol)
		}
	}
	for _, opp := range pending {
		if !seen[opp.Symbol] {
			seen[opp.Symbol] = true
			symbols = append(symbols, opp.Symbol)
		}
	}
	return symbols
}

// fetchPrices fans price lookups across a bounded worker pool and funnels
// the results back into the serial loop. A failed symbol is simply absent
// from the result map; downstream treats that as a skip.
func (e *Engine) fetchPrices(ctx context.Context, symbols []string) map[string]float64 {
	prices := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return prices
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.cfg.PriceWorkers)
	)

	for _, symbol := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			price, err := e.deps.Market.GetCurrentPrice(ctx, symbol)
			if err != nil {
				e.warn("price fetch failed for %s: %v", symbol, err)
				monitoring.RecordError(string(engineerr.ErrorCategoryMarketData))
				return
			}
			mu.Lock()
			prices[symbol] = price
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	if e.deps.Health != nil {
		e.deps.Health.SetConnected(len(prices) > 0)
	}
	return prices
}

// runExits evaluates and commits all exits for the tick, then folds the
// realized trades into the guardrail counters.
func (e *Engine) runExits(prices map[string]float64, now time.Time) {
	records := e.deps.Exits.CheckExits(prices, now)
	for _, rec := range records {
		e.deps.Guardrails.RecordTrade(rec)
		monitoring.RecordTrade(rec.Strategy, string(rec.Reason), rec.PnL)

		remaining := 0
		if pos, ok := e.deps.Store.Get(rec.Symbol); ok {
			remaining = pos.CurrentShares
		}
		e.emitExit(ExitEvent{Record: rec, RemainingShares: remaining, Timestamp: now})
	}
}

// runEntries arbitrates and executes pending opportunities: score descending,
// symbol ascending for determinism. The first accepted opportunity for a
// symbol wins; later ones hit the duplicate rejection.
func (e *Engine) runEntries(pending []types.Opportunity, now time.Time) {
	if len(pending) == 0 {
		return
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Score != pending[j].Score {
			return pending[i].Score > pending[j].Score
		}
		return pending[i].Symbol < pending[j].Symbol
	})

	currentRegime := e.deps.Detector.Current()
	splits := e.deps.Router.Split(currentRegime, e.deps.Store.TotalCapital())

	for _, opp := range pending {
		result := e.tryEntry(opp, currentRegime, splits, now)
		e.emitExecution(result)
	}
}

// tryEntry runs the full entry gauntlet for one opportunity: duplicate
// check, regime eligibility, guardrails, then allocation and the store open.
func (e *Engine) tryEntry(opp types.Opportunity, currentRegime regime.Regime, splits map[string]float64, now time.Time) ExecutionResult {
	reject := func(err error) ExecutionResult {
		reason, _ := engineerr.ReasonOf(err)
		monitoring.RecordRejection(string(reason))
		e.info("entry rejected %s (%s): %s", opp.Symbol, opp.Strategy, reason)
		return ExecutionResult{
			Opportunity: opp,
			Status:      ExecutionRejected,
			Reason:      string(reason),
			Timestamp:   now,
		}
	}

	if e.deps.Store.IsOpen(opp.Symbol) {
		return reject(engineerr.NewRejection(engineerr.RejectDuplicateSymbol, "engine",
			fmt.Sprintf("%s already open", opp.Symbol)))
	}

	if !e.deps.Router.IsActive(currentRegime, opp.Strategy) {
		return reject(engineerr.NewRejection(engineerr.RejectStrategyInactive, "engine",
			fmt.Sprintf("%s inactive under %s", opp.Strategy, currentRegime)))
	}

	if err := e.deps.Guardrails.CheckEntryAllowed(now); err != nil {
		return reject(err)
	}

	strat, ok := e.deps.Strategies.Get(opp.Strategy)
	if !ok {
		return reject(engineerr.NewRejection(engineerr.RejectInvalidOpportunity, "engine",
			fmt.Sprintf("unknown strategy %q", opp.Strategy)))
	}

	// The strategy's budget under the current split, less what it already
	// has deployed, bounded by what the portfolio actually has free.
	available := e.deps.Store.AvailableCapital()
	if budget, ok := splits[opp.Strategy]; ok {
		if free := budget - e.investedForStrategy(opp.Strategy); free < available {
			available = free
		}
	}
	if available <= 0 {
		return reject(engineerr.NewRejection(engineerr.RejectInsufficientCapital, "engine",
			fmt.Sprintf("%s budget exhausted under %s", opp.Strategy, currentRegime)))
	}

	pos, err := e.deps.Allocator.Allocate(
		opp, strat, available,
		e.deps.Store.OpenCountForStrategy(opp.Strategy),
		e.deps.Store.Stats(),
		e.deps.Guardrails.DrawdownMultiplier(),
		e.deps.Guardrails.StreakMultiplier(),
		now,
	)
	if err != nil {
		return reject(err)
	}

	if err := e.deps.Store.Open(pos); err != nil {
		return reject(err)
	}

	if e.deps.Log != nil {
		e.deps.Log.LogEntry(pos.Symbol, pos.Strategy, pos.InitialShares, pos.EntryPrice, pos.StopLoss)
	}

	return ExecutionResult{
		Opportunity: opp,
		Status:      ExecutionAccepted,
		Shares:      pos.InitialShares,
		StopLoss:    pos.StopLoss,
		Timestamp:   now,
	}
}

func (e *Engine) investedForStrategy(strategyName string) float64 {
	total := 0.0
	for _, pos := range e.deps.Store.Positions() {
		if pos.Strategy == strategyName {
			total += pos.InvestedValue()
		}
	}
	return total
}

// persistState snapshots the store and guardrails. Persistence failures are
// logged and counted but never interrupt the cycle.
func (e *Engine) persistState() {
	if e.deps.Persist == nil {
		return
	}

	engineState := state.EngineState{
		Portfolio:  e.deps.Store.Export(),
		Guardrails: e.deps.Guardrails.Export(),
		Regime:     e.deps.Detector.Current().String(),
	}
	if signal := e.deps.Detector.LastSignal(); signal != nil {
		engineState.RegimeConfidence = signal.Confidence
	}

	if err := e.deps.Persist.Save(engineState); err != nil {
		e.warn("state save failed: %v", err)
		monitoring.RecordError(string(engineerr.ErrorCategoryPersistence))
	}
}

// RestoreState rehydrates the store and guardrails from a persisted
// snapshot, typically at startup before the first cycle.
func (e *Engine) RestoreState(loaded *state.EngineState) error {
	if loaded == nil {
		return nil
	}
	if err := e.deps.Store.Restore(loaded.Portfolio); err != nil {
		return err
	}
	e.deps.Guardrails.Restore(loaded.Guardrails)
	e.info("state restored: %d open positions, capital $%.2f",
		e.deps.Store.OpenCount(), e.deps.Store.TotalCapital())
	return nil
}

// publishMetrics pushes the cycle-end portfolio gauges.
func (e *Engine) publishMetrics() {
	store := e.deps.Store
	monitoring.UpdateCapital(store.TotalCapital(), store.AvailableCapital())

	for _, name := range e.deps.Strategies.Names() {
		monitoring.UpdateOpenPositions(name, store.OpenCountForStrategy(name))
	}

	heat, _ := e.deps.Guardrails.PortfolioHeat(store.Positions(), store.TotalCapital())
	monitoring.UpdatePortfolioHeat(heat)
	monitoring.UpdateDrawdown(e.deps.Guardrails.Drawdown())

	if e.deps.Health != nil {
		e.deps.Health.RecordCycle(store.OpenCount(), store.TotalCapital(),
			e.deps.Detector.Current().String())
	}
}

func (e *Engine) emitExecution(result ExecutionResult) {
	for _, obs := range e.snapshotObservers() {
		obs.OnExecution(result)
	}
}

func (e *Engine) emitExit(event ExitEvent) {
	if e.deps.Log != nil {
		e.deps.Log.LogExit(event.Record.Symbol, event.Record.Strategy, string(event.Record.Reason),
			event.Record.Shares, event.Record.ExitPrice, event.Record.PnL, event.Record.PnLPct,
			event.Record.Final)
	}
	for _, obs := range e.snapshotObservers() {
		obs.OnExit(event)
	}
}

func (e *Engine) emitGuardrail(event GuardrailEvent) {
	if e.deps.Log != nil {
		e.deps.Log.LogGuardrail(event.Reason, event.Detail)
	}
	for _, obs := range e.snapshotObservers() {
		obs.OnGuardrail(event)
	}
}

func (e *Engine) snapshotObservers() []Observer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Observer, len(e.observers))
	copy(out, e.observers)
	return out
}

func (e *Engine) info(format string, args ...interface{}) {
	if e.deps.Log != nil {
		e.deps.Log.Info(format, args...)
	}
}

func (e *Engine) warn(format string, args ...interface{}) {
	if e.deps.Log != nil {
		e.deps.Log.Warning(format, args...)
	}
}
