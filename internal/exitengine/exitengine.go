package exitengine

import (
	"time"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/logger"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/strategy"
)

// Engine evaluates every open position against the exit rules once per tick.
// The trailing rule runs first and may raise the stop; the exit rules then
// run in priority order and the first match wins for that tick: stop-loss,
// then the lowest untriggered target, then the time stop.
type Engine struct {
	store      *position.Store
	strategies *strategy.Registry
	log        *logger.Logger
}

// New creates an exit engine over the given store and strategy registry.
// The logger may be nil (tests).
func New(store *position.Store, strategies *strategy.Registry, log *logger.Logger) *Engine {
	return &Engine{
		store:      store,
		strategies: strategies,
		log:        log,
	}
}

// CheckExits runs one monitoring tick over all open positions and commits
// the resulting reductions and closes. A symbol missing from prices is
// skipped with a warning, never treated as an exit. Returns the realized
// trade records in evaluation order.
func (e *Engine) CheckExits(prices map[string]float64, now time.Time) []position.TradeRecord {
	var records []position.TradeRecord

	for _, pos := range e.store.Positions() {
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			e.warnf("no price for %s this tick, skipping", pos.Symbol)
			continue
		}

		strat, ok := e.strategies.Get(pos.Strategy)
		if !ok {
			e.warnf("%s: unknown strategy %q, skipping", pos.Symbol, pos.Strategy)
			continue
		}

		if rec, acted := e.evaluatePosition(pos, strat, price, now); acted {
			records = append(records, rec)
		}
	}

	return records
}

// evaluatePosition applies the exit priority ladder to one position. The
// trailing rule runs first every tick, so an exit on the same tick already
// sees the raised stop. A panicking strategy callback is recovered here: the
// position is left as of the trail update for the tick.
func (e *Engine) evaluatePosition(pos position.Position, strat *strategy.Strategy, price float64, now time.Time) (rec position.TradeRecord, acted bool) {
	defer func() {
		if r := recover(); r != nil {
			e.errorf("%s: strategy callback panic recovered: %v", pos.Symbol, r)
			rec, acted = position.TradeRecord{}, false
		}
	}()

	// Track the peak and let the trailing rule raise the stop before any
	// exit check. The trailed stop is always below the peak, so this never
	// manufactures a stop hit on the tick that set the peak.
	if price > pos.HighestPrice {
		pos.HighestPrice = price
	}
	newStop := strat.TrailStop(pos.EntryPrice, pos.HighestPrice, pos.StopLoss, pos.EntryATR)
	if err := e.store.UpdateTrail(pos.Symbol, newStop, pos.HighestPrice); err != nil {
		e.errorf("%s: trail update failed: %v", pos.Symbol, err)
	} else if newStop > pos.StopLoss {
		pos.StopLoss = newStop
	}

	// 1. Stop-loss. Exits at the stop price, not the traded-through price.
	if price <= pos.StopLoss {
		record, err := e.store.Close(pos.Symbol, pos.StopLoss, position.ReasonStopLoss, now)
		if err != nil {
			e.errorf("%s: stop-loss close failed: %v", pos.Symbol, err)
			return position.TradeRecord{}, false
		}
		return record, true
	}

	// 2. Target ladder: lowest untriggered rung only, once per tick.
	if idx := pos.NextTarget(); idx >= 0 && price >= pos.Targets[idx].Price {
		record, err := e.store.ExecuteTargetExit(pos.Symbol, idx, now)
		if err != nil {
			e.errorf("%s: target %d exit failed: %v", pos.Symbol, idx+1, err)
			return position.TradeRecord{}, false
		}
		return record, true
	}

	// 3. Time stop.
	if e.timeStopHit(pos, strat, price, now) {
		record, err := e.store.Close(pos.Symbol, price, position.ReasonTimeStop, now)
		if err != nil {
			e.errorf("%s: time-stop close failed: %v", pos.Symbol, err)
			return position.TradeRecord{}, false
		}
		return record, true
	}

	return position.TradeRecord{}, false
}

// timeStopHit decides whether the holding period forces an exit. Short
// horizon strategies also shed stale near-flat positions early; long horizon
// ones suppress time exits while underwater unless the strategy's
// no-recovery callback confirms.
func (e *Engine) timeStopHit(pos position.Position, strat *strategy.Strategy, price float64, now time.Time) bool {
	daysHeld := pos.DaysHeld(now)
	profitPct := pos.ProfitPct(price)

	if strat.Horizon == strategy.HorizonShort {
		if daysHeld >= strat.MaxHoldDays {
			return true
		}
		if strat.TimeStopDays > 0 && daysHeld >= strat.TimeStopDays && profitPct < strat.FlatProfitPct {
			return true
		}
		return false
	}

	// Long horizon.
	if daysHeld < strat.MaxHoldDays {
		return false
	}
	if profitPct >= 0 {
		return true
	}
	if strat.NoRecovery == nil {
		return false
	}
	return strat.NoRecovery(pos.Symbol, daysHeld, profitPct)
}

func (e *Engine) warnf(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Warning(format, args...)
	}
}

func (e *Engine) errorf(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Error(format, args...)
	}
}
