package exitengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/strategy"
)

func newTestEngine(t *testing.T, strategies ...*strategy.Strategy) (*Engine, *position.Store) {
	t.Helper()
	reg, err := strategy.NewRegistry(strategies...)
	require.NoError(t, err)
	store := position.NewStore(100000)
	return New(store, reg, nil), store
}

func openPosition(t *testing.T, store *position.Store, strat *strategy.Strategy, entryTime time.Time) {
	t.Helper()
	require.NoError(t, store.Open(position.Position{
		Symbol:        "AAPL",
		Strategy:      strat.Name,
		EntryPrice:    100,
		InitialShares: 100,
		CurrentShares: 100,
		StopLoss:      95,
		Targets: [3]position.Target{
			{Price: 105, ExitFraction: 0.30},
			{Price: 110, ExitFraction: 0.40},
			{Price: 115, ExitFraction: 0.30},
		},
		HighestPrice: 100,
		EntryTime:    entryTime,
	}))
}

func TestCheckExits_TargetLadderThenStop(t *testing.T) {
	strat := strategy.Momentum()
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now)

	// Tick 1: price 106 crosses the first target; 30 of 100 shares exit at
	// 105, and the trailing rule has already lifted the stop past breakeven.
	records := eng.CheckExits(map[string]float64{"AAPL": 106}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonTarget1, records[0].Reason)
	assert.Equal(t, 30, records[0].Shares)
	assert.InDelta(t, 105, records[0].ExitPrice, 1e-9)

	pos, ok := store.Get("AAPL")
	require.True(t, ok)
	assert.GreaterOrEqual(t, pos.StopLoss, 100.0)
	assert.InDelta(t, 106*0.975, pos.StopLoss, 1e-9)

	// Tick 2: price 111 crosses the second; fraction still of initial shares.
	records = eng.CheckExits(map[string]float64{"AAPL": 111}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonTarget2, records[0].Reason)
	assert.Equal(t, 40, records[0].Shares)

	// Tick 3: price collapses through the stop; the remainder exits at the
	// trailed stop from the 111 peak, not at the original 95 and not at the
	// traded-through 94.
	records = eng.CheckExits(map[string]float64{"AAPL": 94}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonStopLoss, records[0].Reason)
	assert.Equal(t, 30, records[0].Shares)
	assert.InDelta(t, 111*0.975, records[0].ExitPrice, 1e-9)
	assert.GreaterOrEqual(t, records[0].ExitPrice, 100.0)
	assert.True(t, records[0].Final)
	assert.False(t, store.IsOpen("AAPL"))
}

func TestCheckExits_StopBeatsTarget(t *testing.T) {
	strat := strategy.Momentum()
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now)

	// Trailing has raised the stop above the first target. A price that
	// satisfies both rules must take the stop; the tick's own trail update
	// off the 109 peak lifts it a little further first.
	require.NoError(t, store.UpdateTrail("AAPL", 106, 109))

	records := eng.CheckExits(map[string]float64{"AAPL": 105.5}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonStopLoss, records[0].Reason)
	assert.InDelta(t, 109*0.975, records[0].ExitPrice, 1e-9)
}

func TestCheckExits_OneTargetPerTick(t *testing.T) {
	strat := strategy.Momentum()
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now)

	// Price gaps over two rungs; only the lowest fires this tick.
	records := eng.CheckExits(map[string]float64{"AAPL": 112}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonTarget1, records[0].Reason)

	pos, ok := store.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 1, pos.NextTarget())
}

func TestCheckExits_MissingPriceSkipsPosition(t *testing.T) {
	strat := strategy.Momentum()
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now)

	records := eng.CheckExits(map[string]float64{}, now)
	assert.Empty(t, records)
	assert.True(t, store.IsOpen("AAPL"))

	// A zero price is treated the same as a missing one.
	records = eng.CheckExits(map[string]float64{"AAPL": 0}, now)
	assert.Empty(t, records)
	assert.True(t, store.IsOpen("AAPL"))
}

func TestCheckExits_TrailingRaisesStopMonotonically(t *testing.T) {
	// Targets pushed out of the way so the trailing rule is reachable.
	strat := strategy.Momentum()
	strat.Targets = [3]strategy.TargetLevel{
		{Pct: 50, ExitFraction: 0.30},
		{Pct: 60, ExitFraction: 0.40},
		{Pct: 70, ExitFraction: 0.30},
	}
	eng, store := newTestEngine(t, strat)
	now := time.Now()

	require.NoError(t, store.Open(position.Position{
		Symbol:        "AAPL",
		Strategy:      strat.Name,
		EntryPrice:    100,
		InitialShares: 100,
		CurrentShares: 100,
		StopLoss:      95,
		Targets: [3]position.Target{
			{Price: 150, ExitFraction: 0.30},
			{Price: 160, ExitFraction: 0.40},
			{Price: 170, ExitFraction: 0.30},
		},
		HighestPrice: 100,
		EntryTime:    now,
	}))

	// 7% above entry: past the 5% trail trigger, stop moves to 2.5% below peak.
	records := eng.CheckExits(map[string]float64{"AAPL": 107}, now)
	assert.Empty(t, records)
	pos, _ := store.Get("AAPL")
	assert.InDelta(t, 107*0.975, pos.StopLoss, 1e-9)
	assert.InDelta(t, 107, pos.HighestPrice, 1e-9)

	// A pullback never lowers the stop or the recorded peak.
	records = eng.CheckExits(map[string]float64{"AAPL": 105}, now)
	assert.Empty(t, records)
	pos, _ = store.Get("AAPL")
	assert.InDelta(t, 107*0.975, pos.StopLoss, 1e-9)
	assert.InDelta(t, 107, pos.HighestPrice, 1e-9)
}

func TestCheckExits_ShortHorizonMaxHold(t *testing.T) {
	strat := strategy.Momentum() // MaxHoldDays 15
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now.Add(-16*24*time.Hour))

	records := eng.CheckExits(map[string]float64{"AAPL": 101}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonTimeStop, records[0].Reason)
	assert.InDelta(t, 101, records[0].ExitPrice, 1e-9)
	assert.True(t, records[0].Final)
}

func TestCheckExits_ShortHorizonStaleFlat(t *testing.T) {
	strat := strategy.Momentum() // TimeStopDays 10, FlatProfitPct 2.0
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now.Add(-11*24*time.Hour))

	// 1% profit after 11 days counts as flat.
	records := eng.CheckExits(map[string]float64{"AAPL": 101}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonTimeStop, records[0].Reason)
}

func TestCheckExits_ShortHorizonStaleButProfitable(t *testing.T) {
	strat := strategy.Momentum()
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now.Add(-11*24*time.Hour))

	// 4% profit at the stale threshold is not flat; no time exit.
	records := eng.CheckExits(map[string]float64{"AAPL": 104}, now)
	assert.Empty(t, records)
	assert.True(t, store.IsOpen("AAPL"))
}

func TestCheckExits_LongHorizonSuppressedWhileUnderwater(t *testing.T) {
	strat := strategy.Positional() // MaxHoldDays 90, no callback
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now.Add(-91*24*time.Hour))

	// 91 days held at a loss: without a no-recovery confirmation the
	// position stays open.
	records := eng.CheckExits(map[string]float64{"AAPL": 96}, now)
	assert.Empty(t, records)
	assert.True(t, store.IsOpen("AAPL"))

	// In profit past max hold, the time stop applies.
	records = eng.CheckExits(map[string]float64{"AAPL": 102}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonTimeStop, records[0].Reason)
}

func TestCheckExits_LongHorizonNoRecoveryConfirms(t *testing.T) {
	strat := strategy.Positional()
	strat.NoRecovery = func(symbol string, daysHeld int, profitPct float64) bool {
		return daysHeld > 90 && profitPct < 0
	}
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now.Add(-91*24*time.Hour))

	records := eng.CheckExits(map[string]float64{"AAPL": 96}, now)
	require.Len(t, records, 1)
	assert.Equal(t, position.ReasonTimeStop, records[0].Reason)
	assert.False(t, store.IsOpen("AAPL"))
}

func TestCheckExits_CallbackPanicLeavesPositionUnchanged(t *testing.T) {
	strat := strategy.Positional()
	strat.NoRecovery = func(symbol string, daysHeld int, profitPct float64) bool {
		panic("flaky upstream signal")
	}
	eng, store := newTestEngine(t, strat)
	now := time.Now()
	openPosition(t, store, strat, now.Add(-91*24*time.Hour))

	records := eng.CheckExits(map[string]float64{"AAPL": 96}, now)
	assert.Empty(t, records)

	pos, ok := store.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 100, pos.CurrentShares)
	assert.InDelta(t, 95, pos.StopLoss, 1e-9)
}
