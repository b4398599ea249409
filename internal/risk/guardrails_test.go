package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
)

func record(pnl float64, final bool) position.TradeRecord {
	return position.TradeRecord{Symbol: "AAPL", Strategy: "MOMENTUM", PnL: pnl, Final: final}
}

func TestCheckEntryAllowed_CleanSession(t *testing.T) {
	g := New(DefaultConfig(), 100000)
	assert.NoError(t, g.CheckEntryAllowed(time.Now()))
}

func TestDailyLossKillSwitch(t *testing.T) {
	g := New(DefaultConfig(), 100000)
	now := time.Now()

	g.RecordTrade(record(-2000, true))
	assert.NoError(t, g.CheckEntryAllowed(now))

	g.RecordTrade(record(-1500, true)) // total -3500, limit -3000
	err := g.CheckEntryAllowed(now)
	require.Error(t, err)
	reason, _ := engineerr.ReasonOf(err)
	assert.Equal(t, engineerr.RejectDailyLossLimit, reason)

	// Session reset clears the kill switch.
	g.ResetSession(now.Add(24*time.Hour), 96500)
	assert.NoError(t, g.CheckEntryAllowed(now.Add(24*time.Hour)))
	assert.Equal(t, now.Add(24*time.Hour), g.SessionStart())
}

func TestDrawdownMultiplier_Steps(t *testing.T) {
	g := New(DefaultConfig(), 100000)
	now := time.Now()

	steps := []struct {
		capital float64
		want    float64
	}{
		{100000, 1.0},
		{97000, 1.0},  // 3% drawdown
		{94000, 0.75}, // 6%
		{92000, 0.75}, // 8%
		{89000, 0.5},  // 11%
	}
	for _, step := range steps {
		g.UpdateCapital(step.capital, now)
		assert.InDelta(t, step.want, g.DrawdownMultiplier(), 1e-9,
			"capital %.0f", step.capital)
	}
}

func TestDrawdownPause_TriggersAndResumes(t *testing.T) {
	g := New(DefaultConfig(), 100000)
	now := time.Now()

	g.UpdateCapital(84000, now) // 16% > hard limit 15%
	err := g.CheckEntryAllowed(now)
	require.Error(t, err)
	reason, _ := engineerr.ReasonOf(err)
	assert.Equal(t, engineerr.RejectDrawdownPause, reason)

	paused, until := g.Paused()
	assert.True(t, paused)
	assert.True(t, until.After(now))

	// Pause expires after the configured duration.
	assert.NoError(t, g.CheckEntryAllowed(now.Add(25*time.Hour)))
	paused, _ = g.Paused()
	assert.False(t, paused)
}

func TestStreakMultiplier(t *testing.T) {
	g := New(DefaultConfig(), 100000)

	assert.InDelta(t, 1.0, g.StreakMultiplier(), 1e-9)

	// Two consecutive final losses throttle sizing.
	g.RecordTrade(record(-100, true))
	g.RecordTrade(record(-100, true))
	assert.InDelta(t, 0.8, g.StreakMultiplier(), 1e-9)

	// A win resets the loss streak.
	g.RecordTrade(record(50, true))
	assert.InDelta(t, 1.0, g.StreakMultiplier(), 1e-9)
}

func TestStreakMultiplier_WinIncreaseNeedsSample(t *testing.T) {
	g := New(DefaultConfig(), 100000)

	// Three straight wins but only 3 closed trades: no increase yet.
	for i := 0; i < 3; i++ {
		g.RecordTrade(record(100, true))
	}
	assert.InDelta(t, 1.0, g.StreakMultiplier(), 1e-9)

	// Build the minimum sample, ending on a 3-win streak.
	for i := 0; i < 10; i++ {
		g.RecordTrade(record(-10, true))
	}
	for i := 0; i < 3; i++ {
		g.RecordTrade(record(100, true))
	}
	assert.InDelta(t, 1.1, g.StreakMultiplier(), 1e-9)
}

func TestStreaks_PartialExitsDoNotCount(t *testing.T) {
	g := New(DefaultConfig(), 100000)

	g.RecordTrade(record(-100, false))
	g.RecordTrade(record(-100, false))
	assert.InDelta(t, 1.0, g.StreakMultiplier(), 1e-9)

	// Daily P&L still moves on partials.
	assert.InDelta(t, -200, g.DailyPnL(), 1e-9)
}

func TestMarketCrashBreaker(t *testing.T) {
	g := New(DefaultConfig(), 100000)
	now := time.Now()

	g.NoteBenchmarkMove(-0.015)
	assert.False(t, g.MarketCrashed())
	assert.NoError(t, g.CheckEntryAllowed(now))

	g.NoteBenchmarkMove(-0.025)
	assert.True(t, g.MarketCrashed())
	err := g.CheckEntryAllowed(now)
	require.Error(t, err)
	reason, _ := engineerr.ReasonOf(err)
	assert.Equal(t, engineerr.RejectMarketCrash, reason)

	g.ResetSession(now, 100000)
	assert.False(t, g.MarketCrashed())
}

func TestPortfolioHeat_Bands(t *testing.T) {
	g := New(DefaultConfig(), 100000)

	positions := []position.Position{
		{Symbol: "AAPL", EntryPrice: 100, StopLoss: 95, CurrentShares: 200}, // risk 1000
		{Symbol: "MSFT", EntryPrice: 50, StopLoss: 45, CurrentShares: 400},  // risk 2000
	}

	heat, band := g.PortfolioHeat(positions, 100000)
	assert.InDelta(t, 3.0, heat, 1e-9)
	assert.Equal(t, HeatSafe, band)

	heat, band = g.PortfolioHeat(positions, 60000)
	assert.InDelta(t, 5.0, heat, 1e-9)
	assert.Equal(t, HeatCaution, band)

	heat, band = g.PortfolioHeat(positions, 40000)
	assert.InDelta(t, 7.5, heat, 1e-9)
	assert.Equal(t, HeatDanger, band)
}

func TestExportRestore_RoundTrip(t *testing.T) {
	g := New(DefaultConfig(), 100000)
	now := time.Now()

	g.RecordTrade(record(-500, true))
	g.RecordTrade(record(-300, true))
	g.UpdateCapital(95000, now)
	g.NoteBenchmarkMove(-0.03)

	restored := New(DefaultConfig(), 0)
	restored.Restore(g.Export())

	assert.InDelta(t, g.DailyPnL(), restored.DailyPnL(), 1e-9)
	assert.Equal(t, g.MarketCrashed(), restored.MarketCrashed())
	wins, losses := restored.Streaks()
	assert.Equal(t, 0, wins)
	assert.Equal(t, 2, losses)
	assert.InDelta(t, g.StreakMultiplier(), restored.StreakMultiplier(), 1e-9)
}
