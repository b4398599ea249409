package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
)

func newTestPosition(symbol string, entry float64, shares int) Position {
	return Position{
		Symbol:        symbol,
		Strategy:      "MOMENTUM",
		EntryPrice:    entry,
		InitialShares: shares,
		CurrentShares: shares,
		StopLoss:      entry * 0.95,
		Targets: [3]Target{
			{Price: entry * 1.05, ExitFraction: 0.30},
			{Price: entry * 1.10, ExitFraction: 0.40},
			{Price: entry * 1.15, ExitFraction: 0.30},
		},
		HighestPrice: entry,
		EntryTime:    time.Now(),
	}
}

func assertBooksBalance(t *testing.T, store *Store) {
	t.Helper()
	assert.InDelta(t, store.TotalCapital(),
		store.AvailableCapital()+store.InvestedCapital(), 1e-6)
}

func TestStore_Open(t *testing.T) {
	store := NewStore(100000)

	err := store.Open(newTestPosition("AAPL", 100, 100))
	require.NoError(t, err)

	assert.True(t, store.IsOpen("AAPL"))
	assert.Equal(t, 1, store.OpenCount())
	assert.InDelta(t, 90000, store.AvailableCapital(), 1e-9)
	assert.InDelta(t, 10000, store.InvestedCapital(), 1e-9)
	assert.InDelta(t, 100000, store.TotalCapital(), 1e-9)
	assertBooksBalance(t, store)
}

func TestStore_Open_DuplicateSymbol(t *testing.T) {
	store := NewStore(100000)

	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))

	// Same symbol under a different strategy is still a duplicate.
	dup := newTestPosition("AAPL", 101, 50)
	dup.Strategy = "MEAN_REVERSION"
	err := store.Open(dup)
	require.Error(t, err)

	reason, ok := engineerr.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, engineerr.RejectDuplicateSymbol, reason)
	assert.Equal(t, 1, store.OpenCount())
}

func TestStore_Open_InsufficientCapital(t *testing.T) {
	store := NewStore(5000)

	err := store.Open(newTestPosition("AAPL", 100, 100)) // needs 10000
	require.Error(t, err)

	reason, ok := engineerr.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, engineerr.RejectInsufficientCapital, reason)
	assert.InDelta(t, 5000, store.AvailableCapital(), 1e-9)
}

func TestStore_Reduce_PartialExit(t *testing.T) {
	store := NewStore(100000)
	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))

	rec, err := store.Reduce("AAPL", 30, 105, ReasonTarget1, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 30, rec.Shares)
	assert.InDelta(t, 150, rec.PnL, 1e-9) // 30 * (105 - 100)
	assert.InDelta(t, 5.0, rec.PnLPct, 1e-9)
	assert.False(t, rec.Final)

	pos, ok := store.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 70, pos.CurrentShares)
	assert.InDelta(t, 100150, store.TotalCapital(), 1e-9)
	assertBooksBalance(t, store)
}

func TestStore_Close_DestroysPosition(t *testing.T) {
	store := NewStore(100000)
	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))

	rec, err := store.Close("AAPL", 95, ReasonStopLoss, time.Now())
	require.NoError(t, err)

	assert.True(t, rec.Final)
	assert.InDelta(t, -500, rec.PnL, 1e-9)
	assert.False(t, store.IsOpen("AAPL"))
	assert.InDelta(t, 99500, store.TotalCapital(), 1e-9)
	assertBooksBalance(t, store)
}

func TestStore_ExecuteTargetExit_FullLadder(t *testing.T) {
	store := NewStore(100000)
	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))
	now := time.Now()

	// Rung 1: 30% of the initial 100 shares at 105.
	rec, err := store.ExecuteTargetExit("AAPL", 0, now)
	require.NoError(t, err)
	assert.Equal(t, 30, rec.Shares)
	assert.Equal(t, ReasonTarget1, rec.Reason)
	assert.InDelta(t, 105, rec.ExitPrice, 1e-9)

	// Rung 2: fraction still derives from initial shares, not remaining.
	rec, err = store.ExecuteTargetExit("AAPL", 1, now)
	require.NoError(t, err)
	assert.Equal(t, 40, rec.Shares)
	assert.Equal(t, ReasonTarget2, rec.Reason)

	// Last rung always finishes the position.
	rec, err = store.ExecuteTargetExit("AAPL", 2, now)
	require.NoError(t, err)
	assert.Equal(t, 30, rec.Shares)
	assert.Equal(t, ReasonLadderComplete, rec.Reason)
	assert.True(t, rec.Final)
	assert.False(t, store.IsOpen("AAPL"))
	assertBooksBalance(t, store)
}

func TestStore_ExecuteTargetExit_ZeroSharePromotesToFull(t *testing.T) {
	store := NewStore(100000)
	pos := newTestPosition("AAPL", 100, 2) // floor(2 * 0.30) == 0
	require.NoError(t, store.Open(pos))

	rec, err := store.ExecuteTargetExit("AAPL", 0, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Shares)
	assert.Equal(t, ReasonLadderComplete, rec.Reason)
	assert.True(t, rec.Final)
	assert.False(t, store.IsOpen("AAPL"))
}

func TestStore_ExecuteTargetExit_AlreadyHit(t *testing.T) {
	store := NewStore(100000)
	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))

	_, err := store.ExecuteTargetExit("AAPL", 0, time.Now())
	require.NoError(t, err)

	_, err = store.ExecuteTargetExit("AAPL", 0, time.Now())
	assert.Error(t, err)
}

func TestStore_UpdateTrail_Monotonic(t *testing.T) {
	store := NewStore(100000)
	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))

	require.NoError(t, store.UpdateTrail("AAPL", 98, 106))
	pos, _ := store.Get("AAPL")
	assert.InDelta(t, 98, pos.StopLoss, 1e-9)
	assert.InDelta(t, 106, pos.HighestPrice, 1e-9)

	// A lower candidate never lowers the stop.
	require.NoError(t, store.UpdateTrail("AAPL", 90, 104))
	pos, _ = store.Get("AAPL")
	assert.InDelta(t, 98, pos.StopLoss, 1e-9)
	assert.InDelta(t, 106, pos.HighestPrice, 1e-9)
}

func TestStore_StatsTracking(t *testing.T) {
	store := NewStore(100000)
	now := time.Now()

	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))
	_, err := store.Close("AAPL", 110, ReasonTarget1, now)
	require.NoError(t, err)

	require.NoError(t, store.Open(newTestPosition("MSFT", 50, 100)))
	_, err = store.Close("MSFT", 45, ReasonStopLoss, now)
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, 2, stats.Trades)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.InDelta(t, 0.5, stats.WinRate(), 1e-9)
	assert.InDelta(t, 1000, stats.AvgWin(), 1e-9)
	assert.InDelta(t, 500, stats.AvgLoss(), 1e-9)

	best, ok := store.BestTrade()
	require.True(t, ok)
	assert.Equal(t, "AAPL", best.Symbol)
	worst, ok := store.WorstTrade()
	require.True(t, ok)
	assert.Equal(t, "MSFT", worst.Symbol)

	byStrategy := store.StrategyStats()
	assert.Equal(t, 2, byStrategy["MOMENTUM"].Trades)
}

func TestStore_ExportRestore_RoundTrip(t *testing.T) {
	store := NewStore(100000)
	now := time.Now()
	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))
	_, err := store.Reduce("AAPL", 30, 105, ReasonTarget1, now)
	require.NoError(t, err)

	snap := store.Export()
	assert.Equal(t, SnapshotVersion, snap.Version)

	restored := NewStore(0)
	require.NoError(t, restored.Restore(snap))

	assert.InDelta(t, store.TotalCapital(), restored.TotalCapital(), 1e-9)
	assert.InDelta(t, store.AvailableCapital(), restored.AvailableCapital(), 1e-9)
	assert.Equal(t, store.OpenCount(), restored.OpenCount())
	assert.Len(t, restored.History(), 1)

	pos, ok := restored.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 70, pos.CurrentShares)
	assertBooksBalance(t, restored)
}

func TestStore_Restore_RejectsBrokenInvariant(t *testing.T) {
	store := NewStore(100000)
	require.NoError(t, store.Open(newTestPosition("AAPL", 100, 100)))

	snap := store.Export()
	snap.AvailableCapital += 5000 // corrupt the books

	err := NewStore(0).Restore(snap)
	assert.Error(t, err)
}

func TestPosition_NextTarget(t *testing.T) {
	pos := newTestPosition("AAPL", 100, 100)
	assert.Equal(t, 0, pos.NextTarget())

	pos.Targets[0].Hit = true
	assert.Equal(t, 1, pos.NextTarget())

	pos.Targets[1].Hit = true
	pos.Targets[2].Hit = true
	assert.Equal(t, -1, pos.NextTarget())
}
