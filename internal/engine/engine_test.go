package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/allocator"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/engineerr"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/exitengine"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/position"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/regime"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/risk"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/strategy"
	"github.com/sukesh19o224-cpu/Tradingbot-sub001/pkg/types"
)

// fakeMarket serves canned prices and a fixed benchmark series.
type fakeMarket struct {
	prices        map[string]float64
	history       []types.OHLCV
	sessionChange float64
}

func (f *fakeMarket) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, ok := f.prices[symbol]
	if !ok {
		return 0, engineerr.NewMarketDataError("fake", "price", "no price for "+symbol, nil)
	}
	return price, nil
}

func (f *fakeMarket) GetDailyHistory(ctx context.Context, symbol string, limit int) ([]types.OHLCV, error) {
	return f.history, nil
}

func (f *fakeMarket) GetSessionChange(ctx context.Context, symbol string) (float64, error) {
	return f.sessionChange, nil
}

// eventRecorder captures everything the engine emits during a cycle.
type eventRecorder struct {
	executions []ExecutionResult
	exits      []ExitEvent
	guardrails []GuardrailEvent
}

func (r *eventRecorder) OnExecution(result ExecutionResult) { r.executions = append(r.executions, result) }
func (r *eventRecorder) OnExit(event ExitEvent)             { r.exits = append(r.exits, event) }
func (r *eventRecorder) OnGuardrail(event GuardrailEvent)   { r.guardrails = append(r.guardrails, event) }

// benchmarkSeries builds a daily benchmark compounding at dailyGrowth per bar.
func benchmarkSeries(bars int, dailyGrowth float64) []types.OHLCV {
	data := make([]types.OHLCV, bars)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < bars; i++ {
		data[i] = types.OHLCV{
			Open:      price * 0.998,
			High:      price * 1.005,
			Low:       price * 0.995,
			Close:     price,
			Volume:    1000000,
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
		}
		price *= 1 + dailyGrowth
	}
	return data
}

// newTestEngine wires an engine over fakes. The benchmark series trends down
// so the first cycle routes to MEAN_REVERSION.
func newTestEngine(t *testing.T, market *fakeMarket) (*Engine, *position.Store, *eventRecorder) {
	t.Helper()

	store := position.NewStore(100000)
	strategies := strategy.DefaultRegistry()
	guardrails := risk.New(risk.DefaultConfig(), 100000)

	eng, err := New(Config{OpportunityBuffer: 16}, Deps{
		Store:      store,
		Allocator:  allocator.New(allocator.DefaultConfig()),
		Guardrails: guardrails,
		Exits:      exitengine.New(store, strategies, nil),
		Detector:   regime.NewDetector(regime.DefaultDetectorConfig()),
		Router:     regime.NewRouter(),
		Strategies: strategies,
		Market:     market,
	})
	require.NoError(t, err)

	recorder := &eventRecorder{}
	eng.AddObserver(recorder)
	return eng, store, recorder
}

func opportunity(symbol string, score float64) types.Opportunity {
	return types.Opportunity{
		Symbol:     symbol,
		Strategy:   strategy.NameMeanReversion,
		Score:      score,
		EntryPrice: 100,
		ATR:        2,
		Timestamp:  time.Now(),
	}
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestRunCycle_AcceptsEntry(t *testing.T) {
	market := &fakeMarket{
		prices:  map[string]float64{"AAPL": 100},
		history: benchmarkSeries(60, -0.02),
	}
	eng, store, recorder := newTestEngine(t, market)

	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 80)))
	eng.RunCycle(context.Background(), time.Now())

	require.Len(t, recorder.executions, 1)
	assert.Equal(t, ExecutionAccepted, recorder.executions[0].Status)
	assert.Greater(t, recorder.executions[0].Shares, 0)
	assert.True(t, store.IsOpen("AAPL"))
}

func TestRunCycle_ArbitrationOrder(t *testing.T) {
	market := &fakeMarket{
		prices:  map[string]float64{"AAPL": 100, "MSFT": 100, "NVDA": 100},
		history: benchmarkSeries(60, -0.02),
	}
	eng, _, recorder := newTestEngine(t, market)

	// Submitted out of order; arbitration is score descending with the
	// symbol as the tie-break.
	require.NoError(t, eng.SubmitOpportunity(opportunity("NVDA", 80)))
	require.NoError(t, eng.SubmitOpportunity(opportunity("MSFT", 90)))
	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 80)))
	eng.RunCycle(context.Background(), time.Now())

	require.Len(t, recorder.executions, 3)
	assert.Equal(t, "MSFT", recorder.executions[0].Opportunity.Symbol)
	assert.Equal(t, "AAPL", recorder.executions[1].Opportunity.Symbol)
	assert.Equal(t, "NVDA", recorder.executions[2].Opportunity.Symbol)
}

func TestRunCycle_DuplicateSymbolRejected(t *testing.T) {
	market := &fakeMarket{
		prices:  map[string]float64{"AAPL": 100},
		history: benchmarkSeries(60, -0.02),
	}
	eng, store, recorder := newTestEngine(t, market)

	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 90)))
	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 70)))
	eng.RunCycle(context.Background(), time.Now())

	require.Len(t, recorder.executions, 2)
	assert.Equal(t, ExecutionAccepted, recorder.executions[0].Status)
	assert.Equal(t, ExecutionRejected, recorder.executions[1].Status)
	assert.Equal(t, string(engineerr.RejectDuplicateSymbol), recorder.executions[1].Reason)
	assert.Equal(t, 1, store.OpenCount())
}

func TestRunCycle_InactiveStrategyRejected(t *testing.T) {
	market := &fakeMarket{
		prices:  map[string]float64{"AAPL": 100},
		history: benchmarkSeries(60, -0.02), // routes to mean reversion only
	}
	eng, store, recorder := newTestEngine(t, market)

	opp := opportunity("AAPL", 80)
	opp.Strategy = strategy.NameMomentum
	require.NoError(t, eng.SubmitOpportunity(opp))
	eng.RunCycle(context.Background(), time.Now())

	require.Len(t, recorder.executions, 1)
	assert.Equal(t, ExecutionRejected, recorder.executions[0].Status)
	assert.Equal(t, string(engineerr.RejectStrategyInactive), recorder.executions[0].Reason)
	assert.Equal(t, 0, store.OpenCount())
}

func TestRunCycle_ExitsCommitBeforeEntries(t *testing.T) {
	market := &fakeMarket{
		prices:  map[string]float64{"AAPL": 90}, // through the stop
		history: benchmarkSeries(60, -0.02),
	}
	eng, store, recorder := newTestEngine(t, market)

	require.NoError(t, store.Open(position.Position{
		Symbol:        "AAPL",
		Strategy:      strategy.NameMeanReversion,
		EntryPrice:    100,
		InitialShares: 100,
		CurrentShares: 100,
		StopLoss:      95,
		Targets: [3]position.Target{
			{Price: 103, ExitFraction: 0.30},
			{Price: 108, ExitFraction: 0.40},
			{Price: 112, ExitFraction: 0.30},
		},
		HighestPrice: 100,
		EntryTime:    time.Now(),
	}))

	// The same symbol is resubmitted this cycle; it can only be accepted if
	// the stop-out committed first.
	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 80)))
	eng.RunCycle(context.Background(), time.Now())

	require.Len(t, recorder.exits, 1)
	assert.Equal(t, position.ReasonStopLoss, recorder.exits[0].Record.Reason)
	assert.Equal(t, 0, recorder.exits[0].RemainingShares)

	require.Len(t, recorder.executions, 1)
	assert.Equal(t, ExecutionAccepted, recorder.executions[0].Status)
	assert.True(t, store.IsOpen("AAPL"))
}

func TestRunCycle_CrashBreakerBlocksEntries(t *testing.T) {
	market := &fakeMarket{
		prices:        map[string]float64{"AAPL": 100},
		history:       benchmarkSeries(60, -0.02),
		sessionChange: -0.025,
	}
	eng, store, recorder := newTestEngine(t, market)

	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 80)))
	eng.RunCycle(context.Background(), time.Now())

	require.Len(t, recorder.guardrails, 1)
	assert.Equal(t, string(engineerr.RejectMarketCrash), recorder.guardrails[0].Reason)

	require.Len(t, recorder.executions, 1)
	assert.Equal(t, ExecutionRejected, recorder.executions[0].Status)
	assert.Equal(t, string(engineerr.RejectMarketCrash), recorder.executions[0].Reason)
	assert.Equal(t, 0, store.OpenCount())

	// The breaker trip is reported once, not every cycle.
	eng.RunCycle(context.Background(), time.Now())
	assert.Len(t, recorder.guardrails, 1)
}

func TestRunCycle_SessionRollover(t *testing.T) {
	market := &fakeMarket{
		prices:  map[string]float64{"AAPL": 100},
		history: benchmarkSeries(60, -0.02),
	}

	store := position.NewStore(100000)
	strategies := strategy.DefaultRegistry()
	guardrails := risk.New(risk.DefaultConfig(), 100000)

	eng, err := New(Config{OpportunityBuffer: 16}, Deps{
		Store:      store,
		Allocator:  allocator.New(allocator.DefaultConfig()),
		Guardrails: guardrails,
		Exits:      exitengine.New(store, strategies, nil),
		Detector:   regime.NewDetector(regime.DefaultDetectorConfig()),
		Router:     regime.NewRouter(),
		Strategies: strategies,
		Market:     market,
	})
	require.NoError(t, err)
	recorder := &eventRecorder{}
	eng.AddObserver(recorder)

	// A bad day trips the kill switch: entries stay blocked for this session.
	guardrails.RecordTrade(position.TradeRecord{Symbol: "MSFT", Strategy: strategy.NameMeanReversion, PnL: -4000, Final: true})
	now := time.Now()

	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 80)))
	eng.RunCycle(context.Background(), now)

	require.Len(t, recorder.executions, 1)
	assert.Equal(t, ExecutionRejected, recorder.executions[0].Status)
	assert.Equal(t, string(engineerr.RejectDailyLossLimit), recorder.executions[0].Reason)

	// The first cycle of the next day resets the session and lets entries
	// through again.
	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 80)))
	eng.RunCycle(context.Background(), now.Add(24*time.Hour))

	require.Len(t, recorder.executions, 2)
	assert.Equal(t, ExecutionAccepted, recorder.executions[1].Status)
	assert.InDelta(t, 0, guardrails.DailyPnL(), 1e-9)
	assert.True(t, store.IsOpen("AAPL"))
}

func TestSubmitOpportunity_FullQueueRejects(t *testing.T) {
	market := &fakeMarket{history: benchmarkSeries(60, -0.02)}
	store := position.NewStore(100000)
	strategies := strategy.DefaultRegistry()

	eng, err := New(Config{OpportunityBuffer: 1}, Deps{
		Store:      store,
		Allocator:  allocator.New(allocator.DefaultConfig()),
		Guardrails: risk.New(risk.DefaultConfig(), 100000),
		Exits:      exitengine.New(store, strategies, nil),
		Detector:   regime.NewDetector(regime.DefaultDetectorConfig()),
		Router:     regime.NewRouter(),
		Strategies: strategies,
		Market:     market,
	})
	require.NoError(t, err)

	require.NoError(t, eng.SubmitOpportunity(opportunity("AAPL", 80)))
	err = eng.SubmitOpportunity(opportunity("MSFT", 80))
	require.Error(t, err)
	reason, _ := engineerr.ReasonOf(err)
	assert.Equal(t, engineerr.RejectInvalidOpportunity, reason)
}

func TestRestoreState_NilStartsClean(t *testing.T) {
	market := &fakeMarket{history: benchmarkSeries(60, -0.02)}
	eng, store, _ := newTestEngine(t, market)

	require.NoError(t, eng.RestoreState(nil))
	assert.Equal(t, 0, store.OpenCount())
}
