package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_BuiltinsAreValid(t *testing.T) {
	for _, s := range []*Strategy{Momentum(), MeanReversion(), Breakout(), Positional()} {
		assert.NoError(t, s.Validate(), s.Name)
	}
}

func TestValidate_Rejections(t *testing.T) {
	base := Momentum()

	s := *base
	s.Targets[1].ExitFraction = 0.50 // fractions now sum to 1.1
	assert.Error(t, s.Validate())

	s = *base
	s.Targets = [3]TargetLevel{
		{Pct: 10, ExitFraction: 0.30},
		{Pct: 5, ExitFraction: 0.40}, // not ascending
		{Pct: 15, ExitFraction: 0.30},
	}
	assert.Error(t, s.Validate())

	s = *base
	s.MinStopPct = 0.12 // above MaxStopPct
	assert.Error(t, s.Validate())

	s = *base
	s.MaxHoldDays = 0
	assert.Error(t, s.Validate())
}

func TestStopPrice_ATRWithBandClipping(t *testing.T) {
	s := Momentum() // 2x ATR, band [3%, 10%], fallback 7%

	// 2 * 2.5 / 100 = 5%, inside the band.
	assert.InDelta(t, 95, s.StopPrice(100, 2.5), 1e-9)

	// 2 * 7 / 100 = 14%, clips to the 10% ceiling.
	assert.InDelta(t, 90, s.StopPrice(100, 7), 1e-9)

	// 2 * 1 / 100 = 2%, clips to the 3% floor.
	assert.InDelta(t, 97, s.StopPrice(100, 1), 1e-9)

	// No ATR: the plain percent stop applies.
	assert.InDelta(t, 93, s.StopPrice(100, 0), 1e-9)
}

func TestTargetPrices(t *testing.T) {
	prices := Momentum().TargetPrices(100)
	assert.InDelta(t, 105, prices[0], 1e-9)
	assert.InDelta(t, 110, prices[1], 1e-9)
	assert.InDelta(t, 115, prices[2], 1e-9)
}

func TestTrailStop(t *testing.T) {
	s := Momentum() // breakeven at 2%, trail at 5%, distance 2.5%

	// Below the breakeven trigger: stop unchanged.
	assert.InDelta(t, 95, s.TrailStop(100, 101, 95, 0), 1e-9)

	// Past breakeven, below the trail trigger: stop moves to entry.
	assert.InDelta(t, 100, s.TrailStop(100, 103, 95, 0), 1e-9)

	// Past the trail trigger: 2.5% below the peak.
	assert.InDelta(t, 107*0.975, s.TrailStop(100, 107, 95, 0), 1e-9)

	// Never below the current stop.
	assert.InDelta(t, 106, s.TrailStop(100, 107, 106, 0), 1e-9)

	// A peak at or below entry changes nothing.
	assert.InDelta(t, 95, s.TrailStop(100, 99, 95, 0), 1e-9)
}

func TestTrailStop_ATRScaled(t *testing.T) {
	s := Momentum()
	s.Trailing.ATRScaled = true
	s.Trailing.ATRMultiple = 2.0

	// Peak 110 with ATR 2: trail sits 4 below the peak.
	assert.InDelta(t, 106, s.TrailStop(100, 110, 95, 2), 1e-9)

	// Without an ATR the percent distance is the fallback.
	assert.InDelta(t, 110*0.975, s.TrailStop(100, 110, 95, 0), 1e-9)
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()

	for _, name := range []string{NameMomentum, NameMeanReversion, NameBreakout, NamePositional} {
		s, ok := reg.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, name, s.Name)
	}

	_, ok := reg.Get("SCALPING")
	assert.False(t, ok)
	assert.Len(t, reg.Names(), 4)
}

func TestNewRegistry_RejectsInvalidStrategy(t *testing.T) {
	bad := Momentum()
	bad.Targets[0].ExitFraction = 0.99

	_, err := NewRegistry(bad)
	assert.Error(t, err)
}
