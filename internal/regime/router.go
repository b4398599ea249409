package regime

import (
	"math"
	"sort"

	"github.com/sukesh19o224-cpu/Tradingbot-sub001/internal/strategy"
)

// Router maps a detected regime to the strategies allowed to open positions
// under it, and splits capital among them. Regime changes never force-close
// open positions; a position opened under one regime keeps its entry
// strategy's exit rules for its whole life.
type Router struct {
	eligibility map[Regime][]string
	baseWeights map[string]float64
}

// NewRouter creates a router with the production regime-to-strategy table.
func NewRouter() *Router {
	return &Router{
		eligibility: map[Regime][]string{
			RegimeStrongBull:    {strategy.NameMomentum, strategy.NameBreakout, strategy.NamePositional},
			RegimeTrendingUp:    {strategy.NameMomentum, strategy.NameBreakout, strategy.NamePositional},
			RegimeChoppy:        {strategy.NameMeanReversion},
			RegimeRanging:       {strategy.NameMeanReversion, strategy.NameBreakout},
			RegimeConsolidation: {strategy.NameBreakout, strategy.NameMeanReversion},
			RegimeWeak:          {strategy.NameMeanReversion},
			RegimeTrendingDown:  {strategy.NameMeanReversion},
			RegimeNeutral:       {strategy.NameMeanReversion},
		},
		baseWeights: map[string]float64{
			strategy.NameMeanReversion: 0.70,
			strategy.NameMomentum:      0.20,
			strategy.NameBreakout:      0.10,
			strategy.NamePositional:    0.15,
		},
	}
}

// ActiveStrategies returns the strategies eligible to open positions under
// the given regime, in preference order.
func (r *Router) ActiveStrategies(regime Regime) []string {
	names, ok := r.eligibility[regime]
	if !ok {
		return []string{strategy.NameMeanReversion}
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// IsActive reports whether a strategy may open positions under the regime.
func (r *Router) IsActive(regime Regime, strategyName string) bool {
	for _, name := range r.ActiveStrategies(regime) {
		if name == strategyName {
			return true
		}
	}
	return false
}

// Split divides total capital among the active strategies by renormalizing
// their base weights over the eligible set. The shares always sum exactly to
// total: the largest share absorbs the rounding remainder. A single active
// strategy receives everything.
func (r *Router) Split(regime Regime, total float64) map[string]float64 {
	active := r.ActiveStrategies(regime)
	split := make(map[string]float64, len(active))

	if len(active) == 1 {
		split[active[0]] = total
		return split
	}

	weightSum := 0.0
	for _, name := range active {
		weightSum += r.baseWeights[name]
	}
	if weightSum <= 0 {
		// Degenerate table entry: split evenly.
		for _, name := range active {
			split[name] = total / float64(len(active))
		}
		return split
	}

	allocated := 0.0
	largest := active[0]
	for _, name := range active {
		share := total * r.baseWeights[name] / weightSum
		split[name] = share
		allocated += share
		if r.baseWeights[name] > r.baseWeights[largest] {
			largest = name
		}
	}

	// Float summation can leave a sliver unassigned; fold it into the
	// largest allocation so the split accounts for every unit of capital.
	if remainder := total - allocated; math.Abs(remainder) > 0 {
		split[largest] += remainder
	}

	return split
}

// Weights returns the renormalized weight of each active strategy under the
// regime, sorted by strategy name for stable iteration.
func (r *Router) Weights(regime Regime) []StrategyWeight {
	split := r.Split(regime, 1.0)
	out := make([]StrategyWeight, 0, len(split))
	for name, weight := range split {
		out = append(out, StrategyWeight{Strategy: name, Weight: weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out
}

// StrategyWeight pairs a strategy with its capital weight under a regime.
type StrategyWeight struct {
	Strategy string  `json:"strategy"`
	Weight   float64 `json:"weight"`
}
