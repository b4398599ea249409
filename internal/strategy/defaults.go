package strategy

// Built-in strategy names used across the engine and the regime router.
const (
	NameMomentum      = "MOMENTUM"
	NameMeanReversion = "MEAN_REVERSION"
	NameBreakout      = "BREAKOUT"
	NamePositional    = "POSITIONAL"
)

// Momentum is a short-horizon trend follower: tight ATR stop, quick targets,
// aggressive trailing once the move confirms.
func Momentum() *Strategy {
	return &Strategy{
		Name:            NameMomentum,
		Horizon:         HorizonShort,
		StopLossPct:     0.07,
		ATRStopMultiple: 2.0,
		MinStopPct:      0.03,
		MaxStopPct:      0.10,
		Targets: [3]TargetLevel{
			{Pct: 5, ExitFraction: 0.30},
			{Pct: 10, ExitFraction: 0.40},
			{Pct: 15, ExitFraction: 0.30},
		},
		TimeStopDays:  10,
		FlatProfitPct: 2.0,
		MaxHoldDays:   15,
		MaxPositions:  4,
		Trailing: TrailingRule{
			BreakevenAtPct: 2.0,
			TrailAtPct:     5.0,
			DistancePct:    0.025,
		},
	}
}

// MeanReversion buys oversold quality with a tight stop and modest targets.
func MeanReversion() *Strategy {
	return &Strategy{
		Name:            NameMeanReversion,
		Horizon:         HorizonShort,
		StopLossPct:     0.05,
		ATRStopMultiple: 1.5,
		MinStopPct:      0.02,
		MaxStopPct:      0.06,
		Targets: [3]TargetLevel{
			{Pct: 3, ExitFraction: 0.30},
			{Pct: 8, ExitFraction: 0.40},
			{Pct: 12, ExitFraction: 0.30},
		},
		TimeStopDays:  5,
		FlatProfitPct: 1.0,
		MaxHoldDays:   10,
		MaxPositions:  5,
		Trailing: TrailingRule{
			BreakevenAtPct: 3.0,
			TrailAtPct:     6.0,
			DistancePct:    0.02,
		},
	}
}

// Breakout rides range expansions; breakouts can run far, so the trail is
// looser than momentum's.
func Breakout() *Strategy {
	return &Strategy{
		Name:            NameBreakout,
		Horizon:         HorizonShort,
		StopLossPct:     0.06,
		ATRStopMultiple: 2.0,
		MinStopPct:      0.03,
		MaxStopPct:      0.08,
		Targets: [3]TargetLevel{
			{Pct: 8, ExitFraction: 0.30},
			{Pct: 15, ExitFraction: 0.40},
			{Pct: 25, ExitFraction: 0.30},
		},
		TimeStopDays:  8,
		FlatProfitPct: 2.0,
		MaxHoldDays:   20,
		MaxPositions:  3,
		Trailing: TrailingRule{
			BreakevenAtPct: 3.0,
			TrailAtPct:     5.0,
			DistancePct:    0.03,
		},
	}
}

// Positional holds for weeks to months. Time-based exits are suppressed while
// at an unrealized loss unless the no-recovery callback confirms; that
// callback is the only discretionary override the engine honors.
func Positional() *Strategy {
	return &Strategy{
		Name:            NamePositional,
		Horizon:         HorizonLong,
		StopLossPct:     0.10,
		ATRStopMultiple: 2.5,
		MinStopPct:      0.05,
		MaxStopPct:      0.12,
		Targets: [3]TargetLevel{
			{Pct: 12, ExitFraction: 0.30},
			{Pct: 20, ExitFraction: 0.40},
			{Pct: 30, ExitFraction: 0.30},
		},
		MinHoldDays:  20,
		MaxHoldDays:  90,
		MaxPositions: 3,
		Trailing: TrailingRule{
			BreakevenAtPct: 5.0,
			TrailAtPct:     8.0,
			DistancePct:    0.03,
		},
	}
}

// Registry holds the configured strategies keyed by name.
type Registry struct {
	strategies map[string]*Strategy
}

// NewRegistry builds a registry from the given strategies, validating each.
func NewRegistry(strategies ...*Strategy) (*Registry, error) {
	r := &Registry{strategies: make(map[string]*Strategy, len(strategies))}
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		r.strategies[s.Name] = s
	}
	return r, nil
}

// DefaultRegistry returns the four built-in strategies.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Momentum(), MeanReversion(), Breakout(), Positional())
	if err != nil {
		panic(err) // built-ins are statically valid
	}
	return r
}

// Get returns the strategy with the given name.
func (r *Registry) Get(name string) (*Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns all registered strategy names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}
