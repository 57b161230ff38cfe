// Package strategy defines the decision rules a backtest replays candles
// through, and a Registry mapping strategy types to rule constructors.
package strategy

import (
	"sort"
	"strings"

	"tradebench/internal/domain"
)

// Type identifies one of the builtin strategy behaviours.
type Type string

const (
	TypeGrid           Type = "grid"
	TypeMeanReversion  Type = "mean-reversion"
	TypeTrendFollowing Type = "trend-following"
	TypeScalper        Type = "scalper"

	// TypeNone is the documented no-op variant: it never opens a position.
	// Unrecognised labels resolve to it rather than failing.
	TypeNone Type = "none"
)

// ParseType resolves a free-text strategy label ("Grid Trading Bot",
// "Mean Reverter", ...) to a Type. Matching is case-insensitive on keyword
// substrings and total: anything unrecognised maps to TypeNone.
func ParseType(label string) Type {
	s := strings.ToLower(label)
	switch {
	case strings.Contains(s, "grid"):
		return TypeGrid
	case strings.Contains(s, "mean"), strings.Contains(s, "reversion"):
		return TypeMeanReversion
	case strings.Contains(s, "trend"):
		return TypeTrendFollowing
	case strings.Contains(s, "scalp"):
		return TypeScalper
	default:
		return TypeNone
	}
}

// Action is a rule's decision for one candle.
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

// String returns the lower-case action name.
func (a Action) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}

// Rule is one strategy's entry/exit decision logic. Implementations are pure:
// they read the candle series and the current position flag and return an
// Action, leaving all balance and ledger bookkeeping to the engine.
type Rule interface {
	// Type returns the strategy type this rule implements.
	Type() Type

	// Decide evaluates candle i. closes holds the closing price of every
	// candle in the series; rules only read closes[:i] and candles[:i+1],
	// so the first candle serves as lookback context only. long reports
	// whether a position is currently open.
	Decide(i int, candles []domain.Candle, closes []float64, long bool) Action

	// EntryFraction is the fraction of the cash balance committed when the
	// rule decides to Buy.
	EntryFraction() float64
}

// Params carries the per-run configuration a rule constructor may need.
// Fields irrelevant to a given strategy are ignored by its factory.
type Params struct {
	GridCount   int
	GridSpacing float64
	LowerPrice  float64
	UpperPrice  float64
}

// Factory builds a Rule for one run from the given parameters.
type Factory func(p Params) Rule

// Registry holds a named collection of rule factories for lookup and
// enumeration.
type Registry struct {
	factories map[Type]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Type]Factory),
	}
}

// Register adds a factory for the given strategy type.
func (r *Registry) Register(t Type, f Factory) {
	r.factories[t] = f
}

// New constructs a Rule for the given type. Types without a registered
// factory get the no-op rule, keeping dispatch total.
func (r *Registry) New(t Type, p Params) Rule {
	f, ok := r.factories[t]
	if !ok {
		return NoOp{}
	}
	return f(p)
}

// List returns the sorted registered strategy types.
func (r *Registry) List() []Type {
	types := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DefaultRegistry returns a Registry with the four builtin strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeGrid, func(p Params) Rule {
		return &Grid{GridCount: p.GridCount, LowerPrice: p.LowerPrice, UpperPrice: p.UpperPrice}
	})
	r.Register(TypeMeanReversion, func(Params) Rule { return MeanReversion{} })
	r.Register(TypeTrendFollowing, func(Params) Rule { return TrendFollowing{} })
	r.Register(TypeScalper, func(Params) Rule { return Scalper{} })
	return r
}
