package strategy

import (
	"tradebench/internal/domain"
	"tradebench/internal/indicator"
)

// Indicator periods and thresholds shared by the builtin rules.
const (
	smaPeriod = 20
	emaShort  = 20
	emaLong   = 50
	rsiPeriod = 14

	meanRevThresholdPct = 2.0
	rsiOversold         = 30.0
	rsiOverbought       = 70.0

	// Entries and exits trigger within 30% of a grid step from the bound.
	gridBandFraction = 0.3
)

// Compile-time interface checks.
var (
	_ Rule = (*Grid)(nil)
	_ Rule = MeanReversion{}
	_ Rule = TrendFollowing{}
	_ Rule = Scalper{}
	_ Rule = NoOp{}
)

// Grid buys near the lower bound of a price band and sells near the upper
// bound. When no explicit bounds are configured, they are derived per step
// from the previous candle: low*0.95 and high*1.05.
type Grid struct {
	GridCount  int
	LowerPrice float64
	UpperPrice float64
}

func (g *Grid) Type() Type { return TypeGrid }

func (g *Grid) Decide(i int, candles []domain.Candle, closes []float64, long bool) Action {
	prev := candles[i-1]
	lower, upper := g.LowerPrice, g.UpperPrice
	if lower <= 0 {
		lower = prev.Low * 0.95
	}
	if upper <= 0 {
		upper = prev.High * 1.05
	}
	step := (upper - lower) / float64(g.GridCount)
	price := candles[i].Close

	if !long && price <= lower+step*gridBandFraction {
		return Buy
	}
	if long && price >= upper-step*gridBandFraction {
		return Sell
	}
	return Hold
}

// EntryFraction commits balance/(gridCount/2) of cash per entry.
func (g *Grid) EntryFraction() float64 { return 2.0 / float64(g.GridCount) }

// MeanReversion buys when the close deviates more than 2% below the trailing
// 20-candle SMA and sells when it deviates more than 2% above.
type MeanReversion struct{}

func (MeanReversion) Type() Type { return TypeMeanReversion }

func (MeanReversion) Decide(i int, candles []domain.Candle, closes []float64, long bool) Action {
	sma := indicator.SMA(closes[:i], smaPeriod)
	if sma == 0 {
		return Hold
	}
	deviation := (candles[i].Close - sma) / sma * 100

	if !long && deviation < -meanRevThresholdPct {
		return Buy
	}
	if long && deviation > meanRevThresholdPct {
		return Sell
	}
	return Hold
}

func (MeanReversion) EntryFraction() float64 { return 0.5 }

// TrendFollowing buys on a golden cross (EMA20 above EMA50) and sells on a
// death cross. The flat/long gate makes the comparison behave as a crossing
// signal: once long, only a reversal of the relation triggers again.
type TrendFollowing struct{}

func (TrendFollowing) Type() Type { return TypeTrendFollowing }

func (TrendFollowing) Decide(i int, candles []domain.Candle, closes []float64, long bool) Action {
	fast := indicator.EMA(closes[:i], emaShort)
	slow := indicator.EMA(closes[:i], emaLong)

	if !long && fast > slow {
		return Buy
	}
	if long && fast < slow {
		return Sell
	}
	return Hold
}

func (TrendFollowing) EntryFraction() float64 { return 0.6 }

// Scalper buys when the 14-candle RSI drops below 30 and sells when it rises
// above 70.
type Scalper struct{}

func (Scalper) Type() Type { return TypeScalper }

func (Scalper) Decide(i int, candles []domain.Candle, closes []float64, long bool) Action {
	rsi := indicator.RSI(closes[:i], rsiPeriod)

	if !long && rsi < rsiOversold {
		return Buy
	}
	if long && rsi > rsiOverbought {
		return Sell
	}
	return Hold
}

func (Scalper) EntryFraction() float64 { return 0.3 }

// NoOp never trades. It backs TypeNone and any unregistered type.
type NoOp struct{}

func (NoOp) Type() Type { return TypeNone }

func (NoOp) Decide(int, []domain.Candle, []float64, bool) Action { return Hold }

func (NoOp) EntryFraction() float64 { return 0 }
