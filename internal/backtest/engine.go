// Package backtest implements the simulation engine at the heart of
// tradebench: it replays historical candles through a strategy rule,
// maintains one simulated position and cash balance, applies fees and
// stop-loss/take-profit exits, and assembles summary statistics.
package backtest

import (
	"errors"
	"fmt"

	"tradebench/internal/domain"
	"tradebench/internal/strategy"
)

// FeeRate is the flat fee applied to every transaction's cash value. Fees
// accumulate in a side ledger and are never deducted from the balance.
const FeeRate = 0.0004

// ErrNoData is returned when no candles are available for the requested
// window. Its text is surfaced verbatim to API clients.
var ErrNoData = errors.New("No historical data available")

// ErrBadConfig marks configuration values that would poison the arithmetic
// (zero grids, non-positive investment). Validation fails fast instead of
// letting NaN/Inf propagate into the result.
var ErrBadConfig = errors.New("degenerate backtest config")

// Config holds the parameters controlling one simulation run. It is
// constructed once by the caller and read-only during the run.
type Config struct {
	Strategy   strategy.Type `json:"strategy"`
	Investment float64       `json:"investment"`

	// Grid parameters. GridSpacing is carried for round-tripping bot
	// configs but does not participate in the simulation math.
	GridCount   int     `json:"gridCount,omitempty"`
	GridSpacing float64 `json:"gridSpacing,omitempty"`

	// Optional price bounds. When zero, bounds are derived per step from
	// the previous candle.
	UpperPrice float64 `json:"upperPrice,omitempty"`
	LowerPrice float64 `json:"lowerPrice,omitempty"`

	// Reserved entry/exit buffers; carried but not applied.
	BuyBuffer  float64 `json:"buyBuffer,omitempty"`
	SellBuffer float64 `json:"sellBuffer,omitempty"`

	StopLossPercent   float64 `json:"stopLossPercent"`
	TakeProfitPercent float64 `json:"takeProfitPercent"`

	// Days is the caller-specified backtest window length used for APR
	// scaling; it is not inferred from candle timestamps.
	Days float64 `json:"days"`
}

// Validate rejects configurations whose ratios would divide by zero or
// invert. All failures wrap ErrBadConfig.
func (c Config) Validate() error {
	if c.Investment <= 0 {
		return fmt.Errorf("%w: investment must be positive, got %v", ErrBadConfig, c.Investment)
	}
	if c.Days <= 0 {
		return fmt.Errorf("%w: days must be positive, got %v", ErrBadConfig, c.Days)
	}
	if c.StopLossPercent <= 0 {
		return fmt.Errorf("%w: stopLossPercent must be positive, got %v", ErrBadConfig, c.StopLossPercent)
	}
	if c.TakeProfitPercent <= 0 {
		return fmt.Errorf("%w: takeProfitPercent must be positive, got %v", ErrBadConfig, c.TakeProfitPercent)
	}
	if c.Strategy == strategy.TypeGrid && c.GridCount <= 0 {
		return fmt.Errorf("%w: gridCount must be positive, got %d", ErrBadConfig, c.GridCount)
	}
	if c.LowerPrice < 0 || c.UpperPrice < 0 {
		return fmt.Errorf("%w: price bounds must not be negative", ErrBadConfig)
	}
	if c.LowerPrice > 0 && c.UpperPrice > 0 && c.LowerPrice >= c.UpperPrice {
		return fmt.Errorf("%w: lowerPrice %v must be below upperPrice %v", ErrBadConfig, c.LowerPrice, c.UpperPrice)
	}
	return nil
}

// simState is the mutable, engine-owned state of one run. It exists only
// for the duration of a Run call.
type simState struct {
	balance     float64
	position    float64 // asset units held; zero or one open position at a time
	peakBalance float64
	maxDrawdown float64
	totalFees   float64
	trades      []domain.Trade
}

func (s *simState) buy(t int64, price, amount float64) {
	s.balance -= amount
	s.position += amount / price
	s.totalFees += amount * FeeRate
	s.trades = append(s.trades, domain.Trade{Time: t, Side: domain.SideBuy, Price: price, Amount: amount})
}

// sell closes the entire position; Amount records the asset quantity sold.
func (s *simState) sell(t int64, price float64) {
	proceeds := s.position * price
	s.balance += proceeds
	s.totalFees += proceeds * FeeRate
	s.trades = append(s.trades, domain.Trade{Time: t, Side: domain.SideSell, Price: price, Amount: s.position})
	s.position = 0
}

// Engine replays candle series through strategy rules looked up in a
// registry. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	registry *strategy.Registry
}

// NewEngine creates an Engine that builds rules from the given registry.
func NewEngine(registry *strategy.Registry) *Engine {
	return &Engine{registry: registry}
}

// Run executes one backtest with the default strategy registry.
func Run(cfg Config, candles []domain.Candle) (*Result, error) {
	return NewEngine(strategy.DefaultRegistry()).Run(cfg, candles)
}

// Run replays candles through the configured strategy. candles must be
// ascending in OpenTime; the first candle is lookback context and is never
// traded on. The run is a pure in-memory computation: deterministic for
// identical inputs, no I/O, no shared state across calls.
func (e *Engine) Run(cfg Config, candles []domain.Candle) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, ErrNoData
	}

	rule := e.registry.New(cfg.Strategy, strategy.Params{
		GridCount:   cfg.GridCount,
		GridSpacing: cfg.GridSpacing,
		LowerPrice:  cfg.LowerPrice,
		UpperPrice:  cfg.UpperPrice,
	})

	closes := make([]float64, len(candles))
	for i := range candles {
		closes[i] = candles[i].Close
	}

	st := &simState{
		balance:     cfg.Investment,
		peakBalance: cfg.Investment,
	}

	for i := 1; i < len(candles); i++ {
		// Drawdown bookkeeping runs on every candle before any trading.
		if st.balance > st.peakBalance {
			st.peakBalance = st.balance
		}
		drawdown := (st.peakBalance - st.balance) / st.peakBalance * 100
		if drawdown > st.maxDrawdown {
			st.maxDrawdown = drawdown
		}

		price := candles[i].Close
		switch rule.Decide(i, candles, closes, st.position > 0) {
		case strategy.Buy:
			if st.position == 0 {
				st.buy(candles[i].OpenTime, price, st.balance*rule.EntryFraction())
			}
		case strategy.Sell:
			if st.position > 0 {
				st.sell(candles[i].OpenTime, price)
			}
		}

		// Shared stop-loss/take-profit exit. The entry price is the price
		// of the most recent recorded trade; the check runs every candle
		// regardless of strategy, including the candle that opened the
		// position.
		if st.position > 0 && len(st.trades) > 0 {
			entry := st.trades[len(st.trades)-1].Price
			pnlPercent := (price - entry) / entry * 100
			if pnlPercent <= -cfg.StopLossPercent || pnlPercent >= cfg.TakeProfitPercent {
				st.sell(candles[i].OpenTime, price)
			}
		}
	}

	// Liquidate any open position at the end of the window.
	last := candles[len(candles)-1]
	if st.position > 0 {
		st.sell(last.OpenTime, last.Close)
	}

	return assembleResult(cfg, st, len(candles)), nil
}
