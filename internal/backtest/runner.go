package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tradebench/internal/domain"
	"tradebench/internal/strategy"
)

// MaxCandles bounds the window a single run replays.
const MaxCandles = 1000

// CandleSource supplies an ordered, finite candle series for a symbol and
// timeframe. Implementations live in internal/market.
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
}

// Request is the caller-facing backtest request: the simulation config plus
// the market window to replay.
type Request struct {
	Config
	Pair      string `json:"pair"`      // e.g. "BTC/USDT"
	Timeframe string `json:"timeframe"` // e.g. "1h"
}

// Runner resolves a Request against a candle source and hands the data to
// the engine. The engine itself never initiates I/O.
type Runner struct {
	source CandleSource
	engine *Engine
	log    *slog.Logger
}

// NewRunner creates a Runner reading candles from source and dispatching
// strategies from registry.
func NewRunner(source CandleSource, registry *strategy.Registry, log *slog.Logger) *Runner {
	return &Runner{
		source: source,
		engine: NewEngine(registry),
		log:    log,
	}
}

// Run fetches the candle window for the request and executes the backtest.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	symbol := NormalizePair(req.Pair)
	limit := CandleLimit(req.Timeframe, req.Days)

	start := time.Now()
	candles, err := r.source.Candles(ctx, symbol, req.Timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s %s: %w", symbol, req.Timeframe, err)
	}
	if len(candles) == 0 {
		return nil, ErrNoData
	}

	result, err := r.engine.Run(req.Config, candles)
	if err != nil {
		return nil, err
	}

	r.log.Info("backtest complete",
		"symbol", symbol,
		"timeframe", req.Timeframe,
		"strategy", req.Strategy,
		"candles", len(candles),
		"trades", result.Trades,
		"returnPct", result.TotalReturnPercent,
		"elapsed", time.Since(start))

	return result, nil
}

// NormalizePair strips the slash from a trading pair and upper-cases it,
// producing the exchange symbol: "btc/usdt" -> "BTCUSDT".
func NormalizePair(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

// timeframeMinutes maps the supported timeframe labels to bucket minutes.
var timeframeMinutes = map[string]int{
	"1m":  1,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"4h":  240,
	"1d":  1440,
}

// CandleLimit converts a window of days at a timeframe into a candle count,
// capped at MaxCandles. Unknown timeframes fall back to 1h buckets.
func CandleLimit(timeframe string, days float64) int {
	minutes, ok := timeframeMinutes[timeframe]
	if !ok {
		minutes = 60
	}
	limit := int(days * 1440 / float64(minutes))
	if limit < 2 {
		limit = 2
	}
	if limit > MaxCandles {
		limit = MaxCandles
	}
	return limit
}
