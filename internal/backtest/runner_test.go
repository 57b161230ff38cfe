package backtest

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"tradebench/internal/domain"
	"tradebench/internal/strategy"
)

// stubSource is an in-memory CandleSource recording the last request.
type stubSource struct {
	candles   []domain.Candle
	err       error
	gotSymbol string
	gotTF     string
	gotLimit  int
	callCount int
}

func (s *stubSource) Candles(_ context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	s.gotSymbol = symbol
	s.gotTF = interval
	s.gotLimit = limit
	s.callCount++
	return s.candles, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testRequest() Request {
	return Request{
		Config: Config{
			Strategy:          strategy.TypeGrid,
			Investment:        1000,
			GridCount:         10,
			LowerPrice:        90,
			UpperPrice:        110,
			StopLossPercent:   5,
			TakeProfitPercent: 10,
			Days:              7,
		},
		Pair:      "btc/usdt",
		Timeframe: "1h",
	}
}

func TestRunnerNormalizesPair(t *testing.T) {
	src := &stubSource{candles: mkCandles(100, 90, 95, 110)}
	r := NewRunner(src, strategy.DefaultRegistry(), discardLogger())

	res, err := r.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.gotSymbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", src.gotSymbol)
	}
	if src.gotTF != "1h" {
		t.Errorf("timeframe = %q, want 1h", src.gotTF)
	}
	// 7 days of hourly candles.
	if src.gotLimit != 168 {
		t.Errorf("limit = %d, want 168", src.gotLimit)
	}
	if res.DataPoints != 4 {
		t.Errorf("DataPoints = %d, want 4", res.DataPoints)
	}
}

func TestRunnerNoData(t *testing.T) {
	src := &stubSource{}
	r := NewRunner(src, strategy.DefaultRegistry(), discardLogger())

	_, err := r.Run(context.Background(), testRequest())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("error = %v, want ErrNoData", err)
	}
}

func TestRunnerSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("exchange unreachable")}
	r := NewRunner(src, strategy.DefaultRegistry(), discardLogger())

	_, err := r.Run(context.Background(), testRequest())
	if err == nil || !errors.Is(err, src.err) {
		t.Fatalf("error = %v, want wrapped source error", err)
	}
}

func TestRunnerRejectsBadConfigBeforeFetch(t *testing.T) {
	src := &stubSource{candles: mkCandles(100, 101)}
	r := NewRunner(src, strategy.DefaultRegistry(), discardLogger())

	req := testRequest()
	req.Investment = -1
	_, err := r.Run(context.Background(), req)
	if !errors.Is(err, ErrBadConfig) {
		t.Fatalf("error = %v, want ErrBadConfig", err)
	}
	if src.callCount != 0 {
		t.Errorf("source was called %d times for a degenerate config", src.callCount)
	}
}

func TestNormalizePair(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT": "BTCUSDT",
		"eth/usdt": "ETHUSDT",
		"SOLUSDT":  "SOLUSDT",
	}
	for in, want := range cases {
		if got := NormalizePair(in); got != want {
			t.Errorf("NormalizePair(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCandleLimit(t *testing.T) {
	cases := []struct {
		timeframe string
		days      float64
		want      int
	}{
		{"1h", 7, 168},
		{"1d", 30, 30},
		{"5m", 1, 288},
		{"1m", 30, MaxCandles}, // capped
		{"1h", 0.01, 2},        // floor
		{"bogus", 10, 240},     // unknown timeframe falls back to 1h
	}
	for _, tc := range cases {
		if got := CandleLimit(tc.timeframe, tc.days); got != tc.want {
			t.Errorf("CandleLimit(%q, %v) = %d, want %d", tc.timeframe, tc.days, got, tc.want)
		}
	}
}
