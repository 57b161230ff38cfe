package market

import (
	"context"
	"log/slog"

	"tradebench/internal/domain"
	"tradebench/internal/store"
)

// Source is any provider of candle series. BinanceSource implements it; so
// does CachedSource, which lets callers stack a cache in front of the
// exchange without knowing the difference.
type Source interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
}

// CachedSource wraps an upstream source with a write-through candle cache.
// Fresh fetches are persisted best-effort; if the upstream is unreachable the
// cache serves whatever it has, which keeps backtests usable offline.
type CachedSource struct {
	upstream Source
	cache    store.CandleStore
	log      *slog.Logger
}

var _ Source = (*CachedSource)(nil)
var _ Source = (*BinanceSource)(nil)

func NewCachedSource(upstream Source, cache store.CandleStore, log *slog.Logger) *CachedSource {
	return &CachedSource{upstream: upstream, cache: cache, log: log}
}

// Candles fetches from the upstream and writes the series through to the
// cache. On upstream failure it falls back to cached data, returning the
// upstream error only when the cache is empty too.
func (s *CachedSource) Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	candles, err := s.upstream.Candles(ctx, symbol, interval, limit)
	if err == nil {
		if werr := s.cache.WriteCandles(ctx, symbol, interval, candles); werr != nil {
			s.log.Warn("caching candles failed", "symbol", symbol, "interval", interval, "error", werr)
		}
		return candles, nil
	}

	cached, cerr := s.cache.ReadCandles(ctx, symbol, interval, limit)
	if cerr != nil || len(cached) == 0 {
		return nil, err
	}

	s.log.Warn("serving candles from cache", "symbol", symbol, "interval", interval,
		"count", len(cached), "upstreamError", err)
	return cached, nil
}
