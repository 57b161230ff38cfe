// Package market supplies candle series from exchange APIs, with an optional
// local cache layered in front so repeated backtests over the same window do
// not hammer the exchange.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"tradebench/internal/domain"
	"tradebench/internal/util"
)

const (
	// Binance allows 1200 request weight per minute; klines are weight 1-2.
	// 10 req/s with a burst of 20 keeps us comfortably under the ceiling.
	requestsPerSecond = 10
	requestBurst      = 20

	fetchAttempts  = 3
	fetchBaseDelay = 200 * time.Millisecond
)

// BinanceSource fetches spot klines from the Binance REST API. Public market
// data endpoints work without credentials; keys are only needed if the same
// client is reused for account calls.
type BinanceSource struct {
	client  *binance.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewBinanceSource creates a rate-limited Binance candle source. apiKey and
// apiSecret may be empty for public market data.
func NewBinanceSource(apiKey, apiSecret string, log *slog.Logger) *BinanceSource {
	return &BinanceSource{
		client:  binance.NewClient(apiKey, apiSecret),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		log:     log,
	}
}

// Candles returns up to limit of the most recent klines for symbol at the
// given interval, in ascending open-time order.
func (s *BinanceSource) Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	var klines []*binance.Kline

	err := util.Retry(ctx, fetchAttempts, fetchBaseDelay, func() error {
		if werr := s.limiter.Wait(ctx); werr != nil {
			return werr
		}
		var derr error
		klines, derr = s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		c, cerr := candleFromKline(k)
		if cerr != nil {
			return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, cerr)
		}
		candles = append(candles, c)
	}

	s.log.Debug("fetched candles", "symbol", symbol, "interval", interval, "count", len(candles))
	return candles, nil
}

// candleFromKline converts one Binance kline, whose prices arrive as decimal
// strings, into a domain candle.
func candleFromKline(k *binance.Kline) (domain.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing open %q: %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing high %q: %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing low %q: %w", k.Low, err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing close %q: %w", k.Close, err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing volume %q: %w", k.Volume, err)
	}

	return domain.Candle{
		OpenTime: k.OpenTime,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
	}, nil
}
