package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"tradebench/internal/domain"
)

// Compile-time interface check.
var _ CandleStore = (*ParquetStore)(nil)

// ParquetStore implements CandleStore using one Parquet file per
// symbol/timeframe pair on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// CandleRecord is the Parquet schema for cached candle data.
type CandleRecord struct {
	OpenTime int64   `parquet:"open_time,timestamp(millisecond)"` // Unix ms
	Open     float64 `parquet:"open"`
	High     float64 `parquet:"high"`
	Low      float64 `parquet:"low"`
	Close    float64 `parquet:"close"`
	Volume   float64 `parquet:"volume"`
}

// WriteCandles merges candles into the cached series for symbol/interval.
// Existing records with the same open time are replaced by incoming ones.
func (s *ParquetStore) WriteCandles(_ context.Context, symbol, interval string, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	records := make([]CandleRecord, len(candles))
	for i, c := range candles {
		records[i] = CandleRecord{
			OpenTime: c.OpenTime,
			Open:     c.Open,
			High:     c.High,
			Low:      c.Low,
			Close:    c.Close,
			Volume:   c.Volume,
		}
	}

	path := s.candlePath(symbol, interval)
	existing, _ := readParquetFile[CandleRecord](path)
	merged := mergeCandleRecords(existing, records)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing candles for %s/%s: %w", symbol, interval, err)
	}
	return nil
}

// ReadCandles returns up to limit of the most recent cached candles for
// symbol/interval, ascending in time. A missing cache file yields an empty
// series, not an error.
func (s *ParquetStore) ReadCandles(_ context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	path := s.candlePath(symbol, interval)
	records, err := readParquetFile[CandleRecord](path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading candles for %s/%s: %w", symbol, interval, err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	candles := make([]domain.Candle, len(records))
	for i, r := range records {
		candles[i] = domain.Candle{
			OpenTime: r.OpenTime,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
		}
	}
	return candles, nil
}

// ListSymbols lists all symbols with cached candle data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "candles")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// candlePath returns the filesystem path for a candle Parquet file.
// Layout: <dataDir>/candles/<SYMBOL>/<interval>.parquet
func (s *ParquetStore) candlePath(symbol, interval string) string {
	return filepath.Join(s.DataDir, "candles", strings.ToUpper(symbol), interval+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeCandleRecords deduplicates records by open time, preferring incoming
// over existing. Results are sorted ascending by open time.
func mergeCandleRecords(existing, incoming []CandleRecord) []CandleRecord {
	seen := make(map[int64]CandleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.OpenTime] = r
	}
	for _, r := range incoming {
		seen[r.OpenTime] = r
	}

	merged := make([]CandleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].OpenTime < merged[j].OpenTime
	})
	return merged
}
