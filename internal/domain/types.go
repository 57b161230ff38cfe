// Package domain holds the core data types shared across the tradebench
// platform: market data records, simulated trades, and the dashboard's
// user/bot/wallet entities.
package domain

import "time"

// Candle is one OHLCV bar for a fixed time interval. Candles are supplied by
// a market data source in ascending OpenTime order and are never mutated.
type Candle struct {
	OpenTime int64 // Unix milliseconds
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Side is the direction of a simulated trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade records one simulated fill. Amount is the cash value for buys and
// the asset quantity for sells; the asymmetry is part of the reporting
// contract and is relied on by the win-rate calculation.
type Trade struct {
	Time   int64   `json:"time"` // OpenTime of the candle the trade executed on
	Side   Side    `json:"side"`
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// BotStatus reflects whether a configured bot is flagged as running on the
// dashboard. No live trading loop exists behind the flag.
type BotStatus string

const (
	BotStopped BotStatus = "stopped"
	BotRunning BotStatus = "running"
)

// Bot is one saved trading-bot configuration.
type Bot struct {
	ID                string
	UserID            string
	Name              string
	Strategy          string // free-text label, resolved via strategy.ParseType
	Pair              string // e.g. "BTC/USDT"
	Timeframe         string // e.g. "1h"
	Investment        float64
	GridCount         int
	GridSpacing       float64
	UpperPrice        float64
	LowerPrice        float64
	StopLossPercent   float64
	TakeProfitPercent float64
	Status            BotStatus
	BacktestResults   string // JSON-encoded backtest.Result, empty until a run completes
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// User is a dashboard account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Wallet holds exchange API credential metadata for a user. Secrets are
// stored as provided; tradebench never places real orders with them.
type Wallet struct {
	ID        string
	UserID    string
	Exchange  string
	Label     string
	APIKey    string
	APISecret string
	CreatedAt time.Time
}
