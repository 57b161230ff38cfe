// Package httpapi provides the HTTP REST and WebSocket API for the
// tradebench dashboard: backtest runs, candle data, and CRUD for users,
// bots, and wallets.
package httpapi

import (
	"encoding/json"
	"time"

	"tradebench/internal/domain"
)

// CandleJSON is the JSON representation of one OHLCV candle.
type CandleJSON struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// CandlesResponse holds a candle series for one symbol and interval.
type CandlesResponse struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	Candles  []CandleJSON `json:"candles"`
}

// StrategiesResponse lists the known strategy types.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// UserRequest is the create/update payload for a user.
type UserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// UserJSON is a user record as served to clients. The password hash is
// never serialized.
type UserJSON struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// BotRequest is the create/update payload for a bot configuration.
type BotRequest struct {
	UserID            string  `json:"userId"`
	Name              string  `json:"name"`
	Strategy          string  `json:"strategy"`
	Pair              string  `json:"pair"`
	Timeframe         string  `json:"timeframe"`
	Investment        float64 `json:"investment"`
	GridCount         int     `json:"gridCount"`
	GridSpacing       float64 `json:"gridSpacing"`
	UpperPrice        float64 `json:"upperPrice"`
	LowerPrice        float64 `json:"lowerPrice"`
	StopLossPercent   float64 `json:"stopLossPercent"`
	TakeProfitPercent float64 `json:"takeProfitPercent"`
}

// BotJSON is a bot record as served to clients. BacktestResults carries the
// last persisted backtest result verbatim, or null when none has run.
type BotJSON struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Name              string          `json:"name"`
	Strategy          string          `json:"strategy"`
	Pair              string          `json:"pair"`
	Timeframe         string          `json:"timeframe"`
	Investment        float64         `json:"investment"`
	GridCount         int             `json:"gridCount"`
	GridSpacing       float64         `json:"gridSpacing,omitempty"`
	UpperPrice        float64         `json:"upperPrice,omitempty"`
	LowerPrice        float64         `json:"lowerPrice,omitempty"`
	StopLossPercent   float64         `json:"stopLossPercent"`
	TakeProfitPercent float64         `json:"takeProfitPercent"`
	Status            string          `json:"status"`
	BacktestResults   json.RawMessage `json:"backtestResults,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// WalletRequest is the create payload for an exchange wallet.
type WalletRequest struct {
	UserID    string `json:"userId"`
	Exchange  string `json:"exchange"`
	Label     string `json:"label"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// WalletJSON is a wallet record as served to clients. The API secret is
// masked; only its presence is reported.
type WalletJSON struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Exchange  string    `json:"exchange"`
	Label     string    `json:"label"`
	APIKey    string    `json:"apiKey"`
	HasSecret bool      `json:"hasSecret"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdvisorRequest carries a free-text strategy question.
type AdvisorRequest struct {
	Question string `json:"question"`
}

// AdvisorResponse carries the advisor's suggestion text.
type AdvisorResponse struct {
	Suggestion string `json:"suggestion"`
}

// StatusResponse acknowledges a bot start/stop toggle.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func convertCandle(c domain.Candle) CandleJSON {
	return CandleJSON{
		Time:   c.OpenTime,
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	}
}

func convertUser(u *domain.User) UserJSON {
	return UserJSON{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

func convertBot(b *domain.Bot) BotJSON {
	j := BotJSON{
		ID:                b.ID,
		UserID:            b.UserID,
		Name:              b.Name,
		Strategy:          b.Strategy,
		Pair:              b.Pair,
		Timeframe:         b.Timeframe,
		Investment:        b.Investment,
		GridCount:         b.GridCount,
		GridSpacing:       b.GridSpacing,
		UpperPrice:        b.UpperPrice,
		LowerPrice:        b.LowerPrice,
		StopLossPercent:   b.StopLossPercent,
		TakeProfitPercent: b.TakeProfitPercent,
		Status:            string(b.Status),
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
	if b.BacktestResults != "" {
		j.BacktestResults = json.RawMessage(b.BacktestResults)
	}
	return j
}

func convertWallet(w *domain.Wallet) WalletJSON {
	return WalletJSON{
		ID:        w.ID,
		UserID:    w.UserID,
		Exchange:  w.Exchange,
		Label:     w.Label,
		APIKey:    w.APIKey,
		HasSecret: w.APISecret != "",
		CreatedAt: w.CreatedAt,
	}
}
