// Package store defines storage interfaces for persisting and retrieving
// dashboard records (users, bots, wallets) and cached candle data.
package store

import (
	"context"
	"errors"

	"tradebench/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UserStore persists dashboard accounts.
type UserStore interface {
	// CreateUser inserts a new user.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListUsers returns all users ordered by creation time.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateUser persists changes to an existing user.
	UpdateUser(ctx context.Context, user *domain.User) error

	// DeleteUser removes a user by ID.
	DeleteUser(ctx context.Context, id string) error
}

// BotStore persists trading-bot configurations.
type BotStore interface {
	// CreateBot inserts a new bot configuration.
	CreateBot(ctx context.Context, bot *domain.Bot) error

	// GetBot retrieves a bot by ID.
	GetBot(ctx context.Context, id string) (*domain.Bot, error)

	// ListBots returns bots for a user, or all bots when userID is empty.
	ListBots(ctx context.Context, userID string) ([]domain.Bot, error)

	// UpdateBot persists changes to an existing bot.
	UpdateBot(ctx context.Context, bot *domain.Bot) error

	// DeleteBot removes a bot by ID.
	DeleteBot(ctx context.Context, id string) error
}

// WalletStore persists exchange-wallet credential metadata.
type WalletStore interface {
	// CreateWallet inserts a new wallet record.
	CreateWallet(ctx context.Context, wallet *domain.Wallet) error

	// GetWallet retrieves a wallet by ID.
	GetWallet(ctx context.Context, id string) (*domain.Wallet, error)

	// ListWallets returns wallets for a user, or all wallets when userID is
	// empty.
	ListWallets(ctx context.Context, userID string) ([]domain.Wallet, error)

	// DeleteWallet removes a wallet by ID.
	DeleteWallet(ctx context.Context, id string) error
}

// CandleStore caches OHLCV candle series per symbol and timeframe.
type CandleStore interface {
	// WriteCandles merges candles into the cached series for symbol/interval.
	WriteCandles(ctx context.Context, symbol, interval string, candles []domain.Candle) error

	// ReadCandles returns up to limit of the most recent cached candles for
	// symbol/interval, in ascending time order.
	ReadCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
}
