package domain

import (
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify Candle can be instantiated with zero values.
	candle := Candle{}
	if candle.OpenTime != 0 {
		t.Error("expected zero OpenTime for zero-value Candle")
	}
	if candle.Open != 0 || candle.High != 0 || candle.Low != 0 || candle.Close != 0 {
		t.Error("expected zero OHLC values for zero-value Candle")
	}
	if candle.Volume != 0 {
		t.Error("expected zero Volume for zero-value Candle")
	}

	// Verify Trade can be instantiated with zero values.
	trade := Trade{}
	if trade.Time != 0 {
		t.Error("expected zero Time for zero-value Trade")
	}
	if trade.Side != "" {
		t.Error("expected empty Side for zero-value Trade")
	}
	if trade.Price != 0 || trade.Amount != 0 {
		t.Error("expected zero Price/Amount for zero-value Trade")
	}

	// Verify Bot can be instantiated with zero values.
	bot := Bot{}
	if bot.ID != "" || bot.UserID != "" {
		t.Error("expected empty IDs for zero-value Bot")
	}
	if bot.Status != "" {
		t.Error("expected empty Status for zero-value Bot")
	}
	if bot.Investment != 0 || bot.GridCount != 0 {
		t.Error("expected zero Investment/GridCount for zero-value Bot")
	}
	if !bot.CreatedAt.IsZero() || !bot.UpdatedAt.IsZero() {
		t.Error("expected zero timestamps for zero-value Bot")
	}

	// Verify enum constants are defined correctly.
	if SideBuy != "buy" {
		t.Errorf("SideBuy = %q, want %q", SideBuy, "buy")
	}
	if SideSell != "sell" {
		t.Errorf("SideSell = %q, want %q", SideSell, "sell")
	}
	if BotStopped != "stopped" {
		t.Errorf("BotStopped = %q, want %q", BotStopped, "stopped")
	}
	if BotRunning != "running" {
		t.Errorf("BotRunning = %q, want %q", BotRunning, "running")
	}
}

func TestUserWalletZeroValues(t *testing.T) {
	user := User{}
	if user.ID != "" || user.Email != "" || user.PasswordHash != "" {
		t.Error("expected empty fields for zero-value User")
	}
	if !user.CreatedAt.Equal(time.Time{}) {
		t.Error("expected zero CreatedAt for zero-value User")
	}

	wallet := Wallet{}
	if wallet.Exchange != "" || wallet.APIKey != "" || wallet.APISecret != "" {
		t.Error("expected empty fields for zero-value Wallet")
	}
}
