package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradebench/internal/config"
	"tradebench/internal/httpapi"
	"tradebench/internal/market"
	"tradebench/internal/store"
	"tradebench/internal/strategy"
	"tradebench/internal/util"
)

func main() {
	// Load .env if present, then config.
	_ = godotenv.Load()

	cfgPath := "config/tradebench.yaml"
	if p := os.Getenv("TRADEBENCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Stores.
	sqlStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer sqlStore.Close()

	candleCache := store.NewParquetStore(cfg.Storage.DataDir)

	// Market data: Binance behind the candle cache.
	binanceSource := market.NewBinanceSource(cfg.Binance.APIKey, cfg.Binance.APISecret, logger)
	source := market.NewCachedSource(binanceSource, candleCache, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// WebSocket hub.
	hub := httpapi.NewHub(logger)
	go hub.Run(ctx)

	srv := httpapi.NewServer(
		sqlStore, sqlStore, sqlStore,
		source,
		strategy.DefaultRegistry(),
		hub,
		cfg.Backtest,
		logger,
	)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("tradebench server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down tradebench server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
