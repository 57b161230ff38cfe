package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tradebench/internal/backtest"
	"tradebench/internal/market"
	"tradebench/internal/strategy"
	"tradebench/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tradebench <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  strategies  List available strategy types\n")
		fmt.Fprintf(os.Stderr, "  backtest    Run a backtest against Binance market data\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("tradebench %s\n", version)

	case "strategies":
		for _, t := range strategy.DefaultRegistry().List() {
			fmt.Println(t)
		}

	case "backtest":
		if err := runBacktest(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "backtest failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func runBacktest(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	var (
		pair       = fs.String("pair", "BTC/USDT", "trading pair")
		timeframe  = fs.String("timeframe", "1h", "candle timeframe (1m, 5m, 15m, 30m, 1h, 4h, 1d)")
		strat      = fs.String("strategy", "grid", "strategy label (grid, mean-reversion, trend-following, scalper)")
		investment = fs.Float64("investment", 1000, "starting cash balance")
		days       = fs.Float64("days", 30, "backtest window in days")
		gridCount  = fs.Int("grids", 10, "number of grid levels")
		lower      = fs.Float64("lower", 0, "lower price bound (0 = derive from data)")
		upper      = fs.Float64("upper", 0, "upper price bound (0 = derive from data)")
		stopLoss   = fs.Float64("stop-loss", 5, "stop-loss percent")
		takeProfit = fs.Float64("take-profit", 10, "take-profit percent")
		verbose    = fs.Bool("v", false, "print the full trade log")
	)
	fs.Parse(args)

	_ = godotenv.Load()
	logger := util.NewLogger(os.Getenv("LOG_LEVEL"), "text")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source := market.NewBinanceSource(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"), logger)
	runner := backtest.NewRunner(source, strategy.DefaultRegistry(), logger)

	req := backtest.Request{
		Config: backtest.Config{
			Strategy:          strategy.ParseType(*strat),
			Investment:        *investment,
			GridCount:         *gridCount,
			LowerPrice:        *lower,
			UpperPrice:        *upper,
			StopLossPercent:   *stopLoss,
			TakeProfitPercent: *takeProfit,
			Days:              *days,
		},
		Pair:      *pair,
		Timeframe: *timeframe,
	}

	result, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Pair:            %s (%s, %.0f days)\n", *pair, *timeframe, *days)
	fmt.Printf("Strategy:        %s\n", req.Strategy)
	fmt.Printf("Data points:     %d\n", result.DataPoints)
	fmt.Printf("Trades:          %d\n", result.Trades)
	fmt.Printf("Total return:    %.2f (%.2f%%)\n", result.TotalReturn, result.TotalReturnPercent)
	fmt.Printf("APR:             %.2f%%\n", result.APR)
	fmt.Printf("Max drawdown:    %.2f%%\n", result.MaxDrawdown)
	fmt.Printf("Win rate:        %.2f%%\n", result.WinRate)
	fmt.Printf("Fees paid:       %.4f\n", result.TotalFees)
	fmt.Printf("Reward ratio:    %.4f\n", result.RewardRatio)

	if *verbose {
		fmt.Println("\nTrade log:")
		for _, tr := range result.TradeLog {
			fmt.Printf("  %d  %-4s  price=%.4f  amount=%.4f\n", tr.Time, tr.Side, tr.Price, tr.Amount)
		}
	}
	return nil
}
