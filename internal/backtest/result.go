package backtest

import "tradebench/internal/domain"

// Result is the summary output of one backtest run. RewardRatio is the
// simplified reward/drawdown quotient the dashboard has always labelled
// "sharpeRatio"; the JSON name is kept for API compatibility even though it
// is not a statistical Sharpe ratio.
type Result struct {
	TotalReturn        float64        `json:"totalReturn"`
	TotalReturnPercent float64        `json:"totalReturnPercent"`
	APR                float64        `json:"apr"`
	MaxDrawdown        float64        `json:"maxDrawdown"`
	Trades             int            `json:"trades"`
	WinRate            float64        `json:"winRate"`
	TotalFees          float64        `json:"totalFees"`
	RewardRatio        float64        `json:"sharpeRatio"`
	DataPoints         int            `json:"dataPoints"`
	TradeLog           []domain.Trade `json:"tradeLog,omitempty"`
}

func assembleResult(cfg Config, st *simState, dataPoints int) *Result {
	totalReturn := st.balance - cfg.Investment
	totalReturnPercent := totalReturn / cfg.Investment * 100

	drawdownDivisor := st.maxDrawdown
	if drawdownDivisor == 0 {
		drawdownDivisor = 1
	}

	return &Result{
		TotalReturn:        totalReturn,
		TotalReturnPercent: totalReturnPercent,
		APR:                totalReturnPercent / cfg.Days * 365,
		MaxDrawdown:        st.maxDrawdown,
		Trades:             len(st.trades),
		WinRate:            winRate(st.trades),
		TotalFees:          st.totalFees,
		RewardRatio:        totalReturnPercent / drawdownDivisor,
		DataPoints:         dataPoints,
		TradeLog:           st.trades,
	}
}

// winRate applies the structural pairing heuristic: odd-indexed sells
// immediately preceded by a buy count as round trips, a round trip wins when
// the sell price exceeds the buy price, and the denominator is the number of
// complete pairs in the ledger.
func winRate(trades []domain.Trade) float64 {
	pairs := len(trades) / 2
	if pairs == 0 {
		return 0
	}
	wins := 0
	for i := 1; i < len(trades); i += 2 {
		if trades[i].Side == domain.SideSell &&
			trades[i-1].Side == domain.SideBuy &&
			trades[i].Price > trades[i-1].Price {
			wins++
		}
	}
	return float64(wins) / float64(pairs) * 100
}
