// Package advisor produces strategy suggestion text for the dashboard's
// advisor panel. Responses are canned templates keyed on keywords in the
// question; there is no model behind it.
package advisor

import (
	"strings"

	"tradebench/internal/strategy"
)

// Advisor answers free-text strategy questions with templated advice.
type Advisor struct{}

func New() *Advisor {
	return &Advisor{}
}

var responses = map[strategy.Type]string{
	strategy.TypeGrid: "Grid trading works best in sideways markets with a clear range. " +
		"Set the lower and upper bounds around recent support and resistance, and size " +
		"the grid count so each level captures more than twice the trading fee.",
	strategy.TypeMeanReversion: "Mean reversion assumes price snaps back to its moving average. " +
		"It performs well in ranging conditions but loses money in strong trends, so pair it " +
		"with a stop-loss wide enough to survive normal volatility.",
	strategy.TypeTrendFollowing: "Trend following buys when the short EMA crosses above the long EMA " +
		"and exits on the cross back down. Expect many small losses and a few large wins; " +
		"a take-profit that is too tight will cut the winners short.",
	strategy.TypeScalper: "Scalping on RSI extremes trades often and pays fees often. " +
		"Keep position sizes small, use tight stop-losses, and backtest on the exact " +
		"timeframe you intend to trade.",
}

const generalAdvice = "Backtest any configuration before running it: compare total return, " +
	"max drawdown, and win rate across at least 30 days of data. Prefer the configuration " +
	"with the best reward-to-drawdown ratio rather than the highest raw return."

// Suggest returns advice matching the first strategy keyword found in the
// question, or general guidance when none matches.
func (a *Advisor) Suggest(question string) string {
	if t := strategy.ParseType(question); t != strategy.TypeNone {
		if text, ok := responses[t]; ok {
			return text
		}
	}

	q := strings.ToLower(question)
	if strings.Contains(q, "risk") || strings.Contains(q, "drawdown") || strings.Contains(q, "stop") {
		return "Size positions so a single stop-loss hit costs no more than a few percent of the " +
			"balance, and treat max drawdown from backtests as a floor, not a ceiling, for what " +
			"live trading will do."
	}

	return generalAdvice
}
