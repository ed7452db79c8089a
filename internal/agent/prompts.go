package agent

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func systemPrompt(allowed []string, maxSize decimal.Decimal, minConfidence float64) string {
	return fmt.Sprintf(`You are an AI trading agent for cryptocurrency perpetual futures on WEEX Exchange.

Your objective is to analyze market data and make profitable trading decisions while managing risk.

## Capabilities
1. Fetch market data (price, best bid and ask, 24h volume)
2. Calculate technical indicators (RSI, EMA, MACD, Bollinger Bands)
3. Check account status and open positions
4. Execute trades with a confidence score
5. Monitor funding rates

## Trading rules
- Maximum leverage: 20x
- Allowed pairs: %s
- Always provide detailed reasoning for every trade
- Minimum confidence of %.2f to execute a trade
- Maximum position size: %s

## Risk management
- Never risk more than 2%% of the account per trade
- Consider current positions before opening new ones
- Use stop losses when appropriate

## Process
1. Get current market data
2. Calculate relevant technical indicators
3. Check account status and existing positions
4. Form a thesis from the data
5. If conditions are favorable, execute a trade with full reasoning

Be analytical and data-driven, and explain your thought process.`,
		strings.Join(allowed, ", "), minConfidence, maxSize.String())
}

// DefaultPrompt is the instruction each turn gets when none is supplied.
func DefaultPrompt(symbol string, size decimal.Decimal) string {
	return fmt.Sprintf(`Analyze the current %s market conditions.

1. Get the latest market data for %s
2. Calculate RSI, EMA_20, EMA_50 and MACD
3. Check our account status and existing positions
4. Based on your technical analysis, evaluate whether there is a trading opportunity
5. If you see a high-confidence opportunity (>0.7), execute a small trade (%s)

Provide detailed analysis and reasoning for your decision.`, strings.ToUpper(symbol), symbol, size.String())
}

// DemoPrompts walks through every capability, ending with a full decision.
func DemoPrompts(symbol string, size decimal.Decimal) []string {
	return []string{
		fmt.Sprintf("Get the current market data for %s and summarize the key metrics.", symbol),
		fmt.Sprintf("Calculate RSI, EMA_20, EMA_50 and MACD for %s. What do these indicators suggest?", symbol),
		"Check our account status. How much USDT is available? Any open positions?",
		fmt.Sprintf(`Perform a complete analysis of %s:
1. Get current price and order book
2. Calculate all major technical indicators
3. Check our account and positions
4. Make a trading decision with full reasoning
5. If confident (>0.7), execute a small trade (%s)`, symbol, size.String()),
	}
}
