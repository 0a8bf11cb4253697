package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
)

// YahooClient fetches price history and quotes from Yahoo Finance.
type YahooClient struct {
	cache *CacheManager
	retry *RetryConfig
}

// NewYahooClient creates a new Yahoo Finance client.
func NewYahooClient(cacheDir string, cacheEnabled bool) *YahooClient {
	return &YahooClient{
		cache: NewCacheManager(filepath.Join(cacheDir, "yahoo"), 24*time.Hour, cacheEnabled),
		retry: DefaultRetryConfig(),
	}
}

// DailyCandles returns daily candles covering the last `days` calendar days.
func (yc *YahooClient) DailyCandles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}

	// Check cache first
	var cached []Candle
	if yc.cache.Get("yahoo", "daily", cacheKey, &cached) {
		return cached, nil
	}

	var result []Candle
	err := WithRetry(ctx, yc.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)

		result = result[:0]
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, Candle{
				Symbol: symbol,
				Date:   time.Unix(int64(bar.Timestamp), 0),
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: int64(bar.Volume),
			})
		}

		if err := iter.Err(); err != nil {
			return fmt.Errorf("fetch daily candles for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("price", symbol, err)
	}
	if len(result) == 0 {
		return nil, unavailable("price", symbol, fmt.Errorf("no candles returned"))
	}

	yc.cache.Set("yahoo", "daily", cacheKey, result)
	return result, nil
}

// Quote returns the current market snapshot for a symbol.
func (yc *YahooClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	// Check cache first
	var cached Quote
	if yc.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	var result *Quote
	err := WithRetry(ctx, yc.retry, func() error {
		eq, err := equity.Get(symbol)
		if err != nil {
			return fmt.Errorf("fetch quote for %s: %w", symbol, err)
		}
		if eq == nil {
			return fmt.Errorf("empty quote for %s", symbol)
		}

		result = quoteFromEquity(symbol, eq)
		return nil
	})
	if err != nil {
		return nil, unavailable("quote", symbol, err)
	}

	yc.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}

// quoteFromEquity maps a Yahoo equity snapshot to our quote model. The
// market cap lives on the equity payload, not the bare quote.
func quoteFromEquity(symbol string, eq *finance.Equity) *Quote {
	return &Quote{
		Symbol:    symbol,
		Name:      eq.ShortName,
		Price:     decimal.NewFromFloat(eq.RegularMarketPrice),
		MarketCap: float64(eq.MarketCap),
		Exchange:  eq.FullExchangeName,
		Currency:  eq.CurrencyID,
		FetchedAt: time.Now(),
	}
}
