package dataflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/shopspring/decimal"
)

func TestCacheManagerRoundTrip(t *testing.T) {
	cache := NewCacheManager(t.TempDir(), time.Hour, true)

	params := map[string]string{"symbol": "005930.KS"}
	original := []Candle{
		{Symbol: "005930.KS", Close: decimal.NewFromInt(71000), Volume: 1000},
	}

	if err := cache.Set("yahoo", "daily", params, original); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var loaded []Candle
	if !cache.Get("yahoo", "daily", params, &loaded) {
		t.Fatal("Get() returned false for freshly cached data")
	}
	if len(loaded) != 1 || !loaded[0].Close.Equal(original[0].Close) {
		t.Errorf("loaded = %+v, want %+v", loaded, original)
	}
}

func TestCacheManagerExpiry(t *testing.T) {
	cache := NewCacheManager(t.TempDir(), -time.Second, true)

	if err := cache.Set("yahoo", "quote", "005930.KS", "data"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var loaded string
	if cache.Get("yahoo", "quote", "005930.KS", &loaded) {
		t.Error("Get() returned true for expired cache entry")
	}
}

func TestCacheManagerDisabled(t *testing.T) {
	dir := t.TempDir()
	cache := NewCacheManager(filepath.Join(dir, "cache"), time.Hour, false)

	if err := cache.Set("yahoo", "quote", "005930.KS", "data"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var loaded string
	if cache.Get("yahoo", "quote", "005930.KS", &loaded) {
		t.Error("Get() returned true with caching disabled")
	}
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	attempts := 0
	err := WithRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient failure %d", attempts)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	wantErr := errors.New("permanent failure")
	err := WithRetry(context.Background(), cfg, func() error { return wantErr })
	if err == nil {
		t.Fatal("WithRetry() expected error after exhausting retries")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error chain does not contain the underlying failure: %v", err)
	}
}

func TestWithRetryHonorsContext(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 5, BaseDelay: time.Minute, MaxDelay: time.Minute, Multiplier: 2}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, cfg, func() error { return errors.New("always fails") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"005930.KS", "035720.KQ", "^KS11", "KRW=X", "AAPL"}
	for _, s := range valid {
		if err := ValidateSymbol(s); err != nil {
			t.Errorf("ValidateSymbol(%q) error = %v", s, err)
		}
	}

	invalid := []string{"", "  ", "THIS_SYMBOL_IS_WAY_TOO_LONG", "BAD SYMBOL"}
	for _, s := range invalid {
		if err := ValidateSymbol(s); err == nil {
			t.Errorf("ValidateSymbol(%q) expected error", s)
		}
	}
}

func TestDataUnavailableError(t *testing.T) {
	underlying := errors.New("connection refused")
	err := unavailable("price", "005930.KS", underlying)

	var dataErr *DataUnavailableError
	if !errors.As(err, &dataErr) {
		t.Fatal("expected DataUnavailableError")
	}
	if dataErr.Source != "price" || dataErr.Symbol != "005930.KS" {
		t.Errorf("error fields = %+v", dataErr)
	}
	if !errors.Is(err, underlying) {
		t.Error("error chain does not contain the underlying failure")
	}
}

func TestReturnOverDays(t *testing.T) {
	candles := make([]Candle, 0, 25)
	for i := 0; i < 25; i++ {
		candles = append(candles, Candle{Close: decimal.NewFromInt(int64(100 + i))})
	}

	got := returnOverDays(candles, 20)
	if got == nil {
		t.Fatal("returnOverDays() = nil, want value")
	}
	// close went from 104 to 124 over the last 20 entries
	want := (124.0 - 104.0) / 104.0 * 100
	if diff := *got - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("returnOverDays() = %f, want %f", *got, want)
	}

	if returnOverDays(candles[:10], 20) != nil {
		t.Error("returnOverDays() should return nil with insufficient history")
	}
}

func TestQuoteFromEquity(t *testing.T) {
	eq := &finance.Equity{
		Quote: finance.Quote{
			ShortName:          "Samsung Electronics",
			RegularMarketPrice: 71000,
			FullExchangeName:   "KSE",
			CurrencyID:         "KRW",
		},
		MarketCap: 420_000_000_000_000,
	}

	q := quoteFromEquity("005930.KS", eq)
	if q.Symbol != "005930.KS" || q.Name != "Samsung Electronics" {
		t.Errorf("identity fields = %s / %s", q.Symbol, q.Name)
	}
	if !q.Price.Equal(decimal.NewFromInt(71000)) {
		t.Errorf("price = %s, want 71000", q.Price)
	}
	if q.MarketCap != 420_000_000_000_000 {
		t.Errorf("market cap = %f", q.MarketCap)
	}
	if q.Exchange != "KSE" || q.Currency != "KRW" {
		t.Errorf("exchange/currency = %s / %s", q.Exchange, q.Currency)
	}
	if q.FetchedAt.IsZero() {
		t.Error("fetched-at timestamp not set")
	}
}
