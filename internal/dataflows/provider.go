package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ProviderOptions configures the data provider facade.
type ProviderOptions struct {
	FinnhubAPIKey string
	CacheDir      string
	CacheEnabled  bool
	Logger        zerolog.Logger

	// RequestsPerSecond bounds outbound calls across all agents. Zero means
	// the default of 5 rps.
	RequestsPerSecond float64
}

// MacroSymbols names the index, volatility, rate and FX tickers used for the
// macro environment snapshot.
type MacroSymbols struct {
	MarketIndex string
	Volatility  string
	Rate        string
	FX          string
}

// Provider is the single gateway the agents fetch external data through.
// All calls pass a shared rate limiter and circuit breaker, and every
// failure surfaces as a DataUnavailableError.
type Provider struct {
	yahoo   *YahooClient
	finnhub *FinnhubClient
	scraper *NewsScraperClient

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewProvider creates the provider facade.
func NewProvider(opts ProviderOptions) *Provider {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "market-data",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			opts.Logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Provider{
		yahoo:   NewYahooClient(opts.CacheDir, opts.CacheEnabled),
		finnhub: NewFinnhubClient(opts.FinnhubAPIKey, opts.CacheDir, opts.CacheEnabled),
		scraper: NewNewsScraperClient(opts.CacheDir, opts.CacheEnabled),
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		breaker: breaker,
		log:     opts.Logger,
	}
}

// guard applies the shared rate limit and circuit breaker around a fetch.
func (p *Provider) guard(ctx context.Context, source, symbol string, fn func() (interface{}, error)) (interface{}, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, unavailable(source, symbol, err)
	}

	out, err := p.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, unavailable(source, symbol, fmt.Errorf("provider circuit open: %w", err))
		}
		var unavailableErr *DataUnavailableError
		if errors.As(err, &unavailableErr) {
			return nil, err
		}
		return nil, unavailable(source, symbol, err)
	}
	return out, nil
}

// DailyCandles returns daily candles covering the last `days` calendar days.
func (p *Provider) DailyCandles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	out, err := p.guard(ctx, "price", symbol, func() (interface{}, error) {
		return p.yahoo.DailyCandles(ctx, symbol, days)
	})
	if err != nil {
		return nil, err
	}
	return out.([]Candle), nil
}

// Quote returns the current market snapshot for a symbol.
func (p *Provider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	out, err := p.guard(ctx, "quote", symbol, func() (interface{}, error) {
		return p.yahoo.Quote(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Quote), nil
}

// Fundamentals returns the financial metrics for a symbol.
func (p *Provider) Fundamentals(ctx context.Context, symbol string) (*Fundamentals, error) {
	out, err := p.guard(ctx, "fundamentals", symbol, func() (interface{}, error) {
		return p.finnhub.Fundamentals(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Fundamentals), nil
}

// CompanyNews returns recent articles for a symbol, falling back to the
// Google News scraper when the Finnhub feed has nothing.
func (p *Provider) CompanyNews(ctx context.Context, symbol, name string, days int) ([]NewsArticle, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	out, err := p.guard(ctx, "news", symbol, func() (interface{}, error) {
		return p.finnhub.CompanyNews(ctx, symbol, from, to)
	})
	if err == nil {
		if articles := out.([]NewsArticle); len(articles) > 0 {
			return articles, nil
		}
	}

	query := name
	if query == "" {
		query = symbol
	}
	p.log.Debug().Str("symbol", symbol).Msg("finnhub news empty, falling back to scraper")

	out, err = p.guard(ctx, "news", symbol, func() (interface{}, error) {
		return p.scraper.SearchNews(ctx, query, 20)
	})
	if err != nil {
		return nil, err
	}
	return out.([]NewsArticle), nil
}

// MacroSnapshot fetches the shared macro context. Individual fetch failures
// leave the field nil rather than failing the snapshot.
func (p *Provider) MacroSnapshot(ctx context.Context, symbols MacroSymbols, sectorIndexes []string) *MacroContext {
	mc := &MacroContext{SectorCandles: make(map[string][]Candle)}

	if candles, err := p.DailyCandles(ctx, symbols.MarketIndex, 60); err == nil {
		mc.MarketReturn20D = returnOverDays(candles, 20)
	} else {
		p.log.Warn().Err(err).Str("symbol", symbols.MarketIndex).Msg("market index unavailable")
	}

	if candles, err := p.DailyCandles(ctx, symbols.Volatility, 10); err == nil {
		mc.VolatilityIndex = lastClose(candles)
	} else {
		p.log.Warn().Err(err).Str("symbol", symbols.Volatility).Msg("volatility index unavailable")
	}

	if candles, err := p.DailyCandles(ctx, symbols.Rate, 60); err == nil {
		mc.Rate10Y = lastClose(candles)
		mc.RateChange20D = changeOverDays(candles, 20)
	} else {
		p.log.Warn().Err(err).Str("symbol", symbols.Rate).Msg("rate data unavailable")
	}

	if candles, err := p.DailyCandles(ctx, symbols.FX, 60); err == nil {
		mc.FXChange20D = returnOverDays(candles, 20)
	} else {
		p.log.Warn().Err(err).Str("symbol", symbols.FX).Msg("fx data unavailable")
	}

	for _, index := range sectorIndexes {
		candles, err := p.DailyCandles(ctx, index, 60)
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", index).Msg("sector index unavailable")
			continue
		}
		mc.SectorCandles[index] = candles
	}

	return mc
}

// lastClose returns the most recent close as a float.
func lastClose(candles []Candle) *float64 {
	if len(candles) == 0 {
		return nil
	}
	v, _ := candles[len(candles)-1].Close.Float64()
	return &v
}

// returnOverDays returns the percent change of close over the last n trading days.
func returnOverDays(candles []Candle, n int) *float64 {
	if len(candles) < n+1 {
		return nil
	}
	last, _ := candles[len(candles)-1].Close.Float64()
	prev, _ := candles[len(candles)-1-n].Close.Float64()
	if prev == 0 {
		return nil
	}
	v := (last - prev) / prev * 100
	return &v
}

// changeOverDays returns the absolute change of close over the last n trading days.
func changeOverDays(candles []Candle, n int) *float64 {
	if len(candles) < n+1 {
		return nil
	}
	last, _ := candles[len(candles)-1].Close.Float64()
	prev, _ := candles[len(candles)-1-n].Close.Float64()
	v := last - prev
	return &v
}
