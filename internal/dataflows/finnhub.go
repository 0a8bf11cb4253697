package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
)

// FinnhubClient handles Finnhub API operations.
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
	apiKey string
}

// NewFinnhubClient creates a new Finnhub client.
func NewFinnhubClient(apiKey, cacheDir string, cacheEnabled bool) *FinnhubClient {
	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  NewCacheManager(filepath.Join(cacheDir, "finnhub"), 6*time.Hour, cacheEnabled),
		retry:  DefaultRetryConfig(),
		apiKey: apiKey,
	}
}

// Fundamentals fetches basic financial metrics for a company.
func (fc *FinnhubClient) Fundamentals(ctx context.Context, symbol string) (*Fundamentals, error) {
	if fc.apiKey == "" {
		return nil, unavailable("fundamentals", symbol, fmt.Errorf("finnhub API key not configured"))
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	// Check cache first
	var cached Fundamentals
	if fc.cache.Get("finnhub", "metrics", symbol, &cached) {
		return &cached, nil
	}

	var result *Fundamentals
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"metric": "all",
				"token":  fc.apiKey,
			}).
			Get("/stock/metric")
		if err != nil {
			return fmt.Errorf("fetch metrics for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var apiResponse struct {
			Metric map[string]interface{} `json:"metric"`
		}
		if err := json.Unmarshal(resp.Body(), &apiResponse); err != nil {
			return fmt.Errorf("parse metrics response: %w", err)
		}

		result = fundamentalsFromMetrics(symbol, apiResponse.Metric)
		return nil
	})
	if err != nil {
		return nil, unavailable("fundamentals", symbol, err)
	}

	fc.cache.Set("finnhub", "metrics", symbol, result)
	return result, nil
}

// fundamentalsFromMetrics maps the raw Finnhub metric keys to our model.
func fundamentalsFromMetrics(symbol string, metrics map[string]interface{}) *Fundamentals {
	pick := func(keys ...string) *float64 {
		for _, key := range keys {
			if raw, ok := metrics[key]; ok {
				if v, ok := raw.(float64); ok {
					return &v
				}
			}
		}
		return nil
	}

	return &Fundamentals{
		Symbol: symbol,

		ROE:             pick("roeTTM", "roeRfy"),
		ROA:             pick("roaTTM", "roaRfy"),
		OperatingMargin: pick("operatingMarginTTM", "operatingMarginAnnual"),
		NetMargin:       pick("netProfitMarginTTM", "netProfitMarginAnnual"),
		GrossMargin:     pick("grossMarginTTM", "grossMarginAnnual"),

		RevenueGrowth:  pick("revenueGrowthTTMYoy", "revenueGrowthQuarterlyYoy"),
		EarningsGrowth: pick("netIncomeGrowthTTMYoy", "epsGrowthQuarterlyYoy"),
		EPSGrowth:      pick("epsGrowthTTMYoy", "epsGrowth5Y"),

		DebtToEquity:   pick("totalDebt/totalEquityQuarterly", "totalDebt/totalEquityAnnual"),
		CurrentRatio:   pick("currentRatioQuarterly", "currentRatioAnnual"),
		CashFlowMargin: pick("fcfMarginTTM", "cashFlowPerShareTTM"),

		PER:      pick("peTTM", "peBasicExclExtraTTM"),
		PBR:      pick("pbQuarterly", "pbAnnual"),
		PEG:      pick("pegTTM", "pegRatio"),
		EVEBITDA: pick("currentEv/ebitdaTTM", "currentEv/ebitdaAnnual"),

		DividendYield:          pick("dividendYieldIndicatedAnnual", "currentDividendYieldTTM"),
		PayoutRatio:            pick("payoutRatioTTM", "payoutRatioAnnual"),
		InsiderOwnership:       pick("insiderOwnership"),
		InstitutionalOwnership: pick("institutionalOwnership"),
		Beta:                   pick("beta"),
		MarketCap:              pick("marketCapitalization"),
		Employees:              pick("employeeTotal"),
	}
}

type finnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// CompanyNews fetches news articles for a company over a date range.
func (fc *FinnhubClient) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, unavailable("news", symbol, fmt.Errorf("finnhub API key not configured"))
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}

	// Check cache first
	var cached []NewsArticle
	if fc.cache.Get("finnhub", "company_news", cacheKey, &cached) {
		return cached, nil
	}

	var result []NewsArticle
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/company-news")
		if err != nil {
			return fmt.Errorf("fetch news for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var items []finnhubNews
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return fmt.Errorf("parse news response: %w", err)
		}

		result = make([]NewsArticle, 0, len(items))
		for _, item := range items {
			result = append(result, NewsArticle{
				Title:       item.Headline,
				Content:     item.Summary,
				URL:         item.URL,
				Source:      item.Source,
				PublishedAt: time.Unix(item.DateTime, 0),
			})
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("news", symbol, err)
	}

	fc.cache.Set("finnhub", "company_news", cacheKey, result)
	return result, nil
}
