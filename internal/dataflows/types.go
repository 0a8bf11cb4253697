package dataflows

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one day of OHLCV data.
type Candle struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Quote is a snapshot of current market state for a symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	MarketCap float64         `json:"market_cap"`
	Exchange  string          `json:"exchange"`
	Currency  string          `json:"currency"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Fundamentals holds the metric set used by the quantitative and qualitative
// scorers. Nil means the provider did not report the metric; callers apply
// their own neutral defaults.
type Fundamentals struct {
	Symbol string `json:"symbol"`

	ROE             *float64 `json:"roe,omitempty"`
	ROA             *float64 `json:"roa,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty"`
	NetMargin       *float64 `json:"net_margin,omitempty"`
	GrossMargin     *float64 `json:"gross_margin,omitempty"`

	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty"`
	EPSGrowth      *float64 `json:"eps_growth,omitempty"`

	DebtToEquity   *float64 `json:"debt_to_equity,omitempty"`
	CurrentRatio   *float64 `json:"current_ratio,omitempty"`
	CashFlowMargin *float64 `json:"cash_flow_margin,omitempty"`

	PER      *float64 `json:"per,omitempty"`
	PBR      *float64 `json:"pbr,omitempty"`
	PEG      *float64 `json:"peg,omitempty"`
	EVEBITDA *float64 `json:"ev_ebitda,omitempty"`

	DividendYield          *float64 `json:"dividend_yield,omitempty"`
	PayoutRatio            *float64 `json:"payout_ratio,omitempty"`
	InsiderOwnership       *float64 `json:"insider_ownership,omitempty"`
	InstitutionalOwnership *float64 `json:"institutional_ownership,omitempty"`
	Beta                   *float64 `json:"beta,omitempty"`
	MarketCap              *float64 `json:"market_cap,omitempty"`
	Employees              *float64 `json:"employees,omitempty"`

	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Value returns *p or def when the metric is missing.
func Value(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Float returns a pointer to v, for building Fundamentals literals.
func Float(v float64) *float64 { return &v }

// NewsArticle is a normalized news item from any source.
type NewsArticle struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// MacroContext is the shared market environment snapshot consumed by the
// Level 2 agents. Nil fields mean the fetch came up empty and the consumer
// should score the band as neutral.
type MacroContext struct {
	MarketReturn20D *float64 `json:"market_return_20d,omitempty"`
	VolatilityIndex *float64 `json:"volatility_index,omitempty"`
	Rate10Y         *float64 `json:"rate_10y,omitempty"`
	RateChange20D   *float64 `json:"rate_change_20d,omitempty"`
	FXChange20D     *float64 `json:"fx_change_20d,omitempty"`

	// Sector index candles keyed by index symbol, shared across symbols in a batch.
	SectorCandles map[string][]Candle `json:"-"`
}
