package models

// TechnicalPayload carries the indicator snapshot behind a technical score.
type TechnicalPayload struct {
	CurrentPrice float64 `json:"current_price"`
	MA5          float64 `json:"ma5"`
	MA20         float64 `json:"ma20"`
	MA60         float64 `json:"ma60"`
	RSI          float64 `json:"rsi"`
	MACD         float64 `json:"macd"`
	MACDSignal   float64 `json:"macd_signal"`
	PercentB     float64 `json:"percent_b"`
	VolumeRatio  float64 `json:"volume_ratio"`
	Candles      int     `json:"candle_count"`
}

// QuantPayload carries the fundamental metrics behind a quantitative score.
type QuantPayload struct {
	ROE            float64 `json:"roe"`
	RevenueGrowth  float64 `json:"revenue_growth"`
	DebtToEquity   float64 `json:"debt_to_equity"`
	PER            float64 `json:"per"`
	PBR            float64 `json:"pbr"`
	PeerComparison string  `json:"peer_comparison"`
}

// QualitativePayload carries the qualitative assessment extras.
type QualitativePayload struct {
	MarketCap  float64 `json:"market_cap"`
	Sector     string  `json:"sector"`
	Industry   string  `json:"industry"`
	Beta       float64 `json:"beta"`
	MoatRating string  `json:"moat_rating"`
}

// SentimentPayload carries the news analysis extras.
type SentimentPayload struct {
	ArticleCount   int     `json:"article_count"`
	PositiveRatio  float64 `json:"positive_ratio"`
	SentimentTrend string  `json:"sentiment_trend"`
	Return5D       float64 `json:"return_5d"`
	Return20D      float64 `json:"return_20d"`
}

// SectorPayload carries the sector adjustment context.
type SectorPayload struct {
	Sector           string  `json:"sector"`
	SectorReturn20D  float64 `json:"sector_return_20d"`
	RelativeReturn   float64 `json:"relative_return_20d"`
	FavoredSector    bool    `json:"favored_sector"`
	Level1Average    float64 `json:"level_1_average"`
	Level1Consensus  string  `json:"level_1_consensus"`
}

// MacroPayload carries the macro adjustment context.
type MacroPayload struct {
	VolatilityIndex float64 `json:"volatility_index"`
	Rate10Y         float64 `json:"rate_10y"`
	RateChange20D   float64 `json:"rate_change_20d"`
	FXChange20D     float64 `json:"fx_change_20d"`
	Level1Average   float64 `json:"level_1_average"`
}

// DecisionPayload carries the synthesized decision behind the Level 3 score.
type DecisionPayload struct {
	Composite      float64        `json:"composite_score"`
	Level1Average  float64        `json:"level_1_average"`
	Level2Average  float64        `json:"level_2_average"`
	Judgment       float64        `json:"judgment_score"`
	Classification Classification `json:"classification"`
	Conviction     Conviction     `json:"conviction"`
	Rationale      []string       `json:"rationale"`
}
