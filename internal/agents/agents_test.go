package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/models"
	"github.com/lubanana/kstock-dashboard/pkg/logger"
)

type stubPrices struct {
	candles []dataflows.Candle
	err     error
}

func (s stubPrices) DailyCandles(ctx context.Context, symbol string, days int) ([]dataflows.Candle, error) {
	return s.candles, s.err
}

type stubFundamentals struct {
	data *dataflows.Fundamentals
	err  error
}

func (s stubFundamentals) Fundamentals(ctx context.Context, symbol string) (*dataflows.Fundamentals, error) {
	return s.data, s.err
}

type stubQuotes struct {
	quote *dataflows.Quote
	err   error
}

func (s stubQuotes) Quote(ctx context.Context, symbol string) (*dataflows.Quote, error) {
	return s.quote, s.err
}

type stubNews struct {
	articles []dataflows.NewsArticle
	err      error
}

func (s stubNews) CompanyNews(ctx context.Context, symbol, name string, days int) ([]dataflows.NewsArticle, error) {
	return s.articles, s.err
}

func trendCandles(n int, start, step float64, volume int64) []dataflows.Candle {
	candles := make([]dataflows.Candle, n)
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := start + float64(i)*step
		candles[i] = dataflows.Candle{
			Symbol: "005930.KS",
			Date:   base.AddDate(0, 0, i),
			Close:  decimal.NewFromFloat(price),
			Volume: volume,
		}
	}
	return candles
}

func testSpec(id, analysisType string) config.AgentSpec {
	return config.AgentSpec{ID: id, Name: id, AnalysisType: analysisType, Weight: 0.25, Enabled: true}
}

var testSymbol = models.Symbol{Code: "005930.KS", Name: "Samsung Electronics"}

func TestTechnicalScorerUptrend(t *testing.T) {
	scorer := NewTechnicalScorer(testSpec("TECH_001", config.AnalysisTechnical),
		stubPrices{candles: trendCandles(80, 100, 1, 1000)}, logger.Nop())

	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if err := result.Score.Validate(); err != nil {
		t.Fatalf("score invalid: %v", err)
	}
	if len(result.Score.SubScores) != 4 {
		t.Fatalf("sub-score count = %d, want 4", len(result.Score.SubScores))
	}
	// A steady uptrend with aligned averages should clear the BUY bar.
	if result.Score.Total < 70 {
		t.Errorf("uptrend total = %d, want >= 70", result.Score.Total)
	}
	if result.Recommendation != models.RecommendationBuy {
		t.Errorf("recommendation = %s, want BUY", result.Recommendation)
	}
}

func TestTechnicalScorerInsufficientHistory(t *testing.T) {
	scorer := NewTechnicalScorer(testSpec("TECH_001", config.AnalysisTechnical),
		stubPrices{candles: trendCandles(5, 100, 1, 1000)}, logger.Nop())

	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	// Every sub-dimension falls back to the neutral 12.
	for _, sub := range result.Score.SubScores {
		if sub.Score != 12 {
			t.Errorf("sub %s = %d, want neutral 12", sub.Name, sub.Score)
		}
	}
	if result.Score.Total != 48 {
		t.Errorf("total = %d, want 48", result.Score.Total)
	}
	found := false
	for _, s := range result.Score.Signals {
		if s != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected insufficient-data signals")
	}
}

func TestTechnicalScorerFetchFailure(t *testing.T) {
	scorer := NewTechnicalScorer(testSpec("TECH_001", config.AnalysisTechnical),
		stubPrices{err: &dataflows.DataUnavailableError{Source: "price", Symbol: "005930.KS"}}, logger.Nop())

	_, err := scorer.Score(context.Background(), testSymbol)
	if err == nil {
		t.Fatal("Score() expected error when candles are unavailable")
	}
	var dataErr *dataflows.DataUnavailableError
	if !errors.As(err, &dataErr) {
		t.Errorf("error chain missing DataUnavailableError: %v", err)
	}
}

func TestQuantScorerStrongFundamentals(t *testing.T) {
	f := &dataflows.Fundamentals{
		Symbol:          "005930.KS",
		ROE:             dataflows.Float(25),
		ROA:             dataflows.Float(12),
		OperatingMargin: dataflows.Float(22),
		NetMargin:       dataflows.Float(18),
		RevenueGrowth:   dataflows.Float(35),
		EarningsGrowth:  dataflows.Float(32),
		EPSGrowth:       dataflows.Float(30),
		DebtToEquity:    dataflows.Float(40),
		CurrentRatio:    dataflows.Float(2.5),
		CashFlowMargin:  dataflows.Float(20),
		PER:             dataflows.Float(10),
		PBR:             dataflows.Float(0.9),
		PEG:             dataflows.Float(0.8),
		EVEBITDA:        dataflows.Float(5),
	}

	scorer := NewQuantScorer(testSpec("QUANT_001", config.AnalysisQuant), stubFundamentals{data: f}, logger.Nop())
	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if result.Score.Total != 100 {
		t.Errorf("total = %d, want 100 for top-band metrics", result.Score.Total)
	}
	if result.Recommendation != models.RecommendationBuy {
		t.Errorf("recommendation = %s, want BUY", result.Recommendation)
	}

	details, ok := result.Details.(*models.QuantPayload)
	if !ok {
		t.Fatal("details payload missing")
	}
	if details.PeerComparison != "outperforming peers" {
		t.Errorf("peer comparison = %q", details.PeerComparison)
	}
}

func TestQuantScorerMissingMetricsUsesDefaults(t *testing.T) {
	scorer := NewQuantScorer(testSpec("QUANT_001", config.AnalysisQuant),
		stubFundamentals{data: &dataflows.Fundamentals{Symbol: "005930.KS"}}, logger.Nop())

	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	// Neutral defaults: D/E 100 -> 7, current 1.0 -> 3, PER 20 -> 5,
	// PBR 2.0 -> 3, PEG 2.0 -> 2, EV/EBITDA 12 -> 2. Everything else zero.
	if result.Score.Total != 22 {
		t.Errorf("total = %d, want 22 from neutral defaults", result.Score.Total)
	}
	if result.Recommendation != models.RecommendationSell {
		t.Errorf("recommendation = %s, want SELL", result.Recommendation)
	}
	if err := result.Score.Validate(); err != nil {
		t.Errorf("score invalid: %v", err)
	}
}

func TestQuantScorerFetchFailure(t *testing.T) {
	scorer := NewQuantScorer(testSpec("QUANT_001", config.AnalysisQuant),
		stubFundamentals{err: errors.New("metrics feed down")}, logger.Nop())

	if _, err := scorer.Score(context.Background(), testSymbol); err == nil {
		t.Fatal("Score() expected error when fundamentals are unavailable")
	}
}

func TestQualitativeScorerRiskLadder(t *testing.T) {
	risky := &dataflows.Fundamentals{
		Symbol:        "005930.KS",
		Beta:          dataflows.Float(1.8),
		DebtToEquity:  dataflows.Float(250),
		RevenueGrowth: dataflows.Float(-15),
		CurrentRatio:  dataflows.Float(0.6),
	}

	scorer := NewQualitativeScorer(testSpec("QUAL_001", config.AnalysisQualitative),
		stubFundamentals{data: risky}, stubQuotes{err: errors.New("no quote")}, logger.Nop())

	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	var riskSub *models.SubScore
	for i := range result.Score.SubScores {
		if result.Score.SubScores[i].Name == "risk_factors" {
			riskSub = &result.Score.SubScores[i]
		}
	}
	if riskSub == nil {
		t.Fatal("risk_factors sub-score missing")
	}
	// 25 - 8 (beta) - 7 (debt) - 6 (revenue) - 4 (liquidity) = 0.
	if riskSub.Score != 0 {
		t.Errorf("risk_factors = %d, want 0 for a maximally risky profile", riskSub.Score)
	}
	if len(result.Score.Risks) == 0 {
		t.Error("expected risk annotations")
	}
}

func TestQualitativeScorerCleanProfile(t *testing.T) {
	clean := &dataflows.Fundamentals{
		Symbol:        "005930.KS",
		Beta:          dataflows.Float(0.9),
		DebtToEquity:  dataflows.Float(30),
		RevenueGrowth: dataflows.Float(8),
		CurrentRatio:  dataflows.Float(2.2),
		GrossMargin:   dataflows.Float(45),
		MarketCap:     dataflows.Float(400e12),
		Sector:        "Technology",
	}

	scorer := NewQualitativeScorer(testSpec("QUAL_001", config.AnalysisQualitative),
		stubFundamentals{data: clean}, stubQuotes{}, logger.Nop())

	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	for _, sub := range result.Score.SubScores {
		if sub.Name == "risk_factors" && sub.Score != 25 {
			t.Errorf("risk_factors = %d, want full 25 for a clean profile", sub.Score)
		}
	}

	details, ok := result.Details.(*models.QualitativePayload)
	if !ok {
		t.Fatal("details payload missing")
	}
	if details.MoatRating != "Wide" {
		t.Errorf("moat = %q, want Wide", details.MoatRating)
	}
}

func TestSentimentScorerNoNews(t *testing.T) {
	scorer := NewSentimentScorer(testSpec("NEWS_001", config.AnalysisSentiment),
		stubNews{}, stubPrices{candles: trendCandles(40, 100, 0.5, 1000)}, logger.Nop())

	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	for _, sub := range result.Score.SubScores {
		if sub.Name == "news_sentiment" && sub.Score != 12 {
			t.Errorf("news_sentiment = %d, want neutral 12 with no articles", sub.Score)
		}
	}
}

func TestSentimentScorerPositiveFlow(t *testing.T) {
	articles := []dataflows.NewsArticle{
		{Title: "Shares surge on record earnings beat"},
		{Title: "Analysts see further growth ahead"},
		{Title: "Profit jumps 40 percent"},
		{Title: "Strong demand drives rally"},
	}

	scorer := NewSentimentScorer(testSpec("NEWS_001", config.AnalysisSentiment),
		stubNews{articles: articles}, stubPrices{candles: trendCandles(40, 100, 1, 1000)}, logger.Nop())

	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	for _, sub := range result.Score.SubScores {
		if sub.Name == "news_sentiment" && sub.Score != 25 {
			t.Errorf("news_sentiment = %d, want 25 for fully positive flow", sub.Score)
		}
	}

	details, ok := result.Details.(*models.SentimentPayload)
	if !ok {
		t.Fatal("details payload missing")
	}
	if details.SentimentTrend != "Improving" {
		t.Errorf("trend = %q, want Improving", details.SentimentTrend)
	}
}

func TestSentimentScorerEventRisk(t *testing.T) {
	articles := []dataflows.NewsArticle{
		{Title: "Company faces lawsuit over patent dispute"},
		{Title: "Regulator opens investigation into accounting"},
		{Title: "Secondary offering planned to raise capital"},
	}

	scorer := NewSentimentScorer(testSpec("NEWS_001", config.AnalysisSentiment),
		stubNews{articles: articles}, stubPrices{err: errors.New("no candles")}, logger.Nop())

	result, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	for _, sub := range result.Score.SubScores {
		if sub.Name == "event_risk" {
			// 25 - 10 (two litigation hits) - 3 (one offering hit) = 12.
			if sub.Score != 12 {
				t.Errorf("event_risk = %d, want 12", sub.Score)
			}
		}
	}
	if len(result.Score.Risks) == 0 {
		t.Error("expected event risk annotations")
	}
}

func TestSentimentScorerFetchFailure(t *testing.T) {
	scorer := NewSentimentScorer(testSpec("NEWS_001", config.AnalysisSentiment),
		stubNews{err: errors.New("news feed down")}, stubPrices{}, logger.Nop())

	if _, err := scorer.Score(context.Background(), testSymbol); err == nil {
		t.Fatal("Score() expected error when the news fetch fails")
	}
}

func TestNewScorerRejectsUnknownType(t *testing.T) {
	_, err := NewScorer(testSpec("X_001", "astrology"), Dependencies{}, logger.Nop())
	if err == nil {
		t.Fatal("NewScorer() expected error for unknown analysis type")
	}
}

func TestScorerDeterminism(t *testing.T) {
	scorer := NewTechnicalScorer(testSpec("TECH_001", config.AnalysisTechnical),
		stubPrices{candles: trendCandles(80, 100, 1, 1000)}, logger.Nop())

	first, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	second, err := scorer.Score(context.Background(), testSymbol)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if first.Score.Total != second.Score.Total {
		t.Errorf("same input scored differently: %d then %d", first.Score.Total, second.Score.Total)
	}
}
