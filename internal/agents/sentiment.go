package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/indicators"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// Article window considered for sentiment and event scanning.
const (
	newsLookbackDays = 14
	newsSampleSize   = 20
)

var positiveWords = []string{
	"surge", "jump", "rally", "rise", "gain", "beat", "record", "growth",
	"profit", "upgrade", "expand", "strong",
	"상승", "호조", "최대", "신기록", "흑자", "성장",
}

var negativeWords = []string{
	"fall", "drop", "decline", "plunge", "loss", "miss", "downgrade",
	"cut", "weak", "slump",
	"하락", "부진", "적자", "급락", "감소",
}

// Event keyword groups for the inverted event risk ladder.
var eventKeywords = map[string][]string{
	"earnings":   {"earnings", "guidance", "실적", "전망치"},
	"offering":   {"offering", "dilution", "유상증자", "증자", "전환사채"},
	"litigation": {"lawsuit", "probe", "investigation", "regulator", "소송", "규제", "조사"},
	"executive":  {"resign", "ceo change", "indicted", "사임", "구속", "경영진"},
}

// SentimentScorer scores news tone, market interest, event risk and price
// momentum, 25 points each.
type SentimentScorer struct {
	spec   config.AgentSpec
	news   NewsSource
	prices PriceSource
	log    zerolog.Logger
}

// NewSentimentScorer creates the sentiment dimension scorer.
func NewSentimentScorer(spec config.AgentSpec, news NewsSource, prices PriceSource, log zerolog.Logger) *SentimentScorer {
	return &SentimentScorer{spec: spec, news: news, prices: prices, log: log.With().Str("agent", spec.ID).Logger()}
}

func (sc *SentimentScorer) Spec() config.AgentSpec { return sc.spec }

// Score fetches recent news plus candles and walks the four sentiment ladders.
// A failed news fetch fails the agent; an empty feed degrades to neutral.
func (sc *SentimentScorer) Score(ctx context.Context, symbol models.Symbol) (*models.AgentResult, error) {
	articles, err := sc.news.CompanyNews(ctx, symbol.Code, symbol.Name, newsLookbackDays)
	if err != nil {
		return nil, fmt.Errorf("sentiment analysis for %s: %w", symbol.Code, err)
	}
	if len(articles) > newsSampleSize {
		articles = articles[:newsSampleSize]
	}

	var snap *indicators.Snapshot
	if candles, err := sc.prices.DailyCandles(ctx, symbol.Code, 60); err == nil {
		snap = indicators.Compute(candles)
	} else {
		sc.log.Warn().Err(err).Str("symbol", symbol.Code).Msg("price history unavailable for sentiment momentum")
	}

	sc.log.Debug().Str("symbol", symbol.Code).Int("articles", len(articles)).Msg("scoring sentiment dimension")

	var signals, risks []string

	posRatio := positiveRatio(articles)
	newsScore := sc.scoreNewsSentiment(articles, posRatio, &signals)
	socialScore := sc.scoreSocialInterest(snap, &signals)
	eventScore := sc.scoreEventRisk(articles, &signals, &risks)
	momentumScore := sc.scoreMomentumSignals(snap, &signals)

	score := models.NewDimensionScore(config.AnalysisSentiment, []models.SubScore{
		{Name: "news_sentiment", Score: newsScore, Max: 25},
		{Name: "social_media", Score: socialScore, Max: 25},
		{Name: "event_risk", Score: eventScore, Max: 25},
		{Name: "momentum_signals", Score: momentumScore, Max: 25},
	}, signals, risks)

	details := &models.SentimentPayload{
		ArticleCount:   len(articles),
		PositiveRatio:  posRatio,
		SentimentTrend: sentimentTrend(snap, posRatio),
	}
	if snap != nil {
		if snap.Return5D != nil {
			details.Return5D = *snap.Return5D
		}
		if snap.Return20D != nil {
			details.Return20D = *snap.Return20D
		}
	}

	return newResult(sc.spec, symbol, score, details), nil
}

// scoreNewsSentiment maps the positive headline ratio onto the tone ladder.
func (sc *SentimentScorer) scoreNewsSentiment(articles []dataflows.NewsArticle, posRatio float64, signals *[]string) int {
	if len(articles) == 0 {
		*signals = append(*signals, "no recent news, sentiment scored neutral")
		return neutralSubScore
	}

	switch {
	case posRatio >= 0.5:
		*signals = append(*signals, fmt.Sprintf("strongly positive news flow (%.0f%% positive)", posRatio*100))
		return 25
	case posRatio >= 0.4:
		return 20
	case posRatio >= 0.3:
		return 15
	case posRatio >= 0.2:
		return 8
	default:
		return 3
	}
}

// scoreSocialInterest uses relative volume and short-term volatility as a
// market attention proxy.
func (sc *SentimentScorer) scoreSocialInterest(snap *indicators.Snapshot, signals *[]string) int {
	if snap == nil || snap.VolumeRatio == nil {
		*signals = append(*signals, "market interest: insufficient data, scored neutral")
		return neutralSubScore
	}

	score := 0
	switch ratio := *snap.VolumeRatio; {
	case ratio >= 2.0:
		score += 15
		*signals = append(*signals, "unusually high trading interest")
	case ratio >= 1.5:
		score += 12
	case ratio >= 1.0:
		score += 8
	default:
		score += 4
	}

	if snap.Volatility5D != nil {
		switch vol := *snap.Volatility5D; {
		case vol >= 5:
			score += 10
		case vol >= 3:
			score += 7
		case vol >= 1:
			score += 5
		default:
			score += 2
		}
	} else {
		score += 5
	}

	return clamp(score, 0, 25)
}

// scoreEventRisk starts at 25 and deducts per event keyword cluster found in
// headlines, floored at 0.
func (sc *SentimentScorer) scoreEventRisk(articles []dataflows.NewsArticle, signals, risks *[]string) int {
	if len(articles) == 0 {
		return neutralSubScore
	}

	counts := map[string]int{}
	for _, a := range articles {
		title := strings.ToLower(a.Title)
		for group, words := range eventKeywords {
			for _, w := range words {
				if strings.Contains(title, w) {
					counts[group]++
					break
				}
			}
		}
	}

	score := 25
	if counts["earnings"] >= 2 {
		score -= 3
		*risks = append(*risks, "earnings event approaching")
	}
	switch {
	case counts["offering"] >= 2:
		score -= 8
		*risks = append(*risks, "repeated dilution coverage")
	case counts["offering"] > 0:
		score -= 3
	}
	switch {
	case counts["litigation"] >= 2:
		score -= 10
		*risks = append(*risks, "litigation or regulatory pressure")
	case counts["litigation"] > 0:
		score -= 5
	}
	if counts["executive"] >= 2 {
		score -= 4
		*risks = append(*risks, "management instability in the news")
	}

	if score == 25 {
		*signals = append(*signals, "no major event risk in recent news")
	}

	return clamp(score, 0, 25)
}

// scoreMomentumSignals: 5 and 20 day returns with volume confirmation.
func (sc *SentimentScorer) scoreMomentumSignals(snap *indicators.Snapshot, signals *[]string) int {
	if snap == nil || snap.Return5D == nil {
		*signals = append(*signals, "momentum: insufficient data, scored neutral")
		return neutralSubScore
	}

	score := 0
	r5 := *snap.Return5D
	switch {
	case r5 >= 10:
		score += 10
		*signals = append(*signals, fmt.Sprintf("strong short-term momentum (%.1f%% in 5 days)", r5))
	case r5 >= 5:
		score += 8
	case r5 >= 0:
		score += 5
	case r5 >= -5:
		score += 2
	}

	if snap.Return20D != nil {
		switch r20 := *snap.Return20D; {
		case r20 >= 20:
			score += 8
		case r20 >= 10:
			score += 6
		case r20 >= 0:
			score += 4
		case r20 >= -10:
			score += 2
		}
	}

	if snap.VolumeChange5D != nil {
		switch vc := *snap.VolumeChange5D; {
		case vc >= 50 && r5 > 0:
			score += 7
		case vc >= 20 && r5 > 0:
			score += 5
		case vc >= 0:
			score += 3
		default:
			score += 1
		}
	}

	return clamp(score, 0, 25)
}

// positiveRatio is the share of headlines that read positive.
func positiveRatio(articles []dataflows.NewsArticle) float64 {
	if len(articles) == 0 {
		return 0
	}
	positives := 0
	for _, a := range articles {
		title := strings.ToLower(a.Title)
		if containsAny(title, negativeWords) {
			continue
		}
		if containsAny(title, positiveWords) {
			positives++
		}
	}
	return float64(positives) / float64(len(articles))
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// sentimentTrend labels the combined direction of tone and price.
func sentimentTrend(snap *indicators.Snapshot, posRatio float64) string {
	if snap == nil || snap.Return5D == nil {
		return "Stable"
	}
	switch {
	case *snap.Return5D > 0 && posRatio >= 0.4:
		return "Improving"
	case *snap.Return5D < 0 && posRatio < 0.3:
		return "Declining"
	default:
		return "Stable"
	}
}
