// Package agents implements the scoring agents of the three-level analysis
// pipeline: four Level 1 dimension scorers, two Level 2 strategists and the
// Level 3 portfolio manager.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// PriceSource provides daily candle history.
type PriceSource interface {
	DailyCandles(ctx context.Context, symbol string, days int) ([]dataflows.Candle, error)
}

// QuoteSource provides current market snapshots.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*dataflows.Quote, error)
}

// FundamentalsSource provides financial metrics.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (*dataflows.Fundamentals, error)
}

// NewsSource provides recent company news.
type NewsSource interface {
	CompanyNews(ctx context.Context, symbol, name string, days int) ([]dataflows.NewsArticle, error)
}

// Dependencies bundles the data sources a scorer may draw from.
type Dependencies struct {
	Prices       PriceSource
	Quotes       QuoteSource
	Fundamentals FundamentalsSource
	News         NewsSource
}

// Scorer is a Level 1 dimension scorer: it fetches its own data and produces
// a 0-100 DimensionScore with a vote.
type Scorer interface {
	Spec() config.AgentSpec
	Score(ctx context.Context, symbol models.Symbol) (*models.AgentResult, error)
}

// NewScorer builds the Level 1 scorer matching the roster entry.
func NewScorer(spec config.AgentSpec, deps Dependencies, log zerolog.Logger) (Scorer, error) {
	switch spec.AnalysisType {
	case config.AnalysisTechnical:
		return NewTechnicalScorer(spec, deps.Prices, log), nil
	case config.AnalysisQuant:
		return NewQuantScorer(spec, deps.Fundamentals, log), nil
	case config.AnalysisQualitative:
		return NewQualitativeScorer(spec, deps.Fundamentals, deps.Quotes, log), nil
	case config.AnalysisSentiment:
		return NewSentimentScorer(spec, deps.News, deps.Prices, log), nil
	default:
		return nil, fmt.Errorf("no level 1 scorer for analysis type %q", spec.AnalysisType)
	}
}

// LevelTwoInput is what the Level 2 strategists adjust from.
type LevelTwoInput struct {
	Symbol models.Symbol
	Level1 *models.LevelSummary
	Macro  *dataflows.MacroContext
}

// LevelTwoAgent carries the Level 1 result forward through a wider lens.
type LevelTwoAgent interface {
	Spec() config.AgentSpec
	Adjust(ctx context.Context, in LevelTwoInput) (*models.AgentResult, error)
}

// newResult assembles the standard result envelope.
func newResult(spec config.AgentSpec, symbol models.Symbol, score models.DimensionScore, details interface{}) *models.AgentResult {
	return &models.AgentResult{
		AgentID:        spec.ID,
		AgentName:      spec.Name,
		AnalysisType:   spec.AnalysisType,
		Symbol:         symbol.Code,
		Name:           symbol.Name,
		Score:          score,
		Recommendation: models.RecommendationForScore(score.Total),
		Details:        details,
		Timestamp:      time.Now(),
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// baseAlignmentScore maps the Level 1 average onto the 0-40 alignment band
// shared by both Level 2 strategists.
func baseAlignmentScore(l1Average float64) int {
	switch {
	case l1Average >= 80:
		return 40
	case l1Average >= 70:
		return 34
	case l1Average >= 60:
		return 28
	case l1Average >= 50:
		return 20
	case l1Average >= 40:
		return 12
	default:
		return 6
	}
}
