package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// Market cap tiers in KRW for Korean listings.
const (
	capMega  = 100e12
	capLarge = 50e12
	capMid   = 10e12
	capSmall = 1e12
)

// QualitativeScorer scores business model, management, industry outlook and
// risk factors, 25 points each. Risk factors is an inverted ladder: it starts
// full and loses points per observed risk.
type QualitativeScorer struct {
	spec         config.AgentSpec
	fundamentals FundamentalsSource
	quotes       QuoteSource
	log          zerolog.Logger
}

// NewQualitativeScorer creates the qualitative dimension scorer.
func NewQualitativeScorer(spec config.AgentSpec, fundamentals FundamentalsSource, quotes QuoteSource, log zerolog.Logger) *QualitativeScorer {
	return &QualitativeScorer{
		spec:         spec,
		fundamentals: fundamentals,
		quotes:       quotes,
		log:          log.With().Str("agent", spec.ID).Logger(),
	}
}

func (ql *QualitativeScorer) Spec() config.AgentSpec { return ql.spec }

// Score fetches fundamentals (and the quote for market cap fallback) and
// walks the four qualitative ladders.
func (ql *QualitativeScorer) Score(ctx context.Context, symbol models.Symbol) (*models.AgentResult, error) {
	f, err := ql.fundamentals.Fundamentals(ctx, symbol.Code)
	if err != nil {
		return nil, fmt.Errorf("qualitative analysis for %s: %w", symbol.Code, err)
	}

	marketCap := dataflows.Value(f.MarketCap, 0)
	if marketCap == 0 && ql.quotes != nil {
		// Market cap is frequently absent from the metrics feed.
		if quote, err := ql.quotes.Quote(ctx, symbol.Code); err == nil {
			marketCap = quote.MarketCap
		}
	}

	ql.log.Debug().Str("symbol", symbol.Code).Float64("market_cap", marketCap).Msg("scoring qualitative dimension")

	var signals, risks []string

	business := ql.scoreBusinessModel(f, marketCap, &signals)
	management := ql.scoreManagement(f, &signals, &risks)
	industry := ql.scoreIndustryOutlook(f, &signals)
	riskScore := ql.scoreRiskFactors(f, &risks)

	score := models.NewDimensionScore(config.AnalysisQualitative, []models.SubScore{
		{Name: "business_model", Score: business, Max: 25},
		{Name: "management", Score: management, Max: 25},
		{Name: "industry_outlook", Score: industry, Max: 25},
		{Name: "risk_factors", Score: riskScore, Max: 25},
	}, signals, risks)

	details := &models.QualitativePayload{
		MarketCap:  marketCap,
		Sector:     f.Sector,
		Industry:   f.Industry,
		Beta:       dataflows.Value(f.Beta, defaultBeta),
		MoatRating: moatRating(f, marketCap),
	}

	return newResult(ql.spec, symbol, score, details), nil
}

// scoreBusinessModel: scale, sector character, margin quality, R&D intensity.
func (ql *QualitativeScorer) scoreBusinessModel(f *dataflows.Fundamentals, marketCap float64, signals *[]string) int {
	score := 0

	switch {
	case marketCap >= capMega:
		score += 8
		*signals = append(*signals, "mega-cap market position")
	case marketCap >= capLarge:
		score += 7
	case marketCap >= capMid:
		score += 5
	case marketCap >= capSmall:
		score += 3
	default:
		score += 1
	}

	switch sectorCategory(f.Sector) {
	case "growth":
		score += 6
	case "stable", "defensive":
		score += 5
	default:
		score += 3
	}

	switch gm := dataflows.Value(f.GrossMargin, 0); {
	case gm >= 50:
		score += 7
		*signals = append(*signals, fmt.Sprintf("strong gross margin (%.1f%%)", gm))
	case gm >= 30:
		score += 5
	case gm >= 15:
		score += 3
	default:
		score += 1
	}

	// R&D intensity proxy from the sector.
	switch sectorCategory(f.Sector) {
	case "growth":
		score += 4
	case "defensive":
		score += 2
	}

	return clamp(score, 0, 25)
}

// scoreManagement: shareholder returns and ownership structure.
func (ql *QualitativeScorer) scoreManagement(f *dataflows.Fundamentals, signals, risks *[]string) int {
	score := 0

	switch dy := dataflows.Value(f.DividendYield, 0); {
	case dy >= 3:
		score += 10
		*signals = append(*signals, fmt.Sprintf("generous dividend yield (%.1f%%)", dy))
	case dy >= 2:
		score += 8
	case dy >= 1:
		score += 5
	case dy > 0:
		score += 3
	}

	switch payout := dataflows.Value(f.PayoutRatio, 0); {
	case payout > 0 && payout <= 60:
		score += 5
	case payout > 60:
		score += 3
	}

	if insider := dataflows.Value(f.InsiderOwnership, 0); insider >= 10 && insider <= 40 {
		score += 3
	}

	inst := dataflows.Value(f.InstitutionalOwnership, 0)
	switch {
	case inst >= 30:
		score += 3
	case f.InstitutionalOwnership != nil && inst < 10:
		*risks = append(*risks, "low institutional ownership")
	}

	switch employees := dataflows.Value(f.Employees, 0); {
	case employees > 10000:
		score += 4
	case employees > 1000:
		score += 2
	}

	return clamp(score, 0, 25)
}

// scoreIndustryOutlook: sector prospects, industry position, market beta.
func (ql *QualitativeScorer) scoreIndustryOutlook(f *dataflows.Fundamentals, signals *[]string) int {
	score := 0

	switch sectorCategory(f.Sector) {
	case "growth":
		score += 10
		*signals = append(*signals, fmt.Sprintf("growth sector exposure (%s)", f.Sector))
	case "stable":
		score += 7
	case "defensive":
		score += 5
	default:
		score += 4
	}

	industry := strings.ToLower(f.Industry)
	switch {
	case strings.Contains(industry, "semiconductor") || strings.Contains(industry, "software") || strings.Contains(industry, "internet"):
		score += 8
	case strings.Contains(industry, "electronic") || strings.Contains(industry, "hardware"):
		score += 6
	case strings.Contains(industry, "bank") || strings.Contains(industry, "insurance"):
		score += 4
	default:
		score += 3
	}

	switch beta := dataflows.Value(f.Beta, defaultBeta); {
	case beta >= 1.2:
		score += 7
	case beta >= 0.9:
		score += 5
	case beta >= 0.7:
		score += 4
	default:
		score += 2
	}

	return clamp(score, 0, 25)
}

// scoreRiskFactors starts at 25 and deducts per observed risk, floored at 0.
func (ql *QualitativeScorer) scoreRiskFactors(f *dataflows.Fundamentals, risks *[]string) int {
	score := 25

	beta := dataflows.Value(f.Beta, defaultBeta)
	switch {
	case beta >= 1.5:
		score -= 8
		*risks = append(*risks, fmt.Sprintf("high market sensitivity (beta %.2f)", beta))
	case beta >= 1.2:
		score -= 5
	case beta >= 1.0:
		score -= 2
	}

	de := dataflows.Value(f.DebtToEquity, defaultDebtToEquity)
	switch {
	case de >= 200:
		score -= 7
		*risks = append(*risks, fmt.Sprintf("excessive leverage (D/E %.0f%%)", de))
	case de >= 100:
		score -= 4
	}

	rev := dataflows.Value(f.RevenueGrowth, 0)
	switch {
	case rev < -10:
		score -= 6
		*risks = append(*risks, fmt.Sprintf("sharp revenue contraction (%.1f%%)", rev))
	case rev < 0:
		score -= 3
	}

	current := dataflows.Value(f.CurrentRatio, defaultCurrentRatio)
	switch {
	case current < 0.8:
		score -= 4
		*risks = append(*risks, fmt.Sprintf("liquidity strain (current ratio %.2f)", current))
	case current < 1.0:
		score -= 2
	}

	return clamp(score, 0, 25)
}

// sectorCategory buckets a sector name into growth / stable / defensive.
func sectorCategory(sector string) string {
	s := strings.ToLower(sector)
	switch {
	case strings.Contains(s, "tech") || strings.Contains(s, "communication") || strings.Contains(s, "health"):
		return "growth"
	case strings.Contains(s, "financ") || strings.Contains(s, "industrial"):
		return "stable"
	case strings.Contains(s, "consumer") || strings.Contains(s, "utilit"):
		return "defensive"
	default:
		return "other"
	}
}

// moatRating is a coarse durable-advantage label from margin and scale.
func moatRating(f *dataflows.Fundamentals, marketCap float64) string {
	gm := dataflows.Value(f.GrossMargin, 0)
	switch {
	case gm >= 40 && marketCap >= capMid:
		return "Wide"
	case gm >= 25:
		return "Narrow"
	default:
		return "None"
	}
}
