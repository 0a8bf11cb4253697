package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// Neutral defaults applied when a metric is missing from the provider.
const (
	defaultDebtToEquity = 100.0
	defaultCurrentRatio = 1.0
	defaultPER          = 20.0
	defaultPBR          = 2.0
	defaultPEG          = 2.0
	defaultEVEBITDA     = 12.0
	defaultBeta         = 1.0
)

// QuantScorer scores profitability, growth, stability and valuation from
// reported financial metrics, 25 points each.
type QuantScorer struct {
	spec         config.AgentSpec
	fundamentals FundamentalsSource
	log          zerolog.Logger
}

// NewQuantScorer creates the quantitative dimension scorer.
func NewQuantScorer(spec config.AgentSpec, fundamentals FundamentalsSource, log zerolog.Logger) *QuantScorer {
	return &QuantScorer{spec: spec, fundamentals: fundamentals, log: log.With().Str("agent", spec.ID).Logger()}
}

func (q *QuantScorer) Spec() config.AgentSpec { return q.spec }

// Score fetches the metric set and walks the four fundamental ladders.
func (q *QuantScorer) Score(ctx context.Context, symbol models.Symbol) (*models.AgentResult, error) {
	f, err := q.fundamentals.Fundamentals(ctx, symbol.Code)
	if err != nil {
		return nil, fmt.Errorf("quantitative analysis for %s: %w", symbol.Code, err)
	}

	q.log.Debug().Str("symbol", symbol.Code).Msg("scoring quantitative dimension")

	var signals, risks []string

	profitability := q.scoreProfitability(f, &signals)
	growth := q.scoreGrowth(f, &signals, &risks)
	stability := q.scoreStability(f, &risks)
	valuation := q.scoreValuation(f, &signals, &risks)

	score := models.NewDimensionScore(config.AnalysisQuant, []models.SubScore{
		{Name: "profitability", Score: profitability, Max: 25},
		{Name: "growth", Score: growth, Max: 25},
		{Name: "stability", Score: stability, Max: 25},
		{Name: "valuation", Score: valuation, Max: 25},
	}, signals, risks)

	details := &models.QuantPayload{
		ROE:            dataflows.Value(f.ROE, 0),
		RevenueGrowth:  dataflows.Value(f.RevenueGrowth, 0),
		DebtToEquity:   dataflows.Value(f.DebtToEquity, defaultDebtToEquity),
		PER:            dataflows.Value(f.PER, defaultPER),
		PBR:            dataflows.Value(f.PBR, defaultPBR),
		PeerComparison: peerComparison(score.Total),
	}

	return newResult(q.spec, symbol, score, details), nil
}

// scoreProfitability: ROE, ROA, operating margin, net margin.
func (q *QuantScorer) scoreProfitability(f *dataflows.Fundamentals, signals *[]string) int {
	score := 0

	roe := dataflows.Value(f.ROE, 0)
	switch {
	case roe >= 20:
		score += 8
		*signals = append(*signals, fmt.Sprintf("high return on equity (%.1f%%)", roe))
	case roe >= 15:
		score += 6
	case roe >= 10:
		score += 4
	case roe > 0:
		score += 2
	}

	switch roa := dataflows.Value(f.ROA, 0); {
	case roa >= 10:
		score += 5
	case roa >= 5:
		score += 3
	case roa > 0:
		score += 1
	}

	switch om := dataflows.Value(f.OperatingMargin, 0); {
	case om >= 20:
		score += 6
	case om >= 10:
		score += 4
	case om >= 5:
		score += 2
	case om > 0:
		score += 1
	}

	switch nm := dataflows.Value(f.NetMargin, 0); {
	case nm >= 15:
		score += 6
	case nm >= 8:
		score += 4
	case nm >= 3:
		score += 2
	case nm > 0:
		score += 1
	}

	return clamp(score, 0, 25)
}

// scoreGrowth: revenue, earnings and EPS growth rates.
func (q *QuantScorer) scoreGrowth(f *dataflows.Fundamentals, signals, risks *[]string) int {
	score := 0

	rev := dataflows.Value(f.RevenueGrowth, 0)
	switch {
	case rev >= 30:
		score += 10
		*signals = append(*signals, fmt.Sprintf("strong revenue growth (%.1f%%)", rev))
	case rev >= 15:
		score += 8
	case rev >= 5:
		score += 5
	case rev > 0:
		score += 2
	default:
		if f.RevenueGrowth != nil && rev < 0 {
			*risks = append(*risks, fmt.Sprintf("shrinking revenue (%.1f%%)", rev))
		}
	}

	switch earn := dataflows.Value(f.EarningsGrowth, 0); {
	case earn >= 30:
		score += 8
	case earn >= 15:
		score += 6
	case earn >= 5:
		score += 3
	case earn > 0:
		score += 1
	}

	switch eps := dataflows.Value(f.EPSGrowth, 0); {
	case eps >= 25:
		score += 7
	case eps >= 10:
		score += 5
	case eps > 0:
		score += 2
	}

	return clamp(score, 0, 25)
}

// scoreStability: leverage, liquidity and cash generation.
func (q *QuantScorer) scoreStability(f *dataflows.Fundamentals, risks *[]string) int {
	score := 0

	de := dataflows.Value(f.DebtToEquity, defaultDebtToEquity)
	switch {
	case de <= 50:
		score += 10
	case de <= 100:
		score += 7
	case de <= 150:
		score += 4
	case de <= 200:
		score += 2
	default:
		*risks = append(*risks, fmt.Sprintf("high leverage (D/E %.0f%%)", de))
	}

	current := dataflows.Value(f.CurrentRatio, defaultCurrentRatio)
	switch {
	case current >= 2.0:
		score += 8
	case current >= 1.5:
		score += 6
	case current >= 1.0:
		score += 3
	default:
		*risks = append(*risks, fmt.Sprintf("thin liquidity (current ratio %.2f)", current))
	}

	switch cf := dataflows.Value(f.CashFlowMargin, 0); {
	case cf >= 15:
		score += 7
	case cf >= 8:
		score += 5
	case cf > 0:
		score += 2
	}

	return clamp(score, 0, 25)
}

// scoreValuation: PER, PBR, PEG and EV/EBITDA multiples.
func (q *QuantScorer) scoreValuation(f *dataflows.Fundamentals, signals, risks *[]string) int {
	score := 0

	per := dataflows.Value(f.PER, defaultPER)
	switch {
	case per >= 8 && per <= 15:
		score += 8
		*signals = append(*signals, fmt.Sprintf("reasonable earnings multiple (PER %.1f)", per))
	case per > 0 && per < 8:
		score += 6
	case per <= 20:
		score += 5
	case per <= 30:
		score += 2
	default:
		*risks = append(*risks, fmt.Sprintf("rich valuation (PER %.1f)", per))
	}

	switch pbr := dataflows.Value(f.PBR, defaultPBR); {
	case pbr > 0 && pbr <= 1.0:
		score += 6
	case pbr <= 1.5:
		score += 5
	case pbr <= 2.5:
		score += 3
	case pbr <= 4.0:
		score += 1
	}

	switch peg := dataflows.Value(f.PEG, defaultPEG); {
	case peg > 0 && peg <= 1.0:
		score += 6
	case peg <= 1.5:
		score += 4
	case peg <= 2.0:
		score += 2
	}

	switch ev := dataflows.Value(f.EVEBITDA, defaultEVEBITDA); {
	case ev > 0 && ev <= 6:
		score += 5
	case ev <= 10:
		score += 4
	case ev <= 15:
		score += 2
	}

	return clamp(score, 0, 25)
}

// peerComparison buckets the total into a relative standing label.
func peerComparison(total int) string {
	switch {
	case total >= 80:
		return "outperforming peers"
	case total >= 60:
		return "in line with peers"
	case total >= 40:
		return "lagging peers"
	default:
		return "significantly lagging peers"
	}
}
