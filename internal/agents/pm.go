package agents

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// Composite weights across the three inputs.
const (
	weightLevel1   = 0.5
	weightLevel2   = 0.3
	weightJudgment = 0.2
)

// Decision boundaries on the composite score.
const (
	longThreshold  = 70.0
	shortThreshold = 40.0
)

// PortfolioManager synthesizes the two level summaries into the final
// position decision.
type PortfolioManager struct {
	spec     config.AgentSpec
	adjuster Adjuster
	log      zerolog.Logger
}

// NewPortfolioManager creates the Level 3 agent. A nil adjuster falls back
// to the default rule table.
func NewPortfolioManager(spec config.AgentSpec, adjuster Adjuster, log zerolog.Logger) *PortfolioManager {
	if adjuster == nil {
		adjuster = &RuleAdjuster{}
	}
	return &PortfolioManager{spec: spec, adjuster: adjuster, log: log.With().Str("agent", spec.ID).Logger()}
}

func (pm *PortfolioManager) Spec() config.AgentSpec { return pm.spec }

// Synthesize combines the level averages with the adjuster's judgment into
// the composite score and classifies the position.
func (pm *PortfolioManager) Synthesize(symbol models.Symbol, level1, level2 *models.LevelSummary) (*models.AgentResult, error) {
	if level1 == nil || level2 == nil {
		return nil, fmt.Errorf("decision synthesis for %s: missing level summaries", symbol.Code)
	}

	judgment, rationale := pm.adjuster.Judge(level1, level2)
	composite := weightLevel1*level1.AverageScore + weightLevel2*level2.AverageScore + weightJudgment*judgment

	classification := classify(composite)
	conviction := convictionFor(composite)

	pm.log.Info().
		Str("symbol", symbol.Code).
		Float64("composite", composite).
		Str("classification", string(classification)).
		Msg("decision synthesized")

	rationale = append(rationale,
		fmt.Sprintf("level 1 average %.1f with %s consensus", level1.AverageScore, level1.Consensus),
		fmt.Sprintf("level 2 average %.1f with %s consensus", level2.AverageScore, level2.Consensus),
		fmt.Sprintf("composite %.2f classified %s (%s conviction)", composite, classification, conviction),
	)

	subs := []models.SubScore{
		{Name: "level_1_contribution", Score: int(math.Round(weightLevel1 * level1.AverageScore)), Max: 50},
		{Name: "level_2_contribution", Score: int(math.Round(weightLevel2 * level2.AverageScore)), Max: 30},
		{Name: "judgment", Score: int(math.Round(weightJudgment * judgment)), Max: 20},
	}

	var signals, risks []string
	signals = append(signals, rationale...)
	if conviction == models.ConvictionLow {
		risks = append(risks, "composite sits close to a decision boundary")
	}

	score := models.NewDimensionScore(config.AnalysisDecision, subs, signals, risks)

	details := &models.DecisionPayload{
		Composite:      composite,
		Level1Average:  level1.AverageScore,
		Level2Average:  level2.AverageScore,
		Judgment:       judgment,
		Classification: classification,
		Conviction:     conviction,
		Rationale:      rationale,
	}

	return newResult(pm.spec, symbol, score, details), nil
}

// classify maps the composite onto the position bands.
func classify(composite float64) models.Classification {
	switch {
	case composite >= longThreshold:
		return models.ClassificationLong
	case composite <= shortThreshold:
		return models.ClassificationShort
	default:
		return models.ClassificationNeutral
	}
}

// convictionFor grades the distance to the nearest decision boundary.
func convictionFor(composite float64) models.Conviction {
	distance := math.Min(
		math.Abs(composite-longThreshold),
		math.Abs(composite-shortThreshold),
	)
	switch {
	case distance >= 15:
		return models.ConvictionHigh
	case distance >= 5:
		return models.ConvictionMedium
	default:
		return models.ConvictionLow
	}
}
