package agents

import (
	"fmt"

	"github.com/lubanana/kstock-dashboard/internal/models"
)

// Adjuster supplies the judgment component of the composite score. It must
// be deterministic: the same summaries always produce the same judgment.
type Adjuster interface {
	Judge(level1, level2 *models.LevelSummary) (score float64, rationale []string)
}

// RuleAdjuster is the default judgment rule table. It starts from a neutral
// 50 and applies bounded bumps from the two consensus readings.
type RuleAdjuster struct{}

// Judge applies the consensus rule table, clamped to [0, 100].
func (ra *RuleAdjuster) Judge(level1, level2 *models.LevelSummary) (float64, []string) {
	score := 50.0
	var rationale []string

	switch level1.Consensus {
	case models.ConsensusStrongBuy:
		score += 20
		rationale = append(rationale, "analyst team strongly aligned bullish")
	case models.ConsensusBuy:
		score += 10
		rationale = append(rationale, "analyst team leaning bullish")
	case models.ConsensusSell:
		score -= 15
		rationale = append(rationale, "analyst team leaning bearish")
	}

	switch level2.Consensus {
	case models.ConsensusStrongBuy, models.ConsensusBuy:
		score += 10
		rationale = append(rationale, "environment supportive")
	case models.ConsensusSell:
		score -= 10
		rationale = append(rationale, "environment unfavorable")
	}

	// Alignment between the two levels firms the judgment either way.
	l1Bullish := level1.Consensus == models.ConsensusBuy || level1.Consensus == models.ConsensusStrongBuy
	l2Bullish := level2.Consensus == models.ConsensusBuy || level2.Consensus == models.ConsensusStrongBuy
	l1Bearish := level1.Consensus == models.ConsensusSell
	l2Bearish := level2.Consensus == models.ConsensusSell

	switch {
	case l1Bullish && l2Bullish:
		score += 5
	case l1Bearish && l2Bearish:
		score -= 5
	case (l1Bullish && l2Bearish) || (l1Bearish && l2Bullish):
		score -= 5
		rationale = append(rationale, "levels disagree, judgment tempered")
	}

	if len(level1.Failures) > 0 {
		score -= 5
		rationale = append(rationale, fmt.Sprintf("judgment discounted for %d failed analysts", len(level1.Failures)))
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, rationale
}
