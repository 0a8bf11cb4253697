package pipeline

import (
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// Aggregate folds one level's results and failures into its summary. The
// average covers successful agents only; failed agents never dilute it.
func Aggregate(level int, results []*models.AgentResult, failures []models.AgentFailure) *models.LevelSummary {
	summary := &models.LevelSummary{
		Level:     level,
		Succeeded: len(results),
		Failed:    len(failures),
		Failures:  failures,
		Consensus: models.ConsensusHold,
	}

	if len(results) == 0 {
		return summary
	}

	total := 0
	for _, r := range results {
		total += r.Score.Total
	}
	summary.AverageScore = float64(total) / float64(len(results))

	summary.Votes = models.CountVotes(results)
	summary.Consensus = consensusFor(summary.Votes)
	return summary
}

// consensusFor maps the vote tally onto the level stance.
func consensusFor(v models.VoteCounts) models.Consensus {
	switch {
	case v.Buy >= 3:
		return models.ConsensusStrongBuy
	case v.Buy >= 2:
		return models.ConsensusBuy
	case v.Sell >= 2:
		return models.ConsensusSell
	default:
		return models.ConsensusHold
	}
}
