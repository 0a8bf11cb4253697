package pipeline

import (
	"testing"

	"github.com/lubanana/kstock-dashboard/internal/models"
)

func resultWithTotal(id string, total int) *models.AgentResult {
	score := models.NewDimensionScore("technical", []models.SubScore{
		{Name: "fixture", Score: total, Max: 100},
	}, nil, nil)
	return &models.AgentResult{
		AgentID:        id,
		Symbol:         "005930.KS",
		Score:          score,
		Recommendation: models.RecommendationForScore(total),
	}
}

func TestAggregateConsensus(t *testing.T) {
	cases := []struct {
		name   string
		totals []int
		want   models.Consensus
	}{
		{"four buys", []int{80, 75, 90, 72}, models.ConsensusStrongBuy},
		{"three buys", []int{80, 75, 90, 55}, models.ConsensusStrongBuy},
		{"two buys", []int{80, 65, 55, 90}, models.ConsensusBuy},
		{"two sells", []int{30, 40, 60, 65}, models.ConsensusSell},
		{"mixed holds", []int{55, 60, 65, 45}, models.ConsensusHold},
		{"one of each", []int{75, 55, 40, 60}, models.ConsensusHold},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var results []*models.AgentResult
			for i, total := range tc.totals {
				results = append(results, resultWithTotal(string(rune('A'+i)), total))
			}
			summary := Aggregate(1, results, nil)
			if summary.Consensus != tc.want {
				t.Errorf("consensus = %s, want %s", summary.Consensus, tc.want)
			}
		})
	}
}

func TestAggregateAverageExcludesFailures(t *testing.T) {
	results := []*models.AgentResult{
		resultWithTotal("TECH_001", 80),
		resultWithTotal("QUANT_001", 60),
	}
	failures := []models.AgentFailure{
		{AgentID: "QUAL_001", Reason: "feed down"},
		{AgentID: "NEWS_001", Reason: "feed down"},
	}

	summary := Aggregate(1, results, failures)
	if summary.AverageScore != 70 {
		t.Errorf("average = %.1f, want 70 over the two survivors", summary.AverageScore)
	}
	if summary.Succeeded != 2 || summary.Failed != 2 {
		t.Errorf("succeeded/failed = %d/%d, want 2/2", summary.Succeeded, summary.Failed)
	}
}

func TestAggregateAllFailed(t *testing.T) {
	failures := []models.AgentFailure{{AgentID: "TECH_001", Reason: "feed down"}}

	summary := Aggregate(1, nil, failures)
	if summary.Succeeded != 0 {
		t.Errorf("succeeded = %d, want 0", summary.Succeeded)
	}
	if summary.AverageScore != 0 {
		t.Errorf("average = %.1f, want 0", summary.AverageScore)
	}
	if summary.Consensus != models.ConsensusHold {
		t.Errorf("consensus = %s, want HOLD", summary.Consensus)
	}
}

func TestAggregateSpecificAverage(t *testing.T) {
	totals := []int{80, 65, 55, 90}
	var results []*models.AgentResult
	for i, total := range totals {
		results = append(results, resultWithTotal(string(rune('A'+i)), total))
	}

	summary := Aggregate(1, results, nil)
	if summary.AverageScore != 72.5 {
		t.Errorf("average = %.2f, want 72.5", summary.AverageScore)
	}
	if summary.Votes.Buy != 2 || summary.Votes.Hold != 2 || summary.Votes.Sell != 0 {
		t.Errorf("votes = %+v, want 2 buy / 2 hold", summary.Votes)
	}
}
