package models

import "testing"

func TestRecommendationForScore(t *testing.T) {
	tests := []struct {
		total int
		want  Recommendation
	}{
		{100, RecommendationBuy},
		{70, RecommendationBuy},
		{69, RecommendationHold},
		{50, RecommendationHold},
		{49, RecommendationSell},
		{0, RecommendationSell},
	}

	for _, tt := range tests {
		if got := RecommendationForScore(tt.total); got != tt.want {
			t.Errorf("RecommendationForScore(%d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestNewDimensionScoreTotal(t *testing.T) {
	score := NewDimensionScore("technical", []SubScore{
		{Name: "price_trend", Score: 20, Max: 25},
		{Name: "momentum", Score: 15, Max: 25},
		{Name: "bollinger", Score: 12, Max: 25},
		{Name: "volume", Score: 18, Max: 25},
	}, []string{"uptrend"}, nil)

	if score.Total != 65 {
		t.Errorf("total = %d, want 65", score.Total)
	}
	if err := score.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestDimensionScoreValidate(t *testing.T) {
	tests := []struct {
		name  string
		score DimensionScore
	}{
		{
			"total mismatch",
			DimensionScore{
				Dimension: "quantitative",
				SubScores: []SubScore{{Name: "profitability", Score: 10, Max: 25}},
				Total:     20,
			},
		},
		{
			"sub-score over cap",
			DimensionScore{
				Dimension: "quantitative",
				SubScores: []SubScore{{Name: "profitability", Score: 30, Max: 25}},
				Total:     30,
			},
		},
		{
			"negative sub-score",
			DimensionScore{
				Dimension: "quantitative",
				SubScores: []SubScore{{Name: "profitability", Score: -1, Max: 25}},
				Total:     -1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.score.Validate(); err == nil {
				t.Errorf("Validate() expected error for %s", tt.name)
			}
		})
	}
}

func TestCountVotes(t *testing.T) {
	results := []*AgentResult{
		{Recommendation: RecommendationBuy},
		{Recommendation: RecommendationBuy},
		{Recommendation: RecommendationHold},
		{Recommendation: RecommendationSell},
	}

	votes := CountVotes(results)
	if votes.Buy != 2 || votes.Hold != 1 || votes.Sell != 1 {
		t.Errorf("votes = %+v, want {Buy:2 Hold:1 Sell:1}", votes)
	}
}
