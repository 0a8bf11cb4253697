// Package models defines the score, result and run types shared by the
// scoring agents, the pipeline and the storage layer.
package models

import (
	"fmt"
	"time"
)

// Recommendation is a single agent's vote.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationHold Recommendation = "HOLD"
	RecommendationSell Recommendation = "SELL"
)

// RecommendationForScore maps a 0-100 total score to a vote.
// This is the single place the thresholds live.
func RecommendationForScore(total int) Recommendation {
	switch {
	case total >= 70:
		return RecommendationBuy
	case total >= 50:
		return RecommendationHold
	default:
		return RecommendationSell
	}
}

// Consensus is the aggregated stance of one pipeline level.
type Consensus string

const (
	ConsensusStrongBuy Consensus = "STRONG_BUY"
	ConsensusBuy       Consensus = "BUY"
	ConsensusHold      Consensus = "HOLD"
	ConsensusSell      Consensus = "SELL"
)

// Classification is the final position decision.
type Classification string

const (
	ClassificationLong    Classification = "LONG"
	ClassificationNeutral Classification = "NEUTRAL"
	ClassificationShort   Classification = "SHORT"
)

// Conviction expresses how far the composite sits from a decision boundary.
type Conviction string

const (
	ConvictionHigh   Conviction = "HIGH"
	ConvictionMedium Conviction = "MEDIUM"
	ConvictionLow    Conviction = "LOW"
)

// Symbol identifies a stock under analysis.
type Symbol struct {
	Code string `json:"symbol"`
	Name string `json:"name"`
}

// SubScore is one scored sub-dimension with its cap.
type SubScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Max   int    `json:"max"`
}

// DimensionScore is the scored output of one agent: ordered sub-scores that
// sum exactly to Total, plus the signals and risks observed along the way.
type DimensionScore struct {
	Dimension string     `json:"dimension"`
	SubScores []SubScore `json:"sub_scores"`
	Total     int        `json:"total_score"`
	Signals   []string   `json:"key_signals"`
	Risks     []string   `json:"risk_factors"`
}

// NewDimensionScore builds a DimensionScore with Total derived from the
// sub-scores, never supplied independently.
func NewDimensionScore(dimension string, subs []SubScore, signals, risks []string) DimensionScore {
	total := 0
	for _, s := range subs {
		total += s.Score
	}
	return DimensionScore{
		Dimension: dimension,
		SubScores: subs,
		Total:     total,
		Signals:   signals,
		Risks:     risks,
	}
}

// Validate checks the internal consistency of the score.
func (d *DimensionScore) Validate() error {
	sum := 0
	for _, s := range d.SubScores {
		if s.Score < 0 || s.Score > s.Max {
			return fmt.Errorf("sub-score %s = %d outside [0, %d]", s.Name, s.Score, s.Max)
		}
		sum += s.Score
	}
	if sum != d.Total {
		return fmt.Errorf("total %d does not match sub-score sum %d", d.Total, sum)
	}
	if d.Total < 0 || d.Total > 100 {
		return fmt.Errorf("total %d outside [0, 100]", d.Total)
	}
	return nil
}

// AgentResult is the envelope every agent returns on success.
type AgentResult struct {
	AgentID        string         `json:"agent_id"`
	AgentName      string         `json:"agent_name"`
	AnalysisType   string         `json:"analysis_type"`
	Symbol         string         `json:"symbol"`
	Name           string         `json:"name,omitempty"`
	Score          DimensionScore `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
	Details        interface{}    `json:"details,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// AgentFailure records an agent that produced no score.
type AgentFailure struct {
	AgentID      string `json:"agent_id"`
	AnalysisType string `json:"analysis_type"`
	Reason       string `json:"reason"`
}

// VoteCounts tallies the recommendations of one level.
type VoteCounts struct {
	Buy  int `json:"buy"`
	Hold int `json:"hold"`
	Sell int `json:"sell"`
}

// CountVotes tallies recommendations across results.
func CountVotes(results []*AgentResult) VoteCounts {
	var v VoteCounts
	for _, r := range results {
		switch r.Recommendation {
		case RecommendationBuy:
			v.Buy++
		case RecommendationSell:
			v.Sell++
		default:
			v.Hold++
		}
	}
	return v
}

// LevelSummary is the aggregate view of one completed level.
type LevelSummary struct {
	Level        int            `json:"level"`
	AverageScore float64        `json:"average_score"`
	Consensus    Consensus      `json:"consensus"`
	Votes        VoteCounts     `json:"votes"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	Failures     []AgentFailure `json:"failures,omitempty"`
}

// Stage is the per-symbol pipeline state machine.
type Stage string

const (
	StagePending       Stage = "PENDING"
	StageLevel1Running Stage = "LEVEL1_RUNNING"
	StageLevel1Done    Stage = "LEVEL1_DONE"
	StageLevel2Running Stage = "LEVEL2_RUNNING"
	StageLevel2Done    Stage = "LEVEL2_DONE"
	StageLevel3Running Stage = "LEVEL3_RUNNING"
	StageCompleted     Stage = "COMPLETED"
	StageFailed        Stage = "FAILED"
)

// Status is the coarse outcome of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// PipelineRun is the full record of one symbol moving through the pipeline.
type PipelineRun struct {
	AnalysisID string    `json:"analysis_id"`
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Stage  Stage  `json:"stage"`
	Status Status `json:"status"`

	Level1        map[string]*AgentResult `json:"level_1"`
	Level1Summary *LevelSummary           `json:"level_1_summary,omitempty"`
	Level2        map[string]*AgentResult `json:"level_2"`
	Level2Summary *LevelSummary           `json:"level_2_summary,omitempty"`
	Decision      *AgentResult            `json:"level_3,omitempty"`

	FailureReason string `json:"failure_reason,omitempty"`
}

// DecisionDetails returns the typed Level 3 payload, if present.
func (r *PipelineRun) DecisionDetails() *DecisionPayload {
	if r.Decision == nil {
		return nil
	}
	if d, ok := r.Decision.Details.(*DecisionPayload); ok {
		return d
	}
	return nil
}
