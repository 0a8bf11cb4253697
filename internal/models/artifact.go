package models

import "time"

// Artifact is the stable per-symbol JSON document written after every run.
// Field order and naming are part of the on-disk contract.
type Artifact struct {
	AnalysisID string                  `json:"analysis_id"`
	Symbol     string                  `json:"symbol"`
	Name       string                  `json:"name"`
	Timestamp  string                  `json:"timestamp"`
	Level1     map[string]*AgentResult `json:"level_1"`
	Level2     map[string]*AgentResult `json:"level_2"`
	Level3     *AgentResult            `json:"level_3,omitempty"`
	Status     Status                  `json:"status"`

	Level1Summary *LevelSummary `json:"level_1_summary,omitempty"`
	Level2Summary *LevelSummary `json:"level_2_summary,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// ArtifactFromRun converts a finished run into its artifact form.
func ArtifactFromRun(run *PipelineRun) *Artifact {
	return &Artifact{
		AnalysisID:    run.AnalysisID,
		Symbol:        run.Symbol,
		Name:          run.Name,
		Timestamp:     run.FinishedAt.Format(time.RFC3339),
		Level1:        run.Level1,
		Level2:        run.Level2,
		Level3:        run.Decision,
		Status:        run.Status,
		Level1Summary: run.Level1Summary,
		Level2Summary: run.Level2Summary,
		FailureReason: run.FailureReason,
	}
}

// BatchEntry is one symbol's line in a batch summary.
type BatchEntry struct {
	Symbol         string         `json:"symbol"`
	Name           string         `json:"name"`
	Status         Status         `json:"status"`
	Composite      float64        `json:"composite_score,omitempty"`
	Classification Classification `json:"classification,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// BatchSummary is the aggregate document of one batch run.
type BatchSummary struct {
	Date         string       `json:"date"`
	Total        int          `json:"total"`
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
	AverageScore float64      `json:"average_score"`
	Results      []BatchEntry `json:"results"`
}
