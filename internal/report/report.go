// Package report renders analysis artifacts as markdown documents.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lubanana/kstock-dashboard/internal/models"
)

// Generate renders the artifact as a markdown report.
func Generate(artifact *models.Artifact) string {
	var b strings.Builder

	title := artifact.Symbol
	if artifact.Name != "" {
		title = fmt.Sprintf("%s (%s)", artifact.Name, artifact.Symbol)
	}
	fmt.Fprintf(&b, "# Analysis Report: %s\n\n", title)
	fmt.Fprintf(&b, "- Analysis ID: `%s`\n", artifact.AnalysisID)
	fmt.Fprintf(&b, "- Timestamp: %s\n", artifact.Timestamp)
	fmt.Fprintf(&b, "- Status: %s\n\n", artifact.Status)

	if artifact.Status == models.StatusFailed {
		fmt.Fprintf(&b, "## Failure\n\n%s\n", artifact.FailureReason)
		return b.String()
	}

	if d := decisionPayload(artifact); d != nil {
		fmt.Fprintf(&b, "## Decision\n\n")
		fmt.Fprintf(&b, "| Composite | Classification | Conviction |\n")
		fmt.Fprintf(&b, "|-----------|----------------|------------|\n")
		fmt.Fprintf(&b, "| %.2f | %s | %s |\n\n", d.Composite, d.Classification, d.Conviction)
		if len(d.Rationale) > 0 {
			fmt.Fprintf(&b, "### Rationale\n\n")
			for _, line := range d.Rationale {
				fmt.Fprintf(&b, "- %s\n", line)
			}
			b.WriteString("\n")
		}
	}

	writeLevel(&b, "Level 1 — Dimension Scores", artifact.Level1, artifact.Level1Summary)
	writeLevel(&b, "Level 2 — Strategy Adjustments", artifact.Level2, artifact.Level2Summary)

	return b.String()
}

// Write renders the artifact and saves it under reportsDir, returning the path.
func Write(reportsDir string, artifact *models.Artifact) (string, error) {
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.md", strings.ReplaceAll(artifact.Symbol, ".", "_"), artifact.AnalysisID)
	path := filepath.Join(reportsDir, name)
	if err := os.WriteFile(path, []byte(Generate(artifact)), 0644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}

func writeLevel(b *strings.Builder, title string, results map[string]*models.AgentResult, summary *models.LevelSummary) {
	fmt.Fprintf(b, "## %s\n\n", title)

	if summary != nil {
		fmt.Fprintf(b, "Average **%.1f**, consensus **%s** (%d succeeded, %d failed).\n\n",
			summary.AverageScore, summary.Consensus, summary.Succeeded, summary.Failed)
		for _, f := range summary.Failures {
			fmt.Fprintf(b, "> ⚠ %s failed: %s\n", f.AgentID, f.Reason)
		}
		if len(summary.Failures) > 0 {
			b.WriteString("\n")
		}
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := results[id]
		fmt.Fprintf(b, "### %s — %d/100 (%s)\n\n", r.AgentName, r.Score.Total, r.Recommendation)

		fmt.Fprintf(b, "| Sub-score | Score | Max |\n|-----------|-------|-----|\n")
		for _, sub := range r.Score.SubScores {
			fmt.Fprintf(b, "| %s | %d | %d |\n", sub.Name, sub.Score, sub.Max)
		}
		b.WriteString("\n")

		if len(r.Score.Signals) > 0 {
			fmt.Fprintf(b, "**Signals**\n\n")
			for _, s := range r.Score.Signals {
				fmt.Fprintf(b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
		if len(r.Score.Risks) > 0 {
			fmt.Fprintf(b, "**Risks**\n\n")
			for _, s := range r.Score.Risks {
				fmt.Fprintf(b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
	}
}

// decisionPayload recovers the typed decision details. Artifacts loaded back
// from disk carry Details as generic JSON, so a round trip is needed there.
func decisionPayload(artifact *models.Artifact) *models.DecisionPayload {
	if artifact.Level3 == nil {
		return nil
	}
	if d, ok := artifact.Level3.Details.(*models.DecisionPayload); ok {
		return d
	}
	data, err := json.Marshal(artifact.Level3.Details)
	if err != nil {
		return nil
	}
	var d models.DecisionPayload
	if err := json.Unmarshal(data, &d); err != nil {
		return nil
	}
	if d.Classification == "" {
		return nil
	}
	return &d
}
