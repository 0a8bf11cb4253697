// Package display renders pipeline runs to the terminal.
package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lubanana/kstock-dashboard/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(78)

	levelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 2).
			Width(78)

	decisionStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#F59E0B")).
			Padding(0, 2).
			Width(78)

	longStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	shortStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
)

// ShowRun renders a finished run: header, both level panels and the decision.
func ShowRun(run *models.PipelineRun) {
	header := fmt.Sprintf("📊 %s", run.Symbol)
	if run.Name != "" {
		header = fmt.Sprintf("📊 %s (%s)", run.Name, run.Symbol)
	}
	header += fmt.Sprintf("  |  %s  |  %s", run.FinishedAt.Format("2006-01-02 15:04"), strings.ToUpper(string(run.Status)))
	fmt.Println(headerStyle.Render(header))

	if run.Status == models.StatusFailed {
		fmt.Println(errorStyle.Render("❌ " + run.FailureReason))
		return
	}

	showLevel("🔬 Level 1 — Dimension Scores", run.Level1, run.Level1Summary)
	showLevel("🌐 Level 2 — Strategy Adjustments", run.Level2, run.Level2Summary)
	showDecision(run)
}

func showLevel(title string, results map[string]*models.AgentResult, summary *models.LevelSummary) {
	var content strings.Builder
	content.WriteString(title + "\n\n")

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := results[id]
		content.WriteString(fmt.Sprintf("%-22s %3d/100  %s\n", r.AgentName, r.Score.Total, voteBadge(r.Recommendation)))
		for _, sub := range r.Score.SubScores {
			content.WriteString(dimStyle.Render(fmt.Sprintf("   %-20s %d/%d", sub.Name, sub.Score, sub.Max)) + "\n")
		}
	}

	if summary != nil {
		content.WriteString(fmt.Sprintf("\nAverage %.1f  |  Consensus %s  |  %d ok / %d failed",
			summary.AverageScore, summary.Consensus, summary.Succeeded, summary.Failed))
		for _, f := range summary.Failures {
			content.WriteString("\n" + errorStyle.Render(fmt.Sprintf("   ⚠ %s: %s", f.AgentID, f.Reason)))
		}
	}

	fmt.Println(levelStyle.Render(content.String()))
}

func showDecision(run *models.PipelineRun) {
	details := run.DecisionDetails()
	if details == nil {
		return
	}

	var content strings.Builder
	content.WriteString("🎯 Decision\n\n")
	content.WriteString(fmt.Sprintf("Composite %.2f  →  %s  (%s conviction)\n",
		details.Composite,
		classBadge(details.Classification),
		details.Conviction))
	content.WriteString(dimStyle.Render(fmt.Sprintf("level 1 avg %.1f · level 2 avg %.1f · judgment %.1f",
		details.Level1Average, details.Level2Average, details.Judgment)) + "\n")

	if len(details.Rationale) > 0 {
		content.WriteString("\n")
		for _, line := range details.Rationale {
			content.WriteString("• " + line + "\n")
		}
	}

	fmt.Println(decisionStyle.Render(content.String()))
}

// ShowBatch renders the batch summary table.
func ShowBatch(batch *models.BatchSummary) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("📦 Batch %s — %d symbols, %d ok, %d failed",
		batch.Date, batch.Total, batch.SuccessCount, batch.FailedCount)))

	for _, entry := range batch.Results {
		switch entry.Status {
		case models.StatusFailed:
			fmt.Printf("  %-12s %s\n", entry.Symbol, errorStyle.Render("failed: "+entry.Error))
		default:
			fmt.Printf("  %-12s %6.2f  %s\n", entry.Symbol, entry.Composite, classBadge(entry.Classification))
		}
	}
	if batch.SuccessCount > 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  average composite %.2f", batch.AverageScore)))
	}
}

// ShowError prints an error line.
func ShowError(err error) {
	fmt.Println(errorStyle.Render("❌ " + err.Error()))
}

// ShowInfo prints an informational line.
func ShowInfo(message string) {
	fmt.Println(successStyle.Render("ℹ " + message))
}

func voteBadge(r models.Recommendation) string {
	switch r {
	case models.RecommendationBuy:
		return longStyle.Render(string(r))
	case models.RecommendationSell:
		return shortStyle.Render(string(r))
	default:
		return neutralStyle.Render(string(r))
	}
}

func classBadge(c models.Classification) string {
	switch c {
	case models.ClassificationLong:
		return longStyle.Render(string(c))
	case models.ClassificationShort:
		return shortStyle.Render(string(c))
	default:
		return neutralStyle.Render(string(c))
	}
}
