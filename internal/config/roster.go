package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigError marks configuration problems that must stop the process at startup.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Analysis types recognized by the pipeline.
const (
	AnalysisTechnical   = "technical"
	AnalysisQuant       = "quantitative"
	AnalysisQualitative = "qualitative"
	AnalysisSentiment   = "sentiment"
	AnalysisSector      = "sector"
	AnalysisMacro       = "macro"
	AnalysisDecision    = "decision"
)

// AgentSpec describes a single agent in the roster.
type AgentSpec struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Role         string  `yaml:"role"`
	AnalysisType string  `yaml:"analysis_type"`
	Weight       float64 `yaml:"weight"`
	Enabled      bool    `yaml:"enabled"`
}

// WorkflowSpec describes how levels execute.
type WorkflowSpec struct {
	ExecutionOrder []string        `yaml:"execution_order"`
	Parallel       map[string]bool `yaml:"parallel_execution"`
}

// SectorSpec maps sectors to index symbols and marks the currently favored rotation.
type SectorSpec struct {
	IndexSymbols   map[string]string `yaml:"index_symbols"`
	FavoredSectors []string          `yaml:"favored_sectors"`
}

// Roster is the versioned scoring configuration: the agent hierarchy plus
// the workflow and sector settings the Level 2 agents depend on.
type Roster struct {
	Version     int                    `yaml:"version"`
	GroupName   string                 `yaml:"group_name"`
	Description string                 `yaml:"description"`
	Agents      map[string][]AgentSpec `yaml:"agents"`
	Workflow    WorkflowSpec           `yaml:"workflow"`
	Sectors     SectorSpec             `yaml:"sectors"`
}

// DefaultRoster returns the built-in three-level agent hierarchy.
func DefaultRoster() *Roster {
	return &Roster{
		Version:     1,
		GroupName:   "investment-analysis-group",
		Description: "Hierarchical multi-source stock scoring pipeline",
		Agents: map[string][]AgentSpec{
			"level_1": {
				{ID: "TECH_001", Name: "Technical Analyst", Role: "chart and indicator analysis", AnalysisType: AnalysisTechnical, Weight: 0.25, Enabled: true},
				{ID: "QUANT_001", Name: "Quantitative Analyst", Role: "fundamental metrics analysis", AnalysisType: AnalysisQuant, Weight: 0.25, Enabled: true},
				{ID: "QUAL_001", Name: "Qualitative Analyst", Role: "business and management analysis", AnalysisType: AnalysisQualitative, Weight: 0.25, Enabled: true},
				{ID: "NEWS_001", Name: "Sentiment Analyst", Role: "news and market sentiment analysis", AnalysisType: AnalysisSentiment, Weight: 0.25, Enabled: true},
			},
			"level_2": {
				{ID: "SECTOR_001", Name: "Sector Strategist", Role: "sector rotation adjustment", AnalysisType: AnalysisSector, Weight: 0.5, Enabled: true},
				{ID: "MACRO_001", Name: "Macro Strategist", Role: "macro environment adjustment", AnalysisType: AnalysisMacro, Weight: 0.5, Enabled: true},
			},
			"level_3": {
				{ID: "PM_001", Name: "Portfolio Manager", Role: "final investment decision", AnalysisType: AnalysisDecision, Weight: 1.0, Enabled: true},
			},
		},
		Workflow: WorkflowSpec{
			ExecutionOrder: []string{"level_1", "level_2", "level_3"},
			Parallel: map[string]bool{
				"level_1": true,
				"level_2": true,
				"level_3": false,
			},
		},
		Sectors: SectorSpec{
			IndexSymbols: map[string]string{
				"technology": "^KQ11",
				"financials": "^KS11",
				"industrial": "^KS11",
				"healthcare": "^KQ11",
			},
			FavoredSectors: []string{"technology"},
		},
	}
}

// LoadRoster reads the roster from path, writing the default roster first
// when the file does not exist yet. Any structural problem is a ConfigError.
func LoadRoster(path string) (*Roster, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		roster := DefaultRoster()
		if err := SaveRoster(path, roster); err != nil {
			return nil, &ConfigError{Reason: "write default roster", Err: err}
		}
		return roster, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("read roster %s", path), Err: err}
	}

	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, &ConfigError{Reason: "parse roster yaml", Err: err}
	}

	if err := roster.Validate(); err != nil {
		return nil, err
	}
	return &roster, nil
}

// SaveRoster writes the roster as YAML.
func SaveRoster(path string, roster *Roster) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(roster)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the structural invariants of the roster.
func (r *Roster) Validate() error {
	required := []string{"level_1", "level_2", "level_3"}
	seen := make(map[string]bool)

	for _, level := range required {
		agents, ok := r.Agents[level]
		if !ok || len(agents) == 0 {
			return &ConfigError{Reason: fmt.Sprintf("roster missing agents for %s", level)}
		}

		var weightSum float64
		enabled := 0
		for _, a := range agents {
			if a.ID == "" {
				return &ConfigError{Reason: fmt.Sprintf("agent in %s has empty id", level)}
			}
			if seen[a.ID] {
				return &ConfigError{Reason: fmt.Sprintf("duplicate agent id %s", a.ID)}
			}
			seen[a.ID] = true
			if !validAnalysisType(a.AnalysisType) {
				return &ConfigError{Reason: fmt.Sprintf("agent %s has unknown analysis type %q", a.ID, a.AnalysisType)}
			}
			if a.Weight < 0 || a.Weight > 1 {
				return &ConfigError{Reason: fmt.Sprintf("agent %s weight %.2f out of range", a.ID, a.Weight)}
			}
			if a.Enabled {
				enabled++
				weightSum += a.Weight
			}
		}
		if enabled == 0 {
			return &ConfigError{Reason: fmt.Sprintf("no enabled agents in %s", level)}
		}
		if math.Abs(weightSum-1.0) > 0.001 {
			return &ConfigError{Reason: fmt.Sprintf("enabled weights in %s sum to %.3f, want 1.0", level, weightSum)}
		}
	}

	if len(r.Workflow.ExecutionOrder) != len(required) {
		return &ConfigError{Reason: "workflow execution order must list level_1, level_2, level_3"}
	}
	for i, level := range r.Workflow.ExecutionOrder {
		if level != required[i] {
			return &ConfigError{Reason: fmt.Sprintf("workflow order position %d is %q, want %q", i, level, required[i])}
		}
	}

	return nil
}

// EnabledAgents returns the enabled agents of a level in roster order.
func (r *Roster) EnabledAgents(level string) []AgentSpec {
	var out []AgentSpec
	for _, a := range r.Agents[level] {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

func validAnalysisType(t string) bool {
	switch t {
	case AnalysisTechnical, AnalysisQuant, AnalysisQualitative, AnalysisSentiment,
		AnalysisSector, AnalysisMacro, AnalysisDecision:
		return true
	}
	return false
}
