package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRosterCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_roster.yaml")

	roster, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default roster file not written: %v", err)
	}

	if got := len(roster.EnabledAgents("level_1")); got != 4 {
		t.Errorf("level_1 enabled agents = %d, want 4", got)
	}
	if got := len(roster.EnabledAgents("level_2")); got != 2 {
		t.Errorf("level_2 enabled agents = %d, want 2", got)
	}
	if got := len(roster.EnabledAgents("level_3")); got != 1 {
		t.Errorf("level_3 enabled agents = %d, want 1", got)
	}
}

func TestLoadRosterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_roster.yaml")

	original := DefaultRoster()
	original.GroupName = "custom-group"
	if err := SaveRoster(path, original); err != nil {
		t.Fatalf("SaveRoster() error = %v", err)
	}

	loaded, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster() error = %v", err)
	}
	if loaded.GroupName != "custom-group" {
		t.Errorf("group name = %q, want %q", loaded.GroupName, "custom-group")
	}
	if loaded.Agents["level_1"][0].ID != "TECH_001" {
		t.Errorf("first level_1 agent = %q, want TECH_001", loaded.Agents["level_1"][0].ID)
	}
}

func TestLoadRosterMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_roster.yaml")
	if err := os.WriteFile(path, []byte("agents: [not a map"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := LoadRoster(path)
	if err == nil {
		t.Fatal("LoadRoster() expected error for malformed yaml")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
}

func TestRosterValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Roster)
	}{
		{"missing level", func(r *Roster) { delete(r.Agents, "level_2") }},
		{"duplicate id", func(r *Roster) { r.Agents["level_2"][0].ID = "TECH_001" }},
		{"unknown type", func(r *Roster) { r.Agents["level_1"][0].AnalysisType = "astrology" }},
		{"bad weight sum", func(r *Roster) { r.Agents["level_1"][0].Weight = 0.5 }},
		{"all disabled", func(r *Roster) {
			for i := range r.Agents["level_3"] {
				r.Agents["level_3"][i].Enabled = false
			}
		}},
		{"bad workflow order", func(r *Roster) {
			r.Workflow.ExecutionOrder = []string{"level_3", "level_2", "level_1"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster := DefaultRoster()
			tt.mutate(roster)
			if err := roster.Validate(); err == nil {
				t.Errorf("Validate() expected error for %s", tt.name)
			}
		})
	}

	if err := DefaultRoster().Validate(); err != nil {
		t.Errorf("default roster should validate, got %v", err)
	}
}
