// Package storage persists pipeline output: per-symbol JSON artifacts, batch
// summaries and the sqlite run history.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/models"
)

// ArtifactStore writes and reads the JSON documents under the results
// directory. Per-symbol artifacts live in agent_results/, batch summaries at
// the top level.
type ArtifactStore struct {
	resultsDir string
	log        zerolog.Logger
}

// NewArtifactStore creates a store rooted at resultsDir.
func NewArtifactStore(resultsDir string, log zerolog.Logger) *ArtifactStore {
	return &ArtifactStore{resultsDir: resultsDir, log: log.With().Str("component", "storage").Logger()}
}

// SaveRun writes the run's artifact and returns the file path.
func (s *ArtifactStore) SaveRun(run *models.PipelineRun) (string, error) {
	artifact := models.ArtifactFromRun(run)
	path := s.ArtifactPath(run.Symbol, run.FinishedAt)

	if err := writeJSON(path, artifact); err != nil {
		return "", fmt.Errorf("save artifact for %s: %w", run.Symbol, err)
	}
	s.log.Debug().Str("symbol", run.Symbol).Str("path", path).Msg("artifact written")
	return path, nil
}

// SaveBatch writes the batch summary and returns the file path.
func (s *ArtifactStore) SaveBatch(batch *models.BatchSummary) (string, error) {
	path := filepath.Join(s.resultsDir, fmt.Sprintf("batch_%s.json", strings.ReplaceAll(batch.Date, "-", "")))

	if err := writeJSON(path, batch); err != nil {
		return "", fmt.Errorf("save batch summary: %w", err)
	}
	s.log.Debug().Str("path", path).Int("symbols", batch.Total).Msg("batch summary written")
	return path, nil
}

// LoadArtifact reads the artifact for a symbol and day, if present.
func (s *ArtifactStore) LoadArtifact(symbol string, day time.Time) (*models.Artifact, error) {
	return s.LoadArtifactFile(s.ArtifactPath(symbol, day))
}

// LoadArtifactFile reads a single artifact document.
func (s *ArtifactStore) LoadArtifactFile(path string) (*models.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	var artifact models.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return &artifact, nil
}

// ArtifactPath is the on-disk location of a symbol's artifact for a day.
// Dots in the symbol become underscores so tickers like 005930.KS stay
// filesystem-friendly.
func (s *ArtifactStore) ArtifactPath(symbol string, day time.Time) string {
	name := fmt.Sprintf("%s_%s.json", strings.ReplaceAll(symbol, ".", "_"), day.Format("20060102"))
	return filepath.Join(s.resultsDir, "agent_results", name)
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
