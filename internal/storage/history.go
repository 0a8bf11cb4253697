package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lubanana/kstock-dashboard/internal/models"
)

// History records finished runs in sqlite so past decisions stay queryable
// after the JSON artifacts rotate away.
type History struct {
	db *sql.DB
}

// RunRecord is one row of the run history.
type RunRecord struct {
	AnalysisID     string
	Symbol         string
	Name           string
	RunDate        time.Time
	Composite      float64
	Classification string
	Consensus      string
	Status         string
	ArtifactPath   string
}

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	analysis_id    TEXT PRIMARY KEY,
	symbol         TEXT NOT NULL,
	name           TEXT,
	run_date       TIMESTAMP NOT NULL,
	composite      REAL,
	classification TEXT,
	consensus      TEXT,
	status         TEXT NOT NULL,
	artifact_path  TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol);
CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(run_date);
`

// OpenHistory opens (and if needed initializes) the history database.
func OpenHistory(dbPath string) (*History, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("history db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_loc=Local")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close releases the database handle.
func (h *History) Close() error { return h.db.Close() }

// Record inserts a finished run. Failed runs are recorded too, with a zero
// composite.
func (h *History) Record(run *models.PipelineRun, artifactPath string) error {
	var composite float64
	var classification string
	if d := run.DecisionDetails(); d != nil {
		composite = d.Composite
		classification = string(d.Classification)
	}
	var consensus string
	if run.Level1Summary != nil {
		consensus = string(run.Level1Summary.Consensus)
	}

	_, err := h.db.Exec(`
		INSERT INTO runs (analysis_id, symbol, name, run_date, composite, classification, consensus, status, artifact_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.AnalysisID, run.Symbol, run.Name, run.FinishedAt,
		composite, classification, consensus, string(run.Status), artifactPath,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.AnalysisID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (h *History) Recent(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(`
		SELECT analysis_id, symbol, name, run_date, composite, classification, consensus, status, artifact_path
		FROM runs ORDER BY run_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// BySymbol returns the latest runs for one symbol, newest first.
func (h *History) BySymbol(symbol string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(`
		SELECT analysis_id, symbol, name, run_date, composite, classification, consensus, status, artifact_path
		FROM runs WHERE symbol = ? ORDER BY run_date DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]RunRecord, error) {
	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.AnalysisID, &r.Symbol, &r.Name, &r.RunDate,
			&r.Composite, &r.Classification, &r.Consensus, &r.Status, &r.ArtifactPath); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
