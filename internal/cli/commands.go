package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/display"
	"github.com/lubanana/kstock-dashboard/internal/models"
	"github.com/lubanana/kstock-dashboard/internal/pipeline"
	"github.com/lubanana/kstock-dashboard/internal/report"
	"github.com/lubanana/kstock-dashboard/internal/storage"
	"github.com/lubanana/kstock-dashboard/pkg/logger"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kstock",
		Short: "kstock - hierarchical multi-source stock scoring",
		Long: `kstock runs stocks through a three-level scoring pipeline:
four dimension scorers, sector and macro adjustment, and a final
position decision with conviction grading.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newAgentsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// app bundles the wired components every command needs.
type app struct {
	cfg     *config.Config
	roster  *config.Roster
	log     zerolog.Logger
	orch    *pipeline.Orchestrator
	store   *storage.ArtifactStore
	history *storage.History
}

// newApp loads configuration and wires the pipeline. Any error here is a
// startup failure and exits non-zero.
func newApp() (*app, error) {
	cfg := config.LoadConfig()
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create working directories: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	roster, err := config.LoadRoster(cfg.RosterPath)
	if err != nil {
		return nil, err
	}

	provider := dataflows.NewProvider(dataflows.ProviderOptions{
		FinnhubAPIKey: cfg.FinnhubAPIKey,
		CacheDir:      cfg.DataCacheDir,
		CacheEnabled:  cfg.CacheEnabled,
		Logger:        log,
	})

	orch, err := pipeline.New(cfg, roster, provider, log)
	if err != nil {
		return nil, err
	}

	history, err := storage.OpenHistory(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		roster:  roster,
		log:     log,
		orch:    orch,
		store:   storage.NewArtifactStore(cfg.ResultsDir, log),
		history: history,
	}, nil
}

func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
}

// persistRun saves the artifact and history row; failures here are logged
// but never mask the analysis outcome.
func (a *app) persistRun(run *models.PipelineRun) string {
	path, err := a.store.SaveRun(run)
	if err != nil {
		a.log.Error().Err(err).Str("symbol", run.Symbol).Msg("artifact write failed")
	}
	if err := a.history.Record(run, path); err != nil {
		a.log.Error().Err(err).Str("symbol", run.Symbol).Msg("history write failed")
	}
	return path
}

func newAnalyzeCmd() *cobra.Command {
	var name string
	var withReport bool

	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "Score one symbol through the pipeline",
		Long: `Run the full three-level analysis for one ticker.
Example: kstock analyze 005930.KS --name "Samsung Electronics" --report`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				display.ShowError(err)
				return err
			}
			defer a.close()

			var symbol string
			if len(args) > 0 {
				symbol = args[0]
			} else {
				symbol, err = promptSymbol()
				if err != nil {
					return err
				}
			}
			symbol = dataflows.NormalizeSymbol(symbol)
			if err := dataflows.ValidateSymbol(symbol); err != nil {
				display.ShowError(err)
				return err
			}

			run := a.orch.RunSymbol(cmd.Context(), models.Symbol{Code: symbol, Name: name})
			a.persistRun(run)
			display.ShowRun(run)

			if withReport && run.Status != models.StatusFailed {
				path, err := report.Write(a.cfg.ReportsDir, models.ArtifactFromRun(run))
				if err != nil {
					a.log.Error().Err(err).Msg("report write failed")
				} else {
					display.ShowInfo("report written to " + path)
				}
			}

			if run.Status == models.StatusFailed {
				return fmt.Errorf("analysis failed: %s", run.FailureReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Company name used in news search and output")
	cmd.Flags().BoolVar(&withReport, "report", false, "Also write a markdown report")

	return cmd
}

// batchFile is the input format of the batch command.
type batchFile struct {
	Symbols []models.Symbol `json:"symbols"`
}

func newBatchCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score a list of symbols",
		Long: `Run the pipeline over every symbol in a JSON file of the form
{"symbols": [{"symbol": "005930.KS", "name": "Samsung Electronics"}, ...]}.
One symbol failing never stops the others.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				display.ShowError(err)
				return err
			}
			defer a.close()

			symbols, err := loadBatchFile(file)
			if err != nil {
				display.ShowError(err)
				return err
			}

			runs, batch := a.orch.RunBatch(cmd.Context(), symbols)
			for _, run := range runs {
				a.persistRun(run)
			}
			if _, err := a.store.SaveBatch(batch); err != nil {
				a.log.Error().Err(err).Msg("batch summary write failed")
			}

			display.ShowBatch(batch)

			if batch.SuccessCount == 0 {
				return fmt.Errorf("no symbol completed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file listing the symbols to score")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func loadBatchFile(path string) ([]models.Symbol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var bf batchFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(bf.Symbols) == 0 {
		return nil, fmt.Errorf("batch file lists no symbols")
	}
	for i := range bf.Symbols {
		bf.Symbols[i].Code = dataflows.NormalizeSymbol(bf.Symbols[i].Code)
		if err := dataflows.ValidateSymbol(bf.Symbols[i].Code); err != nil {
			return nil, err
		}
	}
	return bf.Symbols, nil
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "Show the configured agent roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			roster, err := config.LoadRoster(cfg.RosterPath)
			if err != nil {
				display.ShowError(err)
				return err
			}

			fmt.Printf("%s (v%d)\n%s\n\n", roster.GroupName, roster.Version, roster.Description)
			for _, level := range roster.Workflow.ExecutionOrder {
				fmt.Printf("%s (parallel: %v)\n", level, roster.Workflow.Parallel[level])
				for _, agent := range roster.Agents[level] {
					state := "enabled"
					if !agent.Enabled {
						state = "disabled"
					}
					fmt.Printf("  %-12s %-22s %-14s weight %.2f  %s\n",
						agent.ID, agent.Name, agent.AnalysisType, agent.Weight, state)
				}
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int
	var symbol string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			history, err := storage.OpenHistory(cfg.HistoryDB)
			if err != nil {
				display.ShowError(err)
				return err
			}
			defer history.Close()

			var records []storage.RunRecord
			if symbol != "" {
				records, err = history.BySymbol(dataflows.NormalizeSymbol(symbol), limit)
			} else {
				records, err = history.Recent(limit)
			}
			if err != nil {
				display.ShowError(err)
				return err
			}

			if len(records) == 0 {
				display.ShowInfo("no runs recorded yet")
				return nil
			}

			fmt.Printf("%-20s %-12s %9s  %-8s %-10s %s\n", "DATE", "SYMBOL", "COMPOSITE", "POSITION", "STATUS", "ANALYSIS ID")
			for _, r := range records {
				fmt.Printf("%-20s %-12s %9.2f  %-8s %-10s %s\n",
					r.RunDate.Format("2006-01-02 15:04"), r.Symbol, r.Composite, r.Classification, r.Status, r.AnalysisID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Filter by symbol")

	return cmd
}

func newReportCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "report SYMBOL",
		Short: "Render a stored artifact as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
			store := storage.NewArtifactStore(cfg.ResultsDir, log)

			day := time.Now()
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					display.ShowError(fmt.Errorf("invalid date %q, want YYYY-MM-DD", date))
					return err
				}
				day = parsed
			}

			symbol := dataflows.NormalizeSymbol(args[0])
			artifact, err := store.LoadArtifact(symbol, day)
			if err != nil {
				display.ShowError(err)
				return err
			}

			path, err := report.Write(cfg.ReportsDir, artifact)
			if err != nil {
				display.ShowError(err)
				return err
			}
			display.ShowInfo("report written to " + path)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Artifact date in YYYY-MM-DD format (today if omitted)")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("kstock v1.0.0")
			fmt.Println("Hierarchical multi-source stock scoring pipeline")
		},
	}
}
