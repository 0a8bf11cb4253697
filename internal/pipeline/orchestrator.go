// Package pipeline runs symbols through the three-level scoring hierarchy:
// parallel fan-out within a level, strict ordering between levels, and
// per-symbol failure containment in batch mode.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/agents"
	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// MacroSource supplies the shared macro snapshot for a run. The provider
// satisfies it; tests substitute a fixture.
type MacroSource interface {
	MacroSnapshot(ctx context.Context, symbols dataflows.MacroSymbols, sectorIndexes []string) *dataflows.MacroContext
}

// Orchestrator owns the agent set and drives the per-symbol state machine.
type Orchestrator struct {
	cfg         *config.Config
	roster      *config.Roster
	scorers     []agents.Scorer
	strategists []agents.LevelTwoAgent
	pm          *agents.PortfolioManager
	macro       MacroSource
	log         zerolog.Logger
}

// New wires the orchestrator from the roster, with every agent drawing its
// data from the provider.
func New(cfg *config.Config, roster *config.Roster, provider *dataflows.Provider, log zerolog.Logger) (*Orchestrator, error) {
	deps := agents.Dependencies{
		Prices:       provider,
		Quotes:       provider,
		Fundamentals: provider,
		News:         provider,
	}

	var scorers []agents.Scorer
	for _, spec := range roster.EnabledAgents("level_1") {
		s, err := agents.NewScorer(spec, deps, log)
		if err != nil {
			return nil, err
		}
		scorers = append(scorers, s)
	}

	var strategists []agents.LevelTwoAgent
	for _, spec := range roster.EnabledAgents("level_2") {
		switch spec.AnalysisType {
		case config.AnalysisSector:
			strategists = append(strategists, agents.NewSectorStrategist(spec, provider, provider, roster.Sectors, log))
		case config.AnalysisMacro:
			strategists = append(strategists, agents.NewMacroStrategist(spec, log))
		default:
			return nil, fmt.Errorf("no level 2 strategist for analysis type %q", spec.AnalysisType)
		}
	}

	pmSpec := roster.EnabledAgents("level_3")[0]
	pm := agents.NewPortfolioManager(pmSpec, &agents.RuleAdjuster{}, log)

	return NewWithAgents(cfg, roster, scorers, strategists, pm, provider, log), nil
}

// NewWithAgents assembles an orchestrator from pre-built agents.
func NewWithAgents(cfg *config.Config, roster *config.Roster, scorers []agents.Scorer, strategists []agents.LevelTwoAgent, pm *agents.PortfolioManager, macro MacroSource, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		roster:      roster,
		scorers:     scorers,
		strategists: strategists,
		pm:          pm,
		macro:       macro,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// RunSymbol analyzes one symbol end to end. Errors along the way are folded
// into the returned run; the call itself never fails.
func (o *Orchestrator) RunSymbol(ctx context.Context, symbol models.Symbol) *models.PipelineRun {
	return o.run(ctx, symbol, o.snapshot(ctx))
}

// RunBatch analyzes symbols with a bounded worker pool. One symbol failing
// never affects its siblings. Runs come back in input order.
func (o *Orchestrator) RunBatch(ctx context.Context, symbols []models.Symbol) ([]*models.PipelineRun, *models.BatchSummary) {
	macro := o.snapshot(ctx)

	workers := o.cfg.MaxConcurrentSymbols
	if workers < 1 {
		workers = 1
	}

	runs := make([]*models.PipelineRun, len(symbols))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol models.Symbol) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			runs[i] = o.run(ctx, symbol, macro)
		}(i, symbol)
	}
	wg.Wait()

	return runs, summarizeBatch(runs)
}

// snapshot fetches the shared macro context once per run or batch.
func (o *Orchestrator) snapshot(ctx context.Context) *dataflows.MacroContext {
	if o.macro == nil {
		return nil
	}
	var indexes []string
	seen := make(map[string]bool)
	for _, index := range o.roster.Sectors.IndexSymbols {
		if !seen[index] {
			seen[index] = true
			indexes = append(indexes, index)
		}
	}
	return o.macro.MacroSnapshot(ctx, dataflows.MacroSymbols{
		MarketIndex: o.cfg.MarketIndexSymbol,
		Volatility:  o.cfg.VolatilitySymbol,
		Rate:        o.cfg.RateSymbol,
		FX:          o.cfg.FXSymbol,
	}, indexes)
}

// run drives the state machine for one symbol.
func (o *Orchestrator) run(ctx context.Context, symbol models.Symbol, macro *dataflows.MacroContext) *models.PipelineRun {
	run := &models.PipelineRun{
		AnalysisID: uuid.NewString(),
		Symbol:     symbol.Code,
		Name:       symbol.Name,
		StartedAt:  time.Now(),
		Stage:      models.StagePending,
		Status:     models.StatusPending,
		Level1:     make(map[string]*models.AgentResult),
		Level2:     make(map[string]*models.AgentResult),
	}

	o.log.Info().Str("symbol", symbol.Code).Str("analysis_id", run.AnalysisID).Msg("pipeline started")

	run.Stage = models.StageLevel1Running
	l1Results, l1Failures := o.runLevelOne(ctx, symbol)
	for _, r := range l1Results {
		run.Level1[r.AgentID] = r
	}
	run.Level1Summary = Aggregate(1, l1Results, l1Failures)
	if run.Level1Summary.Succeeded == 0 {
		return o.fail(run, "all level 1 agents failed")
	}
	run.Stage = models.StageLevel1Done

	run.Stage = models.StageLevel2Running
	l2Results, l2Failures := o.runLevelTwo(ctx, agents.LevelTwoInput{
		Symbol: symbol,
		Level1: run.Level1Summary,
		Macro:  macro,
	})
	for _, r := range l2Results {
		run.Level2[r.AgentID] = r
	}
	run.Level2Summary = Aggregate(2, l2Results, l2Failures)
	if run.Level2Summary.Succeeded == 0 {
		return o.fail(run, "all level 2 agents failed")
	}
	run.Stage = models.StageLevel2Done

	run.Stage = models.StageLevel3Running
	decision, err := o.pm.Synthesize(symbol, run.Level1Summary, run.Level2Summary)
	if err != nil {
		return o.fail(run, fmt.Sprintf("decision synthesis: %v", err))
	}
	run.Decision = decision

	run.Stage = models.StageCompleted
	run.Status = models.StatusCompleted
	if run.Level1Summary.Failed > 0 || run.Level2Summary.Failed > 0 {
		run.Status = models.StatusPartial
	}
	run.FinishedAt = time.Now()

	o.log.Info().
		Str("symbol", symbol.Code).
		Str("status", string(run.Status)).
		Float64("composite", decisionComposite(run)).
		Msg("pipeline finished")

	return run
}

func (o *Orchestrator) fail(run *models.PipelineRun, reason string) *models.PipelineRun {
	run.Stage = models.StageFailed
	run.Status = models.StatusFailed
	run.FailureReason = reason
	run.FinishedAt = time.Now()
	o.log.Error().Str("symbol", run.Symbol).Str("reason", reason).Msg("pipeline failed")
	return run
}

// outcome is one agent's contribution: exactly one of the two fields is set.
type outcome struct {
	result  *models.AgentResult
	failure *models.AgentFailure
}

// runLevelOne fans the dimension scorers out, parallel when the workflow
// allows it. A scorer error becomes an AgentFailure, never an escape.
func (o *Orchestrator) runLevelOne(ctx context.Context, symbol models.Symbol) ([]*models.AgentResult, []models.AgentFailure) {
	outcomes := make([]outcome, len(o.scorers))
	fanOut(len(o.scorers), o.roster.Workflow.Parallel["level_1"], func(i int) {
		s := o.scorers[i]
		result, err := s.Score(ctx, symbol)
		if err != nil {
			o.log.Warn().Err(err).Str("agent", s.Spec().ID).Str("symbol", symbol.Code).Msg("agent failed")
			outcomes[i] = outcome{failure: &models.AgentFailure{
				AgentID:      s.Spec().ID,
				AnalysisType: s.Spec().AnalysisType,
				Reason:       err.Error(),
			}}
			return
		}
		outcomes[i] = outcome{result: result}
	})
	return splitOutcomes(outcomes)
}

// runLevelTwo fans the strategists out against the Level 1 summary.
func (o *Orchestrator) runLevelTwo(ctx context.Context, in agents.LevelTwoInput) ([]*models.AgentResult, []models.AgentFailure) {
	outcomes := make([]outcome, len(o.strategists))
	fanOut(len(o.strategists), o.roster.Workflow.Parallel["level_2"], func(i int) {
		s := o.strategists[i]
		result, err := s.Adjust(ctx, in)
		if err != nil {
			o.log.Warn().Err(err).Str("agent", s.Spec().ID).Str("symbol", in.Symbol.Code).Msg("strategist failed")
			outcomes[i] = outcome{failure: &models.AgentFailure{
				AgentID:      s.Spec().ID,
				AnalysisType: s.Spec().AnalysisType,
				Reason:       err.Error(),
			}}
			return
		}
		outcomes[i] = outcome{result: result}
	})
	return splitOutcomes(outcomes)
}

// fanOut runs work(i) for each slot, concurrently when parallel is set.
func fanOut(n int, parallel bool, work func(i int)) {
	if !parallel {
		for i := 0; i < n; i++ {
			work(i)
		}
		return
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			work(i)
		}(i)
	}
	wg.Wait()
}

// splitOutcomes separates results from failures, keeping agent order.
func splitOutcomes(outcomes []outcome) ([]*models.AgentResult, []models.AgentFailure) {
	var results []*models.AgentResult
	var failures []models.AgentFailure
	for _, oc := range outcomes {
		if oc.result != nil {
			results = append(results, oc.result)
		}
		if oc.failure != nil {
			failures = append(failures, *oc.failure)
		}
	}
	return results, failures
}

// summarizeBatch builds the batch document from the finished runs.
func summarizeBatch(runs []*models.PipelineRun) *models.BatchSummary {
	summary := &models.BatchSummary{
		Date:  time.Now().Format("2006-01-02"),
		Total: len(runs),
	}

	var compositeSum float64
	scored := 0
	for _, run := range runs {
		entry := models.BatchEntry{
			Symbol: run.Symbol,
			Name:   run.Name,
			Status: run.Status,
		}
		if run.Status == models.StatusFailed {
			summary.FailedCount++
			entry.Error = run.FailureReason
		} else {
			summary.SuccessCount++
			if d := run.DecisionDetails(); d != nil {
				entry.Composite = d.Composite
				entry.Classification = d.Classification
				compositeSum += d.Composite
				scored++
			}
		}
		summary.Results = append(summary.Results, entry)
	}

	if scored > 0 {
		summary.AverageScore = compositeSum / float64(scored)
	}
	return summary
}

func decisionComposite(run *models.PipelineRun) float64 {
	if d := run.DecisionDetails(); d != nil {
		return d.Composite
	}
	return 0
}
