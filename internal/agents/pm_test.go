package agents

import (
	"context"
	"testing"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/models"
	"github.com/lubanana/kstock-dashboard/pkg/logger"
)

func summary(level int, avg float64, consensus models.Consensus) *models.LevelSummary {
	return &models.LevelSummary{Level: level, AverageScore: avg, Consensus: consensus, Succeeded: 4}
}

func TestRuleAdjusterTable(t *testing.T) {
	cases := []struct {
		name string
		l1   models.Consensus
		l2   models.Consensus
		want float64
	}{
		{"neutral", models.ConsensusHold, models.ConsensusHold, 50},
		{"aligned bullish", models.ConsensusStrongBuy, models.ConsensusBuy, 85},
		{"aligned bearish", models.ConsensusSell, models.ConsensusSell, 20},
		{"conflicting", models.ConsensusStrongBuy, models.ConsensusSell, 55},
	}

	adjuster := &RuleAdjuster{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := adjuster.Judge(summary(1, 60, tc.l1), summary(2, 60, tc.l2))
			if got != tc.want {
				t.Errorf("judgment = %.1f, want %.1f", got, tc.want)
			}
		})
	}
}

func TestRuleAdjusterDiscountsFailures(t *testing.T) {
	adjuster := &RuleAdjuster{}
	l1 := summary(1, 60, models.ConsensusHold)
	l1.Failures = []models.AgentFailure{{AgentID: "TECH_001", Reason: "feed down"}}

	got, rationale := adjuster.Judge(l1, summary(2, 60, models.ConsensusHold))
	if got != 45 {
		t.Errorf("judgment = %.1f, want 45 with one failed analyst", got)
	}
	if len(rationale) == 0 {
		t.Error("expected rationale for the failure discount")
	}
}

func TestRuleAdjusterDeterminism(t *testing.T) {
	adjuster := &RuleAdjuster{}
	l1 := summary(1, 72.5, models.ConsensusBuy)
	l2 := summary(2, 55, models.ConsensusHold)

	first, _ := adjuster.Judge(l1, l2)
	second, _ := adjuster.Judge(l1, l2)
	if first != second {
		t.Errorf("same summaries judged differently: %.1f then %.1f", first, second)
	}
}

type fixedAdjuster struct{ score float64 }

func (f fixedAdjuster) Judge(_, _ *models.LevelSummary) (float64, []string) {
	return f.score, nil
}

func TestPortfolioManagerComposite(t *testing.T) {
	pm := NewPortfolioManager(testSpec("PM_001", config.AnalysisDecision), fixedAdjuster{score: 50}, logger.Nop())

	result, err := pm.Synthesize(testSymbol,
		summary(1, 72.5, models.ConsensusBuy),
		summary(2, 60, models.ConsensusHold))
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	details, ok := result.Details.(*models.DecisionPayload)
	if !ok {
		t.Fatal("decision payload missing")
	}
	// 0.5*72.5 + 0.3*60 + 0.2*50 = 64.25
	if details.Composite != 64.25 {
		t.Errorf("composite = %.2f, want 64.25", details.Composite)
	}
	if details.Classification != models.ClassificationNeutral {
		t.Errorf("classification = %s, want NEUTRAL", details.Classification)
	}
	// 5.75 from the LONG boundary grades MEDIUM.
	if details.Conviction != models.ConvictionMedium {
		t.Errorf("conviction = %s, want MEDIUM", details.Conviction)
	}
	if err := result.Score.Validate(); err != nil {
		t.Errorf("score invalid: %v", err)
	}
}

func TestPortfolioManagerClassificationBands(t *testing.T) {
	cases := []struct {
		name       string
		l1, l2     float64
		judgment   float64
		wantClass  models.Classification
		wantStrong models.Conviction
	}{
		{"deep long", 90, 90, 90, models.ClassificationLong, models.ConvictionHigh},
		{"boundary long", 70, 70, 70, models.ClassificationLong, models.ConvictionLow},
		{"deep short", 20, 20, 20, models.ClassificationShort, models.ConvictionHigh},
		{"boundary short", 40, 40, 40, models.ClassificationShort, models.ConvictionLow},
		// 55 is 15 from both boundaries and grades HIGH; 60 is 10 from 70.
		{"mid neutral", 55, 55, 55, models.ClassificationNeutral, models.ConvictionHigh},
		{"upper neutral", 60, 60, 60, models.ClassificationNeutral, models.ConvictionMedium},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pm := NewPortfolioManager(testSpec("PM_001", config.AnalysisDecision), fixedAdjuster{score: tc.judgment}, logger.Nop())
			result, err := pm.Synthesize(testSymbol,
				summary(1, tc.l1, models.ConsensusHold),
				summary(2, tc.l2, models.ConsensusHold))
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			details := result.Details.(*models.DecisionPayload)
			if details.Classification != tc.wantClass {
				t.Errorf("classification = %s, want %s", details.Classification, tc.wantClass)
			}
			if details.Conviction != tc.wantStrong {
				t.Errorf("conviction = %s, want %s", details.Conviction, tc.wantStrong)
			}
		})
	}
}

func TestPortfolioManagerRequiresBothLevels(t *testing.T) {
	pm := NewPortfolioManager(testSpec("PM_001", config.AnalysisDecision), nil, logger.Nop())
	if _, err := pm.Synthesize(testSymbol, summary(1, 60, models.ConsensusHold), nil); err == nil {
		t.Fatal("Synthesize() expected error without a level 2 summary")
	}
}

func TestMacroStrategistSupportiveEnvironment(t *testing.T) {
	ms := NewMacroStrategist(testSpec("MACRO_001", config.AnalysisMacro), logger.Nop())

	macro := &dataflows.MacroContext{
		RateChange20D:   dataflows.Float(-0.3),
		VolatilityIndex: dataflows.Float(14),
		FXChange20D:     dataflows.Float(-3),
	}

	result, err := ms.Adjust(context.Background(), LevelTwoInput{
		Symbol: testSymbol,
		Level1: summary(1, 72.5, models.ConsensusBuy),
		Macro:  macro,
	})
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	// alignment 34 + rates 25 + volatility 20 + fx 15 = 94.
	if result.Score.Total != 94 {
		t.Errorf("total = %d, want 94", result.Score.Total)
	}
	if result.Recommendation != models.RecommendationBuy {
		t.Errorf("recommendation = %s, want BUY", result.Recommendation)
	}
}

func TestMacroStrategistMissingDataScoresNeutral(t *testing.T) {
	ms := NewMacroStrategist(testSpec("MACRO_001", config.AnalysisMacro), logger.Nop())

	result, err := ms.Adjust(context.Background(), LevelTwoInput{
		Symbol: testSymbol,
		Level1: summary(1, 72.5, models.ConsensusBuy),
	})
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	// alignment 34 + neutral rates 14 + neutral volatility 10 + neutral fx 8.
	if result.Score.Total != 66 {
		t.Errorf("total = %d, want 66 with no macro snapshot", result.Score.Total)
	}
}

func TestMacroStrategistRequiresLevel1(t *testing.T) {
	ms := NewMacroStrategist(testSpec("MACRO_001", config.AnalysisMacro), logger.Nop())
	if _, err := ms.Adjust(context.Background(), LevelTwoInput{Symbol: testSymbol}); err == nil {
		t.Fatal("Adjust() expected error without a level 1 summary")
	}
}

func TestSectorStrategistFavoredSector(t *testing.T) {
	sectors := config.SectorSpec{
		IndexSymbols:   map[string]string{"technology": "^KQ11"},
		FavoredSectors: []string{"Technology"},
	}

	macro := &dataflows.MacroContext{
		SectorCandles: map[string][]dataflows.Candle{
			"^KQ11": trendCandles(30, 100, 1, 1000),
		},
	}

	ss := NewSectorStrategist(testSpec("SECTOR_001", config.AnalysisSector),
		stubPrices{candles: trendCandles(30, 100, 0, 1000)},
		stubFundamentals{data: &dataflows.Fundamentals{Sector: "Technology"}},
		sectors, logger.Nop())

	result, err := ss.Adjust(context.Background(), LevelTwoInput{
		Symbol: testSymbol,
		Level1: summary(1, 72.5, models.ConsensusBuy),
		Macro:  macro,
	})
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}

	details, ok := result.Details.(*models.SectorPayload)
	if !ok {
		t.Fatal("sector payload missing")
	}
	if !details.FavoredSector {
		t.Error("technology should be in the favored rotation")
	}
	// Rising sector index versus a flat stock: momentum full band, relative
	// strength bottom band. alignment 34 + momentum 30 + relative 4 + rotation 10.
	if result.Score.Total != 78 {
		t.Errorf("total = %d, want 78", result.Score.Total)
	}
}

func TestSectorStrategistNoMacroScoresNeutral(t *testing.T) {
	ss := NewSectorStrategist(testSpec("SECTOR_001", config.AnalysisSector),
		stubPrices{candles: trendCandles(30, 100, 0, 1000)},
		stubFundamentals{data: &dataflows.Fundamentals{Sector: "Energy"}},
		config.SectorSpec{FavoredSectors: []string{"Technology"}}, logger.Nop())

	result, err := ss.Adjust(context.Background(), LevelTwoInput{
		Symbol: testSymbol,
		Level1: summary(1, 55, models.ConsensusHold),
	})
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	// alignment 20 + neutral momentum 18 + neutral relative 10 + rotation 4.
	if result.Score.Total != 52 {
		t.Errorf("total = %d, want 52 without macro data", result.Score.Total)
	}
}
