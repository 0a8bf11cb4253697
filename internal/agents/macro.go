package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// MacroStrategist reweighs the Level 1 outcome through the macro
// environment: rates, volatility regime and currency pressure.
type MacroStrategist struct {
	spec config.AgentSpec
	log  zerolog.Logger
}

// NewMacroStrategist creates the Level 2 macro agent.
func NewMacroStrategist(spec config.AgentSpec, log zerolog.Logger) *MacroStrategist {
	return &MacroStrategist{spec: spec, log: log.With().Str("agent", spec.ID).Logger()}
}

func (ms *MacroStrategist) Spec() config.AgentSpec { return ms.spec }

// Adjust scores base alignment (40), rate environment (25), volatility
// regime (20) and FX liquidity (15). Missing macro data scores neutral.
func (ms *MacroStrategist) Adjust(ctx context.Context, in LevelTwoInput) (*models.AgentResult, error) {
	if in.Level1 == nil {
		return nil, fmt.Errorf("macro adjustment for %s: no level 1 summary", in.Symbol.Code)
	}

	ms.log.Debug().Str("symbol", in.Symbol.Code).Msg("scoring macro adjustment")

	var signals, risks []string

	alignment := baseAlignmentScore(in.Level1.AverageScore)

	rates := 14
	if in.Macro != nil && in.Macro.RateChange20D != nil {
		switch change := *in.Macro.RateChange20D; {
		case change < -0.2:
			rates = 25
			signals = append(signals, fmt.Sprintf("yields falling (%.2fpt over 20 days)", change))
		case change < 0:
			rates = 20
		case change < 0.2:
			rates = 14
		case change < 0.5:
			rates = 8
		default:
			rates = 4
			risks = append(risks, fmt.Sprintf("yields rising sharply (%.2fpt over 20 days)", change))
		}
	} else {
		signals = append(signals, "rate data unavailable, scored neutral")
	}

	volatility := 10
	if in.Macro != nil && in.Macro.VolatilityIndex != nil {
		switch vix := *in.Macro.VolatilityIndex; {
		case vix < 15:
			volatility = 20
			signals = append(signals, fmt.Sprintf("calm volatility regime (VIX %.1f)", vix))
		case vix < 20:
			volatility = 16
		case vix < 25:
			volatility = 10
		case vix < 30:
			volatility = 5
		default:
			volatility = 0
			risks = append(risks, fmt.Sprintf("stressed volatility regime (VIX %.1f)", vix))
		}
	} else {
		signals = append(signals, "volatility index unavailable, scored neutral")
	}

	fx := 8
	if in.Macro != nil && in.Macro.FXChange20D != nil {
		// Falling KRW/USD means the won is strengthening, which supports
		// foreign inflows into Korean equities.
		switch change := *in.Macro.FXChange20D; {
		case change < -2:
			fx = 15
			signals = append(signals, "won strengthening, supportive for foreign inflows")
		case change < 0:
			fx = 12
		case change < 2:
			fx = 8
		case change < 5:
			fx = 4
		default:
			fx = 2
			risks = append(risks, fmt.Sprintf("won weakening %.1f%% over 20 days", change))
		}
	}

	score := models.NewDimensionScore(config.AnalysisMacro, []models.SubScore{
		{Name: "base_alignment", Score: alignment, Max: 40},
		{Name: "rate_environment", Score: rates, Max: 25},
		{Name: "volatility_regime", Score: volatility, Max: 20},
		{Name: "fx_liquidity", Score: fx, Max: 15},
	}, signals, risks)

	details := &models.MacroPayload{Level1Average: in.Level1.AverageScore}
	if in.Macro != nil {
		if in.Macro.VolatilityIndex != nil {
			details.VolatilityIndex = *in.Macro.VolatilityIndex
		}
		if in.Macro.Rate10Y != nil {
			details.Rate10Y = *in.Macro.Rate10Y
		}
		if in.Macro.RateChange20D != nil {
			details.RateChange20D = *in.Macro.RateChange20D
		}
		if in.Macro.FXChange20D != nil {
			details.FXChange20D = *in.Macro.FXChange20D
		}
	}

	return newResult(ms.spec, in.Symbol, score, details), nil
}
