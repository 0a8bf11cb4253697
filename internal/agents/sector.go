package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/dataflows"
	"github.com/lubanana/kstock-dashboard/internal/indicators"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// SectorStrategist reweighs the Level 1 outcome through a sector lens:
// index momentum, relative strength and rotation preference.
type SectorStrategist struct {
	spec         config.AgentSpec
	prices       PriceSource
	fundamentals FundamentalsSource
	sectors      config.SectorSpec
	log          zerolog.Logger
}

// NewSectorStrategist creates the Level 2 sector agent.
func NewSectorStrategist(spec config.AgentSpec, prices PriceSource, fundamentals FundamentalsSource, sectors config.SectorSpec, log zerolog.Logger) *SectorStrategist {
	return &SectorStrategist{
		spec:         spec,
		prices:       prices,
		fundamentals: fundamentals,
		sectors:      sectors,
		log:          log.With().Str("agent", spec.ID).Logger(),
	}
}

func (ss *SectorStrategist) Spec() config.AgentSpec { return ss.spec }

// Adjust scores base alignment (40), sector momentum (30), relative strength
// (20) and rotation bias (10).
func (ss *SectorStrategist) Adjust(ctx context.Context, in LevelTwoInput) (*models.AgentResult, error) {
	if in.Level1 == nil {
		return nil, fmt.Errorf("sector adjustment for %s: no level 1 summary", in.Symbol.Code)
	}

	sector := ss.resolveSector(ctx, in.Symbol)
	sectorReturn := ss.sectorReturn(sector, in.Macro)
	stockReturn := ss.stockReturn(ctx, in.Symbol)

	ss.log.Debug().
		Str("symbol", in.Symbol.Code).
		Str("sector", sector).
		Msg("scoring sector adjustment")

	var signals, risks []string

	alignment := baseAlignmentScore(in.Level1.AverageScore)

	momentum := 18
	if sectorReturn != nil {
		switch r := *sectorReturn; {
		case r >= 10:
			momentum = 30
			signals = append(signals, fmt.Sprintf("sector index up %.1f%% over 20 days", r))
		case r >= 5:
			momentum = 24
		case r >= 0:
			momentum = 18
		case r >= -5:
			momentum = 10
		default:
			momentum = 4
			risks = append(risks, fmt.Sprintf("sector index down %.1f%% over 20 days", r))
		}
	} else {
		signals = append(signals, "sector index unavailable, momentum scored neutral")
	}

	relative := 10
	if stockReturn != nil && sectorReturn != nil {
		switch diff := *stockReturn - *sectorReturn; {
		case diff >= 5:
			relative = 20
			signals = append(signals, fmt.Sprintf("outpacing the sector by %.1f%%", diff))
		case diff >= 0:
			relative = 15
		case diff >= -5:
			relative = 10
		default:
			relative = 4
			risks = append(risks, fmt.Sprintf("trailing the sector by %.1f%%", -diff))
		}
	}

	rotation := 4
	if ss.isFavored(sector) {
		rotation = 10
		signals = append(signals, fmt.Sprintf("%s is in the favored rotation", sector))
	}

	score := models.NewDimensionScore(config.AnalysisSector, []models.SubScore{
		{Name: "base_alignment", Score: alignment, Max: 40},
		{Name: "sector_momentum", Score: momentum, Max: 30},
		{Name: "relative_strength", Score: relative, Max: 20},
		{Name: "rotation_bias", Score: rotation, Max: 10},
	}, signals, risks)

	details := &models.SectorPayload{
		Sector:          sector,
		FavoredSector:   ss.isFavored(sector),
		Level1Average:   in.Level1.AverageScore,
		Level1Consensus: string(in.Level1.Consensus),
	}
	if sectorReturn != nil {
		details.SectorReturn20D = *sectorReturn
	}
	if stockReturn != nil && sectorReturn != nil {
		details.RelativeReturn = *stockReturn - *sectorReturn
	}

	return newResult(ss.spec, in.Symbol, score, details), nil
}

// resolveSector looks the sector up from fundamentals; unknown stays "".
func (ss *SectorStrategist) resolveSector(ctx context.Context, symbol models.Symbol) string {
	if ss.fundamentals == nil {
		return ""
	}
	f, err := ss.fundamentals.Fundamentals(ctx, symbol.Code)
	if err != nil {
		ss.log.Warn().Err(err).Str("symbol", symbol.Code).Msg("sector lookup failed")
		return ""
	}
	return f.Sector
}

// sectorReturn reads the 20-day return of the sector's index from the macro
// snapshot.
func (ss *SectorStrategist) sectorReturn(sector string, macro *dataflows.MacroContext) *float64 {
	if macro == nil {
		return nil
	}
	index := ss.sectors.IndexSymbols[strings.ToLower(sector)]
	if index == "" {
		return macro.MarketReturn20D
	}
	candles, ok := macro.SectorCandles[index]
	if !ok {
		return macro.MarketReturn20D
	}
	return sliceReturn(candles, 20)
}

func (ss *SectorStrategist) stockReturn(ctx context.Context, symbol models.Symbol) *float64 {
	candles, err := ss.prices.DailyCandles(ctx, symbol.Code, 60)
	if err != nil {
		ss.log.Warn().Err(err).Str("symbol", symbol.Code).Msg("stock history unavailable for relative strength")
		return nil
	}
	return sliceReturn(candles, 20)
}

func (ss *SectorStrategist) isFavored(sector string) bool {
	s := strings.ToLower(sector)
	for _, fav := range ss.sectors.FavoredSectors {
		if strings.ToLower(fav) == s {
			return true
		}
	}
	return false
}

// sliceReturn is the percent change over the last n trading days.
func sliceReturn(candles []dataflows.Candle, n int) *float64 {
	snap := indicators.Compute(candles)
	if n == 20 {
		return snap.Return20D
	}
	return snap.Return5D
}
