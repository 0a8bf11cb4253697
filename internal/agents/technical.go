package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lubanana/kstock-dashboard/internal/config"
	"github.com/lubanana/kstock-dashboard/internal/indicators"
	"github.com/lubanana/kstock-dashboard/internal/models"
)

// technicalLookbackDays covers MA60 plus slope history with weekend slack.
const technicalLookbackDays = 120

// neutralSubScore is the fallback for a sub-dimension whose data is missing.
const neutralSubScore = 12

// TechnicalScorer scores price trend, momentum, volatility bands and volume,
// 25 points each.
type TechnicalScorer struct {
	spec   config.AgentSpec
	prices PriceSource
	log    zerolog.Logger
}

// NewTechnicalScorer creates the technical dimension scorer.
func NewTechnicalScorer(spec config.AgentSpec, prices PriceSource, log zerolog.Logger) *TechnicalScorer {
	return &TechnicalScorer{spec: spec, prices: prices, log: log.With().Str("agent", spec.ID).Logger()}
}

func (t *TechnicalScorer) Spec() config.AgentSpec { return t.spec }

// Score fetches candles and walks the four indicator ladders.
func (t *TechnicalScorer) Score(ctx context.Context, symbol models.Symbol) (*models.AgentResult, error) {
	candles, err := t.prices.DailyCandles(ctx, symbol.Code, technicalLookbackDays)
	if err != nil {
		return nil, fmt.Errorf("technical analysis for %s: %w", symbol.Code, err)
	}

	snap := indicators.Compute(candles)
	t.log.Debug().Str("symbol", symbol.Code).Int("candles", snap.CandleCount).Msg("scoring technical dimension")

	var signals, risks []string

	trend := t.scorePriceTrend(snap, &signals, &risks)
	momentum := t.scoreMomentum(snap, &signals, &risks)
	bands := t.scoreBollinger(snap, &signals, &risks)
	volume := t.scoreVolume(snap, &signals, &risks)

	score := models.NewDimensionScore(config.AnalysisTechnical, []models.SubScore{
		{Name: "price_trend", Score: trend, Max: 25},
		{Name: "momentum", Score: momentum, Max: 25},
		{Name: "bollinger", Score: bands, Max: 25},
		{Name: "volume", Score: volume, Max: 25},
	}, signals, risks)

	details := &models.TechnicalPayload{
		CurrentPrice: snap.Close,
		Candles:      snap.CandleCount,
	}
	if snap.MA5 != nil {
		details.MA5 = *snap.MA5
	}
	if snap.MA20 != nil {
		details.MA20 = *snap.MA20
	}
	if snap.MA60 != nil {
		details.MA60 = *snap.MA60
	}
	if snap.RSI14 != nil {
		details.RSI = *snap.RSI14
	}
	if snap.MACD != nil {
		details.MACD = *snap.MACD
	}
	if snap.MACDSignal != nil {
		details.MACDSignal = *snap.MACDSignal
	}
	if snap.PercentB != nil {
		details.PercentB = *snap.PercentB
	}
	if snap.VolumeRatio != nil {
		details.VolumeRatio = *snap.VolumeRatio
	}

	return newResult(t.spec, symbol, score, details), nil
}

// scorePriceTrend: moving average alignment, golden cross bonus, price
// position and MA20 slope, capped at 25.
func (t *TechnicalScorer) scorePriceTrend(s *indicators.Snapshot, signals, risks *[]string) int {
	if s.MA5 == nil || s.MA20 == nil || s.MA60 == nil {
		*signals = append(*signals, "price trend: insufficient history, scored neutral")
		return neutralSubScore
	}

	score := 0
	switch {
	case *s.MA5 > *s.MA20 && *s.MA20 > *s.MA60:
		score += 10
		*signals = append(*signals, "bullish moving average alignment (MA5 > MA20 > MA60)")
	case *s.MA5 > *s.MA20:
		score += 6
	case *s.MA5 < *s.MA20 && *s.MA20 < *s.MA60:
		score += 2
		*risks = append(*risks, "bearish moving average alignment")
	default:
		score += 4
	}

	if s.PrevMA5 != nil && s.PrevMA20 != nil && *s.PrevMA5 <= *s.PrevMA20 && *s.MA5 > *s.MA20 {
		score += 3
		*signals = append(*signals, "golden cross (MA5 crossed above MA20)")
	}

	if s.Close > *s.MA5 {
		score += 3
	}
	if s.Close > *s.MA20 {
		score += 3
	}
	if s.Close > *s.MA60 {
		score += 2
	}

	if s.MA20Slope5D != nil {
		switch {
		case *s.MA20Slope5D > 2:
			score += 7
		case *s.MA20Slope5D > 0.5:
			score += 4
		case *s.MA20Slope5D > -0.5:
			score += 2
		}
	}

	return clamp(score, 0, 25)
}

// scoreMomentum: RSI band, MACD state and histogram direction.
func (t *TechnicalScorer) scoreMomentum(s *indicators.Snapshot, signals, risks *[]string) int {
	if s.RSI14 == nil || s.MACD == nil {
		*signals = append(*signals, "momentum: insufficient history, scored neutral")
		return neutralSubScore
	}

	score := 0
	rsi := *s.RSI14
	switch {
	case rsi > 50 && rsi < 70:
		score += 8
	case rsi >= 70:
		score += 4
		*risks = append(*risks, fmt.Sprintf("RSI overbought at %.1f", rsi))
	case rsi > 30:
		score += 4
	default:
		score += 2
		*risks = append(*risks, fmt.Sprintf("RSI oversold at %.1f", rsi))
	}

	macd, signal := *s.MACD, *s.MACDSignal
	bullishCross := s.PrevMACD != nil && s.PrevMACDSignal != nil &&
		*s.PrevMACD <= *s.PrevMACDSignal && macd > signal
	switch {
	case bullishCross:
		score += 10
		*signals = append(*signals, "MACD bullish crossover")
	case macd > signal && macd > 0:
		score += 8
	case macd > signal:
		score += 5
	case macd > 0:
		score += 3
	}

	if s.MACDHist != nil && s.PrevMACDHist != nil {
		hist, prev := *s.MACDHist, *s.PrevMACDHist
		switch {
		case hist > prev && hist > 0:
			score += 7
		case hist > prev:
			score += 4
		case hist > 0:
			score += 3
		}
	}

	return clamp(score, 0, 25)
}

// scoreBollinger: band position, squeeze state and band direction.
func (t *TechnicalScorer) scoreBollinger(s *indicators.Snapshot, signals, risks *[]string) int {
	if s.PercentB == nil || s.BandWidth == nil {
		*signals = append(*signals, "bollinger: insufficient history, scored neutral")
		return neutralSubScore
	}

	score := 0
	pb := *s.PercentB
	switch {
	case pb >= 0.4 && pb <= 0.6:
		score += 10
	case pb >= 0.2 && pb < 0.4:
		score += 8
	case pb > 0.6 && pb <= 0.8:
		score += 7
	case pb > 0.8:
		score += 4
		*risks = append(*risks, "price pressing the upper Bollinger band")
	default:
		score += 3
		*risks = append(*risks, "price pressing the lower Bollinger band")
	}

	if s.AvgBandWidth != nil && *s.AvgBandWidth > 0 {
		width, avg := *s.BandWidth, *s.AvgBandWidth
		entering := s.PrevBandWidth != nil && *s.PrevBandWidth >= avg*0.8 && width < avg*0.8
		switch {
		case entering:
			score += 8
			*signals = append(*signals, "Bollinger squeeze forming")
		case width < avg*0.8:
			score += 6
		case width > avg*1.5:
			score += 4
		default:
			score += 5
		}
	} else {
		score += 5
	}

	if s.MiddleBandUp != nil {
		switch {
		case *s.MiddleBandUp && pb > 0.5:
			score += 7
		case *s.MiddleBandUp:
			score += 5
		case pb > 0.5:
			score += 3
		}
	}

	return clamp(score, 0, 25)
}

// scoreVolume: relative volume, volume trend and OBV confirmation.
func (t *TechnicalScorer) scoreVolume(s *indicators.Snapshot, signals, risks *[]string) int {
	if s.VolumeRatio == nil {
		*signals = append(*signals, "volume: insufficient history, scored neutral")
		return neutralSubScore
	}

	score := 0
	switch ratio := *s.VolumeRatio; {
	case ratio >= 2.0:
		score += 10
		*signals = append(*signals, fmt.Sprintf("volume surge at %.1fx the 20-day average", ratio))
	case ratio >= 1.5:
		score += 8
	case ratio >= 1.0:
		score += 6
	case ratio >= 0.7:
		score += 3
	}

	if s.VolumeTrend != nil {
		switch trend := *s.VolumeTrend; {
		case trend > 1.3:
			score += 8
		case trend > 1.1:
			score += 5
		case trend > 0.9:
			score += 3
		}
	}

	if s.OBVRising != nil && s.PriceRising != nil {
		switch {
		case *s.OBVRising && *s.PriceRising:
			score += 7
		case *s.OBVRising:
			score += 5
		case *s.PriceRising:
			score += 3
			*risks = append(*risks, "price rising without OBV confirmation")
		}
	}

	return clamp(score, 0, 25)
}
