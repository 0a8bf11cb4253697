// Package indicators computes technical indicators from daily candle series.
// All functions are pure; missing history leaves the corresponding snapshot
// field nil.
package indicators

import (
	"math"

	"github.com/lubanana/kstock-dashboard/internal/dataflows"
)

// MinCandlesFull is the history needed for every indicator in the snapshot.
const MinCandlesFull = 65

// Snapshot is the full indicator state derived from one candle series.
type Snapshot struct {
	CandleCount int
	Close       float64

	MA5         *float64
	MA20        *float64
	MA60        *float64
	PrevMA5     *float64
	PrevMA20    *float64
	MA20Slope5D *float64

	RSI14 *float64

	MACD           *float64
	MACDSignal     *float64
	MACDHist       *float64
	PrevMACD       *float64
	PrevMACDSignal *float64
	PrevMACDHist   *float64

	PercentB      *float64
	BandWidth     *float64
	PrevBandWidth *float64
	AvgBandWidth  *float64
	MiddleBandUp  *bool

	VolumeRatio    *float64
	VolumeTrend    *float64
	VolumeChange5D *float64
	OBVRising      *bool
	PriceRising    *bool

	Return5D     *float64
	Return20D    *float64
	Volatility5D *float64
}

// Compute derives the indicator snapshot from daily candles, oldest first.
func Compute(candles []dataflows.Candle) *Snapshot {
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
		volumes[i] = float64(c.Volume)
	}

	s := &Snapshot{CandleCount: len(candles)}
	if len(closes) == 0 {
		return s
	}
	s.Close = closes[len(closes)-1]

	s.MA5 = smaAt(closes, 5, len(closes))
	s.MA20 = smaAt(closes, 20, len(closes))
	s.MA60 = smaAt(closes, 60, len(closes))
	s.PrevMA5 = smaAt(closes, 5, len(closes)-1)
	s.PrevMA20 = smaAt(closes, 20, len(closes)-1)

	if ma20Prev5 := smaAt(closes, 20, len(closes)-5); ma20Prev5 != nil && s.MA20 != nil && *ma20Prev5 != 0 {
		slope := (*s.MA20 - *ma20Prev5) / *ma20Prev5 * 100
		s.MA20Slope5D = &slope
	}

	s.RSI14 = rsi(closes, 14)

	macdLine := macdSeries(closes, 12, 26)
	if len(macdLine) >= 2 {
		signalLine := emaSeries(macdLine, 9)
		s.MACD = &macdLine[len(macdLine)-1]
		s.PrevMACD = &macdLine[len(macdLine)-2]
		s.MACDSignal = &signalLine[len(signalLine)-1]
		s.PrevMACDSignal = &signalLine[len(signalLine)-2]
		hist := *s.MACD - *s.MACDSignal
		prevHist := *s.PrevMACD - *s.PrevMACDSignal
		s.MACDHist = &hist
		s.PrevMACDHist = &prevHist
	}

	computeBollinger(s, closes)
	computeVolume(s, closes, volumes)

	s.Return5D = pctReturn(closes, 5)
	s.Return20D = pctReturn(closes, 20)
	s.Volatility5D = returnStddev(closes, 5)

	return s
}

// smaAt returns the simple moving average of the `period` values ending just
// before index end, or nil when there is not enough history.
func smaAt(values []float64, period, end int) *float64 {
	if end < period || end > len(values) || period <= 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values[end-period : end] {
		sum += v
	}
	avg := sum / float64(period)
	return &avg
}

// emaSeries computes an EMA seeded with the first value rather than an SMA.
func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// macdSeries returns the MACD line (fast EMA minus slow EMA).
func macdSeries(closes []float64, fast, slow int) []float64 {
	if len(closes) < slow {
		return nil
	}
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)
	out := make([]float64, len(closes))
	for i := range closes {
		out[i] = fastEMA[i] - slowEMA[i]
	}
	return out
}

// rsi computes the relative strength index over the final `period` changes.
func rsi(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}
	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		v := 100.0
		return &v
	}
	rs := gains / losses
	v := 100 - 100/(1+rs)
	return &v
}

func computeBollinger(s *Snapshot, closes []float64) {
	width := bandWidthAt(closes, len(closes))
	if width == nil {
		return
	}
	s.BandWidth = width
	s.PrevBandWidth = bandWidthAt(closes, len(closes)-1)

	// Mean width over the trailing 20 sessions for squeeze detection.
	var widths []float64
	for end := len(closes) - 19; end <= len(closes); end++ {
		if w := bandWidthAt(closes, end); w != nil {
			widths = append(widths, *w)
		}
	}
	if len(widths) > 0 {
		sum := 0.0
		for _, w := range widths {
			sum += w
		}
		avg := sum / float64(len(widths))
		s.AvgBandWidth = &avg
	}

	mid := smaAt(closes, 20, len(closes))
	sd := stddevAt(closes, 20, len(closes))
	if mid != nil && sd != nil {
		upper := *mid + 2**sd
		lower := *mid - 2**sd
		if upper != lower {
			pb := (s.Close - lower) / (upper - lower)
			s.PercentB = &pb
		}
	}

	if prevMid := smaAt(closes, 20, len(closes)-5); prevMid != nil && mid != nil {
		up := *mid > *prevMid
		s.MiddleBandUp = &up
	}
}

func bandWidthAt(closes []float64, end int) *float64 {
	mid := smaAt(closes, 20, end)
	sd := stddevAt(closes, 20, end)
	if mid == nil || sd == nil || *mid == 0 {
		return nil
	}
	w := 4 * *sd / *mid * 100
	return &w
}

func stddevAt(values []float64, period, end int) *float64 {
	mean := smaAt(values, period, end)
	if mean == nil {
		return nil
	}
	sum := 0.0
	for _, v := range values[end-period : end] {
		d := v - *mean
		sum += d * d
	}
	sd := math.Sqrt(sum / float64(period))
	return &sd
}

func computeVolume(s *Snapshot, closes, volumes []float64) {
	volMA20 := smaAt(volumes, 20, len(volumes))
	volMA5 := smaAt(volumes, 5, len(volumes))
	if volMA20 != nil && *volMA20 > 0 {
		ratio := volumes[len(volumes)-1] / *volMA20
		s.VolumeRatio = &ratio
		if volMA5 != nil {
			trend := *volMA5 / *volMA20
			s.VolumeTrend = &trend
		}
	}

	if volMA5 != nil {
		if prior := smaAt(volumes, 5, len(volumes)-5); prior != nil && *prior > 0 {
			change := (*volMA5 - *prior) / *prior * 100
			s.VolumeChange5D = &change
		}
	}

	// On-balance volume direction over the last five sessions.
	obv := obvSeries(closes, volumes)
	if len(obv) >= 6 {
		rising := obv[len(obv)-1] > obv[len(obv)-6]
		s.OBVRising = &rising
	}
	if len(closes) >= 6 {
		rising := closes[len(closes)-1] > closes[len(closes)-6]
		s.PriceRising = &rising
	}
}

func obvSeries(closes, volumes []float64) []float64 {
	if len(closes) == 0 {
		return nil
	}
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

func pctReturn(closes []float64, days int) *float64 {
	if len(closes) < days+1 {
		return nil
	}
	last := closes[len(closes)-1]
	prev := closes[len(closes)-1-days]
	if prev == 0 {
		return nil
	}
	v := (last - prev) / prev * 100
	return &v
}

// returnStddev is the standard deviation of daily percent returns over the
// final `days` sessions.
func returnStddev(closes []float64, days int) *float64 {
	if len(closes) < days+1 {
		return nil
	}
	returns := make([]float64, 0, days)
	for i := len(closes) - days; i < len(closes); i++ {
		if closes[i-1] == 0 {
			return nil
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	sum := 0.0
	for _, r := range returns {
		d := r - mean
		sum += d * d
	}
	sd := math.Sqrt(sum / float64(len(returns)))
	return &sd
}
