package analysis

import (
	"indodax_bot/internal/models"
)

// Snapshot holds the rolling indicators for one evaluation point.
type Snapshot struct {
	ShortMA  float64
	LongMA   float64
	RSI      float64
	RSIValid bool
	// Timestamp is the period start of the candle the snapshot was taken at.
	Timestamp int64
}

// Compute calculates the latest and one-period-prior indicator snapshots over
// a chronologically ordered candle series. Crossover detection is a
// two-sample comparison, so both are always produced together.
//
// ok is false when fewer than longWindow+2 candles are available; that is a
// normal HOLD precondition, not an error.
func Compute(candles []models.Candle, shortWindow, longWindow, rsiPeriod int) (latest, prev Snapshot, ok bool) {
	if len(candles) < longWindow+2 {
		return Snapshot{}, Snapshot{}, false
	}

	latest = snapshotAt(candles, shortWindow, longWindow, rsiPeriod)
	prev = snapshotAt(candles[:len(candles)-1], shortWindow, longWindow, rsiPeriod)
	return latest, prev, true
}

func snapshotAt(candles []models.Candle, shortWindow, longWindow, rsiPeriod int) Snapshot {
	s := Snapshot{
		ShortMA:   SMA(candles, shortWindow),
		LongMA:    SMA(candles, longWindow),
		Timestamp: candles[len(candles)-1].PeriodStart,
	}
	s.RSI, s.RSIValid = RSI(candles, rsiPeriod)
	return s
}

// SMA is the arithmetic mean of close over the trailing window. Returns 0
// when the series is shorter than the window.
func SMA(candles []models.Candle, window int) float64 {
	if window <= 0 || len(candles) < window {
		return 0
	}
	sum := 0.0
	for i := len(candles) - window; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(window)
}

// RSI is the relative strength index over close deltas of the trailing
// period. Reported as missing until period+1 closes are available.
func RSI(candles []models.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	gains := 0.0
	losses := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// EMA is the exponential moving average of close, seeded with the SMA of the
// first window. Not used by the core strategy; exported for the feature cache.
func EMA(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) == 0 {
		return 0
	}
	if len(candles) < period {
		return SMA(candles, len(candles))
	}

	multiplier := 2.0 / float64(period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	ema := sum / float64(period)

	for i := period; i < len(candles); i++ {
		ema = candles[i].Close*multiplier + ema*(1-multiplier)
	}
	return ema
}

// MACD returns the 12/26 MACD line and its 9-period signal line.
// Feature-export only.
func MACD(candles []models.Candle) (macd, signal float64) {
	if len(candles) < 35 {
		return 0, 0
	}

	macdValues := make([]float64, 0, 15)
	for i := len(candles) - 15; i < len(candles); i++ {
		ema12 := EMA(candles[:i+1], 12)
		ema26 := EMA(candles[:i+1], 26)
		macdValues = append(macdValues, ema12-ema26)
	}

	macd = macdValues[len(macdValues)-1]

	multiplier := 2.0 / 10.0
	signal = macdValues[0]
	for i := 1; i < len(macdValues); i++ {
		signal = macdValues[i]*multiplier + signal*(1-multiplier)
	}
	return macd, signal
}
