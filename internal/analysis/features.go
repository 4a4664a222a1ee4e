package analysis

import (
	"indodax_bot/internal/models"
)

// BuildFeatureRows computes the indicator cache consumed by the offline
// training pipeline: one row per closed candle, using all history up to and
// including it. Rows for the warmup prefix (fewer than minHistory candles)
// are skipped.
func BuildFeatureRows(candles []models.Candle, shortWindow, longWindow, rsiPeriod int) []models.FeatureRow {
	minHistory := longWindow
	if minHistory < 35 { // MACD signal line needs the longest warmup
		minHistory = 35
	}
	if len(candles) < minHistory {
		return nil
	}

	rows := make([]models.FeatureRow, 0, len(candles)-minHistory+1)
	for i := minHistory - 1; i < len(candles); i++ {
		window := candles[:i+1]
		rsi, _ := RSI(window, rsiPeriod)
		macd, signal := MACD(window)

		rows = append(rows, models.FeatureRow{
			Pair:        window[i].Pair,
			PeriodStart: window[i].PeriodStart,
			Close:       window[i].Close,
			SMAShort:    SMA(window, shortWindow),
			SMALong:     SMA(window, longWindow),
			RSI14:       rsi,
			EMA20:       EMA(window, 20),
			EMA50:       EMA(window, 50),
			MACD:        macd,
			MACDSignal:  signal,
		})
	}
	return rows
}
