package analysis

import (
	"indodax_bot/internal/models"

	log "github.com/sirupsen/logrus"
)

// SignalGenerator classifies each cycle as BUY, SELL or HOLD from an MA
// crossover confirmed by RSI. It is a stateless classifier: position state is
// passed in, never held.
type SignalGenerator struct {
	ShortWindow int
	LongWindow  int
	RSIPeriod   int

	// RSI confirmation bounds. A golden cross into the overbought zone or a
	// death cross into the oversold zone degrades to HOLD.
	OverboughtRSI float64
	OversoldRSI   float64
}

func NewSignalGenerator(shortWindow, longWindow, rsiPeriod int) *SignalGenerator {
	return &SignalGenerator{
		ShortWindow:   shortWindow,
		LongWindow:    longWindow,
		RSIPeriod:     rsiPeriod,
		OverboughtRSI: 70,
		OversoldRSI:   30,
	}
}

// Evaluate derives the signal for the latest closed candle. Risk exits are
// handled upstream and preempt this entirely for the cycle.
func (g *SignalGenerator) Evaluate(candles []models.Candle, hasOpenPosition bool) models.Signal {
	latest, prev, ok := Compute(candles, g.ShortWindow, g.LongWindow, g.RSIPeriod)
	if !ok {
		log.Debug("Not enough candle history for indicators, holding")
		return models.SignalHold
	}
	if !latest.RSIValid {
		return models.SignalHold
	}

	goldenCross := prev.ShortMA <= prev.LongMA && latest.ShortMA > latest.LongMA
	deathCross := prev.ShortMA >= prev.LongMA && latest.ShortMA < latest.LongMA

	log.WithFields(log.Fields{
		"sma_short": latest.ShortMA,
		"sma_long":  latest.LongMA,
		"rsi":       latest.RSI,
	}).Debug("Strategy check")

	if goldenCross && latest.RSI < g.OverboughtRSI && !hasOpenPosition {
		log.Infof(">>> Golden Cross confirmed by RSI (%.2f < %.0f): BUY signal", latest.RSI, g.OverboughtRSI)
		return models.SignalBuy
	}

	if deathCross && latest.RSI > g.OversoldRSI && hasOpenPosition {
		log.Infof(">>> Death Cross confirmed by RSI (%.2f > %.0f): SELL signal", latest.RSI, g.OversoldRSI)
		return models.SignalSell
	}

	return models.SignalHold
}
