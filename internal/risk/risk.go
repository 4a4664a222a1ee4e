package risk

import (
	"indodax_bot/internal/models"

	log "github.com/sirupsen/logrus"
)

// Manager evaluates open positions against take-profit/stop-loss thresholds.
// The check is unconditional: it needs no indicator confirmation and always
// takes precedence over the strategy signal for the same cycle.
type Manager struct {
	TakeProfitPct float64
	StopLossPct   float64
}

func NewManager(takeProfitPct, stopLossPct float64) *Manager {
	return &Manager{TakeProfitPct: takeProfitPct, StopLossPct: stopLossPct}
}

// Evaluate returns the exit reason for a position at the current price.
// Take-profit is checked before stop-loss when pathological parameters make
// both thresholds hold at once.
func (m *Manager) Evaluate(position *models.Position, currentPrice float64) models.ExitReason {
	if position == nil || position.Status != models.PositionOpen {
		return models.ExitNone
	}

	takeProfitPrice := position.EntryPrice * (1 + m.TakeProfitPct/100)
	stopLossPrice := position.EntryPrice * (1 - m.StopLossPct/100)

	log.WithFields(log.Fields{
		"entry":     position.EntryPrice,
		"current":   currentPrice,
		"tp_target": takeProfitPrice,
		"sl_target": stopLossPrice,
	}).Debug("Risk check")

	if currentPrice >= takeProfitPrice {
		return models.ExitTakeProfit
	}
	if currentPrice <= stopLossPrice {
		return models.ExitStopLoss
	}
	return models.ExitNone
}
