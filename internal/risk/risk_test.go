package risk

import (
	"testing"

	"indodax_bot/internal/models"
)

func openPosition(entry float64) *models.Position {
	return &models.Position{
		ID:         1,
		Pair:       "btcidr",
		EntryPrice: entry,
		Quantity:   0.001,
		Status:     models.PositionOpen,
	}
}

func TestEvaluateThresholds(t *testing.T) {
	m := NewManager(5.0, 2.0)
	pos := openPosition(70_000_000)

	tests := []struct {
		name  string
		price float64
		want  models.ExitReason
	}{
		{"exactly at take-profit", 73_500_000, models.ExitTakeProfit},
		{"one below take-profit", 73_499_999, models.ExitNone},
		{"above take-profit", 74_000_000, models.ExitTakeProfit},
		{"exactly at stop-loss", 68_600_000, models.ExitStopLoss},
		{"one above stop-loss", 68_600_001, models.ExitNone},
		{"below stop-loss", 68_000_000, models.ExitStopLoss},
		{"between thresholds", 70_000_000, models.ExitNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Evaluate(pos, tt.price); got != tt.want {
				t.Errorf("Evaluate(%.0f) = %q, want %q", tt.price, got, tt.want)
			}
		})
	}
}

func TestEvaluateTakeProfitWinsOverStopLoss(t *testing.T) {
	// Pathological parameters where both thresholds hold at once:
	// TP at -10% sits below SL at -2%. Take-profit is checked first.
	m := NewManager(-10.0, 2.0)
	pos := openPosition(100)

	if got := m.Evaluate(pos, 95); got != models.ExitTakeProfit {
		t.Errorf("Evaluate = %q, want take-profit to win", got)
	}
}

func TestEvaluateIgnoresNonOpenPositions(t *testing.T) {
	m := NewManager(5.0, 2.0)

	if got := m.Evaluate(nil, 100); got != models.ExitNone {
		t.Errorf("nil position: got %q, want none", got)
	}

	closed := openPosition(100)
	closed.Status = models.PositionClosed
	if got := m.Evaluate(closed, 200); got != models.ExitNone {
		t.Errorf("closed position: got %q, want none", got)
	}
}
