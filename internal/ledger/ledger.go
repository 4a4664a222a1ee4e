package ledger

import (
	"fmt"
	"sync"

	"indodax_bot/config"
	"indodax_bot/internal/models"

	log "github.com/sirupsen/logrus"
)

// Repository is the slice of the store the ledger needs. Position mutations
// and their paired trade-record/profit-summary writes are atomic on the
// repository side.
type Repository interface {
	OpenPositions(pair string) ([]models.Position, error)
	RecordBuyFill(position *models.Position, trade *models.TradeRecord) error
	SettleSell(positionID uint, trade *models.TradeRecord, profitLoss float64) error
}

// Ledger tracks the open buy positions for one trading pair. It is the
// single source of truth during the process lifetime: initialized once from
// the repository at startup and kept consistent by routing every mutation
// through the repository's transactions, instead of re-querying after each
// trade.
type Ledger struct {
	mu        sync.Mutex
	repo      Repository
	pair      string
	mode      config.PositionMode
	positions []models.Position // FIFO by entry timestamp
}

func New(repo Repository, pair string, mode config.PositionMode) *Ledger {
	return &Ledger{repo: repo, pair: pair, mode: mode}
}

// Load initializes the in-memory state from the repository.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions, err := l.repo.OpenPositions(l.pair)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}
	l.positions = positions
	log.Infof("Found %d open position(s) for %s", len(positions), l.pair)
	return nil
}

// OpenPositions returns a copy of the open positions, oldest first.
func (l *Ledger) OpenPositions() []models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Position, len(l.positions))
	copy(out, l.positions)
	return out
}

func (l *Ledger) HasOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions) > 0
}

// Oldest returns the open position that would be closed next (FIFO: capital
// committed first is released first).
func (l *Ledger) Oldest() (models.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.positions) == 0 {
		return models.Position{}, false
	}
	return l.positions[0], true
}

// RecordOpen persists a filled buy as a new position plus its audit trade
// row, then appends it to the in-memory queue. In SINGLE mode a second open
// position per pair is a precondition failure, rejected before any write.
func (l *Ledger) RecordOpen(position *models.Position, trade *models.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mode == config.ModeSingle && len(l.positions) > 0 {
		return fmt.Errorf("pair %s already has an open position (SINGLE mode)", l.pair)
	}

	position.Pair = l.pair
	position.Status = models.PositionOpen
	if err := l.repo.RecordBuyFill(position, trade); err != nil {
		return err
	}

	l.positions = append(l.positions, *position)
	return nil
}

// RecordClose settles a filled sell against one open position: the
// repository transaction closes the position, writes the linked sell record
// and bumps the profit summary; only then is the in-memory entry dropped.
func (l *Ledger) RecordClose(positionID uint, trade *models.TradeRecord, profitLoss float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, p := range l.positions {
		if p.ID == positionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("position %d is not open for %s", positionID, l.pair)
	}

	if err := l.repo.SettleSell(positionID, trade, profitLoss); err != nil {
		return err
	}

	l.positions = append(l.positions[:idx], l.positions[idx+1:]...)
	return nil
}
