package ledger

import (
	"errors"
	"testing"

	"indodax_bot/config"
	"indodax_bot/internal/models"
)

type fakeRepo struct {
	stored      []models.Position
	nextID      uint
	settleErr   error
	settleCalls int
}

func (f *fakeRepo) OpenPositions(pair string) ([]models.Position, error) {
	out := make([]models.Position, len(f.stored))
	copy(out, f.stored)
	return out, nil
}

func (f *fakeRepo) RecordBuyFill(position *models.Position, trade *models.TradeRecord) error {
	f.nextID++
	position.ID = f.nextID
	f.stored = append(f.stored, *position)
	return nil
}

func (f *fakeRepo) SettleSell(positionID uint, trade *models.TradeRecord, profitLoss float64) error {
	f.settleCalls++
	if f.settleErr != nil {
		return f.settleErr
	}
	for i, p := range f.stored {
		if p.ID == positionID {
			f.stored = append(f.stored[:i], f.stored[i+1:]...)
			return nil
		}
	}
	return errors.New("unknown position")
}

func openAt(l *Ledger, t *testing.T, ts int64) models.Position {
	t.Helper()
	pos := &models.Position{EntryPrice: 100, Quantity: 0.5, QuoteAmount: 50, EntryTimestamp: ts}
	if err := l.RecordOpen(pos, &models.TradeRecord{Side: models.SideBuy}); err != nil {
		t.Fatalf("open at %d: %v", ts, err)
	}
	return *pos
}

func TestSingleModeRejectsSecondOpen(t *testing.T) {
	repo := &fakeRepo{}
	l := New(repo, "btcidr", config.ModeSingle)

	openAt(l, t, 1000)

	err := l.RecordOpen(&models.Position{EntryTimestamp: 2000}, &models.TradeRecord{})
	if err == nil {
		t.Fatal("second open in SINGLE mode succeeded")
	}
	// Rejected before any repository write.
	if len(repo.stored) != 1 {
		t.Fatalf("repo has %d positions, want 1", len(repo.stored))
	}
}

func TestFIFOQueueOrdering(t *testing.T) {
	repo := &fakeRepo{}
	l := New(repo, "btcidr", config.ModeFIFOQueue)

	first := openAt(l, t, 1000)
	second := openAt(l, t, 2000)

	oldest, ok := l.Oldest()
	if !ok || oldest.ID != first.ID {
		t.Fatalf("oldest = %+v, want position %d", oldest, first.ID)
	}

	if err := l.RecordClose(first.ID, &models.TradeRecord{Side: models.SideSell}, 5); err != nil {
		t.Fatalf("close first: %v", err)
	}

	oldest, ok = l.Oldest()
	if !ok || oldest.ID != second.ID {
		t.Fatalf("after closing first, oldest = %+v, want position %d", oldest, second.ID)
	}
}

func TestRecordCloseUnknownPosition(t *testing.T) {
	repo := &fakeRepo{}
	l := New(repo, "btcidr", config.ModeSingle)
	openAt(l, t, 1000)

	if err := l.RecordClose(999, &models.TradeRecord{}, 0); err == nil {
		t.Fatal("closing unknown position succeeded")
	}
	if repo.settleCalls != 0 {
		t.Fatalf("repository settled %d times for an unknown position", repo.settleCalls)
	}
	if !l.HasOpen() {
		t.Fatal("open position dropped by failed close")
	}
}

func TestRecordCloseKeepsPositionOnRepoError(t *testing.T) {
	repo := &fakeRepo{}
	l := New(repo, "btcidr", config.ModeSingle)
	pos := openAt(l, t, 1000)

	repo.settleErr = errors.New("db locked")
	if err := l.RecordClose(pos.ID, &models.TradeRecord{}, 0); err == nil {
		t.Fatal("close succeeded despite repository error")
	}
	// The in-memory entry only drops after the repository commits.
	if !l.HasOpen() {
		t.Fatal("position removed from memory without a committed settlement")
	}
}

func TestLoadRestoresOpenPositions(t *testing.T) {
	repo := &fakeRepo{stored: []models.Position{
		{ID: 7, Pair: "btcidr", EntryTimestamp: 1000, Status: models.PositionOpen},
		{ID: 9, Pair: "btcidr", EntryTimestamp: 2000, Status: models.PositionOpen},
	}}
	l := New(repo, "btcidr", config.ModeFIFOQueue)

	if err := l.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := l.OpenPositions()
	if len(got) != 2 || got[0].ID != 7 || got[1].ID != 9 {
		t.Fatalf("loaded positions = %+v, want ids 7,9", got)
	}
}

func TestOpenPositionsReturnsCopy(t *testing.T) {
	repo := &fakeRepo{}
	l := New(repo, "btcidr", config.ModeFIFOQueue)
	openAt(l, t, 1000)

	snap := l.OpenPositions()
	snap[0].Status = "TAMPERED"

	fresh := l.OpenPositions()
	if fresh[0].Status != models.PositionOpen {
		t.Fatal("mutating the snapshot leaked into the ledger")
	}
}
