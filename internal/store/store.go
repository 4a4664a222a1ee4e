package store

import (
	"errors"
	"fmt"
	"time"

	"indodax_bot/internal/models"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrPositionNotOpen is returned when a settlement references a position
// that is missing or already closed. Settling the same position twice must
// be rejected, not double-counted.
var ErrPositionNotOpen = errors.New("position is not open")

// Store is the persistent repository: candles, trade history, positions and
// the per-pair profit summary, backed by sqlite.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Candle{},
		&models.TradeRecord{},
		&models.Position{},
		&models.ProfitSummary{},
		&models.FeatureRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	log.Infof("✅ Database initialized: %s", path)
	return &Store{db: db}, nil
}

// InsertCandle writes a candle if its (pair, period_start) slot is still
// free. Returns true when a row was actually inserted; re-inserting an
// existing slot is a no-op that keeps the first-written values.
func (s *Store) InsertCandle(c *models.Candle) (bool, error) {
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair"}, {Name: "period_start"}},
		DoNothing: true,
	}).Create(c)
	if res.Error != nil {
		return false, fmt.Errorf("insert candle: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RecentCandles returns up to limit of the newest candles for a pair in
// chronological order.
func (s *Store) RecentCandles(pair string, limit int) ([]models.Candle, error) {
	var candles []models.Candle
	err := s.db.Where("pair = ?", pair).
		Order("period_start DESC").
		Limit(limit).
		Find(&candles).Error
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}

	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// CandlesInRange returns candles with period_start in [from, to), ascending.
func (s *Store) CandlesInRange(pair string, from, to int64) ([]models.Candle, error) {
	var candles []models.Candle
	err := s.db.Where("pair = ? AND period_start >= ? AND period_start < ?", pair, from, to).
		Order("period_start ASC").
		Find(&candles).Error
	if err != nil {
		return nil, fmt.Errorf("query candle range: %w", err)
	}
	return candles, nil
}

// OpenPositions returns the open positions for a pair, oldest entry first.
func (s *Store) OpenPositions(pair string) ([]models.Position, error) {
	var positions []models.Position
	err := s.db.Where("pair = ? AND status = ?", pair, models.PositionOpen).
		Order("entry_timestamp ASC, id ASC").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	return positions, nil
}

// RecordBuyFill persists a confirmed buy: the new position and its audit
// trade row succeed or fail together.
func (s *Store) RecordBuyFill(position *models.Position, trade *models.TradeRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(position).Error; err != nil {
			return fmt.Errorf("create position: %w", err)
		}
		trade.PositionID = nil
		if err := tx.Create(trade).Error; err != nil {
			return fmt.Errorf("create buy trade: %w", err)
		}
		return nil
	})
}

// SettleSell applies a confirmed closing sell as a single transaction: the
// position flips OPEN→CLOSED, the sell trade row is inserted with its link
// and realized P/L, and the pair's profit summary is bumped additively.
// Returns ErrPositionNotOpen when the position was already settled.
func (s *Store) SettleSell(positionID uint, trade *models.TradeRecord, profitLoss float64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Position{}).
			Where("id = ? AND status = ?", positionID, models.PositionOpen).
			Update("status", models.PositionClosed)
		if res.Error != nil {
			return fmt.Errorf("close position: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPositionNotOpen
		}

		trade.PositionID = &positionID
		trade.ProfitLoss = &profitLoss
		if err := tx.Create(trade).Error; err != nil {
			return fmt.Errorf("create sell trade: %w", err)
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "pair"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_realized_profit": gorm.Expr("total_realized_profit + ?", profitLoss),
				"last_updated":          time.Now().Unix(),
			}),
		}).Create(&models.ProfitSummary{
			Pair:                trade.Pair,
			TotalRealizedProfit: profitLoss,
			LastUpdated:         time.Now().Unix(),
		}).Error
		if err != nil {
			return fmt.Errorf("update profit summary: %w", err)
		}
		return nil
	})
}

// RecentTrades returns the newest trade records first.
func (s *Store) RecentTrades(pair string, limit int) ([]models.TradeRecord, error) {
	var trades []models.TradeRecord
	q := s.db.Order("timestamp DESC, id DESC").Limit(limit)
	if pair != "" {
		q = q.Where("pair = ?", pair)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return trades, nil
}

// ProfitSummaries returns the realized profit row for every traded pair.
func (s *Store) ProfitSummaries() ([]models.ProfitSummary, error) {
	var rows []models.ProfitSummary
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query profit summary: %w", err)
	}
	return rows, nil
}

// SaveFeatureRows caches computed indicator rows, skipping slots already
// present.
func (s *Store) SaveFeatureRows(rows []models.FeatureRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair"}, {Name: "period_start"}},
		DoNothing: true,
	}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("save features: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
