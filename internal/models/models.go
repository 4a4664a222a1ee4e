package models

import "time"

// Signal is the per-cycle output of the strategy classifier.
// It is not persisted; the persisted state is the Position.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// ExitReason is the risk manager's verdict for an open position.
type ExitReason string

const (
	ExitNone       ExitReason = ""
	ExitTakeProfit ExitReason = "Take-Profit"
	ExitStopLoss   ExitReason = "Stop-Loss"
)

// Side of an executed trade.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Position status values.
const (
	PositionOpen   = "OPEN"
	PositionClosed = "CLOSED"
)

// Tick is a single raw trade observed on the exchange. Immutable;
// deduplicated by TradeID within the buffer retention window.
type Tick struct {
	Pair      string
	Timestamp int64
	Price     float64
	Quantity  float64
	TradeID   string
}

// Candle is a closed OHLCV bucket. Unique per (pair, period_start) and
// immutable after the first insert.
type Candle struct {
	ID          uint    `gorm:"primaryKey"`
	Pair        string  `gorm:"index:idx_candle_pair_start,unique;not null" json:"pair"`
	PeriodStart int64   `gorm:"index:idx_candle_pair_start,unique;not null" json:"period_start"`
	Open        float64 `gorm:"not null" json:"open"`
	High        float64 `gorm:"not null" json:"high"`
	Low         float64 `gorm:"not null" json:"low"`
	Close       float64 `gorm:"not null" json:"close"`
	Volume      float64 `gorm:"not null" json:"volume"`
}

func (Candle) TableName() string { return "ohlcv_data" }

// Position is an open or closed buy lot. Created on a filled BUY, closed by
// the SELL that references it, never deleted.
type Position struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Pair            string  `gorm:"index;not null" json:"pair"`
	EntryPrice      float64 `gorm:"not null" json:"entry_price"`
	Quantity        float64 `gorm:"not null" json:"quantity"`
	QuoteAmount     float64 `gorm:"not null" json:"quote_amount"`
	EntryTimestamp  int64   `gorm:"not null" json:"entry_timestamp"`
	ExchangeOrderID string  `json:"exchange_order_id"`
	Status          string  `gorm:"index;not null;default:OPEN" json:"status"`
}

func (Position) TableName() string { return "positions" }

// TradeRecord is an append-only audit row for every filled order.
type TradeRecord struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	Pair            string   `gorm:"index;not null" json:"pair"`
	Side            string   `gorm:"not null" json:"side"`
	Price           float64  `gorm:"not null" json:"price"`
	Quantity        float64  `gorm:"not null" json:"quantity"`
	QuoteAmount     float64  `gorm:"not null" json:"quote_amount"`
	Timestamp       int64    `gorm:"not null" json:"timestamp"`
	ExchangeOrderID string   `gorm:"uniqueIndex" json:"exchange_order_id"`
	Status          string   `gorm:"not null;default:open" json:"status"`
	ProfitLoss      *float64 `json:"profit_loss,omitempty"`
	PositionID      *uint    `json:"linked_position_id,omitempty"`
	Notes           string   `json:"notes"`
}

func (TradeRecord) TableName() string { return "trade_history" }

// ProfitSummary accumulates realized profit per pair. One row per pair,
// mutated additively on every closing SELL.
type ProfitSummary struct {
	Pair                string  `gorm:"primaryKey" json:"pair"`
	TotalRealizedProfit float64 `gorm:"not null;default:0" json:"total_realized_profit"`
	LastUpdated         int64   `gorm:"not null" json:"last_updated"`
}

func (ProfitSummary) TableName() string { return "profit_summary" }

// FeatureRow is an optional per-candle indicator cache for the offline
// training pipeline. Derived data; safe to truncate and rebuild.
type FeatureRow struct {
	ID          uint    `gorm:"primaryKey"`
	Pair        string  `gorm:"index:idx_feature_pair_start,unique;not null" json:"pair"`
	PeriodStart int64   `gorm:"index:idx_feature_pair_start,unique;not null" json:"period_start"`
	Close       float64 `json:"close"`
	SMAShort    float64 `json:"sma_short"`
	SMALong     float64 `json:"sma_long"`
	RSI14       float64 `json:"rsi_14"`
	EMA20       float64 `json:"ema_20"`
	EMA50       float64 `json:"ema_50"`
	MACD        float64 `json:"macd"`
	MACDSignal  float64 `json:"macd_signal"`
}

func (FeatureRow) TableName() string { return "feature_data" }

// Ticker is the current market quote for a pair.
type Ticker struct {
	Last float64
	Bid  float64
	Ask  float64
}

// OrderResult is the exchange's response to a placed order.
type OrderResult struct {
	OrderID        string
	FilledQuantity float64
}

// TradeEvent is passed to notification callbacks when an order fills.
type TradeEvent struct {
	Pair       string
	Side       string
	Price      float64
	Quantity   float64
	Quote      float64
	ProfitLoss float64
	Reason     string
	Time       time.Time
}
