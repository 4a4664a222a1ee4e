package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"indodax_bot/config"
	"indodax_bot/internal/analysis"
	"indodax_bot/internal/exchange"
	"indodax_bot/internal/ledger"
	"indodax_bot/internal/models"
	"indodax_bot/internal/risk"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CycleResult is the explicit outcome of one decision cycle. The run loop
// consumes these instead of relying on recovered panics or sentinel errors:
// every result sleeps the same interval and the loop never terminates on
// failure.
type CycleResult int

const (
	CycleHeld CycleResult = iota
	CycleBought
	CycleSold
	CycleRejected // precondition or exchange rejection, nothing mutated
	CycleFailed   // transient error, nothing mutated
)

func (r CycleResult) String() string {
	switch r {
	case CycleHeld:
		return "HELD"
	case CycleBought:
		return "BOUGHT"
	case CycleSold:
		return "SOLD"
	case CycleRejected:
		return "REJECTED"
	case CycleFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// CandleSource is the candle history the strategy reads. Candle writes are
// owned by the collector; the engine only queries.
type CandleSource interface {
	RecentCandles(pair string, limit int) ([]models.Candle, error)
}

// Engine is the execution coordinator: on each cycle it consults the risk
// manager first, then the signal generator, places the resulting order and
// commits the outcome to the ledger. One logical decision loop per pair.
type Engine struct {
	client  exchange.Client
	candles CandleSource
	ledger  *ledger.Ledger
	riskMgr *risk.Manager
	signals *analysis.SignalGenerator
	cfg     *config.Config

	mu         sync.RWMutex
	isRunning  bool
	stopChan   chan struct{}
	lastSignal models.Signal
	lastCycle  time.Time
	lastResult CycleResult

	onTradeOpen  func(models.TradeEvent)
	onTradeClose func(models.TradeEvent)
}

func New(client exchange.Client, candles CandleSource, lgr *ledger.Ledger, cfg *config.Config) *Engine {
	return &Engine{
		client:     client,
		candles:    candles,
		ledger:     lgr,
		riskMgr:    risk.NewManager(cfg.TakeProfitPct, cfg.StopLossPct),
		signals:    analysis.NewSignalGenerator(cfg.ShortMAWindow, cfg.LongMAWindow, cfg.RSIPeriod),
		cfg:        cfg,
		lastSignal: models.SignalHold,
	}
}

// SetCallbacks registers notification hooks for filled orders.
func (e *Engine) SetCallbacks(onOpen, onClose func(models.TradeEvent)) {
	e.onTradeOpen = onOpen
	e.onTradeClose = onClose
}

func (e *Engine) Start() {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return
	}
	e.isRunning = true
	e.stopChan = make(chan struct{})
	e.mu.Unlock()

	log.Infof("🚀 Trading engine started for %s (every %s)", e.cfg.Pair, e.cfg.BotInterval)
	go e.run()
}

// Stop signals a clean shutdown. It takes effect between cycles, never in
// the middle of an order placement.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isRunning {
		return
	}
	e.isRunning = false
	close(e.stopChan)
	log.Info("⏸️ Trading engine stopped")
}

func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

func (e *Engine) LastSignal() models.Signal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSignal
}

func (e *Engine) LastCycle() (time.Time, CycleResult) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastCycle, e.lastResult
}

func (e *Engine) OpenPositions() []models.Position {
	return e.ledger.OpenPositions()
}

func (e *Engine) Balance(ctx context.Context) (float64, error) {
	return e.client.GetBalance(ctx, "idr")
}

func (e *Engine) run() {
	ticker := time.NewTicker(e.cfg.BotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			result := e.RunCycle()
			e.mu.Lock()
			e.lastCycle = time.Now()
			e.lastResult = result
			e.mu.Unlock()
		}
	}
}

// RunCycle executes one full decision cycle. Risk exits preempt the strategy
// entirely: when any open position hits TP/SL the cycle sells it and skips
// signal evaluation until the next tick.
func (e *Engine) RunCycle() CycleResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cycleID := uuid.NewString()[:8]
	clog := log.WithFields(log.Fields{"pair": e.cfg.Pair, "cycle": cycleID})

	ticker, err := e.client.GetTicker(ctx, e.cfg.Pair)
	if err != nil {
		clog.WithError(err).Warn("Cycle aborted: ticker fetch failed")
		return CycleFailed
	}
	price := ticker.Last

	if pos, reason := e.checkRisk(price, clog); reason != models.ExitNone {
		clog.Infof(">>> %s triggered! Executing SELL...", reason)
		return e.executeSell(ctx, pos, price, string(reason), clog)
	}

	signal := e.decideSignal(clog)
	e.mu.Lock()
	e.lastSignal = signal
	e.mu.Unlock()

	switch signal {
	case models.SignalBuy:
		return e.executeBuy(ctx, price, clog)
	case models.SignalSell:
		pos, ok := e.ledger.Oldest()
		if !ok {
			// Must be rejected before any external call is made.
			clog.Error("SELL signal with no open position, rejecting")
			return CycleRejected
		}
		return e.executeSell(ctx, &pos, price, "Strategy Signal (SELL)", clog)
	default:
		clog.Debug("Holding position based on strategy")
		return CycleHeld
	}
}

// checkRisk evaluates TP/SL for the open positions. In FIFO mode the scope
// is configurable: every open position (oldest first) or, matching the
// legacy behavior, only the oldest one.
func (e *Engine) checkRisk(price float64, clog *log.Entry) (*models.Position, models.ExitReason) {
	positions := e.ledger.OpenPositions()
	if len(positions) == 0 {
		return nil, models.ExitNone
	}

	scope := positions
	if !e.cfg.RiskCheckAll || e.cfg.PositionMode == config.ModeSingle {
		scope = positions[:1]
	}

	for i := range scope {
		if reason := e.riskMgr.Evaluate(&scope[i], price); reason != models.ExitNone {
			return &scope[i], reason
		}
	}
	return nil, models.ExitNone
}

func (e *Engine) decideSignal(clog *log.Entry) models.Signal {
	history, err := e.candles.RecentCandles(e.cfg.Pair, e.cfg.LongMAWindow+20)
	if err != nil {
		clog.WithError(err).Warn("Candle query failed, holding")
		return models.SignalHold
	}
	if len(history) < e.cfg.LongMAWindow+2 {
		clog.Info("Not enough OHLCV data to make a decision, waiting...")
		return models.SignalHold
	}
	return e.signals.Evaluate(history, e.ledger.HasOpen())
}

// executeBuy places a market buy sized to the configured quote amount. The
// position and its trade record are committed only after a confirmed fill;
// any failure leaves ledger and database untouched.
func (e *Engine) executeBuy(ctx context.Context, price float64, clog *log.Entry) CycleResult {
	balance, err := e.client.GetBalance(ctx, "idr")
	if err != nil {
		clog.WithError(err).Warn("Balance check failed, skipping BUY")
		return CycleFailed
	}
	if balance < e.cfg.TradeAmountIDR {
		clog.Warnf("Insufficient IDR balance: %.0f < %.0f", balance, e.cfg.TradeAmountIDR)
		return CycleRejected
	}

	clog.Infof("Attempting to BUY %.0f IDR worth of %s...", e.cfg.TradeAmountIDR, e.cfg.Pair)
	order, err := e.client.Trade(ctx, e.cfg.Pair, models.SideBuy, e.cfg.TradeAmountIDR)
	if err != nil {
		if errors.Is(err, exchange.ErrRejected) {
			clog.WithError(err).Warn("BUY order rejected")
			return CycleRejected
		}
		clog.WithError(err).Warn("BUY order failed")
		return CycleFailed
	}

	quantity := order.FilledQuantity
	if quantity <= 0 && price > 0 {
		quantity = e.cfg.TradeAmountIDR / price
	}
	now := time.Now().Unix()

	position := &models.Position{
		Pair:            e.cfg.Pair,
		EntryPrice:      price,
		Quantity:        quantity,
		QuoteAmount:     e.cfg.TradeAmountIDR,
		EntryTimestamp:  now,
		ExchangeOrderID: order.OrderID,
	}
	trade := &models.TradeRecord{
		Pair:            e.cfg.Pair,
		Side:            models.SideBuy,
		Price:           price,
		Quantity:        quantity,
		QuoteAmount:     e.cfg.TradeAmountIDR,
		Timestamp:       now,
		ExchangeOrderID: order.OrderID,
		Status:          "open",
		Notes:           "Bot auto-trade based on: Strategy Signal (BUY)",
	}

	if err := e.ledger.RecordOpen(position, trade); err != nil {
		// The order filled but the write failed; flag loudly instead of
		// pretending the write succeeded.
		clog.WithError(err).Error("BUY filled but ledger commit failed, manual reconciliation needed")
		return CycleFailed
	}

	clog.Infof("✅ BUY filled: %.8f %s at %.0f (order %s)", quantity, e.cfg.Pair, price, order.OrderID)
	if e.onTradeOpen != nil {
		e.onTradeOpen(models.TradeEvent{
			Pair: e.cfg.Pair, Side: models.SideBuy, Price: price,
			Quantity: quantity, Quote: e.cfg.TradeAmountIDR, Time: time.Now(),
		})
	}
	return CycleBought
}

// executeSell closes one position with a market sell sized to its quantity.
// Realized P/L is proceeds minus the position's entry quote amount; the
// trade record, position close and profit summary commit atomically.
func (e *Engine) executeSell(ctx context.Context, pos *models.Position, price float64, reason string, clog *log.Entry) CycleResult {
	order, err := e.client.Trade(ctx, e.cfg.Pair, models.SideSell, pos.Quantity)
	if err != nil {
		if errors.Is(err, exchange.ErrRejected) {
			clog.WithError(err).Warn("SELL order rejected")
			return CycleRejected
		}
		clog.WithError(err).Warn("SELL order failed")
		return CycleFailed
	}

	proceeds := decimal.NewFromFloat(pos.Quantity).Mul(decimal.NewFromFloat(price))
	profitLoss, _ := proceeds.Sub(decimal.NewFromFloat(pos.QuoteAmount)).Float64()
	proceedsF, _ := proceeds.Float64()

	trade := &models.TradeRecord{
		Pair:            e.cfg.Pair,
		Side:            models.SideSell,
		Price:           price,
		Quantity:        pos.Quantity,
		QuoteAmount:     proceedsF,
		Timestamp:       time.Now().Unix(),
		ExchangeOrderID: order.OrderID,
		Status:          "closed",
		Notes:           fmt.Sprintf("Bot auto-trade based on: %s", reason),
	}

	if err := e.ledger.RecordClose(pos.ID, trade, profitLoss); err != nil {
		clog.WithError(err).Error("SELL filled but settlement failed, manual reconciliation needed")
		return CycleFailed
	}

	clog.Infof("🎯 SELL filled: %.8f at %.0f | P/L: %+.2f IDR | Reason: %s", pos.Quantity, price, profitLoss, reason)
	if e.onTradeClose != nil {
		e.onTradeClose(models.TradeEvent{
			Pair: e.cfg.Pair, Side: models.SideSell, Price: price,
			Quantity: pos.Quantity, Quote: proceedsF,
			ProfitLoss: profitLoss, Reason: reason, Time: time.Now(),
		})
	}
	return CycleSold
}
