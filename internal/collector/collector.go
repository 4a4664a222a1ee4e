package collector

import (
	"context"
	"sync"
	"time"

	"indodax_bot/config"
	"indodax_bot/internal/aggregator"
	"indodax_bot/internal/analysis"
	"indodax_bot/internal/exchange"
	"indodax_bot/internal/models"

	log "github.com/sirupsen/logrus"
)

// Sink is where aggregated candles (and optional feature rows) land.
// Candle writes are idempotent, so re-aggregating a sliding buffer is safe.
type Sink interface {
	InsertCandle(c *models.Candle) (bool, error)
	RecentCandles(pair string, limit int) ([]models.Candle, error)
	SaveFeatureRows(rows []models.FeatureRow) (int, error)
}

// Collector polls the exchange trade feed, folds the tick buffer into closed
// candles and persists them. It runs independently of the decision loop and
// shares only the candle store with it.
type Collector struct {
	client exchange.Client
	sink   Sink
	buffer *aggregator.TickBuffer
	cfg    *config.Config

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
}

func New(client exchange.Client, sink Sink, cfg *config.Config) *Collector {
	return &Collector{
		client: client,
		sink:   sink,
		buffer: aggregator.NewTickBuffer(cfg.BufferRetention(), 50000),
		cfg:    cfg,
	}
}

func (c *Collector) Start() {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = true
	c.stopChan = make(chan struct{})
	c.mu.Unlock()

	log.Infof("📡 Data collector started for %s (every %s)", c.cfg.Pair, c.cfg.CollectInterval)
	go c.loop()
}

func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isRunning {
		return
	}
	c.isRunning = false
	close(c.stopChan)
	log.Info("📡 Data collector stopped")
}

func (c *Collector) loop() {
	ticker := time.NewTicker(c.cfg.CollectInterval)
	defer ticker.Stop()

	c.collectOnce()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.collectOnce()
		}
	}
}

// collectOnce is one poll: fetch recent trades, merge into the buffer,
// aggregate and persist every bucket that has closed. Errors are logged and
// absorbed; the next tick retries.
func (c *Collector) collectOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ticks, err := c.client.GetTrades(ctx, c.cfg.Pair)
	if err != nil {
		log.WithError(err).Warnf("Failed to fetch trades for %s", c.cfg.Pair)
		return
	}
	if len(ticks) == 0 {
		log.Debugf("No trades received for %s", c.cfg.Pair)
		return
	}

	now := time.Now()
	added := c.buffer.Add(ticks, now)
	log.Debugf("Added %d new trades, buffer size: %d", added, c.buffer.Len())

	candles := aggregator.Aggregate(c.buffer.Snapshot(), c.cfg.CandleInterval, now)
	saved := 0
	for i := range candles {
		inserted, err := c.sink.InsertCandle(&candles[i])
		if err != nil {
			log.WithError(err).Error("Failed to save candle")
			return
		}
		if inserted {
			saved++
		}
	}
	if saved > 0 {
		log.Infof("💾 Saved %d new OHLCV candle(s) for %s", saved, c.cfg.Pair)
		if c.cfg.EnableFeatureExport {
			c.exportFeatures()
		}
	}
}

func (c *Collector) exportFeatures() {
	history, err := c.sink.RecentCandles(c.cfg.Pair, 500)
	if err != nil {
		log.WithError(err).Warn("Feature export: candle query failed")
		return
	}

	rows := analysis.BuildFeatureRows(history, c.cfg.ShortMAWindow, c.cfg.LongMAWindow, c.cfg.RSIPeriod)
	n, err := c.sink.SaveFeatureRows(rows)
	if err != nil {
		log.WithError(err).Warn("Feature export: save failed")
		return
	}
	if n > 0 {
		log.Debugf("Feature export: cached %d new row(s)", n)
	}
}
