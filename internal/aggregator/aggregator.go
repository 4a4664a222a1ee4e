package aggregator

import (
	"sort"
	"time"

	"indodax_bot/internal/models"

	log "github.com/sirupsen/logrus"
)

// Aggregate folds raw ticks into OHLCV candles bucketed on interval
// boundaries aligned to the epoch. A bucket is emitted only once it has at
// least one tick and its interval has fully elapsed relative to now: the
// persistence layer inserts each (pair, period_start) at most once, so a
// partial candle must never leave this function.
//
// The call is stateless; callers may re-feed a sliding buffer and rely on the
// store's insert-if-absent to deduplicate.
func Aggregate(ticks []models.Tick, interval time.Duration, now time.Time) []models.Candle {
	if len(ticks) == 0 || interval <= 0 {
		return nil
	}

	intervalSec := int64(interval / time.Second)
	nowUnix := now.Unix()

	type bucket struct {
		candle    models.Candle
		firstTS   int64
		lastTS    int64
		lastOrder int
	}
	buckets := make(map[int64]*bucket)

	for i, t := range ticks {
		if t.Pair == "" || t.Timestamp <= 0 || t.Price <= 0 || t.Quantity <= 0 {
			log.WithFields(log.Fields{
				"pair": t.Pair, "tid": t.TradeID, "ts": t.Timestamp,
			}).Warn("Skipping malformed tick")
			continue
		}

		start := (t.Timestamp / intervalSec) * intervalSec
		b, ok := buckets[start]
		if !ok {
			b = &bucket{
				candle: models.Candle{
					Pair:        t.Pair,
					PeriodStart: start,
					Open:        t.Price,
					High:        t.Price,
					Low:         t.Price,
					Close:       t.Price,
				},
				firstTS: t.Timestamp,
				lastTS:  t.Timestamp,
			}
			buckets[start] = b
		}

		if t.Timestamp < b.firstTS {
			b.firstTS = t.Timestamp
			b.candle.Open = t.Price
		}
		// Close follows the latest tick; ties broken by arrival order.
		if t.Timestamp > b.lastTS || (t.Timestamp == b.lastTS && i >= b.lastOrder) {
			b.lastTS = t.Timestamp
			b.lastOrder = i
			b.candle.Close = t.Price
		}
		if t.Price > b.candle.High {
			b.candle.High = t.Price
		}
		if t.Price < b.candle.Low {
			b.candle.Low = t.Price
		}
		b.candle.Volume += t.Quantity
	}

	candles := make([]models.Candle, 0, len(buckets))
	for start, b := range buckets {
		if start+intervalSec <= nowUnix {
			candles = append(candles, b.candle)
		}
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].PeriodStart < candles[j].PeriodStart
	})
	return candles
}
