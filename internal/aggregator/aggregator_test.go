package aggregator

import (
	"strconv"
	"testing"
	"time"

	"indodax_bot/internal/models"
)

func tick(ts int64, price, qty float64, tid string) models.Tick {
	return models.Tick{Pair: "btcidr", Timestamp: ts, Price: price, Quantity: qty, TradeID: tid}
}

func TestAggregateSingleCandle(t *testing.T) {
	// Four trades inside one 300s bucket starting at t=600.
	ticks := []models.Tick{
		tick(610, 100, 0.1, "1"),
		tick(620, 101, 0.2, "2"),
		tick(700, 99, 0.3, "3"),
		tick(880, 105, 0.4, "4"),
	}
	now := time.Unix(1000, 0) // bucket [600, 900) is closed

	candles := Aggregate(ticks, 300*time.Second, now)
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}

	c := candles[0]
	if c.PeriodStart != 600 {
		t.Errorf("period start = %d, want 600", c.PeriodStart)
	}
	if c.Open != 100 || c.High != 105 || c.Low != 99 || c.Close != 105 {
		t.Errorf("OHLC = %.0f/%.0f/%.0f/%.0f, want 100/105/99/105", c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume != 1.0 {
		t.Errorf("volume = %f, want 1.0", c.Volume)
	}
}

func TestAggregateWithholdsOpenBucket(t *testing.T) {
	ticks := []models.Tick{
		tick(610, 100, 0.1, "1"),
		tick(910, 200, 0.1, "2"), // bucket [900, 1200) still open at now=1000
	}
	candles := Aggregate(ticks, 300*time.Second, time.Unix(1000, 0))

	if len(candles) != 1 {
		t.Fatalf("expected 1 closed candle, got %d", len(candles))
	}
	if candles[0].PeriodStart != 600 {
		t.Errorf("unexpected candle emitted for open bucket: start=%d", candles[0].PeriodStart)
	}

	// Once the clock passes the bucket end, the second candle appears.
	candles = Aggregate(ticks, 300*time.Second, time.Unix(1200, 0))
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles after bucket closed, got %d", len(candles))
	}
}

func TestAggregateNoDuplicatePeriods(t *testing.T) {
	var ticks []models.Tick
	for i := int64(0); i < 100; i++ {
		ticks = append(ticks, tick(600+i*10, 100+float64(i%7), 0.01, strconv.FormatInt(i, 10)))
	}

	candles := Aggregate(ticks, 300*time.Second, time.Unix(10000, 0))
	seen := make(map[int64]bool)
	for _, c := range candles {
		if seen[c.PeriodStart] {
			t.Fatalf("duplicate candle for period %d", c.PeriodStart)
		}
		seen[c.PeriodStart] = true

		if c.Open < c.Low || c.Open > c.High || c.Close < c.Low || c.Close > c.High {
			t.Errorf("OHLC bounds violated at %d: %+v", c.PeriodStart, c)
		}
	}
}

func TestAggregateCloseTieBrokenByArrival(t *testing.T) {
	// Two trades with the same timestamp: the later-arriving one sets close.
	ticks := []models.Tick{
		tick(610, 100, 0.1, "1"),
		tick(650, 102, 0.1, "2"),
		tick(650, 103, 0.1, "3"),
	}
	candles := Aggregate(ticks, 300*time.Second, time.Unix(1000, 0))
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
	if candles[0].Close != 103 {
		t.Errorf("close = %.0f, want 103 (arrival order tie-break)", candles[0].Close)
	}
}

func TestAggregateSkipsMalformedTicks(t *testing.T) {
	ticks := []models.Tick{
		{Pair: "", Timestamp: 610, Price: 100, Quantity: 0.1, TradeID: "1"},
		tick(620, 0, 0.1, "2"),  // zero price
		tick(630, 100, 0, "3"),  // zero quantity
		tick(640, 100, -1, "4"), // negative quantity
		tick(650, 104, 0.5, "5"),
	}
	candles := Aggregate(ticks, 300*time.Second, time.Unix(1000, 0))
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle from the single valid tick, got %d", len(candles))
	}
	if candles[0].Open != 104 || candles[0].Volume != 0.5 {
		t.Errorf("candle built from malformed ticks: %+v", candles[0])
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	if got := Aggregate(nil, 300*time.Second, time.Now()); len(got) != 0 {
		t.Fatalf("expected no candles from empty batch, got %d", len(got))
	}
}
