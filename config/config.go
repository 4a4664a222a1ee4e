package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PositionMode string

const (
	ModeSingle    PositionMode = "SINGLE"
	ModeFIFOQueue PositionMode = "FIFO_QUEUE"
)

type Config struct {
	IndodaxAPIKey    string
	IndodaxSecretKey string

	Pair           string
	TradeAmountIDR float64

	TakeProfitPct float64
	StopLossPct   float64

	ShortMAWindow int
	LongMAWindow  int
	RSIPeriod     int

	CandleInterval  time.Duration
	CollectInterval time.Duration
	BotInterval     time.Duration

	// PositionMode selects between a single open position per pair and a
	// FIFO queue of open positions.
	PositionMode PositionMode
	// RiskCheckAll runs the TP/SL check on every open position instead of
	// only the oldest one. Only meaningful in FIFO_QUEUE mode.
	RiskCheckAll bool

	EnableFeatureExport bool

	DatabasePath string
	Port         string
	Debug        bool

	TelegramToken       string
	TelegramChatID      int64
	EnableNotifications bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	apiKey := os.Getenv("INDODAX_API_KEY")
	secretKey := os.Getenv("INDODAX_SECRET_KEY")
	if apiKey == "" || secretKey == "" {
		log.Fatal("INDODAX_API_KEY and INDODAX_SECRET_KEY must be set")
	}

	mode := ModeSingle
	if os.Getenv("POSITION_MODE") == string(ModeFIFOQueue) {
		mode = ModeFIFOQueue
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "trading_data.db"
	}

	return &Config{
		IndodaxAPIKey:    apiKey,
		IndodaxSecretKey: secretKey,

		Pair:           envString("PAIR_TO_TRADE", "btcidr"),
		TradeAmountIDR: envFloat("TRADE_AMOUNT_IDR", 50000),

		TakeProfitPct: envFloat("TAKE_PROFIT_PERCENTAGE", 5.0),
		StopLossPct:   envFloat("STOP_LOSS_PERCENTAGE", 2.0),

		ShortMAWindow: envInt("SHORT_MA_WINDOW", 10),
		LongMAWindow:  envInt("LONG_MA_WINDOW", 30),
		RSIPeriod:     envInt("RSI_PERIOD", 14),

		CandleInterval:  envSeconds("OHLCV_INTERVAL_SECONDS", 300),
		CollectInterval: envSeconds("DATA_COLLECTION_INTERVAL_SECONDS", 60),
		BotInterval:     envSeconds("BOT_RUN_INTERVAL_SECONDS", 30),

		PositionMode: mode,
		RiskCheckAll: envBool("RISK_CHECK_ALL", true),

		EnableFeatureExport: envBool("ENABLE_FEATURE_EXPORT", false),

		DatabasePath: dbPath,
		Port:         port,
		Debug:        envBool("DEBUG", false),

		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      envInt64("TELEGRAM_CHAT_ID", 0),
		EnableNotifications: envBool("ENABLE_NOTIFICATIONS", false),
	}
}

// BufferRetention is how long raw ticks are kept before eviction: enough
// closed candles to satisfy the long MA window plus RSI lookback.
func (c *Config) BufferRetention() time.Duration {
	return c.CandleInterval * time.Duration(c.LongMAWindow+20)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid %s=%q, using default %.2f", key, v, def)
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using default %d", key, v, def)
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}
