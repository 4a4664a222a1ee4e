package main

import (
	"os"
	"os/signal"
	"syscall"

	"indodax_bot/config"
	"indodax_bot/internal/collector"
	"indodax_bot/internal/engine"
	"indodax_bot/internal/exchange"
	"indodax_bot/internal/ledger"
	"indodax_bot/internal/store"
	"indodax_bot/internal/telegram"
	"indodax_bot/internal/web"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	config.InitLogger(cfg.Debug)
	log.Info("🚀 Starting Indodax trading bot...")

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	client := exchange.NewIndodaxClient(cfg.IndodaxAPIKey, cfg.IndodaxSecretKey)

	lgr := ledger.New(st, cfg.Pair, cfg.PositionMode)
	log.Info("Loading open positions from database...")
	if err := lgr.Load(); err != nil {
		log.Fatalf("Failed to load position ledger: %v", err)
	}

	eng := engine.New(client, st, lgr, cfg)
	coll := collector.New(client, st, cfg)

	// Telegram notifications are optional; the bot trades fine without them.
	if cfg.EnableNotifications && cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID, eng, st)
		if err != nil {
			log.Fatalf("Failed to create Telegram bot: %v", err)
		}
		eng.SetCallbacks(bot.SendTradeOpen, bot.SendTradeClose)
		go bot.Start()
	}

	webServer := web.NewServer(eng, st, cfg.Port)
	webServer.Start()

	coll.Start()
	eng.Start()

	log.Info("✅ All systems initialized")
	log.Infof("🌐 Dashboard: http://localhost:%s", cfg.Port)
	log.Infof("📈 Trading %s every %s (mode: %s)", cfg.Pair, cfg.BotInterval, cfg.PositionMode)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("🛑 Shutting down...")
	eng.Stop()
	coll.Stop()
	log.Info("👋 Goodbye!")
}
