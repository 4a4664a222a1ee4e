package telegram

import (
	"fmt"
	"strings"
	"time"

	"indodax_bot/internal/engine"
	"indodax_bot/internal/models"
	"indodax_bot/internal/store"

	log "github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

// Bot sends trade notifications and answers a few status commands. Only the
// configured chat id is allowed to talk to it; notification failures are
// logged and never propagate into the trading loop.
type Bot struct {
	bot     *tele.Bot
	engine  *engine.Engine
	store   *store.Store
	chatID  int64
	started time.Time
}

func NewBot(token string, chatID int64, eng *engine.Engine, st *store.Store) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		bot:     b,
		engine:  eng,
		store:   st,
		chatID:  chatID,
		started: time.Now(),
	}
	bot.setupHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	log.Info("📱 Telegram bot started")
	b.bot.Start()
}

func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) setupHandlers() {
	b.bot.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Chat().ID != b.chatID {
				return c.Send("⛔ Unauthorized")
			}
			return next(c)
		}
	})

	b.bot.Handle("/start", b.handleStatus)
	b.bot.Handle("/status", b.handleStatus)
	b.bot.Handle("/positions", b.handlePositions)
	b.bot.Handle("/profit", b.handleProfit)
}

func (b *Bot) handleStatus(c tele.Context) error {
	status := "⏸️ Stopped"
	if b.engine.IsRunning() {
		status = "▶️ Running"
	}
	lastCycle, result := b.engine.LastCycle()
	cycleLine := "no cycles yet"
	if !lastCycle.IsZero() {
		cycleLine = fmt.Sprintf("%s (%s)", lastCycle.Format("15:04:05"), result)
	}

	msg := fmt.Sprintf(`🤖 *Indodax Trading Bot*

Status: %s
Last signal: %s
Last cycle: %s
Uptime: %s`,
		status, b.engine.LastSignal(), cycleLine,
		time.Since(b.started).Round(time.Second))
	return c.Send(msg, tele.ModeMarkdown)
}

func (b *Bot) handlePositions(c tele.Context) error {
	positions := b.engine.OpenPositions()
	if len(positions) == 0 {
		return c.Send("📭 No open positions")
	}

	var sb strings.Builder
	sb.WriteString("📋 *Open positions*\n")
	for _, p := range positions {
		fmt.Fprintf(&sb, "\n#%d %s\nEntry: %.0f | Qty: %.8f | Spent: %.0f IDR\nOpened: %s\n",
			p.ID, strings.ToUpper(p.Pair), p.EntryPrice, p.Quantity, p.QuoteAmount,
			time.Unix(p.EntryTimestamp, 0).Format("2006-01-02 15:04"))
	}
	return c.Send(sb.String(), tele.ModeMarkdown)
}

func (b *Bot) handleProfit(c tele.Context) error {
	summaries, err := b.store.ProfitSummaries()
	if err != nil {
		return c.Send("⚠️ Failed to read profit summary")
	}
	if len(summaries) == 0 {
		return c.Send("📭 No realized trades yet")
	}

	var sb strings.Builder
	sb.WriteString("💰 *Realized profit*\n")
	for _, s := range summaries {
		emoji := "🟢"
		if s.TotalRealizedProfit < 0 {
			emoji = "🔴"
		}
		fmt.Fprintf(&sb, "\n%s %s: %+.2f IDR", emoji, strings.ToUpper(s.Pair), s.TotalRealizedProfit)
	}
	return c.Send(sb.String(), tele.ModeMarkdown)
}

// SendTradeOpen notifies about a filled buy.
func (b *Bot) SendTradeOpen(ev models.TradeEvent) {
	msg := fmt.Sprintf(`🟢 *BUY filled* %s
Price: %.0f
Amount: %.8f
Spent: %.0f IDR`,
		strings.ToUpper(ev.Pair), ev.Price, ev.Quantity, ev.Quote)
	b.send(msg)
}

// SendTradeClose notifies about a filled sell with its realized P/L.
func (b *Bot) SendTradeClose(ev models.TradeEvent) {
	emoji := "🎯"
	if ev.ProfitLoss < 0 {
		emoji = "🔻"
	}
	msg := fmt.Sprintf(`%s *SELL filled* %s
Price: %.0f
Amount: %.8f
P/L: %+.2f IDR
Reason: %s`,
		emoji, strings.ToUpper(ev.Pair), ev.Price, ev.Quantity, ev.ProfitLoss, ev.Reason)
	b.send(msg)
}

func (b *Bot) send(msg string) {
	if _, err := b.bot.Send(tele.ChatID(b.chatID), msg, tele.ModeMarkdown); err != nil {
		log.WithError(err).Warn("Telegram notification failed")
	}
}
