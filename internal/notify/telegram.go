// Package notify is the narrow Telegram contract the sentinel and the
// orchestrator use for alerting: fire-and-forget messages plus a single
// inbound command, `/snapshot`.
package notify

import (
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/logx"
)

var log = logx.New("notify")

// Notifier wraps one Telegram bot session. A nil *Notifier is safe to call
// Notify on (disabled mode when no token is configured).
type Notifier struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	chatIDFile string
}

// New returns nil when TELEGRAM_BOT_TOKEN is unset; callers treat that as
// "notifications disabled" rather than a startup failure, since Telegram
// integration is optional ambient enrichment, not a pipeline dependency.
func New(cfg *config.Settings) *Notifier {
	if cfg.TelegramBotToken == "" {
		log.Printf("no bot token configured, notifications disabled")
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Printf("failed to init bot: %v", err)
		return nil
	}

	n := &Notifier{bot: bot, chatIDFile: cfg.ChatIDFile}
	n.chatID = n.loadChatID()

	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "snapshot", Description: "Send the current lending sentinel snapshot"},
	)
	if _, err := bot.Request(cmds); err != nil {
		log.Printf("failed to register command list: %v", err)
	}
	return n
}

func (n *Notifier) loadChatID() int64 {
	data, err := os.ReadFile(n.chatIDFile)
	if err != nil {
		return 0
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (n *Notifier) saveChatID(id int64) {
	if err := os.WriteFile(n.chatIDFile, []byte(strconv.FormatInt(id, 10)), 0o644); err != nil {
		log.Printf("failed to persist chat id: %v", err)
	}
}

// Notify sends a message fire-and-forget. Safe to call on a nil receiver
// or before any chat has been captured.
func (n *Notifier) Notify(msg string) {
	if n == nil || n.bot == nil || n.chatID == 0 {
		return
	}
	go func(chatID int64) {
		m := tgbotapi.NewMessage(chatID, msg)
		m.ParseMode = "Markdown"
		if _, err := n.bot.Send(m); err != nil {
			log.Printf("send failed: %v", err)
		}
	}(n.chatID)
}

// PollCommands blocks, polling Telegram for inbound updates. The only
// recognized command is /snapshot; everything else is ignored. Call in
// its own goroutine.
func (n *Notifier) PollCommands(snapshot func() string) {
	if n == nil || n.bot == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := n.bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		if n.chatID == 0 {
			n.chatID = update.Message.Chat.ID
			n.saveChatID(n.chatID)
			log.Printf("captured chat id %d", n.chatID)
		}
		if update.Message.IsCommand() && update.Message.Command() == "snapshot" {
			if snapshot != nil {
				n.Notify(snapshot())
			}
		}
	}
}
