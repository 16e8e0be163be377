// Package telegram sends analysis notifications to a Telegram chat.
package telegram

import (
	"fmt"

	"github.com/doclexa/doclexa/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier pushes completed-analysis messages to one chat. Send-only;
// incoming updates are ignored.
type Notifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	logger  *zap.Logger
	enabled bool
}

// NewNotifier creates a Telegram notifier. Disabled configs yield an
// inert notifier so callers need no nil checks.
func NewNotifier(cfg config.TelegramConfig, logger *zap.Logger) (*Notifier, error) {
	if !cfg.Enabled || cfg.BotToken == "" {
		return &Notifier{enabled: false}, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false

	logger.Info("telegram notifier ready", zap.String("account", api.Self.UserName))

	return &Notifier{
		api:     api,
		chatID:  cfg.ChatID,
		logger:  logger,
		enabled: true,
	}, nil
}

// Enabled reports whether messages will actually be sent.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

// Notify sends a message to the configured chat.
func (n *Notifier) Notify(text string) error {
	if !n.enabled {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn("telegram notification failed", zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
