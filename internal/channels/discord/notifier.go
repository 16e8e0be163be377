// Package discord sends analysis notifications to a Discord channel.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/doclexa/doclexa/internal/config"
	"go.uber.org/zap"
)

// Notifier pushes completed-analysis messages to one channel. Send-only;
// no message handlers are registered.
type Notifier struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
	enabled   bool
}

// NewNotifier creates a Discord notifier. Disabled configs yield an inert
// notifier so callers need no nil checks.
func NewNotifier(cfg config.DiscordConfig, logger *zap.Logger) (*Notifier, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return &Notifier{enabled: false}, nil
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &Notifier{
		session:   session,
		channelID: cfg.ChannelID,
		logger:    logger,
		enabled:   true,
	}, nil
}

// Enabled reports whether messages will actually be sent.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

// Start opens the gateway connection.
func (n *Notifier) Start() error {
	if !n.enabled {
		return nil
	}
	if err := n.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	n.logger.Info("discord notifier started",
		zap.String("username", n.session.State.User.Username),
	)
	return nil
}

// Stop closes the gateway connection.
func (n *Notifier) Stop() error {
	if !n.enabled {
		return nil
	}
	return n.session.Close()
}

// Notify sends a message to the configured channel.
func (n *Notifier) Notify(text string) error {
	if !n.enabled {
		return nil
	}
	if _, err := n.session.ChannelMessageSend(n.channelID, text); err != nil {
		n.logger.Warn("discord notification failed", zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
