package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// discordMaxMessage is Discord's limit on message length.
const discordMaxMessage = 2000

type discordAPI interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Discord posts alerts to a Discord channel.
type Discord struct {
	api       discordAPI
	channelID string
	log       *zap.Logger
}

// NewDiscord creates a Discord notifier. It returns nil when no token or
// channel is configured.
func NewDiscord(token, channelID string, log *zap.Logger) *Discord {
	if token == "" || channelID == "" {
		log.Warn("DISCORD_BOT_TOKEN or DISCORD_CHANNEL_ID not set, Discord alerts disabled")
		return nil
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Error("create discord session", zap.Error(err))
		return nil
	}

	log.Info("discord alerts enabled", zap.String("channel_id", channelID))
	return &Discord{api: session, channelID: channelID, log: log}
}

// Name identifies the sink.
func (d *Discord) Name() string {
	return "discord"
}

// SendAlert posts the alert text to the channel.
func (d *Discord) SendAlert(ctx context.Context, alert Alert) error {
	text := alert.Text()
	if r := []rune(text); len(r) > discordMaxMessage {
		text = string(r[:discordMaxMessage-1]) + "…"
	}
	if _, err := d.api.ChannelMessageSend(d.channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// Close closes the Discord session.
func (d *Discord) Close() error {
	return d.api.Close()
}
