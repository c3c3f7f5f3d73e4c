// Package bot implements the Telegram front end of the dashboard.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"listings_dashboard/internal/config"
	"listings_dashboard/internal/dashboard"
	"listings_dashboard/internal/notify"
	"listings_dashboard/internal/storage"
)

// telegramMaxMessage is Telegram's limit on message length.
const telegramMaxMessage = 4096

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Refresher forces an immediate listing refresh.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Bot is the Telegram bot that answers dashboard commands and forwards
// new-listing alerts to subscribed chats.
type Bot struct {
	api       telegramAPI
	store     storage.Storage
	session   *dashboard.Session
	refresher Refresher
	cfg       *config.Config
	log       *zap.Logger

	stopOnce sync.Once
}

// New creates a Bot with the given Telegram token.
func New(token string, store storage.Storage, session *dashboard.Session, refresher Refresher, cfg *config.Config, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	return &Bot{
		api:       api,
		store:     store,
		session:   session,
		refresher: refresher,
		cfg:       cfg,
		log:       log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.stop()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, truncate(text))
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	_ = b.SendMessage(chatID, text)
}

// Name identifies the sink.
func (b *Bot) Name() string {
	return "telegram"
}

// SendAlert delivers the alert to the configured chat and every subscriber.
func (b *Bot) SendAlert(ctx context.Context, alert notify.Alert) error {
	chats, err := b.recipients(ctx)
	if err != nil {
		return err
	}

	text := alert.Text()
	var failed int
	for _, chatID := range chats {
		if err := b.SendMessage(chatID, text); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("telegram: %d of %d chats failed", failed, len(chats))
	}
	return nil
}

// Close stops receiving updates.
func (b *Bot) Close() error {
	b.stop()
	return nil
}

// stop may be reached from both Run and Close; the API panics when
// stopped twice.
func (b *Bot) stop() {
	b.stopOnce.Do(b.api.StopReceivingUpdates)
}

func (b *Bot) recipients(ctx context.Context) ([]int64, error) {
	subscribers, err := b.store.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	var chats []int64
	if b.cfg.TelegramChatID != 0 {
		chats = append(chats, b.cfg.TelegramChatID)
	}
	for _, id := range subscribers {
		if id != b.cfg.TelegramChatID {
			chats = append(chats, id)
		}
	}
	return chats, nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", zap.String("cmd", cmd), zap.String("args", args), zap.Int64("chat_id", chatID))

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "stop":
		b.handleStop(ctx, chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdNew:
		b.handleNew(chatID)
	case cmdRead:
		b.handleRead(ctx, chatID, args)
	case "refresh":
		b.handleRefresh(ctx, chatID)
	case "stats":
		b.handleStats(chatID)
	case cmdPage:
		b.handlePage(chatID, args)
	case "sort":
		b.handleSort(chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func truncate(text string) string {
	if r := []rune(text); len(r) > telegramMaxMessage {
		return string(r[:telegramMaxMessage-1]) + "…"
	}
	return text
}
