package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	cmdNew  = "new"
	cmdRead = "read"
	cmdPage = "page"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", zap.Error(err))
	}

	action, arg, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return
	}

	b.log.Info("callback",
		zap.String("action", action),
		zap.Int("arg", n),
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", cb.From.ID),
		zap.String("username", cb.From.UserName),
	)

	switch action {
	case cmdRead:
		b.handleRead(ctx, chatID, "")
	case cmdPage:
		b.sendPage(chatID, n)
	case cmdNew:
		b.handleNew(chatID)
	}
}
