package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"listings_dashboard/internal/model"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	added, err := b.store.AddSubscriber(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to subscribe: %v", err))
		return
	}

	status := "You are subscribed to new listing alerts."
	if !added {
		status = "You are already subscribed."
	}
	b.reply(chatID, `Welcome to the Listings Dashboard bot!

`+status+`

Quick start:
1. /new — see listings you have not read yet
2. /read — mark them as read
3. /page 1 — browse all listings

Use /help for the full command reference.`)
}

func (b *Bot) handleStop(ctx context.Context, chatID int64) {
	removed, err := b.store.RemoveSubscriber(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to unsubscribe: %v", err))
		return
	}
	if !removed {
		b.reply(chatID, "You are not subscribed.")
		return
	}
	b.reply(chatID, "Unsubscribed. Use /start to subscribe again.")
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Alerts:
/start — subscribe this chat to new listing alerts
/stop — unsubscribe

Listings:
/new — show new listings
/read [id...] — mark new listings (or the given IDs) as read
/page <n> — show page n of all listings
/sort newest | oldest | price-desc | price-asc — change the order
/stats — collection overview
/refresh — fetch listings now`)
}

func (b *Bot) handleNew(chatID int64) {
	res := b.session.NewItems()
	msg := tgbotapi.NewMessage(chatID, truncate(FormatNewItems(res)))
	msg.DisableWebPagePreview = true
	if len(res.Items) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Mark all read", cmdRead+":0"),
			),
		)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send new listings", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleRead(ctx context.Context, chatID int64, args string) {
	var (
		n   int
		err error
	)
	if args == "" {
		n, err = b.session.AcknowledgeNew(ctx)
	} else {
		ids, perr := ParseIDList(args)
		if perr != nil {
			b.reply(chatID, perr.Error())
			return
		}
		n, err = b.session.Acknowledge(ctx, ids)
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if n == 0 {
		b.reply(chatID, "Nothing to mark as read.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Marked %d listing(s) as read.", n))
}

func (b *Bot) handleRefresh(ctx context.Context, chatID int64) {
	if b.refresher == nil {
		b.reply(chatID, "Refresh is not available.")
		return
	}
	if err := b.refresher.Refresh(ctx); err != nil {
		b.reply(chatID, fmt.Sprintf("Refresh failed: %v", err))
		return
	}
	v := b.session.View(1, 0)
	b.reply(chatID, fmt.Sprintf("Refreshed: %d listing(s), %d new.", v.Overview.Total, v.NewCount))
}

func (b *Bot) handleStats(chatID int64) {
	v := b.session.View(1, 0)
	b.reply(chatID, FormatOverview(v.Overview, v.FetchedAt))
}

func (b *Bot) handlePage(chatID int64, args string) {
	page := 1
	if args != "" {
		var err error
		if page, err = ParsePageArg(args); err != nil {
			b.reply(chatID, err.Error())
			return
		}
	}
	b.sendPage(chatID, page)
}

func (b *Bot) sendPage(chatID int64, page int) {
	v := b.session.View(page, 0)
	msg := tgbotapi.NewMessage(chatID, truncate(FormatPage(v.Page, v.Sort)))
	msg.DisableWebPagePreview = true

	var row []tgbotapi.InlineKeyboardButton
	if v.Page.Number > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("« Prev", fmt.Sprintf("%s:%d", cmdPage, v.Page.Number-1)))
	}
	if v.Page.Number < v.Page.TotalPages {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next »", fmt.Sprintf("%s:%d", cmdPage, v.Page.Number+1)))
	}
	if len(row) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send page", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleSort(chatID int64, args string) {
	if args == "" {
		b.reply(chatID, fmt.Sprintf("Current order: %s\nUsage: /sort newest | oldest | price-desc | price-asc", b.session.View(1, 0).Sort))
		return
	}
	option, err := model.ParseSortOption(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Unknown order %q. Use newest, oldest, price-desc or price-asc.", args))
		return
	}
	b.session.SetSort(option)
	b.reply(chatID, fmt.Sprintf("Listings are now sorted by %s.", option))
}
