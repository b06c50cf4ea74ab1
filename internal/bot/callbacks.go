package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"eventfeed/internal/feed"
)

const (
	cmdEvents    = "events"
	cmdAll       = "all"
	cmdFollowing = "following"
	cmdMore      = "more"
	cmdRefresh   = "refresh"
)

// pageKeyboard returns the inline buttons shown under a feed page.
func pageKeyboard(p feed.Page) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if p.HasMore {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("More", cmdMore+":"+string(p.Kind)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("Refresh", cmdRefresh+":"+string(p.Kind)))
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
	if cb.Message == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	if !b.cfg.IsUserAllowed(cb.From.ID) {
		b.reply(ctx, chatID, "Access denied.")
		return
	}

	action, arg, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}
	kind, ok := feed.ParseKind(arg)
	if !ok {
		return
	}

	b.log.Info("callback",
		"action", action,
		"feed", kind,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	sess := b.session(chatID, cb.From.ID)
	sess.SetActive(kind)

	switch action {
	case cmdMore:
		b.handleMore(ctx, chatID, sess)
	case cmdRefresh:
		b.handleRefresh(ctx, chatID, sess)
	}
}
