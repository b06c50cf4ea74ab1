package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"eventfeed/internal/feed"
	"eventfeed/internal/model"
	"eventfeed/internal/session"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, `Welcome to the events bot!

Browse upcoming exhibitions, concerts, seminars and more.

Quick start:
1. /events - your home feed
2. /region Baku - only events in Baku
3. /more - next page

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, `Feeds:
/events - home feed with upcoming events
/all - all events
/following - events of organisers you follow
/more - next page of the current feed
/refresh - reload the current feed

Filters (apply to the current feed):
/region <name>|all
/category <name>|all
/type <name>|all
/payment free|paid|state_supported|all
/document none|certificate|participation_proof|all
/sort none|date_asc|date_desc|recent
/search <text> - search by name, empty to clear
/reset - clear all filters

Organisers:
/follow <organiser_id>
/unfollow <organiser_id>

Reference:
/categories - category list
/regions - region list`)
}

// handleShow switches the chat to a feed and sends its first page,
// loading it on first use.
func (b *Bot) handleShow(ctx context.Context, chatID int64, sess *session.Session, kind feed.Kind) {
	st := sess.SetActive(kind)
	if !st.Page().Loaded {
		_ = st.Refresh(ctx)
	}
	b.sendPage(ctx, chatID, st.Page(), 0)
}

func (b *Bot) handleMore(ctx context.Context, chatID int64, sess *session.Session) {
	st := sess.Active()
	before := st.Page()
	if !before.Loaded {
		b.reply(ctx, chatID, "Nothing loaded yet. Use /events, /all or /following.")
		return
	}
	if !st.LoadMore(ctx) {
		switch {
		case before.Loading:
			b.reply(ctx, chatID, "Still loading, try again in a moment.")
		case before.Kind == feed.KindHome && before.Criteria.SearchActive():
			b.reply(ctx, chatID, "Paging is off while searching the home feed. Clear the search with /search.")
		default:
			b.reply(ctx, chatID, "No more events.")
		}
		return
	}
	b.sendPage(ctx, chatID, st.Page(), len(before.Events))
}

func (b *Bot) handleRefresh(ctx context.Context, chatID int64, sess *session.Session) {
	st := sess.Active()
	_ = st.Refresh(ctx)
	b.sendPage(ctx, chatID, st.Page(), 0)
}

func (b *Bot) handleCriterion(ctx context.Context, chatID int64, sess *session.Session, c Criterion, args string) {
	value, err := ParseCriterionValue(c, args)
	if err != nil {
		b.reply(ctx, chatID, err.Error())
		return
	}
	b.updateCriteria(ctx, chatID, sess, func(fc *model.FilterCriteria) { c.Apply(fc, value) })
}

func (b *Bot) handleSort(ctx context.Context, chatID int64, sess *session.Session, args string) {
	mode, err := ParseSortArg(args)
	if err != nil {
		b.reply(ctx, chatID, err.Error())
		return
	}
	b.updateCriteria(ctx, chatID, sess, func(fc *model.FilterCriteria) { fc.Sort = mode })
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, sess *session.Session, args string) {
	st := b.loadedActive(ctx, sess)
	st.SetSearch(ctx, args)
	b.sendPage(ctx, chatID, st.Page(), 0)
}

func (b *Bot) handleReset(ctx context.Context, chatID int64, sess *session.Session) {
	st := b.loadedActive(ctx, sess)
	st.ResetCriteria(ctx)
	b.sendPage(ctx, chatID, st.Page(), 0)
}

func (b *Bot) updateCriteria(ctx context.Context, chatID int64, sess *session.Session, fn func(*model.FilterCriteria)) {
	st := b.loadedActive(ctx, sess)
	st.UpdateCriteria(ctx, fn)
	b.sendPage(ctx, chatID, st.Page(), 0)
}

// loadedActive returns the active feed, fetching it first if it never loaded
// so that criteria changes have data to work on.
func (b *Bot) loadedActive(ctx context.Context, sess *session.Session) *feed.State {
	st := sess.Active()
	if !st.Page().Loaded {
		_ = st.Refresh(ctx)
	}
	return st
}

func (b *Bot) handleFollow(ctx context.Context, chatID int64, sess *session.Session, args string, follow bool) {
	organiserID, err := ParseOrganiserArg(args)
	if err != nil {
		if follow {
			b.reply(ctx, chatID, "Usage: /follow <organiser_id>")
		} else {
			b.reply(ctx, chatID, "Usage: /unfollow <organiser_id>")
		}
		return
	}

	if follow {
		err = b.follows.Follow(ctx, sess.UserID, organiserID)
	} else {
		err = b.follows.Unfollow(ctx, sess.UserID, organiserID)
	}
	if err != nil {
		b.log.Error("update follow", "user_id", sess.UserID, "organiser_id", organiserID, "follow", follow, "error", err)
		b.reply(ctx, chatID, "Could not update your followed organisers. Try again later.")
		return
	}

	// A loaded follows feed is stale now.
	if st := sess.Feed(feed.KindFollows); st.Page().Loaded {
		_ = st.Refresh(ctx)
	}

	if follow {
		b.reply(ctx, chatID, fmt.Sprintf("Following %s. See their events with /following.", organiserID))
	} else {
		b.reply(ctx, chatID, fmt.Sprintf("Unfollowed %s.", organiserID))
	}
}

func (b *Bot) sendPage(ctx context.Context, chatID int64, p feed.Page, from int) {
	msg := tgbotapi.NewMessage(chatID, truncate(FormatPage(p, from), maxMessageLen))
	msg.DisableWebPagePreview = true
	if p.Loaded {
		msg.ReplyMarkup = pageKeyboard(p)
	}
	b.log.Debug("send page",
		"chat_id", chatID,
		"feed", p.Kind,
		"from", from,
		"shown", len(p.Events),
		"total", p.Total,
		"error", p.Err != nil,
	)
	b.send(ctx, msg)
}
