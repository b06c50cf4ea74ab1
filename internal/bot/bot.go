package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"eventfeed/internal/config"
	"eventfeed/internal/feed"
	"eventfeed/internal/session"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Follows records which organisers a user follows.
type Follows interface {
	Follow(ctx context.Context, followerID, organiserID string) error
	Unfollow(ctx context.Context, followerID, organiserID string) error
}

// Bot is the Telegram consumer of the event feeds. Each chat gets its own
// session with home, all and follows feeds.
type Bot struct {
	api      telegramAPI
	sessions *session.Registry
	follows  Follows
	cfg      *config.Config
	limiter  *rate.Limiter
	log      *slog.Logger
}

// New creates a Bot with the given Telegram token, session registry, and config.
func New(token string, sessions *session.Registry, follows Follows, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		sessions: sessions,
		follows:  follows,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SendRate), 1),
		log:      log,
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
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.From == nil || !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(ctx, update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, truncate(text, maxMessageLen))
	msg.DisableWebPagePreview = true
	b.send(ctx, msg)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.SendMessage(ctx, chatID, text)
}

// send paces outgoing messages to the configured send rate.
func (b *Bot) send(ctx context.Context, msg tgbotapi.MessageConfig) {
	if err := b.limiter.Wait(ctx); err != nil {
		b.log.Warn("send cancelled", "chat_id", msg.ChatID, "error", err)
		return
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", msg.ChatID, "error", err)
	}
}

// session returns the chat's session; sessions are keyed by chat and owned
// by the user who last wrote in it.
func (b *Bot) session(chatID, userID int64) *session.Session {
	return b.sessions.GetOrCreate(strconv.FormatInt(chatID, 10), strconv.FormatInt(userID, 10))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	sess := b.session(chatID, msg.From.ID)

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.handleHelp(ctx, chatID)
	case cmdEvents:
		b.handleShow(ctx, chatID, sess, feed.KindHome)
	case cmdAll:
		b.handleShow(ctx, chatID, sess, feed.KindAll)
	case cmdFollowing:
		b.handleShow(ctx, chatID, sess, feed.KindFollows)
	case cmdMore:
		b.handleMore(ctx, chatID, sess)
	case cmdRefresh:
		b.handleRefresh(ctx, chatID, sess)
	case "region":
		b.handleCriterion(ctx, chatID, sess, CriterionRegion, args)
	case "category":
		b.handleCriterion(ctx, chatID, sess, CriterionCategory, args)
	case "type":
		b.handleCriterion(ctx, chatID, sess, CriterionType, args)
	case "payment":
		b.handleCriterion(ctx, chatID, sess, CriterionPayment, args)
	case "document":
		b.handleCriterion(ctx, chatID, sess, CriterionDocument, args)
	case "sort":
		b.handleSort(ctx, chatID, sess, args)
	case "search":
		b.handleSearch(ctx, chatID, sess, args)
	case "reset":
		b.handleReset(ctx, chatID, sess)
	case "follow":
		b.handleFollow(ctx, chatID, sess, args, true)
	case "unfollow":
		b.handleFollow(ctx, chatID, sess, args, false)
	case "categories":
		b.reply(ctx, chatID, FormatCategories())
	case "regions":
		b.reply(ctx, chatID, FormatRegions())
	default:
		b.reply(ctx, chatID, "Unknown command. Use /help for a list of commands.")
	}
}
