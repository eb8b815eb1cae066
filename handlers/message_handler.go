package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"line-register-bot/config"
	"line-register-bot/models"
	"line-register-bot/services"
)

// Messenger delivers replies to the user
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, userID, text string) error
}

// MessageConfig holds the knobs of MessageHandler
type MessageConfig struct {
	BotName       string
	ReplyWindow   time.Duration
	TopNamesLimit int
	AITimeout     time.Duration
	IsAdmin       func(userID string) bool
}

// MessageHandler runs one inbound message through the bot and delivers the
// answer. Messages of the same user are handled one at a time
type MessageHandler struct {
	bot       *services.Bot
	users     services.UserStore
	reports   services.ReportStore
	stats     services.NameStats
	ai        services.Completer
	messenger Messenger
	admin     *Admin
	locks     *services.KeyedMutex
	cfg       MessageConfig
	now       func() time.Time
}

// NewMessageHandler wires the handler. admin may be nil to disable chat
// admin commands
func NewMessageHandler(bot *services.Bot, users services.UserStore, reports services.ReportStore, stats services.NameStats,
	ai services.Completer, messenger Messenger, admin *Admin, locks *services.KeyedMutex, cfg MessageConfig) *MessageHandler {
	if cfg.AITimeout == 0 {
		cfg.AITimeout = 25 * time.Second
	}
	if cfg.IsAdmin == nil {
		cfg.IsAdmin = func(string) bool { return false }
	}
	return &MessageHandler{
		bot:       bot,
		users:     users,
		reports:   reports,
		stats:     stats,
		ai:        ai,
		messenger: messenger,
		admin:     admin,
		locks:     locks,
		cfg:       cfg,
		now:       time.Now,
	}
}

// HandleMessage processes msg and returns the text that was sent back
func (h *MessageHandler) HandleMessage(ctx context.Context, msg models.InboundMessage) string {
	var reply string
	// Admin commands take the target user's lock themselves
	switch {
	case msg.IsImage || !IsAdminCommand(msg.Text):
		reply = h.locked(ctx, msg)
	case h.admin != nil && h.cfg.IsAdmin(msg.UserID):
		reply = h.admin.HandleCommand(ctx, msg.Text)
	default:
		slog.Warn("Admin command from non-admin", "userID", msg.UserID)
		reply = msgAdminOnly
	}
	h.deliver(ctx, msg, reply)
	return reply
}

func (h *MessageHandler) locked(ctx context.Context, msg models.InboundMessage) string {
	unlock := h.locks.Lock(msg.UserID)
	defer unlock()
	return h.process(ctx, msg)
}

func (h *MessageHandler) process(ctx context.Context, msg models.InboundMessage) string {
	stored, err := h.users.Get(ctx, msg.UserID)
	if err != nil {
		slog.Error("Failed to load user", "userID", msg.UserID, "error", err)
		return services.MsgStoreUnavailable
	}

	now := h.now()
	turn, err := h.bot.Process(ctx, stored, msg, now)
	if err != nil {
		slog.Error("Failed to process message", "userID", msg.UserID, "error", err)
		return services.MsgStoreUnavailable
	}

	if turn.Record != nil {
		if err := h.users.Put(ctx, turn.Record); err != nil {
			slog.Error("Failed to save user", "userID", msg.UserID, "error", err)
			return services.MsgStoreUnavailable
		}
	}

	if turn.Category.Flagged() {
		slog.Info("Message flagged",
			"userID", msg.UserID,
			"category", turn.Category,
			"badCount", turn.Record.Moderation.BadCount,
			"blocked", turn.Blocked,
		)
	}

	if err := services.ApplyNameChanges(ctx, h.stats, turn.NameChanges); err != nil {
		slog.Error("Failed to update name statistics", "userID", msg.UserID, "error", err)
	}

	if turn.Report != nil {
		if err := h.reports.SaveReport(ctx, turn.Report); err != nil {
			slog.Error("Failed to save report", "userID", msg.UserID, "reportID", turn.Report.ReportID, "error", err)
			return services.MsgStoreUnavailable
		}
		slog.Info("Report received", "userID", msg.UserID, "reportID", turn.Report.ReportID)
	}

	switch {
	case turn.TopNames:
		return h.topNames(ctx)
	case turn.Fallback:
		return h.fallback(ctx, turn.Record, msg.Text)
	}
	return turn.Reply
}

func (h *MessageHandler) topNames(ctx context.Context) string {
	realNames, err := h.stats.Top(ctx, models.NameKindReal, h.cfg.TopNamesLimit)
	if err != nil {
		slog.Error("Failed to read name statistics", "error", err)
		return services.MsgStoreUnavailable
	}
	nickNames, err := h.stats.Top(ctx, models.NameKindNick, h.cfg.TopNamesLimit)
	if err != nil {
		slog.Error("Failed to read name statistics", "error", err)
		return services.MsgStoreUnavailable
	}
	return services.FormatTopNames(realNames, nickNames)
}

func (h *MessageHandler) fallback(ctx context.Context, rec *models.UserRecord, text string) string {
	if h.ai == nil {
		return services.MsgFallbackUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.AITimeout)
	defer cancel()

	system := config.GetAssistantSystemPrompt(h.cfg.BotName, config.AssistantProfile{
		RealName:   rec.RealName,
		NickName:   rec.NickName,
		Age:        rec.Age,
		Birthday:   rec.Birthday,
		Department: rec.Department,
	})
	answer, err := h.ai.Complete(ctx, system, strings.TrimSpace(text))
	if err != nil {
		if !errors.Is(err, services.ErrFallbackDisabled) {
			slog.Error("Failed to get AI response", "userID", rec.UserID, "error", err)
		}
		return services.MsgFallbackUnavailable
	}
	return answer
}

// deliver uses the reply token while it is still fresh and falls back to a
// push message otherwise
func (h *MessageHandler) deliver(ctx context.Context, msg models.InboundMessage, text string) {
	if text == "" || h.messenger == nil {
		return
	}

	fresh := msg.ReplyToken != "" && (msg.ReceivedAt.IsZero() || h.now().Sub(msg.ReceivedAt) < h.cfg.ReplyWindow)
	if fresh {
		err := h.messenger.Reply(ctx, msg.ReplyToken, text)
		if err == nil {
			return
		}
		slog.Warn("Reply failed, falling back to push", "userID", msg.UserID, "error", err)
	}

	if err := h.messenger.Push(ctx, msg.UserID, text); err != nil {
		slog.Error("Failed to send message", "userID", msg.UserID, "error", err)
	}
}
