package services

import (
	"context"
	"strings"
	"time"

	"line-register-bot/models"
)

var resetWords = map[string]bool{"เริ่มใหม่": true, "reset": true, "ล้างข้อมูล": true}

// Turn is everything one inbound message produced. The caller persists Record
// (when non-nil) before applying NameChanges or saving Report
type Turn struct {
	Reply       string
	Record      *models.UserRecord
	Category    Category
	NameChanges []NameChange
	Report      *models.Report
	// TopNames asks the caller to fill Reply from the name statistics
	TopNames bool
	// Fallback asks the caller to answer with the AI assistant
	Fallback bool
	Blocked  bool
}

// Bot runs the per-message pipeline: block gate, moderation, global reset,
// idle timeout, conversation and finally the intents
type Bot struct {
	classifier   *Classifier
	tracker      *EscalationTracker
	conversation *Conversation
	intents      *Intents
	idleTimeout  time.Duration
}

// NewBot assembles the pipeline. An idleTimeout of zero disables the timeout
func NewBot(classifier *Classifier, tracker *EscalationTracker, conversation *Conversation, intents *Intents, idleTimeout time.Duration) *Bot {
	return &Bot{
		classifier:   classifier,
		tracker:      tracker,
		conversation: conversation,
		intents:      intents,
		idleTimeout:  idleTimeout,
	}
}

// Conversation returns the underlying state machine
func (b *Bot) Conversation() *Conversation { return b.conversation }

// Process handles msg for the user whose stored record is stored (nil on first
// contact). stored is never modified
func (b *Bot) Process(ctx context.Context, stored *models.UserRecord, msg models.InboundMessage, now time.Time) (Turn, error) {
	isNew := stored == nil
	var rec *models.UserRecord
	if isNew {
		rec = models.NewUserRecord(msg.UserID, now)
	} else {
		rec = stored.Clone()
	}

	if remaining, _ := b.tracker.Gate(rec, now); remaining > 0 {
		return Turn{Reply: stillBlocked(remaining), Blocked: true}, nil
	}

	if msg.IsImage {
		out, err := b.conversation.HandleImage(ctx, rec, now)
		if err != nil {
			return Turn{}, err
		}
		rec.LastActive = now
		return b.finish(rec, out, now), nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Turn{}, nil
	}

	if cat := b.classifier.Classify(text); cat.Flagged() {
		e := b.tracker.Register(rec, now)
		rec.UpdatedAt = now
		reply := moderationWarning(cat, e)
		if e.Blocked {
			reply = blockNotice(e.BlockedUntil.Sub(now))
		}
		return Turn{Reply: reply, Record: rec, Category: cat, Blocked: e.Blocked}, nil
	}

	if resetWords[foldText(text)] {
		changes, err := b.conversation.Restart(ctx, rec)
		if err != nil {
			return Turn{}, err
		}
		rec.LastActive = now
		return b.finish(rec, Outcome{Reply: msgReset, Handled: true, NameChanges: changes}, now), nil
	}

	if !isNew && b.idleTimeout > 0 && now.Sub(rec.LastActive) > b.idleTimeout {
		if out, expired, err := b.expire(ctx, rec); err != nil {
			return Turn{}, err
		} else if expired {
			rec.LastActive = now
			return b.finish(rec, out, now), nil
		}
	}
	rec.LastActive = now

	out, err := b.conversation.HandleText(ctx, rec, text, now)
	if err != nil {
		return Turn{}, err
	}
	// First contact that is not a usable name gets the greeting instead of a
	// bare validation error
	if isNew && rec.Step == models.Collect(models.FieldRealName) {
		out.Reply = msgWelcome
	}

	turn := b.finish(rec, out, now)
	if !out.Handled {
		if reply, ok := b.intents.Match(rec, text, now); ok {
			turn.Reply = reply
		} else {
			turn.Fallback = true
		}
	}
	return turn, nil
}

// expire applies the idle timeout. Half-collected profiles start over;
// sub-flows are abandoned. Registered users in done are left alone
func (b *Bot) expire(ctx context.Context, rec *models.UserRecord) (Outcome, bool, error) {
	switch rec.Step.Mode {
	case models.ModeCollecting:
		if rec.Step == models.Collect(models.FieldRealName) && rec.RealName == "" {
			return Outcome{}, false, nil
		}
		changes, err := b.conversation.Restart(ctx, rec)
		if err != nil {
			return Outcome{}, false, err
		}
		return Outcome{Reply: msgIdleRestart, Handled: true, NameChanges: changes}, true, nil
	case models.ModeEditing, models.ModeReporting:
		if err := b.conversation.Cancel(ctx, rec); err != nil {
			return Outcome{}, false, err
		}
		return Outcome{Reply: msgIdleCancel, Handled: true}, true, nil
	}
	return Outcome{}, false, nil
}

func (b *Bot) finish(rec *models.UserRecord, out Outcome, now time.Time) Turn {
	rec.UpdatedAt = now
	return Turn{
		Reply:       out.Reply,
		Record:      rec,
		Category:    CategoryNormal,
		NameChanges: out.NameChanges,
		Report:      out.Report,
		TopNames:    out.TopNames,
	}
}
