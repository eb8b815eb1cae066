package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"line-register-bot/models"
)

// NameChange is a pending adjustment of the name frequency tables. It is
// applied only after the record carrying it has been persisted
type NameChange struct {
	Kind models.NameKind
	Old  string
	New  string
}

// Outcome is the result of feeding one input to the conversation
type Outcome struct {
	Reply string
	// Handled is false when the user is in done and the text is not a
	// command, so intents and the AI fallback get a turn
	Handled     bool
	NameChanges []NameChange
	Report      *models.Report
	TopNames    bool
}

type commandKind int

const (
	cmdEdit commandKind = iota
	cmdReport
	cmdProfile
	cmdTopNames
)

type command struct {
	keywords []string
	kind     commandKind
	field    models.Field
}

// Order matters: "เปลี่ยนชื่อเล่น" must be seen before "เปลี่ยนชื่อ"
var doneCommands = []command{
	{keywords: []string{"เปลี่ยนชื่อเล่น", "แก้ชื่อเล่น", "change nickname"}, kind: cmdEdit, field: models.FieldNickName},
	{keywords: []string{"เปลี่ยนชื่อ", "แก้ชื่อ", "ขอพิมพ์ชื่อใหม่", "change name"}, kind: cmdEdit, field: models.FieldRealName},
	{keywords: []string{"เปลี่ยนอายุ", "แก้อายุ", "change age"}, kind: cmdEdit, field: models.FieldAge},
	{keywords: []string{"เปลี่ยนวันเกิด", "แก้วันเกิด", "change birthday"}, kind: cmdEdit, field: models.FieldBirthday},
	{keywords: []string{"เปลี่ยนแผนก", "แก้แผนก", "change department"}, kind: cmdEdit, field: models.FieldDepartment},
	{keywords: []string{"แจ้งปัญหา", "report"}, kind: cmdReport},
	{keywords: []string{"ข้อมูลของฉัน", "โปรไฟล์", "profile", "my profile"}, kind: cmdProfile},
	{keywords: []string{"ชื่อยอดนิยม", "top names"}, kind: cmdTopNames},
}

var cancelWords = []string{"ยกเลิก", "cancel"}

// matchKeyword matches Thai keywords anywhere in the text and ASCII keywords
// as a prefix, so "report" does not fire inside an English sentence
func matchKeyword(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if isASCII(kw) {
			if folded == kw || strings.HasPrefix(folded, kw+" ") {
				return true
			}
			continue
		}
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// Conversation is the registration state machine. It only mutates the record
// it is given; persistence is the caller's job
type Conversation struct {
	validator *Validator
	flow      *Flow
	newID     func() string
}

// NewConversation wires the validator and the transition graph together
func NewConversation(validator *Validator, flow *Flow) *Conversation {
	return &Conversation{validator: validator, flow: flow, newID: uuid.NewString}
}

// Validator exposes the validator the conversation uses
func (c *Conversation) Validator() *Validator { return c.validator }

// Flow exposes the transition graph
func (c *Conversation) Flow() *Flow { return c.flow }

// HandleText advances rec by one text message
func (c *Conversation) HandleText(ctx context.Context, rec *models.UserRecord, text string, now time.Time) (Outcome, error) {
	folded := foldText(text)
	switch rec.Step.Mode {
	case models.ModeCollecting:
		return c.answerField(ctx, rec, text, now)
	case models.ModeEditing:
		if matchKeyword(folded, cancelWords) {
			return c.cancel(ctx, rec)
		}
		return c.answerField(ctx, rec, text, now)
	case models.ModeReporting:
		if matchKeyword(folded, cancelWords) {
			return c.cancel(ctx, rec)
		}
		return c.answerReport(ctx, rec, text, now)
	case models.ModeDone:
		return c.dispatchCommand(ctx, rec, folded)
	}
	return Outcome{}, fmt.Errorf("user %s: invalid step %+v", rec.UserID, rec.Step)
}

// HandleImage advances rec by one image message
func (c *Conversation) HandleImage(ctx context.Context, rec *models.UserRecord, now time.Time) (Outcome, error) {
	switch rec.Step {
	case models.StepReportPhoto:
		if rec.PendingReport == nil {
			rec.PendingReport = &models.PendingReport{}
		}
		rec.PendingReport.PhotoReceived = true
		return c.completeReport(ctx, rec, now)
	case models.StepDone:
		return Outcome{Reply: msgImageDone, Handled: true}, nil
	}
	return Outcome{Reply: msgImageNotExpected + "\n" + c.prompt(rec.Step), Handled: true}, nil
}

// Prompt returns the question asked at step
func (c *Conversation) Prompt(step models.Step) string { return c.prompt(step) }

// Restart sends rec back to the start of the collection pass, wiping the
// profile. Names already counted are returned as decrements
func (c *Conversation) Restart(ctx context.Context, rec *models.UserRecord) ([]NameChange, error) {
	next, err := c.flow.Fire(ctx, rec.Step, EventRestart)
	if err != nil {
		return nil, err
	}
	var changes []NameChange
	if rec.IsRegistered() {
		changes = RemovalChanges(rec)
	}
	rec.ClearProfile()
	rec.Step = next
	return changes, nil
}

// Cancel leaves an edit or report sub-flow without changes
func (c *Conversation) Cancel(ctx context.Context, rec *models.UserRecord) error {
	next, err := c.flow.Fire(ctx, rec.Step, EventCancel)
	if err != nil {
		return err
	}
	rec.Step = next
	rec.PendingReport = nil
	return nil
}

func (c *Conversation) cancel(ctx context.Context, rec *models.UserRecord) (Outcome, error) {
	if err := c.Cancel(ctx, rec); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: msgCancelled, Handled: true}, nil
}

func (c *Conversation) answerField(ctx context.Context, rec *models.UserRecord, text string, now time.Time) (Outcome, error) {
	step := rec.Step
	field := step.Field

	if field == models.FieldBirthday && step.Mode == models.ModeEditing && c.validator.IsSkip(text) {
		return c.rejected(field, ReasonSkipNotAllowed), nil
	}

	v := c.validator.Validate(field, text)
	if !v.OK {
		return c.rejected(field, v.Reason), nil
	}

	if field == models.FieldNickName {
		if foldText(v.Value) == foldText(rec.RealName) {
			return c.rejected(field, ReasonSameAsRealName), nil
		}
		if LikelySwapped(rec.RealName, v.Value) {
			if step.Mode == models.ModeEditing {
				return c.rejected(field, ReasonSwapped), nil
			}
			next, err := c.flow.Fire(ctx, step, EventSwap)
			if err != nil {
				return Outcome{}, err
			}
			rec.RealName = ""
			rec.Step = next
			return Outcome{Reply: msgSwapped, Handled: true}, nil
		}
	}

	next, err := c.flow.Fire(ctx, step, EventAccept)
	if err != nil {
		return Outcome{}, err
	}

	var changes []NameChange
	switch field {
	case models.FieldRealName:
		changes = append(changes, NameChange{Kind: models.NameKindReal, Old: rec.RealName, New: v.Value})
		rec.RealName = v.Value
	case models.FieldNickName:
		changes = append(changes, NameChange{Kind: models.NameKindNick, Old: rec.NickName, New: v.Value})
		rec.NickName = v.Value
	case models.FieldAge:
		rec.Age = v.Age
	case models.FieldBirthday:
		rec.Birthday = v.Value
		rec.BirthdaySkipped = v.Skipped
	case models.FieldDepartment:
		rec.Department = v.Value
	}
	rec.Step = next

	out := Outcome{Handled: true}
	switch {
	case step.Mode == models.ModeEditing:
		out.NameChanges = changes
		out.Reply = "อัปเดตเรียบร้อยครับ ✅\n" + ProfileSummary(rec)
	case next == models.StepDone:
		registered := now
		rec.RegisteredAt = &registered
		out.NameChanges = []NameChange{
			{Kind: models.NameKindReal, New: rec.RealName},
			{Kind: models.NameKindNick, New: rec.NickName},
		}
		out.Reply = "ขอบคุณครับ 🙏 ลงทะเบียนเรียบร้อยแล้ว\n" + ProfileSummary(rec)
	case field == models.FieldRealName:
		out.Reply = fmt.Sprintf("ยินดีที่ได้รู้จักครับ คุณ%s 😊\n%s", rec.RealName, c.prompt(next))
	default:
		out.Reply = c.prompt(next)
	}
	return out, nil
}

func (c *Conversation) rejected(field models.Field, reason RejectReason) Outcome {
	return Outcome{Reply: c.rejection(field, reason), Handled: true}
}

func (c *Conversation) answerReport(ctx context.Context, rec *models.UserRecord, text string, now time.Time) (Outcome, error) {
	if rec.PendingReport == nil {
		rec.PendingReport = &models.PendingReport{}
	}
	switch rec.Step {
	case models.StepReportTitle, models.StepReportDetail:
		v := c.validator.Validate(rec.Step.Field, text)
		if !v.OK {
			return c.rejected(rec.Step.Field, v.Reason), nil
		}
		next, err := c.flow.Fire(ctx, rec.Step, EventAccept)
		if err != nil {
			return Outcome{}, err
		}
		if rec.Step == models.StepReportTitle {
			rec.PendingReport.Title = v.Value
		} else {
			rec.PendingReport.Detail = v.Value
		}
		rec.Step = next
		return Outcome{Reply: c.prompt(next), Handled: true}, nil
	case models.StepReportPhoto:
		if !c.validator.IsSkip(text) {
			return Outcome{Reply: msgReportWantPhoto, Handled: true}, nil
		}
		return c.completeReport(ctx, rec, now)
	}
	return Outcome{}, fmt.Errorf("user %s: invalid report step %s", rec.UserID, rec.Step)
}

func (c *Conversation) completeReport(ctx context.Context, rec *models.UserRecord, now time.Time) (Outcome, error) {
	next, err := c.flow.Fire(ctx, rec.Step, EventAccept)
	if err != nil {
		return Outcome{}, err
	}
	p := rec.PendingReport
	if p == nil {
		p = &models.PendingReport{}
	}
	report := &models.Report{
		ReportID:      c.newID(),
		UserID:        rec.UserID,
		Title:         p.Title,
		Detail:        p.Detail,
		PhotoReceived: p.PhotoReceived,
		CreatedAt:     now,
	}
	rec.PendingReport = nil
	rec.Step = next
	return Outcome{
		Reply:   "✅ ได้รับเรื่องแจ้งปัญหาแล้วครับ ขอบคุณมากครับ 🙏\nหมายเลขอ้างอิง: " + report.ReportID,
		Handled: true,
		Report:  report,
	}, nil
}

func (c *Conversation) dispatchCommand(ctx context.Context, rec *models.UserRecord, folded string) (Outcome, error) {
	for _, cmd := range doneCommands {
		if !matchKeyword(folded, cmd.keywords) {
			continue
		}
		switch cmd.kind {
		case cmdEdit:
			if !c.flow.Has(cmd.field) {
				continue
			}
			next, err := c.flow.Fire(ctx, rec.Step, EditEvent(cmd.field))
			if err != nil {
				return Outcome{}, err
			}
			rec.Step = next
			return Outcome{Reply: c.prompt(next), Handled: true}, nil
		case cmdReport:
			next, err := c.flow.Fire(ctx, rec.Step, EventReport)
			if err != nil {
				return Outcome{}, err
			}
			rec.Step = next
			rec.PendingReport = &models.PendingReport{}
			return Outcome{Reply: c.prompt(next), Handled: true}, nil
		case cmdProfile:
			return Outcome{Reply: "ข้อมูลของคุณครับ\n" + ProfileSummary(rec), Handled: true}, nil
		case cmdTopNames:
			return Outcome{Handled: true, TopNames: true}, nil
		}
	}
	return Outcome{}, nil
}

// RemovalChanges lists the name decrements for a record that is being wiped
func RemovalChanges(rec *models.UserRecord) []NameChange {
	var changes []NameChange
	if rec.RealName != "" {
		changes = append(changes, NameChange{Kind: models.NameKindReal, Old: rec.RealName})
	}
	if rec.NickName != "" {
		changes = append(changes, NameChange{Kind: models.NameKindNick, Old: rec.NickName})
	}
	return changes
}
