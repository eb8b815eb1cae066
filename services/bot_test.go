package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"line-register-bot/models"
)

var bangkok = time.FixedZone("ICT", 7*60*60)

type chat struct {
	t     *testing.T
	bot   *Bot
	stats *MemoryNameStats
	rec   *models.UserRecord
	now   time.Time
}

func newChat(t *testing.T, askDepartment bool) *chat {
	t.Helper()
	conv := NewConversation(NewValidator(DefaultValidationPolicy()), NewFlow(askDepartment))
	conv.newID = func() string { return "report-1" }
	bot := NewBot(
		NewClassifier(DefaultModerationPolicy()),
		NewEscalationTracker(DefaultEscalationPolicy()),
		conv,
		NewIntents(bangkok),
		15*time.Minute,
	)
	return &chat{
		t:     t,
		bot:   bot,
		stats: NewMemoryNameStats(),
		now:   time.Date(2024, 6, 15, 10, 0, 0, 0, bangkok),
	}
}

func (c *chat) send(text string) Turn {
	c.t.Helper()
	return c.deliver(models.InboundMessage{UserID: "U1", Text: text})
}

func (c *chat) sendImage() Turn {
	c.t.Helper()
	return c.deliver(models.InboundMessage{UserID: "U1", IsImage: true})
}

func (c *chat) deliver(msg models.InboundMessage) Turn {
	c.t.Helper()
	turn, err := c.bot.Process(context.Background(), c.rec, msg, c.now)
	require.NoError(c.t, err)
	if turn.Record != nil {
		c.rec = turn.Record
	}
	require.NoError(c.t, ApplyNameChanges(context.Background(), c.stats, turn.NameChanges))
	c.now = c.now.Add(time.Second)
	return turn
}

func (c *chat) register() {
	c.t.Helper()
	for _, text := range []string{"สมชาย", "หนึ่ง", "25", "ข้าม"} {
		c.send(text)
	}
	require.Equal(c.t, models.StepDone, c.rec.Step)
}

func (c *chat) top(kind models.NameKind) []models.NameCount {
	rows, err := c.stats.Top(context.Background(), kind, 10)
	require.NoError(c.t, err)
	return rows
}

func TestEndToEndRegistration(t *testing.T) {
	c := newChat(t, false)

	turn := c.send("สมชาย")
	require.NotNil(t, c.rec)
	assert.Equal(t, "U1", c.rec.UserID)
	assert.Equal(t, models.Collect(models.FieldNickName), c.rec.Step)
	assert.Contains(t, turn.Reply, "สมชาย")

	turn = c.send("ก")
	assert.Equal(t, models.Collect(models.FieldNickName), c.rec.Step)
	assert.Contains(t, turn.Reply, "❌")

	c.send("หนึ่ง")
	assert.Equal(t, models.Collect(models.FieldAge), c.rec.Step)

	turn = c.send("150")
	assert.Equal(t, models.Collect(models.FieldAge), c.rec.Step)
	assert.Contains(t, turn.Reply, "1–80")

	c.send("25")
	assert.Equal(t, models.Collect(models.FieldBirthday), c.rec.Step)

	assert.Empty(t, c.top(models.NameKindReal))

	turn = c.send("ข้าม")
	assert.Equal(t, models.StepDone, c.rec.Step)
	assert.Empty(t, c.rec.Birthday)
	assert.True(t, c.rec.BirthdaySkipped)
	assert.Equal(t, 25, c.rec.Age)
	assert.True(t, c.rec.IsRegistered())
	assert.Contains(t, turn.Reply, "สมชาย")
	assert.Contains(t, turn.Reply, "หนึ่ง")

	assert.Equal(t, []models.NameCount{{Name: "สมชาย", Count: 1}}, c.top(models.NameKindReal))
	assert.Equal(t, []models.NameCount{{Name: "หนึ่ง", Count: 1}}, c.top(models.NameKindNick))
}

func TestRegistrationWithDepartment(t *testing.T) {
	c := newChat(t, true)
	for _, text := range []string{"สมชาย", "หนึ่ง", "25", "20/11/2548"} {
		c.send(text)
	}
	assert.Equal(t, models.Collect(models.FieldDepartment), c.rec.Step)
	assert.Equal(t, "20/11/2548", c.rec.Birthday)

	c.send("ดาวอังคาร")
	assert.Equal(t, models.Collect(models.FieldDepartment), c.rec.Step)

	c.send("it")
	assert.Equal(t, models.StepDone, c.rec.Step)
	assert.Equal(t, "ไอที", c.rec.Department)
}

func TestRepromptIsIdempotent(t *testing.T) {
	c := newChat(t, false)
	c.send("สมชาย")
	c.send("หนึ่ง")
	before := c.rec.Clone()

	first := c.send("abc")
	second := c.send("abc")

	assert.Equal(t, first.Reply, second.Reply)
	assert.Equal(t, before.Step, c.rec.Step)
	assert.Equal(t, before.RealName, c.rec.RealName)
	assert.Equal(t, before.NickName, c.rec.NickName)
	assert.Equal(t, before.Age, c.rec.Age)
	assert.Equal(t, before.Moderation, c.rec.Moderation)
	assert.Empty(t, first.NameChanges)
}

func TestFirstContactGreetingIsWelcomed(t *testing.T) {
	c := newChat(t, false)
	turn := c.send("สวัสดีครับ")
	assert.Equal(t, msgWelcome, turn.Reply)
	assert.Equal(t, models.Collect(models.FieldRealName), c.rec.Step)
	assert.Empty(t, c.rec.RealName)
}

func TestSwapDetection(t *testing.T) {
	c := newChat(t, false)
	c.send("ต้น")

	turn := c.send("สมศักดิ์")
	assert.Equal(t, msgSwapped, turn.Reply)
	assert.Equal(t, models.Collect(models.FieldRealName), c.rec.Step)
	assert.Empty(t, c.rec.RealName)
	assert.Empty(t, c.rec.NickName)
}

func TestNicknameMustDifferFromRealName(t *testing.T) {
	c := newChat(t, false)
	c.send("สมชาย")
	c.send("สมชาย")
	assert.Equal(t, models.Collect(models.FieldNickName), c.rec.Step)
}

func TestModerationEscalatesToBlock(t *testing.T) {
	c := newChat(t, false)
	c.send("สมชาย")
	step := c.rec.Step

	first := c.send("fuck")
	assert.Equal(t, CategoryProfane, first.Category)
	assert.Equal(t, 1, c.rec.Moderation.BadCount)
	assert.Contains(t, first.Reply, "1/3")

	second := c.send("!!!!")
	assert.Equal(t, CategorySpam, second.Category)
	assert.Equal(t, 2, c.rec.Moderation.BadCount)

	third := c.send("เหี้ย")
	assert.True(t, third.Blocked)
	assert.Zero(t, c.rec.Moderation.BadCount)
	require.NotNil(t, c.rec.Moderation.BlockedUntil)
	assert.Equal(t, step, c.rec.Step)

	// Blocked: nothing is persisted and the step does not move.
	blocked := c.rec.Clone()
	c.now = c.now.Add(time.Minute)
	turn := c.send("หนึ่ง")
	assert.True(t, turn.Blocked)
	assert.Nil(t, turn.Record)
	assert.Equal(t, blocked, c.rec)

	// After the block lapses the message is processed normally.
	c.now = c.now.Add(3 * time.Minute)
	turn = c.send("หนึ่ง")
	assert.False(t, turn.Blocked)
	assert.Nil(t, c.rec.Moderation.BlockedUntil)
	assert.Equal(t, models.Collect(models.FieldAge), c.rec.Step)
}

func TestGlobalResetDecrementsStats(t *testing.T) {
	c := newChat(t, false)
	c.register()
	require.Len(t, c.top(models.NameKindReal), 1)

	turn := c.send("เริ่มใหม่")
	assert.Equal(t, msgReset, turn.Reply)
	assert.Equal(t, models.Collect(models.FieldRealName), c.rec.Step)
	assert.Empty(t, c.rec.RealName)
	assert.Zero(t, c.rec.Age)
	assert.False(t, c.rec.IsRegistered())
	assert.Empty(t, c.top(models.NameKindReal))
	assert.Empty(t, c.top(models.NameKindNick))
}

func TestEditNickname(t *testing.T) {
	c := newChat(t, false)
	c.register()

	turn := c.send("เปลี่ยนชื่อเล่น")
	assert.Equal(t, models.Edit(models.FieldNickName), c.rec.Step)
	assert.Contains(t, turn.Reply, "ชื่อเล่นใหม่")

	turn = c.send("ต้อม")
	assert.Equal(t, models.StepDone, c.rec.Step)
	assert.Equal(t, "ต้อม", c.rec.NickName)
	assert.Equal(t, "สมชาย", c.rec.RealName)
	assert.Contains(t, turn.Reply, "ต้อม")

	assert.Equal(t, []models.NameCount{{Name: "ต้อม", Count: 1}}, c.top(models.NameKindNick))
}

func TestEditNicknameRejectsLikelySwap(t *testing.T) {
	c := newChat(t, false)
	c.register()
	c.send("เปลี่ยนชื่อเล่น")

	turn := c.send("สมชายใจดีมาก")
	assert.Equal(t, models.Edit(models.FieldNickName), c.rec.Step)
	assert.Equal(t, "สมชาย", c.rec.RealName)
	assert.Contains(t, turn.Reply, "❌")
}

func TestEditBirthdayRequiresValue(t *testing.T) {
	c := newChat(t, false)
	c.register()
	c.send("เปลี่ยนวันเกิด")
	assert.Equal(t, models.Edit(models.FieldBirthday), c.rec.Step)

	c.send("ข้าม")
	assert.Equal(t, models.Edit(models.FieldBirthday), c.rec.Step)

	c.send("01/01/2000")
	assert.Equal(t, models.StepDone, c.rec.Step)
	assert.Equal(t, "01/01/2000", c.rec.Birthday)
	assert.False(t, c.rec.BirthdaySkipped)
}

func TestCancelEdit(t *testing.T) {
	c := newChat(t, false)
	c.register()
	c.send("เปลี่ยนอายุ")
	turn := c.send("ยกเลิก")
	assert.Equal(t, msgCancelled, turn.Reply)
	assert.Equal(t, models.StepDone, c.rec.Step)
	assert.Equal(t, 25, c.rec.Age)
}

func TestDepartmentCommandNeedsDepartmentFlow(t *testing.T) {
	c := newChat(t, false)
	c.register()
	turn := c.send("เปลี่ยนแผนก")
	assert.Equal(t, models.StepDone, c.rec.Step)
	assert.True(t, turn.Fallback)
}

func TestReportFlow(t *testing.T) {
	c := newChat(t, false)
	c.register()

	c.send("แจ้งปัญหา")
	assert.Equal(t, models.StepReportTitle, c.rec.Step)

	c.send("ก")
	assert.Equal(t, models.StepReportTitle, c.rec.Step)

	c.send("เข้าระบบไม่ได้")
	assert.Equal(t, models.StepReportDetail, c.rec.Step)

	c.send("กดปุ่มเข้าสู่ระบบแล้วหน้าจอค้าง")
	assert.Equal(t, models.StepReportPhoto, c.rec.Step)

	turn := c.send("มีรูป")
	assert.Equal(t, models.StepReportPhoto, c.rec.Step)
	assert.Equal(t, msgReportWantPhoto, turn.Reply)

	turn = c.sendImage()
	assert.Equal(t, models.StepDone, c.rec.Step)
	assert.Nil(t, c.rec.PendingReport)
	require.NotNil(t, turn.Report)
	assert.Equal(t, "report-1", turn.Report.ReportID)
	assert.Equal(t, "U1", turn.Report.UserID)
	assert.Equal(t, "เข้าระบบไม่ได้", turn.Report.Title)
	assert.Equal(t, "กดปุ่มเข้าสู่ระบบแล้วหน้าจอค้าง", turn.Report.Detail)
	assert.True(t, turn.Report.PhotoReceived)
	assert.Contains(t, turn.Reply, "report-1")
}

func TestReportSkipPhoto(t *testing.T) {
	c := newChat(t, false)
	c.register()
	for _, text := range []string{"report", "ปริ้นเตอร์เสีย", "เปิดไม่ติดเลยครับ"} {
		c.send(text)
	}
	turn := c.send("ข้าม")
	require.NotNil(t, turn.Report)
	assert.False(t, turn.Report.PhotoReceived)
	assert.Equal(t, models.StepDone, c.rec.Step)
}

func TestReportPhotoWithoutPendingDraft(t *testing.T) {
	c := newChat(t, false)
	c.register()
	// A record persisted mid-report by an older build may lack its draft.
	c.rec.Step = models.StepReportPhoto
	c.rec.PendingReport = nil

	turn := c.sendImage()
	assert.Equal(t, models.StepDone, c.rec.Step)
	assert.Nil(t, c.rec.PendingReport)
	require.NotNil(t, turn.Report)
	assert.True(t, turn.Report.PhotoReceived)
	assert.Empty(t, turn.Report.Title)
}

func TestImageOutsideReport(t *testing.T) {
	c := newChat(t, false)
	c.send("สมชาย")

	turn := c.sendImage()
	assert.Equal(t, models.Collect(models.FieldNickName), c.rec.Step)
	assert.Contains(t, turn.Reply, msgImageNotExpected)
	assert.Nil(t, turn.Report)

	c.send("หนึ่ง")
	c.send("25")
	c.send("ข้าม")
	turn = c.sendImage()
	assert.Equal(t, msgImageDone, turn.Reply)
}

func TestIdleTimeout(t *testing.T) {
	t.Run("restarts a half-finished registration", func(t *testing.T) {
		c := newChat(t, false)
		c.send("สมชาย")
		c.send("หนึ่ง")
		c.now = c.now.Add(16 * time.Minute)

		turn := c.send("25")
		assert.Equal(t, msgIdleRestart, turn.Reply)
		assert.Equal(t, models.Collect(models.FieldRealName), c.rec.Step)
		assert.Empty(t, c.rec.RealName)
		assert.Empty(t, c.rec.NickName)
	})

	t.Run("abandons a report", func(t *testing.T) {
		c := newChat(t, false)
		c.register()
		c.send("แจ้งปัญหา")
		c.now = c.now.Add(time.Hour)

		turn := c.send("หัวข้อ")
		assert.Equal(t, msgIdleCancel, turn.Reply)
		assert.Equal(t, models.StepDone, c.rec.Step)
		assert.Nil(t, c.rec.PendingReport)
	})

	t.Run("leaves registered users alone", func(t *testing.T) {
		c := newChat(t, false)
		c.register()
		c.now = c.now.Add(24 * time.Hour)

		c.send("ข้อมูลของฉัน")
		assert.Equal(t, models.StepDone, c.rec.Step)
		assert.Equal(t, "สมชาย", c.rec.RealName)
	})
}

func TestDoneIntentsAndFallback(t *testing.T) {
	c := newChat(t, false)
	c.register()

	turn := c.send("ข้อมูลของฉัน")
	assert.Contains(t, turn.Reply, "สมชาย")
	assert.False(t, turn.Fallback)

	turn = c.send("ชื่อยอดนิยม")
	assert.True(t, turn.TopNames)

	turn = c.send("วันเกิด")
	assert.Equal(t, msgNoBirthday, turn.Reply)

	turn = c.send("ตอนนี้กี่โมง")
	assert.Contains(t, turn.Reply, "10:00")

	turn = c.send("เล่าเรื่องตลกให้ฟังหน่อย")
	assert.True(t, turn.Fallback)
	assert.Equal(t, models.StepDone, c.rec.Step)
}
