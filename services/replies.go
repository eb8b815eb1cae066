package services

import (
	"fmt"
	"strings"
	"time"

	"line-register-bot/models"
)

// Reply texts. The bot speaks Thai in the polite male register
const (
	msgWelcome          = "สวัสดีครับ 😊\nก่อนเริ่มใช้งาน ขอทราบชื่อจริงของคุณหน่อยครับ"
	msgAskBirthday      = "วันเกิดของคุณวันไหนครับ?\nตัวอย่าง: 20/11/2548\nหรือพิมพ์ \"ข้าม\""
	msgSwapped          = "ดูเหมือนชื่อจริงกับชื่อเล่นจะสลับกันนะครับ 😊\nกรุณาพิมพ์ชื่อจริงของคุณอีกครั้งครับ"
	msgReset            = "รีเซ็ตข้อมูลเรียบร้อยครับ 😊\nกรุณาพิมพ์ชื่อจริงของคุณ"
	msgIdleRestart      = "คุณหายไปสักพักนะครับ 😊\nขอเริ่มต้นใหม่อีกครั้ง\nกรุณาพิมพ์ชื่อจริงของคุณครับ"
	msgIdleCancel       = "คุณหายไปสักพักนะครับ 😊\nผมยกเลิกรายการที่ค้างไว้ให้แล้ว พิมพ์ใหม่ได้เลยครับ"
	msgCancelled        = "ยกเลิกเรียบร้อยครับ 😊"
	msgReportTitle      = "📝 แจ้งปัญหา\nกรุณาพิมพ์หัวข้อของปัญหาครับ\n(พิมพ์ \"ยกเลิก\" เพื่อยกเลิก)"
	msgReportDetail     = "กรุณาอธิบายรายละเอียดของปัญหาครับ"
	msgReportPhoto      = "ถ้ามีรูปภาพประกอบ ส่งรูปมาได้เลยครับ 📷\nหรือพิมพ์ \"ข้าม\" ถ้าไม่มี"
	msgReportWantPhoto  = "กรุณาส่งรูปภาพ หรือพิมพ์ \"ข้าม\" ครับ"
	msgImageDone        = "ได้รับรูปภาพแล้วครับ 📷\nแต่ตอนนี้ผมยังไม่สามารถดูรูปภาพได้ พิมพ์เป็นข้อความแทนได้เลยครับ"
	msgImageNotExpected = "ตอนนี้ผมยังรับรูปภาพไม่ได้ครับ 😊"
	msgNoBirthday       = "คุณยังไม่ได้บอกวันเกิดไว้ครับ\nพิมพ์ \"เปลี่ยนวันเกิด\" เพื่อเพิ่มได้เลย"
	msgNoTopNames       = "ยังไม่มีข้อมูลชื่อครับ"

	// MsgStoreUnavailable is the reply when the user record store fails
	MsgStoreUnavailable = "ขออภัยครับ ระบบขัดข้องชั่วคราว 🙏\nกรุณาลองใหม่อีกครั้งภายหลังครับ"
	// MsgFallbackUnavailable is the reply when the AI fallback fails
	MsgFallbackUnavailable = "ขออภัยครับ ผมยังตอบคำถามนี้ไม่ได้ในตอนนี้ 😊\nลองพิมพ์ใหม่อีกครั้ง หรือพิมพ์ \"เริ่มใหม่\" ได้ครับ"
)

var thaiMonths = [...]string{
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

var thaiWeekdays = [...]string{
	"อาทิตย์", "จันทร์", "อังคาร", "พุธ", "พฤหัสบดี", "ศุกร์", "เสาร์",
}

// formatThaiDate renders t as e.g. "วันเสาร์ที่ 15 มิถุนายน 2567"
func formatThaiDate(t time.Time) string {
	return fmt.Sprintf("วัน%sที่ %d %s %d",
		thaiWeekdays[t.Weekday()], t.Day(), thaiMonths[t.Month()-1], t.Year()+543)
}

func (c *Conversation) prompt(step models.Step) string {
	switch step {
	case models.StepReportTitle:
		return msgReportTitle
	case models.StepReportDetail:
		return msgReportDetail
	case models.StepReportPhoto:
		return msgReportPhoto
	}
	switch step.Field {
	case models.FieldRealName:
		if step.Mode == models.ModeEditing {
			return "ได้เลยครับ 😊 กรุณาพิมพ์ชื่อจริงใหม่ของคุณ"
		}
		return msgWelcome
	case models.FieldNickName:
		if step.Mode == models.ModeEditing {
			return "ได้เลยครับ 😊 กรุณาพิมพ์ชื่อเล่นใหม่ของคุณ"
		}
		return "ชื่อเล่นของคุณคืออะไรครับ?"
	case models.FieldAge:
		return fmt.Sprintf("คุณอายุเท่าไหร่ครับ? (พิมพ์เป็นตัวเลข %d–%d)",
			c.validator.Policy().AgeMin, c.validator.Policy().AgeMax)
	case models.FieldBirthday:
		if step.Mode == models.ModeEditing {
			return "ได้เลยครับ 😊 กรุณาพิมพ์วันเกิดใหม่ของคุณ\nตัวอย่าง: 20/11/2548"
		}
		return msgAskBirthday
	case models.FieldDepartment:
		return "คุณอยู่แผนกไหนครับ?\nตัวอย่าง: " + strings.Join(c.validator.DepartmentExamples(4), ", ")
	}
	return ""
}

func (c *Conversation) rejection(field models.Field, reason RejectReason) string {
	p := c.validator.Policy()
	switch reason {
	case ReasonSkipNotAllowed:
		return "❌ ขั้นตอนนี้ไม่สามารถข้ามได้ครับ"
	case ReasonSameAsRealName:
		return "❌ ชื่อเล่นต้องไม่ซ้ำกับชื่อจริงครับ"
	case ReasonSwapped:
		return "❌ ชื่อเล่นนี้ยาวกว่าชื่อจริงมาก อาจสลับกันอยู่ครับ กรุณาพิมพ์ชื่อเล่นที่สั้นกว่านี้"
	}

	switch field {
	case models.FieldRealName, models.FieldNickName:
		label, maxLen := "ชื่อจริง", p.NameMaxLen
		if field == models.FieldNickName {
			label, maxLen = "ชื่อเล่น", p.NickMaxLen
		}
		switch reason {
		case ReasonForbidden, ReasonRepeated, ReasonKeyboardMash:
			return fmt.Sprintf("❌ ดูเหมือนจะไม่ใช่%sนะครับ กรุณาพิมพ์%sที่ใช้เรียกจริงๆ", label, label)
		}
		return fmt.Sprintf("❌ กรุณาพิมพ์%s (ภาษาไทยหรืออังกฤษ %d–%d ตัวอักษร)", label, p.NameMinLen, maxLen)
	case models.FieldAge:
		return fmt.Sprintf("❌ กรุณาพิมพ์อายุเป็นตัวเลข %d–%d เท่านั้นครับ", p.AgeMin, p.AgeMax)
	case models.FieldBirthday:
		if reason == ReasonDateInvalid {
			return "❌ ไม่มีวันที่นี้ในปฏิทินครับ กรุณาตรวจสอบอีกครั้ง\nรูปแบบ DD/MM/YYYY หรือพิมพ์ \"ข้าม\""
		}
		return "❌ รูปแบบวันเกิดไม่ถูกต้อง\nกรุณาพิมพ์ DD/MM/YYYY หรือพิมพ์ \"ข้าม\""
	case models.FieldDepartment:
		return "❌ ไม่พบแผนกนี้ครับ\nตัวอย่างแผนกที่ใช้ได้: " + strings.Join(c.validator.DepartmentExamples(6), ", ")
	case models.FieldReportTitle, models.FieldReportDetail:
		return fmt.Sprintf("❌ กรุณาพิมพ์ข้อความ %d ตัวอักษรขึ้นไปครับ", p.ReportMinLen)
	}
	return "❌ ข้อมูลไม่ถูกต้องครับ"
}

// ProfileSummary renders the stored profile
func ProfileSummary(rec *models.UserRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 ชื่อ: %s", orDash(rec.RealName))
	fmt.Fprintf(&b, "\n😊 ชื่อเล่น: %s", orDash(rec.NickName))
	if rec.Age > 0 {
		fmt.Fprintf(&b, "\n🎂 อายุ %d ปี", rec.Age)
	}
	if rec.Birthday != "" {
		fmt.Fprintf(&b, "\n📅 วันเกิด: %s", rec.Birthday)
	} else {
		b.WriteString("\n📅 วันเกิด: ไม่ได้ระบุ")
	}
	if rec.Department != "" {
		fmt.Fprintf(&b, "\n🏢 แผนก: %s", rec.Department)
	}
	return b.String()
}

// FormatTopNames renders the two name frequency tables
func FormatTopNames(realNames, nickNames []models.NameCount) string {
	if len(realNames) == 0 && len(nickNames) == 0 {
		return msgNoTopNames
	}
	var b strings.Builder
	b.WriteString("🏆 ชื่อยอดนิยม")
	writeTable := func(title string, rows []models.NameCount) {
		fmt.Fprintf(&b, "\n\n%s", title)
		if len(rows) == 0 {
			b.WriteString("\n-")
		}
		for i, r := range rows {
			fmt.Fprintf(&b, "\n%d. %s (%d)", i+1, r.Name, r.Count)
		}
	}
	writeTable("ชื่อจริง", realNames)
	writeTable("ชื่อเล่น", nickNames)
	return b.String()
}

func moderationWarning(cat Category, e Escalation) string {
	if cat == CategorySpam {
		return fmt.Sprintf("⚠️ กรุณาอย่าส่งข้อความซ้ำหรือข้อความที่ไม่มีความหมายครับ (เตือนครั้งที่ %d/%d)", e.Count, e.Threshold)
	}
	return fmt.Sprintf("⚠️ กรุณาใช้ถ้อยคำที่สุภาพครับ (เตือนครั้งที่ %d/%d)", e.Count, e.Threshold)
}

func blockNotice(d time.Duration) string {
	return fmt.Sprintf("⛔ คุณถูกระงับการสนทนาชั่วคราว %d นาที\nเนื่องจากส่งข้อความไม่เหมาะสมหลายครั้งครับ", int(d.Round(time.Minute)/time.Minute))
}

func stillBlocked(remaining time.Duration) string {
	secs := int((remaining + time.Second - 1) / time.Second)
	return fmt.Sprintf("⛔ คุณยังถูกระงับการสนทนาอยู่ครับ\nเหลืออีก %d วินาที", secs)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
