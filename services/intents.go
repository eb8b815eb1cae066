package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"line-register-bot/models"
)

type intentKind int

const (
	intentBirthday intentKind = iota
	intentNewYear
	intentTime
	intentDate
)

type intent struct {
	// phrases match anywhere in the message
	phrases []string
	// exact match the whole message once trailing punctuation is dropped
	exact   []string
	english *regexp.Regexp
	kind    intentKind
}

// First match wins; birthday is checked before date so "วันเกิด" is not
// answered with today's date. Single words like "เวลา" or "วันนี้" only count
// when they are the whole message, so ordinary chat passes through to the AI
var intentTable = []intent{
	{
		phrases: []string{"วันเกิดฉัน", "วันเกิดผม", "วันเกิดหนู", "วันเกิดเรา", "ถึงวันเกิด", "วันเกิดอีกกี่วัน", "อีกกี่วันวันเกิด"},
		exact:   []string{"วันเกิด"},
		english: regexp.MustCompile(`\bbirthday\b`),
		kind:    intentBirthday,
	},
	{
		phrases: []string{"อีกกี่วันปีใหม่", "ถึงปีใหม่", "ปีใหม่อีกกี่วัน"},
		exact:   []string{"ปีใหม่"},
		english: regexp.MustCompile(`\bnew year\b`),
		kind:    intentNewYear,
	},
	{
		phrases: []string{"กี่โมง", "ตอนนี้เวลา", "เวลาเท่าไหร่", "เวลาเท่าไร"},
		exact:   []string{"เวลา"},
		english: regexp.MustCompile(`\b(what time|time now|current time)\b`),
		kind:    intentTime,
	},
	{
		phrases: []string{"วันนี้วันที่", "วันนี้วันอะไร", "วันนี้วันไหน", "วันที่เท่าไหร่", "วันที่เท่าไร"},
		exact:   []string{"วันนี้", "วันที่"},
		english: regexp.MustCompile(`\b(what('s| is) the date|date today|today's date|what day is it)\b`),
		kind:    intentDate,
	},
}

// Intents answers the small built-in questions a registered user may ask
type Intents struct {
	loc *time.Location
}

// NewIntents answers in the given time zone; nil means UTC
func NewIntents(loc *time.Location) *Intents {
	if loc == nil {
		loc = time.UTC
	}
	return &Intents{loc: loc}
}

// Match returns the reply for text, or false when no intent applies
func (i *Intents) Match(rec *models.UserRecord, text string, now time.Time) (string, bool) {
	folded := foldText(text)
	for _, in := range intentTable {
		if !in.matches(folded) {
			continue
		}
		switch in.kind {
		case intentBirthday:
			return i.birthday(rec, now), true
		case intentNewYear:
			days := DaysUntilNewYear(now, i.loc)
			return fmt.Sprintf("🎆 อีก %d วันจะถึงปีใหม่ครับ", days), true
		case intentTime:
			return fmt.Sprintf("🕒 ตอนนี้เวลา %s น. ครับ", now.In(i.loc).Format("15:04")), true
		case intentDate:
			return fmt.Sprintf("📅 วันนี้คือ%s ครับ", formatThaiDate(now.In(i.loc))), true
		}
	}
	return "", false
}

func (in intent) matches(folded string) bool {
	for _, p := range in.phrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	whole := strings.TrimRight(folded, "?!. ")
	for _, e := range in.exact {
		if whole == e {
			return true
		}
	}
	return in.english != nil && in.english.MatchString(folded)
}

func (i *Intents) birthday(rec *models.UserRecord, now time.Time) string {
	day, month, ok := ParseBirthday(rec.Birthday)
	if !ok {
		return msgNoBirthday
	}
	_, days := NextBirthday(day, month, now, i.loc)
	if days == 0 {
		return fmt.Sprintf("🎉 สุขสันต์วันเกิดครับ คุณ%s! 🎂", orDash(rec.NickName))
	}
	return fmt.Sprintf("🎂 อีก %d วันจะถึงวันเกิดของคุณครับ", days)
}

// NextBirthday returns the next occurrence of day/month on or after today in
// loc, and the number of calendar days until it. A 29 February birthday falls
// on 1 March in common years
func NextBirthday(day int, month time.Month, now time.Time, loc *time.Location) (time.Time, int) {
	today := now.In(loc)
	next := time.Date(today.Year(), month, day, 0, 0, 0, 0, loc)
	if civilDay(next) < civilDay(today) {
		next = time.Date(today.Year()+1, month, day, 0, 0, 0, 0, loc)
	}
	return next, civilDay(next) - civilDay(today)
}

// DaysUntilNewYear counts calendar days from today in loc to the next 1 January
func DaysUntilNewYear(now time.Time, loc *time.Location) int {
	today := now.In(loc)
	next := time.Date(today.Year()+1, time.January, 1, 0, 0, 0, 0, loc)
	return civilDay(next) - civilDay(today)
}

// civilDay numbers the calendar date of t, ignoring its clock and zone, so
// daylight-saving shifts cannot skew a day count
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
