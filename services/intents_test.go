package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"line-register-bot/models"
)

func TestNextBirthday(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 30, 0, 0, bangkok)

	tests := []struct {
		name  string
		day   int
		month time.Month
		days  int
		year  int
	}{
		{"today", 15, time.June, 0, 2024},
		{"tomorrow", 16, time.June, 1, 2024},
		{"rolls over", 1, time.January, 200, 2025},
		{"yesterday", 14, time.June, 364, 2025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, days := NextBirthday(tt.day, tt.month, now, bangkok)
			assert.Equal(t, tt.days, days)
			assert.Equal(t, tt.year, next.Year())
		})
	}
}

func TestNextBirthdayUsesLocalCalendar(t *testing.T) {
	// 18:00 UTC on 14 June is already 15 June in Bangkok.
	now := time.Date(2024, 6, 14, 18, 0, 0, 0, time.UTC)
	_, days := NextBirthday(15, time.June, now, bangkok)
	assert.Zero(t, days)

	_, days = NextBirthday(15, time.June, now, time.UTC)
	assert.Equal(t, 1, days)
}

func TestDaysUntilNewYear(t *testing.T) {
	assert.Equal(t, 1, DaysUntilNewYear(time.Date(2024, 12, 31, 8, 0, 0, 0, bangkok), bangkok))
	assert.Equal(t, 366, DaysUntilNewYear(time.Date(2024, 1, 1, 0, 0, 0, 0, bangkok), bangkok))
	assert.Equal(t, 200, DaysUntilNewYear(time.Date(2024, 6, 15, 12, 0, 0, 0, bangkok), bangkok))
}

func TestIntentsMatch(t *testing.T) {
	intents := NewIntents(bangkok)
	now := time.Date(2024, 6, 15, 3, 5, 0, 0, time.UTC) // 10:05 in Bangkok
	rec := models.NewUserRecord("U1", now)
	rec.NickName = "หนึ่ง"

	reply, ok := intents.Match(rec, "วันเกิดฉันอีกกี่วัน", now)
	require.True(t, ok)
	assert.Equal(t, msgNoBirthday, reply)

	rec.Birthday = "15/06/2540"
	reply, _ = intents.Match(rec, "วันเกิด", now)
	assert.Contains(t, reply, "สุขสันต์วันเกิด")
	assert.Contains(t, reply, "หนึ่ง")

	rec.Birthday = "20/06/2000"
	reply, _ = intents.Match(rec, "How long until my BIRTHDAY?", now)
	assert.Contains(t, reply, "อีก 5 วัน")

	reply, ok = intents.Match(rec, "ตอนนี้กี่โมงแล้ว", now)
	require.True(t, ok)
	assert.Contains(t, reply, "10:05")

	reply, ok = intents.Match(rec, "วันนี้วันอะไร", now)
	require.True(t, ok)
	assert.Contains(t, reply, "วันเสาร์ที่ 15 มิถุนายน 2567")

	reply, ok = intents.Match(rec, "อีกกี่วันปีใหม่", now)
	require.True(t, ok)
	assert.Contains(t, reply, "200")

	_, ok = intents.Match(rec, "เล่าเรื่องตลกหน่อย", now)
	assert.False(t, ok)
}

func TestIntentsIgnoreOrdinaryChat(t *testing.T) {
	intents := NewIntents(bangkok)
	now := time.Date(2024, 6, 15, 3, 5, 0, 0, time.UTC)
	rec := models.NewUserRecord("U1", now)

	for _, text := range []string{
		"วันนี้อากาศเป็นยังไงบ้าง",
		"ช่วงนี้ไม่ค่อยมีเวลาเลย ทำไงดี",
		"how do I update my phone",
		"sometimes I feel tired",
		"ปีใหม่นี้ไปเที่ยวไหนดี",
		"วันเกิดแม่ซื้ออะไรดี",
	} {
		t.Run(text, func(t *testing.T) {
			_, ok := intents.Match(rec, text, now)
			assert.False(t, ok)
		})
	}
}

func TestIntentsSingleWordQuestions(t *testing.T) {
	intents := NewIntents(bangkok)
	now := time.Date(2024, 6, 15, 3, 5, 0, 0, time.UTC)
	rec := models.NewUserRecord("U1", now)

	for _, text := range []string{"เวลา", "วันนี้?", "What time is it?", "what's the date", "ปีใหม่"} {
		t.Run(text, func(t *testing.T) {
			_, ok := intents.Match(rec, text, now)
			assert.True(t, ok)
		})
	}
}
