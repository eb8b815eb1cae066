package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"line-register-bot/models"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultModerationPolicy())

	tests := []struct {
		input string
		want  Category
	}{
		{"สมชาย", CategoryNormal},
		{"สวัสดีครับ", CategoryNormal},
		{"ขอบคุณมากครับ", CategoryNormal},
		{"คนสวย", CategoryNormal},
		{"25", CategoryNormal},
		{"5555", CategoryNormal},
		{"20/11/2548", CategoryNormal},
		{"Hello there", CategoryNormal},
		{"", CategoryNormal},

		{"fuck", CategoryProfane},
		{"FUCK you", CategoryProfane},
		{"f.u.c.k", CategoryProfane},
		{"f u c k", CategoryProfane},
		{"sh1t", CategoryProfane},
		{"$hit", CategoryProfane},
		{"เหี้ย", CategoryProfane},
		{"เ-ห-ี้-ย", CategoryProfane},
		{"ไอ้ควย", CategoryProfane},

		{"!!!!", CategorySpam},
		{"...", CategorySpam},
		{"ฮ่าาาาา", CategorySpam},
		{"aaaaaa", CategorySpam},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.input))
		})
	}
}

func TestCategoryFlagged(t *testing.T) {
	assert.False(t, CategoryNormal.Flagged())
	assert.True(t, CategorySpam.Flagged())
	assert.True(t, CategoryProfane.Flagged())
}

func TestEscalationIsMonotonicUntilBlock(t *testing.T) {
	tracker := NewEscalationTracker(DefaultEscalationPolicy())
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	rec := models.NewUserRecord("U1", now)

	first := tracker.Register(rec, now)
	assert.False(t, first.Blocked)
	assert.Equal(t, 1, first.Count)

	second := tracker.Register(rec, now.Add(time.Second))
	assert.False(t, second.Blocked)
	assert.Equal(t, 2, second.Count)
	assert.Greater(t, second.Count, first.Count)

	third := tracker.Register(rec, now.Add(2*time.Second))
	require.True(t, third.Blocked)
	assert.Equal(t, now.Add(2*time.Second+3*time.Minute), third.BlockedUntil)
	assert.Equal(t, 0, rec.Moderation.BadCount)
	require.NotNil(t, rec.Moderation.BlockedUntil)
}

func TestGateWhileBlocked(t *testing.T) {
	tracker := NewEscalationTracker(DefaultEscalationPolicy())
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	until := now.Add(3 * time.Minute)
	rec := models.NewUserRecord("U1", now)
	rec.Moderation.BlockedUntil = &until
	before := rec.Clone()

	remaining, lapsed := tracker.Gate(rec, now.Add(time.Minute))
	assert.Equal(t, 2*time.Minute, remaining)
	assert.False(t, lapsed)
	assert.Equal(t, before, rec)
}

func TestGateClearsLapsedBlock(t *testing.T) {
	tracker := NewEscalationTracker(DefaultEscalationPolicy())
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	until := now.Add(3 * time.Minute)
	rec := models.NewUserRecord("U1", now)
	rec.Moderation.BlockedUntil = &until
	rec.Moderation.BadCount = 2

	remaining, lapsed := tracker.Gate(rec, until)
	assert.Zero(t, remaining)
	assert.True(t, lapsed)
	assert.Nil(t, rec.Moderation.BlockedUntil)
	assert.Zero(t, rec.Moderation.BadCount)

	remaining, lapsed = tracker.Gate(rec, until.Add(time.Hour))
	assert.Zero(t, remaining)
	assert.False(t, lapsed)
}
