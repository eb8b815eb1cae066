package services

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"line-register-bot/models"
)

func TestMemoryNameStatsNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	stats := NewMemoryNameStats()

	require.NoError(t, stats.Decrement(ctx, models.NameKindReal, "สมชาย"))
	require.NoError(t, stats.Increment(ctx, models.NameKindReal, "สมชาย"))
	require.NoError(t, stats.Decrement(ctx, models.NameKindReal, "สมชาย"))
	require.NoError(t, stats.Decrement(ctx, models.NameKindReal, "สมชาย"))

	rows, err := stats.Top(ctx, models.NameKindReal, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, stats.Increment(ctx, models.NameKindReal, "สมชาย"))
	rows, err = stats.Top(ctx, models.NameKindReal, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.NameCount{{Name: "สมชาย", Count: 1}}, rows)
}

func TestMemoryNameStatsTopOrder(t *testing.T) {
	ctx := context.Background()
	stats := NewMemoryNameStats()

	for _, name := range []string{"Bob", "bob ", "Anna", "Carl", "carl", "BOB", "Dave"} {
		require.NoError(t, stats.Increment(ctx, models.NameKindNick, name))
	}

	rows, err := stats.Top(ctx, models.NameKindNick, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.NameCount{
		{Name: "bob", Count: 3},
		{Name: "carl", Count: 2},
		{Name: "anna", Count: 1},
	}, rows)

	// Kinds are independent.
	rows, err = stats.Top(ctx, models.NameKindReal, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTopNameCountsAcrossTieBoundary(t *testing.T) {
	// ZREVRANGE 0 1 over {dave:3, anna:2, bob:2, carl:2} cuts the tie at carl;
	// Top then appends the whole score-2 group fetched by ZRANGEBYSCORE.
	fetched := []redis.Z{
		{Member: "dave", Score: 3},
		{Member: "anna", Score: 2},
		{Member: "bob", Score: 2},
		{Member: "carl", Score: 2},
	}

	assert.Equal(t, []models.NameCount{
		{Name: "dave", Count: 3},
		{Name: "anna", Count: 2},
	}, topNameCounts(fetched, 2))

	assert.Len(t, topNameCounts(fetched, 0), 4)
	assert.Empty(t, topNameCounts(nil, 5))
}

func TestApplyNameChanges(t *testing.T) {
	ctx := context.Background()
	stats := NewMemoryNameStats()

	require.NoError(t, ApplyNameChanges(ctx, stats, []NameChange{
		{Kind: models.NameKindReal, New: "สมชาย"},
		{Kind: models.NameKindNick, New: "หนึ่ง"},
	}))

	// Edits that normalize to the same name do not move the counts.
	require.NoError(t, ApplyNameChanges(ctx, stats, []NameChange{
		{Kind: models.NameKindNick, Old: "หนึ่ง", New: " หนึ่ง "},
	}))
	rows, err := stats.Top(ctx, models.NameKindNick, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.NameCount{{Name: "หนึ่ง", Count: 1}}, rows)

	require.NoError(t, ApplyNameChanges(ctx, stats, []NameChange{
		{Kind: models.NameKindNick, Old: "หนึ่ง", New: "ต้อม"},
	}))
	rows, err = stats.Top(ctx, models.NameKindNick, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.NameCount{{Name: "ต้อม", Count: 1}}, rows)
}

func TestRebuildNameStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	users := NewMemoryUserStore()

	require.NoError(t, users.Put(ctx, registeredRecord("U1", "สมชาย", "หนึ่ง", now)))
	require.NoError(t, users.Put(ctx, registeredRecord("U2", "สมชาย", "ต้อม", now)))

	// Half-way through registration: not counted yet.
	pending := models.NewUserRecord("U3", now)
	pending.RealName = "สมชาย"
	pending.Step = models.Collect(models.FieldNickName)
	require.NoError(t, users.Put(ctx, pending))

	stats := NewMemoryNameStats()
	n, err := RebuildNameStats(ctx, users, stats)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := stats.Top(ctx, models.NameKindReal, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.NameCount{{Name: "สมชาย", Count: 2}}, rows)

	rows, err = stats.Top(ctx, models.NameKindNick, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
