package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2)
	limiter.now = func() time.Time { return now }

	require.NoError(t, limiter.Wait(context.Background()))
	require.NoError(t, limiter.Wait(context.Background()))

	// The window is full: a third call has to wait, so a cancelled context
	// returns immediately with its error.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)

	// Once the first calls leave the window there is room again.
	now = now.Add(2 * time.Minute)
	require.NoError(t, limiter.Wait(context.Background()))
}
