package services

import (
	"context"
	"log/slog"
	"time"

	"line-register-bot/models"
)

// staleRecord reports whether rec belongs to someone who started the
// registration and never came back. Registered or blocked users are kept
func staleRecord(rec *models.UserRecord, now time.Time, maxAge time.Duration) bool {
	if rec.IsRegistered() || rec.Step.Mode != models.ModeCollecting {
		return false
	}
	if until := rec.Moderation.BlockedUntil; until != nil && now.Before(*until) {
		return false
	}
	return now.Sub(rec.LastActive) > maxAge
}

// CleanupStaleRecords deletes unfinished registrations idle for longer than
// maxAge. Each candidate is re-read under its user lock so a message that
// arrives meanwhile wins
func CleanupStaleRecords(ctx context.Context, users UserStore, locks *KeyedMutex, now time.Time, maxAge time.Duration) (int, error) {
	recs, err := users.List(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, rec := range recs {
		if !staleRecord(rec, now, maxAge) {
			continue
		}
		removed, err := removeIfStale(ctx, users, locks, rec.UserID, now, maxAge)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func removeIfStale(ctx context.Context, users UserStore, locks *KeyedMutex, userID string, now time.Time, maxAge time.Duration) (bool, error) {
	unlock := locks.Lock(userID)
	defer unlock()

	rec, err := users.Get(ctx, userID)
	if err != nil || rec == nil || !staleRecord(rec, now, maxAge) {
		return false, err
	}
	if err := users.Delete(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// StartSessionCleanup starts a background goroutine that periodically drops
// abandoned registrations. It stops when ctx is done
func StartSessionCleanup(ctx context.Context, users UserStore, locks *KeyedMutex, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Session cleanup stopped")
				return
			case <-ticker.C:
				cleanupCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
				count, err := CleanupStaleRecords(cleanupCtx, users, locks, time.Now(), maxAge)
				if err != nil {
					slog.Error("Failed to cleanup stale records", "error", err)
				} else if count > 0 {
					slog.Info("Cleaned up stale records", "count", count)
				}
				cancel()
			}
		}
	}()

	slog.Info("Session cleanup started", "interval", interval, "maxAge", maxAge)
}
