package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"line-register-bot/models"
	"line-register-bot/services"
)

// ProfileFetcher looks up a user's LINE display name
type ProfileFetcher interface {
	GetProfile(ctx context.Context, userID string) (*services.LineProfile, error)
}

// Admin holds the operations shared by the chat admin commands and the admin
// HTTP API
type Admin struct {
	users    services.UserStore
	reports  services.ReportStore
	stats    services.NameStats
	locks    *services.KeyedMutex
	profiles ProfileFetcher
	now      func() time.Time
}

// NewAdmin creates the admin operations. profiles may be nil
func NewAdmin(users services.UserStore, reports services.ReportStore, stats services.NameStats, locks *services.KeyedMutex, profiles ProfileFetcher) *Admin {
	return &Admin{users: users, reports: reports, stats: stats, locks: locks, profiles: profiles, now: time.Now}
}

// Overview is the aggregate shown by "/admin stats" and GET /api/admin/stats
type Overview struct {
	TotalUsers      int                `json:"total_users"`
	RegisteredUsers int                `json:"registered_users"`
	InProgressUsers int                `json:"in_progress_users"`
	BlockedUsers    int                `json:"blocked_users"`
	Reports         int                `json:"reports"`
	TopRealNames    []models.NameCount `json:"top_real_names"`
	TopNickNames    []models.NameCount `json:"top_nick_names"`
}

// Overview counts users by state and reads the top names
func (a *Admin) Overview(ctx context.Context, topN int) (*Overview, error) {
	users, err := a.users.List(ctx)
	if err != nil {
		return nil, err
	}
	now := a.now()
	o := &Overview{TotalUsers: len(users)}
	for _, u := range users {
		if u.IsRegistered() {
			o.RegisteredUsers++
		}
		if u.Step.Mode == models.ModeCollecting {
			o.InProgressUsers++
		}
		if u.Moderation.BlockedUntil != nil && now.Before(*u.Moderation.BlockedUntil) {
			o.BlockedUsers++
		}
	}

	reports, err := a.reports.ListReports(ctx, 0)
	if err != nil {
		return nil, err
	}
	o.Reports = len(reports)

	if o.TopRealNames, err = a.stats.Top(ctx, models.NameKindReal, topN); err != nil {
		return nil, err
	}
	if o.TopNickNames, err = a.stats.Top(ctx, models.NameKindNick, topN); err != nil {
		return nil, err
	}
	return o, nil
}

// ResetUser deletes the user's record and takes their names out of the
// statistics. It reports false when the user did not exist
func (a *Admin) ResetUser(ctx context.Context, userID string) (bool, error) {
	unlock := a.locks.Lock(userID)
	defer unlock()

	rec, err := a.users.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if err := a.users.Delete(ctx, userID); err != nil {
		return false, err
	}
	if rec.IsRegistered() {
		if err := services.ApplyNameChanges(ctx, a.stats, services.RemovalChanges(rec)); err != nil {
			slog.Error("Failed to update name statistics", "userID", userID, "error", err)
		}
	}
	slog.Info("User reset by admin", "userID", userID)
	return true, nil
}

const adminPrefix = "/admin"

// IsAdminCommand reports whether text is addressed to the admin commands
func IsAdminCommand(text string) bool {
	text = strings.TrimSpace(text)
	return text == adminPrefix || strings.HasPrefix(text, adminPrefix+" ")
}

const msgAdminOnly = "⛔ คำสั่งนี้สำหรับผู้ดูแลระบบเท่านั้น"

const adminHelp = `คำสั่งผู้ดูแล
/admin stats - สรุปจำนวนผู้ใช้
/admin users - รายชื่อผู้ใช้ล่าสุด
/admin view <userId> - ดูข้อมูลผู้ใช้
/admin reset <userId> - ลบข้อมูลผู้ใช้`

// HandleCommand runs one "/admin ..." chat command and returns the reply
func (a *Admin) HandleCommand(ctx context.Context, text string) string {
	args := strings.Fields(strings.TrimSpace(text))[1:]
	if len(args) == 0 {
		return adminHelp
	}

	switch strings.ToLower(args[0]) {
	case "stats":
		o, err := a.Overview(ctx, 3)
		if err != nil {
			slog.Error("Admin stats failed", "error", err)
			return services.MsgStoreUnavailable
		}
		return fmt.Sprintf("📊 ผู้ใช้ทั้งหมด %d\nลงทะเบียนแล้ว %d\nกำลังลงทะเบียน %d\nถูกระงับ %d\nเรื่องแจ้งปัญหา %d\n\n%s",
			o.TotalUsers, o.RegisteredUsers, o.InProgressUsers, o.BlockedUsers, o.Reports,
			services.FormatTopNames(o.TopRealNames, o.TopNickNames))

	case "users":
		users, err := a.users.List(ctx)
		if err != nil {
			slog.Error("Admin users failed", "error", err)
			return services.MsgStoreUnavailable
		}
		if len(users) == 0 {
			return "ยังไม่มีผู้ใช้ครับ"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "👥 ผู้ใช้ %d คน", len(users))
		for i, u := range users {
			if i == 20 {
				fmt.Fprintf(&b, "\n... และอีก %d คน", len(users)-i)
				break
			}
			fmt.Fprintf(&b, "\n%s %s (%s)", u.UserID, orDashName(u), u.Step)
		}
		return b.String()

	case "view":
		if len(args) < 2 {
			return "รูปแบบ: /admin view <userId>"
		}
		rec, err := a.users.Get(ctx, args[1])
		if err != nil {
			slog.Error("Admin view failed", "error", err)
			return services.MsgStoreUnavailable
		}
		if rec == nil {
			return "ไม่พบผู้ใช้ " + args[1]
		}
		var b strings.Builder
		b.WriteString(services.ProfileSummary(rec))
		fmt.Fprintf(&b, "\nstep: %s\nbad count: %d", rec.Step, rec.Moderation.BadCount)
		if until := rec.Moderation.BlockedUntil; until != nil && a.now().Before(*until) {
			fmt.Fprintf(&b, "\nblocked until: %s", until.Format(time.RFC3339))
		}
		if a.profiles != nil {
			if p, err := a.profiles.GetProfile(ctx, rec.UserID); err == nil {
				fmt.Fprintf(&b, "\nLINE: %s", p.DisplayName)
			} else {
				slog.Warn("Failed to fetch LINE profile", "userID", rec.UserID, "error", err)
			}
		}
		return b.String()

	case "reset":
		if len(args) < 2 {
			return "รูปแบบ: /admin reset <userId>"
		}
		ok, err := a.ResetUser(ctx, args[1])
		if err != nil {
			slog.Error("Admin reset failed", "error", err)
			return services.MsgStoreUnavailable
		}
		if !ok {
			return "ไม่พบผู้ใช้ " + args[1]
		}
		return "ลบข้อมูลผู้ใช้ " + args[1] + " เรียบร้อย"
	}
	return adminHelp
}

func orDashName(u *models.UserRecord) string {
	if u.NickName != "" {
		return u.NickName
	}
	if u.RealName != "" {
		return u.RealName
	}
	return "-"
}
