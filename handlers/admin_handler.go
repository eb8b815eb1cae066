package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"line-register-bot/models"
)

// RegisterAdminRoutes mounts the admin API on router. Authentication is the
// caller's job
func RegisterAdminRoutes(router fiber.Router, a *Admin) {
	router.Get("/stats", a.GetStats)
	router.Get("/users", a.GetUsers)
	router.Get("/users/:userID", a.GetUser)
	router.Delete("/users/:userID", a.DeleteUser)
	router.Get("/names/:kind", a.GetTopNames)
	router.Get("/reports", a.GetReports)
}

// GetStats returns the user overview
func (a *Admin) GetStats(c *fiber.Ctx) error {
	o, err := a.Overview(c.UserContext(), c.QueryInt("top", 5))
	if err != nil {
		slog.Error("Failed to build overview", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read statistics",
		})
	}
	return c.JSON(o)
}

// GetUsers lists all user records
func (a *Admin) GetUsers(c *fiber.Ctx) error {
	users, err := a.users.List(c.UserContext())
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list users",
		})
	}
	if users == nil {
		users = []*models.UserRecord{}
	}
	return c.JSON(fiber.Map{
		"users": users,
		"total": len(users),
	})
}

// GetUser returns one user record
func (a *Admin) GetUser(c *fiber.Ctx) error {
	userID := c.Params("userID")
	rec, err := a.users.Get(c.UserContext(), userID)
	if err != nil {
		slog.Error("Failed to get user", "userID", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get user",
		})
	}
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	return c.JSON(rec)
}

// DeleteUser wipes a user record
func (a *Admin) DeleteUser(c *fiber.Ctx) error {
	userID := c.Params("userID")
	ok, err := a.ResetUser(c.UserContext(), userID)
	if err != nil {
		slog.Error("Failed to delete user", "userID", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete user",
		})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user_id": userID,
	})
}

// GetTopNames returns one frequency table, kind is "real" or "nick"
func (a *Admin) GetTopNames(c *fiber.Ctx) error {
	kind := models.NameKind(c.Params("kind"))
	if kind != models.NameKindReal && kind != models.NameKindNick {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "kind must be real or nick",
		})
	}
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid limit",
		})
	}
	names, err := a.stats.Top(c.UserContext(), kind, limit)
	if err != nil {
		slog.Error("Failed to read name statistics", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read statistics",
		})
	}
	if names == nil {
		names = []models.NameCount{}
	}
	return c.JSON(fiber.Map{
		"kind":  kind,
		"names": names,
	})
}

// GetReports lists issue reports, newest first
func (a *Admin) GetReports(c *fiber.Ctx) error {
	reports, err := a.reports.ListReports(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		slog.Error("Failed to list reports", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list reports",
		})
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   len(reports),
	})
}
