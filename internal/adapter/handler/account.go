package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/derrickappah/smm-panel-sub006/internal/adapter/storage"
)

type AccountHandler struct {
	Repo *storage.AccountRepository
}

// CreateAccountRequest defines what the user sends us
type CreateAccountRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var req CreateAccountRequest

	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Invalid account body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if !strings.Contains(req.Email, "@") {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "A valid email is required"})
	}

	account, err := h.Repo.CreateAccount(c.Context(), req.Email, req.Phone)
	if err != nil {
		slog.Error("Failed to create account", "error", err, "email", req.Email)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create account"})
	}

	slog.Info("✅ Account Created", "id", account.ID, "email", req.Email)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":      account.ID,
		"email":   account.Email,
		"phone":   account.Phone,
		"balance": account.Balance,
	})
}
