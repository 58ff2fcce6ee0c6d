package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub006/internal/adapter/storage"
	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
)

// DepositStore is the slice of the transaction repository the deposit
// endpoints use.
type DepositStore interface {
	CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, gateway, reference string) (domain.Transaction, error)
	ListDeposits(ctx context.Context, limit int) ([]domain.Transaction, error)
	GetStats(ctx context.Context) (storage.Stats, error)
}

type DepositHandler struct {
	Store    DepositStore
	Accounts domain.AccountStore
	Gateways map[string]struct{}
}

type createDepositRequest struct {
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Gateway   string          `json:"gateway"`
	Reference string          `json:"reference"`
}

type depositResponse struct {
	ID            uuid.UUID                `json:"id"`
	UserID        uuid.UUID                `json:"user_id"`
	Amount        decimal.Decimal          `json:"amount"`
	Status        domain.TransactionStatus `json:"status"`
	Gateway       string                   `json:"gateway"`
	Reference     string                   `json:"reference,omitempty"`
	GatewayStatus string                   `json:"gateway_status,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// CreateDeposit processes POST /v1/deposits. The deposit starts pending;
// the webhook or the sweep moves it on from there.
func (h *DepositHandler) CreateDeposit(c *fiber.Ctx) error {
	var req createDepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if !domain.ValidDepositAmount(req.Amount) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}
	if _, ok := h.Gateways[req.Gateway]; !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown gateway"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user_id"})
	}
	if _, err := h.Accounts.GetAccount(c.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not check account"})
	}

	txn, err := h.Store.CreateDeposit(c.Context(), userID, req.Amount, req.Gateway, req.Reference)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create deposit"})
	}

	return c.Status(fiber.StatusCreated).JSON(toDepositResponse(txn))
}

// ListDeposits processes GET /v1/deposits (operator view, newest first).
func (h *DepositHandler) ListDeposits(c *fiber.Ctx) error {
	deposits, err := h.Store.ListDeposits(c.Context(), 100)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch deposits"})
	}

	out := make([]depositResponse, 0, len(deposits))
	for _, txn := range deposits {
		out = append(out, toDepositResponse(txn))
	}
	return c.JSON(fiber.Map{"deposits": out})
}

// GetBalance processes GET /v1/accounts/:id/balance.
func (h *DepositHandler) GetBalance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid account ID"})
	}

	account, err := h.Accounts.GetAccount(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch balance"})
	}

	return c.JSON(fiber.Map{"balance": account.Balance})
}

// GetStats processes GET /v1/stats.
func (h *DepositHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.Store.GetStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch stats"})
	}
	return c.JSON(stats)
}

func toDepositResponse(txn domain.Transaction) depositResponse {
	return depositResponse{
		ID:            txn.ID,
		UserID:        txn.UserID,
		Amount:        txn.Amount,
		Status:        txn.Status,
		Gateway:       txn.Gateway,
		Reference:     txn.Reference,
		GatewayStatus: txn.GatewayStatus,
		CreatedAt:     txn.CreatedAt,
	}
}
