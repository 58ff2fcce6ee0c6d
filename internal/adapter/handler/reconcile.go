package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub006/internal/core/reconcile"
)

// ReconcileHandler exposes the operator-facing verification surface: the
// manual single-transaction verify and the sweep trigger. Both sit behind
// the shared-secret middleware.
type ReconcileHandler struct {
	Store   domain.TransactionStore
	Sweeper *reconcile.Sweeper
}

type verifyRequest struct {
	TransactionID string `json:"transaction_id"`
	Gateway       string `json:"gateway"`
	Reference     string `json:"reference"`
}

// VerifyTransaction processes POST /v1/reconcile/verify. The deposit can
// be addressed by internal id or by gateway reference.
func (h *ReconcileHandler) VerifyTransaction(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	txn, err := h.findTransaction(c, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.Sweeper.VerifyOne(c.Context(), txn)

	resp := fiber.Map{
		"transaction_id": txn.ID,
		"status":         result.Status,
		"credited":       result.Credited,
	}
	if result.PartialFailure {
		// Surfaced distinctly: the operator must reconcile by hand.
		resp["partial_failure"] = true
		resp["detail"] = err.Error()
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	}
	if err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			resp["conflict"] = true
			return c.Status(fiber.StatusConflict).JSON(resp)
		}
		resp["error"] = err.Error()
		return c.Status(fiber.StatusBadGateway).JSON(resp)
	}

	return c.JSON(resp)
}

// RunSweep processes POST /v1/reconcile/sweep?hours=48.
func (h *ReconcileHandler) RunSweep(c *fiber.Ctx) error {
	lookback := reconcile.DefaultLookback
	if raw := c.Query("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid hours"})
		}
		lookback = time.Duration(hours) * time.Hour
	}

	report, err := h.Sweeper.Sweep(c.Context(), lookback)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(report)
}

func (h *ReconcileHandler) findTransaction(c *fiber.Ctx, req verifyRequest) (domain.Transaction, error) {
	if req.TransactionID != "" {
		id, err := uuid.Parse(req.TransactionID)
		if err != nil {
			return domain.Transaction{}, errors.New("invalid transaction_id")
		}
		return h.Store.GetTransaction(c.Context(), id)
	}
	if req.Reference != "" {
		if req.Gateway == "" {
			return domain.Transaction{}, errors.New("gateway is required with reference")
		}
		return h.Store.GetTransactionByReference(c.Context(), req.Gateway, req.Reference)
	}
	return domain.Transaction{}, errors.New("transaction_id or reference is required")
}
