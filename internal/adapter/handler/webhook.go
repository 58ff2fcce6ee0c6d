package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub006/internal/core/reconcile"
)

// WebhookHandler receives gateway callbacks. Gateways retry aggressively
// on anything but a 2xx, so this handler acknowledges every request and
// keeps internal failures in the logs.
type WebhookHandler struct {
	Store   domain.TransactionStore
	Sweeper *reconcile.Sweeper
}

// webhookBody covers the payload shapes both gateways send. Paystack puts
// the reference under data.reference, Flutterwave under data.tx_ref.
type webhookBody struct {
	Event     string `json:"event"`
	Reference string `json:"reference"`
	TxRef     string `json:"tx_ref"`
	Data      struct {
		Reference string `json:"reference"`
		TxRef     string `json:"tx_ref"`
	} `json:"data"`
}

// HandleCallback processes POST /v1/payments/webhook/:gateway.
func (h *WebhookHandler) HandleCallback(c *fiber.Ctx) error {
	gw := c.Params("gateway")
	reference := extractReference(c)

	if reference == "" {
		slog.Warn("Webhook without a reference", "gateway", gw)
		return c.JSON(fiber.Map{"status": "ok"})
	}

	txn, err := h.Store.GetTransactionByReference(c.Context(), gw, reference)
	if err != nil {
		// Possibly a deposit we have not linked yet; the sweep's
		// matching pass will pick it up.
		slog.Warn("Webhook for unknown reference",
			"gateway", gw, "reference", reference, "error", err)
		return c.JSON(fiber.Map{"status": "ok"})
	}

	result, err := h.Sweeper.VerifyOne(c.Context(), txn)
	if err != nil {
		slog.Error("Webhook verification failed",
			"gateway", gw,
			"reference", reference,
			"transaction_id", txn.ID,
			"error", err,
		)
		return c.JSON(fiber.Map{"status": "ok"})
	}

	slog.Info("Webhook processed",
		"gateway", gw,
		"reference", reference,
		"transaction_id", txn.ID,
		"status", result.Status,
		"credited", result.Credited,
	)
	return c.JSON(fiber.Map{"status": "ok"})
}

// extractReference pulls the gateway correlation id from the query string
// or the JSON body, tolerating both gateways' field names.
func extractReference(c *fiber.Ctx) string {
	for _, key := range []string{"reference", "trxref", "tx_ref"} {
		if v := c.Query(key); v != "" {
			return v
		}
	}

	var body webhookBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return ""
	}
	for _, v := range []string{body.Reference, body.TxRef, body.Data.Reference, body.Data.TxRef} {
		if v != "" {
			return v
		}
	}
	return ""
}
