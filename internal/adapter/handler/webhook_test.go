package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub006/internal/core/approval"
	"github.com/derrickappah/smm-panel-sub006/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub006/internal/core/gateway"
	"github.com/derrickappah/smm-panel-sub006/internal/core/ledger"
	"github.com/derrickappah/smm-panel-sub006/internal/core/reconcile"
)

type mockStore struct {
	txns map[uuid.UUID]domain.Transaction
}

func newMockStore(txns ...domain.Transaction) *mockStore {
	m := &mockStore{txns: make(map[uuid.UUID]domain.Transaction)}
	for _, txn := range txns {
		m.txns[txn.ID] = txn
	}
	return m
}

func (m *mockStore) GetTransaction(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	txn, ok := m.txns[id]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return txn, nil
}

func (m *mockStore) GetTransactionByReference(ctx context.Context, gw, reference string) (domain.Transaction, error) {
	for _, txn := range m.txns {
		if txn.Gateway == gw && txn.Reference == reference {
			return txn, nil
		}
	}
	return domain.Transaction{}, domain.ErrNotFound
}

func (m *mockStore) ListPendingDeposits(ctx context.Context, since time.Time, limit int) ([]domain.Transaction, error) {
	return nil, nil
}

func (m *mockStore) SetReference(ctx context.Context, id uuid.UUID, reference string) error {
	txn, ok := m.txns[id]
	if !ok || txn.Status != domain.StatusPending {
		return domain.ErrAlreadyTerminal
	}
	txn.Reference = reference
	m.txns[id] = txn
	return nil
}

func (m *mockStore) MarkTerminal(ctx context.Context, id uuid.UUID, to domain.TransactionStatus, gatewayStatus string) error {
	txn, ok := m.txns[id]
	if !ok || txn.Status != domain.StatusPending {
		return domain.ErrAlreadyTerminal
	}
	txn.Status = to
	txn.GatewayStatus = gatewayStatus
	m.txns[id] = txn
	return nil
}

type mockAccounts struct {
	accounts map[uuid.UUID]domain.Account
}

func newMockAccounts(accounts ...domain.Account) *mockAccounts {
	m := &mockAccounts{accounts: make(map[uuid.UUID]domain.Account)}
	for _, acc := range accounts {
		m.accounts[acc.ID] = acc
	}
	return m
}

func (m *mockAccounts) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return acc, nil
}

func (m *mockAccounts) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return acc.Balance, nil
}

func (m *mockAccounts) SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	acc.Balance = balance
	m.accounts[id] = acc
	return nil
}

type fakeGateway struct {
	name    string
	results map[string]gateway.VerifyResult
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) Verify(ctx context.Context, reference string) (gateway.VerifyResult, error) {
	if result, ok := f.results[reference]; ok {
		return result, nil
	}
	return gateway.VerifyResult{}, &gateway.PermanentError{
		Gateway: f.name, Op: "verify", StatusCode: 404, Err: errors.New("unknown reference"),
	}
}

func (f *fakeGateway) ListRecentSuccesses(ctx context.Context, from, to time.Time) ([]gateway.ProviderTxn, error) {
	return nil, nil
}

func newTestSweeper(store *mockStore, accounts *mockAccounts, gw *fakeGateway) *reconcile.Sweeper {
	machine := approval.New(store, ledger.New(accounts))
	return reconcile.NewSweeper(store, accounts, map[string]gateway.Client{gw.name: gw}, machine)
}

func pendingDeposit(userID uuid.UUID, amount float64, reference string) domain.Transaction {
	return domain.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    decimal.NewFromFloat(amount),
		Kind:      domain.KindDeposit,
		Status:    domain.StatusPending,
		Gateway:   "paystack",
		Reference: reference,
		CreatedAt: time.Now().Add(-10 * time.Minute),
	}
}

func TestHandleCallback_SuccessApprovesDeposit(t *testing.T) {
	acc := domain.Account{ID: uuid.New(), Email: "user@example.com", Balance: decimal.Zero}
	txn := pendingDeposit(acc.ID, 50.00, "PS-1")
	store := newMockStore(txn)
	accounts := newMockAccounts(acc)
	gw := &fakeGateway{
		name: "paystack",
		results: map[string]gateway.VerifyResult{
			"PS-1": {Outcome: gateway.OutcomeSuccess, Amount: decimal.NewFromFloat(50.00), RawStatus: "success"},
		},
	}
	h := &WebhookHandler{Store: store, Sweeper: newTestSweeper(store, accounts, gw)}

	app := fiber.New()
	app.Post("/v1/payments/webhook/:gateway", h.HandleCallback)

	req := httptest.NewRequest("POST", "/v1/payments/webhook/paystack?reference=PS-1", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if store.txns[txn.ID].Status != domain.StatusApproved {
		t.Errorf("Expected approved, got %s", store.txns[txn.ID].Status)
	}
	balance, _ := accounts.GetBalance(context.Background(), acc.ID)
	if !balance.Equal(decimal.NewFromFloat(50.00)) {
		t.Errorf("Expected balance 50.00, got %s", balance)
	}
}

func TestHandleCallback_ReferenceFromBody(t *testing.T) {
	acc := domain.Account{ID: uuid.New(), Balance: decimal.Zero}
	txn := pendingDeposit(acc.ID, 20.00, "FLW-9")
	txn.Gateway = "flutterwave"
	store := newMockStore(txn)
	gw := &fakeGateway{
		name: "flutterwave",
		results: map[string]gateway.VerifyResult{
			"FLW-9": {Outcome: gateway.OutcomeFailed, RawStatus: "failed"},
		},
	}
	h := &WebhookHandler{Store: store, Sweeper: newTestSweeper(store, newMockAccounts(acc), gw)}

	app := fiber.New()
	app.Post("/v1/payments/webhook/:gateway", h.HandleCallback)

	body := strings.NewReader(`{"event":"charge.completed","data":{"tx_ref":"FLW-9"}}`)
	req := httptest.NewRequest("POST", "/v1/payments/webhook/flutterwave", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if store.txns[txn.ID].Status != domain.StatusRejected {
		t.Errorf("Expected rejected, got %s", store.txns[txn.ID].Status)
	}
}

func TestHandleCallback_UnknownReferenceStillAcknowledged(t *testing.T) {
	store := newMockStore()
	gw := &fakeGateway{name: "paystack"}
	h := &WebhookHandler{Store: store, Sweeper: newTestSweeper(store, newMockAccounts(), gw)}

	app := fiber.New()
	app.Post("/v1/payments/webhook/:gateway", h.HandleCallback)

	req := httptest.NewRequest("POST", "/v1/payments/webhook/paystack?reference=NOPE", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200 for unknown reference, got %d", resp.StatusCode)
	}
	payload, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(payload), `"ok"`) {
		t.Errorf("Expected an ok acknowledgement, got %s", payload)
	}
}

func TestHandleCallback_MissingReferenceAcknowledged(t *testing.T) {
	store := newMockStore()
	gw := &fakeGateway{name: "paystack"}
	h := &WebhookHandler{Store: store, Sweeper: newTestSweeper(store, newMockAccounts(), gw)}

	app := fiber.New()
	app.Post("/v1/payments/webhook/:gateway", h.HandleCallback)

	req := httptest.NewRequest("POST", "/v1/payments/webhook/paystack", strings.NewReader("not json"))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200 for missing reference, got %d", resp.StatusCode)
	}
}
