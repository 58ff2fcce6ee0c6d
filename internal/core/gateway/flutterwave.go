package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const flutterwaveDefaultBaseURL = "https://api.flutterwave.com/v3"

// Flutterwave implements Client against the Flutterwave v3 REST API.
// Unlike Paystack it reports amounts in major units already.
type Flutterwave struct {
	baseURL   string
	secretKey string
	http      *http.Client
	cache     *Cache
}

func NewFlutterwave(baseURL, secretKey string, cache *Cache) *Flutterwave {
	if baseURL == "" {
		baseURL = flutterwaveDefaultBaseURL
	}
	return &Flutterwave{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: CallTimeout},
		cache:     cache,
	}
}

func (f *Flutterwave) Name() string { return "flutterwave" }

type flwVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64           `json:"id"`
		TxRef    string          `json:"tx_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Customer struct {
			Email       string `json:"email"`
			PhoneNumber string `json:"phone_number"`
		} `json:"customer"`
	} `json:"data"`
}

type flwListResponse struct {
	Status string `json:"status"`
	Data   []struct {
		TxRef     string          `json:"tx_ref"`
		Status    string          `json:"status"`
		Amount    decimal.Decimal `json:"amount"`
		CreatedAt string          `json:"created_at"`
		Customer  struct {
			Email       string `json:"email"`
			PhoneNumber string `json:"phone_number"`
		} `json:"customer"`
	} `json:"data"`
	Meta struct {
		PageInfo struct {
			TotalPages int `json:"total_pages"`
		} `json:"page_info"`
	} `json:"meta"`
}

func (f *Flutterwave) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	cacheKey := "flutterwave:verify:" + reference
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached.(VerifyResult), nil
	}

	endpoint := fmt.Sprintf(
		"%s/transactions/verify_by_reference?tx_ref=%s",
		f.baseURL,
		url.QueryEscape(reference),
	)

	var body flwVerifyResponse
	if err := f.get(ctx, "verify", endpoint, &body); err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{
		Outcome:    normalizeFlutterwaveStatus(body.Data.Status),
		Amount:     body.Data.Amount,
		ExternalID: fmt.Sprintf("%d", body.Data.ID),
		RawStatus:  body.Data.Status,
	}

	f.cache.Set(cacheKey, result, VerifyTTL)
	return result, nil
}

func (f *Flutterwave) ListRecentSuccesses(ctx context.Context, from, to time.Time) ([]ProviderTxn, error) {
	cacheKey := fmt.Sprintf("flutterwave:list:%d:%d", from.Unix(), to.Unix())
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached.([]ProviderTxn), nil
	}

	var txns []ProviderTxn

	for page := 1; page <= listPageCap; page++ {
		endpoint := fmt.Sprintf(
			"%s/transactions?status=successful&page=%d&from=%s&to=%s",
			f.baseURL,
			page,
			url.QueryEscape(from.UTC().Format("2006-01-02")),
			url.QueryEscape(to.UTC().Format("2006-01-02")),
		)

		var body flwListResponse
		if err := f.get(ctx, "list", endpoint, &body); err != nil {
			return nil, err
		}

		for _, item := range body.Data {
			if normalizeFlutterwaveStatus(item.Status) != OutcomeSuccess {
				continue
			}
			paidAt, err := time.Parse("2006-01-02T15:04:05.000Z", item.CreatedAt)
			if err != nil {
				paidAt, err = time.Parse(time.RFC3339, item.CreatedAt)
				if err != nil {
					continue
				}
			}
			txns = append(txns, ProviderTxn{
				Reference:  item.TxRef,
				Amount:     item.Amount,
				PaidAt:     paidAt,
				PayerEmail: item.Customer.Email,
				PayerPhone: item.Customer.PhoneNumber,
			})
		}

		if len(body.Data) == 0 || page >= body.Meta.PageInfo.TotalPages {
			break
		}
	}

	f.cache.Set(cacheKey, txns, ListTTL)
	return txns, nil
}

func (f *Flutterwave) get(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &PermanentError{Gateway: f.Name(), Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+f.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return &TransientError{Gateway: f.Name(), Op: op, Err: err}
	}
	defer resp.Body.Close()

	if isTransientStatus(resp.StatusCode) {
		return &TransientError{
			Gateway: f.Name(),
			Op:      op,
			Err:     fmt.Errorf("gateway returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &PermanentError{
			Gateway:    f.Name(),
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gateway returned %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &PermanentError{Gateway: f.Name(), Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// normalizeFlutterwaveStatus maps Flutterwave's status vocabulary onto the
// shared outcome enum.
func normalizeFlutterwaveStatus(status string) Outcome {
	switch strings.ToLower(status) {
	case "successful":
		return OutcomeSuccess
	case "failed", "voided", "reversed":
		return OutcomeFailed
	case "abandoned", "cancelled":
		return OutcomeAbandoned
	default:
		return OutcomePending
	}
}
