package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	paystackDefaultBaseURL = "https://api.paystack.co"

	// listPageCap bounds pagination so a misbehaving gateway cannot make
	// a sweep run forever.
	listPageCap = 20

	listPerPage = 50
)

// Paystack implements Client against the Paystack REST API. Amounts on the
// wire are in kobo (minor units); they are converted to major units here.
type Paystack struct {
	baseURL   string
	secretKey string
	http      *http.Client
	cache     *Cache
}

func NewPaystack(baseURL, secretKey string, cache *Cache) *Paystack {
	if baseURL == "" {
		baseURL = paystackDefaultBaseURL
	}
	return &Paystack{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: CallTimeout},
		cache:     cache,
	}
}

func (p *Paystack) Name() string { return "paystack" }

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		PaidAt    string `json:"paid_at"`
		Customer  struct {
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"customer"`
	} `json:"data"`
}

type paystackListResponse struct {
	Status bool `json:"status"`
	Data   []struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		PaidAt    string `json:"paid_at"`
		Customer  struct {
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"customer"`
	} `json:"data"`
	Meta struct {
		PageCount int `json:"pageCount"`
	} `json:"meta"`
}

func (p *Paystack) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	cacheKey := "paystack:verify:" + reference
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.(VerifyResult), nil
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", p.baseURL, url.PathEscape(reference))

	var body paystackVerifyResponse
	if err := p.get(ctx, "verify", endpoint, &body); err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{
		Outcome:    normalizePaystackStatus(body.Data.Status),
		Amount:     koboToMajor(body.Data.Amount),
		ExternalID: fmt.Sprintf("%d", body.Data.ID),
		RawStatus:  body.Data.Status,
	}

	p.cache.Set(cacheKey, result, VerifyTTL)
	return result, nil
}

func (p *Paystack) ListRecentSuccesses(ctx context.Context, from, to time.Time) ([]ProviderTxn, error) {
	cacheKey := fmt.Sprintf("paystack:list:%d:%d", from.Unix(), to.Unix())
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.([]ProviderTxn), nil
	}

	var txns []ProviderTxn

	for page := 1; page <= listPageCap; page++ {
		endpoint := fmt.Sprintf(
			"%s/transaction?status=success&perPage=%d&page=%d&from=%s&to=%s",
			p.baseURL,
			listPerPage,
			page,
			url.QueryEscape(from.UTC().Format(time.RFC3339)),
			url.QueryEscape(to.UTC().Format(time.RFC3339)),
		)

		var body paystackListResponse
		if err := p.get(ctx, "list", endpoint, &body); err != nil {
			return nil, err
		}

		for _, item := range body.Data {
			paidAt, err := time.Parse(time.RFC3339, item.PaidAt)
			if err != nil {
				// Skip entries with an unparseable timestamp rather
				// than failing the whole listing.
				continue
			}
			txns = append(txns, ProviderTxn{
				Reference:  item.Reference,
				Amount:     koboToMajor(item.Amount),
				PaidAt:     paidAt,
				PayerEmail: item.Customer.Email,
				PayerPhone: item.Customer.Phone,
			})
		}

		if len(body.Data) < listPerPage || (body.Meta.PageCount > 0 && page >= body.Meta.PageCount) {
			break
		}
	}

	p.cache.Set(cacheKey, txns, ListTTL)
	return txns, nil
}

// get performs one authenticated GET and decodes the body, classifying
// failures into transient and permanent.
func (p *Paystack) get(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &PermanentError{Gateway: p.Name(), Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return &TransientError{Gateway: p.Name(), Op: op, Err: err}
	}
	defer resp.Body.Close()

	if isTransientStatus(resp.StatusCode) {
		return &TransientError{
			Gateway: p.Name(),
			Op:      op,
			Err:     fmt.Errorf("gateway returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &PermanentError{
			Gateway:    p.Name(),
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gateway returned %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &PermanentError{Gateway: p.Name(), Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// normalizePaystackStatus maps Paystack's status vocabulary onto the
// shared outcome enum.
func normalizePaystackStatus(status string) Outcome {
	switch status {
	case "success":
		return OutcomeSuccess
	case "failed", "reversed":
		return OutcomeFailed
	case "abandoned":
		return OutcomeAbandoned
	default:
		// ongoing, queued, processing, pending
		return OutcomePending
	}
}

func koboToMajor(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
}

// isTransientStatus reports whether an HTTP status is worth retrying.
func isTransientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= 500
}
