package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/emkxpress/shop/internal/models"
)

// Paystack deals in kobo on the wire. The conversion stays inside this
// client so the ledger stores and compares one unit for both gateways.
type Paystack struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	HTTP        *http.Client
}

func NewPaystack(secretKey, callbackURL string) *Paystack {
	return &Paystack{
		SecretKey:   secretKey,
		BaseURL:     "https://api.paystack.co",
		CallbackURL: callbackURL,
		HTTP:        newHTTPClient(),
	}
}

func (p *Paystack) Name() string { return models.GatewayPaystack }

func toKobo(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (p *Paystack) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	payload := map[string]any{
		"email":        req.CustomerEmail,
		"amount":       toKobo(req.Amount),
		"currency":     req.Currency,
		"reference":    req.TxRef,
		"callback_url": p.CallbackURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: %w", ErrUnreachable)
	}
	defer resp.Body.Close()

	var decoded struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("paystack initialize: decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !decoded.Status {
		return nil, fmt.Errorf("paystack initialize: status %d", resp.StatusCode)
	}
	return &InitiateResult{Link: decoded.Data.AuthorizationURL}, nil
}

func (p *Paystack) Verify(ctx context.Context, txRef, transactionID string) (*VerifyResult, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", p.BaseURL, txRef)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.SecretKey)

	resp, err := p.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystack verify: %w", ErrUnreachable)
	}
	defer resp.Body.Close()

	// Same brown-out rule as the Flutterwave client: 5xx and garbled bodies
	// are retryable, a 4xx verdict is final.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("paystack verify: status %d: %w", resp.StatusCode, ErrUnreachable)
	}

	var decoded struct {
		Status bool `json:"status"`
		Data   struct {
			ID       json.Number `json:"id"`
			Status   string      `json:"status"`
			Amount   int64       `json:"amount"`
			Currency string      `json:"currency"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("paystack verify: decode: %w", ErrUnreachable)
	}
	if !decoded.Status {
		return nil, fmt.Errorf("paystack verify: gateway could not verify %s", txRef)
	}

	status := decoded.Data.Status
	if status == "success" {
		status = StatusSuccessful
	}
	return &VerifyResult{
		Status:        status,
		Amount:        float64(decoded.Data.Amount) / 100,
		Currency:      decoded.Data.Currency,
		TransactionID: decoded.Data.ID.String(),
	}, nil
}
