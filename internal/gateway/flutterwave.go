package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/emkxpress/shop/internal/models"
)

type Flutterwave struct {
	SecretKey string
	BaseURL   string
	HTTP      *http.Client
}

func NewFlutterwave(secretKey string) *Flutterwave {
	return &Flutterwave{
		SecretKey: secretKey,
		BaseURL:   "https://api.flutterwave.com/v3",
		HTTP:      newHTTPClient(),
	}
}

func (f *Flutterwave) Name() string { return models.GatewayFlutterwave }

func (f *Flutterwave) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	payload := map[string]any{
		"tx_ref":       req.TxRef,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"redirect_url": req.RedirectURL,
		"customer": map[string]string{
			"email": req.CustomerEmail,
			"name":  req.CustomerName,
		},
		"customizations": map[string]string{
			"title": "EMK-Xpress",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+f.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("flutterwave initiate: %w", ErrUnreachable)
	}
	defer resp.Body.Close()

	var decoded struct {
		Status string `json:"status"`
		Data   struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("flutterwave initiate: decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("flutterwave initiate: status %d", resp.StatusCode)
	}
	if decoded.Data.Link == "" {
		return nil, fmt.Errorf("flutterwave initiate: no checkout link in response")
	}
	return &InitiateResult{Link: decoded.Data.Link}, nil
}

func (f *Flutterwave) Verify(ctx context.Context, txRef, transactionID string) (*VerifyResult, error) {
	url := fmt.Sprintf("%s/transactions/%s/verify", f.BaseURL, transactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+f.SecretKey)

	resp, err := f.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("flutterwave verify: %w", ErrUnreachable)
	}
	defer resp.Body.Close()

	// 5xx and garbled bodies are brown-outs, not verdicts; retryable so the
	// gateway redelivers. A 4xx is the gateway's answer and stays final.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("flutterwave verify: status %d: %w", resp.StatusCode, ErrUnreachable)
	}

	var decoded struct {
		Status string `json:"status"`
		Data   struct {
			ID       json.Number `json:"id"`
			Status   string      `json:"status"`
			Amount   float64     `json:"amount"`
			Currency string      `json:"currency"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("flutterwave verify: decode: %w", ErrUnreachable)
	}
	if decoded.Status != "success" {
		return nil, fmt.Errorf("flutterwave verify: envelope status %q", decoded.Status)
	}

	return &VerifyResult{
		Status:        decoded.Data.Status,
		Amount:        decoded.Data.Amount,
		Currency:      decoded.Data.Currency,
		TransactionID: decoded.Data.ID.String(),
	}, nil
}
