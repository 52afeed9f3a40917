// Package gateway holds the payment-gateway collaborators. Both clients
// normalize their wire payloads into the fixed shapes below before anything
// reaches the reconciliation core; gateway-specific fields are dropped here.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrUnreachable marks network or timeout failures talking to a gateway.
// Reconciliation treats these as retryable and changes no state.
var ErrUnreachable = errors.New("gateway unreachable")

// StatusSuccessful is the normalized verified-success status.
const StatusSuccessful = "successful"

type InitiateRequest struct {
	TxRef         string
	Amount        float64
	Currency      string
	CustomerEmail string
	CustomerName  string
	RedirectURL   string
}

type InitiateResult struct {
	Link string
}

// VerifyResult is the authoritative record of a transaction as the gateway
// sees it. Amount is always in whole currency units.
type VerifyResult struct {
	Status        string
	Amount        float64
	Currency      string
	TransactionID string
}

type Client interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	// Verify corroborates a confirmation against the gateway's own record.
	// Flutterwave verifies by the gateway transaction id, Paystack by our
	// reference; each client picks the one it needs.
	Verify(ctx context.Context, txRef, transactionID string) (*VerifyResult, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
