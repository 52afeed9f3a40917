package httpserver

import (
	"net/http"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/logging"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/service"
	"github.com/labstack/echo/v4"
)

type CheckoutHTTP struct {
	Checkout *service.CheckoutService
	Engine   *service.ReconcileService
	Resolver *identity.Resolver

	// FlutterHashSecret authenticates webhook deliveries via the verif-hash
	// header before anything reaches the reconciliation core.
	FlutterHashSecret string
}

func (h *CheckoutHTTP) initiate(c echo.Context, gatewayName string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout."+gatewayName)

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	owner, err := h.Resolver.Resolve(c, req.SessionID)
	if err != nil {
		return errorResponse(c, err)
	}

	txn, err := h.Checkout.Initiate(ctx, owner, gatewayName)
	if err != nil {
		l.Error("checkout_initiate_error", "error", err)
		return errorResponse(c, err)
	}

	l.Info("checkout initiated", "tx_ref", txn.TxRef, "amount", txn.Amount)
	return c.JSON(http.StatusOK, echo.Map{
		"tx_ref": txn.TxRef,
		"link":   txn.Link,
		"amount": txn.Amount,
	})
}

func (h *CheckoutHTTP) InitiateFlutterwave(c echo.Context) error {
	return h.initiate(c, models.GatewayFlutterwave)
}

func (h *CheckoutHTTP) InitiatePaystack(c echo.Context) error {
	return h.initiate(c, models.GatewayPaystack)
}

func outcomeStatus(o service.Outcome) int {
	switch o.Class {
	case service.OutcomeSuccess:
		return http.StatusOK
	case service.OutcomeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// FlutterwaveCallback handles the user-redirect confirmation. It is an
// untrusted input: the engine re-verifies with the gateway before any state
// changes.
func (h *CheckoutHTTP) FlutterwaveCallback(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		TxRef         string `json:"tx_ref"`
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if req.TxRef == "" || req.TransactionID == "" || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Missing required fields"})
	}
	if req.Status != "completed" && req.Status != "successful" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Payment not completed"})
	}

	outcome := h.Engine.Reconcile(ctx, models.GatewayFlutterwave, req.TxRef, req.TransactionID)
	return c.JSON(outcomeStatus(outcome), echo.Map{"message": outcome.Message})
}

// FlutterwaveWebhook handles server-pushed confirmations. Retryable outcomes
// return 500 so the gateway redelivers; everything else acknowledges with 200.
func (h *CheckoutHTTP) FlutterwaveWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "webhook.flutterwave")

	if c.Request().Header.Get("verif-hash") != h.FlutterHashSecret {
		l.Warn("webhook signature mismatch")
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	var req struct {
		TxRef         string `json:"txRef"`
		TransactionID string `json:"id"`
		Status        string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	if req.Status != "successful" {
		return c.JSON(http.StatusOK, echo.Map{"message": "Webhook received"})
	}

	outcome := h.Engine.Reconcile(ctx, models.GatewayFlutterwave, req.TxRef, req.TransactionID)
	if outcome.Class == service.OutcomeRetryable {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": outcome.Message})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": outcome.Message})
}

// PaystackVerify handles the storefront's verify-by-reference call after the
// Paystack redirect.
func (h *CheckoutHTTP) PaystackVerify(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Reference string `json:"reference"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if req.Reference == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "reference is required"})
	}

	outcome := h.Engine.Reconcile(ctx, models.GatewayPaystack, req.Reference, "")
	return c.JSON(outcomeStatus(outcome), echo.Map{"message": outcome.Message})
}
