package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/emkxpress/shop/internal/events"
	"github.com/emkxpress/shop/internal/gateway"
	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/logging"
	"github.com/emkxpress/shop/internal/metrics"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/repo"
	"github.com/google/uuid"
)

// Tax is the fixed additive charge applied to every checkout, in NGN.
const Tax = 4.00

const Currency = "NGN"

type CheckoutService struct {
	Repo        *repo.GormRepo
	Gateways    map[string]gateway.Client
	Producer    *events.Producer
	RedirectURL string
}

// Initiate opens a gateway transaction for the owner's current cart. Any
// previously pending transaction for the cart is superseded, so only one
// checkout link is live at a time.
func (s *CheckoutService) Initiate(ctx context.Context, owner identity.OwnerKey, gatewayName string) (*models.Transaction, error) {
	client, ok := s.Gateways[gatewayName]
	if !ok {
		return nil, fmt.Errorf("unknown gateway %q: %w", gatewayName, ErrValidation)
	}

	cart, err := s.Repo.GetOrCreateOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.Repo.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items in cart: %w", ErrValidation)
	}

	subtotal, err := s.Repo.CartSubtotal(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	amount := subtotal + Tax

	ship, err := s.Repo.GetOrCreateShip(ctx, owner)
	if err != nil {
		return nil, err
	}
	shipping, err := s.Repo.GetSelected(ctx, ship.ID)
	if err != nil {
		return nil, err
	}
	if shipping == nil {
		return nil, fmt.Errorf("no selected shipping address: %w", ErrValidation)
	}

	txRef := uuid.NewString()
	res, err := client.Initiate(ctx, gateway.InitiateRequest{
		TxRef:         txRef,
		Amount:        amount,
		Currency:      Currency,
		CustomerEmail: shipping.Email,
		CustomerName:  shipping.Name,
		RedirectURL:   s.RedirectURL,
	})
	if err != nil {
		metrics.CheckoutsInitiated.WithLabelValues(gatewayName, "error").Inc()
		return nil, err
	}

	txn := &models.Transaction{
		CartID:   cart.ID,
		Gateway:  gatewayName,
		TxRef:    txRef,
		Link:     res.Link,
		Currency: Currency,
		Amount:   amount,
	}
	if err := s.Repo.OpenTransaction(ctx, txn, subtotal); err != nil {
		if errors.Is(err, repo.ErrCartChanged) {
			return nil, fmt.Errorf("cart changed during checkout, retry: %w", ErrValidation)
		}
		return nil, err
	}

	metrics.CheckoutsInitiated.WithLabelValues(gatewayName, "ok").Inc()
	s.publish(ctx, txn)
	return txn, nil
}

// ActiveTransaction surfaces the resumable checkout link for a cart.
func (s *CheckoutService) ActiveTransaction(ctx context.Context, owner identity.OwnerKey) (*models.Transaction, error) {
	cart, err := s.Repo.GetOrCreateOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindActive(ctx, cart.ID)
}

func (s *CheckoutService) publish(ctx context.Context, txn *models.Transaction) {
	event := map[string]any{
		"type":     "checkout_initiated",
		"gateway":  txn.Gateway,
		"tx_ref":   txn.TxRef,
		"cart_id":  txn.CartID,
		"amount":   txn.Amount,
		"currency": txn.Currency,
	}
	if err := s.Producer.Publish(ctx, events.TopicCheckout, txn.TxRef, event); err != nil {
		logging.FromContext(ctx).Error("checkout event publish failed", "error", err)
	}
}
