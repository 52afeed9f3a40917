package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/emkxpress/shop/internal/events"
	"github.com/emkxpress/shop/internal/gateway"
	"github.com/emkxpress/shop/internal/logging"
	"github.com/emkxpress/shop/internal/metrics"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/repo"
	"gorm.io/gorm"
)

type OutcomeClass string

const (
	OutcomeSuccess   OutcomeClass = "success"
	OutcomeRetryable OutcomeClass = "retryable"
	OutcomePermanent OutcomeClass = "permanent"
)

type Outcome struct {
	Class   OutcomeClass `json:"class"`
	Message string       `json:"message"`
}

func success(msg string) Outcome   { return Outcome{Class: OutcomeSuccess, Message: msg} }
func retryable(msg string) Outcome { return Outcome{Class: OutcomeRetryable, Message: msg} }
func permanent(msg string) Outcome { return Outcome{Class: OutcomePermanent, Message: msg} }

// errNoSelectedShipping aborts the atomic unit so the transaction row stays
// pending: support can fix the profile and the gateway retrier redelivers.
var errNoSelectedShipping = errors.New("no selected shipping address")

// ReconcileService corroborates gateway confirmations and applies their
// effects exactly once. Both the redirect callback and the webhook funnel
// into Reconcile; neither input is trusted until the gateway's own
// verification endpoint confirms it.
type ReconcileService struct {
	Repo     *repo.GormRepo
	Gateways map[string]gateway.Client
	Orders   *OrderService
	Producer *events.Producer

	// refLocks serializes reconciliation per tx_ref. Unrelated transactions
	// never block each other, and an entry is dropped when its last holder
	// releases it.
	refLocks repo.KeyLock[string]
}

// Reconcile verifies a confirmation for txRef against the gateway and, on
// success, completes the transaction, marks the cart paid and materializes
// the order as one atomic unit. Duplicate and concurrent confirmations for
// the same txRef collapse into the first result.
func (s *ReconcileService) Reconcile(ctx context.Context, gatewayName, txRef, transactionID string) Outcome {
	l := logging.FromContext(ctx).With("gateway", gatewayName, "tx_ref", txRef)

	client, ok := s.Gateways[gatewayName]
	if !ok {
		return s.record(gatewayName, permanent(fmt.Sprintf("unknown gateway %q", gatewayName)))
	}

	// Step 1: independent re-verification. No lock is held and no state has
	// been touched yet, so an unreachable gateway is safely retryable.
	verified, err := client.Verify(ctx, txRef, transactionID)
	if err != nil {
		if errors.Is(err, gateway.ErrUnreachable) {
			l.Warn("gateway verification unreachable", "error", err)
			return s.record(gatewayName, retryable("verification unreachable"))
		}
		l.Warn("gateway verification failed", "error", err)
		return s.record(gatewayName, permanent("verification failed"))
	}

	s.refLocks.Lock(txRef)
	defer s.refLocks.Unlock(txRef)

	var (
		outcome      Outcome
		createdOrder *models.Order
	)
	txErr := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		err := tx.Where("tx_ref = ? AND gateway = ?", txRef, gatewayName).First(&txn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = permanent("unknown transaction")
			return nil
		}
		if err != nil {
			return err
		}

		switch txn.Status {
		case models.TxCompleted:
			// Idempotency fast path: callback and webhook both land here
			// for a transaction the other already settled.
			outcome = success("already processed")
			return nil
		case models.TxCanceled, models.TxFailed:
			outcome = permanent("transaction " + txn.Status)
			return nil
		}

		if verified.Status != gateway.StatusSuccessful ||
			verified.Amount != txn.Amount ||
			verified.Currency != txn.Currency {
			// Left pending on purpose: a mismatch is suspicious and gets
			// manual review, not an automatic state change.
			l.Warn("verification mismatch",
				"verified_status", verified.Status,
				"verified_amount", verified.Amount,
				"verified_currency", verified.Currency,
				"ledger_amount", txn.Amount,
				"ledger_currency", txn.Currency,
			)
			outcome = permanent("verification mismatch")
			return nil
		}

		won, err := repo.CompletePending(tx, txRef, verified.TransactionID)
		if err != nil {
			return err
		}
		if !won {
			var latest models.Transaction
			if err := tx.Where("tx_ref = ?", txRef).First(&latest).Error; err != nil {
				return err
			}
			if latest.Status == models.TxCompleted {
				outcome = success("already processed")
			} else {
				outcome = permanent("transaction " + latest.Status)
			}
			return nil
		}

		if err := repo.MarkCartPaid(tx, txn.CartID); err != nil {
			return err
		}
		var cart models.Cart
		if err := tx.First(&cart, txn.CartID).Error; err != nil {
			return err
		}

		shipping, err := repo.SelectedForCartOwner(tx, &cart)
		if err != nil {
			return err
		}
		if shipping == nil {
			outcome = permanent("no selected shipping address")
			return errNoSelectedShipping
		}

		order, created, err := s.Orders.Materialize(tx, &cart, shipping, &txn, verified.TransactionID)
		if err != nil {
			return err
		}
		if created {
			createdOrder = order
			outcome = success("order created")
		} else {
			outcome = success("order already existed")
		}
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, errNoSelectedShipping) {
			l.Warn("reconcile rolled back: no selected shipping address")
			return s.record(gatewayName, outcome)
		}
		l.Error("reconcile aborted", "error", txErr)
		return s.record(gatewayName, retryable("internal error"))
	}

	if createdOrder != nil {
		s.publishOrder(ctx, createdOrder)
		l.Info("order materialized", "order_id", createdOrder.ID, "cart_id", createdOrder.CartID)
	}
	return s.record(gatewayName, outcome)
}

func (s *ReconcileService) record(gatewayName string, o Outcome) Outcome {
	metrics.ReconcileOutcomes.WithLabelValues(gatewayName, string(o.Class)).Inc()
	return o
}

func (s *ReconcileService) publishOrder(ctx context.Context, order *models.Order) {
	event := map[string]any{
		"type":         "order_created",
		"order_id":     order.ID,
		"cart_id":      order.CartID,
		"tx_ref":       order.TxRef,
		"total_amount": order.TotalAmount,
	}
	if err := s.Producer.Publish(ctx, events.TopicOrders, order.TxRef, event); err != nil {
		logging.FromContext(ctx).Error("order event publish failed", "error", err)
	}
}
