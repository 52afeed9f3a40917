package repo

import (
	"context"
	"errors"

	"github.com/emkxpress/shop/internal/models"
	"gorm.io/gorm"
)

// cancelPendingForCart supersedes every pending transaction of a cart, for
// any gateway. The guarded WHERE keeps terminal rows untouched.
func cancelPendingForCart(tx *gorm.DB, cartID uint) error {
	return tx.Model(&models.Transaction{}).
		Where("cart_id = ? AND status = ?", cartID, models.TxPending).
		Update("status", models.TxCanceled).Error
}

// ErrCartChanged reports that cart lines moved between quoting an amount and
// opening the ledger row for it.
var ErrCartChanged = errors.New("cart changed")

// OpenTransaction cancels the cart's pending transactions and inserts the new
// pending row as one atomic unit, so at most one checkout link is ever valid
// for a cart. The subtotal the caller quoted is re-derived inside the same
// transaction; a cart mutation that committed after the quote surfaces as
// ErrCartChanged instead of a stale pending row the cancellation hooks can no
// longer catch.
func (r *GormRepo) OpenTransaction(ctx context.Context, txn *models.Transaction, quotedSubtotal float64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subtotal, err := cartSubtotal(tx, txn.CartID)
		if err != nil {
			return err
		}
		if subtotal != quotedSubtotal {
			return ErrCartChanged
		}

		if err := cancelPendingForCart(tx, txn.CartID); err != nil {
			return err
		}
		txn.Status = models.TxPending
		return tx.Create(txn).Error
	})
}

// FindActive returns the cart's most recent pending transaction, or nil.
func (r *GormRepo) FindActive(ctx context.Context, cartID uint) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.DB.WithContext(ctx).
		Where("cart_id = ? AND status = ?", cartID, models.TxPending).
		Order("created_at DESC, id DESC").
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *GormRepo) FindByTxRef(ctx context.Context, txRef string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.DB.WithContext(ctx).Where("tx_ref = ?", txRef).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// CancelIfPending is a no-op when the transaction is already terminal.
func (r *GormRepo) CancelIfPending(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TxPending).
		Update("status", models.TxCanceled).Error
}

// CompletePending flips a pending transaction to completed and records the
// gateway's transaction id. The returned flag reports whether this caller won
// the transition; a false return means another confirmation got there first
// or the row is terminal.
func CompletePending(tx *gorm.DB, txRef, transactionID string) (bool, error) {
	res := tx.Model(&models.Transaction{}).
		Where("tx_ref = ? AND status = ?", txRef, models.TxPending).
		Updates(map[string]any{
			"status":         models.TxCompleted,
			"transaction_id": transactionID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountPending exists for invariant checks and admin views.
func (r *GormRepo) CountPending(ctx context.Context, cartID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("cart_id = ? AND status = ?", cartID, models.TxPending).
		Count(&n).Error
	return n, err
}
