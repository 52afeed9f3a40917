package repo

import (
	"context"
	"errors"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"gorm.io/gorm"
)

// GetOrCreateOpenCart returns the owner's unpaid cart, creating one when none
// exists. Paid is part of the lookup key: once a cart is paid the next call
// starts a fresh cart.
func (r *GormRepo) GetOrCreateOpenCart(ctx context.Context, owner identity.OwnerKey) (*models.Cart, error) {
	var cart models.Cart
	err := ownerScope(r.DB.WithContext(ctx), owner).
		Where("paid = ?", false).
		Order("id").
		First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = models.Cart{SessionID: owner.SessionToken}
	if owner.IsAuthenticated() {
		uid := owner.UserID
		cart.UserID = &uid
		cart.SessionID = ""
	}
	if err := r.DB.WithContext(ctx).Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetCartItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AddOrUpdateItem inserts a cart line or applies an increment/set to an
// existing one. A quantity change on an existing line cancels the cart's
// pending transactions in the same DB transaction: their amount quoted a cart
// snapshot that no longer exists.
func (r *GormRepo) AddOrUpdateItem(ctx context.Context, cartID, productID, quantity uint, set bool) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item = models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
			return tx.Create(&item).Error
		}
		if err != nil {
			return err
		}

		changed := false
		if set {
			if item.Quantity != quantity {
				if err := tx.Model(&item).Update("quantity", quantity).Error; err != nil {
					return err
				}
				changed = true
			}
		} else {
			// Increment against the persisted value, not the value read above.
			if err := tx.Model(&item).Update("quantity", gorm.Expr("quantity + ?", quantity)).Error; err != nil {
				return err
			}
			changed = true
		}

		if changed {
			if err := cancelPendingForCart(tx, cartID); err != nil {
				return err
			}
		}
		return tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveUnits decrements a line and deletes it when the result would not be a
// positive quantity. Decrements count as quantity changes and cancel pending
// transactions; a plain removal of the whole line does not.
func (r *GormRepo) RemoveUnits(ctx context.Context, cartID, productID, quantity uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error; err != nil {
			return err
		}

		if item.Quantity > quantity {
			if err := tx.Model(&item).Update("quantity", gorm.Expr("quantity - ?", quantity)).Error; err != nil {
				return err
			}
			return cancelPendingForCart(tx, cartID)
		}
		return tx.Delete(&item).Error
	})
}

func (r *GormRepo) DeleteItem(ctx context.Context, cartID, productID uint) error {
	res := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ClearItems(ctx context.Context, cartID uint) error {
	return r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// cartSubtotal prices the cart's lines at the catalog's current prices.
func cartSubtotal(tx *gorm.DB, cartID uint) (float64, error) {
	var subtotal float64
	err := tx.Model(&models.CartItem{}).
		Select("COALESCE(SUM(cart_items.quantity * products.price), 0)").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.cart_id = ?", cartID).
		Scan(&subtotal).Error
	return subtotal, err
}

// CartSubtotal is the quoting read; OpenTransaction re-derives the same sum
// to detect lines that moved in between.
func (r *GormRepo) CartSubtotal(ctx context.Context, cartID uint) (float64, error) {
	return cartSubtotal(r.DB.WithContext(ctx), cartID)
}

// ListPaidCarts returns the owner's archival carts, newest first.
func (r *GormRepo) ListPaidCarts(ctx context.Context, owner identity.OwnerKey) ([]models.Cart, error) {
	var carts []models.Cart
	if err := ownerScope(r.DB.WithContext(ctx), owner).
		Where("paid = ?", true).
		Order("id DESC").
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

func MarkCartPaid(tx *gorm.DB, cartID uint) error {
	return tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("paid", true).Error
}
