package repo

import (
	"context"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateOrder inserts the order unless one already exists for the same
// (cart_id, tx_ref) pair. The unique index plus DoNothing makes the insert
// the final arbiter under concurrent reconciliation: the loser reads back the
// winner's row. Returns whether this call created the order.
func CreateOrder(tx *gorm.DB, order *models.Order) (bool, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "tx_ref"}},
		DoNothing: true,
	}).Create(order)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	if err := tx.Where("cart_id = ? AND tx_ref = ?", order.CartID, order.TxRef).
		First(order).Error; err != nil {
		return false, err
	}
	return false, nil
}

func (r *GormRepo) FindOrder(ctx context.Context, cartID uint, txRef string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Where("cart_id = ? AND tx_ref = ?", cartID, txRef).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns the owner's orders, newest first.
func (r *GormRepo) ListOrders(ctx context.Context, owner identity.OwnerKey) ([]models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).
		Joins("JOIN carts ON carts.id = orders.cart_id")
	if owner.IsAuthenticated() {
		q = q.Where("carts.user_id = ?", owner.UserID)
	} else {
		q = q.Where("carts.user_id IS NULL AND carts.session_id = ?", owner.SessionToken)
	}

	var orders []models.Order
	if err := q.Order("orders.id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) CountOrders(ctx context.Context, cartID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("cart_id = ?", cartID).
		Count(&n).Error
	return n, err
}
