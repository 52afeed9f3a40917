package service

import (
	"context"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/repo"
	"gorm.io/gorm"
)

// OrderService materializes paid carts into immutable orders.
type OrderService struct {
	Repo *repo.GormRepo
}

// Materialize freezes the cart's lines, the selected shipping address and
// the verified amount into an Order. Product name, price and image are copied
// at this moment; later product edits never reach historical orders.
// Re-invocation for the same (cart, tx_ref) returns the existing order with
// created = false. Runs inside the caller's DB transaction so it commits or
// rolls back with the rest of the reconciliation unit.
func (s *OrderService) Materialize(tx *gorm.DB, cart *models.Cart, shipping *models.Shipping, txn *models.Transaction, externalID string) (*models.Order, bool, error) {
	var items []models.CartItem
	if err := tx.Where("cart_id = ?", cart.ID).Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, false, err
	}

	lines := make([]models.OrderLine, 0, len(items))
	for _, it := range items {
		var p models.Product
		if err := tx.First(&p, it.ProductID).Error; err != nil {
			return nil, false, err
		}
		lines = append(lines, models.OrderLine{
			ProductID: p.ID,
			Name:      p.Title,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Image:     p.Image,
		})
	}

	order := &models.Order{
		CartID:        cart.ID,
		TxRef:         txn.TxRef,
		FullName:      shipping.Name,
		Email:         shipping.Email,
		Phone:         shipping.Phone,
		Address:       shipping.Address,
		City:          shipping.City,
		State:         shipping.State,
		ZipCode:       shipping.ZipCode,
		Country:       shipping.Country,
		Lines:         lines,
		TotalAmount:   txn.Amount,
		TransactionID: externalID,
		PaymentStatus: models.TxCompleted,
	}
	created, err := repo.CreateOrder(tx, order)
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

func (s *OrderService) List(ctx context.Context, owner identity.OwnerKey) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, owner)
}
