package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/repo"
	"gorm.io/gorm"
)

type CartService struct {
	Repo *repo.GormRepo
}

type CartLineView struct {
	ID       uint           `json:"id"`
	Product  models.Product `json:"product"`
	Quantity uint           `json:"quantity"`
}

type CartView struct {
	ID         uint           `json:"id"`
	Items      []CartLineView `json:"cartitem"`
	TotalItems uint           `json:"total_items"`
	TotalPrice float64        `json:"total_price"`
	Paid       bool           `json:"paid"`
	Link       string         `json:"link,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// View assembles the owner's current cart: lines with live product data,
// totals priced at read time and the resumable checkout link if a pending
// transaction exists.
func (s *CartService) View(ctx context.Context, owner identity.OwnerKey) (*CartView, error) {
	cart, err := s.Repo.GetOrCreateOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	items, err := s.Repo.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	view := &CartView{
		ID:        cart.ID,
		Items:     make([]CartLineView, 0, len(items)),
		Paid:      cart.Paid,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, it := range items {
		p, err := s.Repo.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		view.Items = append(view.Items, CartLineView{ID: it.ID, Product: *p, Quantity: it.Quantity})
		view.TotalItems += it.Quantity
		view.TotalPrice += float64(it.Quantity) * p.Price
	}

	active, err := s.Repo.FindActive(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		view.Link = active.Link
	}
	return view, nil
}

// AddOrUpdateLine adds a product to the owner's open cart. On an existing
// line set replaces the quantity and increment adds to it.
func (s *CartService) AddOrUpdateLine(ctx context.Context, owner identity.OwnerKey, slug string, quantity uint, set bool) (*CartLineView, error) {
	if slug == "" {
		return nil, fmt.Errorf("product slug required: %w", ErrValidation)
	}
	if quantity == 0 {
		quantity = 1
	}

	product, err := s.Repo.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product not found: %w", ErrNotFound)
		}
		return nil, err
	}

	cart, err := s.Repo.GetOrCreateOpenCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	item, err := s.Repo.AddOrUpdateItem(ctx, cart.ID, product.ID, quantity, set)
	if err != nil {
		return nil, err
	}
	return &CartLineView{ID: item.ID, Product: *product, Quantity: item.Quantity}, nil
}

func (s *CartService) RemoveUnits(ctx context.Context, owner identity.OwnerKey, slug string, quantity uint) error {
	if quantity == 0 {
		quantity = 1
	}
	cart, product, err := s.cartAndProduct(ctx, owner, slug)
	if err != nil {
		return err
	}

	if err := s.Repo.RemoveUnits(ctx, cart.ID, product.ID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("cart item not found: %w", ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *CartService) DeleteLine(ctx context.Context, owner identity.OwnerKey, slug string) error {
	cart, product, err := s.cartAndProduct(ctx, owner, slug)
	if err != nil {
		return err
	}

	if err := s.Repo.DeleteItem(ctx, cart.ID, product.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("cart item not found: %w", ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, owner identity.OwnerKey) error {
	cart, err := s.Repo.GetOrCreateOpenCart(ctx, owner)
	if err != nil {
		return err
	}
	return s.Repo.ClearItems(ctx, cart.ID)
}

func (s *CartService) cartAndProduct(ctx context.Context, owner identity.OwnerKey, slug string) (*models.Cart, *models.Product, error) {
	product, err := s.Repo.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("product not found: %w", ErrNotFound)
		}
		return nil, nil, err
	}
	cart, err := s.Repo.GetOrCreateOpenCart(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	return cart, product, nil
}
