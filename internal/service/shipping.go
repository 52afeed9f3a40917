package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"github.com/emkxpress/shop/internal/repo"
	"gorm.io/gorm"
)

// Shipping flag names accepted by SetFlag.
const (
	FlagDefault  = "default"
	FlagSelected = "selected"
)

type ShippingService struct {
	Repo *repo.GormRepo
}

type AddressInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
	State   string `json:"state"`
	Address string `json:"address"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
	Email   string `json:"email"`
}

// AddressUpdate carries a partial update; nil fields are left alone.
type AddressUpdate struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	City     *string `json:"city"`
	State    *string `json:"state"`
	Address  *string `json:"address"`
	ZipCode  *string `json:"zip_code"`
	Country  *string `json:"country"`
	Email    *string `json:"email"`
	Selected *bool   `json:"selected"`
	Default  *bool   `json:"default"`
}

type ProfileView struct {
	ID        uint              `json:"id"`
	Shippings []models.Shipping `json:"shippings"`
}

// Profile returns the owner's address book, creating the profile container
// on first use. Idempotent.
func (s *ShippingService) Profile(ctx context.Context, owner identity.OwnerKey) (*ProfileView, error) {
	ship, err := s.Repo.GetOrCreateShip(ctx, owner)
	if err != nil {
		return nil, err
	}
	addrs, err := s.Repo.ListShippings(ctx, ship.ID)
	if err != nil {
		return nil, err
	}
	return &ProfileView{ID: ship.ID, Shippings: addrs}, nil
}

// AddAddress inserts an address into the owner's profile. The new address
// becomes the selected one; requestedDefault also makes it the default.
func (s *ShippingService) AddAddress(ctx context.Context, owner identity.OwnerKey, in AddressInput, requestedDefault bool) (*models.Shipping, error) {
	ship, err := s.Repo.GetOrCreateShip(ctx, owner)
	if err != nil {
		return nil, err
	}

	addr := models.Shipping{
		ShipID:  ship.ID,
		Name:    in.Name,
		Phone:   in.Phone,
		City:    in.City,
		State:   in.State,
		Address: in.Address,
		ZipCode: in.ZipCode,
		Country: in.Country,
		Email:   in.Email,
	}
	if err := s.Repo.AddShipping(ctx, &addr, requestedDefault); err != nil {
		return nil, err
	}
	return &addr, nil
}

func (s *ShippingService) UpdateAddress(ctx context.Context, owner identity.OwnerKey, id uint, upd AddressUpdate) (*models.Shipping, error) {
	ship, err := s.Repo.GetOrCreateShip(ctx, owner)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	setStr := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	setStr("name", upd.Name)
	setStr("phone", upd.Phone)
	setStr("city", upd.City)
	setStr("state", upd.State)
	setStr("address", upd.Address)
	setStr("zip_code", upd.ZipCode)
	setStr("country", upd.Country)
	setStr("email", upd.Email)
	if upd.Selected != nil {
		updates[FlagSelected] = *upd.Selected
	}
	if upd.Default != nil {
		updates[FlagDefault] = *upd.Default
	}

	addr, err := s.Repo.UpdateShipping(ctx, ship.ID, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shipping not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return addr, nil
}

// SetFlag toggles default/selected on one address; setting a flag true clears
// it on the siblings in the same transaction.
func (s *ShippingService) SetFlag(ctx context.Context, owner identity.OwnerKey, id uint, flag string, value bool) (*models.Shipping, error) {
	if flag != FlagDefault && flag != FlagSelected {
		return nil, fmt.Errorf("flag must be %q or %q: %w", FlagDefault, FlagSelected, ErrValidation)
	}

	ship, err := s.Repo.GetOrCreateShip(ctx, owner)
	if err != nil {
		return nil, err
	}

	addr, err := s.Repo.SetFlag(ctx, ship.ID, id, flag, value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shipping not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return addr, nil
}

func (s *ShippingService) Selected(ctx context.Context, owner identity.OwnerKey) (*models.Shipping, error) {
	ship, err := s.Repo.GetOrCreateShip(ctx, owner)
	if err != nil {
		return nil, err
	}
	addr, err := s.Repo.GetSelected(ctx, ship.ID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, fmt.Errorf("no selected shipping: %w", ErrNotFound)
	}
	return addr, nil
}

func (s *ShippingService) Address(ctx context.Context, owner identity.OwnerKey, id uint) (*models.Shipping, error) {
	ship, err := s.Repo.GetOrCreateShip(ctx, owner)
	if err != nil {
		return nil, err
	}
	addr, err := s.Repo.GetShipping(ctx, ship.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shipping not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return addr, nil
}
