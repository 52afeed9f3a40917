package repo

import (
	"context"
	"errors"

	"github.com/emkxpress/shop/internal/identity"
	"github.com/emkxpress/shop/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) GetOrCreateShip(ctx context.Context, owner identity.OwnerKey) (*models.Ship, error) {
	var ship models.Ship
	err := ownerScope(r.DB.WithContext(ctx), owner).Order("id").First(&ship).Error
	if err == nil {
		return &ship, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ship = models.Ship{SessionID: owner.SessionToken}
	if owner.IsAuthenticated() {
		uid := owner.UserID
		ship.UserID = &uid
		ship.SessionID = ""
	}
	if err := r.DB.WithContext(ctx).Create(&ship).Error; err != nil {
		return nil, err
	}
	return &ship, nil
}

// ListShippings orders default first, then selected, then newest, matching
// how the storefront presents the address book.
func (r *GormRepo) ListShippings(ctx context.Context, shipID uint) ([]models.Shipping, error) {
	var addrs []models.Shipping
	if err := r.DB.WithContext(ctx).
		Where("ship_id = ?", shipID).
		Order(`"default" DESC, selected DESC, created_at DESC, id DESC`).
		Find(&addrs).Error; err != nil {
		return nil, err
	}
	return addrs, nil
}

func (r *GormRepo) GetShipping(ctx context.Context, shipID, id uint) (*models.Shipping, error) {
	var addr models.Shipping
	if err := r.DB.WithContext(ctx).
		Where("ship_id = ? AND id = ?", shipID, id).
		First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// GetSelected returns the profile's selected address, or nil when the
// profile is empty.
func (r *GormRepo) GetSelected(ctx context.Context, shipID uint) (*models.Shipping, error) {
	var addr models.Shipping
	err := r.DB.WithContext(ctx).
		Where("ship_id = ?", shipID).
		Where(map[string]any{"selected": true}).
		First(&addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func SelectedForCartOwner(tx *gorm.DB, cart *models.Cart) (*models.Shipping, error) {
	var ship models.Ship
	q := tx.Model(&models.Ship{})
	if cart.UserID != nil {
		q = q.Where("user_id = ?", *cart.UserID)
	} else {
		q = q.Where("user_id IS NULL AND session_id = ?", cart.SessionID)
	}
	if err := q.Order("id").First(&ship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var addr models.Shipping
	err := tx.Where("ship_id = ?", ship.ID).
		Where(map[string]any{"selected": true}).
		First(&addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// AddShipping inserts an address. A requested default steals the default flag
// from its siblings; the new address always becomes the selected one. The
// backfill at the end restores the exactly-one invariants for every path.
func (r *GormRepo) AddShipping(ctx context.Context, addr *models.Shipping, requestedDefault bool) error {
	r.shipLocks.Lock(addr.ShipID)
	defer r.shipLocks.Unlock(addr.ShipID)

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if requestedDefault {
			if err := clearFlag(tx, addr.ShipID, "default", 0); err != nil {
				return err
			}
		}
		if err := clearFlag(tx, addr.ShipID, "selected", 0); err != nil {
			return err
		}

		addr.Default = requestedDefault
		addr.Selected = true
		if err := tx.Create(addr).Error; err != nil {
			return err
		}
		return restoreFlagInvariants(tx, addr.ShipID)
	})
}

// UpdateShipping applies a partial update. The updates map may carry the
// "default"/"selected" flags; setting one true clears it on the siblings in
// the same transaction.
func (r *GormRepo) UpdateShipping(ctx context.Context, shipID, id uint, updates map[string]any) (*models.Shipping, error) {
	r.shipLocks.Lock(shipID)
	defer r.shipLocks.Unlock(shipID)

	var addr models.Shipping
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ship_id = ? AND id = ?", shipID, id).First(&addr).Error; err != nil {
			return err
		}

		for _, flag := range []string{"default", "selected"} {
			if v, ok := updates[flag]; ok && v == true {
				if err := clearFlag(tx, shipID, flag, id); err != nil {
					return err
				}
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&addr).Updates(updates).Error; err != nil {
				return err
			}
		}
		if err := restoreFlagInvariants(tx, shipID); err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&addr).Error
	})
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// SetFlag sets or clears default/selected on one address.
func (r *GormRepo) SetFlag(ctx context.Context, shipID, id uint, flag string, value bool) (*models.Shipping, error) {
	return r.UpdateShipping(ctx, shipID, id, map[string]any{flag: value})
}

func clearFlag(tx *gorm.DB, shipID uint, flag string, exceptID uint) error {
	q := tx.Model(&models.Shipping{}).
		Where("ship_id = ?", shipID).
		Where(map[string]any{flag: true})
	if exceptID != 0 {
		q = q.Not("id = ?", exceptID)
	}
	return q.Update(flag, false).Error
}

// restoreFlagInvariants backfills a missing default/selected with the most
// recently created address. It runs after every profile mutation so the
// invariants hold at commit, not just eventually.
func restoreFlagInvariants(tx *gorm.DB, shipID uint) error {
	for _, flag := range []string{"default", "selected"} {
		var n int64
		if err := tx.Model(&models.Shipping{}).
			Where("ship_id = ?", shipID).
			Where(map[string]any{flag: true}).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		var latest models.Shipping
		err := tx.Where("ship_id = ?", shipID).
			Order("created_at DESC, id DESC").
			First(&latest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&latest).Update(flag, true).Error; err != nil {
			return err
		}
	}
	return nil
}
