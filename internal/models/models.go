package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Transaction statuses. A transaction leaves "pending" exactly once and
// never leaves a terminal state afterwards.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxCanceled  = "canceled"
	TxFailed    = "failed"
)

// Gateway identifiers.
const (
	GatewayFlutterwave = "flutterwave"
	GatewayPaystack    = "paystack"
)

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Title       string    `gorm:"not null"                  json:"title"`
	Slug        string    `gorm:"unique;not null"           json:"slug"`
	Price       float64   `gorm:"not null"                  json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime"            json:"created_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" && p.Title != "" {
		p.Slug = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(p.Title), " ", "-"))
	}
	return nil
}

// Cart is scoped to either a user or an anonymous session, never both.
// Paid is a one-way latch: the unpaid cart for an owner is the working one,
// a paid cart is archival.
type Cart struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uint     `gorm:"index"                    json:"user_id,omitempty"`
	SessionID string    `gorm:"index"                    json:"session_id,omitempty"`
	Paid      bool      `gorm:"default:false;not null"   json:"paid"`
	CreatedAt time.Time `gorm:"autoCreateTime"           json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"           json:"updated_at"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"              json:"id"`
	CartID    uint      `gorm:"uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"            json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime"                        json:"created_at"`
}

// Ship is the shipping profile container for one owner.
type Ship struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uint     `gorm:"index"                    json:"user_id,omitempty"`
	SessionID string    `gorm:"index"                    json:"session_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime"           json:"created_at"`
}

// Shipping is one address inside a profile. At most one address per profile
// carries Default and at most one carries Selected.
type Shipping struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ShipID    uint      `gorm:"index;not null"           json:"-"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Address   string    `json:"address"`
	ZipCode   string    `json:"zip_code"`
	Country   string    `json:"country"`
	Email     string    `json:"email"`
	Selected  bool      `gorm:"default:false"            json:"selected"`
	Default   bool      `gorm:"default:false"            json:"default"`
	CreatedAt time.Time `gorm:"autoCreateTime"           json:"created_at"`
}

// Transaction is one gateway checkout attempt for a cart. TxRef is our
// reference sent to the gateway; TransactionID is the gateway's own id and
// stays empty until a confirmation is verified.
type Transaction struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID        uint      `gorm:"index;not null"           json:"cart_id"`
	Gateway       string    `gorm:"not null"                 json:"gateway"`
	TxRef         string    `gorm:"unique;not null"          json:"tx_ref"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Link          string    `json:"link,omitempty"`
	Currency      string    `gorm:"default:NGN"              json:"currency"`
	Amount        float64   `gorm:"not null"                 json:"amount"`
	Status        string    `gorm:"default:pending;index"    json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime"           json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"           json:"updated_at"`
}

// OrderLine is a frozen copy of a cart line at the moment of payment.
// Later product edits must not alter it.
type OrderLine struct {
	ProductID uint    `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  uint    `json:"quantity"`
	Image     string  `json:"image"`
}

// Order is the immutable record of a paid cart. The (cart_id, tx_ref) pair
// is unique: a reconciliation race collapses into the existing row.
type Order struct {
	ID            uint        `gorm:"primaryKey;autoIncrement"            json:"id"`
	CartID        uint        `gorm:"uniqueIndex:idx_cart_txref;not null" json:"cart_id"`
	TxRef         string      `gorm:"uniqueIndex:idx_cart_txref;not null" json:"tx_ref"`
	FullName      string      `json:"full_name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	ZipCode       string      `json:"zip_code"`
	Country       string      `json:"country"`
	Lines         []OrderLine `gorm:"serializer:json"                     json:"products"`
	TotalAmount   float64     `gorm:"default:0"                           json:"total_amount"`
	TransactionID string      `json:"transaction_id"`
	PaymentStatus string      `gorm:"default:completed"                   json:"payment_status"`
	CreatedAt     time.Time   `gorm:"autoCreateTime"                      json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Product{},
		&Cart{},
		&CartItem{},
		&Ship{},
		&Shipping{},
		&Transaction{},
		&Order{},
	}
}
