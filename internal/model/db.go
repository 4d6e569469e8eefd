package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
	PaymentCash   PaymentMethod = "cash"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusFailed    OrderStatus = "failed"
	StatusCancelled OrderStatus = "cancelled"
)

type PickupType string

const (
	PickupStore    PickupType = "store"
	PickupDelivery PickupType = "delivery"
)

type Category struct {
	ID        string `gorm:"primaryKey;size:64;not null"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID          string          `gorm:"primaryKey;size:64;not null"`
	Name        string          `gorm:"size:128;not null"`
	Description string          `gorm:"size:512"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency    string          `gorm:"size:8;not null"`
	CategoryID  string          `gorm:"size:64;index"`
	Variants    []ProductVariant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductVariant struct {
	ID        string          `gorm:"primaryKey;size:64;not null"`
	ProductID string          `gorm:"size:64;index;not null"`
	Name      string          `gorm:"size:128;not null"`
	Unit      string          `gorm:"size:32"` // e.g. "250g", "bouquet"
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
}

type Customer struct {
	ID        string `gorm:"primaryKey;size:64;not null"`
	FullName  string `gorm:"size:128;not null"`
	Email     string `gorm:"size:128;uniqueIndex;not null"`
	Phone     string `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Discount struct {
	Code      string          `gorm:"primaryKey;size:64;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Active    bool            `gorm:"not null"`
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order is the authoritative record of a purchase. Customer fields are a
// snapshot copied at checkout time, never a live reference. A given
// RemoteSessionID maps to at most one row (unique index); the paid
// transition additionally goes through the conditional update in the order
// repository so duplicate confirmations cannot double-fire.
type Order struct {
	ID string `gorm:"primaryKey;size:64;not null"`

	CustomerName  string `gorm:"size:128;not null"`
	CustomerEmail string `gorm:"size:128;index;not null"`
	CustomerPhone string `gorm:"size:32;not null"`

	// Exactly one of the pickup-location or delivery-address payloads is
	// populated, per PickupType.
	PickupType            PickupType `gorm:"size:16;not null"`
	PickupLocationID      string     `gorm:"size:64"`
	PickupLocationName    string     `gorm:"size:128"`
	PickupLocationAddress string     `gorm:"size:256"`
	DeliveryStreet        string     `gorm:"size:256"`
	DeliveryCity          string     `gorm:"size:128"`
	DeliveryPostal        string     `gorm:"size:32"`
	DeliveryCountry       string     `gorm:"size:64"`
	DeliveryTime          string     `gorm:"size:64"`

	DeliveryFee    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountCode   string          `gorm:"size:64"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency       string          `gorm:"size:8;not null"`

	PaymentMethod   PaymentMethod `gorm:"size:16;not null"`
	RemoteSessionID *string       `gorm:"size:128;uniqueIndex"`
	CaptureID       *string       `gorm:"size:128"`

	Status    OrderStatus `gorm:"size:16;index;not null"`
	Delivered bool        `gorm:"not null"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   string          `gorm:"size:64;index;not null"`
	ProductID string          `gorm:"size:64;not null"`
	VariantID string          `gorm:"size:64"`
	Name      string          `gorm:"size:128;not null"`
	Unit      string          `gorm:"size:32"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency  string          `gorm:"size:8;not null"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
}

// WebhookEvent records processor event ids already handled, so redelivered
// webhooks short-circuit before touching order state.
type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
