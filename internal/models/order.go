package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlacedOrder records an order the console placed upstream for a subscription.
type PlacedOrder struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	OrderNumber      string          `json:"order_number" gorm:"unique;not null"`
	SubscriptionID   string          `json:"subscription_id" gorm:"index;not null;size:64"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	OrderDate        time.Time       `json:"order_date" gorm:"not null"`
	NextDelivery     *time.Time      `json:"next_delivery"`
	Status           string          `json:"status" gorm:"default:'placed'"` // placed, delivered, cancelled
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	DeliveryAddress  string          `json:"delivery_address" gorm:"type:text"`
	Notes            string          `json:"notes" gorm:"type:text"`
	LineCount        int             `json:"line_count"`
	ReceiptObjectKey string          `json:"receipt_object_key,omitempty"`
	PlacedBy         uint            `json:"placed_by" gorm:"not null"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)
