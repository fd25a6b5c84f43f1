package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Subscription is the local mirror of an upstream recurring order contract.
type Subscription struct {
	ID                 string                                   `json:"id" gorm:"primaryKey;size:64"`
	CustomerID         string                                   `json:"customer_id" gorm:"index;size:64"`
	CustomerName       string                                   `json:"customer_name"`
	CustomerPhone      string                                   `json:"customer_phone"`
	Products           datatypes.JSONSlice[SubscriptionProduct] `json:"products" gorm:"type:jsonb"`
	Frequency          Frequency                                `json:"frequency" gorm:"size:32"`
	NextDelivery       *time.Time                               `json:"next_delivery"`
	NextDeliverySource string                                   `json:"next_delivery_source" gorm:"size:16;default:'estimate'"` // estimate, server
	IsActive           bool                                     `json:"is_active" gorm:"default:true"`
	TotalAmount        decimal.Decimal                          `json:"total_amount" gorm:"type:decimal(12,2)"`
	DeliveryAddress    string                                   `json:"delivery_address" gorm:"type:text"`
	Status             SubscriptionStatus                       `json:"status" gorm:"size:16;default:'active';index"`
	PlanID             string                                   `json:"plan_id" gorm:"size:64"`
	UpstreamCreatedAt  time.Time                                `json:"upstream_created_at"`
	DeliveryHistory    datatypes.JSONSlice[DeliveryRecord]      `json:"delivery_history" gorm:"type:jsonb"`
	Warnings           datatypes.JSONSlice[string]              `json:"warnings,omitempty" gorm:"type:jsonb"`
	SyncedAt           time.Time                                `json:"synced_at"`
	CreatedAt          time.Time                                `json:"created_at"`
	UpdatedAt          time.Time                                `json:"updated_at"`
}

// SubscriptionProduct is one line of a subscription, with the denormalized
// product fields the console displays.
type SubscriptionProduct struct {
	ProductID    string          `json:"product_id"`
	PharmacyID   string          `json:"pharmacy_id,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitType     string          `json:"unit_type"`
	Name         string          `json:"name"`
	NameAr       string          `json:"name_ar,omitempty"`
	PricePerBox  decimal.Decimal `json:"price_per_box"`
	Image        string          `json:"image,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Category     string          `json:"category,omitempty"`
}

// DeliveryRecord is an append-only entry of the subscription's delivery history.
type DeliveryRecord struct {
	DeliveredAt time.Time       `json:"delivered_at"`
	OrderID     string          `json:"order_id,omitempty"`
	Status      string          `json:"status,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiWeekly  Frequency = "bi-weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

const (
	NextDeliveryEstimate = "estimate"
	NextDeliveryServer   = "server"
)

// LastDelivery returns the most recent delivery date, if any.
func (s *Subscription) LastDelivery() (time.Time, bool) {
	var last time.Time
	for _, d := range s.DeliveryHistory {
		if d.DeliveredAt.After(last) {
			last = d.DeliveredAt
		}
	}
	return last, !last.IsZero()
}

// CanTransitionTo reports whether the status change is allowed.
// Cancelled is terminal.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	switch s {
	case SubscriptionActive:
		return next == SubscriptionPaused || next == SubscriptionCancelled
	case SubscriptionPaused:
		return next == SubscriptionActive || next == SubscriptionCancelled
	}
	return false
}

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionPaused, SubscriptionCancelled:
		return true
	}
	return false
}
