package upstream

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Ref is a reference field the upstream sends either as a bare id string or
// as the populated document.
type Ref[T any] struct {
	ID  string
	Doc *T
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var head struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.ID, r.Doc = head.ID, &doc
	return nil
}

// Populated reports whether the upstream sent the full document.
func (r Ref[T]) Populated() bool { return r.Doc != nil }

// Address accepts a plain string or a structured address object.
type Address string

func (a *Address) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Address(s)
		return nil
	}
	var parts struct {
		Street  string `json:"street"`
		Area    string `json:"area"`
		City    string `json:"city"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	var out []string
	for _, p := range []string{parts.Street, parts.Area, parts.City, parts.Country} {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*a = Address(strings.Join(out, ", "))
	return nil
}

type RawCustomer struct {
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

type RawCategory struct {
	Name string `json:"name"`
}

type RawProduct struct {
	Name         string           `json:"name"`
	NameAr       string           `json:"nameAr"`
	PricePerBox  float64          `json:"pricePerBox"`
	Images       []string         `json:"images"`
	Manufacturer string           `json:"manufacturer"`
	Category     Ref[RawCategory] `json:"category"`
}

type RawPharmacyRef struct {
	Name string `json:"name"`
}

type RawSubscriptionProduct struct {
	Product  Ref[RawProduct]     `json:"productId"`
	Pharmacy Ref[RawPharmacyRef] `json:"pharmacyId"`
	Quantity int                 `json:"quantity"`
	UnitType string              `json:"unitType"`
}

type RawDelivery struct {
	DeliveryDate *time.Time `json:"deliveryDate"`
	Date         *time.Time `json:"date"`
	OrderID      string     `json:"orderId"`
	Status       string     `json:"status"`
	Amount       float64    `json:"amount"`
}

type RawSubscription struct {
	ID              string                   `json:"_id"`
	Customer        Ref[RawCustomer]         `json:"customerId"`
	Products        []RawSubscriptionProduct `json:"products"`
	Frequency       string                   `json:"frequency"`
	IsActive        *bool                    `json:"isActive"`
	TotalAmount     float64                  `json:"totalAmount"`
	DeliveryAddress Address                  `json:"deliveryAddress"`
	Status          string                   `json:"status"`
	Plan            Ref[struct{}]            `json:"planId"`
	CreatedAt       *time.Time               `json:"createdAt"`
	DeliveryHistory []RawDelivery            `json:"deliveryHistory"`
}

type RawInventoryEntry struct {
	Product       Ref[RawProduct] `json:"productId"`
	InStock       bool            `json:"inStock"`
	StockQuantity int             `json:"stockQuantity"`
	Price         float64         `json:"price"`
}

type RawPharmacy struct {
	ID                string              `json:"_id"`
	Name              string              `json:"name"`
	Address           Address             `json:"address"`
	Phone             string              `json:"phone"`
	Email             string              `json:"email"`
	IsActive          bool                `json:"isActive"`
	IsVerified        bool                `json:"isVerified"`
	Inventory         []RawInventoryEntry `json:"inventory"`
	ProductStatistics []RawInventoryEntry `json:"productStatistics"`
}
