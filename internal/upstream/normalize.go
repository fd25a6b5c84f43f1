package upstream

import (
	"strings"

	"github.com/shopspring/decimal"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/ordering"
)

const (
	UnknownProduct  = "Unknown Product"
	UnknownCustomer = "Unknown Customer"
)

// NormalizeSubscription maps the upstream document onto the local model.
// Missing populated fields get display fallbacks instead of failing.
func NormalizeSubscription(raw RawSubscription) models.Subscription {
	sub := models.Subscription{
		ID:              raw.ID,
		CustomerID:      raw.Customer.ID,
		CustomerName:    UnknownCustomer,
		Frequency:       models.Frequency(strings.ToLower(strings.TrimSpace(raw.Frequency))),
		TotalAmount:     decimal.NewFromFloat(raw.TotalAmount),
		DeliveryAddress: string(raw.DeliveryAddress),
		Status:          normalizeStatus(raw.Status),
		PlanID:          raw.Plan.ID,
		Products:        make([]models.SubscriptionProduct, 0, len(raw.Products)),
		DeliveryHistory: make([]models.DeliveryRecord, 0, len(raw.DeliveryHistory)),
	}
	if c := raw.Customer.Doc; c != nil {
		if name := firstNonEmpty(c.Name, c.FullName); name != "" {
			sub.CustomerName = name
		}
		sub.CustomerPhone = c.Phone
	}
	if raw.IsActive != nil {
		sub.IsActive = *raw.IsActive
	} else {
		sub.IsActive = sub.Status == models.SubscriptionActive
	}
	if raw.CreatedAt != nil {
		sub.UpstreamCreatedAt = raw.CreatedAt.UTC()
	}

	for _, p := range raw.Products {
		line := models.SubscriptionProduct{
			ProductID:  p.Product.ID,
			PharmacyID: p.Pharmacy.ID,
			Quantity:   p.Quantity,
			UnitType:   p.UnitType,
			Name:       UnknownProduct,
		}
		if doc := p.Product.Doc; doc != nil {
			if doc.Name != "" {
				line.Name = doc.Name
			}
			line.NameAr = doc.NameAr
			line.PricePerBox = decimal.NewFromFloat(doc.PricePerBox)
			line.Manufacturer = doc.Manufacturer
			line.Category = categoryName(doc.Category)
			if len(doc.Images) > 0 {
				line.Image = doc.Images[0]
			}
		}
		sub.Products = append(sub.Products, line)
	}

	for _, d := range raw.DeliveryHistory {
		at := d.DeliveryDate
		if at == nil {
			at = d.Date
		}
		if at == nil {
			continue
		}
		sub.DeliveryHistory = append(sub.DeliveryHistory, models.DeliveryRecord{
			DeliveredAt: at.UTC(),
			OrderID:     d.OrderID,
			Status:      d.Status,
			Amount:      decimal.NewFromFloat(d.Amount),
		})
	}
	return sub
}

// NormalizePharmacy merges both inventory lists the upstream may send.
func NormalizePharmacy(raw RawPharmacy) ordering.Pharmacy {
	p := ordering.Pharmacy{
		ID:         raw.ID,
		Name:       raw.Name,
		Address:    string(raw.Address),
		Phone:      raw.Phone,
		Email:      raw.Email,
		IsActive:   raw.IsActive,
		IsVerified: raw.IsVerified,
		Inventory:  make([]ordering.InventoryEntry, 0, len(raw.Inventory)+len(raw.ProductStatistics)),
	}
	for _, list := range [][]RawInventoryEntry{raw.Inventory, raw.ProductStatistics} {
		for _, e := range list {
			if e.Product.ID == "" {
				continue
			}
			p.Inventory = append(p.Inventory, ordering.InventoryEntry{
				ProductID:     e.Product.ID,
				InStock:       e.InStock,
				StockQuantity: e.StockQuantity,
				Price:         decimal.NewFromFloat(e.Price),
			})
		}
	}
	return p
}

func normalizeStatus(s string) models.SubscriptionStatus {
	switch st := models.SubscriptionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case models.SubscriptionActive, models.SubscriptionPaused, models.SubscriptionCancelled:
		return st
	case "canceled":
		return models.SubscriptionCancelled
	}
	return models.SubscriptionActive
}

func categoryName(c Ref[RawCategory]) string {
	if c.Doc != nil && c.Doc.Name != "" {
		return c.Doc.Name
	}
	return c.ID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
