package ordering

import "github.com/shopspring/decimal"

// Pharmacy is a selection candidate. Read-only for this workflow.
type Pharmacy struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Address    string           `json:"address"`
	Phone      string           `json:"phone,omitempty"`
	Email      string           `json:"email,omitempty"`
	IsActive   bool             `json:"is_active"`
	IsVerified bool             `json:"is_verified"`
	Inventory  []InventoryEntry `json:"inventory"`
}

// InventoryEntry states a pharmacy's stock and price for one product.
type InventoryEntry struct {
	ProductID     string          `json:"product_id"`
	InStock       bool            `json:"in_stock"`
	StockQuantity int             `json:"stock_quantity"`
	Price         decimal.Decimal `json:"price"`
}

func (e InventoryEntry) available() bool {
	return e.InStock && e.StockQuantity > 0
}

// OfferFor returns the first in-stock inventory entry for the product.
func (p Pharmacy) OfferFor(productID string) (InventoryEntry, bool) {
	for _, e := range p.Inventory {
		if e.ProductID == productID && e.available() {
			return e, true
		}
	}
	return InventoryEntry{}, false
}

// FilterByStock returns, in input order, the pharmacies that currently stock
// the product. An empty result means no pharmacy carries it.
func FilterByStock(pharmacies []Pharmacy, productID string) []Pharmacy {
	out := make([]Pharmacy, 0)
	for _, p := range pharmacies {
		if _, ok := p.OfferFor(productID); ok {
			out = append(out, p)
		}
	}
	return out
}

// FindPharmacy looks a pharmacy up by id.
func FindPharmacy(pharmacies []Pharmacy, id string) (Pharmacy, bool) {
	for _, p := range pharmacies {
		if p.ID == id {
			return p, true
		}
	}
	return Pharmacy{}, false
}
