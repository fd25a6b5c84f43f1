package ordering

import (
	"strconv"

	"github.com/shopspring/decimal"

	"pharmacy_admin/internal/models"
)

// LineKey identifies one line of a subscription. Index disambiguates a
// product id that appears more than once.
type LineKey struct {
	ProductID string `json:"product_id"`
	Index     int    `json:"index"`
}

// WireKey renders the key the upstream API expects ("<productId>-<index>").
func (k LineKey) WireKey() string {
	return k.ProductID + "-" + strconv.Itoa(k.Index)
}

// Line is a snapshot of a subscription line taken when a session opens.
type Line struct {
	Key         LineKey         `json:"key"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitType    string          `json:"unit_type"`
	PricePerBox decimal.Decimal `json:"price_per_box"`
}

// LinesFromSubscription numbers the subscription's products in order.
func LinesFromSubscription(sub *models.Subscription) []Line {
	lines := make([]Line, 0, len(sub.Products))
	for i, p := range sub.Products {
		lines = append(lines, Line{
			Key:         LineKey{ProductID: p.ProductID, Index: i},
			ProductName: p.Name,
			Quantity:    p.Quantity,
			UnitType:    p.UnitType,
			PricePerBox: p.PricePerBox,
		})
	}
	return lines
}
