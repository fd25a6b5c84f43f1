package services

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/upstream"
)

// Receipt is the archived record of what was sent upstream and what came back.
type Receipt struct {
	ReceiptID       string          `json:"receipt_id"`
	OrderNumber     string          `json:"order_number"`
	UpstreamOrderID string          `json:"upstream_order_id,omitempty"`
	SubscriptionID  string          `json:"subscription_id"`
	SessionID       string          `json:"session_id"`
	OperatorID      uint            `json:"operator_id"`
	PlacedAt        time.Time       `json:"placed_at"`
	NextDelivery    time.Time       `json:"next_delivery"`
	DeliveryAddress string          `json:"delivery_address"`
	Notes           string          `json:"notes,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Lines           []ReceiptLine   `json:"lines"`
	Response        json.RawMessage `json:"response,omitempty"`
}

type ReceiptLine struct {
	Key          string          `json:"key"`
	PharmacyID   string          `json:"pharmacy_id"`
	PharmacyName string          `json:"pharmacy_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

func newReceipt(sess *ordering.Session, submission *ordering.Submission, placed *upstream.PlaceOrderResult) *Receipt {
	r := &Receipt{
		ReceiptID:       uuid.NewString(),
		OrderNumber:     placed.OrderNumber,
		UpstreamOrderID: placed.OrderID,
		SubscriptionID:  submission.SubscriptionID,
		SessionID:       sess.ID,
		OperatorID:      sess.OperatorID,
		PlacedAt:        time.Now().UTC(),
		NextDelivery:    placed.NextDelivery,
		DeliveryAddress: submission.DeliveryAddress,
		Notes:           submission.Notes,
		Total:           submission.Total,
		Lines:           make([]ReceiptLine, 0, len(submission.Lines)),
		Response:        placed.Raw,
	}
	for _, l := range submission.Lines {
		r.Lines = append(r.Lines, ReceiptLine{
			Key:          l.Key.WireKey(),
			PharmacyID:   l.PharmacyID,
			PharmacyName: l.PharmacyName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			TotalPrice:   l.TotalPrice,
		})
	}
	return r
}
