package ordering

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pharmacy_admin/internal/models"
)

// Status is the submission state of a session. A rejected submission puts
// the session back to idle with LastError set; StatusSucceeded and
// StatusFailed only report the outcome of a submit call.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

type AddressMode string

const (
	AddressModeCustomer AddressMode = "customer"
	AddressModeCustom   AddressMode = "custom"
)

func (m AddressMode) Valid() bool {
	return m == AddressModeCustomer || m == AddressModeCustom
}

// Selection is the operator's pharmacy choice for one line.
// Total is nil until a line total has been recorded.
type Selection struct {
	PharmacyID   string           `json:"pharmacy_id"`
	PharmacyName string           `json:"pharmacy_name"`
	Price        decimal.Decimal  `json:"price"`
	Total        *decimal.Decimal `json:"total,omitempty"`
}

// Session is one in-progress order placement for a subscription.
type Session struct {
	ID             string                `json:"id"`
	SubscriptionID string                `json:"subscription_id"`
	CustomerName   string                `json:"customer_name"`
	StoredAddress  string                `json:"stored_address"`
	Lines          []Line                `json:"lines"`
	Selections     map[LineKey]Selection `json:"-"`
	AddressMode    AddressMode           `json:"address_mode"`
	CustomAddress  string                `json:"custom_address"`
	Notes          string                `json:"notes"`
	Status         Status                `json:"status"`
	LastError      string                `json:"last_error,omitempty"`
	OperatorID     uint                  `json:"operator_id"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewSession snapshots the subscription's lines and address.
func NewSession(id string, sub *models.Subscription, operatorID uint, now time.Time) *Session {
	return &Session{
		ID:             id,
		SubscriptionID: sub.ID,
		CustomerName:   sub.CustomerName,
		StoredAddress:  sub.DeliveryAddress,
		Lines:          LinesFromSubscription(sub),
		Selections:     make(map[LineKey]Selection),
		AddressMode:    AddressModeCustomer,
		Status:         StatusIdle,
		OperatorID:     operatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// LineAt returns the line at the given position.
func (s *Session) LineAt(index int) (Line, error) {
	if index < 0 || index >= len(s.Lines) {
		return Line{}, fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}
	return s.Lines[index], nil
}

func (s *Session) line(key LineKey) (Line, bool) {
	if key.Index < 0 || key.Index >= len(s.Lines) {
		return Line{}, false
	}
	l := s.Lines[key.Index]
	return l, l.Key == key
}

// Select records the pharmacy for a line at that pharmacy's unit price.
// A previously recorded total is kept until RecordTotal replaces it.
func (s *Session) Select(key LineKey, pharmacy Pharmacy) error {
	if _, ok := s.line(key); !ok {
		return fmt.Errorf("%w: %s", ErrLineNotFound, key.WireKey())
	}
	offer, ok := pharmacy.OfferFor(key.ProductID)
	if !ok {
		return fmt.Errorf("%w: pharmacy %s, product %s", ErrProductNotStocked, pharmacy.ID, key.ProductID)
	}
	if s.Selections == nil {
		s.Selections = make(map[LineKey]Selection)
	}
	prev := s.Selections[key]
	s.Selections[key] = Selection{
		PharmacyID:   pharmacy.ID,
		PharmacyName: pharmacy.Name,
		Price:        offer.Price,
		Total:        prev.Total,
	}
	return nil
}

// RecordTotal sets the line total and reports whether anything changed.
// Lines without a selection are left alone.
func (s *Session) RecordTotal(key LineKey, total decimal.Decimal) bool {
	sel, ok := s.Selections[key]
	if !ok {
		return false
	}
	if sel.Total != nil && sel.Total.Equal(total) {
		return false
	}
	sel.Total = &total
	s.Selections[key] = sel
	return true
}

// SetAddress switches the delivery address mode. The custom address is kept
// as typed; it is trimmed when resolved.
func (s *Session) SetAddress(mode AddressMode, custom string) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAddressMode, mode)
	}
	s.AddressMode = mode
	s.CustomAddress = custom
	return nil
}

// MissingLines lists the lines without a selection, in line order.
func (s *Session) MissingLines() []LineKey {
	var missing []LineKey
	for _, l := range s.Lines {
		if _, ok := s.Selections[l.Key]; !ok {
			missing = append(missing, l.Key)
		}
	}
	return missing
}

// Total is the running order total over the selected lines.
func (s *Session) Total() decimal.Decimal {
	return AggregateTotal(s.Selections, s.Lines)
}

type selectionEntry struct {
	Key       LineKey   `json:"key"`
	Selection Selection `json:"selection"`
}

type sessionAlias Session

type sessionJSON struct {
	*sessionAlias
	Selections []selectionEntry `json:"selections"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	entries := make([]selectionEntry, 0, len(s.Selections))
	for _, l := range s.Lines {
		if sel, ok := s.Selections[l.Key]; ok {
			entries = append(entries, selectionEntry{Key: l.Key, Selection: sel})
		}
	}
	return json.Marshal(sessionJSON{sessionAlias: (*sessionAlias)(&s), Selections: entries})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	aux := sessionJSON{sessionAlias: (*sessionAlias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Selections = make(map[LineKey]Selection, len(aux.Selections))
	for _, e := range aux.Selections {
		s.Selections[e.Key] = e.Selection
	}
	return nil
}
