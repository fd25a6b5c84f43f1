package ordering

import "github.com/shopspring/decimal"

// PricedLine is one line of a submission.
type PricedLine struct {
	Key          LineKey
	PharmacyID   string
	PharmacyName string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
}

// Submission is the order built from a complete session.
type Submission struct {
	SubscriptionID  string
	Lines           []PricedLine
	DeliveryAddress string
	Notes           string
	Total           decimal.Decimal
}

// ValidateForSubmission checks that every line has a selection and that the
// delivery address resolves. It returns the resolved address.
func ValidateForSubmission(s *Session) (string, error) {
	missing := s.MissingLines()
	addr, addrErr := ResolveAddress(s.AddressMode, s.StoredAddress, s.CustomAddress)
	if len(missing) > 0 || addrErr != nil {
		return "", &ValidationError{MissingLines: missing, AddressErr: addrErr}
	}
	return addr, nil
}

// BuildSubmission validates the session and packages its selections.
func BuildSubmission(s *Session) (*Submission, error) {
	addr, err := ValidateForSubmission(s)
	if err != nil {
		return nil, err
	}
	sub := &Submission{
		SubscriptionID:  s.SubscriptionID,
		Lines:           make([]PricedLine, 0, len(s.Lines)),
		DeliveryAddress: addr,
		Notes:           s.Notes,
		Total:           s.Total(),
	}
	for _, l := range s.Lines {
		sel := s.Selections[l.Key]
		sub.Lines = append(sub.Lines, PricedLine{
			Key:          l.Key,
			PharmacyID:   sel.PharmacyID,
			PharmacyName: sel.PharmacyName,
			Quantity:     l.Quantity,
			UnitPrice:    sel.Price,
			TotalPrice:   LineTotal(sel, l.Quantity),
		})
	}
	return sub, nil
}
