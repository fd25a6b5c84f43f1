package ordering

import (
	"errors"
	"strings"
)

var (
	ErrLineNotFound       = errors.New("line not found")
	ErrProductNotStocked  = errors.New("pharmacy does not stock this product")
	ErrPharmacyNotFound   = errors.New("pharmacy not found")
	ErrInvalidAddressMode = errors.New("invalid delivery address mode")
	ErrEmptyCustomAddress = errors.New("custom delivery address is empty")
	ErrIncompleteOrder    = errors.New("pharmacy selection is incomplete")
)

// ValidationError blocks a submission before any upstream call is made.
type ValidationError struct {
	MissingLines []LineKey
	AddressErr   error
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingLines) > 0 {
		keys := make([]string, len(e.MissingLines))
		for i, k := range e.MissingLines {
			keys[i] = k.WireKey()
		}
		parts = append(parts, ErrIncompleteOrder.Error()+": "+strings.Join(keys, ", "))
	}
	if e.AddressErr != nil {
		parts = append(parts, e.AddressErr.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrIncompleteOrder:
		return len(e.MissingLines) > 0
	case ErrEmptyCustomAddress:
		return errors.Is(e.AddressErr, ErrEmptyCustomAddress)
	}
	return false
}
