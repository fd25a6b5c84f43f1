package ordering

import (
	"fmt"
	"strings"
)

// ResolveAddress picks the delivery address for the order. The stored
// address is returned verbatim; a custom one is trimmed and must not be empty.
func ResolveAddress(mode AddressMode, stored, custom string) (string, error) {
	switch mode {
	case AddressModeCustomer:
		return stored, nil
	case AddressModeCustom:
		addr := strings.TrimSpace(custom)
		if addr == "" {
			return "", ErrEmptyCustomAddress
		}
		return addr, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAddressMode, mode)
}
