package enums

import "fmt"

// SaleStatus is the state of a registered sale.
type SaleStatus string

const (
	SaleStatusPaid   SaleStatus = "pagada"
	SaleStatusVoided SaleStatus = "anulada"
)

var validSaleStatuss = []SaleStatus{
	SaleStatusPaid,
	SaleStatusVoided,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuss {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
