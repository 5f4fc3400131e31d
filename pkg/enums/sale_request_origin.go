package enums

import "fmt"

// SaleRequestOrigin records where a purchase request was raised from.
type SaleRequestOrigin string

const (
	SaleRequestOriginReservation SaleRequestOrigin = "reserva"
	SaleRequestOriginDetail      SaleRequestOrigin = "detalle"
)

var validSaleRequestOrigins = []SaleRequestOrigin{
	SaleRequestOriginReservation,
	SaleRequestOriginDetail,
}

// String implements fmt.Stringer.
func (s SaleRequestOrigin) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleRequestOrigin.
func (s SaleRequestOrigin) IsValid() bool {
	for _, candidate := range validSaleRequestOrigins {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleRequestOrigin converts raw input into a SaleRequestOrigin.
func ParseSaleRequestOrigin(value string) (SaleRequestOrigin, error) {
	for _, candidate := range validSaleRequestOrigins {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale request origin %q", value)
}
