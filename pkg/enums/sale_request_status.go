package enums

import "fmt"

// SaleRequestStatus is the lifecycle state of a customer purchase request.
type SaleRequestStatus string

const (
	SaleRequestStatusPending   SaleRequestStatus = "pendiente"
	SaleRequestStatusAttended  SaleRequestStatus = "atendida"
	SaleRequestStatusCancelled SaleRequestStatus = "cancelada"
)

var validSaleRequestStatuss = []SaleRequestStatus{
	SaleRequestStatusPending,
	SaleRequestStatusAttended,
	SaleRequestStatusCancelled,
}

// String implements fmt.Stringer.
func (s SaleRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleRequestStatus.
func (s SaleRequestStatus) IsValid() bool {
	for _, candidate := range validSaleRequestStatuss {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleRequestStatus converts raw input into a SaleRequestStatus.
func ParseSaleRequestStatus(value string) (SaleRequestStatus, error) {
	for _, candidate := range validSaleRequestStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale request status %q", value)
}
