package enums

import "fmt"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "activa"
	ReservationStatusCancelled ReservationStatus = "cancelada"
	ReservationStatusInvoiced  ReservationStatus = "facturada"
	ReservationStatusExpired   ReservationStatus = "expirada"
)

var validReservationStatuss = []ReservationStatus{
	ReservationStatusActive,
	ReservationStatusCancelled,
	ReservationStatusInvoiced,
	ReservationStatusExpired,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuss {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
