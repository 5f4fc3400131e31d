package enums

import "fmt"

// RecordStatus marks users, customers and suppliers as usable or retired.
type RecordStatus string

const (
	RecordStatusActive   RecordStatus = "activo"
	RecordStatusInactive RecordStatus = "inactivo"
)

var validRecordStatuss = []RecordStatus{
	RecordStatusActive,
	RecordStatusInactive,
}

// String implements fmt.Stringer.
func (r RecordStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecordStatus.
func (r RecordStatus) IsValid() bool {
	for _, candidate := range validRecordStatuss {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecordStatus converts raw input into a RecordStatus.
func ParseRecordStatus(value string) (RecordStatus, error) {
	for _, candidate := range validRecordStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid record status %q", value)
}
