package enums

import "fmt"

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "activo"
	LoanStatusReturned LoanStatus = "devuelto"
)

var validLoanStatuss = []LoanStatus{
	LoanStatusActive,
	LoanStatusReturned,
}

// String implements fmt.Stringer.
func (l LoanStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LoanStatus.
func (l LoanStatus) IsValid() bool {
	for _, candidate := range validLoanStatuss {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLoanStatus converts raw input into a LoanStatus.
func ParseLoanStatus(value string) (LoanStatus, error) {
	for _, candidate := range validLoanStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loan status %q", value)
}
