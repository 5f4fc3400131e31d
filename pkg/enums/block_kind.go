package enums

import "fmt"

// BlockKind tags why a customer is blocked. Automatic blocks belong to the
// mora engine; manual blocks are lifted only by staff.
type BlockKind string

const (
	BlockKindAutomatic BlockKind = "automatico"
	BlockKindManual    BlockKind = "manual"
)

var validBlockKinds = []BlockKind{
	BlockKindAutomatic,
	BlockKindManual,
}

// String implements fmt.Stringer.
func (b BlockKind) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BlockKind.
func (b BlockKind) IsValid() bool {
	for _, candidate := range validBlockKinds {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBlockKind converts raw input into a BlockKind.
func ParseBlockKind(value string) (BlockKind, error) {
	for _, candidate := range validBlockKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid block kind %q", value)
}
