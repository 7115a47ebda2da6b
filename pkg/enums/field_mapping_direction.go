package enums

import "fmt"

// FieldMappingDirection controls which way a Shopify field sync flows.
type FieldMappingDirection string

const (
	FieldMappingDirectionPush FieldMappingDirection = "push"
	FieldMappingDirectionPull FieldMappingDirection = "pull"
	FieldMappingDirectionBoth FieldMappingDirection = "both"
)

var validFieldMappingDirections = []FieldMappingDirection{
	FieldMappingDirectionPush,
	FieldMappingDirectionPull,
	FieldMappingDirectionBoth,
}

// String implements fmt.Stringer.
func (f FieldMappingDirection) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FieldMappingDirection.
func (f FieldMappingDirection) IsValid() bool {
	for _, candidate := range validFieldMappingDirections {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFieldMappingDirection converts raw input into a FieldMappingDirection.
func ParseFieldMappingDirection(value string) (FieldMappingDirection, error) {
	for _, candidate := range validFieldMappingDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid field mapping direction %q", value)
}
