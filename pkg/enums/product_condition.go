package enums

import "fmt"

// ProductCondition describes the physical state of a listed part.
type ProductCondition string

const (
	ProductConditionNew         ProductCondition = "NEW"
	ProductConditionUsed        ProductCondition = "USED"
	ProductConditionRefurbished ProductCondition = "REFURBISHED"
)

var validProductConditions = []ProductCondition{
	ProductConditionNew,
	ProductConditionUsed,
	ProductConditionRefurbished,
}

// String implements fmt.Stringer.
func (p ProductCondition) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductCondition.
func (p ProductCondition) IsValid() bool {
	for _, candidate := range validProductConditions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCondition converts raw input into a ProductCondition.
func ParseProductCondition(value string) (ProductCondition, error) {
	for _, candidate := range validProductConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product condition %q", value)
}
