package enums

import "fmt"

// OrderType distinguishes the marketplace verticals an order can belong to.
type OrderType string

const (
	OrderTypeFood    OrderType = "food"
	OrderTypePabili  OrderType = "pabili"
	OrderTypePabayad OrderType = "pabayad"
	OrderTypeParcel  OrderType = "parcel"
)

var validOrderTypes = []OrderType{
	OrderTypeFood,
	OrderTypePabili,
	OrderTypePabayad,
	OrderTypeParcel,
}

// String implements fmt.Stringer.
func (t OrderType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OrderType.
func (t OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
