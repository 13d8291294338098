package enums

import "fmt"

// DispatchState tracks where an order sits in the rider assignment pipeline.
type DispatchState string

const (
	DispatchStateNone        DispatchState = "none"
	DispatchStateOffering    DispatchState = "offering"
	DispatchStateAssigned    DispatchState = "assigned"
	DispatchStateNeedsManual DispatchState = "needs_manual_dispatch"
)

var validDispatchStates = []DispatchState{
	DispatchStateNone,
	DispatchStateOffering,
	DispatchStateAssigned,
	DispatchStateNeedsManual,
}

// String implements fmt.Stringer.
func (d DispatchState) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DispatchState.
func (d DispatchState) IsValid() bool {
	for _, candidate := range validDispatchStates {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDispatchState converts raw input into a DispatchState.
func ParseDispatchState(value string) (DispatchState, error) {
	for _, candidate := range validDispatchStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispatch state %q", value)
}
