package enums

import "fmt"

// SlaMilestone names the lifecycle checkpoints tracked against an SLA budget.
type SlaMilestone string

const (
	MilestoneVendorAcceptance SlaMilestone = "vendor_acceptance"
	MilestonePreparation      SlaMilestone = "preparation"
	MilestonePickup           SlaMilestone = "pickup"
	MilestoneDelivery         SlaMilestone = "delivery"
)

var validSlaMilestones = []SlaMilestone{
	MilestoneVendorAcceptance,
	MilestonePreparation,
	MilestonePickup,
	MilestoneDelivery,
}

// SlaMilestones returns the milestones in lifecycle order.
func SlaMilestones() []SlaMilestone {
	out := make([]SlaMilestone, len(validSlaMilestones))
	copy(out, validSlaMilestones)
	return out
}

// String implements fmt.Stringer.
func (m SlaMilestone) String() string {
	return string(m)
}

// IsValid reports whether the value is a known SlaMilestone.
func (m SlaMilestone) IsValid() bool {
	for _, candidate := range validSlaMilestones {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseSlaMilestone converts raw input into an SlaMilestone.
func ParseSlaMilestone(value string) (SlaMilestone, error) {
	for _, candidate := range validSlaMilestones {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sla milestone %q", value)
}
