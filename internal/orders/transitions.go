package orders

import (
	"github.com/hatidph/hatid-backend/pkg/enums"
)

// allowedNext is the forward edge list of the order state machine. Cancellation
// is handled separately: any non-terminal status may move to cancelled.
var allowedNext = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPaymentPending: {enums.OrderStatusPending},
	enums.OrderStatusPending:        {enums.OrderStatusConfirmed},
	enums.OrderStatusConfirmed:      {enums.OrderStatusPreparing},
	enums.OrderStatusPreparing:      {enums.OrderStatusReady},
	enums.OrderStatusReady:          {enums.OrderStatusPickedUp},
	enums.OrderStatusPickedUp:       {enums.OrderStatusInTransit},
	enums.OrderStatusInTransit:      {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:      {enums.OrderStatusCompleted},
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	if to == enums.OrderStatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range allowedNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedNext returns the forward targets reachable from the given status.
func AllowedNext(from enums.OrderStatus) []enums.OrderStatus {
	next := make([]enums.OrderStatus, len(allowedNext[from]))
	copy(next, allowedNext[from])
	if !from.IsTerminal() {
		next = append(next, enums.OrderStatusCancelled)
	}
	return next
}

// RoleMayTransition gates each forward edge by actor role. Admin and system
// actors may drive any legal edge.
func RoleMayTransition(from, to enums.OrderStatus, role enums.ActorRole) bool {
	if role == enums.RoleAdmin || role == enums.RoleSystem {
		return true
	}
	switch {
	case from == enums.OrderStatusPaymentPending && to == enums.OrderStatusPending:
		// payment confirmation is a system-side edge
		return false
	case from == enums.OrderStatusPending && to == enums.OrderStatusConfirmed,
		from == enums.OrderStatusConfirmed && to == enums.OrderStatusPreparing,
		from == enums.OrderStatusPreparing && to == enums.OrderStatusReady:
		return role == enums.RoleVendor
	case from == enums.OrderStatusReady && to == enums.OrderStatusPickedUp,
		from == enums.OrderStatusPickedUp && to == enums.OrderStatusInTransit,
		from == enums.OrderStatusInTransit && to == enums.OrderStatusDelivered:
		return role == enums.RoleRider
	case from == enums.OrderStatusDelivered && to == enums.OrderStatusCompleted:
		return role == enums.RoleCustomer
	default:
		return false
	}
}

// milestoneForTransition maps a completed edge to the SLA milestone it closes.
func milestoneForTransition(to enums.OrderStatus) (enums.SlaMilestone, bool) {
	switch to {
	case enums.OrderStatusConfirmed:
		return enums.MilestoneVendorAcceptance, true
	case enums.OrderStatusReady:
		return enums.MilestonePreparation, true
	case enums.OrderStatusPickedUp:
		return enums.MilestonePickup, true
	case enums.OrderStatusDelivered:
		return enums.MilestoneDelivery, true
	default:
		return "", false
	}
}
