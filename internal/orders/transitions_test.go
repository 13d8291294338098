package orders

import (
	"testing"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

var allStatuses = []enums.OrderStatus{
	enums.OrderStatusPaymentPending,
	enums.OrderStatusPending,
	enums.OrderStatusConfirmed,
	enums.OrderStatusPreparing,
	enums.OrderStatusReady,
	enums.OrderStatusPickedUp,
	enums.OrderStatusInTransit,
	enums.OrderStatusDelivered,
	enums.OrderStatusCompleted,
	enums.OrderStatusCancelled,
}

func TestCanTransitionForwardChain(t *testing.T) {
	chain := []enums.OrderStatus{
		enums.OrderStatusPaymentPending,
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusPreparing,
		enums.OrderStatusReady,
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
		enums.OrderStatusCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		if !CanTransition(chain[i], chain[i+1]) {
			t.Fatalf("expected %s -> %s to be legal", chain[i], chain[i+1])
		}
	}
}

func TestCanTransitionRejectsEverythingElse(t *testing.T) {
	legal := map[enums.OrderStatus]enums.OrderStatus{
		enums.OrderStatusPaymentPending: enums.OrderStatusPending,
		enums.OrderStatusPending:        enums.OrderStatusConfirmed,
		enums.OrderStatusConfirmed:      enums.OrderStatusPreparing,
		enums.OrderStatusPreparing:      enums.OrderStatusReady,
		enums.OrderStatusReady:          enums.OrderStatusPickedUp,
		enums.OrderStatusPickedUp:       enums.OrderStatusInTransit,
		enums.OrderStatusInTransit:      enums.OrderStatusDelivered,
		enums.OrderStatusDelivered:      enums.OrderStatusCompleted,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := legal[from] == to
			if to == enums.OrderStatusCancelled {
				want = !from.IsTerminal()
			}
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransitionCancelFromTerminal(t *testing.T) {
	for _, from := range []enums.OrderStatus{
		enums.OrderStatusDelivered,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	} {
		if CanTransition(from, enums.OrderStatusCancelled) {
			t.Fatalf("expected cancel from %s to be illegal", from)
		}
	}
}

func TestAllowedNextIncludesCancel(t *testing.T) {
	next := AllowedNext(enums.OrderStatusPreparing)
	foundReady, foundCancel := false, false
	for _, status := range next {
		switch status {
		case enums.OrderStatusReady:
			foundReady = true
		case enums.OrderStatusCancelled:
			foundCancel = true
		}
	}
	if !foundReady || !foundCancel {
		t.Fatalf("expected ready and cancelled in %v", next)
	}
	if got := AllowedNext(enums.OrderStatusCompleted); len(got) != 0 {
		t.Fatalf("expected no targets from completed, got %v", got)
	}
}

func TestRoleMayTransition(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		role     enums.ActorRole
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.RoleVendor, true},
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.RoleCustomer, false},
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.RoleRider, false},
		{enums.OrderStatusPreparing, enums.OrderStatusReady, enums.RoleVendor, true},
		{enums.OrderStatusReady, enums.OrderStatusPickedUp, enums.RoleRider, true},
		{enums.OrderStatusReady, enums.OrderStatusPickedUp, enums.RoleVendor, false},
		{enums.OrderStatusInTransit, enums.OrderStatusDelivered, enums.RoleRider, true},
		{enums.OrderStatusDelivered, enums.OrderStatusCompleted, enums.RoleCustomer, true},
		{enums.OrderStatusDelivered, enums.OrderStatusCompleted, enums.RoleRider, false},
		{enums.OrderStatusPaymentPending, enums.OrderStatusPending, enums.RoleCustomer, false},
		{enums.OrderStatusPaymentPending, enums.OrderStatusPending, enums.RoleSystem, true},
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.RoleAdmin, true},
		{enums.OrderStatusInTransit, enums.OrderStatusDelivered, enums.RoleSystem, true},
	}
	for _, tc := range cases {
		if got := RoleMayTransition(tc.from, tc.to, tc.role); got != tc.want {
			t.Errorf("RoleMayTransition(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.role, got, tc.want)
		}
	}
}

func TestMilestoneForTransition(t *testing.T) {
	cases := map[enums.OrderStatus]enums.SlaMilestone{
		enums.OrderStatusConfirmed: enums.MilestoneVendorAcceptance,
		enums.OrderStatusReady:     enums.MilestonePreparation,
		enums.OrderStatusPickedUp:  enums.MilestonePickup,
		enums.OrderStatusDelivered: enums.MilestoneDelivery,
	}
	for to, want := range cases {
		got, ok := milestoneForTransition(to)
		if !ok || got != want {
			t.Errorf("milestoneForTransition(%s) = %s, %v; want %s", to, got, ok, want)
		}
	}
	if _, ok := milestoneForTransition(enums.OrderStatusCompleted); ok {
		t.Fatal("expected no milestone for completed")
	}
}
