package enums

import (
	"fmt"

	"github.com/google/uuid"
)

// ActorRole identifies which side of the marketplace the acting user belongs to.
// Authentication happens upstream; by the time a role reaches this package it is
// already resolved and trusted.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleVendor   ActorRole = "vendor"
	RoleRider    ActorRole = "rider"
	RoleAdmin    ActorRole = "admin"
	RoleSystem   ActorRole = "system"
)

// SystemActorID is the well-known identity recorded when automation (payment
// webhooks, cron sweeps) drives a transition.
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

var validActorRoles = []ActorRole{
	RoleCustomer,
	RoleVendor,
	RoleRider,
	RoleAdmin,
	RoleSystem,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
