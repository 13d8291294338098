package enums

import "fmt"

// OfferStatus maps to the rider_offer_status enum in Postgres.
type OfferStatus string

const (
	OfferStatusOffered  OfferStatus = "offered"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"
)

var validOfferStatuses = []OfferStatus{
	OfferStatusOffered,
	OfferStatusAccepted,
	OfferStatusRejected,
	OfferStatusExpired,
}

// String implements fmt.Stringer.
func (o OfferStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OfferStatus.
func (o OfferStatus) IsValid() bool {
	for _, candidate := range validOfferStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsResolved reports whether the offer has left the offered state.
func (o OfferStatus) IsResolved() bool {
	return o == OfferStatusAccepted || o == OfferStatusRejected || o == OfferStatusExpired
}

// ParseOfferStatus converts raw input into an OfferStatus.
func ParseOfferStatus(value string) (OfferStatus, error) {
	for _, candidate := range validOfferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer status %q", value)
}
