package refunds

import (
	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
)

// CancelInput is a request to cancel an order, optionally asking for a refund.
type CancelInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	// ActorRestaurantID is set for vendor actors and must match the order's
	// restaurant.
	ActorRestaurantID *uuid.UUID
	Reason            *string
	RequestRefund     bool
}

// CancellationResult reports the cancel outcome. Degraded means the order was
// cancelled but the refund record could not be written.
type CancellationResult struct {
	Order       *models.Order
	Refund      *models.Refund
	Quote       Quote
	Eligibility string
	Degraded    bool
	RefundError string
}

// Eligibility outcomes reported on cancellation and in quote lookups.
const (
	EligibilityEligible        = "eligible"
	EligibilityNotRequested    = "not_requested"
	EligibilityNotEligible     = "not_eligible"
	EligibilityRequiresDispute = "requires_dispute"
)

// ProcessAction is the admin decision on a pending refund.
type ProcessAction string

const (
	ActionApprove ProcessAction = "approve"
	ActionReject  ProcessAction = "reject"
)

// ProcessInput carries the admin decision on a refund.
type ProcessInput struct {
	RefundID uuid.UUID
	Action   ProcessAction
	ActorID  uuid.UUID
	Notes    *string
	// AdjustedAmountCentavos overrides the quoted amount on approval. Must not
	// exceed the quoted amount or the order total.
	AdjustedAmountCentavos *int64
}

// EligibilityResult is the refund quote for an order without committing anything.
type EligibilityResult struct {
	OrderID         uuid.UUID               `json:"order_id"`
	Percentage      int                     `json:"percentage"`
	AmountCentavos  int64                   `json:"amount_centavos"`
	Stage           enums.CancellationStage `json:"stage"`
	RequiresDispute bool                    `json:"requires_dispute"`
	Reason          string                  `json:"reason"`
}
