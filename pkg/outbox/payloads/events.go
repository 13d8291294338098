package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

// OrderCreatedEvent signals a freshly created order with its reservation done.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   int64               `json:"order_number"`
	Type          enums.OrderType     `json:"type"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	RestaurantID  uuid.UUID           `json:"restaurant_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalCentavos int64               `json:"total_centavos"`
}

// OrderStatusChangedEvent is emitted on every accepted transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// OrderCancelledEvent carries the cancellation context.
type OrderCancelledEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	Reason     string            `json:"reason,omitempty"`
	CanceledAt time.Time         `json:"canceled_at"`
}

// OrderReadyForDispatchEvent tells the dispatcher an order wants a rider.
type OrderReadyForDispatchEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	ReadyAt      time.Time `json:"ready_at"`
}

// OfferEvent covers offer lifecycle notifications (created/accepted/rejected/expired).
type OfferEvent struct {
	OfferID   uuid.UUID         `json:"offer_id"`
	OrderID   uuid.UUID         `json:"order_id"`
	RiderID   uuid.UUID         `json:"rider_id"`
	Status    enums.OfferStatus `json:"status"`
	Attempt   int               `json:"attempt"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// DispatchManualNeededEvent flags an order that exhausted automatic dispatch.
type DispatchManualNeededEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	Attempts int       `json:"attempts"`
	Reason   string    `json:"reason"`
}

// RefundEvent covers refund lifecycle notifications.
type RefundEvent struct {
	RefundID       uuid.UUID               `json:"refund_id"`
	OrderID        uuid.UUID               `json:"order_id"`
	CustomerID     uuid.UUID               `json:"customer_id"`
	AmountCentavos int64                   `json:"amount_centavos"`
	Percentage     int                     `json:"percentage"`
	Stage          enums.CancellationStage `json:"stage"`
	Status         enums.RefundStatus      `json:"status"`
}

// SlaBreachedEvent reports a milestone that exceeded its budget.
type SlaBreachedEvent struct {
	OrderID         uuid.UUID          `json:"order_id"`
	Milestone       enums.SlaMilestone `json:"milestone"`
	ObservedSeconds int64              `json:"observed_seconds"`
	BudgetSeconds   int64              `json:"budget_seconds"`
}
