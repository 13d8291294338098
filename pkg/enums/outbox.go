package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateRiderOffer OutboxAggregateType = "rider_offer"
	AggregateRefund     OutboxAggregateType = "refund"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateRiderOffer,
	AggregateRefund,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderReadyForDispatch OutboxEventType = "order_ready_for_dispatch"
	EventOfferCreated          OutboxEventType = "offer_created"
	EventOfferAccepted         OutboxEventType = "offer_accepted"
	EventOfferRejected         OutboxEventType = "offer_rejected"
	EventOfferExpired          OutboxEventType = "offer_expired"
	EventDispatchManualNeeded  OutboxEventType = "dispatch_manual_needed"
	EventRefundRequested       OutboxEventType = "refund_requested"
	EventRefundCompleted       OutboxEventType = "refund_completed"
	EventRefundRejected        OutboxEventType = "refund_rejected"
	EventSlaBreached           OutboxEventType = "sla_breached"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventOrderReadyForDispatch,
	EventOfferCreated,
	EventOfferAccepted,
	EventOfferRejected,
	EventOfferExpired,
	EventDispatchManualNeeded,
	EventRefundRequested,
	EventRefundCompleted,
	EventRefundRejected,
	EventSlaBreached,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
