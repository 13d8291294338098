package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

// LineItemInput describes one requested item on a new order.
type LineItemInput struct {
	InventoryItemID   *uuid.UUID
	Name              string
	Qty               int
	UnitPriceCentavos int64
	Notes             *string
}

// CreateOrderInput carries everything needed to open an order.
type CreateOrderInput struct {
	Type                enums.OrderType
	CustomerID          uuid.UUID
	RestaurantID        uuid.UUID
	DeliveryAddress     string
	Notes               *string
	PickupLat           float64
	PickupLng           float64
	Items               []LineItemInput
	DeliveryFeeCentavos int64
	ServiceFeeCentavos  int64
	TaxCentavos         int64
	TipCentavos         int64
	DiscountCentavos    int64
	// CashOnDelivery orders skip the gateway and start in pending.
	CashOnDelivery   bool
	GatewayPaymentID string
}

// TransitionInput captures a requested forward move on the state machine.
type TransitionInput struct {
	OrderID   uuid.UUID
	Target    enums.OrderStatus
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Reason    *string
	Notes     *string
}

// OrderFilters describe the inputs supported by the order lists.
type OrderFilters struct {
	Status        *enums.OrderStatus
	Type          *enums.OrderType
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderSummary exposes the aggregated fields returned in list endpoints.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   int64               `json:"order_number"`
	Type          enums.OrderType     `json:"type"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalCentavos int64               `json:"total_centavos"`
	TotalItems    int                 `json:"total_items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
