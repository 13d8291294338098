package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

// Order is the canonical delivery order row. Status only moves through the
// state machine in internal/orders; money fields are immutable once the order
// is paid, except for refund bookkeeping on PaymentStatus.
type Order struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber  int64           `gorm:"column:order_number;not null;default:nextval('order_number_seq');uniqueIndex"`
	Type         enums.OrderType `gorm:"column:type;type:order_type;not null"`
	CustomerID   uuid.UUID       `gorm:"column:customer_id;type:uuid;not null"`
	RestaurantID uuid.UUID       `gorm:"column:restaurant_id;type:uuid;not null"`
	RiderID      *uuid.UUID      `gorm:"column:rider_id;type:uuid"`

	Status         enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PreviousStatus *enums.OrderStatus  `gorm:"column:previous_status;type:order_status"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	DispatchState  enums.DispatchState `gorm:"column:dispatch_state;type:dispatch_state;not null;default:'none'"`

	SubtotalCentavos    int64 `gorm:"column:subtotal_centavos;not null"`
	DeliveryFeeCentavos int64 `gorm:"column:delivery_fee_centavos;not null;default:0"`
	ServiceFeeCentavos  int64 `gorm:"column:service_fee_centavos;not null;default:0"`
	TaxCentavos         int64 `gorm:"column:tax_centavos;not null;default:0"`
	TipCentavos         int64 `gorm:"column:tip_centavos;not null;default:0"`
	DiscountCentavos    int64 `gorm:"column:discount_centavos;not null;default:0"`
	TotalCentavos       int64 `gorm:"column:total_centavos;not null"`

	DeliveryAddress string  `gorm:"column:delivery_address;not null"`
	Notes           *string `gorm:"column:notes"`

	// Pickup coordinates come from the restaurant profile at creation time and
	// feed the dispatch distance ranking.
	PickupLat float64 `gorm:"column:pickup_lat;not null;default:0"`
	PickupLng float64 `gorm:"column:pickup_lng;not null;default:0"`

	AutoAcceptDeadline  *time.Time `gorm:"column:auto_accept_deadline"`
	CommittedDeliveryAt *time.Time `gorm:"column:committed_delivery_at"`
	DeliveredAt         *time.Time `gorm:"column:delivered_at"`
	CanceledAt          *time.Time `gorm:"column:canceled_at"`

	Items   []OrderLineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Offers  []RiderOffer         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
