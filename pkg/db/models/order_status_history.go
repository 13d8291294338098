package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit trail of order transitions.
// Rows are never updated or deleted; timestamps increase monotonically per order.
// Admin refund decisions append a synthetic row with FromStatus == ToStatus.
type OrderStatusHistory struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus    enums.OrderStatus `gorm:"column:from_status;type:order_status;not null"`
	ToStatus      enums.OrderStatus `gorm:"column:to_status;type:order_status;not null"`
	ChangedBy     uuid.UUID         `gorm:"column:changed_by;type:uuid;not null"`
	ChangedByRole enums.ActorRole   `gorm:"column:changed_by_role;type:actor_role;not null"`
	Reason        *string           `gorm:"column:reason"`
	Notes         *string           `gorm:"column:notes"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
