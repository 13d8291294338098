package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderSlaTracking holds one row per order with the milestone budgets and the
// observed durations. Observed columns are nullable on purpose: nil means the
// milestone has not been recorded yet, and the first write wins.
type OrderSlaTracking struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`

	AcceptanceBudgetSeconds  int64 `gorm:"column:acceptance_budget_seconds;not null"`
	PreparationBudgetSeconds int64 `gorm:"column:preparation_budget_seconds;not null"`
	PickupBudgetSeconds      int64 `gorm:"column:pickup_budget_seconds;not null"`
	DeliveryBudgetSeconds    int64 `gorm:"column:delivery_budget_seconds;not null"`

	AcceptanceSeconds  *int64 `gorm:"column:acceptance_seconds"`
	PreparationSeconds *int64 `gorm:"column:preparation_seconds"`
	PickupSeconds      *int64 `gorm:"column:pickup_seconds"`
	DeliverySeconds    *int64 `gorm:"column:delivery_seconds"`

	AcceptedAt  *time.Time `gorm:"column:accepted_at"`
	PreparedAt  *time.Time `gorm:"column:prepared_at"`
	PickedUpAt  *time.Time `gorm:"column:picked_up_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`

	AcceptanceBreached  bool `gorm:"column:acceptance_breached;not null;default:false"`
	PreparationBreached bool `gorm:"column:preparation_breached;not null;default:false"`
	PickupBreached      bool `gorm:"column:pickup_breached;not null;default:false"`
	DeliveryBreached    bool `gorm:"column:delivery_breached;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderSlaTracking) TableName() string {
	return "order_sla_tracking"
}
