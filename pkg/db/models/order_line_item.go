package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem captures the snapshot of each item within an order.
type OrderLineItem struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	InventoryItemID   *uuid.UUID `gorm:"column:inventory_item_id;type:uuid"`
	Name              string     `gorm:"column:name;not null"`
	Qty               int        `gorm:"column:qty;not null"`
	UnitPriceCentavos int64      `gorm:"column:unit_price_centavos;not null"`
	TotalCentavos     int64      `gorm:"column:total_centavos;not null"`
	Notes             *string    `gorm:"column:notes"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
