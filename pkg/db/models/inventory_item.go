package models

import (
	"time"

	"github.com/google/uuid"
)

// UntrackedStock is the sentinel stock quantity for items without stock control.
const UntrackedStock = -1

// InventoryItem tracks per-restaurant stock. StockQty of -1 means untracked;
// tracked quantities never go negative (enforced by the ledger's guarded updates).
type InventoryItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RestaurantID      uuid.UUID `gorm:"column:restaurant_id;type:uuid;not null;index"`
	Name              string    `gorm:"column:name;not null"`
	StockQty          int       `gorm:"column:stock_qty;not null;default:-1"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Tracked reports whether stock control applies to the item.
func (i InventoryItem) Tracked() bool {
	return i.StockQty != UntrackedStock
}
