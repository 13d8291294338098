package inventory

import "github.com/google/uuid"

// ReservationRequest asks for qty units of a tracked menu item.
type ReservationRequest struct {
	ItemID uuid.UUID
	Qty    int
}

// AvailabilityResult reports whether a single item can cover the requested qty.
type AvailabilityResult struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available bool      `json:"available"`
	StockQty  int       `json:"stock_qty"`
	Reason    string    `json:"reason,omitempty"`
}

// ReleaseRequest returns previously reserved units to stock.
type ReleaseRequest struct {
	ItemID uuid.UUID
	Qty    int
}

// AdjustStockInput sets the absolute stock level for an item.
type AdjustStockInput struct {
	ItemID   uuid.UUID
	StockQty int
}
