package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
)

// Repository defines persistence operations for inventory rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
	FindItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.InventoryItem, error)
	FindItemsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error)
	// DecrementStock subtracts qty guarded by the current level. Untracked rows
	// pass the guard and keep their sentinel value. Returns false when stock
	// could not cover the request.
	DecrementStock(ctx context.Context, itemID uuid.UUID, qty int) (bool, error)
	// IncrementStock adds qty back to a tracked row. Untracked rows are left alone.
	IncrementStock(ctx context.Context, itemID uuid.UUID, qty int) error
	SetStock(ctx context.Context, itemID uuid.UUID, stockQty int) error
	FindLowStock(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error)
}
