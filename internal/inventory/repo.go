package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.InventoryItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).Where("id IN ?", itemIDs).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindItemsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DecrementStock(ctx context.Context, itemID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET stock_qty = CASE WHEN stock_qty = ? THEN stock_qty ELSE stock_qty - ? END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND (stock_qty = ? OR stock_qty >= ?)
	`, models.UntrackedStock, qty, itemID, models.UntrackedStock, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) IncrementStock(ctx context.Context, itemID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET stock_qty = stock_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_qty <> ?
	`, qty, itemID, models.UntrackedStock).Error
}

func (r *repository) SetStock(ctx context.Context, itemID uuid.UUID, stockQty int) error {
	res := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("id = ?", itemID).
		Update("stock_qty", stockQty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindLowStock(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND stock_qty <> ? AND stock_qty <= low_stock_threshold", restaurantID, models.UntrackedStock).
		Order("stock_qty ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
