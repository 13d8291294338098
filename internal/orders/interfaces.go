package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	"github.com/hatidph/hatid-backend/pkg/pagination"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber int64) (*models.Order, error)
	FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	// UpdateStatusGuarded moves the order from -> to only when the row still
	// carries the expected from status. Returns false when a concurrent
	// transition won.
	UpdateStatusGuarded(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	FindPendingPastDeadline(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
