package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
)

// Repository defines persistence operations for refund rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, refund *models.Refund) (*models.Refund, error)
	FindByID(ctx context.Context, refundID uuid.UUID) (*models.Refund, error)
	FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error)
	ListByStatus(ctx context.Context, status enums.RefundStatus, limit int) ([]models.Refund, error)
	// ResolveGuarded moves the refund to a terminal or processing status only
	// while it is still open. Returns false when another decision won.
	ResolveGuarded(ctx context.Context, refundID uuid.UUID, to enums.RefundStatus, updates map[string]any) (bool, error)
}
