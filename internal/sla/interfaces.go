package sla

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
)

// Repository defines persistence operations for milestone tracking rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tracking *models.OrderSlaTracking) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderSlaTracking, error)
	// RecordMilestone writes the observed duration and timestamp for the
	// milestone only when it has not been recorded yet. Returns false when an
	// earlier write already owns the column.
	RecordMilestone(ctx context.Context, orderID uuid.UUID, milestone enums.SlaMilestone, observedSeconds int64, at time.Time) (bool, error)
	// MarkBreached flips the breach flag for the milestone. Returns false when
	// the flag was already set, so breach events fire exactly once.
	MarkBreached(ctx context.Context, orderID uuid.UUID, milestone enums.SlaMilestone) (bool, error)
	// FindOpen returns tracking rows that still have unrecorded milestones.
	FindOpen(ctx context.Context, limit int) ([]models.OrderSlaTracking, error)
}
