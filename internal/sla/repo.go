package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an SLA repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, tracking *models.OrderSlaTracking) error {
	return r.db.WithContext(ctx).Create(tracking).Error
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderSlaTracking, error) {
	var tracking models.OrderSlaTracking
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&tracking).Error
	if err != nil {
		return nil, err
	}
	return &tracking, nil
}

func milestoneColumns(milestone enums.SlaMilestone) (secondsCol, atCol, breachedCol string, err error) {
	switch milestone {
	case enums.MilestoneVendorAcceptance:
		return "acceptance_seconds", "accepted_at", "acceptance_breached", nil
	case enums.MilestonePreparation:
		return "preparation_seconds", "prepared_at", "preparation_breached", nil
	case enums.MilestonePickup:
		return "pickup_seconds", "picked_up_at", "pickup_breached", nil
	case enums.MilestoneDelivery:
		return "delivery_seconds", "delivered_at", "delivery_breached", nil
	default:
		return "", "", "", fmt.Errorf("unknown milestone %q", milestone)
	}
}

func (r *repository) RecordMilestone(ctx context.Context, orderID uuid.UUID, milestone enums.SlaMilestone, observedSeconds int64, at time.Time) (bool, error) {
	secondsCol, atCol, _, err := milestoneColumns(milestone)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&models.OrderSlaTracking{}).
		Where(fmt.Sprintf("order_id = ? AND %s IS NULL", secondsCol), orderID).
		Updates(map[string]any{
			secondsCol: observedSeconds,
			atCol:      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkBreached(ctx context.Context, orderID uuid.UUID, milestone enums.SlaMilestone) (bool, error) {
	_, _, breachedCol, err := milestoneColumns(milestone)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Model(&models.OrderSlaTracking{}).
		Where(fmt.Sprintf("order_id = ? AND %s = ?", breachedCol), orderID, false).
		Update(breachedCol, true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindOpen(ctx context.Context, limit int) ([]models.OrderSlaTracking, error) {
	if limit <= 0 {
		limit = 100
	}
	terminal := []enums.OrderStatus{
		enums.OrderStatusDelivered,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	}
	var rows []models.OrderSlaTracking
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_sla_tracking.order_id").
		Where("orders.status NOT IN ?", terminal).
		Where("acceptance_seconds IS NULL OR preparation_seconds IS NULL OR pickup_seconds IS NULL OR delivery_seconds IS NULL").
		Order("order_sla_tracking.created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
