package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hatidph/hatid-backend/internal/refunds"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
)

const pendingSweepBatch = 50

type pendingOrderReader interface {
	FindPendingPastDeadline(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, input refunds.CancelInput) (*refunds.CancellationResult, error)
}

// PendingOrderJobParams configure the vendor acceptance timeout sweep.
type PendingOrderJobParams struct {
	Logger    *logger.Logger
	Orders    pendingOrderReader
	Canceller orderCanceller
}

// NewPendingOrderJob builds the job that cancels orders the vendor never
// accepted. The customer is refunded in full since nothing was prepared.
func NewPendingOrderJob(params PendingOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Canceller == nil {
		return nil, fmt.Errorf("canceller required")
	}
	return &pendingOrderJob{
		logg:      params.Logger,
		orders:    params.Orders,
		canceller: params.Canceller,
		now:       time.Now,
	}, nil
}

type pendingOrderJob struct {
	logg      *logger.Logger
	orders    pendingOrderReader
	canceller orderCanceller
	now       func() time.Time
}

func (j *pendingOrderJob) Name() string { return "pending-order-sweep" }

func (j *pendingOrderJob) Run(ctx context.Context) error {
	overdue, err := j.orders.FindPendingPastDeadline(ctx, j.now().UTC(), pendingSweepBatch)
	if err != nil {
		return fmt.Errorf("query overdue pending orders: %w", err)
	}

	reason := "vendor did not accept the order in time"
	var errs error
	cancelled := 0
	for _, order := range overdue {
		result, err := j.canceller.Cancel(ctx, refunds.CancelInput{
			OrderID:       order.ID,
			ActorID:       enums.SystemActorID,
			ActorRole:     enums.RoleSystem,
			Reason:        &reason,
			RequestRefund: true,
		})
		if err != nil {
			// another worker or the customer got there first
			if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeStateConflict {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		cancelled++
		if result.Degraded {
			logCtx := j.logg.WithFields(ctx, map[string]any{"refund_error": result.RefundError})
			j.logg.Warn(j.logg.WithOrderID(logCtx, order.ID.String()), "auto-cancel refund degraded")
		}
	}

	if cancelled > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{"count": cancelled})
		j.logg.Info(logCtx, "unaccepted orders cancelled")
	}
	return errs
}
