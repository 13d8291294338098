package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/internal/orders"
	"github.com/hatidph/hatid-backend/internal/refunds"
	"github.com/hatidph/hatid-backend/pkg/config"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
)

// Gateway webhook event shapes. Square wraps the payment inside
// data.object.payment.
type WebhookEvent struct {
	EventID string           `json:"event_id"`
	Type    string           `json:"type"`
	Data    WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	ID     string             `json:"id"`
	Object WebhookEventObject `json:"object"`
}

type WebhookEventObject struct {
	Payment WebhookPayment `json:"payment"`
}

type WebhookPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

const (
	eventPaymentUpdated = "payment.updated"
	eventPaymentCreated = "payment.created"

	paymentStatusCompleted = "COMPLETED"
	paymentStatusFailed    = "FAILED"
	paymentStatusCanceled  = "CANCELED"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderTransitioner drives the payment_pending -> pending edge.
type OrderTransitioner interface {
	Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error)
}

// OrderCanceller cancels orders whose payment failed.
type OrderCanceller interface {
	Cancel(ctx context.Context, input refunds.CancelInput) (*refunds.CancellationResult, error)
}

// Service consumes gateway payment webhooks.
type Service interface {
	HandleEvent(ctx context.Context, event *WebhookEvent) error
	PaymentConfirmed(ctx context.Context, gatewayPaymentID string) error
	PaymentFailed(ctx context.Context, gatewayPaymentID string) error
}

type service struct {
	repo       Repository
	orders     orders.Repository
	transition OrderTransitioner
	canceller  OrderCanceller
	tx         txRunner
	slaCfg     config.SLAConfig
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds a payment webhook consumer with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, transition OrderTransitioner, canceller OrderCanceller, tx txRunner, slaCfg config.SLAConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if transition == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	if canceller == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:       repo,
		orders:     ordersRepo,
		transition: transition,
		canceller:  canceller,
		tx:         tx,
		slaCfg:     slaCfg,
		logg:       logg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) HandleEvent(ctx context.Context, event *WebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}
	if event.Type != eventPaymentUpdated && event.Type != eventPaymentCreated {
		// other gateway events are none of our business
		return nil
	}
	paymentID := strings.TrimSpace(event.Data.Object.Payment.ID)
	if paymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event payment id missing")
	}

	switch event.Data.Object.Payment.Status {
	case paymentStatusCompleted:
		return s.PaymentConfirmed(ctx, paymentID)
	case paymentStatusFailed, paymentStatusCanceled:
		return s.PaymentFailed(ctx, paymentID)
	default:
		return nil
	}
}

// PaymentConfirmed marks the payment captured and opens the order for vendor
// acceptance. Replays are no-ops.
func (s *service) PaymentConfirmed(ctx context.Context, gatewayPaymentID string) error {
	payment, err := s.repo.FindByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.ConfirmedAt != nil {
		return nil
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, payment.ID, map[string]any{
			"confirmed_at":   now,
			"transaction_id": gatewayPaymentID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
		}
		if err := s.orders.WithTx(tx).Update(ctx, payment.OrderID, map[string]any{
			"payment_status":       enums.PaymentStatusPaid,
			"auto_accept_deadline": now.Add(s.slaCfg.AcceptanceBudget),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = s.transition.Transition(ctx, orders.TransitionInput{
		OrderID:   payment.OrderID,
		Target:    enums.OrderStatusPending,
		ActorID:   enums.SystemActorID,
		ActorRole: enums.RoleSystem,
	})
	if err != nil {
		// a concurrent confirmation already moved the order; the payment
		// bookkeeping above still stands
		if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeStateConflict {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, payment.OrderID.String()), "order already past payment_pending")
			}
			return nil
		}
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, payment.OrderID.String()), "payment confirmed")
	}
	return nil
}

// PaymentFailed voids the payment and cancels the order through the standard
// cancellation workflow.
func (s *service) PaymentFailed(ctx context.Context, gatewayPaymentID string) error {
	payment, err := s.repo.FindByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.FailedAt != nil {
		return nil
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, payment.ID, map[string]any{
			"failed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		return s.orders.WithTx(tx).Update(ctx, payment.OrderID, map[string]any{
			"payment_status": enums.PaymentStatusFailed,
		})
	})
	if err != nil {
		return err
	}

	reason := "payment failed at the gateway"
	_, err = s.canceller.Cancel(ctx, refunds.CancelInput{
		OrderID:   payment.OrderID,
		ActorID:   enums.SystemActorID,
		ActorRole: enums.RoleSystem,
		Reason:    &reason,
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeStateConflict {
			return nil
		}
		return err
	}

	if s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, payment.OrderID.String()), "payment failed, order cancelled")
	}
	return nil
}
