package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/internal/inventory"
	"github.com/hatidph/hatid-backend/internal/orders"
	dbpkg "github.com/hatidph/hatid-backend/pkg/db"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
	"github.com/hatidph/hatid-backend/pkg/outbox"
	"github.com/hatidph/hatid-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryReleaser returns reserved stock when an order is cancelled.
type InventoryReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, requests []inventory.ReleaseRequest) error
}

// PaymentStore reads and updates the gateway payment row for an order.
type PaymentStore interface {
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	Update(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
}

// RefundGateway pushes an approved refund to the payment provider.
type RefundGateway interface {
	InitiateRefund(ctx context.Context, gatewayPaymentID string, amountCentavos int64) (string, error)
}

// Service defines cancellation and refund operations.
type Service interface {
	// Cancel moves the order to cancelled, releases reserved stock and, when
	// the order was paid and a refund was requested, opens a pending refund.
	Cancel(ctx context.Context, input CancelInput) (*CancellationResult, error)
	ProcessRefund(ctx context.Context, input ProcessInput) (*models.Refund, error)
	Eligibility(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*EligibilityResult, error)
}

type service struct {
	repo      Repository
	orders    orders.Repository
	inventory InventoryReleaser
	payments  PaymentStore
	gateway   RefundGateway
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds a refunds service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, inv InventoryReleaser, payments PaymentStore, gateway RefundGateway, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory releaser required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment store required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("refund gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		orders:    ordersRepo,
		inventory: inv,
		payments:  payments,
		gateway:   gateway,
		tx:        tx,
		outbox:    outboxSvc,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*CancellationResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if err := authorizeCancel(order, input); err != nil {
		return nil, err
	}

	from := order.Status
	if from == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
	}
	if from.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is finished; refunds require a dispute")
	}

	quote := Calculate(order.TotalCentavos, from)
	now := s.now()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		moved, err := repo.UpdateStatusGuarded(ctx, order.ID, from, enums.OrderStatusCancelled, map[string]any{
			"canceled_at":    now,
			"dispatch_state": enums.DispatchStateNone,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		entry := &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			FromStatus:    from,
			ToStatus:      enums.OrderStatusCancelled,
			ChangedBy:     input.ActorID,
			ChangedByRole: input.ActorRole,
			Reason:        input.Reason,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		var releases []inventory.ReleaseRequest
		for _, item := range order.Items {
			if item.InventoryItemID != nil {
				releases = append(releases, inventory.ReleaseRequest{
					ItemID: *item.InventoryItemID,
					Qty:    item.Qty,
				})
			}
		}
		if len(releases) > 0 {
			if err := s.inventory.Release(ctx, tx, releases); err != nil {
				return err
			}
		}

		reason := ""
		if input.Reason != nil {
			reason = *input.Reason
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(input.ActorRole)},
			Data: payloads.OrderCancelledEvent{
				OrderID:    order.ID,
				FromStatus: from,
				Reason:     reason,
				CanceledAt: now,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	order.PreviousStatus = &from
	order.Status = enums.OrderStatusCancelled
	order.CanceledAt = &now

	result := &CancellationResult{Order: order, Quote: quote}

	if !input.RequestRefund {
		result.Eligibility = EligibilityNotRequested
		return result, nil
	}
	amount := quote.AmountCentavos()
	if order.PaymentStatus != enums.PaymentStatusPaid || amount <= 0 {
		result.Eligibility = EligibilityNotEligible
		return result, nil
	}

	// The order stays cancelled even when the refund record fails; the caller
	// sees a degraded result and support picks it up from there.
	refund, err := s.openRefund(ctx, order, input, quote, amount)
	if err != nil {
		result.Degraded = true
		result.RefundError = err.Error()
		result.Eligibility = EligibilityEligible
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "refund record creation failed", err)
		}
		return result, nil
	}
	result.Refund = refund
	result.Eligibility = EligibilityEligible
	return result, nil
}

func (s *service) openRefund(ctx context.Context, order *models.Order, input CancelInput, quote Quote, amount int64) (*models.Refund, error) {
	refund := &models.Refund{
		ID:                uuid.New(),
		OrderID:           order.ID,
		CustomerID:        order.CustomerID,
		AmountCentavos:    amount,
		Percentage:        quote.Percentage,
		CancellationStage: quote.Stage,
		Status:            enums.RefundStatusPending,
		InitiatedBy:       input.ActorID,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, refund); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "an open refund already exists for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
		}
		if err := s.orders.WithTx(tx).Update(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusRefundPending,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark refund pending")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventRefundRequested,
			AggregateType: enums.AggregateRefund,
			AggregateID:   refund.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(input.ActorRole)},
			Data:          refundPayload(refund),
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = enums.PaymentStatusRefundPending
	return refund, nil
}

func (s *service) ProcessRefund(ctx context.Context, input ProcessInput) (*models.Refund, error) {
	if input.RefundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.Action != ActionApprove && input.Action != ActionReject {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be approve or reject")
	}

	refund, err := s.repo.FindByID(ctx, input.RefundID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	if refund.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyResolved,
			fmt.Sprintf("refund is already %s", refund.Status))
	}

	order, err := s.orders.FindByID(ctx, refund.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund order")
	}

	if input.Action == ActionReject {
		return s.rejectRefund(ctx, refund, order, input)
	}
	return s.approveRefund(ctx, refund, order, input)
}

func (s *service) approveRefund(ctx context.Context, refund *models.Refund, order *models.Order, input ProcessInput) (*models.Refund, error) {
	amount := refund.AmountCentavos
	if input.AdjustedAmountCentavos != nil {
		adjusted := *input.AdjustedAmountCentavos
		if adjusted <= 0 || adjusted > refund.AmountCentavos || adjusted > order.TotalCentavos {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjusted amount exceeds the quoted refund")
		}
		amount = adjusted
	}

	payment, err := s.payments.FindByOrder(ctx, refund.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	txnID, gatewayErr := s.gateway.InitiateRefund(ctx, payment.GatewayPaymentID, amount)
	if gatewayErr != nil {
		// Keep the refund open so the decision can be retried once the
		// provider recovers.
		if _, err := s.repo.ResolveGuarded(ctx, refund.ID, enums.RefundStatusProcessing, map[string]any{
			"approved_by":     input.ActorID,
			"amount_centavos": amount,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark refund processing")
		}
		refund.Status = enums.RefundStatusProcessing
		refund.AmountCentavos = amount
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, refund.OrderID.String()), "refund gateway call failed", gatewayErr)
		}
		return refund, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resolved, err := s.repo.WithTx(tx).ResolveGuarded(ctx, refund.ID, enums.RefundStatusCompleted, map[string]any{
			"approved_by":     input.ActorID,
			"amount_centavos": amount,
			"notes":           input.Notes,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete refund")
		}
		if !resolved {
			return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "refund was decided concurrently")
		}

		ordersRepo := s.orders.WithTx(tx)
		if err := ordersRepo.Update(ctx, refund.OrderID, map[string]any{
			"payment_status": enums.PaymentStatusRefunded,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
		}
		if err := s.payments.Update(ctx, payment.ID, map[string]any{
			"refunded_centavos":     payment.RefundedCentavos + amount,
			"refund_transaction_id": txnID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment row")
		}
		if err := s.appendDecisionNote(ctx, ordersRepo, order, input, "refund approved"); err != nil {
			return err
		}

		refund.Status = enums.RefundStatusCompleted
		refund.AmountCentavos = amount
		refund.ApprovedBy = &input.ActorID
		event := outbox.DomainEvent{
			EventType:     enums.EventRefundCompleted,
			AggregateType: enums.AggregateRefund,
			AggregateID:   refund.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(enums.RoleAdmin)},
			Data:          refundPayload(refund),
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

func (s *service) rejectRefund(ctx context.Context, refund *models.Refund, order *models.Order, input ProcessInput) (*models.Refund, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resolved, err := s.repo.WithTx(tx).ResolveGuarded(ctx, refund.ID, enums.RefundStatusRejected, map[string]any{
			"rejected_by": input.ActorID,
			"notes":       input.Notes,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject refund")
		}
		if !resolved {
			return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "refund was decided concurrently")
		}

		ordersRepo := s.orders.WithTx(tx)
		if err := ordersRepo.Update(ctx, refund.OrderID, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore payment status")
		}
		if err := s.appendDecisionNote(ctx, ordersRepo, order, input, "refund rejected"); err != nil {
			return err
		}

		refund.Status = enums.RefundStatusRejected
		refund.RejectedBy = &input.ActorID
		event := outbox.DomainEvent{
			EventType:     enums.EventRefundRejected,
			AggregateType: enums.AggregateRefund,
			AggregateID:   refund.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(enums.RoleAdmin)},
			Data:          refundPayload(refund),
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// appendDecisionNote writes the synthetic from==to history row that keeps admin
// refund decisions visible on the order timeline.
func (s *service) appendDecisionNote(ctx context.Context, repo orders.Repository, order *models.Order, input ProcessInput, note string) error {
	notes := note
	if input.Notes != nil {
		notes = fmt.Sprintf("%s: %s", note, *input.Notes)
	}
	entry := &models.OrderStatusHistory{
		ID:            uuid.New(),
		OrderID:       order.ID,
		FromStatus:    order.Status,
		ToStatus:      order.Status,
		ChangedBy:     input.ActorID,
		ChangedByRole: enums.RoleAdmin,
		Notes:         &notes,
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append decision note")
	}
	return nil
}

func (s *service) Eligibility(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*EligibilityResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if role == enums.RoleCustomer && order.CustomerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}

	quote := Calculate(order.TotalCentavos, order.Status)
	result := &EligibilityResult{
		OrderID:         order.ID,
		Percentage:      quote.Percentage,
		AmountCentavos:  quote.AmountCentavos(),
		Stage:           quote.Stage,
		RequiresDispute: RequiresDispute(order.Status),
	}
	switch {
	case order.Status == enums.OrderStatusCancelled:
		result.Reason = "order is already cancelled"
	case RequiresDispute(order.Status):
		result.Reason = "order is in transit or delivered; refunds require a dispute"
	case order.PaymentStatus != enums.PaymentStatusPaid:
		result.Reason = "order has no captured payment"
	default:
		result.Reason = EligibilityEligible
	}
	return result, nil
}

func authorizeCancel(order *models.Order, input CancelInput) error {
	switch input.ActorRole {
	case enums.RoleAdmin, enums.RoleSystem:
		return nil
	case enums.RoleCustomer:
		if order.CustomerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
		if order.Status == enums.OrderStatusPickedUp {
			return pkgerrors.New(pkgerrors.CodeForbidden, "picked-up orders can only be cancelled by the restaurant or an admin")
		}
	case enums.RoleVendor:
		if input.ActorRestaurantID == nil || *input.ActorRestaurantID != order.RestaurantID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another restaurant")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role may not cancel orders")
	}
	if order.Status == enums.OrderStatusInTransit {
		return pkgerrors.New(pkgerrors.CodeForbidden, "in-transit orders can only be cancelled by an admin")
	}
	return nil
}

func refundPayload(refund *models.Refund) payloads.RefundEvent {
	return payloads.RefundEvent{
		RefundID:       refund.ID,
		OrderID:        refund.OrderID,
		CustomerID:     refund.CustomerID,
		AmountCentavos: refund.AmountCentavos,
		Percentage:     refund.Percentage,
		Stage:          refund.CancellationStage,
		Status:         refund.Status,
	}
}
