package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/internal/inventory"
	"github.com/hatidph/hatid-backend/internal/sla"
	"github.com/hatidph/hatid-backend/pkg/config"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
	"github.com/hatidph/hatid-backend/pkg/outbox"
	"github.com/hatidph/hatid-backend/pkg/outbox/payloads"
	"github.com/hatidph/hatid-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryReserver decrements stock for the order's tracked items.
type InventoryReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
}

// MilestoneTracker seeds and records per-order SLA milestones.
type MilestoneTracker interface {
	StartTracking(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RecordMilestone(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, milestone enums.SlaMilestone, at time.Time) error
}

var _ MilestoneTracker = (sla.Service)(nil)

// Service defines order lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Detail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListRestaurantOrders(ctx context.Context, restaurantID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory InventoryReserver
	tracker   MilestoneTracker
	slaCfg    config.SLAConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, inv InventoryReserver, tracker MilestoneTracker, slaCfg config.SLAConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory reserver required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("milestone tracker required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		inventory: inv,
		tracker:   tracker,
		slaCfg:    slaCfg,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var subtotal int64
	for _, item := range input.Items {
		subtotal += int64(item.Qty) * item.UnitPriceCentavos
	}
	total := subtotal + input.DeliveryFeeCentavos + input.ServiceFeeCentavos +
		input.TaxCentavos + input.TipCentavos - input.DiscountCentavos
	if total < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order total")
	}

	now := s.now()
	status := enums.OrderStatusPaymentPending
	paymentStatus := enums.PaymentStatusPending
	if input.CashOnDelivery {
		status = enums.OrderStatusPending
		paymentStatus = enums.PaymentStatusUnpaid
	}
	deadline := now.Add(s.slaCfg.AcceptanceBudget)

	order := &models.Order{
		ID:                  uuid.New(),
		Type:                input.Type,
		CustomerID:          input.CustomerID,
		RestaurantID:        input.RestaurantID,
		Status:              status,
		PaymentStatus:       paymentStatus,
		DispatchState:       enums.DispatchStateNone,
		SubtotalCentavos:    subtotal,
		DeliveryFeeCentavos: input.DeliveryFeeCentavos,
		ServiceFeeCentavos:  input.ServiceFeeCentavos,
		TaxCentavos:         input.TaxCentavos,
		TipCentavos:         input.TipCentavos,
		DiscountCentavos:    input.DiscountCentavos,
		TotalCentavos:       total,
		DeliveryAddress:     input.DeliveryAddress,
		Notes:               input.Notes,
		PickupLat:           input.PickupLat,
		PickupLng:           input.PickupLng,
		AutoAcceptDeadline:  &deadline,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var reservations []inventory.ReservationRequest
		for _, item := range input.Items {
			if item.InventoryItemID != nil {
				reservations = append(reservations, inventory.ReservationRequest{
					ItemID: *item.InventoryItemID,
					Qty:    item.Qty,
				})
			}
		}
		if len(reservations) > 0 {
			if err := s.inventory.Reserve(ctx, tx, reservations); err != nil {
				return err
			}
		}

		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		lineItems := make([]models.OrderLineItem, 0, len(input.Items))
		for _, item := range input.Items {
			lineItems = append(lineItems, models.OrderLineItem{
				ID:                uuid.New(),
				OrderID:           order.ID,
				InventoryItemID:   item.InventoryItemID,
				Name:              item.Name,
				Qty:               item.Qty,
				UnitPriceCentavos: item.UnitPriceCentavos,
				TotalCentavos:     int64(item.Qty) * item.UnitPriceCentavos,
				Notes:             item.Notes,
			})
		}
		if err := repo.CreateLineItems(ctx, lineItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}
		order.Items = lineItems

		if !input.CashOnDelivery {
			payment := &models.Payment{
				ID:               uuid.New(),
				OrderID:          order.ID,
				GatewayPaymentID: input.GatewayPaymentID,
				AmountCentavos:   total,
			}
			if _, err := repo.CreatePayment(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
			}
		}

		if err := s.tracker.StartTracking(ctx, tx, order); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.CustomerID, enums.RoleCustomer),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				Type:          order.Type,
				CustomerID:    order.CustomerID,
				RestaurantID:  order.RestaurantID,
				Status:        order.Status,
				PaymentStatus: order.PaymentStatus,
				TotalCentavos: order.TotalCentavos,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order created")
	}
	return order, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}
	if input.Target == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation for cancellations")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		from := order.Status
		if !CanTransition(from, input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", from, input.Target))
		}
		if !RoleMayTransition(from, input.Target, input.ActorRole) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor role may not perform this transition")
		}

		now := s.now()
		updates := map[string]any{}
		if input.Target == enums.OrderStatusDelivered {
			updates["delivered_at"] = now
		}

		moved, err := repo.UpdateStatusGuarded(ctx, order.ID, from, input.Target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")
		}

		entry := &models.OrderStatusHistory{
			ID:            uuid.New(),
			OrderID:       order.ID,
			FromStatus:    from,
			ToStatus:      input.Target,
			ChangedBy:     input.ActorID,
			ChangedByRole: input.ActorRole,
			Reason:        input.Reason,
			Notes:         input.Notes,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		if milestone, ok := milestoneForTransition(input.Target); ok {
			if err := s.tracker.RecordMilestone(ctx, tx, order.ID, milestone, now); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorID, input.ActorRole),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				FromStatus: from,
				ToStatus:   input.Target,
				ChangedAt:  now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if input.Target == enums.OrderStatusReady {
			ready := outbox.DomainEvent{
				EventType:     enums.EventOrderReadyForDispatch,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.OrderReadyForDispatchEvent{
					OrderID:      order.ID,
					RestaurantID: order.RestaurantID,
					ReadyAt:      now,
				},
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, ready); err != nil {
				return err
			}
		}

		order.PreviousStatus = &from
		order.Status = input.Target
		if input.Target == enums.OrderStatusDelivered {
			order.DeliveredAt = &now
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Detail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.History(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	return entries, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return list, nil
}

func (s *service) ListRestaurantOrders(ctx context.Context, restaurantID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	list, err := s.repo.ListByRestaurant(ctx, restaurantID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list restaurant orders")
	}
	return list, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order type")
	}
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.RestaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.DeliveryAddress == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}
	for _, item := range input.Items {
		if item.Name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item name required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item qty must be positive")
		}
		if item.UnitPriceCentavos < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item price cannot be negative")
		}
	}
	if input.DeliveryFeeCentavos < 0 || input.ServiceFeeCentavos < 0 ||
		input.TaxCentavos < 0 || input.TipCentavos < 0 || input.DiscountCentavos < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "money fields cannot be negative")
	}
	if !input.CashOnDelivery && input.GatewayPaymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway payment id required for prepaid orders")
	}
	return nil
}

func buildActor(userID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: userID,
		Role:   string(role),
	}
}
