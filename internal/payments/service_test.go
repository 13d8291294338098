package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/internal/orders"
	"github.com/hatidph/hatid-backend/internal/refunds"
	"github.com/hatidph/hatid-backend/pkg/config"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/pagination"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubPaymentsRepo struct {
	payments map[string]*models.Payment
	updates  map[string]any
}

func newStubPaymentsRepo() *stubPaymentsRepo {
	return &stubPaymentsRepo{payments: map[string]*models.Payment{}}
}

func (r *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubPaymentsRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	r.payments[payment.GatewayPaymentID] = payment
	return payment, nil
}

func (r *stubPaymentsRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	for _, payment := range r.payments {
		if payment.OrderID == orderID {
			return payment, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPaymentsRepo) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	payment, ok := r.payments[gatewayPaymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payment
	return &copied, nil
}

func (r *stubPaymentsRepo) Update(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error {
	r.updates = updates
	for _, payment := range r.payments {
		if payment.ID == paymentID {
			if _, ok := updates["confirmed_at"]; ok {
				now := time.Now().UTC()
				payment.ConfirmedAt = &now
			}
			if _, ok := updates["failed_at"]; ok {
				now := time.Now().UTC()
				payment.FailedAt = &now
			}
		}
	}
	return nil
}

type stubOrdersRepo struct {
	updates map[string]any
}

func (r *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return r }
func (r *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}
func (r *stubOrdersRepo) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	return nil
}
func (r *stubOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	return payment, nil
}
func (r *stubOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubOrdersRepo) FindByOrderNumber(ctx context.Context, orderNumber int64) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubOrdersRepo) FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	return nil, nil
}
func (r *stubOrdersRepo) UpdateStatusGuarded(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	return true, nil
}
func (r *stubOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	r.updates = updates
	return nil
}
func (r *stubOrdersRepo) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return nil
}
func (r *stubOrdersRepo) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	return nil, nil
}
func (r *stubOrdersRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}
func (r *stubOrdersRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, params pagination.Params, filters orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}
func (r *stubOrdersRepo) FindPendingPastDeadline(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

type stubTransitioner struct {
	calls []orders.TransitionInput
	err   error
}

func (s *stubTransitioner) Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error) {
	s.calls = append(s.calls, input)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: input.OrderID, Status: input.Target}, nil
}

type stubCanceller struct {
	calls []refunds.CancelInput
	err   error
}

func (s *stubCanceller) Cancel(ctx context.Context, input refunds.CancelInput) (*refunds.CancellationResult, error) {
	s.calls = append(s.calls, input)
	if s.err != nil {
		return nil, s.err
	}
	return &refunds.CancellationResult{}, nil
}

type paymentsFixture struct {
	svc        Service
	repo       *stubPaymentsRepo
	orders     *stubOrdersRepo
	transition *stubTransitioner
	canceller  *stubCanceller
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()
	repo := newStubPaymentsRepo()
	ordersRepo := &stubOrdersRepo{}
	transition := &stubTransitioner{}
	canceller := &stubCanceller{}
	slaCfg := config.SLAConfig{AcceptanceBudget: 5 * time.Minute}
	svc, err := NewService(repo, ordersRepo, transition, canceller, passthroughTx{}, slaCfg, nil)
	require.NoError(t, err)
	return &paymentsFixture{
		svc:        svc,
		repo:       repo,
		orders:     ordersRepo,
		transition: transition,
		canceller:  canceller,
	}
}

func seedPayment(f *paymentsFixture, gatewayID string) *models.Payment {
	payment := &models.Payment{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		GatewayPaymentID: gatewayID,
		AmountCentavos:   5000,
	}
	f.repo.payments[gatewayID] = payment
	return payment
}

func TestPaymentConfirmed(t *testing.T) {
	f := newPaymentsFixture(t)
	payment := seedPayment(f, "sq_payment_abc")

	require.NoError(t, f.svc.PaymentConfirmed(context.Background(), "sq_payment_abc"))

	assert.Equal(t, "sq_payment_abc", f.repo.updates["transaction_id"])
	assert.Equal(t, enums.PaymentStatusPaid, f.orders.updates["payment_status"])
	_, deadlineSet := f.orders.updates["auto_accept_deadline"]
	assert.True(t, deadlineSet)

	require.Len(t, f.transition.calls, 1)
	call := f.transition.calls[0]
	assert.Equal(t, payment.OrderID, call.OrderID)
	assert.Equal(t, enums.OrderStatusPending, call.Target)
	assert.Equal(t, enums.RoleSystem, call.ActorRole)
	assert.Equal(t, enums.SystemActorID, call.ActorID)
}

func TestPaymentConfirmedReplayIsNoop(t *testing.T) {
	f := newPaymentsFixture(t)
	payment := seedPayment(f, "sq_payment_abc")
	now := time.Now().UTC()
	payment.ConfirmedAt = &now

	require.NoError(t, f.svc.PaymentConfirmed(context.Background(), "sq_payment_abc"))
	assert.Empty(t, f.transition.calls)
}

func TestPaymentConfirmedToleratesLostTransitionRace(t *testing.T) {
	f := newPaymentsFixture(t)
	seedPayment(f, "sq_payment_abc")
	f.transition.err = pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently")

	require.NoError(t, f.svc.PaymentConfirmed(context.Background(), "sq_payment_abc"))
}

func TestPaymentConfirmedUnknownPayment(t *testing.T) {
	f := newPaymentsFixture(t)

	err := f.svc.PaymentConfirmed(context.Background(), "sq_missing")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestPaymentFailedCancelsOrder(t *testing.T) {
	f := newPaymentsFixture(t)
	payment := seedPayment(f, "sq_payment_abc")

	require.NoError(t, f.svc.PaymentFailed(context.Background(), "sq_payment_abc"))

	assert.Equal(t, enums.PaymentStatusFailed, f.orders.updates["payment_status"])
	require.Len(t, f.canceller.calls, 1)
	call := f.canceller.calls[0]
	assert.Equal(t, payment.OrderID, call.OrderID)
	assert.Equal(t, enums.RoleSystem, call.ActorRole)
	assert.False(t, call.RequestRefund)
}

func TestHandleEventRouting(t *testing.T) {
	f := newPaymentsFixture(t)
	seedPayment(f, "sq_payment_abc")

	event := &WebhookEvent{
		EventID: "evt_1",
		Type:    "payment.updated",
		Data: WebhookEventData{
			Object: WebhookEventObject{
				Payment: WebhookPayment{ID: "sq_payment_abc", Status: "COMPLETED"},
			},
		},
	}
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))
	assert.Len(t, f.transition.calls, 1)

	// unrelated event types are ignored
	require.NoError(t, f.svc.HandleEvent(context.Background(), &WebhookEvent{Type: "customer.created"}))
	assert.Len(t, f.transition.calls, 1)
}
