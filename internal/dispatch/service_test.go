package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/internal/orders"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/outbox"
	"github.com/hatidph/hatid-backend/pkg/pagination"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type capturingOutbox struct {
	emitted  []outbox.DomainEvent
	ifAbsent []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.emitted = append(c.emitted, event)
	return nil
}

func (c *capturingOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.ifAbsent = append(c.ifAbsent, event)
	return nil
}

func (c *capturingOutbox) types() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(c.emitted))
	for _, event := range c.emitted {
		out = append(out, event.EventType)
	}
	return out
}

type stubDispatchRepo struct {
	offers      map[uuid.UUID]*models.RiderOffer
	riders      []models.Rider
	loadDeltas  map[uuid.UUID]int
	stuckOrders []uuid.UUID
	resolveOK   bool
	createErr   error
}

func newStubDispatchRepo() *stubDispatchRepo {
	return &stubDispatchRepo{
		offers:     map[uuid.UUID]*models.RiderOffer{},
		loadDeltas: map[uuid.UUID]int{},
		resolveOK:  true,
	}
}

func (r *stubDispatchRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubDispatchRepo) CreateOffer(ctx context.Context, offer *models.RiderOffer) (*models.RiderOffer, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.offers[offer.ID] = offer
	return offer, nil
}

func (r *stubDispatchRepo) FindOfferByID(ctx context.Context, offerID uuid.UUID) (*models.RiderOffer, error) {
	if offer, ok := r.offers[offerID]; ok {
		copied := *offer
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubDispatchRepo) FindOpenOfferByOrder(ctx context.Context, orderID uuid.UUID) (*models.RiderOffer, error) {
	for _, offer := range r.offers {
		if offer.OrderID == orderID && offer.Status == enums.OfferStatusOffered {
			copied := *offer
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubDispatchRepo) ResolveOfferGuarded(ctx context.Context, offerID uuid.UUID, to enums.OfferStatus, updates map[string]any) (bool, error) {
	offer, ok := r.offers[offerID]
	if !ok || !r.resolveOK || offer.Status != enums.OfferStatusOffered {
		return false, nil
	}
	offer.Status = to
	return true, nil
}

func (r *stubDispatchRepo) ExpireOtherOffers(ctx context.Context, orderID, exceptOfferID uuid.UUID) (int64, error) {
	var count int64
	for _, offer := range r.offers {
		if offer.OrderID == orderID && offer.ID != exceptOfferID && offer.Status == enums.OfferStatusOffered {
			offer.Status = enums.OfferStatusExpired
			count++
		}
	}
	return count, nil
}

func (r *stubDispatchRepo) CountAttempts(ctx context.Context, orderID uuid.UUID) (int, error) {
	count := 0
	for _, offer := range r.offers {
		if offer.OrderID == orderID {
			count++
		}
	}
	return count, nil
}

func (r *stubDispatchRepo) FindOfferedRiderIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, offer := range r.offers {
		if offer.OrderID == orderID {
			ids = append(ids, offer.RiderID)
		}
	}
	return ids, nil
}

func (r *stubDispatchRepo) FindDueOffers(ctx context.Context, now time.Time, limit int) ([]models.RiderOffer, error) {
	var due []models.RiderOffer
	for _, offer := range r.offers {
		if offer.Status == enums.OfferStatusOffered && !offer.ExpiresAt.After(now) {
			due = append(due, *offer)
		}
	}
	return due, nil
}

func (r *stubDispatchRepo) FindCandidateRiders(ctx context.Context, pickupLat, pickupLng, radiusMeters float64, limit int) ([]models.Rider, error) {
	return append([]models.Rider(nil), r.riders...), nil
}

func (r *stubDispatchRepo) AdjustRiderLoad(ctx context.Context, riderID uuid.UUID, delta int) error {
	r.loadDeltas[riderID] += delta
	return nil
}

func (r *stubDispatchRepo) UpdateRiderPresence(ctx context.Context, riderID uuid.UUID, lat, lng float64, at time.Time) (bool, error) {
	for i := range r.riders {
		if r.riders[i].ID == riderID {
			r.riders[i].Lat = lat
			r.riders[i].Lng = lng
			seen := at
			r.riders[i].LastSeenAt = &seen
			r.riders[i].Online = true
			return true, nil
		}
	}
	return false, nil
}

func (r *stubDispatchRepo) FindStuckOfferingOrders(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return r.stuckOrders, nil
}

type stubOrdersRepo struct {
	orders  map[uuid.UUID]*models.Order
	updates map[uuid.UUID]map[string]any
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{
		orders:  map[uuid.UUID]*models.Order{},
		updates: map[uuid.UUID]map[string]any{},
	}
}

func (r *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return r }

func (r *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	r.orders[order.ID] = order
	return order, nil
}

func (r *stubOrdersRepo) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	return nil
}

func (r *stubOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	return payment, nil
}

func (r *stubOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if order, ok := r.orders[orderID]; ok {
		copied := *order
		return &copied, nil
	}
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
	order, ok := r.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	merged := r.updates[orderID]
	if merged == nil {
		merged = map[string]any{}
	}
	for key, value := range updates {
		merged[key] = value
	}
	r.updates[orderID] = merged
	if state, ok := updates["dispatch_state"].(enums.DispatchState); ok {
		order.DispatchState = state
	}
	if riderID, ok := updates["rider_id"].(uuid.UUID); ok {
		order.RiderID = &riderID
	}
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

type dispatchFixture struct {
	svc        Service
	repo       *stubDispatchRepo
	ordersRepo *stubOrdersRepo
	sink       *capturingOutbox
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	repo := newStubDispatchRepo()
	ordersRepo := newStubOrdersRepo()
	sink := &capturingOutbox{}
	svc, err := NewService(repo, ordersRepo, passthroughTx{}, sink, rankingConfig(), nil, nil)
	require.NoError(t, err)
	return &dispatchFixture{svc: svc, repo: repo, ordersRepo: ordersRepo, sink: sink}
}

func (f *dispatchFixture) seedReadyOrder(t *testing.T) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		Status:        enums.OrderStatusReady,
		DispatchState: enums.DispatchStateNone,
		PickupLat:     manilaLat,
		PickupLng:     manilaLng,
	}
	f.ordersRepo.orders[order.ID] = order
	return order
}

func (f *dispatchFixture) seedRider(rating float64) models.Rider {
	rider := models.Rider{
		ID:     uuid.New(),
		Name:   "rider",
		Lat:    manilaLat + 0.005,
		Lng:    manilaLng,
		Rating: rating,
	}
	f.repo.riders = append(f.repo.riders, rider)
	return rider
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, want, coded.Code())
}

func TestOfferToRiderPicksBestCandidate(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	f.seedRider(3.0)
	best := f.seedRider(4.9)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, offer)

	assert.Equal(t, best.ID, offer.RiderID)
	assert.Equal(t, 1, offer.Attempt)
	assert.Equal(t, enums.OfferStatusOffered, offer.Status)
	assert.True(t, offer.ExpiresAt.After(offer.OfferedAt))
	assert.Equal(t, enums.DispatchStateOffering, f.ordersRepo.orders[order.ID].DispatchState)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOfferCreated}, f.sink.types())
}

func TestOfferToRiderRejectsNonReadyOrder(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	order.Status = enums.OrderStatusPreparing

	_, err := f.svc.OfferToRider(context.Background(), order.ID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestOfferToRiderRejectsAssignedOrder(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	order.DispatchState = enums.DispatchStateAssigned

	_, err := f.svc.OfferToRider(context.Background(), order.ID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestOfferToRiderConflictsOnOutstandingOffer(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	f.seedRider(4.0)

	_, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.OfferToRider(context.Background(), order.ID)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestOfferToRiderSkipsAlreadyOfferedRiders(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	first := f.seedRider(4.9)
	second := f.seedRider(3.0)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, offer.RiderID)

	reason := "too far"
	_, err = f.svc.RecordRiderResponse(context.Background(), offer.ID, first.ID, false, &reason)
	require.NoError(t, err)

	next, err := f.repo.FindOpenOfferByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, next.RiderID)
	assert.Equal(t, 2, next.Attempt)
}

func TestOfferToRiderParksForManualWhenNoCandidates(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Nil(t, offer)

	assert.Equal(t, enums.DispatchStateNeedsManual, f.ordersRepo.orders[order.ID].DispatchState)
	require.Len(t, f.sink.ifAbsent, 1)
	assert.Equal(t, enums.EventDispatchManualNeeded, f.sink.ifAbsent[0].EventType)
}

func TestOfferToRiderParksForManualAfterMaxAttempts(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)

	// Exhaust the attempt budget with resolved offers from past rounds.
	for i := 0; i < rankingConfig().MaxAttempts; i++ {
		f.repo.offers[uuid.New()] = &models.RiderOffer{
			ID:      uuid.New(),
			OrderID: order.ID,
			RiderID: uuid.New(),
			Status:  enums.OfferStatusRejected,
			Attempt: i + 1,
		}
	}
	f.seedRider(4.5)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Nil(t, offer)
	assert.Equal(t, enums.DispatchStateNeedsManual, f.ordersRepo.orders[order.ID].DispatchState)
}

func TestRecordRiderResponseAccept(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	rider := f.seedRider(4.5)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)

	accepted, err := f.svc.RecordRiderResponse(context.Background(), offer.ID, rider.ID, true, nil)
	require.NoError(t, err)

	assert.Equal(t, enums.OfferStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	got := f.ordersRepo.orders[order.ID]
	assert.Equal(t, enums.DispatchStateAssigned, got.DispatchState)
	require.NotNil(t, got.RiderID)
	assert.Equal(t, rider.ID, *got.RiderID)
	assert.Equal(t, 1, f.repo.loadDeltas[rider.ID])
	assert.Contains(t, f.sink.types(), enums.EventOfferAccepted)
}

func TestRecordRiderResponseRejectReoffers(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	first := f.seedRider(4.9)
	f.seedRider(3.5)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)

	reason := "bike trouble"
	rejected, err := f.svc.RecordRiderResponse(context.Background(), offer.ID, first.ID, false, &reason)
	require.NoError(t, err)
	assert.Equal(t, enums.OfferStatusRejected, rejected.Status)

	types := f.sink.types()
	assert.Contains(t, types, enums.EventOfferRejected)
	// the rejection immediately produced a fresh offer
	assert.Equal(t, enums.EventOfferCreated, types[len(types)-1])
}

func TestRecordRiderResponseWrongRider(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	f.seedRider(4.5)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.RecordRiderResponse(context.Background(), offer.ID, uuid.New(), true, nil)
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestRecordRiderResponseLosesRace(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	rider := f.seedRider(4.5)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)

	// the timeout sweep already resolved the offer
	f.repo.offers[offer.ID].Status = enums.OfferStatusExpired

	_, err = f.svc.RecordRiderResponse(context.Background(), offer.ID, rider.ID, true, nil)
	assertCode(t, err, pkgerrors.CodeAlreadyResolved)
}

func TestRecordRiderResponseUnknownOffer(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.svc.RecordRiderResponse(context.Background(), uuid.New(), uuid.New(), true, nil)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestExpireDueOffersReoffersNextCandidate(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	f.seedRider(4.9)
	second := f.seedRider(3.5)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)

	expired, err := f.svc.ExpireDueOffers(context.Background(), offer.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	next, err := f.repo.FindOpenOfferByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, next.RiderID)
	assert.Contains(t, f.sink.types(), enums.EventOfferExpired)
}

func TestExpireDueOffersSkipsUnexpired(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	f.seedRider(4.5)

	offer, err := f.svc.OfferToRider(context.Background(), order.ID)
	require.NoError(t, err)

	expired, err := f.svc.ExpireDueOffers(context.Background(), offer.ExpiresAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	still, err := f.repo.FindOfferByID(context.Background(), offer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OfferStatusOffered, still.Status)
}

func TestSweepStuckOffering(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.seedReadyOrder(t)
	order.DispatchState = enums.DispatchStateOffering
	f.seedRider(4.2)
	f.repo.stuckOrders = []uuid.UUID{order.ID}

	touched, err := f.svc.SweepStuckOffering(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, touched)

	open, err := f.repo.FindOpenOfferByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OfferStatusOffered, open.Status)
}

func TestOfferBatchCreatesOffersForReadyOrders(t *testing.T) {
	f := newDispatchFixture(t)
	first := f.seedReadyOrder(t)
	second := f.seedReadyOrder(t)
	assigned := f.seedReadyOrder(t)
	assigned.DispatchState = enums.DispatchStateAssigned
	rider := f.seedRider(4.5)

	offers, err := f.svc.OfferBatch(context.Background(), []uuid.UUID{first.ID, second.ID, assigned.ID}, rider.ID)
	require.NoError(t, err)

	require.Len(t, offers, 2)
	for _, offer := range offers {
		assert.Equal(t, rider.ID, offer.RiderID)
		assert.Equal(t, enums.OfferStatusOffered, offer.Status)
	}
}
