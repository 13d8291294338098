package sla

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/config"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	"github.com/hatidph/hatid-backend/pkg/logger"
	"github.com/hatidph/hatid-backend/pkg/outbox"
	"github.com/hatidph/hatid-backend/pkg/outbox/payloads"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type capturingOutbox struct {
	events []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func testSLAConfig() config.SLAConfig {
	return config.SLAConfig{
		AcceptanceBudget:      5 * time.Minute,
		PreparationBudget:     20 * time.Minute,
		PickupBudget:          10 * time.Minute,
		DeliveryBudget:        45 * time.Minute,
		NonFoodDeliveryBudget: 60 * time.Minute,
	}
}

func newSlaService(t *testing.T, db *gorm.DB, sink *capturingOutbox) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, sink, testSLAConfig(), nil)
	require.NoError(t, err)
	return svc
}

func TestStartTrackingUsesTypeBudgets(t *testing.T) {
	db := setupSlaTestDB(t)
	sink := &capturingOutbox{}
	svc := newSlaService(t, db, sink)
	ctx := context.Background()

	food := &models.Order{ID: uuid.New(), Type: enums.OrderTypeFood}
	parcel := &models.Order{ID: uuid.New(), Type: enums.OrderTypeParcel}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := svc.StartTracking(ctx, tx, food); err != nil {
			return err
		}
		return svc.StartTracking(ctx, tx, parcel)
	}))

	repo := NewRepository(db)
	foodRow, err := repo.FindByOrder(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2700), foodRow.DeliveryBudgetSeconds)

	parcelRow, err := repo.FindByOrder(ctx, parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), parcelRow.DeliveryBudgetSeconds)
}

func TestRecordMilestoneFlagsBreachOnce(t *testing.T) {
	db := setupSlaTestDB(t)
	sink := &capturingOutbox{}
	svc := newSlaService(t, db, sink)
	ctx := context.Background()

	created := time.Now().UTC().Add(-10 * time.Minute)
	tracking := seedTracking(t, db, enums.OrderStatusPending, created)

	// acceptance arrives 10 minutes after creation against a 5 minute budget
	at := created.Add(10 * time.Minute)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordMilestone(ctx, tx, tracking.OrderID, enums.MilestoneVendorAcceptance, at)
	}))

	require.Len(t, sink.events, 1)
	assert.Equal(t, enums.EventSlaBreached, sink.events[0].EventType)
	payload, ok := sink.events[0].Data.(payloads.SlaBreachedEvent)
	require.True(t, ok)
	assert.Equal(t, enums.MilestoneVendorAcceptance, payload.Milestone)
	assert.Equal(t, int64(300), payload.BudgetSeconds)
	assert.Greater(t, payload.ObservedSeconds, payload.BudgetSeconds)

	// a replay of the same milestone is ignored and emits nothing
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordMilestone(ctx, tx, tracking.OrderID, enums.MilestoneVendorAcceptance, at.Add(time.Hour))
	}))
	assert.Len(t, sink.events, 1)
}

func TestRecordMilestoneReplayWarns(t *testing.T) {
	db := setupSlaTestDB(t)
	sink := &capturingOutbox{}
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "sla-test", Output: &logs})
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, sink, testSLAConfig(), logg)
	require.NoError(t, err)
	ctx := context.Background()

	created := time.Now().UTC().Add(-2 * time.Minute)
	tracking := seedTracking(t, db, enums.OrderStatusPending, created)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordMilestone(ctx, tx, tracking.OrderID, enums.MilestoneVendorAcceptance, created.Add(time.Minute))
	}))
	assert.NotContains(t, logs.String(), "duplicate sla milestone")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordMilestone(ctx, tx, tracking.OrderID, enums.MilestoneVendorAcceptance, created.Add(2*time.Minute))
	}))
	assert.Contains(t, logs.String(), "duplicate sla milestone")

	row, findErr := NewRepository(db).FindByOrder(ctx, tracking.OrderID)
	require.NoError(t, findErr)
	require.NotNil(t, row.AcceptanceSeconds)
	assert.Equal(t, int64(60), *row.AcceptanceSeconds)
}

func TestRecordMilestoneWithinBudgetEmitsNothing(t *testing.T) {
	db := setupSlaTestDB(t)
	sink := &capturingOutbox{}
	svc := newSlaService(t, db, sink)
	ctx := context.Background()

	created := time.Now().UTC().Add(-2 * time.Minute)
	tracking := seedTracking(t, db, enums.OrderStatusPending, created)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordMilestone(ctx, tx, tracking.OrderID, enums.MilestoneVendorAcceptance, created.Add(time.Minute))
	}))

	assert.Empty(t, sink.events)
	row, err := NewRepository(db).FindByOrder(ctx, tracking.OrderID)
	require.NoError(t, err)
	require.NotNil(t, row.AcceptanceSeconds)
	assert.Equal(t, int64(60), *row.AcceptanceSeconds)
	assert.False(t, row.AcceptanceBreached)
}

func TestSweepOverdueFlagsUnrecordedMilestones(t *testing.T) {
	db := setupSlaTestDB(t)
	sink := &capturingOutbox{}
	svc := newSlaService(t, db, sink)
	ctx := context.Background()
	now := time.Now().UTC()

	// acceptance is 10 minutes overdue
	overdue := seedTracking(t, db, enums.OrderStatusPending, now.Add(-15*time.Minute))
	// fresh order, nothing due yet
	seedTracking(t, db, enums.OrderStatusPending, now.Add(-time.Minute))

	flagged, err := svc.SweepOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	require.Len(t, sink.events, 1)
	assert.Equal(t, overdue.OrderID, sink.events[0].AggregateID)

	// second sweep is a no-op, breach flags are sticky
	flagged, err = svc.SweepOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, flagged)
	assert.Len(t, sink.events, 1)
}

func TestSweepSkipsLegsWhoseClockHasNotStarted(t *testing.T) {
	db := setupSlaTestDB(t)
	sink := &capturingOutbox{}
	svc := newSlaService(t, db, sink)
	ctx := context.Background()
	now := time.Now().UTC()

	// accepted on time two hours ago; preparation never finished
	tracking := seedTracking(t, db, enums.OrderStatusPreparing, now.Add(-2*time.Hour))
	repo := NewRepository(db)
	_, err := repo.RecordMilestone(ctx, tracking.OrderID, enums.MilestoneVendorAcceptance, 60, now.Add(-2*time.Hour).Add(time.Minute))
	require.NoError(t, err)

	flagged, err := svc.SweepOverdue(ctx, now)
	require.NoError(t, err)

	// preparation breached, but pickup and delivery clocks have not started
	assert.Equal(t, 1, flagged)
	row, err := repo.FindByOrder(ctx, tracking.OrderID)
	require.NoError(t, err)
	assert.True(t, row.PreparationBreached)
	assert.False(t, row.PickupBreached)
	assert.False(t, row.DeliveryBreached)
}
