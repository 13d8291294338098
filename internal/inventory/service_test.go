package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
)

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), nil)
	require.NoError(t, err)
	return svc
}

func TestReserveAllOrNothing(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	restaurantID := uuid.New()

	plenty := seedItem(t, db, restaurantID, "Pancit Canton", 10)
	scarce := seedItem(t, db, restaurantID, "Lechon Belly", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, []ReservationRequest{
			{ItemID: plenty.ID, Qty: 2},
			{ItemID: scarce.ID, Qty: 3},
		})
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	shortages, ok := typed.Details().([]AvailabilityResult)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, scarce.ID, shortages[0].ItemID)

	// the surrounding transaction must have rolled back the successful decrement
	var after models.InventoryItem
	require.NoError(t, db.First(&after, "id = ?", plenty.ID).Error)
	assert.Equal(t, 10, after.StockQty)
}

func TestReserveSucceedsAcrossItems(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	restaurantID := uuid.New()

	a := seedItem(t, db, restaurantID, "Sinigang", 4)
	b := seedItem(t, db, restaurantID, "Drinks", models.UntrackedStock)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, []ReservationRequest{
			{ItemID: a.ID, Qty: 4},
			{ItemID: b.ID, Qty: 12},
		})
	})
	require.NoError(t, err)

	var after models.InventoryItem
	require.NoError(t, db.First(&after, "id = ?", a.ID).Error)
	assert.Equal(t, 0, after.StockQty)
	after = models.InventoryItem{}
	require.NoError(t, db.First(&after, "id = ?", b.ID).Error)
	assert.Equal(t, models.UntrackedStock, after.StockQty)
}

func TestReserveValidatesInput(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, []ReservationRequest{{ItemID: uuid.New(), Qty: 0}})
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReleaseRestoresTrackedStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	restaurantID := uuid.New()

	item := seedItem(t, db, restaurantID, "Kare-Kare", 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Release(ctx, tx, []ReleaseRequest{
			{ItemID: item.ID, Qty: 2},
			{ItemID: uuid.New(), Qty: 1}, // unknown rows are a no-op update
		})
	})
	require.NoError(t, err)

	var after models.InventoryItem
	require.NoError(t, db.First(&after, "id = ?", item.ID).Error)
	assert.Equal(t, 5, after.StockQty)
}

func TestCheckAvailabilityReportsShortagesWithoutMutating(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	restaurantID := uuid.New()

	item := seedItem(t, db, restaurantID, "Bangus", 2)

	results, err := svc.CheckAvailability(ctx, []ReservationRequest{
		{ItemID: item.ID, Qty: 5},
		{ItemID: uuid.New(), Qty: 1},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Available)
	assert.Equal(t, 2, results[0].StockQty)
	assert.False(t, results[1].Available)
	assert.Equal(t, "item not found", results[1].Reason)

	var after models.InventoryItem
	require.NoError(t, db.First(&after, "id = ?", item.ID).Error)
	assert.Equal(t, 2, after.StockQty)
}

func TestAdjustStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	item := seedItem(t, db, uuid.New(), "Taho", 0)

	require.NoError(t, svc.AdjustStock(ctx, AdjustStockInput{ItemID: item.ID, StockQty: 25}))

	var after models.InventoryItem
	require.NoError(t, db.First(&after, "id = ?", item.ID).Error)
	assert.Equal(t, 25, after.StockQty)

	err := svc.AdjustStock(ctx, AdjustStockInput{ItemID: item.ID, StockQty: -2})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	err = svc.AdjustStock(ctx, AdjustStockInput{ItemID: uuid.New(), StockQty: 5})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
