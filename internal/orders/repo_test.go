package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	"github.com/hatidph/hatid-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL,
  type TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  restaurant_id TEXT NOT NULL,
  rider_id TEXT,
  status TEXT NOT NULL,
  previous_status TEXT,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  dispatch_state TEXT NOT NULL DEFAULT 'none',
  subtotal_centavos INTEGER NOT NULL DEFAULT 0,
  delivery_fee_centavos INTEGER NOT NULL DEFAULT 0,
  service_fee_centavos INTEGER NOT NULL DEFAULT 0,
  tax_centavos INTEGER NOT NULL DEFAULT 0,
  tip_centavos INTEGER NOT NULL DEFAULT 0,
  discount_centavos INTEGER NOT NULL DEFAULT 0,
  total_centavos INTEGER NOT NULL DEFAULT 0,
  delivery_address TEXT NOT NULL DEFAULT '',
  notes TEXT,
  pickup_lat REAL NOT NULL DEFAULT 0,
  pickup_lng REAL NOT NULL DEFAULT 0,
  auto_accept_deadline DATETIME,
  committed_delivery_at DATETIME,
  delivered_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  inventory_item_id TEXT,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_centavos INTEGER NOT NULL,
  total_centavos INTEGER NOT NULL,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  changed_by TEXT NOT NULL,
  changed_by_role TEXT NOT NULL,
  reason TEXT,
  notes TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  gateway_payment_id TEXT NOT NULL,
  transaction_id TEXT,
  refund_transaction_id TEXT,
  amount_centavos INTEGER NOT NULL,
  refunded_centavos INTEGER NOT NULL DEFAULT 0,
  confirmed_at DATETIME,
  failed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

var orderSeq int64 = 100000

func seedDBOrder(t *testing.T, db *gorm.DB, customerID uuid.UUID, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	orderSeq++
	order := models.Order{
		ID:              uuid.New(),
		OrderNumber:     orderSeq,
		Type:            enums.OrderTypeFood,
		CustomerID:      customerID,
		RestaurantID:    uuid.New(),
		Status:          status,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		DispatchState:   enums.DispatchStateNone,
		TotalCentavos:   10000,
		DeliveryAddress: "88 Katipunan Ave, Quezon City",
		CreatedAt:       createdAt,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestUpdateStatusGuarded(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedDBOrder(t, db, uuid.New(), enums.OrderStatusPending, time.Now().UTC())

	moved, err := repo.UpdateStatusGuarded(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)
	assert.True(t, moved)

	// a second writer holding the stale from-status loses
	moved, err = repo.UpdateStatusGuarded(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)
	assert.False(t, moved)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, reloaded.Status)
	require.NotNil(t, reloaded.PreviousStatus)
	assert.Equal(t, enums.OrderStatusPending, *reloaded.PreviousStatus)
}

func TestUpdateStatusGuardedAppliesExtraColumns(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedDBOrder(t, db, uuid.New(), enums.OrderStatusInTransit, time.Now().UTC())
	stamp := time.Now().UTC().Truncate(time.Second)

	moved, err := repo.UpdateStatusGuarded(ctx, order.ID, enums.OrderStatusInTransit, enums.OrderStatusDelivered, map[string]any{
		"delivered_at": stamp,
	})
	require.NoError(t, err)
	assert.True(t, moved)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.DeliveredAt)
	assert.WithinDuration(t, stamp, *reloaded.DeliveredAt, time.Second)
}

func TestListByCustomerPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	customerID := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		seedDBOrder(t, db, customerID, enums.OrderStatusPending, base.Add(time.Duration(i)*time.Minute))
	}
	// another customer's order must not leak in
	seedDBOrder(t, db, uuid.New(), enums.OrderStatusPending, base)

	page1, err := repo.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page1.Orders, 2)
	require.NotEmpty(t, page1.NextCursor)
	assert.True(t, page1.Orders[0].CreatedAt.After(page1.Orders[1].CreatedAt))

	page2, err := repo.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2, Cursor: page1.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page2.Orders, 2)
	assert.True(t, page1.Orders[1].CreatedAt.After(page2.Orders[0].CreatedAt))

	page3, err := repo.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2, Cursor: page2.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page3.Orders, 1)
	assert.Empty(t, page3.NextCursor)
}

func TestListByCustomerStatusFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	customerID := uuid.New()

	now := time.Now().UTC()
	seedDBOrder(t, db, customerID, enums.OrderStatusPending, now.Add(-2*time.Minute))
	seedDBOrder(t, db, customerID, enums.OrderStatusDelivered, now.Add(-time.Minute))

	status := enums.OrderStatusDelivered
	list, err := repo.ListByCustomer(ctx, customerID, pagination.Params{}, OrderFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, enums.OrderStatusDelivered, list.Orders[0].Status)
}

func TestFindPendingPastDeadline(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	overdue := seedDBOrder(t, db, uuid.New(), enums.OrderStatusPending, now.Add(-time.Hour))
	expired := now.Add(-10 * time.Minute)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", overdue.ID).
		Update("auto_accept_deadline", expired).Error)

	fresh := seedDBOrder(t, db, uuid.New(), enums.OrderStatusPending, now)
	future := now.Add(10 * time.Minute)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", fresh.ID).
		Update("auto_accept_deadline", future).Error)

	// confirmed orders are never auto-cancelled
	confirmed := seedDBOrder(t, db, uuid.New(), enums.OrderStatusConfirmed, now.Add(-time.Hour))
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", confirmed.ID).
		Update("auto_accept_deadline", expired).Error)

	rows, err := repo.FindPendingPastDeadline(ctx, now, 50)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, overdue.ID, rows[0].ID)
}

func TestHistoryOrdering(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedDBOrder(t, db, uuid.New(), enums.OrderStatusConfirmed, time.Now().UTC())
	actor := uuid.New()

	first := &models.OrderStatusHistory{
		ID:            uuid.New(),
		OrderID:       order.ID,
		FromStatus:    enums.OrderStatusPending,
		ToStatus:      enums.OrderStatusConfirmed,
		ChangedBy:     actor,
		ChangedByRole: enums.RoleVendor,
		CreatedAt:     time.Now().UTC().Add(-time.Minute),
	}
	second := &models.OrderStatusHistory{
		ID:            uuid.New(),
		OrderID:       order.ID,
		FromStatus:    enums.OrderStatusConfirmed,
		ToStatus:      enums.OrderStatusPreparing,
		ChangedBy:     actor,
		ChangedByRole: enums.RoleVendor,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.AppendHistory(ctx, first))
	require.NoError(t, repo.AppendHistory(ctx, second))

	entries, err := repo.History(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.OrderStatusPending, entries[0].FromStatus)
	assert.Equal(t, enums.OrderStatusPreparing, entries[1].ToStatus)
}
