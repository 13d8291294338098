package refunds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

func TestCalculateTiers(t *testing.T) {
	cases := []struct {
		status     enums.OrderStatus
		percentage int
		stage      enums.CancellationStage
		amount     int64
	}{
		{enums.OrderStatusPaymentPending, 100, enums.StagePreConfirmation, 1000},
		{enums.OrderStatusPending, 100, enums.StagePreConfirmation, 1000},
		{enums.OrderStatusConfirmed, 80, enums.StagePreparation, 800},
		{enums.OrderStatusPreparing, 80, enums.StagePreparation, 800},
		{enums.OrderStatusReady, 50, enums.StagePreTransit, 500},
		{enums.OrderStatusPickedUp, 50, enums.StagePreTransit, 500},
		{enums.OrderStatusInTransit, 0, enums.StageRequiresDispute, 0},
		{enums.OrderStatusDelivered, 0, enums.StageRequiresDispute, 0},
		{enums.OrderStatusCompleted, 0, enums.StageRequiresDispute, 0},
		{enums.OrderStatusCancelled, 0, enums.StageCancelled, 0},
		{enums.OrderStatus("bogus"), 0, enums.StageUnknown, 0},
	}
	for _, tc := range cases {
		quote := Calculate(1000, tc.status)
		assert.Equal(t, tc.percentage, quote.Percentage, "percentage for %s", tc.status)
		assert.Equal(t, tc.stage, quote.Stage, "stage for %s", tc.status)
		assert.Equal(t, tc.amount, quote.AmountCentavos(), "amount for %s", tc.status)
	}
}

func TestAmountCentavosRoundsHalfUpOnce(t *testing.T) {
	// 50% of 999 centavos is 499.5 and must round to 500, not truncate
	quote := Calculate(999, enums.OrderStatusReady)
	assert.Equal(t, int64(500), quote.AmountCentavos())

	// 80% of 12345 is exactly 9876
	quote = Calculate(12345, enums.OrderStatusPreparing)
	assert.Equal(t, int64(9876), quote.AmountCentavos())

	// 80% of 1234 is 987.2 and rounds down
	quote = Calculate(1234, enums.OrderStatusConfirmed)
	assert.Equal(t, int64(987), quote.AmountCentavos())
}

func TestRequiresDispute(t *testing.T) {
	disputed := map[enums.OrderStatus]bool{
		enums.OrderStatusInTransit: true,
		enums.OrderStatusDelivered: true,
		enums.OrderStatusCompleted: true,
	}
	all := []enums.OrderStatus{
		enums.OrderStatusPaymentPending,
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusPreparing,
		enums.OrderStatusReady,
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	}
	for _, status := range all {
		assert.Equal(t, disputed[status], RequiresDispute(status), "dispute flag for %s", status)
	}
}
