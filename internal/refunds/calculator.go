package refunds

import (
	"github.com/shopspring/decimal"

	"github.com/hatidph/hatid-backend/pkg/enums"
)

// Quote is the refund owed for cancelling an order in a given status. Amount
// keeps full precision; rounding happens once in AmountCentavos.
type Quote struct {
	Percentage int
	Amount     decimal.Decimal
	Stage      enums.CancellationStage
}

// AmountCentavos rounds the quoted amount half-up to whole centavos.
func (q Quote) AmountCentavos() int64 {
	return q.Amount.Round(0).IntPart()
}

// Calculate prices a cancellation refund from the order total and the status
// the order held immediately before cancelling.
func Calculate(totalCentavos int64, status enums.OrderStatus) Quote {
	percentage, stage := refundTier(status)
	amount := decimal.NewFromInt(totalCentavos).
		Mul(decimal.NewFromInt(int64(percentage))).
		Div(decimal.NewFromInt(100))
	return Quote{
		Percentage: percentage,
		Amount:     amount,
		Stage:      stage,
	}
}

// RequiresDispute reports whether cancelling from the status needs a manual
// dispute instead of an automatic refund.
func RequiresDispute(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusInTransit, enums.OrderStatusDelivered, enums.OrderStatusCompleted:
		return true
	default:
		return false
	}
}

func refundTier(status enums.OrderStatus) (int, enums.CancellationStage) {
	switch status {
	case enums.OrderStatusPaymentPending, enums.OrderStatusPending:
		return 100, enums.StagePreConfirmation
	case enums.OrderStatusConfirmed, enums.OrderStatusPreparing:
		return 80, enums.StagePreparation
	case enums.OrderStatusReady, enums.OrderStatusPickedUp:
		return 50, enums.StagePreTransit
	case enums.OrderStatusInTransit, enums.OrderStatusDelivered, enums.OrderStatusCompleted:
		return 0, enums.StageRequiresDispute
	case enums.OrderStatusCancelled:
		return 0, enums.StageCancelled
	default:
		return 0, enums.StageUnknown
	}
}
