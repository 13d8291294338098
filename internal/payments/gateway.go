package payments

import (
	"context"
	"fmt"

	"github.com/hatidph/hatid-backend/pkg/square"
)

// Gateway pushes refunds to the payment provider.
type Gateway interface {
	InitiateRefund(ctx context.Context, gatewayPaymentID string, amountCentavos int64) (string, error)
}

type squareGateway struct {
	client *square.Client
}

// NewSquareGateway adapts the shared Square client to the refund port.
func NewSquareGateway(client *square.Client) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &squareGateway{client: client}, nil
}

func (g *squareGateway) InitiateRefund(ctx context.Context, gatewayPaymentID string, amountCentavos int64) (string, error) {
	refund, err := g.client.RefundPayment(ctx, square.RefundParams{
		PaymentID:      gatewayPaymentID,
		AmountCentavos: amountCentavos,
		Currency:       "PHP",
		Reason:         "order cancellation refund",
	})
	if err != nil {
		return "", err
	}
	id := refund.GetID()
	if id == "" {
		return "", fmt.Errorf("square refund response missing id")
	}
	return id, nil
}
