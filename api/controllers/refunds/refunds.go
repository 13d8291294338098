package refunds

import (
	"net/http"

	"github.com/hatidph/hatid-backend/api/middleware"
	"github.com/hatidph/hatid-backend/api/responses"
	"github.com/hatidph/hatid-backend/api/validators"
	internalrefunds "github.com/hatidph/hatid-backend/internal/refunds"
	"github.com/hatidph/hatid-backend/pkg/logger"
)

type cancelRequest struct {
	Reason        *string `json:"reason,omitempty" validate:"omitempty,max=500"`
	RequestRefund bool    `json:"request_refund"`
}

type processRequest struct {
	Action         string  `json:"action" validate:"required,oneof=approve reject"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	AdjustedAmount *int64  `json:"adjusted_amount_centavos,omitempty" validate:"omitempty,min=0"`
}

// Cancel stops an order and, for paid orders, opens the refund flow. The
// response carries the refund quote so clients can show the customer what to
// expect.
func Cancel(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Cancel(ctx, internalrefunds.CancelInput{
			OrderID:           orderID,
			ActorID:           middleware.UserIDFromContext(ctx),
			ActorRole:         middleware.RoleFromContext(ctx),
			ActorRestaurantID: middleware.RestaurantIDFromContext(ctx),
			Reason:            req.Reason,
			RequestRefund:     req.RequestRefund,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Eligibility quotes the refund an order would produce if cancelled right now.
func Eligibility(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Eligibility(ctx, orderID, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Process records the admin decision on a pending refund.
func Process(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		refundID, err := validators.PathUUID(r, "refundId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req processRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		refund, err := svc.ProcessRefund(ctx, internalrefunds.ProcessInput{
			RefundID:               refundID,
			Action:                 internalrefunds.ProcessAction(req.Action),
			ActorID:                middleware.UserIDFromContext(ctx),
			Notes:                  req.Notes,
			AdjustedAmountCentavos: req.AdjustedAmount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, refund)
	}
}
