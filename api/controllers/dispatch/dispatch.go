package dispatch

import (
	"net/http"

	"github.com/hatidph/hatid-backend/api/middleware"
	"github.com/hatidph/hatid-backend/api/responses"
	"github.com/hatidph/hatid-backend/api/validators"
	internaldispatch "github.com/hatidph/hatid-backend/internal/dispatch"
	"github.com/hatidph/hatid-backend/pkg/logger"
)

type respondRequest struct {
	Accept bool    `json:"accept"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type heartbeatRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// Heartbeat records the rider's position report.
func Heartbeat(presence *internaldispatch.Presence, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req heartbeatRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		err := presence.Heartbeat(ctx, internaldispatch.HeartbeatInput{
			RiderID: middleware.UserIDFromContext(ctx),
			Lat:     req.Lat,
			Lng:     req.Lng,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// Offer manually triggers rider matching for a ready order. A null offer in
// the response means the order was parked for manual dispatch.
func Offer(svc internaldispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offer, err := svc.OfferToRider(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// Respond records the rider's accept or reject on an outstanding offer.
func Respond(svc internaldispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offerID, err := validators.PathUUID(r, "offerId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req respondRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		offer, err := svc.RecordRiderResponse(ctx, offerID, middleware.UserIDFromContext(ctx), req.Accept, req.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}
