package inventory

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/api/responses"
	"github.com/hatidph/hatid-backend/api/validators"
	internalinventory "github.com/hatidph/hatid-backend/internal/inventory"
	"github.com/hatidph/hatid-backend/pkg/logger"
)

type availabilityItem struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,min=1"`
}

type availabilityRequest struct {
	Items []availabilityItem `json:"items" validate:"required,min=1,dive"`
}

type adjustStockRequest struct {
	StockQty int `json:"stock_qty" validate:"min=-1"`
}

// CheckAvailability quotes stock coverage for a cart before checkout.
func CheckAvailability(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req availabilityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		requests := make([]internalinventory.ReservationRequest, 0, len(req.Items))
		for _, item := range req.Items {
			requests = append(requests, internalinventory.ReservationRequest{
				ItemID: item.ItemID,
				Qty:    item.Qty,
			})
		}

		results, err := svc.CheckAvailability(ctx, requests)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, results)
	}
}

// AdjustStock sets the absolute stock level for a menu item.
func AdjustStock(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		itemID, err := validators.PathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req adjustStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.AdjustStock(ctx, internalinventory.AdjustStockInput{
			ItemID:   itemID,
			StockQty: req.StockQty,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// LowStock lists a restaurant's tracked items that are running out.
func LowStock(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		restaurantID, err := validators.PathUUID(r, "restaurantId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.LowStock(ctx, restaurantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
