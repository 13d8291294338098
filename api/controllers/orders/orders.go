package orders

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/api/middleware"
	"github.com/hatidph/hatid-backend/api/responses"
	"github.com/hatidph/hatid-backend/api/validators"
	internalorders "github.com/hatidph/hatid-backend/internal/orders"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
	"github.com/hatidph/hatid-backend/pkg/pagination"
)

type createLineItem struct {
	InventoryItemID *uuid.UUID `json:"inventory_item_id,omitempty"`
	Name            string     `json:"name" validate:"required,max=200"`
	Qty             int        `json:"qty" validate:"required,min=1"`
	UnitPrice       int64      `json:"unit_price_centavos" validate:"min=0"`
	Notes           *string    `json:"notes,omitempty"`
}

type createOrderRequest struct {
	Type             string           `json:"type" validate:"required,oneof=food pabili pabayad parcel"`
	RestaurantID     uuid.UUID        `json:"restaurant_id" validate:"required"`
	DeliveryAddress  string           `json:"delivery_address" validate:"required,max=500"`
	Notes            *string          `json:"notes,omitempty"`
	PickupLat        float64          `json:"pickup_lat"`
	PickupLng        float64          `json:"pickup_lng"`
	Items            []createLineItem `json:"items" validate:"required,min=1,dive"`
	DeliveryFee      int64            `json:"delivery_fee_centavos" validate:"min=0"`
	ServiceFee       int64            `json:"service_fee_centavos" validate:"min=0"`
	Tax              int64            `json:"tax_centavos" validate:"min=0"`
	Tip              int64            `json:"tip_centavos" validate:"min=0"`
	Discount         int64            `json:"discount_centavos" validate:"min=0"`
	CashOnDelivery   bool             `json:"cash_on_delivery"`
	GatewayPaymentID string           `json:"gateway_payment_id,omitempty"`
}

type transitionRequest struct {
	Target string  `json:"target" validate:"required"`
	Reason *string `json:"reason,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// Create opens a new order for the acting customer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderType, err := enums.ParseOrderType(req.Type)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type"))
			return
		}

		items := make([]internalorders.LineItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, internalorders.LineItemInput{
				InventoryItemID:   item.InventoryItemID,
				Name:              item.Name,
				Qty:               item.Qty,
				UnitPriceCentavos: item.UnitPrice,
				Notes:             item.Notes,
			})
		}

		order, err := svc.CreateOrder(ctx, internalorders.CreateOrderInput{
			Type:                orderType,
			CustomerID:          middleware.UserIDFromContext(ctx),
			RestaurantID:        req.RestaurantID,
			DeliveryAddress:     req.DeliveryAddress,
			Notes:               req.Notes,
			PickupLat:           req.PickupLat,
			PickupLng:           req.PickupLng,
			Items:               items,
			DeliveryFeeCentavos: req.DeliveryFee,
			ServiceFeeCentavos:  req.ServiceFee,
			TaxCentavos:         req.Tax,
			TipCentavos:         req.Tip,
			DiscountCentavos:    req.Discount,
			CashOnDelivery:      req.CashOnDelivery,
			GatewayPaymentID:    req.GatewayPaymentID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Transition moves an order one step forward in the lifecycle.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(req.Target)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.Transition(ctx, internalorders.TransitionInput{
			OrderID:   orderID,
			Target:    target,
			ActorID:   middleware.UserIDFromContext(ctx),
			ActorRole: middleware.RoleFromContext(ctx),
			Reason:    req.Reason,
			Notes:     req.Notes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Detail returns the full order once the actor's claim on it checks out.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		order, err := svc.Detail(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := authorizeOrderAccess(ctx, order); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// History returns the full transition audit trail for an order.
func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		order, err := svc.Detail(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := authorizeOrderAccess(ctx, order); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		history, err := svc.History(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// ListMine pages through the acting customer's orders.
func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, filters, err := listInputs(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.ListCustomerOrders(ctx, middleware.UserIDFromContext(ctx), params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListRestaurant pages through a restaurant's orders for its vendor.
func ListRestaurant(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		restaurantID, err := validators.PathUUID(r, "restaurantId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		role := middleware.RoleFromContext(ctx)
		if role == enums.RoleVendor {
			owned := middleware.RestaurantIDFromContext(ctx)
			if owned == nil || *owned != restaurantID {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "restaurant does not belong to this vendor"))
				return
			}
		}

		params, filters, err := listInputs(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.ListRestaurantOrders(ctx, restaurantID, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func listInputs(r *http.Request) (pagination.Params, internalorders.OrderFilters, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, internalorders.OrderFilters{}, err
	}
	params := pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	var filters internalorders.OrderFilters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		orderType, err := enums.ParseOrderType(raw)
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		filters.Type = &orderType
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("date_from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_from")
		}
		filters.DateFrom = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("date_to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date_to")
		}
		filters.DateTo = &to
	}
	return params, filters, nil
}

// authorizeOrderAccess enforces each role's claim on an order: customers see
// their own, vendors their restaurant's, riders their assignments.
func authorizeOrderAccess(ctx context.Context, order *models.Order) error {
	userID := middleware.UserIDFromContext(ctx)
	switch middleware.RoleFromContext(ctx) {
	case enums.RoleAdmin, enums.RoleSystem:
		return nil
	case enums.RoleCustomer:
		if order.CustomerID == userID {
			return nil
		}
	case enums.RoleVendor:
		if owned := middleware.RestaurantIDFromContext(ctx); owned != nil && *owned == order.RestaurantID {
			return nil
		}
	case enums.RoleRider:
		if order.RiderID != nil && *order.RiderID == userID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to this actor")
}
