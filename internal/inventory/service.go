package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
)

// Service exposes stock checks and the reservation lifecycle.
type Service interface {
	CheckAvailability(ctx context.Context, requests []ReservationRequest) ([]AvailabilityResult, error)
	// Reserve decrements stock for every tracked item in requests, all or
	// nothing. It must run inside the caller's transaction so a later failure
	// rolls the decrements back.
	Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error
	// Release returns reserved units to stock. Failures are collected so one
	// bad row does not block the rest.
	Release(ctx context.Context, tx *gorm.DB, requests []ReleaseRequest) error
	AdjustStock(ctx context.Context, input AdjustStockInput) error
	LowStock(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) CheckAvailability(ctx context.Context, requests []ReservationRequest) ([]AvailabilityResult, error) {
	if err := validateRequests(requests); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.ItemID)
	}
	items, err := s.repo.FindItems(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory items")
	}
	byID := make(map[uuid.UUID]models.InventoryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	results := make([]AvailabilityResult, 0, len(requests))
	for _, req := range requests {
		item, ok := byID[req.ItemID]
		if !ok {
			results = append(results, AvailabilityResult{
				ItemID:    req.ItemID,
				Requested: req.Qty,
				Available: false,
				Reason:    "item not found",
			})
			continue
		}
		result := AvailabilityResult{
			ItemID:    item.ID,
			Name:      item.Name,
			Requested: req.Qty,
			StockQty:  item.StockQty,
			Available: true,
		}
		if item.Tracked() && item.StockQty < req.Qty {
			result.Available = false
			result.Reason = fmt.Sprintf("only %d in stock", item.StockQty)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reserve")
	}
	if err := validateRequests(requests); err != nil {
		return err
	}

	repo := s.repo.WithTx(tx)
	var shortages []AvailabilityResult
	for _, req := range requests {
		ok, err := repo.DecrementStock(ctx, req.ItemID, req.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve inventory")
		}
		if ok {
			continue
		}
		shortage := AvailabilityResult{
			ItemID:    req.ItemID,
			Requested: req.Qty,
			Available: false,
			Reason:    "item not found",
		}
		if item, ferr := repo.FindItem(ctx, req.ItemID); ferr == nil {
			shortage.Name = item.Name
			shortage.StockQty = item.StockQty
			shortage.Reason = fmt.Sprintf("only %d in stock", item.StockQty)
		}
		shortages = append(shortages, shortage)
	}
	if len(shortages) > 0 {
		// The caller's transaction rolls back the partial decrements.
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(shortages)
	}
	return nil
}

func (s *service) Release(ctx context.Context, tx *gorm.DB, requests []ReleaseRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	repo := s.repo.WithTx(tx)
	var errs error
	for _, req := range requests {
		if req.Qty <= 0 {
			continue
		}
		if err := repo.IncrementStock(ctx, req.ItemID, req.Qty); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release item %s: %w", req.ItemID, err))
		}
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "release inventory")
	}
	return nil
}

func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) error {
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.StockQty < models.UntrackedStock {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock qty must be -1 (untracked) or >= 0")
	}
	if err := s.repo.SetStock(ctx, input.ItemID, input.StockQty); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set stock")
	}
	return nil
}

func (s *service) LowStock(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	items, err := s.repo.FindLowStock(ctx, restaurantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load low stock items")
	}
	return items, nil
}

func validateRequests(requests []ReservationRequest) error {
	if len(requests) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	for _, req := range requests {
		if req.ItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
		}
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
		}
	}
	return nil
}
