package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/internal/orders"
	"github.com/hatidph/hatid-backend/pkg/config"
	dbpkg "github.com/hatidph/hatid-backend/pkg/db"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
	"github.com/hatidph/hatid-backend/pkg/metrics"
	"github.com/hatidph/hatid-backend/pkg/outbox"
	"github.com/hatidph/hatid-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives rider assignment for orders that are ready to leave the
// restaurant.
type Service interface {
	// OfferToRider proposes the order to the best available candidate. A nil
	// offer with a nil error means dispatch was parked for manual handling.
	OfferToRider(ctx context.Context, orderID uuid.UUID) (*models.RiderOffer, error)
	// OfferBatch proposes a set of orders to one specific rider.
	OfferBatch(ctx context.Context, orderIDs []uuid.UUID, riderID uuid.UUID) ([]models.RiderOffer, error)
	RecordRiderResponse(ctx context.Context, offerID, riderID uuid.UUID, accept bool, reason *string) (*models.RiderOffer, error)
	// ExpireDueOffers resolves offers past their deadline and re-offers each
	// affected order. Returns the number of offers expired.
	ExpireDueOffers(ctx context.Context, now time.Time) (int, error)
	// SweepStuckOffering re-offers orders parked in offering with no
	// outstanding offer. Returns the number of orders touched.
	SweepStuckOffering(ctx context.Context) (int, error)
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      txRunner
	outbox  outboxPublisher
	cfg     config.DispatchConfig
	metrics *metrics.DispatchMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a dispatch service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, outboxSvc outboxPublisher, cfg config.DispatchConfig, m *metrics.DispatchMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		tx:      tx,
		outbox:  outboxSvc,
		cfg:     cfg,
		metrics: m,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) OfferToRider(ctx context.Context, orderID uuid.UUID) (*models.RiderOffer, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.Status != enums.OrderStatusReady {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for dispatch")
	}
	switch order.DispatchState {
	case enums.DispatchStateAssigned:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a rider")
	case enums.DispatchStateNeedsManual:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is parked for manual dispatch")
	}

	if _, err := s.repo.FindOpenOfferByOrder(ctx, orderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an offer is already outstanding for this order")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check outstanding offer")
	}

	attempts, err := s.repo.CountAttempts(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count attempts")
	}
	if attempts >= s.cfg.MaxAttempts {
		return nil, s.parkForManualDispatch(ctx, order, attempts, "offer attempts exhausted")
	}

	candidate, err := s.nextCandidate(ctx, order)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, s.parkForManualDispatch(ctx, order, attempts, "no eligible riders in range")
	}

	now := s.now()
	offer := &models.RiderOffer{
		ID:        uuid.New(),
		OrderID:   orderID,
		RiderID:   candidate.Rider.ID,
		Status:    enums.OfferStatusOffered,
		Attempt:   attempts + 1,
		OfferedAt: now,
		ExpiresAt: now.Add(s.cfg.OfferTTL),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if order.DispatchState != enums.DispatchStateOffering {
			if err := s.orders.WithTx(tx).Update(ctx, orderID, map[string]any{
				"dispatch_state": enums.DispatchStateOffering,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order offering")
			}
		}
		if _, err := s.repo.WithTx(tx).CreateOffer(ctx, offer); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "an offer is already outstanding for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offer")
		}
		return s.outbox.Emit(ctx, tx, offerEvent(enums.EventOfferCreated, offer))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOffer("offered")
	if s.logg != nil {
		fields := map[string]any{
			"offer_id": offer.ID.String(),
			"rider_id": offer.RiderID.String(),
			"attempt":  offer.Attempt,
		}
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), fields), "offer created")
	}
	return offer, nil
}

func (s *service) OfferBatch(ctx context.Context, orderIDs []uuid.UUID, riderID uuid.UUID) ([]models.RiderOffer, error) {
	if riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider id required")
	}
	if len(orderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order required")
	}

	now := s.now()
	offers := make([]models.RiderOffer, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			continue
		}
		if order.Status != enums.OrderStatusReady || order.DispatchState == enums.DispatchStateAssigned {
			continue
		}
		if _, err := s.repo.FindOpenOfferByOrder(ctx, orderID); err == nil {
			continue
		}
		attempts, err := s.repo.CountAttempts(ctx, orderID)
		if err != nil {
			continue
		}

		offer := &models.RiderOffer{
			ID:        uuid.New(),
			OrderID:   orderID,
			RiderID:   riderID,
			Status:    enums.OfferStatusOffered,
			Attempt:   attempts + 1,
			OfferedAt: now,
			ExpiresAt: now.Add(s.cfg.OfferTTL),
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.orders.WithTx(tx).Update(ctx, orderID, map[string]any{
				"dispatch_state": enums.DispatchStateOffering,
			}); err != nil {
				return err
			}
			if _, err := s.repo.WithTx(tx).CreateOffer(ctx, offer); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, offerEvent(enums.EventOfferCreated, offer))
		})
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, orderID.String()), "batch offer skipped")
			}
			continue
		}
		s.metrics.IncOffer("offered")
		offers = append(offers, *offer)
	}
	return offers, nil
}

func (s *service) RecordRiderResponse(ctx context.Context, offerID, riderID uuid.UUID, accept bool, reason *string) (*models.RiderOffer, error) {
	if offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}
	offer, err := s.repo.FindOfferByID(ctx, offerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	if offer.RiderID != riderID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "offer belongs to another rider")
	}

	now := s.now()
	target := enums.OfferStatusRejected
	if accept {
		target = enums.OfferStatusAccepted
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{"responded_at": now}
		if !accept && reason != nil {
			updates["rejection_reason"] = *reason
		}
		resolved, err := repo.ResolveOfferGuarded(ctx, offerID, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve offer")
		}
		if !resolved {
			return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "offer already resolved or expired")
		}
		offer.Status = target
		offer.RespondedAt = &now
		offer.RejectionReason = reason

		if accept {
			if _, err := repo.ExpireOtherOffers(ctx, offer.OrderID, offerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire sibling offers")
			}
			if err := s.orders.WithTx(tx).Update(ctx, offer.OrderID, map[string]any{
				"rider_id":       offer.RiderID,
				"dispatch_state": enums.DispatchStateAssigned,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign rider")
			}
			if err := repo.AdjustRiderLoad(ctx, offer.RiderID, 1); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump rider load")
			}
			return s.outbox.Emit(ctx, tx, offerEvent(enums.EventOfferAccepted, offer))
		}
		return s.outbox.Emit(ctx, tx, offerEvent(enums.EventOfferRejected, offer))
	})
	if err != nil {
		return nil, err
	}

	if accept {
		s.metrics.IncOffer("accepted")
		s.metrics.ObserveAssignLatency(now.Sub(offer.OfferedAt))
	} else {
		s.metrics.IncOffer("rejected")
		// move straight to the next candidate
		if _, err := s.OfferToRider(ctx, offer.OrderID); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, offer.OrderID.String()), "re-offer after rejection failed")
		}
	}
	return offer, nil
}

func (s *service) ExpireDueOffers(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindDueOffers(ctx, now, 100)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find due offers")
	}

	expired := 0
	for i := range due {
		offer := due[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			resolved, err := s.repo.WithTx(tx).ResolveOfferGuarded(ctx, offer.ID, enums.OfferStatusExpired, nil)
			if err != nil {
				return err
			}
			if !resolved {
				return nil
			}
			offer.Status = enums.OfferStatusExpired
			expired++
			return s.outbox.Emit(ctx, tx, offerEvent(enums.EventOfferExpired, &offer))
		})
		if err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, offer.OrderID.String()), "expire offer failed", err)
			}
			continue
		}
		if offer.Status != enums.OfferStatusExpired {
			continue
		}
		s.metrics.IncOffer("expired")
		if _, err := s.OfferToRider(ctx, offer.OrderID); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, offer.OrderID.String()), "re-offer after expiry failed")
		}
	}
	return expired, nil
}

func (s *service) SweepStuckOffering(ctx context.Context) (int, error) {
	orderIDs, err := s.repo.FindStuckOfferingOrders(ctx, 100)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stuck orders")
	}
	touched := 0
	for _, orderID := range orderIDs {
		if _, err := s.OfferToRider(ctx, orderID); err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, orderID.String()), "sweep re-offer failed")
			}
			continue
		}
		touched++
	}
	return touched, nil
}

// nextCandidate ranks in-range riders excluding anyone who already received an
// offer for this order.
func (s *service) nextCandidate(ctx context.Context, order *models.Order) (*Candidate, error) {
	excluded, err := s.repo.FindOfferedRiderIDs(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offered riders")
	}
	excludedSet := make(map[uuid.UUID]struct{}, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = struct{}{}
	}

	riders, err := s.repo.FindCandidateRiders(ctx, order.PickupLat, order.PickupLng, s.cfg.RadiusMeters, 50)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load candidate riders")
	}

	eligible := riders[:0]
	for _, rider := range riders {
		if _, seen := excludedSet[rider.ID]; seen {
			continue
		}
		eligible = append(eligible, rider)
	}

	candidates := RankCandidates(eligible, order.PickupLat, order.PickupLng, s.cfg)
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

func (s *service) parkForManualDispatch(ctx context.Context, order *models.Order, attempts int, reason string) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Update(ctx, order.ID, map[string]any{
			"dispatch_state": enums.DispatchStateNeedsManual,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "park order")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventDispatchManualNeeded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.DispatchManualNeededEvent{
				OrderID:  order.ID,
				Attempts: attempts,
				Reason:   reason,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return err
	}
	s.metrics.IncManualDispatch()
	if s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "order parked for manual dispatch")
	}
	return nil
}

func offerEvent(eventType enums.OutboxEventType, offer *models.RiderOffer) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRiderOffer,
		AggregateID:   offer.ID,
		Version:       1,
		Data: payloads.OfferEvent{
			OfferID:   offer.ID,
			OrderID:   offer.OrderID,
			RiderID:   offer.RiderID,
			Status:    offer.Status,
			Attempt:   offer.Attempt,
			ExpiresAt: offer.ExpiresAt,
		},
	}
}
