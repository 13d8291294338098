package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/config"
	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
	"github.com/hatidph/hatid-backend/pkg/outbox"
	"github.com/hatidph/hatid-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service tracks per-order milestone budgets and flags breaches.
type Service interface {
	// StartTracking seeds the tracking row for a new order. Must run inside
	// the order-creation transaction.
	StartTracking(ctx context.Context, tx *gorm.DB, order *models.Order) error
	// RecordMilestone stores the observed duration for the milestone. The
	// first write wins; replays and races are silently ignored.
	RecordMilestone(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, milestone enums.SlaMilestone, at time.Time) error
	// SweepOverdue flags milestones whose budget has elapsed without being
	// recorded. Returns the number of breaches flagged.
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
	Tracking(ctx context.Context, orderID uuid.UUID) (*models.OrderSlaTracking, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	cfg    config.SLAConfig
	logg   *logger.Logger
}

// NewService builds the milestone tracking service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, cfg config.SLAConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sla repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, cfg: cfg, logg: logg}, nil
}

// BudgetsFor returns the milestone budgets for the order type. Non-food orders
// get the longer delivery window.
func BudgetsFor(cfg config.SLAConfig, orderType enums.OrderType) models.OrderSlaTracking {
	delivery := cfg.DeliveryBudget
	if orderType != enums.OrderTypeFood {
		delivery = cfg.NonFoodDeliveryBudget
	}
	return models.OrderSlaTracking{
		AcceptanceBudgetSeconds:  int64(cfg.AcceptanceBudget.Seconds()),
		PreparationBudgetSeconds: int64(cfg.PreparationBudget.Seconds()),
		PickupBudgetSeconds:      int64(cfg.PickupBudget.Seconds()),
		DeliveryBudgetSeconds:    int64(delivery.Seconds()),
	}
}

func (s *service) StartTracking(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for sla tracking")
	}
	if order == nil || order.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	tracking := BudgetsFor(s.cfg, order.Type)
	tracking.ID = uuid.New()
	tracking.OrderID = order.ID
	if err := s.repo.WithTx(tx).Create(ctx, &tracking); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sla tracking")
	}
	return nil
}

func (s *service) RecordMilestone(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, milestone enums.SlaMilestone, at time.Time) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for sla milestone")
	}
	if !milestone.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown milestone")
	}

	repo := s.repo.WithTx(tx)
	tracking, err := repo.FindByOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sla tracking not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sla tracking")
	}

	anchor := milestoneAnchor(tracking, milestone)
	observed := int64(at.Sub(anchor).Seconds())
	if observed < 0 {
		observed = 0
	}

	recorded, err := repo.RecordMilestone(ctx, orderID, milestone, observed, at)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sla milestone")
	}
	if !recorded {
		// an earlier write owns this milestone
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("duplicate sla milestone %s ignored for order %s", milestone, orderID))
		}
		return nil
	}

	budget := milestoneBudget(tracking, milestone)
	if observed > budget {
		if err := s.flagBreach(ctx, tx, orderID, milestone, observed, budget); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.repo.FindOpen(ctx, 0)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open sla rows")
	}

	flagged := 0
	for _, row := range rows {
		for _, milestone := range enums.SlaMilestones() {
			if milestoneRecorded(&row, milestone) || milestoneBreachedFlag(&row, milestone) {
				continue
			}
			anchor := milestoneAnchor(&row, milestone)
			if milestone != enums.MilestoneVendorAcceptance && !milestoneRecorded(&row, previousMilestone(milestone)) {
				// the previous leg has not finished, its clock has not started
				continue
			}
			budget := milestoneBudget(&row, milestone)
			elapsed := int64(now.Sub(anchor).Seconds())
			if elapsed <= budget {
				continue
			}

			orderID := row.OrderID
			elapsedCopy := elapsed
			err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				return s.flagBreach(ctx, tx, orderID, milestone, elapsedCopy, budget)
			})
			if err != nil {
				return flagged, err
			}
			flagged++
		}
	}
	return flagged, nil
}

func (s *service) Tracking(ctx context.Context, orderID uuid.UUID) (*models.OrderSlaTracking, error) {
	tracking, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sla tracking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sla tracking")
	}
	return tracking, nil
}

func (s *service) flagBreach(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, milestone enums.SlaMilestone, observed, budget int64) error {
	flipped, err := s.repo.WithTx(tx).MarkBreached(ctx, orderID, milestone)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark sla breach")
	}
	if !flipped {
		return nil
	}

	if s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("sla breach flagged for order %s milestone %s", orderID, milestone))
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventSlaBreached,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Version:       1,
		Data: payloads.SlaBreachedEvent{
			OrderID:         orderID,
			Milestone:       milestone,
			ObservedSeconds: observed,
			BudgetSeconds:   budget,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

func milestoneAnchor(tracking *models.OrderSlaTracking, milestone enums.SlaMilestone) time.Time {
	switch milestone {
	case enums.MilestonePreparation:
		if tracking.AcceptedAt != nil {
			return *tracking.AcceptedAt
		}
	case enums.MilestonePickup:
		if tracking.PreparedAt != nil {
			return *tracking.PreparedAt
		}
	case enums.MilestoneDelivery:
		if tracking.PickedUpAt != nil {
			return *tracking.PickedUpAt
		}
	}
	return tracking.CreatedAt
}

func milestoneBudget(tracking *models.OrderSlaTracking, milestone enums.SlaMilestone) int64 {
	switch milestone {
	case enums.MilestoneVendorAcceptance:
		return tracking.AcceptanceBudgetSeconds
	case enums.MilestonePreparation:
		return tracking.PreparationBudgetSeconds
	case enums.MilestonePickup:
		return tracking.PickupBudgetSeconds
	default:
		return tracking.DeliveryBudgetSeconds
	}
}

func milestoneRecorded(tracking *models.OrderSlaTracking, milestone enums.SlaMilestone) bool {
	switch milestone {
	case enums.MilestoneVendorAcceptance:
		return tracking.AcceptanceSeconds != nil
	case enums.MilestonePreparation:
		return tracking.PreparationSeconds != nil
	case enums.MilestonePickup:
		return tracking.PickupSeconds != nil
	default:
		return tracking.DeliverySeconds != nil
	}
}

func milestoneBreachedFlag(tracking *models.OrderSlaTracking, milestone enums.SlaMilestone) bool {
	switch milestone {
	case enums.MilestoneVendorAcceptance:
		return tracking.AcceptanceBreached
	case enums.MilestonePreparation:
		return tracking.PreparationBreached
	case enums.MilestonePickup:
		return tracking.PickupBreached
	default:
		return tracking.DeliveryBreached
	}
}

func previousMilestone(milestone enums.SlaMilestone) enums.SlaMilestone {
	switch milestone {
	case enums.MilestonePreparation:
		return enums.MilestoneVendorAcceptance
	case enums.MilestonePickup:
		return enums.MilestonePreparation
	case enums.MilestoneDelivery:
		return enums.MilestonePickup
	default:
		return enums.MilestoneVendorAcceptance
	}
}
