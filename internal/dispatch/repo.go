package dispatch

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOffer(ctx context.Context, offer *models.RiderOffer) (*models.RiderOffer, error) {
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *repository) FindOfferByID(ctx context.Context, offerID uuid.UUID) (*models.RiderOffer, error) {
	var offer models.RiderOffer
	err := r.db.WithContext(ctx).
		Where("id = ?", offerID).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindOpenOfferByOrder(ctx context.Context, orderID uuid.UUID) (*models.RiderOffer, error) {
	var offer models.RiderOffer
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.OfferStatusOffered).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) ResolveOfferGuarded(ctx context.Context, offerID uuid.UUID, to enums.OfferStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).Model(&models.RiderOffer{}).
		Where("id = ? AND status = ?", offerID, enums.OfferStatusOffered).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ExpireOtherOffers(ctx context.Context, orderID, exceptOfferID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.RiderOffer{}).
		Where("order_id = ? AND id <> ? AND status = ?", orderID, exceptOfferID, enums.OfferStatusOffered).
		Updates(map[string]any{"status": enums.OfferStatusExpired})
	return res.RowsAffected, res.Error
}

func (r *repository) CountAttempts(ctx context.Context, orderID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RiderOffer{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return int(count), err
}

func (r *repository) FindOfferedRiderIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.RiderOffer{}).
		Where("order_id = ?", orderID).
		Pluck("rider_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) FindDueOffers(ctx context.Context, now time.Time, limit int) ([]models.RiderOffer, error) {
	if limit <= 0 {
		limit = 100
	}
	var offers []models.RiderOffer
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.OfferStatusOffered, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repository) FindCandidateRiders(ctx context.Context, pickupLat, pickupLng, radiusMeters float64, limit int) ([]models.Rider, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).
		Where("online = ? AND verified = ?", true, true).
		// riders already committed to an active delivery are not candidates
		Where(`NOT EXISTS (
			SELECT 1 FROM rider_offers ro
			JOIN orders o ON o.id = ro.order_id
			WHERE ro.rider_id = riders.id
			  AND ro.status = ?
			  AND o.status NOT IN ?)`,
			enums.OfferStatusAccepted,
			[]enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCompleted, enums.OrderStatusCancelled})
	if radiusMeters > 0 {
		// cheap bounding box; the ranking applies the exact haversine cut
		latDelta := radiusMeters / 111000
		lngDelta := radiusMeters / (111000 * math.Max(math.Cos(toRadians(pickupLat)), 0.01))
		query = query.
			Where("lat BETWEEN ? AND ?", pickupLat-latDelta, pickupLat+latDelta).
			Where("lng BETWEEN ? AND ?", pickupLng-lngDelta, pickupLng+lngDelta)
	}
	var riders []models.Rider
	err := query.Limit(limit).Find(&riders).Error
	if err != nil {
		return nil, err
	}
	return riders, nil
}

func (r *repository) AdjustRiderLoad(ctx context.Context, riderID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Rider{}).
		Where("id = ?", riderID).
		Update("active_order_count", gorm.Expr("active_order_count + ?", delta)).Error
}

func (r *repository) UpdateRiderPresence(ctx context.Context, riderID uuid.UUID, lat, lng float64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Rider{}).
		Where("id = ?", riderID).
		Updates(map[string]any{
			"online":       true,
			"lat":          lat,
			"lng":          lng,
			"last_seen_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindStuckOfferingOrders(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("dispatch_state = ?", enums.DispatchStateOffering).
		Where("NOT EXISTS (SELECT 1 FROM rider_offers WHERE rider_offers.order_id = orders.id AND rider_offers.status = ?)", enums.OfferStatusOffered).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
