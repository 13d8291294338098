package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatidph/hatid-backend/pkg/db/models"
	"github.com/hatidph/hatid-backend/pkg/enums"
)

// Repository defines persistence operations for offers and rider lookups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOffer(ctx context.Context, offer *models.RiderOffer) (*models.RiderOffer, error)
	FindOfferByID(ctx context.Context, offerID uuid.UUID) (*models.RiderOffer, error)
	FindOpenOfferByOrder(ctx context.Context, orderID uuid.UUID) (*models.RiderOffer, error)
	// ResolveOfferGuarded moves the offer out of offered only while it is still
	// outstanding. Returns false when the response/timeout race was lost.
	ResolveOfferGuarded(ctx context.Context, offerID uuid.UUID, to enums.OfferStatus, updates map[string]any) (bool, error)
	// ExpireOtherOffers force-expires every outstanding offer for the order
	// except the one being accepted.
	ExpireOtherOffers(ctx context.Context, orderID, exceptOfferID uuid.UUID) (int64, error)
	CountAttempts(ctx context.Context, orderID uuid.UUID) (int, error)
	FindOfferedRiderIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	FindDueOffers(ctx context.Context, now time.Time, limit int) ([]models.RiderOffer, error)
	FindCandidateRiders(ctx context.Context, pickupLat, pickupLng, radiusMeters float64, limit int) ([]models.Rider, error)
	AdjustRiderLoad(ctx context.Context, riderID uuid.UUID, delta int) error
	// UpdateRiderPresence refreshes the rider's position and last_seen_at.
	// Returns false when the rider does not exist.
	UpdateRiderPresence(ctx context.Context, riderID uuid.UUID, lat, lng float64, at time.Time) (bool, error)
	// FindStuckOfferingOrders returns orders parked in offering with no
	// outstanding offer, which the sweep re-offers.
	FindStuckOfferingOrders(ctx context.Context, limit int) ([]uuid.UUID, error)
}
