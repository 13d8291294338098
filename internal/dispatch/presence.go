package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
)

// Heartbeats older than this stop counting toward rider availability.
const defaultPresenceTTL = 2 * time.Minute

// presenceMarker keeps a short-lived availability marker per rider.
type presenceMarker interface {
	MarkRiderSeen(ctx context.Context, riderID string, ttl time.Duration) error
}

// HeartbeatInput is one position report from a rider's device.
type HeartbeatInput struct {
	RiderID uuid.UUID
	Lat     float64
	Lng     float64
}

// Presence records rider heartbeats. The database row feeds candidate
// ranking; the redis marker is a cheap liveness signal for operations.
type Presence struct {
	repo   Repository
	marker presenceMarker
	ttl    time.Duration
	logg   *logger.Logger
	now    func() time.Time
}

// NewPresence builds the heartbeat recorder.
func NewPresence(repo Repository, marker presenceMarker, ttl time.Duration, logg *logger.Logger) (*Presence, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if marker == nil {
		return nil, fmt.Errorf("presence marker required")
	}
	if ttl <= 0 {
		ttl = defaultPresenceTTL
	}
	return &Presence{
		repo:   repo,
		marker: marker,
		ttl:    ttl,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Heartbeat stores the rider's position and refreshes the liveness marker.
// The marker write is best effort since the row is the source of truth.
func (p *Presence) Heartbeat(ctx context.Context, input HeartbeatInput) error {
	if input.RiderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rider id is required")
	}
	if input.Lat < -90 || input.Lat > 90 || input.Lng < -180 || input.Lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	found, err := p.repo.UpdateRiderPresence(ctx, input.RiderID, input.Lat, input.Lng, p.now())
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "rider not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rider presence")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "rider not found")
	}

	if err := p.marker.MarkRiderSeen(ctx, input.RiderID.String(), p.ttl); err != nil {
		if p.logg != nil {
			p.logg.Warn(p.logg.WithField(ctx, "rider_id", input.RiderID.String()), "presence marker refresh failed")
		}
	}
	return nil
}
