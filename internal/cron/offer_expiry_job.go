package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hatidph/hatid-backend/pkg/logger"
)

type offerExpirer interface {
	ExpireDueOffers(ctx context.Context, now time.Time) (int, error)
}

// OfferExpiryJobParams configure the offer expiry sweep.
type OfferExpiryJobParams struct {
	Logger   *logger.Logger
	Dispatch offerExpirer
}

// NewOfferExpiryJob builds the job that times out stale rider offers and
// re-offers the affected orders.
func NewOfferExpiryJob(params OfferExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatch == nil {
		return nil, fmt.Errorf("dispatch service required")
	}
	return &offerExpiryJob{
		logg:     params.Logger,
		dispatch: params.Dispatch,
		now:      time.Now,
	}, nil
}

type offerExpiryJob struct {
	logg     *logger.Logger
	dispatch offerExpirer
	now      func() time.Time
}

func (j *offerExpiryJob) Name() string { return "offer-expiry" }

func (j *offerExpiryJob) Run(ctx context.Context) error {
	expired, err := j.dispatch.ExpireDueOffers(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire due offers: %w", err)
	}
	if expired > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{"count": expired})
		j.logg.Info(logCtx, "rider offers expired")
	}
	return nil
}
