package cron

import (
	"context"
	"fmt"

	"github.com/hatidph/hatid-backend/pkg/logger"
)

type stuckOrderSweeper interface {
	SweepStuckOffering(ctx context.Context) (int, error)
}

// DispatchSweepJobParams configure the stuck-dispatch sweep.
type DispatchSweepJobParams struct {
	Logger   *logger.Logger
	Dispatch stuckOrderSweeper
}

// NewDispatchSweepJob builds the job that re-offers orders stuck in the
// offering state without an outstanding offer. This covers the window where a
// crash landed between resolving one offer and creating the next.
func NewDispatchSweepJob(params DispatchSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatch == nil {
		return nil, fmt.Errorf("dispatch service required")
	}
	return &dispatchSweepJob{
		logg:     params.Logger,
		dispatch: params.Dispatch,
	}, nil
}

type dispatchSweepJob struct {
	logg     *logger.Logger
	dispatch stuckOrderSweeper
}

func (j *dispatchSweepJob) Name() string { return "dispatch-sweep" }

func (j *dispatchSweepJob) Run(ctx context.Context) error {
	touched, err := j.dispatch.SweepStuckOffering(ctx)
	if err != nil {
		return fmt.Errorf("sweep stuck orders: %w", err)
	}
	if touched > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{"count": touched})
		j.logg.Info(logCtx, "stuck orders re-offered")
	}
	return nil
}
