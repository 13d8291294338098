package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hatidph/hatid-backend/pkg/logger"
)

type overdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
}

// SlaSweepJobParams configure the milestone breach sweep.
type SlaSweepJobParams struct {
	Logger *logger.Logger
	SLA    overdueSweeper
}

// NewSlaSweepJob builds the job that flags orders whose milestone budget ran
// out without the milestone being recorded.
func NewSlaSweepJob(params SlaSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.SLA == nil {
		return nil, fmt.Errorf("sla service required")
	}
	return &slaSweepJob{
		logg: params.Logger,
		sla:  params.SLA,
		now:  time.Now,
	}, nil
}

type slaSweepJob struct {
	logg *logger.Logger
	sla  overdueSweeper
	now  func() time.Time
}

func (j *slaSweepJob) Name() string { return "sla-sweep" }

func (j *slaSweepJob) Run(ctx context.Context) error {
	flagged, err := j.sla.SweepOverdue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("sweep overdue milestones: %w", err)
	}
	if flagged > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{"count": flagged})
		j.logg.Warn(logCtx, "milestone budgets breached")
	}
	return nil
}
