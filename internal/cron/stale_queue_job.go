package cron

import (
	"context"
	"fmt"

	"github.com/okanvural/pickflow-backend/pkg/logger"
	"go.uber.org/multierr"
)

// StaleQueueJobParams configure the pick queue sweep.
type StaleQueueJobParams struct {
	Logger     *logger.Logger
	Repository staleQueueRepo
}

type staleQueueRepo interface {
	DeleteStaleQueueEntries(ctx context.Context) (int64, error)
	DeleteOrphanQueueEntries(ctx context.Context) (int64, error)
}

// NewStaleQueueJob builds the cron job that removes pick queue entries
// left behind by orders that already moved on.
func NewStaleQueueJob(params StaleQueueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &staleQueueJob{
		logg: params.Logger,
		repo: params.Repository,
	}, nil
}

type staleQueueJob struct {
	logg *logger.Logger
	repo staleQueueRepo
}

func (j *staleQueueJob) Name() string { return "stale-queue" }

func (j *staleQueueJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.sweepInactive(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.sweepOrphans(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

// sweepInactive drops accumulator rows for orders that are no longer in
// the picking state.
func (j *staleQueueJob) sweepInactive(ctx context.Context) error {
	deleted, err := j.repo.DeleteStaleQueueEntries(ctx)
	if err != nil {
		return fmt.Errorf("sweep inactive queue entries: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"rows_deleted": deleted})
	j.logg.Info(logCtx, "inactive pick queue sweep complete")
	return nil
}

// sweepOrphans drops accumulator rows whose order row is gone entirely.
func (j *staleQueueJob) sweepOrphans(ctx context.Context) error {
	deleted, err := j.repo.DeleteOrphanQueueEntries(ctx)
	if err != nil {
		return fmt.Errorf("sweep orphaned queue entries: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"rows_deleted": deleted})
	j.logg.Info(logCtx, "orphaned pick queue sweep complete")
	return nil
}
