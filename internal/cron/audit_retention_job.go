package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/logger"
)

// auditRetentionWindow is how long scan audit records are kept when no
// window is configured.
const auditRetentionWindow = 180 * 24 * time.Hour

// AuditRetentionJobParams configure the audit trail purge.
type AuditRetentionJobParams struct {
	Logger     *logger.Logger
	Repository auditRetentionRepo
	Window     time.Duration
}

type auditRetentionRepo interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewAuditRetentionJob builds the cron job that trims aged scan audit records.
func NewAuditRetentionJob(params AuditRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	window := params.Window
	if window <= 0 {
		window = auditRetentionWindow
	}
	return &auditRetentionJob{
		logg:   params.Logger,
		repo:   params.Repository,
		window: window,
		now:    time.Now,
	}, nil
}

type auditRetentionJob struct {
	logg   *logger.Logger
	repo   auditRetentionRepo
	window time.Duration
	now    func() time.Time
}

func (j *auditRetentionJob) Name() string { return "audit-retention" }

func (j *auditRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("audit retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"window":       j.window.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "audit retention purge complete")
	return nil
}
