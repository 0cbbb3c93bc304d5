package audit

import (
	"context"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListQuery filters the audit activity listing.
type ListQuery struct {
	OrderID   *uuid.UUID
	OrderNo   string
	Operation *enums.AuditOperation
	Outcome   *enums.AuditOutcome
	Since     *time.Time
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, record *models.ScanAuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.ScanAuditRecord, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.ScanAuditRecord{})
	if params.OrderID != nil {
		query = query.Where("order_id = ?", *params.OrderID)
	}
	if params.OrderNo != "" {
		query = query.Where("order_no = ?", params.OrderNo)
	}
	if params.Operation != nil {
		query = query.Where("operation = ?", *params.Operation)
	}
	if params.Outcome != nil {
		query = query.Where("outcome = ?", *params.Outcome)
	}
	if params.Since != nil {
		query = query.Where("created_at >= ?", *params.Since)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var records []models.ScanAuditRecord
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&records).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(records) > limit {
		records = records[:limit]
		last := records[limit-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return records, next, nil
}

// DeleteOlderThan is the retention purge, the only mutation the trail allows.
func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ScanAuditRecord{})
	return result.RowsAffected, result.Error
}
