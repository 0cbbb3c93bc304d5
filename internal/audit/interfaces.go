package audit

import (
	"context"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/pagination"
)

// Repository persists and reads the append-only audit trail. There is no
// WithTx on purpose: audit rows are written outside business transactions so
// a rolled-back scan still leaves its record.
type Repository interface {
	Insert(ctx context.Context, record *models.ScanAuditRecord) error
	List(ctx context.Context, query ListQuery) ([]models.ScanAuditRecord, *pagination.Cursor, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
