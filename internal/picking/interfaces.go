package picking

import (
	"context"

	"github.com/okanvural/pickflow-backend/internal/audit"
	"github.com/okanvural/pickflow-backend/internal/barcode"
	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type codeResolver interface {
	Resolve(ctx context.Context, orderID uuid.UUID, rawCode string, lines []models.OrderLine) (*barcode.Resolution, error)
}

type auditSink interface {
	Record(ctx context.Context, entry audit.Entry)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the pick-floor workflow: scans accumulate quantities against the
// queue, completion turns the queue into a shipment, abandon returns the
// order to the planning pool.
type Service interface {
	Scan(ctx context.Context, input ScanInput) (*ScanResult, error)
	Complete(ctx context.Context, input CompleteInput) (*CompletionResult, error)
	Abandon(ctx context.Context, input AbandonInput) (*AbandonResult, error)
}
