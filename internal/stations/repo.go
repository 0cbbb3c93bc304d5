package stations

import (
	"context"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes station persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a stations repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByCode retrieves the station matching the provided code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Station, error) {
	var station models.Station
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&station).Error; err != nil {
		return nil, err
	}
	return &station, nil
}

// UpdateLastSeen refreshes the station's last_seen_at timestamp.
func (r *Repository) UpdateLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Station{}).
		Where("id = ?", id).
		UpdateColumn("last_seen_at", at).Error
}
