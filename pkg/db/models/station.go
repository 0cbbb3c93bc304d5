package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/okanvural/pickflow-backend/pkg/enums"
)

// Station is a floor scanning terminal identity. Stations authenticate with
// their code and an operator PIN; the role gates loader and supervisor
// surfaces.
type Station struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string          `gorm:"column:code;type:text;not null;uniqueIndex"`
	Name       string          `gorm:"column:name;type:text;not null"`
	PINHash    string          `gorm:"column:pin_hash;not null"`
	Role       enums.ActorRole `gorm:"column:role;type:actor_role_enum;not null;default:'picker'"`
	Active     bool            `gorm:"column:active;not null;default:true"`
	LastSeenAt *time.Time      `gorm:"column:last_seen_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
