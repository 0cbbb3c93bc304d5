package stations

import (
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/google/uuid"
)

// LoginRequest carries the station code and operator PIN.
type LoginRequest struct {
	StationCode string `json:"station_code" validate:"required"`
	PIN         string `json:"pin" validate:"required"`
}

// StationDTO is the station identity returned after login.
type StationDTO struct {
	ID         uuid.UUID       `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Role       enums.ActorRole `json:"role"`
	LastSeenAt *time.Time      `json:"last_seen_at,omitempty"`
}

// LoginResponse contains the token pair and the authenticated station.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	Station      *StationDTO `json:"station"`
}

// FromModel maps a station row to its API shape.
func FromModel(station *models.Station) *StationDTO {
	if station == nil {
		return nil
	}
	return &StationDTO{
		ID:         station.ID,
		Code:       station.Code,
		Name:       station.Name,
		Role:       station.Role,
		LastSeenAt: station.LastSeenAt,
	}
}
