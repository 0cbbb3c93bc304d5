package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/okanvural/pickflow-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	StationID   uuid.UUID
	StationCode string
	Role        enums.ActorRole
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to scanning stations.
type AccessTokenClaims struct {
	StationID   uuid.UUID       `json:"station_id"`
	StationCode string          `json:"station_code"`
	Role        enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
