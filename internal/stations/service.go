package stations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/okanvural/pickflow-backend/pkg/auth"
	"github.com/okanvural/pickflow-backend/pkg/auth/session"
	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/db/models"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the station auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type service struct {
	stations stationRepository
	session  sessionManager
	jwtCfg   config.JWTConfig
}

type stationRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Station, error)
	UpdateLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

// ServiceParams bundles the dependencies required to build a station service.
type ServiceParams struct {
	StationRepo    stationRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

// NewService constructs a station login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.StationRepo == nil {
		return nil, fmt.Errorf("station repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		stations: params.StationRepo,
		session:  params.SessionManager,
		jwtCfg:   params.JWTConfig,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	station, err := s.authenticate(ctx, req.StationCode, req.PIN)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.stations.UpdateLastSeen(ctx, station.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	station.LastSeenAt = &now

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		StationID:   station.ID,
		StationCode: station.Code,
		Role:        station.Role,
		JTI:         accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Station:      FromModel(station),
	}, nil
}

// authenticate resolves the station and checks its PIN. Unknown codes, bad
// PINs, and disabled stations all surface the same message.
func (s *service) authenticate(ctx context.Context, code, pin string) (*models.Station, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" || pin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	station, err := s.stations.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup station")
	}

	valid, err := security.VerifyPIN(pin, station.PINHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify pin")
	}
	if !valid || !station.Active {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return station, nil
}
