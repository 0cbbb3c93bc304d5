package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/auth"
	"github.com/okanvural/pickflow-backend/pkg/auth/session"
	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/google/uuid"
)

func TestAuthRejectsMissingToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsStationContext(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	stationID := uuid.New()
	token := mintTestToken(t, cfg, stationID, "ST-07", enums.ActorRoleLoader)

	var captured struct {
		id   string
		code string
		role string
	}
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.id = StationIDFromContext(r.Context())
		captured.code = StationCodeFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.id != stationID.String() {
		t.Fatalf("expected station id %s got %s", stationID, captured.id)
	}
	if captured.code != "ST-07" {
		t.Fatalf("expected station code ST-07 got %s", captured.code)
	}
	if captured.role != string(enums.ActorRoleLoader) {
		t.Fatalf("expected role loader got %s", captured.role)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	token := mintTestToken(t, cfg, uuid.New(), "ST-01", enums.ActorRolePicker)

	handler := Auth(cfg, stubSessionVerifier{ok: false}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", resp.Code)
	}
}

func TestRequireRolesGates(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name    string
		role    enums.ActorRole
		allowed []enums.ActorRole
		want    int
	}{
		{name: "allowed role passes", role: enums.ActorRoleLoader, allowed: []enums.ActorRole{enums.ActorRoleLoader}, want: http.StatusOK},
		{name: "supervisor passes every gate", role: enums.ActorRoleSupervisor, allowed: []enums.ActorRole{enums.ActorRoleLoader}, want: http.StatusOK},
		{name: "other role is refused", role: enums.ActorRolePicker, allowed: []enums.ActorRole{enums.ActorRoleLoader}, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequireRoles(nil, tc.allowed...)(next)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithRole(req.Context(), string(tc.role)))
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
			}
		})
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, stationID uuid.UUID, stationCode string, role enums.ActorRole) string {
	t.Helper()
	accessID := session.NewAccessID()
	payload := auth.AccessTokenPayload{
		StationID:   stationID,
		StationCode: stationCode,
		Role:        role,
		JTI:         accessID,
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}
