package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okanvural/pickflow-backend/pkg/config"
	"github.com/okanvural/pickflow-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "pickflow",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	stationID := uuid.New()

	payload := AccessTokenPayload{
		StationID:   stationID,
		StationCode: "ST-07",
		Role:        enums.ActorRolePicker,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.StationID != stationID {
		t.Fatalf("expected station_id %s, got %s", stationID, claims.StationID)
	}
	if claims.StationCode != "ST-07" {
		t.Fatalf("station code not preserved, got %q", claims.StationCode)
	}
	if claims.Role != enums.ActorRolePicker {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}

	// RegisteredClaims is embedded, so access fields directly.
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.Subject != "ST-07" {
		t.Fatalf("expected subject ST-07, got %s", claims.Subject)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessTokenPreservesJTI(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "pickflow",
		ExpirationMinutes: 10,
	}
	payload := AccessTokenPayload{
		StationID:   uuid.New(),
		StationCode: "ST-01",
		Role:        enums.ActorRoleLoader,
		JTI:         "fixed-jti",
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ID != "fixed-jti" {
		t.Fatalf("expected jti fixed-jti, got %q", claims.ID)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "pickflow",
		ExpirationMinutes: 10,
	}
	payload := AccessTokenPayload{
		StationID:   uuid.New(),
		StationCode: "ST-02",
		Role:        enums.ActorRoleSupervisor,
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token+"x")
	if err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "pickflow",
		ExpirationMinutes: 15,
	}
	now := time.Now().Add(-time.Hour)
	payload := AccessTokenPayload{
		StationID:   uuid.New(),
		StationCode: "ST-03",
		Role:        enums.ActorRolePicker,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenInvalidPayload(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "pickflow",
		ExpirationMinutes: 5,
	}

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		StationID:   uuid.New(),
		StationCode: "ST-04",
		Role:        "",
	}); err == nil {
		t.Fatal("expected invalid role error")
	}

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		StationID: uuid.New(),
		Role:      enums.ActorRolePicker,
	}); err == nil {
		t.Fatal("expected missing station code error")
	}
}
