package middleware

import "context"

type contextKey string

const (
	ctxStationID   contextKey = "station_id"
	ctxStationCode contextKey = "station_code"
	ctxRole        contextKey = "actor_role"
)

func StationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStationID).(string); ok {
		return v
	}
	return ""
}

func StationCodeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStationCode).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithStationID injects the station identifier into the context.
func WithStationID(ctx context.Context, stationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStationID, stationID)
}

// WithStationCode injects the station code into the context for downstream handlers.
func WithStationCode(ctx context.Context, stationCode string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStationCode, stationCode)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
