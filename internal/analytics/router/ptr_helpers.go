package router

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// stringPtr returns a trimmed pointer or nil when the input is empty.
func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// uuidPtr returns the id rendered as a string pointer, nil for the zero uuid.
func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	rendered := id.String()
	return &rendered
}

// timePtr returns a UTC pointer or nil when the input is the zero time.
func timePtr(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

// int64Ptr returns a pointer to the provided int64 value.
func int64Ptr(value int64) *int64 {
	return &value
}

// boolPtr returns a pointer to the provided bool value.
func boolPtr(value bool) *bool {
	return &value
}

// decimalPtr converts a quantity to the float representation BigQuery stores.
func decimalPtr(value decimal.Decimal) *float64 {
	f := value.InexactFloat64()
	return &f
}
