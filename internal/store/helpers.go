package store

import (
	"time"
)

// timestampLayout is RFC 3339 with a fixed-width fractional second so that
// string comparison of stored timestamps matches chronological order.
// RFC3339Nano trims trailing zeros, which breaks that property across the
// fractional boundary ('Z' sorts after '.').
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp formats a time for storage. All stored timestamps are UTC with
// nine fractional digits.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Now returns the current storage timestamp.
func Now() string {
	return Timestamp(time.Now())
}

// NullableString converts empty strings to NULL.
func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// NullableInt converts nil pointers to NULL.
func NullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

// NullableInt64 converts nil pointers to NULL.
func NullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

// NullableFloat converts nil pointers to NULL.
func NullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

// NullableEpochMS converts an optional time to epoch milliseconds or NULL.
func NullableEpochMS(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UnixMilli()
}

// BoolToInt stores booleans as 0/1.
func BoolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// MakePlaceholders builds a "?,?,?" list for IN clauses.
func MakePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
