package storage

import (
	"database/sql"
	"strings"
	"time"
)

// TimestampLayout is fixed-width so lexical order equals time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Now returns the current UTC time in TimestampLayout.
func Now() string {
	return FormatTime(time.Now())
}

// FormatTime renders t in TimestampLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTime accepts TimestampLayout, RFC3339 variants and the SQLite default
// "YYYY-MM-DD HH:MM:SS". Unparseable input yields the zero time.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// NullableString maps empty strings to SQL NULL.
func NullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

// NullableInt64 maps nil pointers to SQL NULL.
func NullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

// Int64Ptr converts a scanned nullable integer.
func Int64Ptr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}
