package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// parseDurationFromSeconds parses a time.Duration from a JSON value representing seconds.
// Handles json.Number, float64, int, int64 and string values; strings may be
// plain seconds or Go duration syntax.
func parseDurationFromSeconds(v any) time.Duration {
	switch val := v.(type) {
	case float64:
		return time.Duration(int64(val)) * time.Second
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return time.Duration(n) * time.Second
		}
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return 0
}

// ConfigValueToString converts various types from JSON to string representation.
// This keeps user supplied values as strings even when the server returns
// typed values.
func ConfigValueToString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// formatSeconds renders d as whole seconds, rounding up so that a positive
// duration never becomes zero.
func formatSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return strconv.FormatInt(secs, 10)
}
