package loader

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Epoch values at or above this magnitude are milliseconds; seconds will not
// reach it until the year 33658.
const epochMillisThreshold = 1e12

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 strings, zone-less ISO strings (read as UTC)
// and epoch seconds or milliseconds, either as numbers or numeric strings.
func parseTimestamp(v interface{}) (time.Time, bool) {
	switch value := v.(type) {
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(f)
		}
	case float64:
		return epochToTime(value)
	case int64:
		return epochToTime(float64(value))
	}
	return time.Time{}, false
}

func epochToTime(v float64) (time.Time, bool) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	if v >= epochMillisThreshold {
		return time.UnixMilli(int64(v)).UTC(), true
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}
