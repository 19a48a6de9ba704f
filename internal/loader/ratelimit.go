package loader

import (
	"math"
	"time"

	"github.com/sdpower/agentusage/internal/types"
)

type codexRateLimits struct {
	Primary   *codexRateLimitWindow `json:"primary"`
	Secondary *codexRateLimitWindow `json:"secondary"`
}

type codexRateLimitWindow struct {
	UsedPercent       *float64    `json:"used_percent"`
	WindowMinutes     float64     `json:"window_minutes"`
	ResetsInSeconds   *float64    `json:"resets_in_seconds"`
	ResetAfterSeconds *float64    `json:"reset_after_seconds"`
	ResetsAt          interface{} `json:"resets_at"`
}

// snapshot converts the payload into readings anchored at the event time, so a
// relative reset can later be measured against the query's clock.
func (r codexRateLimits) snapshot(observedAt time.Time) (types.RateLimitSnapshot, bool) {
	snap := types.RateLimitSnapshot{Timestamp: observedAt}
	for _, w := range []struct {
		id     string
		window *codexRateLimitWindow
	}{
		{"primary", r.Primary},
		{"secondary", r.Secondary},
	} {
		if reading, ok := w.window.reading(w.id, observedAt); ok {
			snap.Readings = append(snap.Readings, reading)
		}
	}
	return snap, len(snap.Readings) > 0
}

func (w *codexRateLimitWindow) reading(id string, observedAt time.Time) (types.RateLimitReading, bool) {
	if w == nil || w.UsedPercent == nil || math.IsNaN(*w.UsedPercent) {
		return types.RateLimitReading{}, false
	}

	reading := types.RateLimitReading{
		ID:            id,
		UsedPercent:   *w.UsedPercent,
		WindowMinutes: windowMinutes(w.WindowMinutes),
	}

	if resetsAt, ok := parseTimestamp(w.ResetsAt); ok {
		reading.ResetsAt = &resetsAt
		return reading, true
	}

	relative := w.ResetsInSeconds
	if relative == nil {
		relative = w.ResetAfterSeconds
	}
	if relative != nil && *relative >= 0 {
		resetsAt := observedAt.Add(time.Duration(*relative * float64(time.Second)))
		reading.ResetsAt = &resetsAt
	}
	return reading, true
}

func windowMinutes(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int(math.Round(v))
}
