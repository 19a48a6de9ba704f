package calculator

import (
	"fmt"
	"math"
	"time"

	"github.com/sdpower/agentusage/internal/types"
)

// Window lengths vendors report drift by a minute either way.
const (
	fiveHourMinutes     = 300
	oneWeekMinutes      = 7 * 24 * 60
	windowJitterMinutes = 1
)

// BuildRateLimitWindows derives the query-time view of a snapshot. Reset
// countdowns are measured against now and never go negative.
func BuildRateLimitWindows(snapshot *types.RateLimitSnapshot, now time.Time) []types.RateLimitWindow {
	windows := []types.RateLimitWindow{}
	if snapshot == nil {
		return windows
	}

	for _, r := range snapshot.Readings {
		used := clampPercent(r.UsedPercent)
		w := types.RateLimitWindow{
			ID:               r.ID,
			Label:            WindowLabel(r.WindowMinutes, r.ID),
			WindowMinutes:    r.WindowMinutes,
			UsedPercent:      used,
			RemainingPercent: clampPercent(100 - used),
		}
		if r.ResetsAt != nil {
			secs := int64(math.Round(r.ResetsAt.Sub(now).Seconds()))
			if secs < 0 {
				secs = 0
			}
			w.ResetsInSeconds = &secs
		}
		windows = append(windows, w)
	}
	return windows
}

// WindowLabel names a window by its length, falling back to id when the length is unknown.
func WindowLabel(minutes int, id string) string {
	switch {
	case withinJitter(minutes, fiveHourMinutes):
		return "5h"
	case withinJitter(minutes, oneWeekMinutes):
		return "1 week"
	case minutes <= 0:
		return id
	}
	return formatWindow(minutes)
}

func withinJitter(minutes, target int) bool {
	return minutes >= target-windowJitterMinutes && minutes <= target+windowJitterMinutes
}

func formatWindow(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	remaining := minutes % 60
	if remaining != 0 {
		return fmt.Sprintf("%dh%dm", hours, remaining)
	}
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}
	days, leftover := hours/24, hours%24
	if leftover == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, leftover)
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
