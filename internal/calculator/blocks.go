package calculator

import (
	"time"

	"github.com/samber/lo"

	"github.com/sdpower/agentusage/internal/types"
)

// DefaultSessionDuration is Claude's billing block length.
const DefaultSessionDuration = 5 * time.Hour

// floorToHour floors a timestamp to the beginning of the hour
func floorToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// ClaudeWindowStart returns the start of the trailing window ending at now.
func ClaudeWindowStart(now time.Time) time.Time {
	return now.Add(-DefaultSessionDuration)
}

// ActiveBlock builds the single block a query reports. Entries must be sorted
// by timestamp and non-empty.
func ActiveBlock(entries []types.UsageEvent, now time.Time, sessionDuration time.Duration) types.ActiveBlock {
	if sessionDuration <= 0 {
		sessionDuration = DefaultSessionDuration
	}

	first := entries[0].Timestamp
	last := entries[len(entries)-1].Timestamp
	endTime := last.Add(sessionDuration)

	remaining := int64(endTime.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}

	models := sortedUniq(lo.FilterMap(entries, func(e types.UsageEvent, _ int) (string, bool) {
		return e.Model, e.Model != ""
	}))

	return types.ActiveBlock{
		StartTime:        floorToHour(first),
		EndTime:          endTime,
		LastActivity:     last,
		RemainingSeconds: remaining,
		Models:           models,
	}
}

// CalculateBurnRate calculates the burn rate across the active entries. It is
// nil when the entries span no time.
func CalculateBurnRate(entries []types.UsageEvent, counts types.TokenCounts, costUSD float64) *types.BurnRate {
	if len(entries) == 0 {
		return nil
	}

	firstEntry := entries[0].Timestamp
	lastEntry := entries[len(entries)-1].Timestamp
	durationMinutes := lastEntry.Sub(firstEntry).Minutes()

	if durationMinutes <= 0 {
		return nil
	}

	totalTokens := float64(counts.GetTotal())
	tokensPerMinute := totalTokens / durationMinutes

	// For burn rate indicator, use only input and output tokens
	nonCacheTokens := float64(counts.InputTokens + counts.OutputTokens)
	tokensPerMinuteForIndicator := nonCacheTokens / durationMinutes

	costPerHour := (costUSD / durationMinutes) * 60

	return &types.BurnRate{
		TokensPerMinute:             tokensPerMinute,
		TokensPerMinuteForIndicator: tokensPerMinuteForIndicator,
		CostPerHour:                 costPerHour,
	}
}
