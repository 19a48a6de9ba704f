package types

import (
	"time"
)

// TokenCounts represents aggregated token counts for different token types
type TokenCounts struct {
	InputTokens         int64 `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens" yaml:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens" yaml:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens" yaml:"cache_read_tokens"`
}

// GetTotal calculates the total number of tokens from TokenCounts
func (tc TokenCounts) GetTotal() int64 {
	return tc.InputTokens + tc.OutputTokens + tc.CacheCreationTokens + tc.CacheReadTokens
}

// ActiveBlock is the single session block (5-hour billing period) reported per query.
type ActiveBlock struct {
	StartTime        time.Time `json:"start_time" yaml:"start_time"`               // First entry, floored to the hour
	EndTime          time.Time `json:"end_time" yaml:"end_time"`                   // Last activity + session duration
	LastActivity     time.Time `json:"last_activity" yaml:"last_activity"`         // Latest surviving entry
	RemainingSeconds int64     `json:"remaining_seconds" yaml:"remaining_seconds"` // EndTime - now, floored at zero
	Models           []string  `json:"models" yaml:"models"`
}

// BurnRate represents usage burn rate calculations
type BurnRate struct {
	TokensPerMinute             float64 `json:"tokens_per_minute" yaml:"tokens_per_minute"`
	TokensPerMinuteForIndicator float64 `json:"tokens_per_minute_for_indicator" yaml:"tokens_per_minute_for_indicator"` // Non-cache tokens
	CostPerHour                 float64 `json:"cost_per_hour" yaml:"cost_per_hour"`
}
