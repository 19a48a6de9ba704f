package types

import (
	"time"
)

// Provider identifies which assistant's logs a result was built from.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
)

// UsageEvent is one Claude transcript record that carried token usage.
type UsageEvent struct {
	Timestamp           time.Time `json:"timestamp"`
	Model               string    `json:"model,omitempty"`
	InputTokens         int64     `json:"input_tokens"`
	OutputTokens        int64     `json:"output_tokens"`
	CacheCreationTokens int64     `json:"cache_creation_tokens"`
	CacheReadTokens     int64     `json:"cache_read_tokens"`
	CostUSD             *float64  `json:"cost_usd,omitempty"`
	DedupeKey           string    `json:"-"`
}

// TotalTokens sums all four token counters.
func (e UsageEvent) TotalTokens() int64 {
	return e.InputTokens + e.OutputTokens + e.CacheCreationTokens + e.CacheReadTokens
}

// IsEmpty reports whether the record carries no tokens and no cost.
func (e UsageEvent) IsEmpty() bool {
	if e.TotalTokens() != 0 {
		return false
	}
	return e.CostUSD == nil || *e.CostUSD == 0
}

// TokenUsageDelta is Codex usage since the previous report. Fields are never
// negative and CachedInputTokens never exceeds InputTokens once normalized.
type TokenUsageDelta struct {
	InputTokens           int64 `json:"input_tokens" yaml:"input_tokens"`
	CachedInputTokens     int64 `json:"cached_input_tokens" yaml:"cached_input_tokens"`
	OutputTokens          int64 `json:"output_tokens" yaml:"output_tokens"`
	ReasoningOutputTokens int64 `json:"reasoning_output_tokens" yaml:"reasoning_output_tokens"`
	TotalTokens           int64 `json:"total_tokens" yaml:"total_tokens"`
}

func (d TokenUsageDelta) IsZero() bool {
	return d.InputTokens == 0 &&
		d.CachedInputTokens == 0 &&
		d.OutputTokens == 0 &&
		d.ReasoningOutputTokens == 0 &&
		d.TotalTokens == 0
}

func (d TokenUsageDelta) Add(o TokenUsageDelta) TokenUsageDelta {
	return TokenUsageDelta{
		InputTokens:           d.InputTokens + o.InputTokens,
		CachedInputTokens:     d.CachedInputTokens + o.CachedInputTokens,
		OutputTokens:          d.OutputTokens + o.OutputTokens,
		ReasoningOutputTokens: d.ReasoningOutputTokens + o.ReasoningOutputTokens,
		TotalTokens:           d.TotalTokens + o.TotalTokens,
	}
}

// Since returns the component-wise difference between a cumulative snapshot and
// the previous one, floored at zero.
func (d TokenUsageDelta) Since(prev TokenUsageDelta) TokenUsageDelta {
	return TokenUsageDelta{
		InputTokens:           floorZero(d.InputTokens - prev.InputTokens),
		CachedInputTokens:     floorZero(d.CachedInputTokens - prev.CachedInputTokens),
		OutputTokens:          floorZero(d.OutputTokens - prev.OutputTokens),
		ReasoningOutputTokens: floorZero(d.ReasoningOutputTokens - prev.ReasoningOutputTokens),
		TotalTokens:           floorZero(d.TotalTokens - prev.TotalTokens),
	}
}

// Normalize clamps negative counters, caps cached input at input and fills a
// missing total from input + output.
func (d TokenUsageDelta) Normalize() TokenUsageDelta {
	n := TokenUsageDelta{
		InputTokens:           floorZero(d.InputTokens),
		CachedInputTokens:     floorZero(d.CachedInputTokens),
		OutputTokens:          floorZero(d.OutputTokens),
		ReasoningOutputTokens: floorZero(d.ReasoningOutputTokens),
		TotalTokens:           floorZero(d.TotalTokens),
	}
	if n.CachedInputTokens > n.InputTokens {
		n.CachedInputTokens = n.InputTokens
	}
	if n.TotalTokens == 0 {
		n.TotalTokens = n.InputTokens + n.OutputTokens
	}
	return n
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// TokenUsageEvent is one Codex token_count line reduced to a delta.
type TokenUsageEvent struct {
	Timestamp       time.Time       `json:"timestamp"`
	Model           string          `json:"model"`
	Usage           TokenUsageDelta `json:"usage"`
	IsFallbackModel bool            `json:"is_fallback_model"`
}

// RateLimitReading is one window as reported in a Codex rate_limits payload.
type RateLimitReading struct {
	ID            string
	UsedPercent   float64
	WindowMinutes int
	ResetsAt      *time.Time
}

// RateLimitSnapshot is the set of windows observed on a single event.
type RateLimitSnapshot struct {
	Timestamp time.Time
	Readings  []RateLimitReading
}

// RateLimitWindow is the derived, query-time view of a rate-limit window.
type RateLimitWindow struct {
	ID               string  `json:"id" yaml:"id"`
	Label            string  `json:"label" yaml:"label"`
	WindowMinutes    int     `json:"window_minutes" yaml:"window_minutes"`
	UsedPercent      float64 `json:"used_percent" yaml:"used_percent"`
	RemainingPercent float64 `json:"remaining_percent" yaml:"remaining_percent"`
	ResetsInSeconds  *int64  `json:"resets_in_seconds,omitempty" yaml:"resets_in_seconds,omitempty"`
}
