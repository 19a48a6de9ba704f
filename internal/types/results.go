package types

import "time"

// ClaudeUsageResult is the per-query output of the Claude pipeline.
type ClaudeUsageResult struct {
	Available          bool         `json:"available" yaml:"available"`
	HasData            bool         `json:"has_data" yaml:"has_data"`
	Roots              []string     `json:"roots" yaml:"roots"`
	MissingDirectories []string     `json:"missing_directories" yaml:"missing_directories"`
	FilesScanned       int          `json:"files_scanned" yaml:"files_scanned"`
	EntryCount         int          `json:"entry_count" yaml:"entry_count"`
	WindowStart        time.Time    `json:"window_start" yaml:"window_start"`
	TokenCounts        TokenCounts  `json:"token_counts" yaml:"token_counts"`
	TotalTokens        int64        `json:"total_tokens" yaml:"total_tokens"`
	CostUSD            float64      `json:"cost_usd" yaml:"cost_usd"`
	Block              *ActiveBlock `json:"block,omitempty" yaml:"block,omitempty"`
	BurnRate           *BurnRate    `json:"burn_rate,omitempty" yaml:"burn_rate,omitempty"`
	Issues             []string     `json:"issues" yaml:"issues"`
}

// ModelUsage represents Codex usage per model
type ModelUsage struct {
	Model      string          `json:"model" yaml:"model"`
	Usage      TokenUsageDelta `json:"usage" yaml:"usage"`
	IsFallback bool            `json:"is_fallback" yaml:"is_fallback"`
	CostUSD    *float64        `json:"cost_usd,omitempty" yaml:"cost_usd,omitempty"`
	EventCount int             `json:"event_count" yaml:"event_count"`
}

// CodexUsageResult is the per-query output of the Codex pipeline, restricted to
// the current local day.
type CodexUsageResult struct {
	Available          bool              `json:"available" yaml:"available"`
	HasData            bool              `json:"has_data" yaml:"has_data"`
	Roots              []string          `json:"roots" yaml:"roots"`
	MissingDirectories []string          `json:"missing_directories" yaml:"missing_directories"`
	FilesScanned       int               `json:"files_scanned" yaml:"files_scanned"`
	Date               string            `json:"date" yaml:"date"`
	DateLabel          string            `json:"date_label" yaml:"date_label"`
	DayStart           time.Time         `json:"day_start" yaml:"day_start"`
	DayEnd             time.Time         `json:"day_end" yaml:"day_end"`
	Totals             TokenUsageDelta   `json:"totals" yaml:"totals"`
	CostUSD            *float64          `json:"cost_usd,omitempty" yaml:"cost_usd,omitempty"`
	Models             []ModelUsage      `json:"models" yaml:"models"`
	RateLimits         []RateLimitWindow `json:"rate_limits" yaml:"rate_limits"`
	Issues             []string          `json:"issues" yaml:"issues"`
}

// UsageSummary combines both providers and every recoverable failure.
type UsageSummary struct {
	Claude      *ClaudeUsageResult `json:"claude,omitempty" yaml:"claude,omitempty"`
	Codex       *CodexUsageResult  `json:"codex,omitempty" yaml:"codex,omitempty"`
	Errors      []ProviderError    `json:"errors" yaml:"errors"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
}
