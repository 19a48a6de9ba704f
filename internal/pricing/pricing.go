package pricing

import (
	"strings"

	"github.com/sdpower/agentusage/internal/types"
)

const tokensPerMillion = 1_000_000

// ModelPricing holds USD prices per million tokens. CacheWriteCostPerMToken only
// applies to Claude cache creation tokens.
type ModelPricing struct {
	InputCostPerMToken       float64 `json:"input_cost_per_mtoken"`
	CachedInputCostPerMToken float64 `json:"cached_input_cost_per_mtoken"`
	OutputCostPerMToken      float64 `json:"output_cost_per_mtoken"`
	CacheWriteCostPerMToken  float64 `json:"cache_write_cost_per_mtoken,omitempty"`
}

type Service struct {
	table   map[string]ModelPricing
	aliases map[string]string
}

func NewService() *Service {
	return &Service{
		table:   embeddedPricing(),
		aliases: embeddedAliases(),
	}
}

// NewServiceWith builds a service over a caller-provided table, used by tests.
func NewServiceWith(table map[string]ModelPricing, aliases map[string]string) *Service {
	lowered := make(map[string]string, len(aliases))
	for from, to := range aliases {
		lowered[strings.ToLower(from)] = strings.ToLower(to)
	}
	return &Service{table: table, aliases: lowered}
}

// Lookup resolves a model id to its pricing. The alias table is consulted first,
// then the canonical table by lower-cased id, then the raw id as given.
func (s *Service) Lookup(model string) (ModelPricing, bool) {
	key := strings.ToLower(strings.TrimSpace(model))
	if key == "" {
		return ModelPricing{}, false
	}

	if canonical, ok := s.aliases[key]; ok {
		if p, ok := s.table[canonical]; ok {
			return p, true
		}
	}
	if p, ok := s.table[key]; ok {
		return p, true
	}
	if p, ok := s.table[model]; ok {
		return p, true
	}
	return ModelPricing{}, false
}

// CodexCost prices a Codex delta. Input tokens include cached input, so only the
// uncached remainder is billed at the full input rate.
func CodexCost(usage types.TokenUsageDelta, p ModelPricing) float64 {
	uncached := usage.InputTokens - usage.CachedInputTokens
	if uncached < 0 {
		uncached = 0
	}
	return float64(uncached)/tokensPerMillion*p.InputCostPerMToken +
		float64(usage.CachedInputTokens)/tokensPerMillion*p.CachedInputCostPerMToken +
		float64(usage.OutputTokens)/tokensPerMillion*p.OutputCostPerMToken
}

// ClaudeCost prices a Claude record. Claude reports cache reads and writes
// separately from input tokens.
func ClaudeCost(event types.UsageEvent, p ModelPricing) float64 {
	return float64(event.InputTokens)/tokensPerMillion*p.InputCostPerMToken +
		float64(event.CacheReadTokens)/tokensPerMillion*p.CachedInputCostPerMToken +
		float64(event.CacheCreationTokens)/tokensPerMillion*p.CacheWriteCostPerMToken +
		float64(event.OutputTokens)/tokensPerMillion*p.OutputCostPerMToken
}

func embeddedPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		// OpenAI / Codex
		"gpt-5":             {InputCostPerMToken: 1.25, CachedInputCostPerMToken: 0.125, OutputCostPerMToken: 10},
		"gpt-5.1":           {InputCostPerMToken: 1.25, CachedInputCostPerMToken: 0.125, OutputCostPerMToken: 10},
		"gpt-5-mini":        {InputCostPerMToken: 0.25, CachedInputCostPerMToken: 0.025, OutputCostPerMToken: 2},
		"gpt-5-nano":        {InputCostPerMToken: 0.05, CachedInputCostPerMToken: 0.005, OutputCostPerMToken: 0.4},
		"gpt-4.1":           {InputCostPerMToken: 2, CachedInputCostPerMToken: 0.5, OutputCostPerMToken: 8},
		"gpt-4.1-mini":      {InputCostPerMToken: 0.4, CachedInputCostPerMToken: 0.1, OutputCostPerMToken: 1.6},
		"gpt-4o":            {InputCostPerMToken: 2.5, CachedInputCostPerMToken: 1.25, OutputCostPerMToken: 10},
		"o3":                {InputCostPerMToken: 2, CachedInputCostPerMToken: 0.5, OutputCostPerMToken: 8},
		"o4-mini":           {InputCostPerMToken: 1.1, CachedInputCostPerMToken: 0.275, OutputCostPerMToken: 4.4},
		"codex-mini-latest": {InputCostPerMToken: 1.5, CachedInputCostPerMToken: 0.375, OutputCostPerMToken: 6},

		// Anthropic
		"claude-opus-4-5":   {InputCostPerMToken: 5, CachedInputCostPerMToken: 0.5, OutputCostPerMToken: 25, CacheWriteCostPerMToken: 6.25},
		"claude-opus-4-1":   {InputCostPerMToken: 15, CachedInputCostPerMToken: 1.5, OutputCostPerMToken: 75, CacheWriteCostPerMToken: 18.75},
		"claude-opus-4":     {InputCostPerMToken: 15, CachedInputCostPerMToken: 1.5, OutputCostPerMToken: 75, CacheWriteCostPerMToken: 18.75},
		"claude-sonnet-4-5": {InputCostPerMToken: 3, CachedInputCostPerMToken: 0.3, OutputCostPerMToken: 15, CacheWriteCostPerMToken: 3.75},
		"claude-sonnet-4":   {InputCostPerMToken: 3, CachedInputCostPerMToken: 0.3, OutputCostPerMToken: 15, CacheWriteCostPerMToken: 3.75},
		"claude-3-7-sonnet": {InputCostPerMToken: 3, CachedInputCostPerMToken: 0.3, OutputCostPerMToken: 15, CacheWriteCostPerMToken: 3.75},
		"claude-3-5-sonnet": {InputCostPerMToken: 3, CachedInputCostPerMToken: 0.3, OutputCostPerMToken: 15, CacheWriteCostPerMToken: 3.75},
		"claude-haiku-4-5":  {InputCostPerMToken: 1, CachedInputCostPerMToken: 0.1, OutputCostPerMToken: 5, CacheWriteCostPerMToken: 1.25},
		"claude-3-5-haiku":  {InputCostPerMToken: 0.8, CachedInputCostPerMToken: 0.08, OutputCostPerMToken: 4, CacheWriteCostPerMToken: 1},
		"claude-3-haiku":    {InputCostPerMToken: 0.25, CachedInputCostPerMToken: 0.03, OutputCostPerMToken: 1.25, CacheWriteCostPerMToken: 0.3},
		"claude-3-opus":     {InputCostPerMToken: 15, CachedInputCostPerMToken: 1.5, OutputCostPerMToken: 75, CacheWriteCostPerMToken: 18.75},
	}
}

func embeddedAliases() map[string]string {
	return map[string]string{
		"gpt-5-codex":        "gpt-5",
		"gpt-5-preview":      "gpt-5",
		"gpt-5-chat-latest":  "gpt-5",
		"gpt-5.1-codex":      "gpt-5.1",
		"gpt-5.1-codex-max":  "gpt-5.1",
		"gpt-5-codex-mini":   "gpt-5-mini",
		"gpt-5.1-codex-mini": "gpt-5-mini",
		"gpt-5-mini-preview": "gpt-5-mini",
		"gpt-4.1-preview":    "gpt-4.1",
		"gpt-4o-2024-08-06":  "gpt-4o",
		"o4-mini-preview":    "o4-mini",
		"codex-mini":         "codex-mini-latest",

		"claude-opus-4-5-20251101":   "claude-opus-4-5",
		"claude-opus-4-1-20250805":   "claude-opus-4-1",
		"claude-opus-4-20250514":     "claude-opus-4",
		"claude-4-opus-20250514":     "claude-opus-4",
		"claude-sonnet-4-5-20250929": "claude-sonnet-4-5",
		"claude-sonnet-4-20250514":   "claude-sonnet-4",
		"claude-4-sonnet-20250514":   "claude-sonnet-4",
		"claude-3-7-sonnet-20250219": "claude-3-7-sonnet",
		"claude-3-5-sonnet-20241022": "claude-3-5-sonnet",
		"claude-3-5-sonnet-20240620": "claude-3-5-sonnet",
		"claude-haiku-4-5-20251001":  "claude-haiku-4-5",
		"claude-3-5-haiku-20241022":  "claude-3-5-haiku",
		"claude-3-haiku-20240307":    "claude-3-haiku",
		"claude-3-opus-20240229":     "claude-3-opus",
	}
}
