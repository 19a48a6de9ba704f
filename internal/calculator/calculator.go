package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/sdpower/agentusage/internal/pricing"
	"github.com/sdpower/agentusage/internal/types"
)

const dateLayout = "2006-01-02"

type Calculator struct {
	pricingService PricingService
}

type PricingService interface {
	Lookup(model string) (pricing.ModelPricing, bool)
}

func New(pricingService PricingService) *Calculator {
	return &Calculator{
		pricingService: pricingService,
	}
}

// AggregateClaude sums the surviving Claude entries of the trailing window. The
// caller fills in availability, roots and file diagnostics.
func (c *Calculator) AggregateClaude(events []types.UsageEvent, now time.Time) types.ClaudeUsageResult {
	result := types.ClaudeUsageResult{Issues: []string{}}

	entries := dedupe(sortedByTime(events))
	result.EntryCount = len(entries)
	if len(entries) == 0 {
		return result
	}
	result.HasData = true

	var unpriced []string
	for _, entry := range entries {
		result.TokenCounts.InputTokens += entry.InputTokens
		result.TokenCounts.OutputTokens += entry.OutputTokens
		result.TokenCounts.CacheCreationTokens += entry.CacheCreationTokens
		result.TokenCounts.CacheReadTokens += entry.CacheReadTokens

		if entry.CostUSD != nil {
			result.CostUSD += *entry.CostUSD
			continue
		}
		if p, ok := c.pricingService.Lookup(entry.Model); ok {
			result.CostUSD += pricing.ClaudeCost(entry, p)
			continue
		}
		unpriced = append(unpriced, displayModel(entry.Model))
	}
	result.TotalTokens = result.TokenCounts.GetTotal()

	for _, model := range sortedUniq(unpriced) {
		result.Issues = append(result.Issues,
			fmt.Sprintf("no pricing found for claude model %s; cost excludes its entries", model))
	}

	block := ActiveBlock(entries, now, DefaultSessionDuration)
	result.Block = &block
	result.BurnRate = CalculateBurnRate(entries, result.TokenCounts, result.CostUSD)

	return result
}

// AggregateCodex restricts events to the calendar day containing now in loc and
// breaks them down per model. Overall cost is left unset when any model is unpriced.
func (c *Calculator) AggregateCodex(events []types.TokenUsageEvent, now time.Time, loc *time.Location) types.CodexUsageResult {
	if loc == nil {
		loc = time.Local
	}
	localNow := now.In(loc)
	dayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)
	today := localNow.Format(dateLayout)

	result := types.CodexUsageResult{
		Date:       today,
		DayStart:   dayStart,
		DayEnd:     dayStart.AddDate(0, 0, 1),
		Models:     []types.ModelUsage{},
		RateLimits: []types.RateLimitWindow{},
		Issues:     []string{},
	}

	todays := lo.Filter(events, func(e types.TokenUsageEvent, _ int) bool {
		return e.Timestamp.In(loc).Format(dateLayout) == today
	})
	if len(todays) == 0 {
		return result
	}
	result.HasData = true

	for model, group := range lo.GroupBy(todays, func(e types.TokenUsageEvent) string { return e.Model }) {
		usage := types.ModelUsage{Model: model, EventCount: len(group)}
		for _, e := range group {
			usage.Usage = usage.Usage.Add(e.Usage)
			usage.IsFallback = usage.IsFallback || e.IsFallbackModel
		}
		result.Totals = result.Totals.Add(usage.Usage)
		result.Models = append(result.Models, usage)
	}

	sort.Slice(result.Models, func(i, j int) bool {
		a, b := result.Models[i], result.Models[j]
		if a.Usage.TotalTokens != b.Usage.TotalTokens {
			return a.Usage.TotalTokens > b.Usage.TotalTokens
		}
		return a.Model < b.Model
	})

	var total float64
	allPriced := true
	for i := range result.Models {
		m := &result.Models[i]
		p, ok := c.pricingService.Lookup(m.Model)
		if !ok {
			allPriced = false
			result.Issues = append(result.Issues,
				fmt.Sprintf("no pricing found for model %s; overall cost omitted", displayModel(m.Model)))
			continue
		}
		cost := pricing.CodexCost(m.Usage, p)
		m.CostUSD = &cost
		total += cost
	}
	if allPriced {
		result.CostUSD = &total
	}

	return result
}

func sortedByTime(events []types.UsageEvent) []types.UsageEvent {
	sorted := make([]types.UsageEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// dedupe drops repeats of the same message/request pair, which appear when a
// conversation is resumed into a new transcript.
func dedupe(events []types.UsageEvent) []types.UsageEvent {
	seen := make(map[string]bool)
	return lo.Filter(events, func(e types.UsageEvent, _ int) bool {
		if e.DedupeKey == "" {
			return true
		}
		if seen[e.DedupeKey] {
			return false
		}
		seen[e.DedupeKey] = true
		return true
	})
}

func sortedUniq(values []string) []string {
	out := lo.Uniq(values)
	sort.Strings(out)
	return out
}

func displayModel(model string) string {
	if model == "" {
		return "(unknown)"
	}
	return model
}
