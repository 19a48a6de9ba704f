package output

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sdpower/agentusage/internal/locale"
	"github.com/sdpower/agentusage/internal/types"
)

var (
	claudeVersionedModel = regexp.MustCompile(`^claude-(\w+)-(\d+)-(\d+)-\d+`)
	claudeModel          = regexp.MustCompile(`^claude-(\w+)-(\d+)-\d+`)

	// Claude 3.x ids put the version before the family name.
	claudeLegacyVersionedModel = regexp.MustCompile(`^claude-(\d+)-(\d+)-(\w+)-\d+`)
	claudeLegacyModel          = regexp.MustCompile(`^claude-(\d+)-(\w+)-\d+`)
)

// TableWriterFormatter renders a summary as styled terminal tables.
type TableWriterFormatter struct {
	noColor bool
	printer *message.Printer
}

func NewTableWriterFormatter(noColor bool, tag language.Tag) *TableWriterFormatter {
	return &TableWriterFormatter{
		noColor: noColor,
		printer: locale.Printer(tag),
	}
}

func (f *TableWriterFormatter) FormatSummary(summary *types.UsageSummary) string {
	var output strings.Builder

	if summary.Claude != nil {
		output.WriteString(f.formatClaude(summary.Claude))
	}
	if summary.Codex != nil {
		output.WriteString(f.formatCodex(summary.Codex))
	}
	if len(summary.Errors) > 0 {
		output.WriteString(f.title("Errors"))
		for _, pe := range summary.Errors {
			output.WriteString(fmt.Sprintf("  %s\n", pe.Error()))
		}
		output.WriteString("\n")
	}

	return output.String()
}

func (f *TableWriterFormatter) FormatPaths(rows []PathRow) string {
	var output strings.Builder
	output.WriteString(f.title("Log directories"))

	var buf bytes.Buffer
	table := f.newTable(&buf, tw.AlignLeft)
	table.Header([]string{"Provider", "Path", "Status"})
	for _, row := range rows {
		status := "found"
		if !row.Exists {
			status = "missing"
		}
		table.Append([]string{string(row.Provider), row.Path, status})
	}
	table.Render()

	output.WriteString(buf.String())
	return output.String()
}

func (f *TableWriterFormatter) formatClaude(r *types.ClaudeUsageResult) string {
	var output strings.Builder
	output.WriteString(f.title("Claude - last 5 hours"))

	switch {
	case !r.Available:
		output.WriteString("  No Claude data directories found.\n\n")
		return output.String()
	case !r.HasData:
		output.WriteString(fmt.Sprintf("  No usage since %s.\n", r.WindowStart.Local().Format("15:04")))
		output.WriteString(f.formatIssues(r.Issues))
		output.WriteString("\n")
		return output.String()
	}

	var buf bytes.Buffer
	table := f.newTable(&buf, tw.AlignRight)
	table.Header([]string{
		"Input\n",
		"Output\n",
		"Cache\nCreate",
		"Cache\nRead",
		"Total\nTokens",
		"Cost\n(USD)",
	})
	table.Append([]string{
		f.formatLargeNumber(r.TokenCounts.InputTokens),
		f.formatLargeNumber(r.TokenCounts.OutputTokens),
		f.formatLargeNumber(r.TokenCounts.CacheCreationTokens),
		f.formatLargeNumber(r.TokenCounts.CacheReadTokens),
		f.formatLargeNumber(r.TotalTokens),
		f.printer.Sprintf("$%.2f", r.CostUSD),
	})
	table.Render()
	output.WriteString(buf.String())

	if b := r.Block; b != nil {
		output.WriteString(fmt.Sprintf("  Block: %s - %s, %s remaining\n",
			b.StartTime.Local().Format("15:04"),
			b.EndTime.Local().Format("15:04"),
			formatDuration(time.Duration(b.RemainingSeconds)*time.Second)))
		if len(b.Models) > 0 {
			output.WriteString(fmt.Sprintf("  Models: %s\n", f.formatModels(b.Models)))
		}
	}
	if br := r.BurnRate; br != nil {
		output.WriteString(f.printer.Sprintf("  Burn rate: %.0f tokens/min, $%.2f/hour\n", br.TokensPerMinute, br.CostPerHour))
	}
	output.WriteString(fmt.Sprintf("  Files scanned: %d, entries: %d\n", r.FilesScanned, r.EntryCount))
	output.WriteString(f.formatIssues(r.Issues))
	output.WriteString("\n")

	return output.String()
}

func (f *TableWriterFormatter) formatCodex(r *types.CodexUsageResult) string {
	var output strings.Builder
	output.WriteString(f.title(fmt.Sprintf("Codex - %s", r.DateLabel)))

	if !r.Available {
		output.WriteString("  No Codex session directories found.\n\n")
		return output.String()
	}

	if !r.HasData {
		output.WriteString("  No usage today.\n")
	} else {
		var buf bytes.Buffer
		table := f.newTable(&buf, tw.AlignRight)
		table.Header([]string{
			"Model\n",
			"Input\n",
			"Cached\nInput",
			"Output\n",
			"Reasoning\n",
			"Total\nTokens",
			"Cost\n(USD)",
		})
		for _, m := range r.Models {
			name := ShortenModelName(m.Model)
			if m.IsFallback {
				name += "*"
			}
			table.Append([]string{
				name,
				f.formatLargeNumber(m.Usage.InputTokens),
				f.formatLargeNumber(m.Usage.CachedInputTokens),
				f.formatLargeNumber(m.Usage.OutputTokens),
				f.formatLargeNumber(m.Usage.ReasoningOutputTokens),
				f.formatLargeNumber(m.Usage.TotalTokens),
				f.formatCost(m.CostUSD),
			})
		}
		table.Footer([]string{
			"Total",
			f.formatLargeNumber(r.Totals.InputTokens),
			f.formatLargeNumber(r.Totals.CachedInputTokens),
			f.formatLargeNumber(r.Totals.OutputTokens),
			f.formatLargeNumber(r.Totals.ReasoningOutputTokens),
			f.formatLargeNumber(r.Totals.TotalTokens),
			f.formatCost(r.CostUSD),
		})
		table.Render()
		output.WriteString(buf.String())
	}

	if len(r.RateLimits) > 0 {
		var buf bytes.Buffer
		table := f.newTable(&buf, tw.AlignRight)
		table.Header([]string{"Window", "Used", "Left", "Resets In"})
		for _, w := range r.RateLimits {
			resets := "-"
			if w.ResetsInSeconds != nil {
				resets = formatDuration(time.Duration(*w.ResetsInSeconds) * time.Second)
			}
			table.Append([]string{
				w.Label,
				f.printer.Sprintf("%.0f%%", w.UsedPercent),
				f.printer.Sprintf("%.0f%%", w.RemainingPercent),
				resets,
			})
		}
		table.Render()
		output.WriteString(buf.String())
	}

	output.WriteString(fmt.Sprintf("  Files scanned: %d\n", r.FilesScanned))
	output.WriteString(f.formatIssues(r.Issues))
	output.WriteString("\n")
	return output.String()
}

func (f *TableWriterFormatter) newTable(buf *bytes.Buffer, align tw.Align) *tablewriter.Table {
	return tablewriter.NewTable(buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.Off}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: align},
			},
		}),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
}

func (f *TableWriterFormatter) title(text string) string {
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	if f.noColor {
		style = lipgloss.NewStyle()
	}
	return style.Render(text) + "\n"
}

func (f *TableWriterFormatter) formatIssues(issues []string) string {
	if len(issues) == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	if f.noColor {
		style = lipgloss.NewStyle()
	}

	var output strings.Builder
	output.WriteString(style.Render(fmt.Sprintf("  %d issue(s):", len(issues))))
	output.WriteString("\n")
	for _, issue := range issues {
		output.WriteString(fmt.Sprintf("    - %s\n", issue))
	}
	return output.String()
}

func (f *TableWriterFormatter) formatModels(models []string) string {
	short := make([]string, len(models))
	for i, m := range models {
		short[i] = ShortenModelName(m)
	}
	return strings.Join(short, ", ")
}

func (f *TableWriterFormatter) formatCost(cost *float64) string {
	if cost == nil {
		return "n/a"
	}
	return f.printer.Sprintf("$%.2f", *cost)
}

func (f *TableWriterFormatter) formatLargeNumber(n int64) string {
	if n == 0 {
		return "-"
	}
	return f.printer.Sprintf("%d", n)
}

// ShortenModelName turns model ids into compact display names:
//
//	claude-opus-4-1-20250805 -> Opus-4.1
//	claude-sonnet-4-20250514 -> Sonnet-4
//	gpt-5-codex              -> gpt-5-codex
func ShortenModelName(model string) string {
	if matches := claudeVersionedModel.FindStringSubmatch(model); matches != nil {
		return fmt.Sprintf("%s-%s.%s", titleCase(matches[1]), matches[2], matches[3])
	}
	if matches := claudeModel.FindStringSubmatch(model); matches != nil {
		return fmt.Sprintf("%s-%s", titleCase(matches[1]), matches[2])
	}
	if matches := claudeLegacyVersionedModel.FindStringSubmatch(model); matches != nil {
		return fmt.Sprintf("%s-%s.%s", titleCase(matches[3]), matches[1], matches[2])
	}
	if matches := claudeLegacyModel.FindStringSubmatch(model); matches != nil {
		return fmt.Sprintf("%s-%s", titleCase(matches[2]), matches[1])
	}

	knownModels := map[string]string{
		"gpt-3.5-turbo":     "gpt-3.5",
		"codex-mini-latest": "codex-mini",
	}
	if short, ok := knownModels[model]; ok {
		return short
	}

	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") {
		return model
	}

	if len(model) > 12 {
		return model[:12]
	}
	return model
}

func titleCase(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
