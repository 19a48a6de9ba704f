package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sdpower/agentusage/internal/types"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

type Formatter struct {
	options FormatterOptions
}

type FormatterOptions struct {
	Format  string // "table", "json", "yaml"
	NoColor bool
	Locale  language.Tag
}

func NewFormatter(opts FormatterOptions) *Formatter {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	if opts.Locale == language.Und {
		opts.Locale = language.AmericanEnglish
	}
	return &Formatter{options: opts}
}

// ValidateFormat rejects output formats the formatter cannot produce.
func ValidateFormat(format string) error {
	switch strings.ToLower(format) {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	}
	return types.ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)}
}

func (f *Formatter) FormatSummary(summary *types.UsageSummary) (string, error) {
	switch strings.ToLower(f.options.Format) {
	case FormatJSON:
		return f.FormatJSON(summary)
	case FormatYAML:
		return f.FormatYAML(summary)
	default:
		return NewTableWriterFormatter(f.options.NoColor, f.options.Locale).FormatSummary(summary), nil
	}
}

// FormatPaths renders resolved log roots, one row per candidate directory.
func (f *Formatter) FormatPaths(rows []PathRow) (string, error) {
	switch strings.ToLower(f.options.Format) {
	case FormatJSON:
		return f.FormatJSON(rows)
	case FormatYAML:
		return f.FormatYAML(rows)
	default:
		return NewTableWriterFormatter(f.options.NoColor, f.options.Locale).FormatPaths(rows), nil
	}
}

func (f *Formatter) FormatJSON(data interface{}) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (f *Formatter) FormatYAML(data interface{}) (string, error) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PathRow is one resolved or missing log directory.
type PathRow struct {
	Provider types.Provider `json:"provider" yaml:"provider"`
	Path     string         `json:"path" yaml:"path"`
	Exists   bool           `json:"exists" yaml:"exists"`
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
