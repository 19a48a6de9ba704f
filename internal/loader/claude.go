package loader

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/sdpower/agentusage/internal/types"
)

const syntheticModel = "<synthetic>"

var claudeTimestampFields = []string{"timestamp", "created_at", "createdAt", "time"}

// ClaudeFileResult holds the usage records of one transcript that fall inside the window.
type ClaudeFileResult struct {
	Path   string
	Events []types.UsageEvent
	Issues []string
}

// ParseClaudeFile reads a Claude transcript line by line. Malformed lines are
// logged and skipped; an unreadable file yields an issue and no events.
func (l *Loader) ParseClaudeFile(path string, windowStart time.Time) ClaudeFileResult {
	result := ClaudeFileResult{Path: path}

	file, err := os.Open(path)
	if err != nil {
		loadErr := types.LoaderError{Path: path, Err: err}
		l.logger.Warn().Err(loadErr).Msg("cannot open claude transcript")
		result.Issues = append(result.Issues, loadErr.Error())
		return result
	}
	defer file.Close()

	scanner := newLineScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(line, &raw); err != nil {
			l.logger.Warn().
				Str("path", path).
				Err(types.ParseError{Line: lineNum, Err: err}).
				Msg("skipping malformed claude line")
			continue
		}

		event, ok := parseClaudeRecord(raw)
		if !ok {
			continue
		}
		if event.Timestamp.Before(windowStart) || event.IsEmpty() {
			continue
		}
		result.Events = append(result.Events, event)
	}

	if err := scanner.Err(); err != nil {
		loadErr := types.LoaderError{Path: path, Err: err}
		l.logger.Warn().Err(loadErr).Msg("claude transcript read stopped early")
		result.Issues = append(result.Issues, loadErr.Error())
	}

	return result
}

// parseClaudeRecord extracts usage from a decoded transcript line. Usage is read
// from message.usage, falling back to a top-level usage object.
func parseClaudeRecord(raw map[string]interface{}) (types.UsageEvent, bool) {
	var event types.UsageEvent

	message, _ := raw["message"].(map[string]interface{})
	usage, _ := message["usage"].(map[string]interface{})
	if usage == nil {
		usage, _ = raw["usage"].(map[string]interface{})
	}
	if usage == nil {
		return event, false
	}

	var ts time.Time
	for _, field := range claudeTimestampFields {
		if t, ok := parseTimestamp(raw[field]); ok {
			ts = t
			break
		}
	}
	if ts.IsZero() {
		return event, false
	}
	event.Timestamp = ts

	event.Model = stringField(message, "model")
	if event.Model == "" {
		event.Model = stringField(raw, "model")
	}
	if event.Model == syntheticModel {
		return event, false
	}

	event.InputTokens = intField(usage, "input_tokens")
	event.OutputTokens = intField(usage, "output_tokens")
	event.CacheCreationTokens = intField(usage, "cache_creation_input_tokens")
	event.CacheReadTokens = intField(usage, "cache_read_input_tokens")

	for _, field := range []string{"costUSD", "cost"} {
		if cost, ok := raw[field].(float64); ok {
			event.CostUSD = &cost
			break
		}
	}

	messageID := stringField(message, "id")
	requestID := stringField(raw, "requestId")
	if messageID != "" && requestID != "" {
		event.DedupeKey = messageID + ":" + requestID
	}

	return event, true
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]interface{}, key string) int64 {
	v, ok := m[key].(float64)
	if !ok || v < 0 {
		return 0
	}
	return int64(v)
}
