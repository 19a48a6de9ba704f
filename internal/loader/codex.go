package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sdpower/agentusage/internal/types"
)

// FallbackModel is attributed to Codex usage when a session never says which
// model produced it.
const FallbackModel = "gpt-5"

const (
	codexEntryTurnContext = "turn_context"
	codexEntryEventMsg    = "event_msg"
	codexPayloadTokens    = "token_count"
)

// CodexFileResult is everything one session file contributes to a query.
// RateLimits is the snapshot from the latest timestamped token_count line.
type CodexFileResult struct {
	Path         string
	Events       []types.TokenUsageEvent
	Issues       []string
	RateLimits   *types.RateLimitSnapshot
	UsedFallback bool
}

type codexEntry struct {
	Type      string          `json:"type"`
	Timestamp interface{}     `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type codexMetadata struct {
	Model string `json:"model"`
}

type codexTurnContext struct {
	Model string `json:"model"`
}

type codexPayload struct {
	Type       string          `json:"type"`
	Model      string          `json:"model"`
	Metadata   *codexMetadata  `json:"metadata"`
	Info       *codexTokenInfo `json:"info"`
	RateLimits json.RawMessage `json:"rate_limits"`
}

type codexTokenInfo struct {
	Model           string           `json:"model"`
	ModelName       string           `json:"model_name"`
	Metadata        *codexMetadata   `json:"metadata"`
	TotalTokenUsage *codexTokenUsage `json:"total_token_usage"`
	LastTokenUsage  *codexTokenUsage `json:"last_token_usage"`
}

// Counters are decoded as floats and rounded.
type codexTokenUsage struct {
	InputTokens           float64 `json:"input_tokens"`
	CachedInputTokens     float64 `json:"cached_input_tokens"`
	CacheReadInputTokens  float64 `json:"cache_read_input_tokens"`
	OutputTokens          float64 `json:"output_tokens"`
	ReasoningOutputTokens float64 `json:"reasoning_output_tokens"`
	TotalTokens           float64 `json:"total_tokens"`
}

func (u codexTokenUsage) toDelta() types.TokenUsageDelta {
	cached := u.CachedInputTokens
	if cached == 0 {
		cached = u.CacheReadInputTokens
	}
	return types.TokenUsageDelta{
		InputTokens:           tokenCount(u.InputTokens),
		CachedInputTokens:     tokenCount(cached),
		OutputTokens:          tokenCount(u.OutputTokens),
		ReasoningOutputTokens: tokenCount(u.ReasoningOutputTokens),
		TotalTokens:           tokenCount(u.TotalTokens),
	}
}

func tokenCount(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v))
}

// codexSession is the state folded over the lines of a single file.
type codexSession struct {
	currentModel           string
	currentModelIsFallback bool
	previousTotals         *types.TokenUsageDelta
	usedFallback           bool
}

// resolveModel applies the per-event model order: the event's own metadata,
// then the model carried by the session, then the fallback.
func (s *codexSession) resolveModel(payload codexPayload) (string, bool) {
	if model := payloadModel(payload); model != "" {
		s.currentModel = model
		s.currentModelIsFallback = false
		return model, false
	}
	if s.currentModel != "" {
		return s.currentModel, s.currentModelIsFallback
	}
	s.currentModel = FallbackModel
	s.currentModelIsFallback = true
	s.usedFallback = true
	return FallbackModel, true
}

// delta turns a token_count payload into a per-event delta. The cumulative
// snapshot advances on every report that carries one.
func (s *codexSession) delta(info *codexTokenInfo) (types.TokenUsageDelta, bool) {
	var (
		d  types.TokenUsageDelta
		ok bool
	)

	if info.LastTokenUsage != nil {
		d, ok = info.LastTokenUsage.toDelta(), true
	}

	if info.TotalTokenUsage != nil {
		current := info.TotalTokenUsage.toDelta()
		if !ok {
			var prev types.TokenUsageDelta
			if s.previousTotals != nil {
				prev = *s.previousTotals
			}
			d, ok = current.Since(prev), true
		}
		s.previousTotals = &current
	}

	return d.Normalize(), ok
}

func payloadModel(p codexPayload) string {
	candidates := []string{p.Model}
	if p.Info != nil {
		candidates = append(candidates, p.Info.Model, p.Info.ModelName)
		if p.Info.Metadata != nil {
			candidates = append(candidates, p.Info.Metadata.Model)
		}
	}
	if p.Metadata != nil {
		candidates = append(candidates, p.Metadata.Model)
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// ParseCodexFile folds one session file into usage events. Lines are processed
// strictly in order since cumulative reports depend on their predecessors.
func (l *Loader) ParseCodexFile(path string) CodexFileResult {
	result := CodexFileResult{Path: path}

	file, err := os.Open(path)
	if err != nil {
		loadErr := types.LoaderError{Path: path, Err: err}
		l.logger.Warn().Err(loadErr).Msg("cannot open codex session")
		result.Issues = append(result.Issues, loadErr.Error())
		return result
	}
	defer file.Close()

	var session codexSession
	scanner := newLineScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry codexEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			parseErr := types.ParseError{Line: lineNum, Err: err}
			l.logger.Debug().Str("path", path).Err(parseErr).Msg("malformed codex line")
			result.Issues = append(result.Issues, fmt.Sprintf("%s: %v", path, parseErr))
			continue
		}

		switch entry.Type {
		case codexEntryTurnContext:
			var tc codexTurnContext
			if err := json.Unmarshal(entry.Payload, &tc); err == nil && strings.TrimSpace(tc.Model) != "" {
				session.currentModel = strings.TrimSpace(tc.Model)
				session.currentModelIsFallback = false
			}
		case codexEntryEventMsg:
			var payload codexPayload
			if err := json.Unmarshal(entry.Payload, &payload); err != nil {
				parseErr := types.ParseError{Line: lineNum, Err: err}
				result.Issues = append(result.Issues, fmt.Sprintf("%s: %v", path, parseErr))
				continue
			}
			if payload.Type != codexPayloadTokens {
				continue
			}
			l.applyTokenCount(&session, &result, lineNum, entry, payload)
		}
	}

	if err := scanner.Err(); err != nil {
		loadErr := types.LoaderError{Path: path, Err: err}
		l.logger.Warn().Err(loadErr).Msg("codex session read stopped early")
		result.Issues = append(result.Issues, loadErr.Error())
	}

	if session.usedFallback {
		result.UsedFallback = true
		result.Issues = append(result.Issues,
			fmt.Sprintf("%s: no model metadata found, attributed usage to fallback model %s", path, FallbackModel))
	}

	return result
}

func (l *Loader) applyTokenCount(session *codexSession, result *CodexFileResult, lineNum int, entry codexEntry, payload codexPayload) {
	ts, hasTimestamp := parseTimestamp(entry.Timestamp)

	if hasTimestamp {
		l.applyRateLimits(result, lineNum, ts, payload.RateLimits)
	}

	if payload.Info == nil {
		return
	}

	usage, ok := session.delta(payload.Info)
	if !ok || usage.IsZero() {
		return
	}

	model, isFallback := session.resolveModel(payload)
	if !hasTimestamp {
		l.logger.Debug().Str("path", result.Path).Str("model", model).Msg("dropping codex usage without timestamp")
		return
	}

	result.Events = append(result.Events, types.TokenUsageEvent{
		Timestamp:       ts,
		Model:           model,
		Usage:           usage,
		IsFallbackModel: isFallback,
	})
}

// applyRateLimits decodes the rate_limits block independently of the usage on
// the same line. A decode failure is one issue and no reading.
func (l *Loader) applyRateLimits(result *CodexFileResult, lineNum int, ts time.Time, raw json.RawMessage) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return
	}

	var limits codexRateLimits
	if err := json.Unmarshal(raw, &limits); err != nil {
		parseErr := types.ParseError{Line: lineNum, Err: fmt.Errorf("rate_limits: %w", err)}
		l.logger.Debug().Str("path", result.Path).Err(parseErr).Msg("malformed codex rate limits")
		result.Issues = append(result.Issues, fmt.Sprintf("%s: %v", result.Path, parseErr))
		return
	}

	snapshot, ok := limits.snapshot(ts)
	if !ok {
		return
	}
	if result.RateLimits == nil || !snapshot.Timestamp.Before(result.RateLimits.Timestamp) {
		result.RateLimits = &snapshot
	}
}
