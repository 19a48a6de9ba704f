package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdpower/agentusage/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testEnv(home string, vars map[string]string) Environment {
	return Environment{
		Getenv:  func(key string) string { return vars[key] },
		HomeDir: func() (string, error) { return home, nil },
	}
}

func TestResolveClaudeRootsOverride(t *testing.T) {
	home := t.TempDir()
	custom := t.TempDir()
	writeFile(t, filepath.Join(home, ".claude", "projects", "a.jsonl"), "")

	res, err := ResolveClaudeRoots(testEnv(home, map[string]string{
		ClaudeConfigDirEnv: custom + ", " + filepath.Join(home, "nope") + "," + custom,
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{custom}, res.Roots, "override replaces defaults and is deduplicated")
	assert.Equal(t, []string{filepath.Join(home, "nope")}, res.Missing)
}

func TestResolveClaudeRootsOverrideMissingFallsBack(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".claude"), 0o755))

	res, err := ResolveClaudeRoots(testEnv(home, map[string]string{
		ClaudeConfigDirEnv: filepath.Join(home, "does-not-exist"),
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(home, ".claude")}, res.Roots)
	assert.Contains(t, res.Missing, filepath.Join(home, "does-not-exist"))
	assert.Contains(t, res.Missing, filepath.Join(home, ".config", "claude"))
}

func TestResolveCodexRoots(t *testing.T) {
	home := t.TempDir()
	codexHome := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(codexHome, "sessions"), 0o755))

	res, err := ResolveCodexRoots(testEnv(home, map[string]string{CodexHomeEnv: codexHome}))
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(codexHome, "sessions")}, res.Roots)
	assert.Equal(t, []string{filepath.Join(home, ".codex", "sessions")}, res.Missing)
}

func TestResolveCodexRootsOverrideAndDefault(t *testing.T) {
	home := t.TempDir()
	defaultSessions := filepath.Join(home, ".codex", "sessions")
	require.NoError(t, os.MkdirAll(defaultSessions, 0o755))

	testCases := []struct {
		name      string
		codexHome func(t *testing.T) string
		expected  func(codexHome string) []string
	}{
		{
			name: "override adds to default",
			codexHome: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "sessions"), 0o755))
				return dir
			},
			expected: func(codexHome string) []string {
				return []string{filepath.Join(codexHome, "sessions"), defaultSessions}
			},
		},
		{
			name:      "override pointing at default is deduplicated",
			codexHome: func(*testing.T) string { return filepath.Join(home, ".codex") + string(filepath.Separator) },
			expected:  func(string) []string { return []string{defaultSessions} },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			codexHome := tc.codexHome(t)
			res, err := ResolveCodexRoots(testEnv(home, map[string]string{CodexHomeEnv: codexHome}))
			require.NoError(t, err)

			assert.Equal(t, tc.expected(codexHome), res.Roots)
			assert.Empty(t, res.Missing)
		})
	}
}

func TestResolveCodexRootsHomeError(t *testing.T) {
	env := Environment{
		Getenv:  func(string) string { return "" },
		HomeDir: func() (string, error) { return "", errors.New("no home") },
	}
	_, err := ResolveCodexRoots(env)
	assert.Error(t, err)
}

func TestCollectFiles(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	paths := map[string]time.Duration{
		"a/old.jsonl":    -10 * time.Hour,
		"a/new.jsonl":    -1 * time.Minute,
		"b/mid.JSONL":    -2 * time.Hour,
		"b/notes.txt":    -1 * time.Minute,
		"b/c/deep.jsonl": -30 * time.Minute,
	}
	for rel, age := range paths {
		full := filepath.Join(root, rel)
		writeFile(t, full, "{}\n")
		require.NoError(t, os.Chtimes(full, now.Add(age), now.Add(age)))
	}

	l := New()

	t.Run("sorted newest first", func(t *testing.T) {
		files := l.CollectFiles([]string{root, root}, CollectOptions{})
		require.Len(t, files, 4)
		assert.Equal(t, filepath.Join(root, "a/new.jsonl"), files[0])
		assert.Equal(t, filepath.Join(root, "b/c/deep.jsonl"), files[1])
		assert.Equal(t, filepath.Join(root, "b/mid.JSONL"), files[2])
		assert.Equal(t, filepath.Join(root, "a/old.jsonl"), files[3])
	})

	t.Run("limit", func(t *testing.T) {
		files := l.CollectFiles([]string{root}, CollectOptions{Limit: 2})
		assert.Len(t, files, 2)
	})

	t.Run("modified since", func(t *testing.T) {
		files := l.CollectFiles([]string{root}, CollectOptions{ModifiedSince: now.Add(-5 * time.Hour)})
		assert.Len(t, files, 3)
		assert.NotContains(t, files, filepath.Join(root, "a/old.jsonl"))
	})

	t.Run("missing root", func(t *testing.T) {
		files := l.CollectFiles([]string{filepath.Join(root, "missing")}, CollectOptions{})
		assert.Empty(t, files)
	})
}

func TestParseClaudeFile(t *testing.T) {
	windowStart := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "session.jsonl")

	lines := []string{
		`{"timestamp":"2025-06-01T11:00:00Z","requestId":"r1","message":{"id":"m1","model":"claude-sonnet-4-20250514","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":10,"cache_read_input_tokens":5}},"costUSD":0.25}`,
		`not json`,
		`{"timestamp":"2025-06-01T09:59:59Z","message":{"usage":{"input_tokens":999}}}`,
		`{"timestamp":"2025-06-01T10:00:00Z","usage":{"input_tokens":7}}`,
		`{"timestamp":"2025-06-01T12:00:00Z","message":{"usage":{"input_tokens":0,"output_tokens":0}}}`,
		`{"message":{"usage":{"input_tokens":3}}}`,
		`{"timestamp":"2025-06-01T12:00:00Z","message":{"model":"<synthetic>","usage":{"input_tokens":3}}}`,
		`{"created_at":1748779200,"message":{"usage":{"output_tokens":4}}}`,
		`{"type":"user","timestamp":"2025-06-01T12:00:00Z"}`,
	}
	writeFile(t, path, strings.Join(lines, "\n")+"\n")

	result := New().ParseClaudeFile(path, windowStart)
	assert.Empty(t, result.Issues)
	require.Len(t, result.Events, 3)

	first := result.Events[0]
	assert.Equal(t, int64(100), first.InputTokens)
	assert.Equal(t, int64(50), first.OutputTokens)
	assert.Equal(t, int64(10), first.CacheCreationTokens)
	assert.Equal(t, int64(5), first.CacheReadTokens)
	require.NotNil(t, first.CostUSD)
	assert.InDelta(t, 0.25, *first.CostUSD, 1e-12)
	assert.Equal(t, "claude-sonnet-4-20250514", first.Model)
	assert.Equal(t, "m1:r1", first.DedupeKey)

	assert.Equal(t, int64(7), result.Events[1].InputTokens, "entry at window start is kept")
	assert.Equal(t, int64(4), result.Events[2].OutputTokens, "epoch seconds timestamp")
}

func TestParseClaudeFileMissing(t *testing.T) {
	result := New().ParseClaudeFile(filepath.Join(t.TempDir(), "gone.jsonl"), time.Time{})
	assert.Empty(t, result.Events)
	assert.Len(t, result.Issues, 1)
}

func TestParseCodexFileCumulativeAndDelta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollout.jsonl")
	lines := []string{
		`{"timestamp":"2025-06-01T10:00:00Z","type":"turn_context","payload":{"model":"gpt-5-codex"}}`,
		`{"timestamp":"2025-06-01T10:01:00Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":1000,"cached_input_tokens":200,"output_tokens":100,"total_tokens":1100}}}}`,
		`{"timestamp":"2025-06-01T10:02:00Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":1500,"cached_input_tokens":300,"output_tokens":160,"total_tokens":1660}}}}`,
		`{"timestamp":"2025-06-01T10:02:30Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":1500,"cached_input_tokens":300,"output_tokens":160,"total_tokens":1660}}}}`,
		`{"timestamp":"2025-06-01T10:03:00Z","type":"event_msg","payload":{"type":"token_count","info":{"model":"gpt-5-mini","last_token_usage":{"input_tokens":40,"cached_input_tokens":90,"output_tokens":10},"total_token_usage":{"input_tokens":1540,"cached_input_tokens":300,"output_tokens":170,"total_tokens":1710}}}}`,
		`{"timestamp":"2025-06-01T10:04:00Z","type":"event_msg","payload":{"type":"agent_message","message":"hi"}}`,
		`{broken`,
		`{"timestamp":"2025-06-01T10:05:00Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":1600,"cached_input_tokens":300,"output_tokens":200,"total_tokens":1800}}}}`,
	}
	writeFile(t, path, strings.Join(lines, "\n")+"\n")

	result := New().ParseCodexFile(path)
	require.Len(t, result.Issues, 1, "one issue for the malformed line")
	assert.Contains(t, result.Issues[0], "line 7")
	assert.False(t, result.UsedFallback)

	require.Len(t, result.Events, 4, "the repeated cumulative report is dropped")

	assert.Equal(t, "gpt-5-codex", result.Events[0].Model)
	assert.Equal(t, types.TokenUsageDelta{InputTokens: 1000, CachedInputTokens: 200, OutputTokens: 100, TotalTokens: 1100}, result.Events[0].Usage)
	assert.Equal(t, types.TokenUsageDelta{InputTokens: 500, CachedInputTokens: 100, OutputTokens: 60, TotalTokens: 560}, result.Events[1].Usage)

	// last_token_usage wins, cached is capped at input and total is filled in.
	assert.Equal(t, "gpt-5-mini", result.Events[2].Model)
	assert.Equal(t, types.TokenUsageDelta{InputTokens: 40, CachedInputTokens: 40, OutputTokens: 10, TotalTokens: 50}, result.Events[2].Usage)

	// The explicit model sticks, and the snapshot advanced on the delta line.
	assert.Equal(t, "gpt-5-mini", result.Events[3].Model)
	assert.Equal(t, types.TokenUsageDelta{InputTokens: 60, OutputTokens: 30, TotalTokens: 90}, result.Events[3].Usage)
}

func TestParseCodexFileCumulativeSumsToFinalTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollout.jsonl")
	totals := []int64{120, 480, 480, 1024, 4096}

	var lines []string
	for i, total := range totals {
		ts := time.Date(2025, 6, 1, 10, i, 0, 0, time.UTC).Format(time.RFC3339)
		lines = append(lines, `{"timestamp":"`+ts+`","type":"event_msg","payload":{"type":"token_count","info":{"model":"gpt-5","total_token_usage":{"input_tokens":`+itoa(total)+`,"output_tokens":`+itoa(total/4)+`}}}}`)
	}
	writeFile(t, path, strings.Join(lines, "\n"))

	result := New().ParseCodexFile(path)

	var sum types.TokenUsageDelta
	for _, e := range result.Events {
		sum = sum.Add(e.Usage)
	}
	assert.Equal(t, int64(4096), sum.InputTokens)
	assert.Equal(t, int64(1024), sum.OutputTokens)
	assert.Equal(t, int64(4096+1024), sum.TotalTokens)
}

func TestParseCodexFileFallbackModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.jsonl")
	lines := []string{
		`{"timestamp":"2025-06-01T10:01:00Z","type":"event_msg","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":10,"output_tokens":1}}}}`,
		`{"timestamp":"2025-06-01T10:02:00Z","type":"event_msg","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":20,"output_tokens":2}}}}`,
		`{"timestamp":"2025-06-01T10:03:00Z","type":"turn_context","payload":{"model":"o3"}}`,
		`{"timestamp":"2025-06-01T10:04:00Z","type":"event_msg","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":30,"output_tokens":3}}}}`,
	}
	writeFile(t, path, strings.Join(lines, "\n"))

	result := New().ParseCodexFile(path)
	require.Len(t, result.Events, 3)
	assert.True(t, result.UsedFallback)

	assert.Equal(t, FallbackModel, result.Events[0].Model)
	assert.True(t, result.Events[0].IsFallbackModel)
	assert.True(t, result.Events[1].IsFallbackModel)
	assert.Equal(t, "o3", result.Events[2].Model)
	assert.False(t, result.Events[2].IsFallbackModel)

	fallbackIssues := 0
	for _, issue := range result.Issues {
		if strings.Contains(issue, "fallback model") {
			fallbackIssues++
		}
	}
	assert.Equal(t, 1, fallbackIssues)
}

func TestParseCodexFileRateLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollout.jsonl")
	lines := []string{
		`{"timestamp":"2025-06-01T10:05:00Z","type":"event_msg","payload":{"type":"token_count","rate_limits":{"primary":{"used_percent":40,"window_minutes":300,"resets_in_seconds":600}}}}`,
		`{"timestamp":"2025-06-01T10:01:00Z","type":"event_msg","payload":{"type":"token_count","rate_limits":{"primary":{"used_percent":10,"window_minutes":300}}}}`,
		`{"timestamp":"2025-06-01T10:03:00Z","type":"event_msg","payload":{"type":"token_count","rate_limits":{"secondary":{"used_percent":5,"window_minutes":10080,"resets_at":1748944800000}}}}`,
	}
	writeFile(t, path, strings.Join(lines, "\n"))

	result := New().ParseCodexFile(path)
	assert.Empty(t, result.Events)
	require.NotNil(t, result.RateLimits)

	snap := result.RateLimits
	assert.Equal(t, time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC), snap.Timestamp)
	require.Len(t, snap.Readings, 1)
	assert.Equal(t, "primary", snap.Readings[0].ID)
	assert.Equal(t, 40.0, snap.Readings[0].UsedPercent)
	require.NotNil(t, snap.Readings[0].ResetsAt)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC), *snap.Readings[0].ResetsAt)
}

func TestParseCodexFileRateLimitDrift(t *testing.T) {
	testCases := []struct {
		name          string
		rateLimits    string
		expectedLabel int
		expectIssue   bool
	}{
		{
			name:          "fractional window minutes",
			rateLimits:    `{"primary":{"used_percent":12.5,"window_minutes":299.5,"resets_in_seconds":60}}`,
			expectedLabel: 300,
		},
		{
			name:        "window minutes as string",
			rateLimits:  `{"primary":{"used_percent":12.5,"window_minutes":"300"}}`,
			expectIssue: true,
		},
		{
			name:        "rate limits not an object",
			rateLimits:  `"unavailable"`,
			expectIssue: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rollout.jsonl")
			writeFile(t, path, `{"timestamp":"2025-06-01T10:00:00Z","type":"event_msg","payload":{"type":"token_count",`+
				`"info":{"model":"gpt-5","last_token_usage":{"input_tokens":100,"output_tokens":10}},`+
				`"rate_limits":`+tc.rateLimits+`}}`)

			result := New().ParseCodexFile(path)

			require.Len(t, result.Events, 1, "usage survives rate limit drift")
			assert.Equal(t, int64(110), result.Events[0].Usage.TotalTokens)

			if tc.expectIssue {
				assert.Len(t, result.Issues, 1)
				assert.Nil(t, result.RateLimits)
				return
			}
			assert.Empty(t, result.Issues)
			require.NotNil(t, result.RateLimits)
			require.Len(t, result.RateLimits.Readings, 1)
			assert.Equal(t, tc.expectedLabel, result.RateLimits.Readings[0].WindowMinutes)
		})
	}
}

func TestParseCodexFileFloatCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollout.jsonl")
	lines := []string{
		`{"timestamp":"2025-06-01T10:00:00Z","type":"event_msg","payload":{"type":"token_count","info":{"model":"gpt-5","total_token_usage":{"input_tokens":100.0,"output_tokens":10.0,"total_tokens":110.0}}}}`,
		`{"timestamp":"2025-06-01T10:01:00Z","type":"event_msg","payload":{"type":"token_count","info":{"model":"gpt-5","total_token_usage":{"input_tokens":250.0,"output_tokens":30.0,"total_tokens":280.0}}}}`,
	}
	writeFile(t, path, strings.Join(lines, "\n"))

	result := New().ParseCodexFile(path)
	assert.Empty(t, result.Issues)
	require.Len(t, result.Events, 2)
	assert.Equal(t, int64(110), result.Events[0].Usage.TotalTokens)
	assert.Equal(t, int64(170), result.Events[1].Usage.TotalTokens)
	assert.Equal(t, int64(150), result.Events[1].Usage.InputTokens)
}

func TestParseCodexFileMissing(t *testing.T) {
	result := New().ParseCodexFile(filepath.Join(t.TempDir(), "gone.jsonl"))
	assert.Empty(t, result.Events)
	assert.Len(t, result.Issues, 1)
}

func TestLoadCodexKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 8; i++ {
		p := filepath.Join(dir, itoa(int64(i))+".jsonl")
		writeFile(t, p, `{"timestamp":"2025-06-01T10:00:00Z","type":"event_msg","payload":{"type":"token_count","info":{"model":"gpt-5","last_token_usage":{"input_tokens":`+itoa(int64(i+1))+`}}}}`)
		paths = append(paths, p)
	}

	l := New()
	l.SetMaxWorkers(3)
	results, err := l.LoadCodex(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
		require.Len(t, r.Events, 1)
		assert.Equal(t, int64(i+1), r.Events[0].Usage.InputTokens)
	}
}

func TestLoadClaudeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().LoadClaude(ctx, []string{"a.jsonl"}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseAllRecoversPanic(t *testing.T) {
	paths := []string{"ok.jsonl", "boom.jsonl", "fine.jsonl"}

	_, err := parseAll(context.Background(), 2, paths, func(path string) int {
		if path == "boom.jsonl" {
			panic("corrupt state")
		}
		return len(path)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom.jsonl")
	assert.Contains(t, err.Error(), "corrupt state")
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		input interface{}
		ok    bool
		desc  string
	}{
		{"2025-06-01T12:00:00Z", true, "rfc3339"},
		{"2025-06-01T14:00:00+02:00", true, "offset"},
		{"2025-06-01T12:00:00", true, "no zone"},
		{float64(1748779200), true, "epoch seconds"},
		{float64(1748779200000), true, "epoch millis"},
		{"1748779200000", true, "numeric string"},
		{"yesterday", false, "garbage"},
		{nil, false, "missing"},
		{float64(0), false, "zero"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, ok := parseTimestamp(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, want.Equal(got), "got %s", got)
			}
		})
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
