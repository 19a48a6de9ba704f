// Package usage is the entry point of the engine: it runs the Claude and Codex
// pipelines concurrently and folds their outcomes into one summary.
package usage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/text/language"

	"github.com/sdpower/agentusage/internal/calculator"
	"github.com/sdpower/agentusage/internal/loader"
	"github.com/sdpower/agentusage/internal/locale"
	"github.com/sdpower/agentusage/internal/pricing"
	"github.com/sdpower/agentusage/internal/types"
)

const tracerName = "github.com/sdpower/agentusage/internal/usage"

// Options are the per-query inputs. Both fields are optional.
type Options struct {
	Timezone string
	Locale   string
}

// Engine holds no state between queries; every call re-reads the logs.
type Engine struct {
	logger          zerolog.Logger
	tracer          trace.Tracer
	now             func() time.Time
	env             loader.Environment
	pricing         calculator.PricingService
	claudeFileLimit int
	maxWorkers      int

	loader     *loader.Loader
	calculator *calculator.Calculator
}

func New(opts ...Option) *Engine {
	e := &Engine{
		logger:          zerolog.Nop(),
		tracer:          noop.NewTracerProvider().Tracer(tracerName),
		now:             time.Now,
		env:             loader.DefaultEnvironment(),
		claudeFileLimit: DefaultClaudeFileLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pricing == nil {
		e.pricing = pricing.NewService()
	}

	e.loader = loader.New()
	e.loader.SetLogger(e.logger)
	e.loader.SetMaxWorkers(e.maxWorkers)
	e.calculator = calculator.New(e.pricing)
	return e
}

// Close is a no-op; the engine holds no resources.
func (e *Engine) Close() error {
	return nil
}

type query struct {
	now      time.Time
	location *time.Location
	locale   language.Tag
}

type outcome[T any] struct {
	result *T
	err    error
}

// GetUsage runs the pipelines the mode selects. A single provider's failure is
// reported in the summary's Errors; the call itself fails only when nothing
// requested could be produced, or before any I/O on bad input.
func (e *Engine) GetUsage(ctx context.Context, mode Mode, opts Options) (*types.UsageSummary, error) {
	wantClaude, wantCodex, ok := mode.providers()
	if !ok {
		return nil, fmt.Errorf("%w: mode %q", types.ErrNoProviderSelected, string(mode))
	}

	q, err := e.newQuery(opts)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "usage.GetUsage", trace.WithAttributes(
		attribute.String("usage.mode", string(mode)),
		attribute.String("usage.timezone", q.location.String()),
	))
	defer span.End()

	var (
		wg        sync.WaitGroup
		claudeOut outcome[types.ClaudeUsageResult]
		codexOut  outcome[types.CodexUsageResult]
	)
	if wantClaude {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claudeOut = runPipeline(ctx, e, types.ProviderClaude, func(ctx context.Context) (*types.ClaudeUsageResult, error) {
				return e.claudeUsage(ctx, q)
			})
		}()
	}
	if wantCodex {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codexOut = runPipeline(ctx, e, types.ProviderCodex, func(ctx context.Context) (*types.CodexUsageResult, error) {
				return e.codexUsage(ctx, q)
			})
		}()
	}
	wg.Wait()

	summary := &types.UsageSummary{
		Claude:      claudeOut.result,
		Codex:       codexOut.result,
		Errors:      []types.ProviderError{},
		GeneratedAt: q.now,
	}
	if claudeOut.err != nil {
		summary.Errors = append(summary.Errors, types.ProviderError{Provider: types.ProviderClaude, Err: claudeOut.err})
	}
	if codexOut.err != nil {
		summary.Errors = append(summary.Errors, types.ProviderError{Provider: types.ProviderCodex, Err: codexOut.err})
	}

	var failed bool
	switch mode {
	case ModeClaude:
		failed = summary.Claude == nil
	case ModeCodex:
		failed = summary.Codex == nil
	default:
		failed = summary.Claude == nil && summary.Codex == nil && len(summary.Errors) > 0
	}
	if failed {
		usageErr := &types.UsageError{Errors: summary.Errors}
		span.RecordError(usageErr)
		span.SetStatus(codes.Error, usageErr.Error())
		return nil, usageErr
	}

	span.SetAttributes(attribute.Int("usage.errors", len(summary.Errors)))
	return summary, nil
}

func (e *Engine) newQuery(opts Options) (query, error) {
	loc, err := resolveLocation(opts.Timezone)
	if err != nil {
		return query{}, err
	}
	tag, err := locale.Parse(opts.Locale)
	if err != nil {
		return query{}, err
	}
	return query{now: e.now(), location: loc, locale: tag}, nil
}

func resolveLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, types.ValidationError{Field: "timezone", Message: err.Error()}
	}
	return loc, nil
}

// runPipeline isolates one provider: errors and panics both end up in the outcome.
func runPipeline[T any](ctx context.Context, e *Engine, provider types.Provider, fn func(context.Context) (*T, error)) (out outcome[T]) {
	ctx, span := e.tracer.Start(ctx, "usage.pipeline", trace.WithAttributes(
		attribute.String("usage.provider", string(provider)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			out = outcome[T]{err: fmt.Errorf("pipeline panicked: %v", r)}
		}
		if out.err != nil {
			span.RecordError(out.err)
			span.SetStatus(codes.Error, out.err.Error())
			e.logger.Warn().Err(out.err).Str("provider", string(provider)).Msg("usage pipeline failed")
		}
	}()

	result, err := fn(ctx)
	if err != nil {
		return outcome[T]{err: err}
	}
	return outcome[T]{result: result}
}

func (e *Engine) claudeUsage(ctx context.Context, q query) (*types.ClaudeUsageResult, error) {
	span := trace.SpanFromContext(ctx)

	res, err := loader.ResolveClaudeRoots(e.env)
	if err != nil {
		return nil, err
	}

	windowStart := calculator.ClaudeWindowStart(q.now)
	if len(res.Roots) == 0 {
		e.logger.Debug().Strs("missing", res.Missing).Msg("no claude data directories")
		return &types.ClaudeUsageResult{
			Roots:              []string{},
			MissingDirectories: nonNil(res.Missing),
			WindowStart:        windowStart,
			Issues:             []string{},
		}, nil
	}

	files := e.loader.CollectFiles(loader.ClaudeTranscriptDirs(res.Roots), loader.CollectOptions{
		Limit:         e.claudeFileLimit,
		ModifiedSince: windowStart,
	})
	parsed, err := e.loader.LoadClaude(ctx, files, windowStart)
	if err != nil {
		return nil, err
	}

	var (
		events []types.UsageEvent
		issues = []string{}
	)
	for _, file := range parsed {
		events = append(events, file.Events...)
		issues = append(issues, file.Issues...)
	}

	result := e.calculator.AggregateClaude(events, q.now)
	result.Available = true
	result.Roots = res.Roots
	result.MissingDirectories = nonNil(res.Missing)
	result.FilesScanned = len(files)
	result.WindowStart = windowStart
	result.Issues = append(issues, result.Issues...)

	span.SetAttributes(
		attribute.Int("usage.files", len(files)),
		attribute.Int("usage.events", result.EntryCount),
	)
	e.logger.Debug().
		Int("files", len(files)).
		Int("entries", result.EntryCount).
		Int64("tokens", result.TotalTokens).
		Msg("claude usage aggregated")

	return &result, nil
}

func (e *Engine) codexUsage(ctx context.Context, q query) (*types.CodexUsageResult, error) {
	span := trace.SpanFromContext(ctx)

	res, err := loader.ResolveCodexRoots(e.env)
	if err != nil {
		return nil, err
	}

	var (
		files  []string
		events []types.TokenUsageEvent
		issues = []string{}
		latest *types.RateLimitSnapshot
	)
	if len(res.Roots) > 0 {
		files = e.loader.CollectFiles(res.Roots, loader.CollectOptions{})
		parsed, err := e.loader.LoadCodex(ctx, files)
		if err != nil {
			return nil, err
		}
		for _, file := range parsed {
			events = append(events, file.Events...)
			issues = append(issues, file.Issues...)
			if file.RateLimits != nil && (latest == nil || file.RateLimits.Timestamp.After(latest.Timestamp)) {
				latest = file.RateLimits
			}
		}
	} else {
		e.logger.Debug().Strs("missing", res.Missing).Msg("no codex session directories")
	}

	result := e.calculator.AggregateCodex(events, q.now, q.location)
	result.Available = len(res.Roots) > 0
	result.Roots = nonNil(res.Roots)
	result.MissingDirectories = nonNil(res.Missing)
	result.FilesScanned = len(files)
	result.DateLabel = locale.FormatDate(result.DayStart, q.locale)
	result.RateLimits = calculator.BuildRateLimitWindows(latest, q.now)
	result.Issues = append(issues, result.Issues...)

	span.SetAttributes(
		attribute.Int("usage.files", len(files)),
		attribute.Int("usage.events", len(events)),
	)
	e.logger.Debug().
		Int("files", len(files)).
		Int("events", len(events)).
		Int("models", len(result.Models)).
		Msg("codex usage aggregated")

	return &result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
