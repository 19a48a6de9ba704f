package usage

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/sdpower/agentusage/internal/calculator"
	"github.com/sdpower/agentusage/internal/loader"
)

// DefaultClaudeFileLimit caps how many of the most recent Claude transcripts a
// query reads.
const DefaultClaudeFileLimit = 200

type Option func(*Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithEnvironment(env loader.Environment) Option {
	return func(e *Engine) { e.env = env }
}

// WithClaudeFileLimit sets the transcript cap; zero or less disables it.
func WithClaudeFileLimit(n int) Option {
	return func(e *Engine) { e.claudeFileLimit = n }
}

func WithMaxWorkers(n int) Option {
	return func(e *Engine) { e.maxWorkers = n }
}

func WithPricing(svc calculator.PricingService) Option {
	return func(e *Engine) { e.pricing = svc }
}
