package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carpenike/repcoach/internal/llm"
	"github.com/carpenike/repcoach/internal/logger"
	"github.com/carpenike/repcoach/internal/models"
	"github.com/carpenike/repcoach/internal/program"
)

const (
	tracerName      = "github.com/carpenike/repcoach/internal/generator"
	defaultGoal     = "Maintenir le rythme"
	defaultChunkMax = 15
)

// Config holds the per-request generation settings.
type Config struct {
	Goal         string
	Options      llm.Options
	ChunkMax     int
	Policy       string
	ChunkRetries int
}

// Generator turns requests into programs through a Provider. A Generator is
// built per request and holds no state between calls.
type Generator struct {
	provider llm.Provider
	log      *logger.Logger
	cfg      Config
	mapper   program.Mapper
	now      func() time.Time
	tracer   trace.Tracer
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithTracer overrides the tracer used for generation spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) { g.tracer = t }
}

// New creates a Generator. A nil log discards output.
func New(provider llm.Provider, log *logger.Logger, cfg Config, opts ...Option) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(cfg.Goal) == "" {
		cfg.Goal = defaultGoal
	}
	if cfg.ChunkMax < 1 {
		cfg.ChunkMax = defaultChunkMax
	}
	if cfg.Policy == "" {
		cfg.Policy = models.BatchPolicyAbort
	}
	if cfg.ChunkRetries < 0 {
		cfg.ChunkRetries = 0
	}
	g := &Generator{
		provider: provider,
		log:      log,
		cfg:      cfg,
		mapper:   program.Mapper{Normalizer: program.Normalizer{Log: log}},
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result is the outcome of a daily generation.
type Result struct {
	Program    *program.Program
	Fallback   bool
	Cause      error
	Model      string
	TokensUsed int
	Duration   time.Duration
}

// Daily generates the program for one day. Unusable model output is
// replaced by the fallback program; only invalid requests and provider
// failures return an error.
func (g *Generator) Daily(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, err := req.TargetDate(g.now())
	if err != nil {
		return nil, err
	}
	goal := g.goal(req)

	ctx, span := g.tracer.Start(ctx, "generator.daily", trace.WithAttributes(
		attribute.String("repcoach.date", date.Format(program.DateLayout)),
		attribute.String("llm.provider", g.provider.Name()),
	))
	defer span.End()

	prompt, err := BuildDailyPrompt(req.Stats, goal, date)
	if err != nil {
		return nil, spanError(span, err)
	}
	g.log.Debug("daily prompt built", "uid", req.UID, "date", date.Format(program.DateLayout), "chars", len(prompt))

	resp, err := g.provider.Complete(ctx, prompt, g.cfg.Options)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("%w: %w", ErrGenerationFailed, err))
	}

	result := &Result{Model: resp.Model, TokensUsed: resp.TokensUsed, Duration: resp.Duration}
	result.Program, err = g.parseDaily(resp.Content, date)
	if err != nil {
		g.log.Warn("model output unusable, serving fallback program",
			"uid", req.UID, "date", date.Format(program.DateLayout), "error", err,
			"response_chars", len(resp.Content))
		span.SetAttributes(attribute.Bool("repcoach.fallback", true))
		result.Program = program.FallbackProgram(date)
		result.Fallback = true
		result.Cause = err
	}
	span.SetAttributes(attribute.Int("llm.tokens", resp.TokensUsed))
	return result, nil
}

func (g *Generator) parseDaily(content string, date time.Time) (*program.Program, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	return g.mapper.Map(raw, date)
}

func (g *Generator) goal(req Request) string {
	if v := strings.TrimSpace(req.Objectif); v != "" {
		return v
	}
	return g.cfg.Goal
}

// IsRecoverable reports whether err comes from unusable model output rather
// than from the request or the provider.
func IsRecoverable(err error) bool {
	return errors.Is(err, llm.ErrMalformedResponse) || errors.Is(err, program.ErrMissingExercises)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
