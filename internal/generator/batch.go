package generator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carpenike/repcoach/internal/llm"
	"github.com/carpenike/repcoach/internal/models"
	"github.com/carpenike/repcoach/internal/program"
)

// BatchResult is the outcome of a week or month generation.
type BatchResult struct {
	Programs     []*program.Program
	Chunks       int
	FallbackDays int
	Model        string
	TokensUsed   int
	Duration     time.Duration
}

// Batch generates one program per consecutive day of the requested range.
// Chunks of at most ChunkMax days are requested one after the other, and the
// context is checked before each chunk. A chunk failure is handled according
// to the configured policy; under the default policy no partial result is
// returned.
func (g *Generator) Batch(ctx context.Context, req Request) (*BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !req.IsBatch() {
		return nil, fmt.Errorf("%w: range missing", ErrInvalidRequest)
	}
	start, err := req.BatchStart(g.now())
	if err != nil {
		return nil, err
	}
	total := req.Range.Days()
	goal := g.goal(req)

	ctx, span := g.tracer.Start(ctx, "generator.batch", trace.WithAttributes(
		attribute.String("repcoach.range", string(req.Range)),
		attribute.String("repcoach.start_date", start.Format(program.DateLayout)),
		attribute.Int("repcoach.days", total),
		attribute.String("repcoach.policy", g.cfg.Policy),
	))
	defer span.End()

	result := &BatchResult{Programs: make([]*program.Program, 0, total)}
	cursor := start
	for remaining := total; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return nil, spanError(span, fmt.Errorf("%w: %w", ErrGenerationFailed, err))
		}
		n := min(g.cfg.ChunkMax, remaining)

		programs, err := g.chunkWithPolicy(ctx, req, goal, cursor, n, result)
		if err != nil {
			return nil, spanError(span, err)
		}

		result.Programs = append(result.Programs, programs...)
		result.Chunks++
		remaining -= n
		cursor = cursor.AddDate(0, 0, n)
	}

	span.SetAttributes(
		attribute.Int("repcoach.chunks", result.Chunks),
		attribute.Int("repcoach.fallback_days", result.FallbackDays),
		attribute.Int("llm.tokens", result.TokensUsed),
	)
	g.log.Info("batch generated",
		"uid", req.UID, "range", req.Range, "start", start.Format(program.DateLayout),
		"chunks", result.Chunks, "fallback_days", result.FallbackDays, "tokens", result.TokensUsed)
	return result, nil
}

// chunkWithPolicy runs one chunk, applying retries and fallback substitution
// for unusable output. Provider errors always abort.
func (g *Generator) chunkWithPolicy(ctx context.Context, req Request, goal string, start time.Time, n int, acc *BatchResult) ([]*program.Program, error) {
	attempts := 1
	if g.cfg.Policy == models.BatchPolicyRetry {
		attempts += g.cfg.ChunkRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
			}
			g.log.Warn("retrying batch chunk",
				"start", start.Format(program.DateLayout), "days", n, "attempt", attempt, "error", lastErr)
		}

		programs, resp, err := g.chunk(ctx, req, goal, start, n, acc.Chunks)
		if resp != nil {
			acc.TokensUsed += resp.TokensUsed
			acc.Duration += resp.Duration
			if resp.Model != "" {
				acc.Model = resp.Model
			}
		}
		if err == nil {
			return programs, nil
		}
		if !IsRecoverable(err) {
			return nil, err
		}
		lastErr = err
	}

	if g.cfg.Policy == models.BatchPolicyFallback {
		g.log.Warn("batch chunk unusable, filling with fallback programs",
			"uid", req.UID, "start", start.Format(program.DateLayout), "days", n, "error", lastErr)
		programs := make([]*program.Program, n)
		for i := range programs {
			programs[i] = program.FallbackProgram(start.AddDate(0, 0, i))
		}
		acc.FallbackDays += n
		return programs, nil
	}

	return nil, fmt.Errorf("generator: chunk starting %s (%d days): %w",
		start.Format(program.DateLayout), n, lastErr)
}

// chunk requests n programs starting at start and maps them onto
// consecutive dates.
func (g *Generator) chunk(ctx context.Context, req Request, goal string, start time.Time, n, index int) ([]*program.Program, *llm.Response, error) {
	ctx, span := g.tracer.Start(ctx, "generator.chunk", trace.WithAttributes(
		attribute.Int("repcoach.chunk.index", index),
		attribute.String("repcoach.chunk.start", start.Format(program.DateLayout)),
		attribute.Int("repcoach.chunk.days", n),
	))
	defer span.End()

	prompt, err := BuildBatchPrompt(req.Stats, goal, n, start)
	if err != nil {
		return nil, nil, spanError(span, err)
	}

	resp, err := g.provider.Complete(ctx, prompt, g.cfg.Options)
	if err != nil {
		return nil, nil, spanError(span, fmt.Errorf("%w: %w", ErrGenerationFailed, err))
	}

	raw, err := llm.ExtractJSON(resp.Content)
	if err != nil {
		return nil, resp, spanError(span, err)
	}
	items, err := g.unwrapEnvelope(raw, n)
	if err != nil {
		return nil, resp, spanError(span, err)
	}

	programs := make([]*program.Program, 0, n)
	for i, item := range items {
		p, err := g.mapper.Map(item, start.AddDate(0, 0, i))
		if err != nil {
			return nil, resp, spanError(span, fmt.Errorf("program %d of chunk: %w", i+1, err))
		}
		programs = append(programs, p)
	}
	span.SetAttributes(attribute.Int("llm.tokens", resp.TokensUsed))
	return programs, resp, nil
}

// unwrapEnvelope accepts an array of programs, an object carrying a
// "programs" array, or a lone program when n is 1. It returns exactly n
// elements.
func (g *Generator) unwrapEnvelope(raw any, n int) ([]any, error) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		if arr, ok := v["programs"].([]any); ok {
			items = arr
		} else if n == 1 {
			items = []any{v}
		} else {
			return nil, fmt.Errorf("%w: expected an array of %d programs, got an object", llm.ErrMalformedResponse, n)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected envelope %T", llm.ErrMalformedResponse, raw)
	}

	if len(items) < n {
		return nil, fmt.Errorf("%w: expected %d programs, got %d", llm.ErrMalformedResponse, n, len(items))
	}
	if len(items) > n {
		g.log.Warn("model returned extra programs, truncating", "expected", n, "got", len(items))
		items = items[:n]
	}
	return items, nil
}
