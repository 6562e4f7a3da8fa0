package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/carpenike/repcoach/internal/generator"
	"github.com/carpenike/repcoach/internal/llm"
	"github.com/carpenike/repcoach/internal/middleware"
	"github.com/carpenike/repcoach/internal/models"
	"github.com/carpenike/repcoach/internal/program"
)

// batchResponse is the body returned for week and month requests.
type batchResponse struct {
	Programs []*program.Program `json:"programs"`
}

// GenerateProgram handles POST /generate-program. Without a range it answers
// with one Program; with range week or month it answers {"programs": [...]}.
func (a *API) GenerateProgram(w http.ResponseWriter, r *http.Request) {
	var req generator.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	log := a.Log.With("request_id", middleware.RequestIDFrom(r.Context()), "uid", req.UID)

	provider, err := a.provider(r.Context())
	if errors.Is(err, llm.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "no model provider is configured")
		return
	}
	if err != nil {
		log.Error("build model provider", "error", err)
		writeError(w, http.StatusInternalServerError, "provider_error", "model provider could not be initialised")
		return
	}
	defer a.releaseProvider(provider)

	ctx, cancel := context.WithTimeout(r.Context(), models.GetGenerationTimeout(a.DB))
	defer cancel()

	gen := generator.New(provider, log, generator.ConfigFromSettings(a.DB), generator.WithClock(a.now))
	if req.IsBatch() {
		a.generateBatch(ctx, w, gen, req)
		return
	}
	a.generateDaily(ctx, w, gen, req)
}

func (a *API) generateDaily(ctx context.Context, w http.ResponseWriter, gen *generator.Generator, req generator.Request) {
	started := time.Now()
	date, _ := req.TargetDate(a.now())
	run := &models.GenerationRun{
		UID:       req.UID,
		Kind:      models.RunKindDaily,
		StartDate: date.Format(program.DateLayout),
		Days:      1,
	}

	res, err := gen.Daily(ctx, req)
	run.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		a.recordRun(run)
		a.writeGenerationError(w, req, err)
		return
	}

	run.Status = models.RunStatusOK
	run.Model = res.Model
	run.TokensUsed = res.TokensUsed
	if res.Fallback {
		run.Status = models.RunStatusFallback
		run.Error = res.Cause.Error()
		if a.Notifier != nil {
			a.Notifier.FallbackServed(req.UID, run.StartDate, res.Cause)
		}
	}
	a.recordRun(run)
	writeJSON(w, http.StatusOK, res.Program)
}

func (a *API) generateBatch(ctx context.Context, w http.ResponseWriter, gen *generator.Generator, req generator.Request) {
	started := time.Now()
	start, _ := req.BatchStart(a.now())
	run := &models.GenerationRun{
		UID:       req.UID,
		Kind:      models.RunKindBatch,
		Range:     string(req.Range),
		StartDate: start.Format(program.DateLayout),
		Days:      req.Range.Days(),
	}

	res, err := gen.Batch(ctx, req)
	run.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		a.recordRun(run)
		if a.Notifier != nil {
			a.Notifier.BatchFailed(req.UID, run.Range, run.StartDate, err)
		}
		a.writeGenerationError(w, req, err)
		return
	}

	run.Status = models.RunStatusOK
	if res.FallbackDays > 0 {
		run.Status = models.RunStatusFallback
	}
	run.Model = res.Model
	run.TokensUsed = res.TokensUsed
	a.recordRun(run)
	writeJSON(w, http.StatusOK, batchResponse{Programs: res.Programs})
}

// writeGenerationError maps generation failures onto status codes.
func (a *API) writeGenerationError(w http.ResponseWriter, req generator.Request, err error) {
	switch {
	case errors.Is(err, generator.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		a.Log.Warn("generation timed out", "uid", req.UID, "range", req.Range, "error", err)
		writeError(w, http.StatusGatewayTimeout, "timeout", "program generation timed out")
	case generator.IsRecoverable(err):
		a.Log.Warn("model output unusable", "uid", req.UID, "range", req.Range, "error", err)
		writeError(w, http.StatusBadGateway, "bad_model_output", "the model returned an unusable program")
	default:
		a.Log.Error("program generation failed", "uid", req.UID, "range", req.Range, "error", err)
		msg := "program generation failed"
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.UserMessage()
		}
		writeError(w, http.StatusInternalServerError, "generation_failed", msg)
	}
}
