package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/inference/common/id"
	"basegraph.app/inference/common/llm"
	"basegraph.app/inference/common/logger"
	"basegraph.app/inference/common/metrics"
	"basegraph.app/inference/internal/model"
	"basegraph.app/inference/internal/store"
)

var (
	ErrUpstream           = errors.New("upstream provider failed")
	ErrGenerationNotFound = errors.New("generation not found")
	ErrHistoryDisabled    = errors.New("generation history is disabled")
)

type GenerationService interface {
	Generate(ctx context.Context, prompt string) (*model.Generation, error)
	Get(ctx context.Context, id int64) (*model.Generation, error)
}

type generationService struct {
	generator llm.Generator
	store     store.GenerationStore // nil when history is disabled
	metrics   metrics.Recorder
}

func NewGenerationService(generator llm.Generator, genStore store.GenerationStore, recorder metrics.Recorder) GenerationService {
	return &generationService{
		generator: generator,
		store:     genStore,
		metrics:   recorder,
	}
}

func (s *generationService) Generate(ctx context.Context, prompt string) (*model.Generation, error) {
	gen := &model.Generation{
		ID:       id.New(),
		Prompt:   prompt,
		Provider: s.generator.Provider(),
		Model:    s.generator.Model(),
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		GenerationID: logger.Ptr(gen.ID),
		Provider:     logger.Ptr(gen.Provider),
		Model:        logger.Ptr(gen.Model),
		Component:    "inference.service.generation",
	})

	sc := logger.StartSpan(ctx, "llm.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int64("generation.id", gen.ID),
			attribute.String("llm.provider", gen.Provider),
			attribute.String("llm.model", gen.Model),
			attribute.Int("llm.prompt_length", len(prompt)),
		),
	)
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	completion, err := s.generator.Generate(ctx, prompt)
	elapsed := time.Since(start)
	gen.LatencyMs = elapsed.Milliseconds()

	if err != nil {
		sc.RecordError(err)
		s.record("error", elapsed, 0, 0)

		attrs := []any{"error", err, "latency_ms", gen.LatencyMs}
		if status, ok := llm.UpstreamStatus(err); ok {
			attrs = append(attrs, "upstream_status", status)
		}
		slog.ErrorContext(ctx, "generation failed", attrs...)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	gen.Output = completion.Text
	gen.FinishReason = completion.FinishReason
	gen.PromptTokens = completion.PromptTokens
	gen.CompletionTokens = completion.CompletionTokens
	gen.CreatedAt = time.Now().UTC()

	sc.Span().SetAttributes(
		attribute.String("llm.finish_reason", gen.FinishReason),
		attribute.Int("llm.prompt_tokens", gen.PromptTokens),
		attribute.Int("llm.completion_tokens", gen.CompletionTokens),
	)
	s.record("success", elapsed, gen.PromptTokens, gen.CompletionTokens)

	slog.InfoContext(ctx, "generation completed",
		"latency_ms", gen.LatencyMs,
		"finish_reason", gen.FinishReason,
		"prompt_tokens", gen.PromptTokens,
		"completion_tokens", gen.CompletionTokens)
	slog.DebugContext(ctx, "generation content",
		"prompt", logger.Truncate(gen.Prompt, 200),
		"output", logger.Truncate(gen.Output, 200))

	if s.store != nil {
		// History is best effort; the completion is returned either way.
		if err := s.store.Create(ctx, gen); err != nil {
			slog.WarnContext(ctx, "failed to persist generation", "error", err)
		}
	}

	return gen, nil
}

func (s *generationService) Get(ctx context.Context, id int64) (*model.Generation, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}

	gen, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGenerationNotFound
		}
		slog.ErrorContext(ctx, "failed to load generation", "error", err, "generation_id", id)
		return nil, fmt.Errorf("loading generation: %w", err)
	}
	return gen, nil
}

func (s *generationService) record(status string, elapsed time.Duration, promptTokens, completionTokens int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordGeneration(s.generator.Provider(), s.generator.Model(), status, elapsed, promptTokens, completionTokens)
}
