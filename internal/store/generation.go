package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"basegraph.app/inference/internal/model"
)

type generationStore struct {
	pool *pgxpool.Pool
}

func newGenerationStore(pool *pgxpool.Pool) GenerationStore {
	return &generationStore{pool: pool}
}

const insertGeneration = `
INSERT INTO generations (
	id, prompt, output, provider, model, finish_reason,
	latency_ms, prompt_tokens, completion_tokens
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at`

func (s *generationStore) Create(ctx context.Context, gen *model.Generation) error {
	return s.pool.QueryRow(ctx, insertGeneration,
		gen.ID,
		gen.Prompt,
		gen.Output,
		gen.Provider,
		gen.Model,
		gen.FinishReason,
		gen.LatencyMs,
		gen.PromptTokens,
		gen.CompletionTokens,
	).Scan(&gen.CreatedAt)
}

const getGenerationByID = `
SELECT id, prompt, output, provider, model, finish_reason,
	latency_ms, prompt_tokens, completion_tokens, created_at
FROM generations
WHERE id = $1`

func (s *generationStore) GetByID(ctx context.Context, id int64) (*model.Generation, error) {
	var gen model.Generation
	err := s.pool.QueryRow(ctx, getGenerationByID, id).Scan(
		&gen.ID,
		&gen.Prompt,
		&gen.Output,
		&gen.Provider,
		&gen.Model,
		&gen.FinishReason,
		&gen.LatencyMs,
		&gen.PromptTokens,
		&gen.CompletionTokens,
		&gen.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &gen, nil
}
