package store

import (
	"context"
	"errors"

	"basegraph.app/inference/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// GenerationStore defines the contract for generation history access
type GenerationStore interface {
	Create(ctx context.Context, gen *model.Generation) error
	GetByID(ctx context.Context, id int64) (*model.Generation, error)
}
