package service

import (
	"basegraph.app/inference/common/llm"
	"basegraph.app/inference/common/metrics"
	"basegraph.app/inference/internal/store"
)

type Services struct {
	generator   llm.Generator
	generations store.GenerationStore
	metrics     metrics.Recorder
}

type ServicesConfig struct {
	Generator llm.Generator
	// Generations is nil when DATABASE_URL is unset.
	Generations store.GenerationStore
	Metrics     metrics.Recorder
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{
		generator:   cfg.Generator,
		generations: cfg.Generations,
		metrics:     cfg.Metrics,
	}
}

func (s *Services) Generations() GenerationService {
	return NewGenerationService(s.generator, s.generations, s.metrics)
}

// HistoryEnabled reports whether generations are persisted and can be
// looked up by ID.
func (s *Services) HistoryEnabled() bool {
	return s.generations != nil
}
