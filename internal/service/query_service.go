package service

import (
	"context"

	"doc-domains-be/internal/dto"
	"doc-domains-be/internal/entity"
	"doc-domains-be/internal/pkg/logger"
	"doc-domains-be/pkg/embedding"
	"doc-domains-be/pkg/llm"
	"doc-domains-be/pkg/rag"
	"doc-domains-be/pkg/vectorstore"
)

type IQueryService interface {
	Query(ctx context.Context, domainName string, req *dto.QueryRequest) (*dto.QueryResponse, error)
	QueryStream(ctx context.Context, domainName string, req *dto.QueryRequest, emit func(dto.StreamEvent) error) error
}

// queryService fronts the retrieval orchestrator. One orchestrator is built
// per request so the caller's top-k override applies without shared state.
type queryService struct {
	registry  IRegistryService
	embedder  embedding.Provider
	store     vectorstore.Store
	generator llm.Provider
	planner   rag.Planner
	log       logger.ILogger
	topK      int
	maxRounds int
}

func NewQueryService(
	registry IRegistryService,
	embedder embedding.Provider,
	store vectorstore.Store,
	generator llm.Provider,
	planner rag.Planner,
	log logger.ILogger,
	topK int,
	maxRounds int,
) IQueryService {
	return &queryService{
		registry:  registry,
		embedder:  embedder,
		store:     store,
		generator: generator,
		planner:   planner,
		log:       log,
		topK:      topK,
		maxRounds: maxRounds,
	}
}

func (s *queryService) Query(ctx context.Context, domainName string, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	domain, err := s.registry.GetDomain(ctx, domainName)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator(req, domain).Run(ctx, domain.Name, domain.Name, req.Query, nil)
	if err != nil {
		return nil, err
	}
	return s.toResponse(domain.Name, result), nil
}

// QueryStream runs the same loop but forwards stage transitions and answer
// deltas to emit as they happen, ending with a final_result frame.
func (s *queryService) QueryStream(ctx context.Context, domainName string, req *dto.QueryRequest, emit func(dto.StreamEvent) error) error {
	domain, err := s.registry.GetDomain(ctx, domainName)
	if err != nil {
		return err
	}

	if err := emit(dto.StreamEvent{Type: "start"}); err != nil {
		return err
	}

	var emitErr error
	hooks := &rag.Hooks{
		OnStage: func(stage rag.Stage, _ map[string]interface{}) {
			if emitErr != nil || stage == rag.StageDone || stage == rag.StageFailed {
				return
			}
			emitErr = emit(dto.StreamEvent{Type: "stage", Stage: string(stage)})
		},
		OnDelta: func(delta string) error {
			if emitErr != nil {
				return emitErr
			}
			emitErr = emit(dto.StreamEvent{Type: "delta", Delta: delta})
			return emitErr
		},
	}

	result, err := s.orchestrator(req, domain).Run(ctx, domain.Name, domain.Name, req.Query, hooks)
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		// The consumer is still attached; hand it the failure before
		// closing the stream.
		_ = emit(dto.StreamEvent{Type: "error", Message: err.Error()})
		return err
	}

	if err := emit(dto.StreamEvent{Type: "final_result", Result: s.toResponse(domain.Name, result)}); err != nil {
		return err
	}
	return emit(dto.StreamEvent{Type: "complete"})
}

func (s *queryService) orchestrator(req *dto.QueryRequest, domain *entity.Domain) *rag.Orchestrator {
	topK := s.topK
	if req.TopK > 0 {
		topK = req.TopK
	}
	var filter *vectorstore.Filter
	if req.File != "" {
		f := vectorstore.FileFilter(req.File)
		filter = &f
	}
	// A persisted summary steers query decomposition towards what the
	// domain actually contains.
	planner := rag.WithDomainContext(s.planner, domain.Summary)
	return rag.NewOrchestrator(s.embedder, s.store, s.generator, planner, s.log, rag.Config{
		TopK:      topK,
		MaxRounds: s.maxRounds,
		Filter:    filter,
	})
}

func (s *queryService) toResponse(domain string, result *rag.Result) *dto.QueryResponse {
	sources := make([]dto.QuerySource, 0, len(result.Sources))
	for _, src := range result.Sources {
		sources = append(sources, dto.QuerySource{
			File:       src.Payload.File,
			ChunkIndex: src.Payload.ChunkIndex,
			Score:      src.Score,
			Text:       src.Payload.Text,
		})
	}
	return &dto.QueryResponse{
		Domain:   domain,
		Answer:   result.Answer,
		Sources:  sources,
		Rounds:   result.Rounds,
		Degraded: result.Degraded,
	}
}
