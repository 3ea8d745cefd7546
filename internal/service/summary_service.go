package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"doc-domains-be/internal/dto"
	"doc-domains-be/internal/pkg/logger"
	"doc-domains-be/pkg/embedding"
	"doc-domains-be/pkg/llm"
	"doc-domains-be/pkg/vectorstore"
)

type ISummaryService interface {
	GetDomainSummary(ctx context.Context, domainName string) (*dto.DomainSummaryResponse, error)
	Invalidate(domainName string)
}

// summaryService produces an LLM overview of what a domain contains.
// Summaries are expensive, so results are cached per domain with a TTL;
// mutating operations call Invalidate.
type summaryService struct {
	registry  IRegistryService
	embedder  embedding.Provider
	store     vectorstore.Store
	generator llm.Provider
	log       logger.ILogger
	cache     *gocache.Cache
}

const summaryProbeQuery = "What are the main topics of this document collection?"

func NewSummaryService(
	registry IRegistryService,
	embedder embedding.Provider,
	store vectorstore.Store,
	generator llm.Provider,
	log logger.ILogger,
	ttl time.Duration,
) ISummaryService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &summaryService{
		registry:  registry,
		embedder:  embedder,
		store:     store,
		generator: generator,
		log:       log,
		cache:     gocache.New(ttl, 10*time.Minute),
	}
}

func (s *summaryService) GetDomainSummary(ctx context.Context, domainName string) (*dto.DomainSummaryResponse, error) {
	domain, err := s.registry.GetDomain(ctx, domainName)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(domain.Name); ok {
		resp := cached.(dto.DomainSummaryResponse)
		resp.Cached = true
		return &resp, nil
	}

	files, err := s.registry.ListFiles(ctx, domain.Name)
	if err != nil {
		return nil, err
	}

	samples, err := s.sampleChunks(ctx, domain.Name)
	if err != nil {
		s.log.Warn("summary", "chunk sampling failed, summarizing from file list only", map[string]interface{}{
			"domain": domain.Name,
			"error":  err.Error(),
		})
	}

	summary, err := s.generator.Generate(ctx, s.buildPrompt(domain.Name, files, samples), llm.WithTemperature(0.3))
	if err != nil {
		return nil, err
	}

	resp := dto.DomainSummaryResponse{
		Domain:    domain.Name,
		Summary:   strings.TrimSpace(summary),
		FileCount: len(files),
		CreatedAt: time.Now(),
	}
	if err := s.registry.SaveSummary(ctx, domain, resp.Summary); err != nil {
		s.log.Warn("summary", "failed to persist domain summary", map[string]interface{}{
			"domain": domain.Name,
			"error":  err.Error(),
		})
	}
	s.cache.SetDefault(domain.Name, resp)
	return &resp, nil
}

// Invalidate drops the cached summary. Cache keys are normalized names, so
// the raw route parameter is accepted here too.
func (s *summaryService) Invalidate(domainName string) {
	if name, err := NormalizeDomainName(domainName); err == nil {
		s.cache.Delete(name)
	}
}

// sampleChunks pulls a handful of representative chunks with a generic
// probe query. An empty collection yields no samples, which is fine.
func (s *summaryService) sampleChunks(ctx context.Context, collection string) ([]string, error) {
	vectors, err := s.embedder.Embed(ctx, []string{summaryProbeQuery})
	if err != nil {
		return nil, err
	}
	hits, err := s.store.SearchPoints(ctx, collection, vectors[0], 8, nil)
	if err != nil {
		return nil, err
	}

	samples := make([]string, 0, len(hits))
	for _, hit := range hits {
		samples = append(samples, hit.Payload.Text)
	}
	return samples, nil
}

func (s *summaryService) buildPrompt(domain string, files []*dto.SourceFileResponse, samples []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize the document collection %q in a short paragraph.\n\nFiles:\n", domain)
	for _, f := range files {
		fmt.Fprintf(&sb, "- %s (%d chunks, %s)\n", f.Filename, f.ChunkCount, f.Status)
	}
	if len(samples) > 0 {
		sb.WriteString("\nRepresentative excerpts:\n")
		for i, sample := range samples {
			fmt.Fprintf(&sb, "[%d] %s\n", i+1, truncateRunes(sample, 300))
		}
	}
	sb.WriteString("\nDescribe the collection's topics and coverage. Do not list every file.")
	return sb.String()
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
