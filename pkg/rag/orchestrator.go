package rag

import (
	"context"
	"sort"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/internal/pkg/logger"
	"doc-domains-be/pkg/embedding"
	"doc-domains-be/pkg/llm"
	"doc-domains-be/pkg/vectorstore"
)

// Stage names the orchestrator's state machine states. Every request walks
// Planning -> Retrieving -> (Replanning -> Retrieving)* -> Generating and
// ends in Done or Failed.
type Stage string

const (
	StagePlanning   Stage = "planning"
	StageRetrieving Stage = "retrieving"
	StageReplanning Stage = "replanning"
	StageGenerating Stage = "generating"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Config bounds one retrieval request. Filter, when set, scopes every
// search of the request to matching points.
type Config struct {
	TopK      int
	MaxRounds int
	Filter    *vectorstore.Filter
}

// Hooks let the caller observe a running request. OnStage fires on every
// state transition; OnDelta receives streamed answer text. Both are
// optional.
type Hooks struct {
	OnStage func(stage Stage, detail map[string]interface{})
	OnDelta llm.StreamFunc
}

// Result is the outcome of one query. Degraded marks answers generated with
// zero retrieved context.
type Result struct {
	Answer   string                    `json:"answer"`
	Sources  []vectorstore.ScoredPoint `json:"sources"`
	Rounds   int                       `json:"rounds"`
	Degraded bool                      `json:"degraded"`
}

// Orchestrator drives the agentic query loop over one domain collection.
type Orchestrator struct {
	embedder  embedding.Provider
	store     vectorstore.Store
	generator llm.Provider
	planner   Planner
	log       logger.ILogger
	cfg       Config
}

// generationTemperatures are tried in order when the model fails or returns
// an empty answer.
var generationTemperatures = []float64{0.7, 0.3, 0.0}

func NewOrchestrator(
	embedder embedding.Provider,
	store vectorstore.Store,
	generator llm.Provider,
	planner Planner,
	log logger.ILogger,
	cfg Config,
) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 3
	}
	return &Orchestrator{
		embedder:  embedder,
		store:     store,
		generator: generator,
		planner:   planner,
		log:       log,
		cfg:       cfg,
	}
}

// Run executes the full loop for one query against the named collection.
// Planner failures degrade to the raw query; an embedding failure is fatal
// for the request.
func (o *Orchestrator) Run(ctx context.Context, domain, collection, query string, hooks *Hooks) (*Result, error) {
	stage := func(s Stage, detail map[string]interface{}) {
		if hooks != nil && hooks.OnStage != nil {
			hooks.OnStage(s, detail)
		}
	}

	stage(StagePlanning, map[string]interface{}{"query": query})
	queries := o.plan(ctx, query)

	merged := make(map[string]vectorstore.ScoredPoint)
	rounds := 0

	for {
		rounds++
		stage(StageRetrieving, map[string]interface{}{"round": rounds, "queries": queries})

		if err := o.retrieve(ctx, collection, queries, merged); err != nil {
			stage(StageFailed, map[string]interface{}{"error": err.Error()})
			return nil, err
		}

		if rounds >= o.cfg.MaxRounds {
			break
		}

		stage(StageReplanning, map[string]interface{}{"round": rounds})
		next, ok := o.replan(ctx, query, merged, rounds)
		if !ok {
			break
		}
		queries = next
	}

	sources := rank(merged, o.cfg.TopK)
	degraded := len(sources) == 0
	if degraded {
		o.log.Warn("rag.orchestrator", "generating without retrieved context", map[string]interface{}{
			"domain": domain,
			"query":  query,
		})
	}

	stage(StageGenerating, map[string]interface{}{"contexts": len(sources), "degraded": degraded})
	answer, err := o.generate(ctx, domain, query, sources, hooks)
	if err != nil {
		stage(StageFailed, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	result := &Result{
		Answer:   answer,
		Sources:  sources,
		Rounds:   rounds,
		Degraded: degraded,
	}
	stage(StageDone, map[string]interface{}{"rounds": rounds, "degraded": degraded})
	return result, nil
}

func (o *Orchestrator) plan(ctx context.Context, query string) []string {
	queries, err := o.planner.Plan(ctx, query)
	if err != nil || len(queries) == 0 {
		if err != nil {
			o.log.Warn("rag.orchestrator", "planning failed, falling back to raw query", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return []string{query}
	}
	return queries
}

// retrieve embeds the round's queries in one batch, searches each and folds
// the hits into merged keeping the best score per point.
func (o *Orchestrator) retrieve(ctx context.Context, collection string, queries []string, merged map[string]vectorstore.ScoredPoint) error {
	vectors, err := o.embedder.Embed(ctx, queries)
	if err != nil {
		return err
	}

	for i, vector := range vectors {
		hits, err := o.store.SearchPoints(ctx, collection, vector, o.cfg.TopK, o.cfg.Filter)
		if err != nil {
			return err
		}
		o.log.Debug("rag.orchestrator", "search query done", map[string]interface{}{
			"query": queries[i],
			"hits":  len(hits),
		})
		for _, hit := range hits {
			if prev, ok := merged[hit.ID]; !ok || hit.Score > prev.Score {
				merged[hit.ID] = hit
			}
		}
	}
	return nil
}

// replan returns the next round's queries, or ok=false when the loop should
// stop. A planner failure ends the loop rather than failing the request.
func (o *Orchestrator) replan(ctx context.Context, query string, merged map[string]vectorstore.ScoredPoint, round int) ([]string, bool) {
	texts := make([]string, 0, len(merged))
	for _, p := range rank(merged, o.cfg.TopK) {
		texts = append(texts, p.Payload.Text)
	}

	decision, err := o.planner.Replan(ctx, query, texts, round)
	if err != nil {
		o.log.Warn("rag.orchestrator", "replanning failed, generating with current context", map[string]interface{}{
			"round": round,
			"error": err.Error(),
		})
		return nil, false
	}
	if decision.Sufficient || len(decision.Queries) == 0 {
		return nil, false
	}
	return decision.Queries, true
}

func (o *Orchestrator) generate(ctx context.Context, domain, query string, sources []vectorstore.ScoredPoint, hooks *Hooks) (string, error) {
	messages := buildGenerationMessages(domain, query, sources)

	var lastErr error
	for _, temp := range generationTemperatures {
		var answer string
		var err error
		if hooks != nil && hooks.OnDelta != nil {
			answer, err = o.generator.ChatStream(ctx, messages, hooks.OnDelta, llm.WithTemperature(temp))
		} else {
			answer, err = o.generator.Chat(ctx, messages, llm.WithTemperature(temp))
		}
		if err == nil && answer != "" {
			return answer, nil
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		o.log.Warn("rag.orchestrator", "generation attempt failed, retrying with lower temperature", map[string]interface{}{
			"temperature": temp,
			"error":       errString(err),
		})
	}
	return "", apperrors.GenerationUnavailable(lastErr, "generation failed at every temperature")
}

// rank orders merged hits by score descending, breaking ties by chunk index
// then point ID so results are stable, and truncates to topK.
func rank(merged map[string]vectorstore.ScoredPoint, topK int) []vectorstore.ScoredPoint {
	out := make([]vectorstore.ScoredPoint, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Payload.ChunkIndex != out[j].Payload.ChunkIndex {
			return out[i].Payload.ChunkIndex < out[j].Payload.ChunkIndex
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return "empty answer"
	}
	return err.Error()
}
