package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/pkg/llm"
	"doc-domains-be/pkg/vectorstore"
	"doc-domains-be/pkg/vectorstore/memory"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type stubEmbedder struct {
	calls int
	fail  bool
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.fail {
		return nil, apperrors.EmbeddingUnavailable(errors.New("down"), "embed")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return 3 }

type stubPlanner struct {
	planQueries  []string
	planErr      error
	replanCalls  int
	alwaysReplan bool
}

func (s *stubPlanner) Plan(_ context.Context, query string) ([]string, error) {
	if s.planErr != nil {
		return nil, s.planErr
	}
	if s.planQueries != nil {
		return s.planQueries, nil
	}
	return []string{query}, nil
}

func (s *stubPlanner) Replan(_ context.Context, _ string, _ []string, _ int) (*ReplanDecision, error) {
	s.replanCalls++
	if s.alwaysReplan {
		return &ReplanDecision{Sufficient: false, Queries: []string{fmt.Sprintf("refined %d", s.replanCalls)}}, nil
	}
	return &ReplanDecision{Sufficient: true}, nil
}

type stubGenerator struct {
	answer   string
	failures int
	calls    int
}

func (s *stubGenerator) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", apperrors.GenerationUnavailable(errors.New("overloaded"), "chat")
	}
	return s.answer, nil
}

func (s *stubGenerator) ChatStream(ctx context.Context, history []llm.Message, fn llm.StreamFunc, opts ...llm.Option) (string, error) {
	answer, err := s.Chat(ctx, history, opts...)
	if err != nil {
		return "", err
	}
	if fn != nil {
		if err := fn(answer); err != nil {
			return answer, err
		}
	}
	return answer, nil
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func seedCollection(t *testing.T, store *memory.Store, collection string, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, collection, vectorstore.CollectionParams{
		VectorSize: 3,
		Distance:   vectorstore.DistanceCosine,
	}))
	points := make([]vectorstore.Point, n)
	for i := range points {
		points[i] = vectorstore.Point{
			ID:     fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
			Vector: []float32{1, float32(i) * 0.01, 0},
			Payload: vectorstore.Payload{
				Domain:     "docs",
				File:       "guide.md",
				ChunkIndex: i,
				Text:       fmt.Sprintf("chunk %d", i),
			},
		}
	}
	require.NoError(t, store.UpsertPoints(ctx, collection, points))
}

func TestRunHappyPath(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, "docs", 8)
	gen := &stubGenerator{answer: "the answer [1]"}

	o := NewOrchestrator(&stubEmbedder{}, store, gen, &stubPlanner{}, noopLogger{}, Config{TopK: 5, MaxRounds: 3})

	res, err := o.Run(context.Background(), "docs", "docs", "what is chunking?", nil)
	require.NoError(t, err)
	assert.Equal(t, "the answer [1]", res.Answer)
	assert.Len(t, res.Sources, 5)
	assert.Equal(t, 1, res.Rounds)
	assert.False(t, res.Degraded)
}

func TestRunRoundCapWithAlwaysReplanningPlanner(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, "docs", 3)
	planner := &stubPlanner{alwaysReplan: true}
	emb := &stubEmbedder{}

	o := NewOrchestrator(emb, store, &stubGenerator{answer: "done"}, planner, noopLogger{}, Config{TopK: 5, MaxRounds: 3})

	res, err := o.Run(context.Background(), "docs", "docs", "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rounds)
	// One embed call per round, and no replan after the final round.
	assert.Equal(t, 3, emb.calls)
	assert.Equal(t, 2, planner.replanCalls)
}

func TestRunPlannerFailureFallsBackToRawQuery(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, "docs", 2)
	planner := &stubPlanner{planErr: errors.New("llm down")}

	o := NewOrchestrator(&stubEmbedder{}, store, &stubGenerator{answer: "ok"}, planner, noopLogger{}, Config{TopK: 5, MaxRounds: 3})

	res, err := o.Run(context.Background(), "docs", "docs", "raw question", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Answer)
	assert.NotEmpty(t, res.Sources)
}

func TestRunEmbeddingFailureIsFatal(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, "docs", 2)

	o := NewOrchestrator(&stubEmbedder{fail: true}, store, &stubGenerator{answer: "ok"}, &stubPlanner{}, noopLogger{}, Config{TopK: 5, MaxRounds: 3})

	_, err := o.Run(context.Background(), "docs", "docs", "q", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindEmbeddingUnavailable))
}

func TestRunDegradedOnEmptyCollection(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, "docs", 0)

	o := NewOrchestrator(&stubEmbedder{}, store, &stubGenerator{answer: "nothing found"}, &stubPlanner{}, noopLogger{}, Config{TopK: 5, MaxRounds: 3})

	res, err := o.Run(context.Background(), "docs", "docs", "q", nil)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Empty(t, res.Sources)
}

func TestRunRetriesGenerationTemperatures(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, "docs", 2)
	gen := &stubGenerator{answer: "finally", failures: 2}

	o := NewOrchestrator(&stubEmbedder{}, store, gen, &stubPlanner{}, noopLogger{}, Config{TopK: 5, MaxRounds: 3})

	res, err := o.Run(context.Background(), "docs", "docs", "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "finally", res.Answer)
	assert.Equal(t, 3, gen.calls)
}

func TestRunGenerationExhaustionFails(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, "docs", 2)
	gen := &stubGenerator{answer: "never", failures: 99}

	o := NewOrchestrator(&stubEmbedder{}, store, gen, &stubPlanner{}, noopLogger{}, Config{TopK: 5, MaxRounds: 3})

	_, err := o.Run(context.Background(), "docs", "docs", "q", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindGenUnavailable))
}

func TestRunStreamsDeltasAndStages(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, "docs", 2)

	var deltas []string
	var stages []Stage
	hooks := &Hooks{
		OnStage: func(stage Stage, _ map[string]interface{}) {
			stages = append(stages, stage)
		},
		OnDelta: func(delta string) error {
			deltas = append(deltas, delta)
			return nil
		},
	}

	o := NewOrchestrator(&stubEmbedder{}, store, &stubGenerator{answer: "streamed"}, &stubPlanner{}, noopLogger{}, Config{TopK: 5, MaxRounds: 3})

	res, err := o.Run(context.Background(), "docs", "docs", "q", hooks)
	require.NoError(t, err)
	assert.Equal(t, []string{"streamed"}, deltas)
	assert.Equal(t, "streamed", res.Answer)
	assert.Equal(t, StagePlanning, stages[0])
	assert.Equal(t, StageDone, stages[len(stages)-1])
	assert.Contains(t, stages, StageRetrieving)
	assert.Contains(t, stages, StageGenerating)
}

func TestRunFileFilterScopesSources(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "docs", vectorstore.CollectionParams{
		VectorSize: 3,
		Distance:   vectorstore.DistanceCosine,
	}))
	points := make([]vectorstore.Point, 0, 4)
	for i, file := range []string{"a.txt", "a.txt", "b.txt", "b.txt"} {
		points = append(points, vectorstore.Point{
			ID:     fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
			Vector: []float32{1, float32(i) * 0.01, 0},
			Payload: vectorstore.Payload{
				Domain:     "docs",
				File:       file,
				ChunkIndex: i,
				Text:       fmt.Sprintf("%s chunk %d", file, i),
			},
		})
	}
	require.NoError(t, store.UpsertPoints(ctx, "docs", points))

	filter := vectorstore.FileFilter("a.txt")
	o := NewOrchestrator(&stubEmbedder{}, store, &stubGenerator{answer: "scoped"}, &stubPlanner{}, noopLogger{}, Config{
		TopK:      5,
		MaxRounds: 3,
		Filter:    &filter,
	})

	res, err := o.Run(ctx, "docs", "docs", "q", nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Sources)
	for _, src := range res.Sources {
		assert.Equal(t, "a.txt", src.Payload.File)
	}
}
