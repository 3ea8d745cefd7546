package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-domains-be/pkg/llm"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) next() string {
	if p.calls >= len(p.responses) {
		return ""
	}
	r := p.responses[p.calls]
	p.calls++
	return r
}

func (p *scriptedProvider) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return p.next(), nil
}

func (p *scriptedProvider) ChatStream(_ context.Context, _ []llm.Message, fn llm.StreamFunc, _ ...llm.Option) (string, error) {
	r := p.next()
	if err := fn(r); err != nil {
		return "", err
	}
	return r, nil
}

func (p *scriptedProvider) Generate(_ context.Context, _ string, _ ...llm.Option) (string, error) {
	return p.next(), nil
}

func TestPlanParsesQueries(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"queries": ["rate limiting config", "token bucket defaults"]}`,
	}}
	planner := NewLLMPlanner(provider)

	queries, err := planner.Plan(context.Background(), "how do I configure rate limiting?")
	require.NoError(t, err)
	assert.Equal(t, []string{"rate limiting config", "token bucket defaults"}, queries)
}

func TestPlanToleratesCodeFences(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"Here is the plan:\n```json\n{\"queries\": [\"alpha\"]}\n```",
	}}
	planner := NewLLMPlanner(provider)

	queries, err := planner.Plan(context.Background(), "alpha?")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, queries)
}

func TestPlanClampsAndDropsBlankQueries(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"queries": ["a", "  ", "b", "c", "d", "e", "f"]}`,
	}}
	planner := NewLLMPlanner(provider)

	queries, err := planner.Plan(context.Background(), "everything at once")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, queries)
}

func TestPlanFailsOnProse(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"I cannot produce a plan for that.",
	}}
	planner := NewLLMPlanner(provider)

	_, err := planner.Plan(context.Background(), "anything")
	require.Error(t, err)
}

func TestReplanSufficient(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"sufficient": true}`,
	}}
	planner := NewLLMPlanner(provider)

	decision, err := planner.Replan(context.Background(), "q", []string{"some context"}, 1)
	require.NoError(t, err)
	assert.True(t, decision.Sufficient)
	assert.Empty(t, decision.Queries)
}

func TestReplanRequestsMoreQueries(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"sufficient": false, "queries": ["refined"]}`,
	}}
	planner := NewLLMPlanner(provider)

	decision, err := planner.Replan(context.Background(), "q", []string{"partial context"}, 1)
	require.NoError(t, err)
	assert.False(t, decision.Sufficient)
	assert.Equal(t, []string{"refined"}, decision.Queries)
}
