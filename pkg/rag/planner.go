package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"doc-domains-be/pkg/llm"
)

// Planner decomposes a user query into search queries and later judges
// whether the retrieved context is enough to answer.
type Planner interface {
	// Plan returns the search queries to run for the user query. An empty
	// result or an error makes the orchestrator fall back to the raw query.
	Plan(ctx context.Context, query string) ([]string, error)

	// Replan inspects the context gathered so far. When Sufficient is false
	// the returned queries drive another retrieval round.
	Replan(ctx context.Context, query string, contextTexts []string, round int) (*ReplanDecision, error)
}

// ReplanDecision is the planner's verdict after a retrieval round.
type ReplanDecision struct {
	Sufficient bool     `json:"sufficient"`
	Queries    []string `json:"queries"`
}

// LLMPlanner asks the generation model for a structured plan. Responses are
// expected as JSON; anything unparseable is treated as a planning failure
// and handled by the orchestrator's fallback.
type LLMPlanner struct {
	provider   llm.Provider
	maxQueries int
}

var _ Planner = (*LLMPlanner)(nil)

func NewLLMPlanner(provider llm.Provider) *LLMPlanner {
	return &LLMPlanner{provider: provider, maxQueries: 4}
}

func (p *LLMPlanner) Plan(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf(`You are a retrieval planner for a document search system.
Decompose the user question into at most %d focused search queries.
Prefer a single query when the question is simple.

Respond with JSON only, in this exact shape:
{"queries": ["...", "..."]}

User question: %s`, p.maxQueries, query)

	response, err := p.provider.Generate(ctx, prompt, llm.WithTemperature(0.1))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := unmarshalLoose(response, &parsed); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return p.clamp(parsed.Queries), nil
}

func (p *LLMPlanner) Replan(ctx context.Context, query string, contextTexts []string, round int) (*ReplanDecision, error) {
	var sb strings.Builder
	for i, text := range contextTexts {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, truncate(text, 400))
	}

	prompt := fmt.Sprintf(`You are a retrieval planner judging whether the gathered context answers the question.
This is retrieval round %d.

Question: %s

Context so far:
%s
Respond with JSON only, in this exact shape:
{"sufficient": true}
or, when more retrieval is needed:
{"sufficient": false, "queries": ["refined query 1", "refined query 2"]}`, round, query, sb.String())

	response, err := p.provider.Generate(ctx, prompt, llm.WithTemperature(0.1))
	if err != nil {
		return nil, err
	}

	var decision ReplanDecision
	if err := unmarshalLoose(response, &decision); err != nil {
		return nil, fmt.Errorf("parse replan decision: %w", err)
	}
	decision.Queries = p.clamp(decision.Queries)
	return &decision, nil
}

// WithDomainContext wraps a planner so plans are drawn up against a short
// description of what the domain contains. An empty description returns the
// planner unchanged.
func WithDomainContext(base Planner, description string) Planner {
	if strings.TrimSpace(description) == "" {
		return base
	}
	return &domainContextPlanner{base: base, description: truncate(description, 600)}
}

type domainContextPlanner struct {
	base        Planner
	description string
}

func (p *domainContextPlanner) Plan(ctx context.Context, query string) ([]string, error) {
	return p.base.Plan(ctx, fmt.Sprintf("(The collection covers: %s)\n%s", p.description, query))
}

func (p *domainContextPlanner) Replan(ctx context.Context, query string, contextTexts []string, round int) (*ReplanDecision, error) {
	return p.base.Replan(ctx, query, contextTexts, round)
}

func (p *LLMPlanner) clamp(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == p.maxQueries {
			break
		}
	}
	return out
}

// unmarshalLoose tolerates models that wrap JSON in prose or code fences by
// extracting the outermost object before decoding.
func unmarshalLoose(response string, v any) error {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(response[start:end+1]), v)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
