package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/pkg/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProvider(srv.URL, "test-key", "test-model")
}

func TestChatReturnsFirstChoice(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		// The "model" role of conversation history maps onto "assistant".
		assert.Equal(t, "assistant", req.Messages[1].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello there"}},
			},
		})
	})

	answer, err := p.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
		{Role: "model", Content: "earlier turn"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", answer)
}

func TestChatAppliesTemperatureOption(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.2, req.Temperature)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "ok"}},
			},
		})
	})

	_, err := p.Generate(context.Background(), "prompt", llm.WithTemperature(0.2))
	require.NoError(t, err)
}

func TestChatErrorPayloadIsGenerationUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model overloaded"},
		})
	})

	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindGenUnavailable))
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestChatRejectedStatusIsGenerationUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindGenUnavailable))
}

func TestChatStreamConcatenatesDeltas(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		io.WriteString(w, ": keep-alive comment\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	var deltas []string
	answer, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", answer)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
}

func TestChatStreamStopsWhenConsumerCancels(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"second\"}}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stop := errors.New("stop consuming")
	partial, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, func(delta string) error {
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, "first", partial)
}

func TestChatNoChoicesIsGenerationUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	})

	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindGenUnavailable))
}
