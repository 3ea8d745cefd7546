package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/pkg/embedding"
)

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// Provider talks to a text-embeddings-inference server. Inputs are cut into
// batches of at most BatchSize texts per request; a transient failure on one
// batch retries that batch only.
type Provider struct {
	url       string
	dimension int
	batchSize int
	client    *http.Client
}

type Config struct {
	URL       string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

var _ embedding.Provider = (*Provider)(nil)

func NewProvider(cfg Config) (*Provider, error) {
	if cfg.URL == "" {
		return nil, apperrors.ConfigurationError("tei: url is required")
	}
	if cfg.Dimension <= 0 {
		return nil, apperrors.ConfigurationError("tei: dimension must be positive, got %d", cfg.Dimension)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Provider{
		url:       cfg.URL,
		dimension: cfg.Dimension,
		batchSize: batchSize,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (p *Provider) Dimension() int {
	return p.dimension
}

func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (p *Provider) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Inputs: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := baseBackoff << (attempt - 2)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		vectors, retryable, err := p.post(ctx, payload)
		if err == nil {
			if err := p.validate(vectors, len(batch)); err != nil {
				// A wrong dimension means the server runs a different
				// model; retrying cannot fix that.
				return nil, err
			}
			return vectors, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, apperrors.EmbeddingUnavailable(lastErr, "tei: embed failed after %d attempts", maxAttempts)
}

func (p *Provider) post(ctx context.Context, payload []byte) (vectors [][]float32, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("tei: status %d: %s", resp.StatusCode, string(bodyBytes))
	case resp.StatusCode != http.StatusOK:
		return nil, false, apperrors.EmbeddingUnavailable(
			fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)),
			"tei: embed rejected",
		)
	}

	if err := json.Unmarshal(bodyBytes, &vectors); err != nil {
		return nil, false, fmt.Errorf("decode tei response: %w", err)
	}
	return vectors, false, nil
}

func (p *Provider) validate(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return apperrors.EmbeddingUnavailable(nil, "tei: got %d vectors for %d inputs", len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != p.dimension {
			return apperrors.ConfigurationError(
				"tei: vector %d has dimension %d, expected %d (model/config mismatch)",
				i, len(v), p.dimension,
			)
		}
	}
	return nil
}
