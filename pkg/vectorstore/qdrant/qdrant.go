package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/pkg/vectorstore"
)

const (
	maxAttempts = 3
	retryDelay  = 300 * time.Millisecond
)

// Store is a minimal REST client to Qdrant. Collection-per-domain, one
// unnamed vector per collection.
type Store struct {
	url    string
	apiKey string
	client *http.Client
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

var _ vectorstore.Store = (*Store)(nil)

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Store) CreateCollection(ctx context.Context, name string, params vectorstore.CollectionParams) error {
	if params.VectorSize <= 0 {
		return apperrors.ConfigurationError("vector size must be positive, got %d", params.VectorSize)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     params.VectorSize,
			"distance": string(params.Distance),
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", name), body, nil)
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", name), nil, nil)
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", name), nil, nil)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) UpsertPoints(ctx context.Context, collection string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	wire := make([]map[string]any, len(points))
	for i, p := range points {
		wire[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": wire}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", collection), body, nil)
}

func (s *Store) DeletePointsByFilter(ctx context.Context, collection string, filter vectorstore.Filter) error {
	body := map[string]any{"filter": encodeFilter(filter)}
	// Deleting zero points is still a 200 from Qdrant, which matches the
	// contract: empty result is success.
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", collection), body, nil)
}

func (s *Store) SearchPoints(ctx context.Context, collection string, vector []float32, limit int, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil && len(filter.Must) > 0 {
		req["filter"] = encodeFilter(*filter)
	}

	var resp struct {
		Result []struct {
			ID      string              `json:"id"`
			Score   float64             `json:"score"`
			Payload vectorstore.Payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", collection), req, &resp); err != nil {
		return nil, err
	}

	results := make([]vectorstore.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, vectorstore.ScoredPoint{
			ID:      r.ID,
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return results, nil
}

func (s *Store) GetCollectionInfo(ctx context.Context, collection string) (*vectorstore.CollectionInfo, error) {
	var resp struct {
		Result vectorstore.CollectionInfo `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", collection), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func encodeFilter(filter vectorstore.Filter) map[string]any {
	must := make([]map[string]any, len(filter.Must))
	for i, c := range filter.Must {
		must[i] = map[string]any{
			"key":   c.Key,
			"match": map[string]any{"value": c.Value},
		}
	}
	return map[string]any{"must": must}
}

// do sends one JSON request and decodes the response into out (when out is
// non-nil). Network failures and 5xx responses are retried with a short
// linear backoff before surfacing as VectorStoreUnavailable; structural
// statuses (404, 409) map straight onto the error taxonomy.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * retryDelay):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("api-key", s.apiKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		bodyBytes, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return apperrors.NotFound("qdrant %s %s: %s", method, path, string(bodyBytes))
		case resp.StatusCode == http.StatusConflict:
			return apperrors.AlreadyExists("qdrant %s %s: %s", method, path, string(bodyBytes))
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, string(bodyBytes))
			continue
		case resp.StatusCode >= 300:
			return apperrors.VectorStoreUnavailable(
				fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)),
				"qdrant %s %s", method, path,
			)
		}

		if out != nil {
			if err := json.Unmarshal(bodyBytes, out); err != nil {
				return fmt.Errorf("decode qdrant response: %w", err)
			}
		}
		return nil
	}

	return apperrors.VectorStoreUnavailable(lastErr, "qdrant %s %s failed after %d attempts", method, path, maxAttempts)
}
