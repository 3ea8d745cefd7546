package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/pkg/vectorstore"
)

// Store is a brute-force in-memory vector store. It mirrors the external
// backend contract exactly, which makes it the backend of choice for service
// tests and local development without a running Qdrant.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	params vectorstore.CollectionParams
	points map[string]vectorstore.Point
}

var _ vectorstore.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) CreateCollection(_ context.Context, name string, params vectorstore.CollectionParams) error {
	if params.VectorSize <= 0 {
		return apperrors.ConfigurationError("vector size must be positive, got %d", params.VectorSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return apperrors.AlreadyExists("collection %q already exists", name)
	}
	s.collections[name] = &collection{
		params: params,
		points: make(map[string]vectorstore.Point),
	}
	return nil
}

func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return apperrors.NotFound("collection %q not found", name)
	}
	delete(s.collections, name)
	return nil
}

func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) UpsertPoints(_ context.Context, name string, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[name]
	if !ok {
		return apperrors.NotFound("collection %q not found", name)
	}
	for _, p := range points {
		if len(p.Vector) != col.params.VectorSize {
			return apperrors.InvariantViolation(
				"point %s has dimension %d, collection %q expects %d",
				p.ID, len(p.Vector), name, col.params.VectorSize,
			)
		}
	}
	for _, p := range points {
		col.points[p.ID] = p
	}
	return nil
}

func (s *Store) DeletePointsByFilter(_ context.Context, name string, filter vectorstore.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[name]
	if !ok {
		return apperrors.NotFound("collection %q not found", name)
	}
	for id, p := range col.points {
		if matches(p.Payload, filter) {
			delete(col.points, id)
		}
	}
	return nil
}

func (s *Store) SearchPoints(_ context.Context, name string, vector []float32, limit int, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return nil, apperrors.NotFound("collection %q not found", name)
	}

	results := make([]vectorstore.ScoredPoint, 0, len(col.points))
	for _, p := range col.points {
		if filter != nil && !matches(p.Payload, *filter) {
			continue
		}
		results = append(results, vectorstore.ScoredPoint{
			ID:      p.ID,
			Score:   score(col.params.Distance, vector, p.Vector),
			Payload: p.Payload,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) GetCollectionInfo(_ context.Context, name string) (*vectorstore.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return nil, apperrors.NotFound("collection %q not found", name)
	}
	count := int64(len(col.points))
	return &vectorstore.CollectionInfo{
		PointsCount:         count,
		IndexedVectorsCount: count,
		Status:              "green",
	}, nil
}

func matches(p vectorstore.Payload, filter vectorstore.Filter) bool {
	for _, c := range filter.Must {
		switch c.Key {
		case "domain":
			if p.Domain != c.Value {
				return false
			}
		case "file":
			if p.File != c.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// score returns a higher-is-better similarity for each metric; Euclid
// distances are negated so the same ordering rule applies everywhere.
func score(distance vectorstore.Distance, a, b []float32) float64 {
	switch distance {
	case vectorstore.DistanceDot:
		return dot(a, b)
	case vectorstore.DistanceEuclid:
		var sum float64
		n := min(len(a), len(b))
		for i := 0; i < n; i++ {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	default:
		na, nb := norm(a), norm(b)
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
