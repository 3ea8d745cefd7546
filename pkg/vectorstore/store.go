package vectorstore

import (
	"context"

	"doc-domains-be/internal/apperrors"
)

// Distance is the similarity metric fixed at collection creation time.
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceDot    Distance = "Dot"
	DistanceEuclid Distance = "Euclid"
)

func ParseDistance(s string) (Distance, error) {
	switch s {
	case "cosine", "Cosine", "":
		return DistanceCosine, nil
	case "dot", "Dot":
		return DistanceDot, nil
	case "euclid", "Euclid", "l2":
		return DistanceEuclid, nil
	default:
		return "", apperrors.ConfigurationError("unknown distance metric %q", s)
	}
}

// CollectionParams describe the vector schema of a collection.
type CollectionParams struct {
	VectorSize int
	Distance   Distance
}

// Payload is the canonical per-point payload. One shape, no wrappers;
// normalization for other consumers happens outside the core.
type Payload struct {
	Domain     string `json:"domain"`
	File       string `json:"file"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// Point is one upsertable vector entry. ID must be a UUID string so every
// backend (Qdrant included) accepts it.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// ScoredPoint is a search hit. Higher score is better for every metric the
// backends expose.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload Payload
}

// Condition matches a payload field against an exact value.
type Condition struct {
	Key   string
	Value string
}

// Filter is a conjunction of conditions.
type Filter struct {
	Must []Condition
}

// FileFilter scopes an operation to all points of one source file.
func FileFilter(filename string) Filter {
	return Filter{Must: []Condition{{Key: "file", Value: filename}}}
}

// CollectionInfo is the live state reported by the backing store.
type CollectionInfo struct {
	PointsCount         int64  `json:"points_count"`
	IndexedVectorsCount int64  `json:"indexed_vectors_count"`
	Status              string `json:"status"`
}

// Store is the thin typed wrapper over the external vector database. All
// operations are idempotent except CreateCollection, which fails with
// AlreadyExists when the collection is present. DeletePointsByFilter
// removing zero points is success.
type Store interface {
	CreateCollection(ctx context.Context, name string, params CollectionParams) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	UpsertPoints(ctx context.Context, collection string, points []Point) error
	DeletePointsByFilter(ctx context.Context, collection string, filter Filter) error
	SearchPoints(ctx context.Context, collection string, vector []float32, limit int, filter *Filter) ([]ScoredPoint, error)
	GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)
}
