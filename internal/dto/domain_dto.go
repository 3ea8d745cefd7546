package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDomainRequest struct {
	Name       string `json:"name" validate:"required"`
	VectorSize int    `json:"vector_size,omitempty"`
	Distance   string `json:"distance,omitempty"`
}

type CreateDomainResponse struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type DomainResponse struct {
	Id         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	VectorSize int        `json:"vector_size"`
	Distance   string     `json:"distance"`
	FileCount  int64      `json:"file_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// DomainInfoResponse includes the live collection state as reported by the
// vector store, never cached.
type DomainInfoResponse struct {
	DomainResponse
	PointsCount         int64  `json:"points_count"`
	IndexedVectorsCount int64  `json:"indexed_vectors_count"`
	CollectionStatus    string `json:"collection_status"`
}

type DomainSummaryResponse struct {
	Domain    string    `json:"domain"`
	Summary   string    `json:"summary"`
	FileCount int       `json:"file_count"`
	Cached    bool      `json:"cached"`
	CreatedAt time.Time `json:"created_at"`
}
