package entity

import (
	"time"

	"github.com/google/uuid"
)

// Status of one source file in the manifest.
const (
	FileStatusPending = "pending"
	FileStatusIndexed = "indexed"
	FileStatusError   = "error"
)

// SourceFile is one manifest entry: a stored file and the chunk count it
// contributed to the domain's collection. ChunkCount is only trusted when
// Status is indexed.
type SourceFile struct {
	Id           uuid.UUID
	DomainId     uuid.UUID
	Filename     string
	SizeBytes    int64
	ContentHash  string
	ChunkCount   int
	Status       string
	ErrorMessage string
	IndexedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
