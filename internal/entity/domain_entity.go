package entity

import (
	"time"

	"github.com/google/uuid"
)

// Domain is one named partition of the knowledge base. Name is the
// normalized form and doubles as the vector collection name.
type Domain struct {
	Id         uuid.UUID
	Name       string
	VectorSize int
	Distance   string
	Summary    string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
