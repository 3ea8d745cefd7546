package contract

import (
	"context"

	"doc-domains-be/internal/entity"
	"doc-domains-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DomainRepository interface {
	Create(ctx context.Context, domain *entity.Domain) error
	Update(ctx context.Context, domain *entity.Domain) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Domain, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Domain, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
