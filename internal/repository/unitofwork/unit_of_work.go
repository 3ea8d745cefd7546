package unitofwork

import (
	"context"

	"doc-domains-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DomainRepository() contract.DomainRepository
	SourceFileRepository() contract.SourceFileRepository
}
