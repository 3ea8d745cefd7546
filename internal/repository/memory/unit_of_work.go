package memory

import (
	"context"

	"doc-domains-be/internal/repository/contract"
	"doc-domains-be/internal/repository/unitofwork"
)

// UnitOfWork is the non-transactional fake matching the gorm unit of work.
// Begin/Commit/Rollback are no-ops; the repositories are shared so test
// assertions see every write.
type UnitOfWork struct {
	Domains *DomainRepository
	Files   *SourceFileRepository
}

var _ unitofwork.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{
		Domains: NewDomainRepository(),
		Files:   NewSourceFileRepository(),
	}
}

func (u *UnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *UnitOfWork) Commit() error                   { return nil }
func (u *UnitOfWork) Rollback() error                 { return nil }

func (u *UnitOfWork) DomainRepository() contract.DomainRepository {
	return u.Domains
}

func (u *UnitOfWork) SourceFileRepository() contract.SourceFileRepository {
	return u.Files
}

// Factory hands out the same unit of work on every request.
type Factory struct {
	UoW *UnitOfWork
}

var _ unitofwork.RepositoryFactory = (*Factory)(nil)

func NewFactory() *Factory {
	return &Factory{UoW: NewUnitOfWork()}
}

func (f *Factory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.UoW
}
