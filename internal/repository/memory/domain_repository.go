package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"doc-domains-be/internal/entity"
	"doc-domains-be/internal/repository/contract"
	"doc-domains-be/internal/repository/specification"

	"github.com/google/uuid"
)

// DomainRepository is the in-memory fake used by service tests. It
// interprets the query specifications the gorm implementation receives, so
// services run unchanged against it.
type DomainRepository struct {
	mu      sync.RWMutex
	domains map[uuid.UUID]*entity.Domain
}

var _ contract.DomainRepository = (*DomainRepository)(nil)

func NewDomainRepository() *DomainRepository {
	return &DomainRepository{domains: make(map[uuid.UUID]*entity.Domain)}
}

func (r *DomainRepository) Create(_ context.Context, domain *entity.Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.domains {
		if d.Name == domain.Name {
			return fmt.Errorf("duplicate key: domain name %q", domain.Name)
		}
	}
	if domain.Id == uuid.Nil {
		domain.Id = uuid.New()
	}
	clone := *domain
	r.domains[domain.Id] = &clone
	return nil
}

func (r *DomainRepository) Update(_ context.Context, domain *entity.Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.domains[domain.Id]; !ok {
		return fmt.Errorf("domain %s not found", domain.Id)
	}
	clone := *domain
	r.domains[domain.Id] = &clone
	return nil
}

func (r *DomainRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.domains, id)
	return nil
}

func (r *DomainRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Domain, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *DomainRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Domain
	for _, d := range r.domains {
		if matchDomain(d, specs) {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *DomainRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func matchDomain(d *entity.Domain, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if d.Id != s.ID {
				return false
			}
		case specification.ByName:
			if d.Name != s.Name {
				return false
			}
		case specification.OrderBy:
			// ordering is fixed by name in the fake
		default:
			return false
		}
	}
	return true
}
