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

// SourceFileRepository is the in-memory manifest fake for service tests.
type SourceFileRepository struct {
	mu    sync.RWMutex
	files map[uuid.UUID]*entity.SourceFile
}

var _ contract.SourceFileRepository = (*SourceFileRepository)(nil)

func NewSourceFileRepository() *SourceFileRepository {
	return &SourceFileRepository{files: make(map[uuid.UUID]*entity.SourceFile)}
}

func (r *SourceFileRepository) Create(_ context.Context, file *entity.SourceFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.DomainId == file.DomainId && f.Filename == file.Filename {
			return fmt.Errorf("duplicate key: file %q in domain %s", file.Filename, file.DomainId)
		}
	}
	if file.Id == uuid.Nil {
		file.Id = uuid.New()
	}
	clone := *file
	r.files[file.Id] = &clone
	return nil
}

func (r *SourceFileRepository) Update(_ context.Context, file *entity.SourceFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[file.Id]; !ok {
		return fmt.Errorf("source file %s not found", file.Id)
	}
	clone := *file
	r.files[file.Id] = &clone
	return nil
}

func (r *SourceFileRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

func (r *SourceFileRepository) DeleteAllByDomainId(_ context.Context, domainId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.files {
		if f.DomainId == domainId {
			delete(r.files, id)
		}
	}
	return nil
}

func (r *SourceFileRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SourceFile, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *SourceFileRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.SourceFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.SourceFile
	for _, f := range r.files {
		if matchSourceFile(f, specs) {
			clone := *f
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (r *SourceFileRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func matchSourceFile(f *entity.SourceFile, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if f.Id != s.ID {
				return false
			}
		case specification.ByDomainId:
			if f.DomainId != s.DomainId {
				return false
			}
		case specification.ByFilename:
			if f.Filename != s.Filename {
				return false
			}
		case specification.ByStatus:
			if f.Status != s.Status {
				return false
			}
		case specification.OrderBy:
			// ordering is fixed by filename in the fake
		default:
			return false
		}
	}
	return true
}
