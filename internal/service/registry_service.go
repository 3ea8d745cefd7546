package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/internal/dto"
	"doc-domains-be/internal/entity"
	"doc-domains-be/internal/pkg/logger"
	"doc-domains-be/internal/repository/specification"
	"doc-domains-be/internal/repository/unitofwork"
	"doc-domains-be/pkg/events"
	"doc-domains-be/pkg/filestorage"
	pktNats "doc-domains-be/pkg/nats"
	"doc-domains-be/pkg/vectorstore"

	"github.com/google/uuid"
)

type IRegistryService interface {
	CreateDomain(ctx context.Context, req *dto.CreateDomainRequest) (*dto.CreateDomainResponse, error)
	DeleteDomain(ctx context.Context, name string) error
	ListDomains(ctx context.Context) ([]*dto.DomainResponse, error)
	GetDomainInfo(ctx context.Context, name string) (*dto.DomainInfoResponse, error)
	GetDomain(ctx context.Context, name string) (*entity.Domain, error)
	ListFiles(ctx context.Context, name string) ([]*dto.SourceFileResponse, error)

	SaveSummary(ctx context.Context, domain *entity.Domain, summary string) error

	RecordFileIndexed(ctx context.Context, domain *entity.Domain, filename string, sizeBytes int64, contentHash string, chunkCount int) error
	RecordFileError(ctx context.Context, domain *entity.Domain, filename string, sizeBytes int64, reason string) error
	RemoveFile(ctx context.Context, domain *entity.Domain, filename string) error
	ResetManifest(ctx context.Context, domain *entity.Domain) error
}

// registryService is the single source of truth for which domains exist and
// what files belong to each. Manifest rows live in Postgres; the vector
// collection is the authority for point counts.
type registryService struct {
	uowFactory        unitofwork.RepositoryFactory
	store             vectorstore.Store
	files             *filestorage.Storage
	eventPublisher    *pktNats.Publisher
	log               logger.ILogger
	defaultVectorSize int
	defaultDistance   vectorstore.Distance
}

func NewRegistryService(
	uowFactory unitofwork.RepositoryFactory,
	store vectorstore.Store,
	files *filestorage.Storage,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	defaultVectorSize int,
	defaultDistance vectorstore.Distance,
) IRegistryService {
	return &registryService{
		uowFactory:        uowFactory,
		store:             store,
		files:             files,
		eventPublisher:    eventPublisher,
		log:               log,
		defaultVectorSize: defaultVectorSize,
		defaultDistance:   defaultDistance,
	}
}

var domainNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// NormalizeDomainName lowercases the name and folds spaces and dashes to
// underscores, so "My Docs" and "my-docs" address the same domain.
func NormalizeDomainName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if normalized == "" {
		return "", apperrors.ConfigurationError("domain name must not be empty")
	}
	if !domainNamePattern.MatchString(normalized) {
		return "", apperrors.ConfigurationError("domain name %q contains unsupported characters", name)
	}
	return normalized, nil
}

func (s *registryService) CreateDomain(ctx context.Context, req *dto.CreateDomainRequest) (*dto.CreateDomainResponse, error) {
	name, err := NormalizeDomainName(req.Name)
	if err != nil {
		return nil, err
	}

	vectorSize := req.VectorSize
	if vectorSize == 0 {
		vectorSize = s.defaultVectorSize
	}
	distance := s.defaultDistance
	if req.Distance != "" {
		distance, err = vectorstore.ParseDistance(req.Distance)
		if err != nil {
			return nil, err
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.DomainRepository().FindOne(ctx, specification.ByName{Name: name})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("domain %q already exists", name)
	}

	err = s.store.CreateCollection(ctx, name, vectorstore.CollectionParams{
		VectorSize: vectorSize,
		Distance:   distance,
	})
	if err != nil {
		return nil, err
	}

	domain := entity.Domain{
		Id:         uuid.New(),
		Name:       name,
		VectorSize: vectorSize,
		Distance:   string(distance),
		CreatedAt:  time.Now(),
	}
	if err := uow.DomainRepository().Create(ctx, &domain); err != nil {
		// The collection exists but the manifest write failed; roll the
		// collection back so a retry starts clean.
		if delErr := s.store.DeleteCollection(ctx, name); delErr != nil {
			s.log.Warn("registry", "failed to roll back collection after manifest error", map[string]interface{}{
				"domain": name,
				"error":  delErr.Error(),
			})
		}
		return nil, err
	}

	s.log.Info("registry", "domain created", map[string]interface{}{
		"domain":      name,
		"vector_size": vectorSize,
		"distance":    string(distance),
	})
	s.publishEvent(ctx, events.NewDomainCreatedEvent(name, vectorSize, string(distance)))

	return &dto.CreateDomainResponse{Id: domain.Id, Name: domain.Name}, nil
}

func (s *registryService) DeleteDomain(ctx context.Context, name string) error {
	domain, err := s.GetDomain(ctx, name)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCollection(ctx, domain.Name); err != nil {
		// A missing collection is already the desired end state.
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			return err
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SourceFileRepository().DeleteAllByDomainId(ctx, domain.Id); err != nil {
		return err
	}
	if err := uow.DomainRepository().Delete(ctx, domain.Id); err != nil {
		return err
	}

	// Stored bytes go too; a later create-then-reindex must not resurrect
	// documents of a deleted domain.
	if s.files != nil {
		if err := s.files.DeleteDomain(domain.Name); err != nil {
			s.log.Warn("registry", "failed to remove stored files of deleted domain", map[string]interface{}{
				"domain": domain.Name,
				"error":  err.Error(),
			})
		}
	}

	s.log.Info("registry", "domain deleted", map[string]interface{}{"domain": domain.Name})
	s.publishEvent(ctx, events.NewDomainDeletedEvent(domain.Name))
	return nil
}

func (s *registryService) ListDomains(ctx context.Context) ([]*dto.DomainResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	domains, err := uow.DomainRepository().FindAll(ctx, specification.OrderBy{Field: "name"})
	if err != nil {
		return nil, err
	}

	result := make([]*dto.DomainResponse, 0, len(domains))
	for _, d := range domains {
		fileCount, err := uow.SourceFileRepository().Count(ctx, specification.ByDomainId{DomainId: d.Id})
		if err != nil {
			return nil, err
		}
		result = append(result, s.toDomainResponse(d, fileCount))
	}
	return result, nil
}

// GetDomainInfo reports live collection state straight from the vector
// store, never cached, so counts cannot go stale.
func (s *registryService) GetDomainInfo(ctx context.Context, name string) (*dto.DomainInfoResponse, error) {
	domain, err := s.GetDomain(ctx, name)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	fileCount, err := uow.SourceFileRepository().Count(ctx, specification.ByDomainId{DomainId: domain.Id})
	if err != nil {
		return nil, err
	}

	info, err := s.store.GetCollectionInfo(ctx, domain.Name)
	if err != nil {
		return nil, err
	}

	return &dto.DomainInfoResponse{
		DomainResponse:      *s.toDomainResponse(domain, fileCount),
		PointsCount:         info.PointsCount,
		IndexedVectorsCount: info.IndexedVectorsCount,
		CollectionStatus:    info.Status,
	}, nil
}

func (s *registryService) GetDomain(ctx context.Context, name string) (*entity.Domain, error) {
	normalized, err := NormalizeDomainName(name)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	domain, err := uow.DomainRepository().FindOne(ctx, specification.ByName{Name: normalized})
	if err != nil {
		return nil, err
	}
	if domain == nil {
		return nil, apperrors.NotFound("domain %q not found", normalized)
	}
	return domain, nil
}

func (s *registryService) ListFiles(ctx context.Context, name string) ([]*dto.SourceFileResponse, error) {
	domain, err := s.GetDomain(ctx, name)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	files, err := uow.SourceFileRepository().FindAll(ctx,
		specification.ByDomainId{DomainId: domain.Id},
		specification.OrderBy{Field: "filename"},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.SourceFileResponse, 0, len(files))
	for _, f := range files {
		result = append(result, &dto.SourceFileResponse{
			Filename:    f.Filename,
			SizeBytes:   f.SizeBytes,
			ContentHash: f.ContentHash,
			ChunkCount:  f.ChunkCount,
			Status:      f.Status,
			Error:       f.ErrorMessage,
			IndexedAt:   f.IndexedAt,
		})
	}
	return result, nil
}

// SaveSummary persists the generated domain summary so it survives restarts
// and feeds the query planner.
func (s *registryService) SaveSummary(ctx context.Context, domain *entity.Domain, summary string) error {
	domain.Summary = summary
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.DomainRepository().Update(ctx, domain)
}

// RecordFileIndexed upserts the manifest entry after every chunk of the
// file has been accepted by the vector store.
func (s *registryService) RecordFileIndexed(ctx context.Context, domain *entity.Domain, filename string, sizeBytes int64, contentHash string, chunkCount int) error {
	now := time.Now()
	return s.upsertFile(ctx, domain, filename, func(f *entity.SourceFile) {
		f.SizeBytes = sizeBytes
		f.ContentHash = contentHash
		f.ChunkCount = chunkCount
		f.Status = entity.FileStatusIndexed
		f.ErrorMessage = ""
		f.IndexedAt = &now
	})
}

func (s *registryService) RecordFileError(ctx context.Context, domain *entity.Domain, filename string, sizeBytes int64, reason string) error {
	return s.upsertFile(ctx, domain, filename, func(f *entity.SourceFile) {
		f.SizeBytes = sizeBytes
		f.ChunkCount = 0
		f.Status = entity.FileStatusError
		f.ErrorMessage = reason
		f.IndexedAt = nil
	})
}

// RemoveFile deletes the file's points first and only then drops the
// manifest entry. When the vector delete fails the manifest entry stays
// (fail-closed) so manifest and collection never diverge silently.
func (s *registryService) RemoveFile(ctx context.Context, domain *entity.Domain, filename string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	file, err := uow.SourceFileRepository().FindOne(ctx,
		specification.ByDomainId{DomainId: domain.Id},
		specification.ByFilename{Filename: filename},
	)
	if err != nil {
		return err
	}
	if file == nil {
		return apperrors.NotFound("file %q not found in domain %q", filename, domain.Name)
	}

	filter := vectorstore.FileFilter(filename)
	if err := s.store.DeletePointsByFilter(ctx, domain.Name, filter); err != nil {
		s.log.Error("registry", "vector delete failed, keeping manifest entry", map[string]interface{}{
			"domain":   domain.Name,
			"filename": filename,
			"error":    err.Error(),
		})
		return err
	}

	return uow.SourceFileRepository().Delete(ctx, file.Id)
}

// ResetManifest drops every manifest entry of the domain. Used by reindex
// after the collection has been recreated.
func (s *registryService) ResetManifest(ctx context.Context, domain *entity.Domain) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SourceFileRepository().DeleteAllByDomainId(ctx, domain.Id)
}

func (s *registryService) upsertFile(ctx context.Context, domain *entity.Domain, filename string, mutate func(*entity.SourceFile)) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	file, err := uow.SourceFileRepository().FindOne(ctx,
		specification.ByDomainId{DomainId: domain.Id},
		specification.ByFilename{Filename: filename},
	)
	if err != nil {
		return err
	}

	if file == nil {
		file = &entity.SourceFile{
			Id:        uuid.New(),
			DomainId:  domain.Id,
			Filename:  filename,
			Status:    entity.FileStatusPending,
			CreatedAt: time.Now(),
		}
		mutate(file)
		return uow.SourceFileRepository().Create(ctx, file)
	}

	mutate(file)
	return uow.SourceFileRepository().Update(ctx, file)
}

func (s *registryService) toDomainResponse(d *entity.Domain, fileCount int64) *dto.DomainResponse {
	return &dto.DomainResponse{
		Id:         d.Id,
		Name:       d.Name,
		VectorSize: d.VectorSize,
		Distance:   d.Distance,
		FileCount:  fileCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (s *registryService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.log.Warn("registry", "failed to publish lifecycle event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}
