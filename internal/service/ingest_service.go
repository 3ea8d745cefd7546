package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/internal/dto"
	"doc-domains-be/internal/entity"
	"doc-domains-be/internal/pkg/logger"
	"doc-domains-be/pkg/chunker"
	"doc-domains-be/pkg/domainlock"
	"doc-domains-be/pkg/embedding"
	"doc-domains-be/pkg/events"
	"doc-domains-be/pkg/filestorage"
	pktNats "doc-domains-be/pkg/nats"
	"doc-domains-be/pkg/parser"
	"doc-domains-be/pkg/vectorstore"
)

// pointNamespace is the UUIDv5 namespace for chunk point IDs. Deriving the
// ID from domain, filename and chunk index makes re-ingestion of unchanged
// content overwrite in place instead of growing the collection.
var pointNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// IngestFile is one input of an ingestion batch: a stored file addressed by
// its on-disk path.
type IngestFile struct {
	Filename string
	Path     string
}

type IIngestService interface {
	IndexFiles(ctx context.Context, domainName string, files []IngestFile) (*dto.IngestReport, error)
	DeleteFile(ctx context.Context, domainName, filename string) (*dto.DeleteFileResponse, error)
	ReindexDomain(ctx context.Context, domainName string) (*dto.ReindexResponse, error)
}

type ingestService struct {
	registry       IRegistryService
	store          vectorstore.Store
	embedder       embedding.Provider
	parser         *parser.Parser
	chunker        *chunker.Chunker
	files          *filestorage.Storage
	locks          *domainlock.Registry
	publisher      IPublisherService
	eventPublisher *pktNats.Publisher
	log            logger.ILogger
	workers        int
	embedSem       *semaphore.Weighted
}

// NewIngestService wires the full ingestion pipeline. embedConcurrency is a
// process-wide cap shared by every domain so parallel batches cannot
// overload the embedding server.
func NewIngestService(
	registry IRegistryService,
	store vectorstore.Store,
	embedder embedding.Provider,
	docParser *parser.Parser,
	textChunker *chunker.Chunker,
	files *filestorage.Storage,
	locks *domainlock.Registry,
	publisher IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	workers int,
	embedConcurrency int,
) IIngestService {
	if workers <= 0 {
		workers = 4
	}
	if embedConcurrency <= 0 {
		embedConcurrency = 4
	}
	return &ingestService{
		registry:       registry,
		store:          store,
		embedder:       embedder,
		parser:         docParser,
		chunker:        textChunker,
		files:          files,
		locks:          locks,
		publisher:      publisher,
		eventPublisher: eventPublisher,
		log:            log,
		workers:        workers,
		embedSem:       semaphore.NewWeighted(int64(embedConcurrency)),
	}
}

// PointID derives the deterministic UUID of one chunk point.
func PointID(domain, filename string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s/%s#%d", domain, filename, chunkIndex))).String()
}

func (s *ingestService) IndexFiles(ctx context.Context, domainName string, files []IngestFile) (*dto.IngestReport, error) {
	domain, err := s.registry.GetDomain(ctx, domainName)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.AcquireShared(domain.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.processBatch(ctx, domain, files)
}

// processBatch runs the per-file pipeline under a worker pool. A failed
// file never aborts the batch; its outcome lands in the report and in the
// manifest as an error entry.
func (s *ingestService) processBatch(ctx context.Context, domain *entity.Domain, files []IngestFile) (*dto.IngestReport, error) {
	report := &dto.IngestReport{Domain: domain.Name}
	if len(files) == 0 {
		return report, nil
	}

	job := &jobProgress{id: uuid.NewString(), total: len(files)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, file := range files {
		file := file
		g.Go(func() error {
			entry := s.processFile(gctx, domain, file, job)
			mu.Lock()
			report.Files = append(report.Files, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Files, func(i, j int) bool {
		return report.Files[i].Filename < report.Files[j].Filename
	})
	for _, f := range report.Files {
		if f.Status == entity.FileStatusIndexed {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// jobProgress is the ephemeral per-batch state behind the progress stream.
type jobProgress struct {
	id        string
	total     int
	processed atomic.Int64
}

func (s *ingestService) processFile(ctx context.Context, domain *entity.Domain, file IngestFile, job *jobProgress) dto.FileReport {
	sizeBytes, contentHash := fileStat(file.Path)

	chunkCount, err := s.indexOne(ctx, domain, file)
	if err != nil {
		s.log.Error("ingest", "file failed", map[string]interface{}{
			"domain":   domain.Name,
			"filename": file.Filename,
			"error":    err.Error(),
		})
		if recErr := s.registry.RecordFileError(ctx, domain, file.Filename, sizeBytes, err.Error()); recErr != nil {
			s.log.Error("ingest", "failed to record file error", map[string]interface{}{
				"domain":   domain.Name,
				"filename": file.Filename,
				"error":    recErr.Error(),
			})
		}
		s.publishProgress(ctx, dto.IngestProgressMessage{
			JobID:     job.id,
			Domain:    domain.Name,
			Filename:  file.Filename,
			Status:    entity.FileStatusError,
			Error:     err.Error(),
			Processed: int(job.processed.Add(1)),
			Total:     job.total,
		})
		return dto.FileReport{
			Filename: file.Filename,
			Status:   entity.FileStatusError,
			Error:    err.Error(),
		}
	}

	if err := s.registry.RecordFileIndexed(ctx, domain, file.Filename, sizeBytes, contentHash, chunkCount); err != nil {
		return dto.FileReport{
			Filename: file.Filename,
			Status:   entity.FileStatusError,
			Error:    fmt.Sprintf("chunks stored but manifest update failed: %v", err),
		}
	}

	s.publishProgress(ctx, dto.IngestProgressMessage{
		JobID:      job.id,
		Domain:     domain.Name,
		Filename:   file.Filename,
		Status:     entity.FileStatusIndexed,
		ChunkCount: chunkCount,
		Processed:  int(job.processed.Add(1)),
		Total:      job.total,
	})
	return dto.FileReport{
		Filename:   file.Filename,
		Status:     entity.FileStatusIndexed,
		ChunkCount: chunkCount,
	}
}

// indexOne runs parse -> chunk -> embed -> upsert for a single file and
// returns the chunk count. Old points of the file are dropped right before
// the upsert so shrunken re-uploads cannot leave stale trailing chunks.
func (s *ingestService) indexOne(ctx context.Context, domain *entity.Domain, file IngestFile) (int, error) {
	text, err := s.parser.Extract(file.Path, file.Filename)
	if err != nil {
		return 0, err
	}

	chunks := s.chunker.Split(text)

	var vectors [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}

		if err := s.embedSem.Acquire(ctx, 1); err != nil {
			return 0, err
		}
		vectors, err = s.embedder.Embed(ctx, texts)
		s.embedSem.Release(1)
		if err != nil {
			return 0, err
		}
		if len(vectors) != len(chunks) {
			return 0, apperrors.InvariantViolation(
				"embedder returned %d vectors for %d chunks of %s", len(vectors), len(chunks), file.Filename,
			)
		}
	}

	if err := s.store.DeletePointsByFilter(ctx, domain.Name, vectorstore.FileFilter(file.Filename)); err != nil {
		return 0, err
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, ch := range chunks {
		points[i] = vectorstore.Point{
			ID:     PointID(domain.Name, file.Filename, ch.Index),
			Vector: vectors[i],
			Payload: vectorstore.Payload{
				Domain:     domain.Name,
				File:       file.Filename,
				ChunkIndex: ch.Index,
				Text:       ch.Text,
				Start:      ch.Start,
				End:        ch.End,
			},
		}
	}
	if err := s.store.UpsertPoints(ctx, domain.Name, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

// DeleteFile removes index state first and bytes second. A byte-storage
// failure does not fail the call; it comes back as a warning so the index
// never keeps an entry that search cannot serve.
func (s *ingestService) DeleteFile(ctx context.Context, domainName, filename string) (*dto.DeleteFileResponse, error) {
	domain, err := s.registry.GetDomain(ctx, domainName)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.AcquireShared(domain.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.registry.RemoveFile(ctx, domain, filename); err != nil {
		return nil, err
	}

	resp := &dto.DeleteFileResponse{Domain: domain.Name, Filename: filename}
	if err := s.files.Delete(domain.Name, filename); err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		resp.Warning = fmt.Sprintf("index entry removed but stored bytes could not be deleted: %v", err)
		s.log.Warn("ingest", "byte deletion failed after index cleanup", map[string]interface{}{
			"domain":   domain.Name,
			"filename": filename,
			"error":    err.Error(),
		})
	}

	s.publishProgress(ctx, dto.IngestProgressMessage{
		Domain:   domain.Name,
		Filename: filename,
		Status:   "deleted",
		Error:    resp.Warning,
	})
	return resp, nil
}

// ReindexDomain recreates the collection and re-ingests every stored file.
// It holds the domain exclusively; concurrent ingestion or another reindex
// on the same domain answers Busy.
func (s *ingestService) ReindexDomain(ctx context.Context, domainName string) (*dto.ReindexResponse, error) {
	domain, err := s.registry.GetDomain(ctx, domainName)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.AcquireExclusive(domain.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.store.DeleteCollection(ctx, domain.Name); err != nil {
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, err
		}
	}
	err = s.store.CreateCollection(ctx, domain.Name, vectorstore.CollectionParams{
		VectorSize: domain.VectorSize,
		Distance:   vectorstore.Distance(domain.Distance),
	})
	if err != nil {
		return nil, err
	}
	if err := s.registry.ResetManifest(ctx, domain); err != nil {
		return nil, err
	}

	stored, err := s.files.List(domain.Name)
	if err != nil {
		return nil, err
	}
	batch := make([]IngestFile, 0, len(stored))
	for _, f := range stored {
		batch = append(batch, IngestFile{
			Filename: f.Filename,
			Path:     s.files.Path(domain.Name, f.Filename),
		})
	}

	report, err := s.processBatch(ctx, domain, batch)
	if err != nil {
		return nil, err
	}

	s.log.Info("ingest", "domain reindexed", map[string]interface{}{
		"domain":    domain.Name,
		"files":     len(batch),
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	})
	if s.eventPublisher != nil {
		event := events.NewDomainReindexedEvent(domain.Name, len(batch), report.Failed)
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.log.Warn("ingest", "failed to publish reindex event", map[string]interface{}{
				"domain": domain.Name,
				"error":  err.Error(),
			})
		}
	}

	return &dto.ReindexResponse{Domain: domain.Name, Report: *report}, nil
}

func (s *ingestService) publishProgress(ctx context.Context, msg dto.IngestProgressMessage) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.log.Warn("ingest", "failed to publish progress message", map[string]interface{}{
			"domain":   msg.Domain,
			"filename": msg.Filename,
			"error":    err.Error(),
		})
	}
}

// fileStat returns the size and sha256 of the stored bytes. An unreadable
// file yields zero values; the read error surfaces later from the parser.
func fileStat(path string) (int64, string) {
	f, err := os.Open(path)
	if err != nil {
		return 0, ""
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return 0, ""
	}
	return size, hex.EncodeToString(h.Sum(nil))
}
