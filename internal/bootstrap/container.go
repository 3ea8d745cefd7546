package bootstrap

import (
	"log"
	"time"

	"doc-domains-be/internal/config"
	"doc-domains-be/internal/controller"
	"doc-domains-be/internal/pkg/logger"
	memrepo "doc-domains-be/internal/repository/memory"
	"doc-domains-be/internal/repository/unitofwork"
	"doc-domains-be/internal/service"
	"doc-domains-be/pkg/chunker"
	"doc-domains-be/pkg/domainlock"
	"doc-domains-be/pkg/embedding/tei"
	"doc-domains-be/pkg/filestorage"
	"doc-domains-be/pkg/llm/openai"
	"doc-domains-be/pkg/parser"
	"doc-domains-be/pkg/rag"
	"doc-domains-be/pkg/vectorstore"
	"doc-domains-be/pkg/vectorstore/memory"
	"doc-domains-be/pkg/vectorstore/pgstore"
	"doc-domains-be/pkg/vectorstore/qdrant"

	pktNats "doc-domains-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DomainController controller.IDomainController
	FileController   controller.IFileController
	QueryController  controller.IQueryController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared infrastructure
	Logger      logger.ILogger
	VectorStore vectorstore.Store
	Ingest      service.IIngestService
	Registry    service.IRegistryService
}

// NewContainer wires the whole pipeline. db may be nil; the repository
// layer then runs on the in-memory implementation, which suits tests and
// single-node setups without postgres.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		uowFactory = memrepo.NewFactory()
	}

	store := newVectorStore(db, cfg)

	embedder, err := tei.NewProvider(tei.Config{
		URL:       cfg.Embedding.TEIURL,
		Dimension: cfg.Vector.VectorSize,
		BatchSize: cfg.Embedding.BatchSize,
	})
	if err != nil {
		log.Fatalf("embedding provider: %v", err)
	}

	generator := openai.NewProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	planner := rag.NewLLMPlanner(generator)

	textChunker, err := chunker.New(chunker.Config{
		MaxChunkSize: cfg.Ingest.ChunkSize,
		Overlap:      cfg.Ingest.ChunkOverlap,
	})
	if err != nil {
		log.Fatalf("chunker: %v", err)
	}

	files, err := filestorage.NewStorage(cfg.App.UploadDir)
	if err != nil {
		log.Fatalf("file storage: %v", err)
	}

	// Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	publisher := service.NewPublisherService(cfg.App.JobsTopic, pubSub)

	eventPublisher, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("bootstrap", "NATS unavailable, lifecycle events disabled", map[string]interface{}{
			"url":   cfg.App.NatsURL,
			"error": err.Error(),
		})
		eventPublisher = nil
	}

	locks := domainlock.NewRegistry()

	registry := service.NewRegistryService(
		uowFactory, store, files, eventPublisher, sysLogger,
		cfg.Vector.VectorSize, vectorstore.Distance(cfg.Vector.Distance),
	)
	ingest := service.NewIngestService(
		registry, store, embedder, parser.New(), textChunker,
		files, locks, publisher, eventPublisher, sysLogger,
		cfg.Ingest.Workers, cfg.Embedding.Concurrency,
	)
	query := service.NewQueryService(
		registry, embedder, store, generator, planner, sysLogger,
		cfg.Retrieval.TopK, cfg.Retrieval.MaxRounds,
	)
	summary := service.NewSummaryService(
		registry, embedder, store, generator, sysLogger, 30*time.Minute,
	)
	consumer := service.NewConsumerService(pubSub, cfg.App.JobsTopic, eventPublisher, sysLogger)

	return &Container{
		DomainController: controller.NewDomainController(registry, summary),
		FileController:   controller.NewFileController(registry, ingest, summary, files),
		QueryController:  controller.NewQueryController(query, sysLogger),
		ConsumerService:  consumer,
		Logger:           sysLogger,
		VectorStore:      store,
		Ingest:           ingest,
		Registry:         registry,
	}
}

func newVectorStore(db *gorm.DB, cfg *config.Config) vectorstore.Store {
	switch cfg.Vector.Backend {
	case "pgvector":
		if db == nil {
			log.Fatal("pgvector backend requires a database connection")
		}
		return pgstore.NewStore(db, cfg.Vector.VectorSize)
	case "memory":
		return memory.NewStore()
	default:
		return qdrant.NewStore(qdrant.Config{
			URL:    cfg.Vector.QdrantURL,
			APIKey: cfg.Vector.QdrantKey,
		})
	}
}
